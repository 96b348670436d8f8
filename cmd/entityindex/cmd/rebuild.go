package cmd

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

func newRebuildCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Clear the index and re-index every configured entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.eng.Rebuild(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range slices.Sorted(maps.Keys(stats.Documents)) {
				line := fmt.Sprintf("%s\t%d indexed", name, stats.Documents[name])
				if n := stats.Skipped[name]; n > 0 {
					line += fmt.Sprintf(", %d not searchable", n)
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "Indexed %d documents in %s\n", stats.Total(), stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.eng.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index cleared")
			return nil
		},
	}
}
