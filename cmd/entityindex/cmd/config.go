package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/entityindex/registry"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigValidateCmd(global))
	return cmd
}

func newConfigValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration against the database and print the entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openRegistry(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tTYPE ID\tPRIMARY KEY\tFIELDS\tOPTIONAL ATTRIBUTES")
			for _, d := range a.reg.Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.Type(), d.TypeID(), d.PrimaryKey(), formatFields(d.Fields()), formatOptional(d.OptionalAttributes()))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration OK (fingerprint %s)\n", a.reg.Fingerprint())
			return nil
		},
	}
}

func formatFields(rules registry.FieldRules) string {
	if len(rules) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, fmt.Sprintf("%s^%g", r.Name, r.Boost))
	}
	return strings.Join(parts, ",")
}

func formatOptional(o registry.OptionalAttributes) string {
	if !o.Enabled() {
		return "-"
	}
	return o.FieldName()
}
