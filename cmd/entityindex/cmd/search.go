package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	offset    int
	types     []string
	fields    []string
	where     []string
	phrase    bool
	fuzziness int
	format    string // "text", "json"
	load      bool   // load full entities from the database
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index and print the matching entity references.

Examples:
  entityindex search golang
  entityindex search "type parameters" --phrase --type posts
  entityindex search golang --field title --where status:published
  entityindex search golang --format json --load`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), global, req, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of results to skip")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "Restrict to entity types (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.fields, "field", "f", nil, "Restrict matching to fields (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, "Filter as field:value (repeatable)")
	cmd.Flags().BoolVar(&opts.phrase, "phrase", false, "Match the words of the query in order")
	cmd.Flags().IntVar(&opts.fuzziness, "fuzzy", 0, "Edit distance allowed per term")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.load, "load", false, "Load and print the matching entities")

	return cmd
}

func (o searchOptions) request(query string) (search.Request, error) {
	switch o.format {
	case "text", "json":
	default:
		return search.Request{}, fmt.Errorf("unknown format %q: want text or json", o.format)
	}
	req := search.Request{
		Query:     query,
		Fields:    o.fields,
		Types:     o.types,
		Limit:     o.limit,
		Offset:    o.offset,
		Phrase:    o.phrase,
		Fuzziness: o.fuzziness,
	}
	for _, w := range o.where {
		field, value, ok := strings.Cut(w, ":")
		if !ok || field == "" {
			return req, fmt.Errorf("--where %q: want field:value", w)
		}
		req.Where = append(req.Where, search.Filter{Field: field, Value: value})
	}
	return req, nil
}

// searchHit is one line of JSON output.
type searchHit struct {
	Type   string         `json:"type"`
	Key    string         `json:"key"`
	Score  float64        `json:"score"`
	Entity map[string]any `json:"entity,omitempty"`
}

func runSearch(ctx context.Context, out io.Writer, global *globalOptions, req search.Request, opts searchOptions) error {
	a, err := openApp(ctx, global)
	if err != nil {
		return err
	}
	defer a.Close()

	results, total, err := a.eng.SearchPage(ctx, req)
	if err != nil {
		return err
	}

	var loaded []entity.Entity
	if opts.load {
		if loaded, err = a.eng.Load(ctx, results); err != nil {
			return err
		}
	}
	hits := toSearchHits(a.reg, results, loaded)

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"total": total, "results": hits})
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tKEY\tSCORE")
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\n", h.Type, h.Key, h.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d\n", len(hits), total)
	return nil
}

// toSearchHits pairs results with loaded entities. Results whose entity
// could not be loaded keep only their reference.
func toSearchHits(reg *registry.Registry, results engine.Results, loaded []entity.Entity) []searchHit {
	byKey := make(map[string]entity.Entity, len(loaded))
	for _, e := range loaded {
		d, err := reg.DescriptorFor(e)
		if err != nil {
			continue
		}
		raw, _ := entity.ReadNamedPath(e, d.PrimaryKey())
		byKey[d.Type()+"\x00"+entity.FormatKey(raw)] = e
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		h := searchHit{Type: r.Type, Key: r.Key, Score: r.Score}
		if e, ok := byKey[r.Type+"\x00"+r.Key]; ok {
			h.Entity = attributes(e)
		}
		hits = append(hits, h)
	}
	return hits
}

func attributes(e entity.Entity) map[string]any {
	rec, ok := e.(*entity.Record)
	if !ok {
		return nil
	}
	return maps.Clone(rec.Attrs)
}
