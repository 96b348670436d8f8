package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/search"
)

// MCP tool names.
const (
	ToolSearch  = "search_entities"
	ToolCount   = "count_entities"
	ToolRebuild = "rebuild_index"
)

// SearchInput is the argument of the search and count tools.
type SearchInput struct {
	Query     string          `json:"query,omitempty" jsonschema:"text to search for; empty lists every entity"`
	Fields    []string        `json:"fields,omitempty" jsonschema:"restrict matching to these fields"`
	Types     []string        `json:"types,omitempty" jsonschema:"restrict hits to these entity types"`
	Where     []search.Filter `json:"where,omitempty" jsonschema:"field filters every hit must satisfy"`
	Limit     int             `json:"limit,omitempty" jsonschema:"page size"`
	Offset    int             `json:"offset,omitempty" jsonschema:"number of hits to skip"`
	Phrase    bool            `json:"phrase,omitempty" jsonschema:"match the words of query in order"`
	Fuzziness int             `json:"fuzziness,omitempty" jsonschema:"edit distance allowed per term"`
	Highlight bool            `json:"highlight,omitempty" jsonschema:"return matched fragments"`
}

func (in SearchInput) request() search.Request {
	return search.Request{
		Query:     in.Query,
		Fields:    in.Fields,
		Types:     in.Types,
		Where:     in.Where,
		Limit:     in.Limit,
		Offset:    in.Offset,
		Phrase:    in.Phrase,
		Fuzziness: in.Fuzziness,
		Highlight: in.Highlight,
	}
}

// CountOutput is the result of the count tool.
type CountOutput struct {
	Count uint64 `json:"count"`
}

// RebuildInput is the (empty) argument of the rebuild tool.
type RebuildInput struct{}

// NewMCPServer returns an MCP server exposing eng as tools.
func NewMCPServer(eng *engine.Engine, impl *mcp.Implementation) *mcp.Server {
	if impl == nil {
		impl = &mcp.Implementation{Name: "entityindex", Version: "dev"}
	}
	s := mcp.NewServer(impl, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolSearch,
		Description: "Full-text search over indexed entities. Returns entity type and primary key per hit, best match first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchResponse, error) {
		results, total, err := eng.SearchPage(ctx, in.request())
		if err != nil {
			return nil, SearchResponse{}, err
		}
		return nil, toSearchResponse(results, total), nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolCount,
		Description: "Count indexed entities matching a query.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, CountOutput, error) {
		n, err := eng.Count(ctx, in.request())
		if err != nil {
			return nil, CountOutput{}, err
		}
		return nil, CountOutput{Count: n}, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolRebuild,
		Description: "Clear the index and re-index every registered entity type from its repository.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ RebuildInput) (*mcp.CallToolResult, RebuildResponse, error) {
		stats, err := eng.Rebuild(ctx)
		if err != nil {
			return nil, RebuildResponse{}, err
		}
		return nil, toRebuildResponse(stats), nil
	})

	return s
}
