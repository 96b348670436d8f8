// Package server exposes an engine over HTTP and the Model Context Protocol.
//
// The HTTP handler serves:
//
//	GET    /search   full-text search, resolved to entity references
//	GET    /count    number of hits for the same query parameters
//	POST   /rebuild  re-index every registered entity type
//	DELETE /index    remove every document
//	GET    /healthz  liveness and index staleness
//	GET    /metrics  Prometheus metrics
//	/mcp             streamable MCP endpoint
//
// Search parameters:
//
//	q          query text; empty lists everything
//	field      restrict matching to a field (repeatable)
//	type       restrict hits to an entity type (repeatable)
//	where      field:value filter (repeatable)
//	limit      page size
//	offset     hits to skip
//	phrase     match words in order
//	fuzzy      edit distance per term
//	highlight  return matched fragments
//
// NewMCPServer registers the same operations as MCP tools, so they can be
// served over stdio:
//
//	srv := server.NewMCPServer(eng, &mcp.Implementation{Name: "entityindex", Version: "v1"})
//	err := srv.Run(ctx, &mcp.StdioTransport{})
package server
