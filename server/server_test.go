package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/engine"
	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/registry"
	"github.com/jonwraymond/entityindex/resolve"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return newTestEngineWithFields(t, registry.FieldRules{{Name: "title", Boost: 2}, {Name: "body", Boost: 1}})
}

func newTestEngineWithFields(t *testing.T, fields registry.FieldRules) *engine.Engine {
	t.Helper()
	posts := entity.NewMemoryRepository("posts", "id")
	reg, err := registry.New(registry.Config{Entities: []registry.EntityConfig{{
		Name:       "posts",
		Repository: posts,
		Fields:     fields,
	}}})
	require.NoError(t, err)

	eng, err := engine.New(context.Background(), engine.Options{Registry: reg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	for _, attrs := range []map[string]any{
		{"id": 1, "title": "Golang tips", "body": "channels and goroutines"},
		{"id": 2, "title": "Cooking", "body": "golang is not a spice"},
		{"id": 3, "title": "Gardening", "body": "tomatoes"},
	} {
		rec := entity.NewRecord("posts", attrs)
		_, err := posts.Put(rec)
		require.NoError(t, err)
		require.NoError(t, eng.Observer().Saved(context.Background(), rec))
	}
	return eng
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHTTP_Search(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodGet, "/search?q=golang")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2), resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "1", resp.Results[0].Key)
	assert.Equal(t, "posts", resp.Results[0].Type)
	assert.Equal(t, "2", resp.Results[1].Key)
}

func TestHTTP_SearchUnboostedFields(t *testing.T) {
	h := NewHTTPHandler(newTestEngineWithFields(t, registry.FieldRules{{Name: "title"}, {Name: "body"}}), nil, nil)

	rec := get(t, h, http.MethodGet, "/search?q=golang")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.Bytes())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	for _, hit := range resp.Results {
		assert.False(t, math.IsNaN(hit.Score) || math.IsInf(hit.Score, 0), "score %v", hit.Score)
		assert.Greater(t, hit.Score, 0.0)
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"score": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["code"])
}

func TestToSearchResponse_NonFiniteScores(t *testing.T) {
	resp := toSearchResponse(engine.Results{
		{Reference: resolve.Reference{Type: "posts", Key: "1", Score: math.NaN()}},
		{Reference: resolve.Reference{Type: "posts", Key: "2", Score: math.Inf(1)}},
		{Reference: resolve.Reference{Type: "posts", Key: "3", Score: 0.5}},
	}, 3)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, 0.0, resp.Results[0].Score)
	assert.Equal(t, 0.0, resp.Results[1].Score)
	assert.Equal(t, 0.5, resp.Results[2].Score)
}

func TestHTTP_SearchRestrictedField(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodGet, "/search?q=golang&field=body&highlight=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "2", resp.Results[0].Key)
	assert.NotEmpty(t, resp.Results[0].Fragments)
}

func TestHTTP_SearchBadRequest(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	for _, target := range []string{
		"/search?q=x&limit=abc",
		"/search?q=x&offset=-1",
		"/search?q=x&phrase=maybe",
		"/search?q=x&where=nocolon",
		"/search?q=x&type=comments",
		"/search?q=x&field=class_uid",
	} {
		rec := get(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_request", body["code"], target)
	}
}

func TestHTTP_Count(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodGet, "/count?q=golang")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestHTTP_RebuildAndClear(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodDelete, "/index")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = get(t, h, http.MethodGet, "/count")
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())

	rec = get(t, h, http.MethodPost, "/rebuild")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats RebuildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Documents["posts"])

	rec = get(t, h, http.MethodGet, "/count")
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestHTTP_Health(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["documents"])
	// Documents indexed through the observer carry no fingerprint.
	assert.Equal(t, true, body["stale"])

	get(t, h, http.MethodPost, "/rebuild")
	rec = get(t, h, http.MethodGet, "/healthz")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["stale"])
}

func TestHTTP_ClosedIndex(t *testing.T) {
	eng := newTestEngine(t)
	h := NewHTTPHandler(eng, nil, nil)
	require.NoError(t, eng.Close())

	rec := get(t, h, http.MethodGet, "/search?q=golang")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTP_Metrics(t *testing.T) {
	h := NewHTTPHandler(newTestEngine(t), nil, nil)

	rec := get(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_MCPMounted(t *testing.T) {
	eng := newTestEngine(t)

	rec := get(t, NewHTTPHandler(eng, nil, nil), http.MethodGet, "/mcp")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, NewHTTPHandler(eng, NewMCPServer(eng, nil), nil), http.MethodGet, "/mcp")
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_RecoversPanics(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := get(t, h, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"internal_error","message":"internal error"}`, rec.Body.String())
}

func TestParseSearchRequest_Lists(t *testing.T) {
	req, err := parseSearchRequest(map[string][]string{
		"q":     {"go"},
		"field": {"title,body", " summary "},
		"type":  {"posts"},
		"where": {"status:published:yes"},
		"fuzzy": {"1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "body", "summary"}, req.Fields)
	assert.Equal(t, []string{"posts"}, req.Types)
	require.Len(t, req.Where, 1)
	assert.Equal(t, "status", req.Where[0].Field)
	assert.Equal(t, "published:yes", req.Where[0].Value)
	assert.Equal(t, 1, req.Fuzziness)
}

func connectMCP(t *testing.T, eng *engine.Engine) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()

	ss, err := NewMCPServer(eng, nil).Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var out T
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestMCP_ListTools(t *testing.T) {
	cs := connectMCP(t, newTestEngine(t))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearch, ToolCount, ToolRebuild}, names)
}

func TestMCP_Search(t *testing.T) {
	cs := connectMCP(t, newTestEngine(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "golang", "limit": 1},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := structured[SearchResponse](t, res)
	assert.Equal(t, uint64(2), out.Total)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "1", out.Results[0].Key)
}

func TestMCP_SearchUnknownType(t *testing.T) {
	cs := connectMCP(t, newTestEngine(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "golang", "types": []string{"comments"}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCP_RebuildAndCount(t *testing.T) {
	cs := connectMCP(t, newTestEngine(t))
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: ToolRebuild, Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, 3, structured[RebuildResponse](t, res).Total)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolCount,
		Arguments: map[string]any{"query": "tomatoes"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, uint64(1), structured[CountOutput](t, res).Count)
}
