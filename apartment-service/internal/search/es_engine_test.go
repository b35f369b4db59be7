package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestESSearchBody(t *testing.T) {
	body := esSearchBody(Query{
		Text:    "skyline",
		Filters: []Filter{Eq(AttrBedrooms, 3), Gte(AttrPrice, 1000.0), Lte(AttrPrice, 5000.0)},
		Sort:    []Sort{{Field: AttrCreatedAt, Desc: true}},
		Offset:  20,
		Limit:   10,
	}, DefaultSettings())

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	var got struct {
		From  int `json:"from"`
		Size  int `json:"size"`
		Query struct {
			Bool struct {
				Must struct {
					MultiMatch struct {
						Query     string   `json:"query"`
						Fields    []string `json:"fields"`
						Fuzziness string   `json:"fuzziness"`
					} `json:"multi_match"`
				} `json:"must"`
				Filter []map[string]map[string]interface{} `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
		Sort []interface{} `json:"sort"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, 20, got.From)
	assert.Equal(t, 10, got.Size)
	mm := got.Query.Bool.Must.MultiMatch
	assert.Equal(t, "skyline", mm.Query)
	assert.Equal(t, "AUTO:4,8", mm.Fuzziness)
	assert.Equal(t, []string{
		"unitName^7", "unitNumber^6", "description^5", "features^4",
		"projectName^3", "projectLocation^2", "projectDeveloper^1",
	}, mm.Fields)

	require.Len(t, got.Query.Bool.Filter, 3)
	assert.Equal(t, float64(3), got.Query.Bool.Filter[0]["term"]["bedrooms"])
	assert.Equal(t, map[string]interface{}{"gte": float64(1000)}, got.Query.Bool.Filter[1]["range"]["price"])
	assert.Equal(t, map[string]interface{}{"lte": float64(5000)}, got.Query.Bool.Filter[2]["range"]["price"])

	require.Len(t, got.Sort, 2)
	assert.Equal(t, "_score", got.Sort[0])
}

func TestESSearchBody_EmptyTextBrowses(t *testing.T) {
	raw, err := json.Marshal(esSearchBody(Query{Limit: 10}, DefaultSettings()))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"match_all":{}`)
}

func TestESMapping(t *testing.T) {
	props := esMapping(DefaultSettings())["properties"].(map[string]interface{})

	typ := func(attr string) interface{} {
		return props[attr].(map[string]interface{})["type"]
	}
	assert.Equal(t, "text", typ(AttrUnitName))
	assert.Equal(t, "text", typ(AttrProjectDeveloper))
	assert.Equal(t, "keyword", typ(AttrProjectID))
	assert.Equal(t, "keyword", typ(AttrStatus))
	assert.Equal(t, "double", typ(AttrPrice))
	assert.Equal(t, "integer", typ(AttrBedrooms))
	assert.Equal(t, "integer", typ(AttrFloor))
	assert.Equal(t, "long", typ(AttrCreatedAt))
}

func TestESBulkBody(t *testing.T) {
	raw, err := esBulkBody("apartments", []Document{{ID: "a1"}, {ID: "a2"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"apartments","_id":"a1"}}`, lines[0])
	assert.Contains(t, lines[1], `"id":"a1"`)
	assert.JSONEq(t, `{"index":{"_index":"apartments","_id":"a2"}}`, lines[2])
}

type esStub struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func newESStub(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*ESEngine, *esStub) {
	t.Helper()
	stub := &esStub{bodies: make(map[string]string)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := r.Method + " " + r.URL.Path

		stub.mu.Lock()
		stub.requests = append(stub.requests, key)
		stub.bodies[key] = string(body)
		stub.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if route, ok := routes[key]; ok {
			route(w)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	engine, err := NewESEngine(ESConfig{Addresses: []string{srv.URL}, Index: "apartments"})
	require.NoError(t, err)
	return engine, stub
}

func TestESEngine_Search(t *testing.T) {
	engine, stub := newESStub(t, map[string]func(http.ResponseWriter){
		"POST /apartments/_search": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"hits":{"total":{"value":42},"hits":[{"_id":"b"},{"_id":"a"}]}}`))
		},
	})

	res, err := engine.Search(context.Background(), Query{Text: "loft", Filters: []Filter{Eq(AttrStatus, "AVAILABLE")}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, res.IDs)
	assert.Equal(t, int64(42), res.EstimatedTotal)
	assert.Contains(t, stub.bodies["POST /apartments/_search"], `"term":{"status":"AVAILABLE"}`)
}

func TestESEngine_SearchError(t *testing.T) {
	engine, _ := newESStub(t, map[string]func(http.ResponseWriter){
		"POST /apartments/_search": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"unavailable"}`))
		},
	})

	_, err := engine.Search(context.Background(), Query{Text: "loft", Limit: 2})
	assert.Error(t, err)
}

func TestESEngine_UpsertReportsItemErrors(t *testing.T) {
	engine, stub := newESStub(t, map[string]func(http.ResponseWriter){
		"POST /_bulk": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"_id":"a1","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad price"}}}]}`))
		},
	})

	err := engine.Upsert(context.Background(), []Document{{ID: "a1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
	assert.Contains(t, stub.bodies["POST /_bulk"], `"_id":"a1"`)
}

func TestESEngine_DeleteMissingIsNotAnError(t *testing.T) {
	engine, _ := newESStub(t, map[string]func(http.ResponseWriter){
		"DELETE /apartments/_doc/gone": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
		},
	})

	assert.NoError(t, engine.Delete(context.Background(), "gone"))
}

func TestESEngine_EnsureIndexCreatesMissingIndex(t *testing.T) {
	engine, stub := newESStub(t, map[string]func(http.ResponseWriter){
		"HEAD /apartments": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNotFound)
		},
	})

	require.NoError(t, engine.EnsureIndex(context.Background(), DefaultSettings()))
	assert.Contains(t, stub.requests, "PUT /apartments")
	assert.Contains(t, stub.bodies["PUT /apartments"], `"mappings"`)
}

func TestESEngine_Stats(t *testing.T) {
	engine, _ := newESStub(t, map[string]func(http.ResponseWriter){
		"POST /apartments/_count": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"count":7}`))
		},
		"GET /apartments/_count": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"count":7}`))
		},
	})

	stats, err := engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.NumberOfDocuments)
}
