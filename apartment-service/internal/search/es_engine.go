package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const EngineElasticsearch = "elasticsearch"

// ESConfig holds Elasticsearch connection settings.
type ESConfig struct {
	Addresses []string      `mapstructure:"addresses"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	APIKey    string        `mapstructure:"api_key"`
	Index     string        `mapstructure:"index"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ESEngine implements Engine on Elasticsearch. Searchable attributes become
// boosted multi_match fields, filterable ones keyword or numeric fields.
type ESEngine struct {
	client   *elasticsearch.Client
	index    string
	settings Settings
}

var _ Engine = (*ESEngine)(nil)

// NewESEngine creates an Elasticsearch engine with a bounded transport.
func NewESEngine(cfg ESConfig) (*ESEngine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Index == "" {
		cfg.Index = "apartments"
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
			ResponseHeaderTimeout: cfg.Timeout,
			TLSHandshakeTimeout:   cfg.Timeout,
			MaxIdleConnsPerHost:   10,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ESEngine{client: client, index: cfg.Index, settings: DefaultSettings()}, nil
}

func (e *ESEngine) Name() string { return EngineElasticsearch }

func (e *ESEngine) Health(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	return checkResponse(res)
}

// EnsureIndex creates the index with its mapping, or updates the mapping of
// an existing index.
func (e *ESEngine) EnsureIndex(ctx context.Context, settings Settings) error {
	e.settings = settings
	mapping := esMapping(settings)

	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", e.index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		body, err := json.Marshal(map[string]interface{}{"mappings": mapping})
		if err != nil {
			return fmt.Errorf("failed to marshal mapping: %w", err)
		}
		res, err := e.client.Indices.Create(e.index,
			e.client.Indices.Create.WithContext(ctx),
			e.client.Indices.Create.WithBody(bytes.NewReader(body)),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", e.index, err)
		}
		if err := checkResponse(res); err != nil && !strings.Contains(err.Error(), "resource_already_exists_exception") {
			return fmt.Errorf("create index %s: %w", e.index, err)
		}
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err = e.client.Indices.PutMapping([]string{e.index}, bytes.NewReader(body),
		e.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update mapping of %s: %w", e.index, err)
	}
	return checkResponse(res)
}

func (e *ESEngine) Upsert(ctx context.Context, docs []Document) error {
	body, err := esBulkBody(e.index, docs)
	if err != nil {
		return err
	}

	res, err := e.client.Bulk(bytes.NewReader(body), e.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			if op := item["index"]; op.Error != nil {
				return fmt.Errorf("bulk index %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}
	return nil
}

func (e *ESEngine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.index, id, e.client.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

func (e *ESEngine) DeleteAll(ctx context.Context) error {
	res, err := e.client.DeleteByQuery([]string{e.index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithConflicts("proceed"),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

func (e *ESEngine) Search(ctx context.Context, q Query) (*Result, error) {
	data, err := json.Marshal(esSearchBody(q, e.settings))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search apartments: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return &Result{IDs: ids, EstimatedTotal: result.Hits.Total.Value}, nil
}

func (e *ESEngine) Stats(ctx context.Context) (*Stats, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.index),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &Stats{NumberOfDocuments: result.Count, FieldDistribution: map[string]int64{}}, nil
}

// esMapping renders the index settings as an Elasticsearch mapping.
func esMapping(s Settings) map[string]interface{} {
	props := map[string]interface{}{
		AttrID:        map[string]interface{}{"type": "keyword"},
		AttrCreatedAt: map[string]interface{}{"type": "long"},
		AttrImages:    map[string]interface{}{"type": "keyword", "index": false},
	}
	for _, attr := range s.SearchableAttributes {
		props[attr] = map[string]interface{}{"type": "text"}
	}
	for _, attr := range append(append([]string{}, s.FilterableAttributes...), s.SortableAttributes...) {
		if _, ok := props[attr]; ok {
			continue
		}
		props[attr] = map[string]interface{}{"type": esFieldType(attr)}
	}
	return map[string]interface{}{"properties": props}
}

func esFieldType(attr string) string {
	switch attr {
	case AttrPrice, AttrArea:
		return "double"
	case AttrBedrooms, AttrBathrooms, AttrFloor:
		return "integer"
	case AttrCreatedAt:
		return "long"
	default:
		return "keyword"
	}
}

// esSearchBody builds the search request. Searchable attributes are boosted
// by their position; explicit sorts apply after relevance.
func esSearchBody(q Query, s Settings) map[string]interface{} {
	var must interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if text := strings.TrimSpace(q.Text); text != "" {
		n := len(s.SearchableAttributes)
		fields := make([]string, n)
		for i, attr := range s.SearchableAttributes {
			fields[i] = fmt.Sprintf("%s^%d", attr, n-i)
		}
		match := map[string]interface{}{
			"query":  text,
			"fields": fields,
		}
		if s.TypoTolerance.Enabled {
			match["fuzziness"] = fmt.Sprintf("AUTO:%d,%d", s.TypoTolerance.OneTypoMinWordSize, s.TypoTolerance.TwoTyposMinWordSize)
		}
		must = map[string]interface{}{"multi_match": match}
	}

	filters := make([]interface{}, 0, len(q.Filters))
	for _, f := range q.Filters {
		switch f.Op {
		case OpGte:
			filters = append(filters, map[string]interface{}{"range": map[string]interface{}{f.Field: map[string]interface{}{"gte": f.Value}}})
		case OpLte:
			filters = append(filters, map[string]interface{}{"range": map[string]interface{}{f.Field: map[string]interface{}{"lte": f.Value}}})
		default:
			filters = append(filters, map[string]interface{}{"term": map[string]interface{}{f.Field: f.Value}})
		}
	}

	sort := []interface{}{"_score"}
	for _, by := range q.Sort {
		order := "asc"
		if by.Desc {
			order = "desc"
		}
		sort = append(sort, map[string]interface{}{by.Field: map[string]interface{}{"order": order}})
	}

	return map[string]interface{}{
		"from":             q.Offset,
		"size":             q.Limit,
		"track_total_hits": true,
		"_source":          false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
		"sort": sort,
	}
}

// esBulkBody renders docs as an NDJSON bulk index request.
func esBulkBody(index string, docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]interface{}{"index": map[string]string{"_index": index, "_id": doc.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to marshal bulk meta: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func checkResponse(res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch error [%d]: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// esResponse is the subset of the search response used here.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}
