// Package searchtest provides an in-memory search.Engine for tests.
package searchtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/manyalawy/nawy/apartment-service/internal/search"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("searchtest: injected failure")

// Engine is an in-memory search.Engine. Text matching is a case-insensitive
// substring match over the searchable attributes.
type Engine struct {
	mu       sync.Mutex
	name     string
	docs     map[string]search.Document
	settings *search.Settings
	fail     map[string]error
	calls    map[string]int
	queries  []search.Query
}

var _ search.Engine = (*Engine)(nil)

// NewEngine creates an empty engine reporting the given name.
func NewEngine(name string) *Engine {
	return &Engine{
		name:  name,
		docs:  make(map[string]search.Document),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// Fail makes op ("health", "ensure", "upsert", "delete", "delete_all",
// "search", "stats") return err. A nil err clears the failure.
func (e *Engine) Fail(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, op)
		return
	}
	e.fail[op] = err
}

// FailAll makes every operation fail with ErrInjected.
func (e *Engine) FailAll() {
	for _, op := range []string{"health", "ensure", "upsert", "delete", "delete_all", "search", "stats"} {
		e.Fail(op, ErrInjected)
	}
}

// Calls returns how many times op was invoked.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// Doc returns the stored document with the given id.
func (e *Engine) Doc(id string) (search.Document, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[id]
	return d, ok
}

// IDs returns the ids of all stored documents, sorted.
func (e *Engine) IDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Put stores documents directly, bypassing failure injection.
func (e *Engine) Put(docs ...search.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range docs {
		e.docs[d.ID] = d
	}
}

// Settings returns the settings applied by the last EnsureIndex.
func (e *Engine) Settings() *search.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Queries returns every query received.
func (e *Engine) Queries() []search.Query {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]search.Query(nil), e.queries...)
}

func (e *Engine) enter(op string) error {
	e.calls[op]++
	return e.fail[op]
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Health(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enter("health")
}

func (e *Engine) EnsureIndex(ctx context.Context, settings search.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("ensure"); err != nil {
		return err
	}
	e.settings = &settings
	return nil
}

func (e *Engine) Upsert(ctx context.Context, docs []search.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("upsert"); err != nil {
		return err
	}
	for _, d := range docs {
		e.docs[d.ID] = d
	}
	return nil
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("delete"); err != nil {
		return err
	}
	delete(e.docs, id)
	return nil
}

func (e *Engine) DeleteAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("delete_all"); err != nil {
		return err
	}
	e.docs = make(map[string]search.Document)
	return nil
}

func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, q)
	if err := e.enter("search"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []search.Document
	for _, d := range e.docs {
		if matchText(d, q.Text) && matchFilters(d, q.Filters) {
			matched = append(matched, d)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		for _, s := range q.Sort {
			a, b := sortValue(matched[i], s.Field), sortValue(matched[j], s.Field)
			if a != b {
				if s.Desc {
					return a > b
				}
				return a < b
			}
		}
		return matched[i].ID < matched[j].ID
	})

	res := &search.Result{IDs: []string{}, EstimatedTotal: int64(len(matched))}
	for i := q.Offset; i < len(matched) && i < q.Offset+q.Limit; i++ {
		res.IDs = append(res.IDs, matched[i].ID)
	}
	return res, nil
}

func (e *Engine) Stats(ctx context.Context) (*search.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enter("stats"); err != nil {
		return nil, err
	}
	return &search.Stats{
		NumberOfDocuments: int64(len(e.docs)),
		FieldDistribution: map[string]int64{},
	}, nil
}

func matchText(d search.Document, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	fields := []string{d.UnitName, d.UnitNumber, d.ProjectName, d.ProjectLocation}
	if d.Description != nil {
		fields = append(fields, *d.Description)
	}
	if d.ProjectDeveloper != nil {
		fields = append(fields, *d.ProjectDeveloper)
	}
	fields = append(fields, d.Features...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

func matchFilters(d search.Document, filters []search.Filter) bool {
	raw, _ := json.Marshal(d)
	var attrs map[string]interface{}
	_ = json.Unmarshal(raw, &attrs)

	for _, f := range filters {
		got, ok := attrs[f.Field]
		if !ok || got == nil {
			return false
		}
		switch f.Op {
		case search.OpEq:
			if fmt.Sprint(got) != fmt.Sprint(f.Value) {
				return false
			}
		case search.OpGte, search.OpLte:
			g, ok1 := toFloat(got)
			w, ok2 := toFloat(f.Value)
			if !ok1 || !ok2 {
				return false
			}
			if f.Op == search.OpGte && g < w {
				return false
			}
			if f.Op == search.OpLte && g > w {
				return false
			}
		}
	}
	return true
}

func sortValue(d search.Document, field string) float64 {
	switch field {
	case search.AttrPrice:
		return d.Price
	case search.AttrArea:
		return d.Area
	case search.AttrBedrooms:
		return float64(d.Bedrooms)
	case search.AttrCreatedAt:
		return float64(d.CreatedAt)
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
