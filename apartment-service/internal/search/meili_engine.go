package search

import (
	"context"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

const EngineMeilisearch = "meilisearch"

// MeiliConfig holds Meilisearch connection settings.
type MeiliConfig struct {
	Host    string        `mapstructure:"host"`
	APIKey  string        `mapstructure:"api_key"`
	Index   string        `mapstructure:"index"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MeiliEngine implements Engine on Meilisearch.
type MeiliEngine struct {
	client *meilisearch.Client
	index  string
}

var _ Engine = (*MeiliEngine)(nil)

// NewMeiliEngine creates a Meilisearch engine. The HTTP client is bounded by
// cfg.Timeout so a hung server surfaces as an error.
func NewMeiliEngine(cfg MeiliConfig) *MeiliEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Index == "" {
		cfg.Index = "apartments"
	}
	return &MeiliEngine{
		client: meilisearch.NewClient(meilisearch.ClientConfig{
			Host:    cfg.Host,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}),
		index: cfg.Index,
	}
}

func (e *MeiliEngine) Name() string { return EngineMeilisearch }

func (e *MeiliEngine) Health(ctx context.Context) error {
	_, err := call(ctx, func() (*meilisearch.Health, error) {
		return e.client.Health()
	})
	return err
}

// EnsureIndex enqueues index creation and the settings update. Meilisearch
// processes tasks in order, so the settings apply to the new index; creating
// an index that exists fails only its own task.
func (e *MeiliEngine) EnsureIndex(ctx context.Context, settings Settings) error {
	_, err := call(ctx, func() (*meilisearch.TaskInfo, error) {
		return e.client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        e.index,
			PrimaryKey: AttrID,
		})
	})
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}

	_, err = call(ctx, func() (*meilisearch.TaskInfo, error) {
		return e.client.Index(e.index).UpdateSettings(meiliSettings(settings))
	})
	if err != nil {
		return fmt.Errorf("update settings of %s: %w", e.index, err)
	}
	return nil
}

func (e *MeiliEngine) Upsert(ctx context.Context, docs []Document) error {
	_, err := call(ctx, func() (*meilisearch.TaskInfo, error) {
		return e.client.Index(e.index).AddDocuments(docs, AttrID)
	})
	return err
}

func (e *MeiliEngine) Delete(ctx context.Context, id string) error {
	_, err := call(ctx, func() (*meilisearch.TaskInfo, error) {
		return e.client.Index(e.index).DeleteDocument(id)
	})
	return err
}

func (e *MeiliEngine) DeleteAll(ctx context.Context) error {
	_, err := call(ctx, func() (*meilisearch.TaskInfo, error) {
		return e.client.Index(e.index).DeleteAllDocuments()
	})
	return err
}

func (e *MeiliEngine) Search(ctx context.Context, q Query) (*Result, error) {
	req := &meilisearch.SearchRequest{
		Offset:               int64(q.Offset),
		Limit:                int64(q.Limit),
		AttributesToRetrieve: []string{AttrID},
	}
	if len(q.Filters) > 0 {
		req.Filter = JoinFilters(q.Filters)
	}
	for _, s := range q.Sort {
		req.Sort = append(req.Sort, s.String())
	}

	res, err := call(ctx, func() (*meilisearch.SearchResponse, error) {
		return e.client.Index(e.index).Search(q.Text, req)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		switch id := doc[AttrID].(type) {
		case string:
			ids = append(ids, id)
		case nil:
		default:
			ids = append(ids, fmt.Sprint(id))
		}
	}

	return &Result{IDs: ids, EstimatedTotal: res.EstimatedTotalHits}, nil
}

func (e *MeiliEngine) Stats(ctx context.Context) (*Stats, error) {
	res, err := call(ctx, func() (*meilisearch.StatsIndex, error) {
		return e.client.Index(e.index).GetStats()
	})
	if err != nil {
		return nil, err
	}
	return &Stats{
		NumberOfDocuments: res.NumberOfDocuments,
		IsIndexing:        res.IsIndexing,
		FieldDistribution: res.FieldDistribution,
	}, nil
}

func meiliSettings(s Settings) *meilisearch.Settings {
	return &meilisearch.Settings{
		SearchableAttributes: s.SearchableAttributes,
		FilterableAttributes: s.FilterableAttributes,
		SortableAttributes:   s.SortableAttributes,
		RankingRules:         s.RankingRules,
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: s.TypoTolerance.Enabled,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  int64(s.TypoTolerance.OneTypoMinWordSize),
				TwoTypos: int64(s.TypoTolerance.TwoTyposMinWordSize),
			},
		},
	}
}

// call runs fn and returns early when ctx is done. The meilisearch client
// takes no context; its own timeout bounds the abandoned call.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
