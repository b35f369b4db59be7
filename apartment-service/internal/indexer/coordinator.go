package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/apartment-service/internal/repository"
	"github.com/manyalawy/nawy/apartment-service/internal/search"
	"github.com/manyalawy/nawy/pkg/log"
)

const DefaultBatchSize = 500

// ErrReindexRunning is returned when a full reindex is already in progress.
var ErrReindexRunning = errors.New("full reindex already running")

// Coordinator keeps the search index eventually consistent with the
// apartment store.
type Coordinator struct {
	apartments repository.ApartmentRepository
	index      search.Index
	batchSize  int
	metrics    *metrics.Registry

	bootstrapped atomic.Bool
	reindexMu    sync.Mutex
}

var _ Executor = (*Coordinator)(nil)

// NewCoordinator creates a sync coordinator. A batchSize below one uses
// DefaultBatchSize.
func NewCoordinator(apartments repository.ApartmentRepository, index search.Index, batchSize int, m *metrics.Registry) *Coordinator {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{
		apartments: apartments,
		index:      index,
		batchSize:  batchSize,
		metrics:    m,
	}
}

// OnStartup fills an empty index. The decision is taken once per process,
// the first time it is called while the index is available.
func (c *Coordinator) OnStartup(ctx context.Context) error {
	if !c.index.IsAvailable() {
		return nil
	}
	if !c.bootstrapped.CompareAndSwap(false, true) {
		return nil
	}

	l := log.Ctx(ctx)
	stats := c.index.Stats(ctx)
	if stats != nil && stats.NumberOfDocuments > 0 {
		l.Info().Int64(log.FieldCount, stats.NumberOfDocuments).Msg("search index already populated")
		return nil
	}

	l.Info().Msg("search index empty, performing full reindex")
	_, err := c.FullReindex(ctx)
	return err
}

// FullReindex clears the index and rebuilds it from the store in batches of
// apartments ordered by creation time. Batches are indexed one at a time.
func (c *Coordinator) FullReindex(ctx context.Context) (domain.ReindexResult, error) {
	if !c.index.IsAvailable() {
		return domain.ReindexResult{}, search.ErrUnavailable
	}
	if !c.reindexMu.TryLock() {
		return domain.ReindexResult{}, ErrReindexRunning
	}
	defer c.reindexMu.Unlock()

	l := log.Ctx(ctx)
	start := time.Now()

	c.index.ClearAll(ctx)

	total := 0
	for batch := 0; ; batch++ {
		apartments, err := c.apartments.ListBatch(ctx, total, c.batchSize)
		if err != nil {
			return domain.ReindexResult{Indexed: total, Duration: time.Since(start).Milliseconds()},
				fmt.Errorf("load batch %d: %w", batch, err)
		}
		if len(apartments) == 0 {
			break
		}

		c.index.IndexMany(ctx, search.ToDocuments(apartments))
		total += len(apartments)
		l.Debug().Int("batch", batch+1).Int(log.FieldCount, total).Msg("indexed batch")

		if len(apartments) < c.batchSize {
			break
		}
	}

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.ReindexIndexed.Add(float64(total))
		c.metrics.ReindexLastSec.Set(elapsed.Seconds())
	}
	l.Info().Int(log.FieldCount, total).Int64(log.FieldDuration, elapsed.Milliseconds()).Msg("full reindex complete")

	return domain.ReindexResult{Indexed: total, Duration: elapsed.Milliseconds()}, nil
}

// SyncOne re-indexes a single apartment. An apartment that no longer exists
// is left alone; removal goes through RemoveOne.
func (c *Coordinator) SyncOne(ctx context.Context, id string) error {
	apt, err := c.apartments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApartmentNotFound) {
			return nil
		}
		return fmt.Errorf("load apartment %s: %w", id, err)
	}
	c.index.IndexOne(ctx, search.ToDocument(apt, apt.Project))
	return nil
}

// RemoveOne removes an apartment from the index.
func (c *Coordinator) RemoveOne(ctx context.Context, id string) error {
	c.index.DeleteOne(ctx, id)
	return nil
}

// SyncProject re-indexes every apartment of a project, whose fields are
// copied into each apartment document.
func (c *Coordinator) SyncProject(ctx context.Context, projectID string) error {
	apartments, err := c.apartments.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load apartments of project %s: %w", projectID, err)
	}
	c.index.IndexMany(ctx, search.ToDocuments(apartments))
	return nil
}

// Execute runs a dispatched task.
func (c *Coordinator) Execute(ctx context.Context, task Task) error {
	switch task.Kind {
	case TaskSyncApartment:
		return c.SyncOne(ctx, task.ID)
	case TaskRemoveApartment:
		return c.RemoveOne(ctx, task.ID)
	case TaskSyncProject:
		return c.SyncProject(ctx, task.ID)
	default:
		return fmt.Errorf("unknown task kind: %s", task.Kind)
	}
}
