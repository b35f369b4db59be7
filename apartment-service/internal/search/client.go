package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/pkg/log"
)

var (
	// ErrUnavailable is returned by Query while the index is unavailable.
	ErrUnavailable = errors.New("search index unavailable")
	// ErrNotConfigured is returned by Initialize when no engine credentials
	// are configured.
	ErrNotConfigured = errors.New("search engine not configured")
)

// Index is the search index contract used by the sync coordinator and the
// query router. Write operations never fail outward: they are no-ops while
// the index is unavailable and log transport failures.
type Index interface {
	Name() string
	IsAvailable() bool
	IndexOne(ctx context.Context, doc Document)
	IndexMany(ctx context.Context, docs []Document)
	DeleteOne(ctx context.Context, id string)
	ClearAll(ctx context.Context)
	Query(ctx context.Context, q Query) (*Result, error)
	Stats(ctx context.Context) *Stats
}

// Client owns the connection to one search engine and its health state.
type Client struct {
	name         string
	engine       Engine
	settings     Settings
	queryTimeout time.Duration
	metrics      *metrics.Registry

	available atomic.Bool
}

var _ Index = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithSettings overrides the index configuration.
func WithSettings(s Settings) Option {
	return func(c *Client) { c.settings = s }
}

// WithQueryTimeout bounds every Query call.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) { c.queryTimeout = d }
}

// WithMetrics records availability and engine errors.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for engine. A nil engine means the search engine
// is not configured and the client stays unavailable. name is reported as the
// engine name either way.
func NewClient(name string, engine Engine, opts ...Option) *Client {
	c := &Client{
		name:         name,
		engine:       engine,
		settings:     DefaultSettings(),
		queryTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize probes the engine, then creates and configures the index. The
// client becomes available only if every step succeeds. The returned error
// is informational: the service keeps running without the index.
func (c *Client) Initialize(ctx context.Context) error {
	l := log.Ctx(ctx).With().Str(log.FieldSearchEngine, c.name).Logger()

	if c.engine == nil {
		l.Info().Msg("search engine credentials not configured, search index disabled")
		c.setAvailable(false)
		return ErrNotConfigured
	}

	if err := c.engine.Health(ctx); err != nil {
		l.Error().Err(err).Msg("search engine health check failed, falling back to database queries")
		c.setAvailable(false)
		return fmt.Errorf("health check: %w", err)
	}

	if err := c.engine.EnsureIndex(ctx, c.settings); err != nil {
		l.Error().Err(err).Msg("failed to configure search index, falling back to database queries")
		c.setAvailable(false)
		return fmt.Errorf("configure index: %w", err)
	}

	c.setAvailable(true)
	l.Info().Msg("search index initialized")
	return nil
}

// Configured reports whether an engine is configured at all.
func (c *Client) Configured() bool {
	return c.engine != nil
}

// Name returns the engine name.
func (c *Client) Name() string {
	return c.name
}

// IsAvailable returns the current health flag.
func (c *Client) IsAvailable() bool {
	return c.available.Load()
}

// IndexOne upserts a single document.
func (c *Client) IndexOne(ctx context.Context, doc Document) {
	c.IndexMany(ctx, []Document{doc})
}

// IndexMany upserts documents by id.
func (c *Client) IndexMany(ctx context.Context, docs []Document) {
	if !c.IsAvailable() || len(docs) == 0 {
		return
	}
	if err := c.engine.Upsert(ctx, docs); err != nil {
		c.writeFailed(ctx, "upsert", err).Int(log.FieldCount, len(docs)).Msg("failed to index documents")
		return
	}
	l := log.Ctx(ctx)
	l.Debug().Int(log.FieldCount, len(docs)).Msg("indexed documents")
}

// DeleteOne removes a document by id.
func (c *Client) DeleteOne(ctx context.Context, id string) {
	if !c.IsAvailable() {
		return
	}
	if err := c.engine.Delete(ctx, id); err != nil {
		c.writeFailed(ctx, "delete", err).Str(log.FieldApartmentID, id).Msg("failed to delete document")
	}
}

// ClearAll removes every document from the index.
func (c *Client) ClearAll(ctx context.Context) {
	if !c.IsAvailable() {
		return
	}
	if err := c.engine.DeleteAll(ctx); err != nil {
		c.writeFailed(ctx, "delete_all", err).Msg("failed to clear search index")
	}
}

// Query runs a ranked query. Unlike writes, failures are returned so the
// caller can fall back to the database.
func (c *Client) Query(ctx context.Context, q Query) (*Result, error) {
	if !c.IsAvailable() {
		return nil, ErrUnavailable
	}

	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	res, err := c.engine.Search(ctx, q)
	if err != nil {
		c.countError("search")
		return nil, fmt.Errorf("%s search: %w", c.name, err)
	}
	return res, nil
}

// Stats returns index statistics, or nil when unavailable or on error.
func (c *Client) Stats(ctx context.Context) *Stats {
	if !c.IsAvailable() {
		return nil
	}
	stats, err := c.engine.Stats(ctx)
	if err != nil {
		c.writeFailed(ctx, "stats", err).Msg("failed to get search index stats")
		return nil
	}
	return stats
}

func (c *Client) setAvailable(v bool) {
	c.available.Store(v)
	if c.metrics != nil {
		if v {
			c.metrics.SearchAvailable.Set(1)
		} else {
			c.metrics.SearchAvailable.Set(0)
		}
	}
}

func (c *Client) countError(op string) {
	if c.metrics != nil {
		c.metrics.EngineErrors.WithLabelValues(op).Inc()
	}
}

func (c *Client) writeFailed(ctx context.Context, op string, err error) *zerolog.Event {
	c.countError(op)
	l := log.Ctx(ctx)
	return l.Error().Err(err).Str(log.FieldSearchEngine, c.name)
}
