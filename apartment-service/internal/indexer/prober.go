package indexer

import (
	"context"
	"time"

	"github.com/manyalawy/nawy/pkg/log"
)

// Initializer is the part of the search client the prober drives.
type Initializer interface {
	Initialize(ctx context.Context) error
	IsAvailable() bool
}

// Prober re-initializes an unavailable search index on an interval and runs
// the startup bootstrap once it comes back.
type Prober struct {
	index       Initializer
	coordinator *Coordinator
	interval    time.Duration
	quit        chan struct{}
	doneCh      chan struct{}
}

// NewProber creates a prober. It does nothing until Start is called.
func NewProber(index Initializer, coordinator *Coordinator, interval time.Duration) *Prober {
	return &Prober{
		index:       index,
		coordinator: coordinator,
		interval:    interval,
		quit:        make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the prober in a background goroutine.
func (p *Prober) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop signals the prober to stop and returns immediately.
// Call Done() to wait for it to exit.
func (p *Prober) Stop() {
	close(p.quit)
}

// Done returns a channel that is closed when the prober has fully stopped.
func (p *Prober) Done() <-chan struct{} {
	return p.doneCh
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.doneCh)

	interval := p.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	if p.index.IsAvailable() {
		return
	}

	l := log.L()
	if err := p.index.Initialize(ctx); err != nil {
		l.Debug().Err(err).Msg("prober: search index still unavailable")
		return
	}

	l.Info().Msg("prober: search index recovered")
	if err := p.coordinator.OnStartup(ctx); err != nil {
		l.Error().Err(err).Msg("prober: bootstrap reindex failed")
	}
}
