package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/pkg/log"
	"github.com/manyalawy/nawy/pkg/pubsub"
)

// Consumer executes sync tasks received from the event bus.
type Consumer struct {
	sub     pubsub.Subscriber
	exec    Executor
	timeout time.Duration
	metrics *metrics.Registry
	doneCh  chan struct{}
}

// NewConsumer creates a consumer of index sync events.
func NewConsumer(sub pubsub.Subscriber, exec Executor, timeout time.Duration, m *metrics.Registry) *Consumer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Consumer{
		sub:     sub,
		exec:    exec,
		timeout: timeout,
		metrics: m,
		doneCh:  make(chan struct{}),
	}
}

// Start subscribes to every index sync channel and processes events until
// ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	events, err := c.sub.SubscribePattern(ctx, pubsub.PatternToIndex)
	if err != nil {
		close(c.doneCh)
		return fmt.Errorf("failed to subscribe to %s: %w", pubsub.PatternToIndex, err)
	}

	l := log.L()
	l.Info().Str("pattern", pubsub.PatternToIndex).Msg("index sync consumer started")

	go c.consumeLoop(ctx, events)
	return nil
}

// Done returns a channel that is closed when the consumer has stopped.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneCh
}

func (c *Consumer) consumeLoop(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(c.doneCh)
	l := log.L()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("index sync consumer shutting down")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			task, err := eventTask(event)
			if err != nil {
				l.Warn().Err(err).Msg("ignoring sync event")
				continue
			}
			run(context.WithoutCancel(ctx), c.exec, task, c.timeout, c.metrics)
		}
	}
}
