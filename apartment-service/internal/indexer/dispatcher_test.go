package indexer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyalawy/nawy/apartment-service/internal/indexer"
	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/pkg/pubsub"
)

// recorder is an Executor that records the tasks it runs. When gate is set,
// each task reports on started and waits for gate to close.
type recorder struct {
	mu      sync.Mutex
	tasks   []indexer.Task
	err     error
	started chan indexer.Task
	gate    chan struct{}
}

func (r *recorder) Execute(ctx context.Context, task indexer.Task) error {
	if r.gate != nil {
		r.started <- task
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return r.err
}

func (r *recorder) Tasks() []indexer.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]indexer.Task(nil), r.tasks...)
}

func TestLocalDispatcher_RunsTasks(t *testing.T) {
	rec := &recorder{}
	m := metrics.NewRegistry()
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{Workers: 2, QueueSize: 8}, m)

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	d.Dispatch(context.Background(), indexer.RemoveApartment("a2"))
	d.Dispatch(context.Background(), indexer.SyncProject("p1"))
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []indexer.Task{
		indexer.SyncApartment("a1"),
		indexer.RemoveApartment("a2"),
		indexer.SyncProject("p1"),
	}, rec.Tasks())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncTasks.WithLabelValues(string(indexer.TaskSyncApartment), metrics.ResultOK)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SyncQueueDepth))
}

func TestLocalDispatcher_FailureIsOnlyCounted(t *testing.T) {
	rec := &recorder{err: errors.New("engine down")}
	m := metrics.NewRegistry()
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{Workers: 1}, m)

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	require.NoError(t, d.Close())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncTasks.WithLabelValues(string(indexer.TaskSyncApartment), metrics.ResultError)))
}

func TestLocalDispatcher_DropsWhenQueueFull(t *testing.T) {
	rec := &recorder{started: make(chan indexer.Task, 4), gate: make(chan struct{})}
	m := metrics.NewRegistry()
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{Workers: 1, QueueSize: 1}, m)

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	select {
	case <-rec.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first task")
	}

	d.Dispatch(context.Background(), indexer.SyncApartment("a2")) // queued
	d.Dispatch(context.Background(), indexer.SyncApartment("a3")) // dropped
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncDropped))

	close(rec.gate)
	require.NoError(t, d.Close())
	assert.Equal(t, []indexer.Task{indexer.SyncApartment("a1"), indexer.SyncApartment("a2")}, rec.Tasks())
}

func TestLocalDispatcher_KeepsOrderPerID(t *testing.T) {
	rec := &recorder{started: make(chan indexer.Task, 8), gate: make(chan struct{})}
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{Workers: 4, QueueSize: 16}, nil)

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	select {
	case <-rec.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the sync task")
	}

	// The removal waits behind the blocked sync even with idle workers.
	d.Dispatch(context.Background(), indexer.RemoveApartment("a1"))
	select {
	case task := <-rec.started:
		t.Fatalf("%s started before the earlier task for the same id finished", task)
	case <-time.After(100 * time.Millisecond):
	}

	close(rec.gate)
	require.NoError(t, d.Close())
	assert.Equal(t, []indexer.Task{indexer.SyncApartment("a1"), indexer.RemoveApartment("a1")}, rec.Tasks())
}

func TestLocalDispatcher_DispatchAfterClose(t *testing.T) {
	rec := &recorder{}
	m := metrics.NewRegistry()
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{}, m)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	assert.Empty(t, rec.Tasks())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncDropped))
}

func TestLocalDispatcher_DetachesFromRequest(t *testing.T) {
	rec := &recorder{}
	d := indexer.NewLocalDispatcher(rec, indexer.LocalConfig{Workers: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, indexer.SyncApartment("a1"))
	cancel()
	require.NoError(t, d.Close())

	assert.Equal(t, []indexer.Task{indexer.SyncApartment("a1")}, rec.Tasks())
}

type published struct {
	channel string
	event   *pubsub.Event
}

// fakeBus is an in-memory pubsub.PubSub delivering every publish to every
// pattern subscriber.
type fakeBus struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	subs       []chan *pubsub.Event
}

func (b *fakeBus) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{channel: channel, event: event})
	for _, ch := range b.subs {
		ch <- event
	}
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan *pubsub.Event, error) {
	return b.SubscribePattern(ctx, channel)
}

func (b *fakeBus) SubscribePattern(ctx context.Context, pattern string) (<-chan *pubsub.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *pubsub.Event, 16)
	b.subs = append(b.subs, ch)
	return ch, nil
}

func (b *fakeBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *fakeBus) Published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

func TestBusDispatcher_PublishesTasks(t *testing.T) {
	bus := &fakeBus{}
	d := indexer.NewBusDispatcher(bus, time.Second, nil)

	d.Dispatch(context.Background(), indexer.SyncApartment("a1"))
	d.Dispatch(context.Background(), indexer.SyncProject("p1"))
	require.NoError(t, d.Close())

	got := map[string]string{}
	for _, p := range bus.Published() {
		got[p.channel] = p.event.Type
		assert.NotEmpty(t, p.event.Key)
	}
	assert.Equal(t, map[string]string{
		"sync:apartment:a1:to_index": pubsub.EventApartmentUpserted,
		"sync:project:p1:to_index":   pubsub.EventProjectUpdated,
	}, got)
}

func TestBusDispatcher_PublishFailureIsCounted(t *testing.T) {
	bus := &fakeBus{publishErr: errors.New("broker down")}
	m := metrics.NewRegistry()
	d := indexer.NewBusDispatcher(bus, time.Second, m)

	d.Dispatch(context.Background(), indexer.RemoveApartment("a1"))
	require.NoError(t, d.Close())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SyncDropped))
}

func TestConsumer_ExecutesBusTasks(t *testing.T) {
	bus := &fakeBus{}
	rec := &recorder{}
	consumer := indexer.NewConsumer(bus, rec, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, consumer.Start(ctx))

	d := indexer.NewBusDispatcher(bus, time.Second, nil)
	d.Dispatch(ctx, indexer.SyncApartment("a1"))
	d.Dispatch(ctx, indexer.RemoveApartment("a2"))
	require.NoError(t, d.Close())

	// Malformed events are skipped.
	bus.subs[0] <- &pubsub.Event{Type: "unknown", Key: "x"}
	bus.subs[0] <- &pubsub.Event{Type: pubsub.EventApartmentUpserted}

	require.Eventually(t, func() bool { return len(rec.Tasks()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-consumer.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.ElementsMatch(t, []indexer.Task{indexer.SyncApartment("a1"), indexer.RemoveApartment("a2")}, rec.Tasks())
}
