package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/manyalawy/nawy/apartment-service/internal/metrics"
	"github.com/manyalawy/nawy/pkg/log"
	"github.com/manyalawy/nawy/pkg/pubsub"
)

// LocalConfig configures the in-process dispatcher.
type LocalConfig struct {
	Workers     int           `mapstructure:"workers"`
	QueueSize   int           `mapstructure:"queue_size"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

type job struct {
	ctx  context.Context
	task Task
}

// LocalDispatcher runs tasks on a fixed pool of worker goroutines. Each
// worker owns a bounded queue and a task goes to the worker picked by the
// hash of its id, so tasks for one entity run in dispatch order. When that
// queue is full the task is dropped; the next full reindex repairs what it
// would have written.
type LocalDispatcher struct {
	exec    Executor
	cfg     LocalConfig
	metrics *metrics.Registry

	mu     sync.RWMutex
	closed bool
	queues []chan job
	wg     sync.WaitGroup
}

var _ Dispatcher = (*LocalDispatcher)(nil)

// NewLocalDispatcher creates the dispatcher and starts its workers.
func NewLocalDispatcher(exec Executor, cfg LocalConfig, m *metrics.Registry) *LocalDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}

	// QueueSize is split across the per-worker queues.
	perWorker := (cfg.QueueSize + cfg.Workers - 1) / cfg.Workers

	d := &LocalDispatcher{
		exec:    exec,
		cfg:     cfg,
		metrics: m,
		queues:  make([]chan job, cfg.Workers),
	}
	for i := range d.queues {
		d.queues[i] = make(chan job, perWorker)
		d.wg.Add(1)
		go d.worker(d.queues[i])
	}
	return d
}

// Dispatch enqueues the task without waiting. The task keeps the request
// logger of ctx but not its cancellation.
func (d *LocalDispatcher) Dispatch(ctx context.Context, task Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	l := log.Ctx(ctx)
	if d.closed {
		l.Warn().Str(log.FieldSyncTask, task.String()).Msg("sync dispatcher closed, dropping task")
		d.dropped()
		return
	}

	select {
	case d.queueFor(task) <- job{ctx: log.Detach(ctx), task: task}:
		if d.metrics != nil {
			d.metrics.SyncQueueDepth.Inc()
		}
	default:
		l.Warn().Str(log.FieldSyncTask, task.String()).Msg("sync queue full, dropping task")
		d.dropped()
	}
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (d *LocalDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *LocalDispatcher) queueFor(task Task) chan job {
	return d.queues[xxhash.Sum64String(task.ID)%uint64(len(d.queues))]
}

func (d *LocalDispatcher) worker(queue <-chan job) {
	defer d.wg.Done()
	for j := range queue {
		if d.metrics != nil {
			d.metrics.SyncQueueDepth.Dec()
		}
		run(j.ctx, d.exec, j.task, d.cfg.TaskTimeout, d.metrics)
	}
}

func (d *LocalDispatcher) dropped() {
	if d.metrics != nil {
		d.metrics.SyncDropped.Inc()
	}
}

// run executes one task under a timeout and records its outcome.
func run(ctx context.Context, exec Executor, task Task, timeout time.Duration, m *metrics.Registry) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := log.Ctx(ctx)
	result := metrics.ResultOK
	if err := exec.Execute(ctx, task); err != nil {
		result = metrics.ResultError
		l.Error().Err(err).Str(log.FieldSyncTask, task.String()).Msg("sync task failed")
	} else {
		l.Debug().Str(log.FieldSyncTask, task.String()).Msg("sync task done")
	}
	if m != nil {
		m.SyncTasks.WithLabelValues(string(task.Kind), result).Inc()
	}
}

// BusDispatcher publishes tasks to the event bus for a Consumer, possibly in
// another process, to execute.
type BusDispatcher struct {
	pub     pubsub.Publisher
	timeout time.Duration
	metrics *metrics.Registry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Dispatcher = (*BusDispatcher)(nil)

// NewBusDispatcher creates a dispatcher publishing on pub. Each publish is
// bounded by timeout.
func NewBusDispatcher(pub pubsub.Publisher, timeout time.Duration, m *metrics.Registry) *BusDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BusDispatcher{pub: pub, timeout: timeout, metrics: m}
}

// Dispatch publishes the task in the background.
func (d *BusDispatcher) Dispatch(ctx context.Context, task Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	l := log.Ctx(ctx)
	if d.closed {
		l.Warn().Str(log.FieldSyncTask, task.String()).Msg("sync dispatcher closed, dropping task")
		if d.metrics != nil {
			d.metrics.SyncDropped.Inc()
		}
		return
	}

	channel, event, err := taskEvent(task)
	if err != nil {
		l.Error().Err(err).Str(log.FieldSyncTask, task.String()).Msg("failed to build sync event")
		return
	}

	d.wg.Add(1)
	go func(ctx context.Context) {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.pub.Publish(ctx, channel, event); err != nil {
			l.Error().Err(err).Str(log.FieldSyncTask, task.String()).Msg("failed to publish sync event")
			if d.metrics != nil {
				d.metrics.SyncDropped.Inc()
			}
		}
	}(log.Detach(ctx))
}

// Close waits for in-flight publishes.
func (d *BusDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}
