package indexer

import (
	"context"
	"fmt"

	"github.com/manyalawy/nawy/pkg/pubsub"
)

// TaskKind names a sync operation.
type TaskKind string

const (
	TaskSyncApartment   TaskKind = "sync_apartment"
	TaskRemoveApartment TaskKind = "remove_apartment"
	TaskSyncProject     TaskKind = "sync_project"
)

// Task is one unit of index synchronization work.
type Task struct {
	Kind TaskKind
	ID   string
}

func (t Task) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Executor runs sync tasks.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}

// Dispatcher hands sync tasks off for asynchronous execution. Dispatch never
// blocks on the search engine and never reports the task's outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task)
	// Close stops accepting tasks and waits for accepted ones to finish.
	Close() error
}

// SyncApartment returns a task that re-indexes one apartment.
func SyncApartment(id string) Task { return Task{Kind: TaskSyncApartment, ID: id} }

// RemoveApartment returns a task that removes one apartment from the index.
func RemoveApartment(id string) Task { return Task{Kind: TaskRemoveApartment, ID: id} }

// SyncProject returns a task that re-indexes every apartment of a project.
func SyncProject(id string) Task { return Task{Kind: TaskSyncProject, ID: id} }

// taskEvent maps a task to its bus channel and event.
func taskEvent(task Task) (string, *pubsub.Event, error) {
	var channel, eventType string
	switch task.Kind {
	case TaskSyncApartment:
		channel, eventType = pubsub.ApartmentToIndexChannel(task.ID), pubsub.EventApartmentUpserted
	case TaskRemoveApartment:
		channel, eventType = pubsub.ApartmentToIndexChannel(task.ID), pubsub.EventApartmentDeleted
	case TaskSyncProject:
		channel, eventType = pubsub.ProjectToIndexChannel(task.ID), pubsub.EventProjectUpdated
	default:
		return "", nil, fmt.Errorf("unknown task kind: %s", task.Kind)
	}

	event, err := pubsub.NewEvent(eventType, task.ID, nil)
	if err != nil {
		return "", nil, err
	}
	return channel, event, nil
}

// eventTask maps a bus event back to its task.
func eventTask(event *pubsub.Event) (Task, error) {
	if event.Key == "" {
		return Task{}, fmt.Errorf("event %s has no key", event.Type)
	}
	switch event.Type {
	case pubsub.EventApartmentUpserted:
		return SyncApartment(event.Key), nil
	case pubsub.EventApartmentDeleted:
		return RemoveApartment(event.Key), nil
	case pubsub.EventProjectUpdated:
		return SyncProject(event.Key), nil
	default:
		return Task{}, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
