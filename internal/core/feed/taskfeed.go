// Package feed mirrors the active transfer list from the ledger's change
// stream so task views never need a full reload.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/port"
)

// TaskFeed is an ordered in-memory mirror of active (pending or in_transit)
// transfer tasks. Applying an event is idempotent and keyed by task id, so
// duplicate or out-of-order deliveries converge on the same list.
type TaskFeed struct {
	mu    sync.Mutex
	tasks []domain.TransferTask
}

func New() *TaskFeed {
	return &TaskFeed{}
}

// Bootstrap seeds the feed from a ledger scan, replacing any prior contents.
func (f *TaskFeed) Bootstrap(tasks []domain.TransferTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks[:0:0], tasks...)
}

// Apply folds one ledger change into the list:
// a delivered task is removed; a new insert is prepended unless already known;
// any other update replaces the existing entry in place. An update for an
// unknown id raced ahead of its insert and counts as the first sighting.
func (f *TaskFeed) Apply(ev domain.TaskEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ev.Task.Status == domain.TransferDelivered {
		f.remove(ev.Task.ID)
		return
	}

	i := f.indexOf(ev.Task.ID)
	switch {
	case ev.Type == domain.EventInsert && i >= 0:
		// duplicate delivery
	case ev.Type == domain.EventInsert:
		f.prepend(ev.Task)
	case i >= 0:
		f.tasks[i] = ev.Task
	default:
		f.prepend(ev.Task)
	}
}

// Run consumes the bus subscription until the context ends or the channel
// closes.
func (f *TaskFeed) Run(ctx context.Context, bus port.EventBus) error {
	events, unsubscribe, err := bus.SubscribeTaskEvents(ctx)
	if err != nil {
		return fmt.Errorf("subscribe task events: %w", err)
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.Apply(ev)
		}
	}
}

// Snapshot returns a copy of the current list, newest first.
func (f *TaskFeed) Snapshot() []domain.TransferTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TransferTask(nil), f.tasks...)
}

func (f *TaskFeed) indexOf(id string) int {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *TaskFeed) prepend(task domain.TransferTask) {
	f.tasks = append([]domain.TransferTask{task}, f.tasks...)
}

func (f *TaskFeed) remove(id string) {
	if i := f.indexOf(id); i >= 0 {
		f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	}
}
