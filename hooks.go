package fitler

import (
	"sync"

	"github.com/ckdake/fitler/pkg/activities"
)

// Hook function types for record events
type (
	// RecordCreatedHook is called after a sync commits a new record
	RecordCreatedHook func(rec activities.Record)

	// RecordUpdatedHook is called after a sync commits a changed record
	RecordUpdatedHook func(old, new activities.Record)

	// RecordDeletedHook is called after a reset deletes a record
	RecordDeletedHook func(id int64)
)

// hooks manages event callbacks for record changes
type hooks struct {
	mu              sync.RWMutex
	onRecordCreated []RecordCreatedHook
	onRecordUpdated []RecordUpdatedHook
	onRecordDeleted []RecordDeletedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnRecordCreated registers a callback for when records are created
func (h *hooks) OnRecordCreated(fn RecordCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecordCreated = append(h.onRecordCreated, fn)
}

// OnRecordUpdated registers a callback for when records are updated
func (h *hooks) OnRecordUpdated(fn RecordUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecordUpdated = append(h.onRecordUpdated, fn)
}

// OnRecordDeleted registers a callback for when records are deleted
func (h *hooks) OnRecordDeleted(fn RecordDeletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecordDeleted = append(h.onRecordDeleted, fn)
}

// triggerCommitted fires created or updated hooks for committed writes.
// Previous is nil for new records.
func (h *hooks) triggerCommitted(rec activities.Record, previous *activities.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if previous == nil {
		for _, hook := range h.onRecordCreated {
			hook(rec.Clone())
		}
		return
	}
	for _, hook := range h.onRecordUpdated {
		hook(previous.Clone(), rec.Clone())
	}
}

// triggerDeleted fires deleted hooks for each id.
func (h *hooks) triggerDeleted(ids []int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range ids {
		for _, hook := range h.onRecordDeleted {
			hook(id)
		}
	}
}
