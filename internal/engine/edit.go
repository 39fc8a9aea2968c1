package engine

import (
	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/observability"
)

// BeginEdit moves the workout into the editing state and returns the values
// to pre-fill the edit form with.
func (m *Manager) BeginEdit(id string) (metrics domain.Metrics, err error) {
	defer func() { observability.RecordOperation("begin_edit", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.findLocked(id)
	if err != nil {
		return domain.Metrics{}, err
	}
	m.editing[id] = true
	return w.Metrics(), nil
}

// CancelEdit abandons an edit and returns the workout to the display state
// without changing it. Cancelling a workout that is not being edited is a
// no-op.
func (m *Manager) CancelEdit(id string) (err error) {
	defer func() { observability.RecordOperation("cancel_edit", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findLocked(id); err != nil {
		return err
	}
	delete(m.editing, id)
	return nil
}

// Editing reports whether the workout is in the editing state.
func (m *Manager) Editing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editing[id]
}
