package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/events"
	"github.com/barbizo19/mapty/internal/markers"
	"github.com/barbizo19/mapty/internal/observability"
)

// SortField names a sortable workout field.
type SortField string

const (
	SortByDistance SortField = "distance"
	SortByDuration SortField = "duration"
)

// BeginPlacement records where the next workout will be placed, replacing
// any earlier pending placement.
func (m *Manager) BeginPlacement(coords domain.Coordinates) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := coords
	m.pending = &c
}

// PendingPlacement returns the pending placement, if any.
func (m *Manager) PendingPlacement() (domain.Coordinates, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return domain.Coordinates{}, false
	}
	return *m.pending, true
}

// CreateWorkout builds a workout at the pending placement. On any failure the
// list, the markers and the pending placement are left as they were.
func (m *Manager) CreateWorkout(ctx context.Context, kind domain.Kind, metrics domain.Metrics) (created domain.Workout, err error) {
	defer func() { observability.RecordOperation("create", err) }()

	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return nil, domain.ErrNoPendingPlacement
	}
	if err := domain.Validate(kind, metrics); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	w, err := domain.New(kind, *m.pending, metrics)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	base := w.Base()
	handle, err := m.mapper.CreateMarker(base.Coordinates, markers.PopupFor(w))
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("create marker: %w", err)
	}

	next := make([]domain.Workout, len(m.workouts), len(m.workouts)+1)
	copy(next, m.workouts)
	next = append(next, w)
	if err := m.persistLocked(ctx, next); err != nil {
		m.mapper.RemoveMarker(handle)
		m.mu.Unlock()
		return nil, err
	}

	m.workouts = next
	m.index.Add(base.ID, base.Coordinates, handle)
	m.pending = nil
	m.scheduleLabelLocked(w)
	observability.SetWorkoutCount(len(m.workouts))
	created = domain.Clone(w)
	evt := events.NewWorkoutEvent(events.TypeWorkoutCreated, w)
	m.mu.Unlock()

	m.publish(ctx, evt)
	return created, nil
}

// EditWorkout replaces the editable values of the workout with id. The edit
// is all-or-nothing: invalid input or a failed save leaves the stored values
// untouched. A successful edit returns the workout to the display state.
func (m *Manager) EditWorkout(ctx context.Context, id string, metrics domain.Metrics) (updated domain.Workout, err error) {
	defer func() { observability.RecordOperation("edit", err) }()

	m.mu.Lock()
	w, evt, err := m.editLocked(ctx, id, metrics)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.publish(ctx, evt)
	return w, nil
}

// SaveEdit commits metrics for a workout previously opened with BeginEdit.
func (m *Manager) SaveEdit(ctx context.Context, id string, metrics domain.Metrics) (updated domain.Workout, err error) {
	defer func() { observability.RecordOperation("save", err) }()

	m.mu.Lock()
	if _, err := m.findLocked(id); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !m.editing[id] {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotEditing, id)
	}
	w, evt, err := m.editLocked(ctx, id, metrics)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.publish(ctx, evt)
	return w, nil
}

func (m *Manager) editLocked(ctx context.Context, id string, metrics domain.Metrics) (domain.Workout, events.Event, error) {
	w, err := m.findLocked(id)
	if err != nil {
		return nil, events.Event{}, err
	}

	previous := w.Metrics()
	if err := domain.Apply(w, metrics); err != nil {
		return nil, events.Event{}, err
	}
	if err := m.persistLocked(ctx, m.workouts); err != nil {
		if restoreErr := domain.Apply(w, previous); restoreErr != nil {
			m.logger.Printf("restore workout %s after failed save: %v", id, restoreErr)
		}
		return nil, events.Event{}, err
	}

	delete(m.editing, id)
	return domain.Clone(w), events.NewWorkoutEvent(events.TypeWorkoutUpdated, w), nil
}

// DeleteWorkout removes the workout with id together with its marker and any
// in-flight label lookup.
func (m *Manager) DeleteWorkout(ctx context.Context, id string) (err error) {
	defer func() { observability.RecordOperation("delete", err) }()

	m.mu.Lock()
	i := m.indexOfLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrWorkoutNotFound, id)
	}

	next := make([]domain.Workout, 0, len(m.workouts)-1)
	next = append(next, m.workouts[:i]...)
	next = append(next, m.workouts[i+1:]...)
	if err := m.persistLocked(ctx, next); err != nil {
		m.mu.Unlock()
		return err
	}

	m.workouts = next
	if h, ok := m.index.Remove(id); ok {
		m.mapper.RemoveMarker(h)
	}
	m.cancelLookupLocked(id)
	delete(m.labels, id)
	delete(m.editing, id)
	observability.SetWorkoutCount(len(m.workouts))
	m.mu.Unlock()

	m.publish(ctx, events.NewDeletedEvent(id))
	return nil
}

// SortBy reorders the list ascending by field. Equal keys keep their
// relative order. The new order is not persisted, and later writes keep the
// stored order until Save is called.
func (m *Manager) SortBy(field SortField) (err error) {
	defer func() { observability.RecordOperation("sort", err) }()

	var key func(domain.Workout) float64
	switch field {
	case SortByDistance:
		key = func(w domain.Workout) float64 { return w.Base().DistanceKm }
	case SortByDuration:
		key = func(w domain.Workout) float64 { return w.Base().DurationMin }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSortField, field)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.workouts, func(i, j int) bool {
		return key(m.workouts[i]) < key(m.workouts[j])
	})
	return nil
}

// Save persists the list in its current order.
func (m *Manager) Save(ctx context.Context) (err error) {
	defer func() { observability.RecordOperation("save_order", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(ctx, m.workouts)
}

// FocusWorkout counts a visit to the workout, centres the map on it when the
// map is initialised, and returns its coordinates. The updated count is
// saved best-effort in the stored order.
func (m *Manager) FocusWorkout(ctx context.Context, id string) (coords domain.Coordinates, err error) {
	defer func() { observability.RecordOperation("focus", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.findLocked(id)
	if err != nil {
		return domain.Coordinates{}, err
	}
	w.RecordInteraction()
	coords = w.Base().Coordinates
	if m.mapReady {
		m.mapper.SetView(coords, m.zoom)
	}
	if err := m.persistLocked(ctx, m.workouts); err != nil {
		m.logger.Printf("save interaction count for workout %s: %v", id, err)
	}
	return coords, nil
}

// ShowAll fits the map to every marker. It does nothing without markers.
func (m *Manager) ShowAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles := m.index.All()
	if len(handles) == 0 {
		return
	}
	m.mapper.FitBounds(handles)
}

// Reset clears storage first and then every piece of in-memory state. A
// storage failure leaves everything untouched.
func (m *Manager) Reset(ctx context.Context) (err error) {
	defer func() { observability.RecordOperation("reset", err) }()

	m.mu.Lock()
	if err := m.codec.Clear(ctx); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("clear workouts: %w", err)
	}
	for _, h := range m.index.Clear() {
		m.mapper.RemoveMarker(h)
	}
	m.cancelLookupsLocked()
	m.workouts = []domain.Workout{}
	m.saved = nil
	m.pending = nil
	m.editing = make(map[string]bool)
	m.labels = make(map[string]string)
	observability.SetWorkoutCount(0)
	m.mu.Unlock()

	m.publish(ctx, events.NewResetEvent())
	return nil
}

// Workouts returns copies of the workouts in list order.
func (m *Manager) Workouts() []domain.Workout {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Workout, 0, len(m.workouts))
	for _, w := range m.workouts {
		out = append(out, domain.Clone(w))
	}
	return out
}

// Workout returns a copy of the workout with id.
func (m *Manager) Workout(id string) (domain.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.findLocked(id)
	if err != nil {
		return nil, err
	}
	return domain.Clone(w), nil
}

// Entries returns the rendered list: each workout with its location label
// and edit state.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.workouts))
	for _, w := range m.workouts {
		id := w.Base().ID
		out = append(out, Entry{
			Workout:  domain.Clone(w),
			Location: m.labels[id],
			Editing:  m.editing[id],
		})
	}
	return out
}

// MarkerCount reports how many markers are registered.
func (m *Manager) MarkerCount() int {
	return m.index.Len()
}
