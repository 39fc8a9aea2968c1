// Package markers tracks which map marker belongs to which workout.
package markers

import (
	"sync"

	"github.com/barbizo19/mapty/internal/domain"
)

// Handle is an opaque reference returned by the map when a marker is drawn.
type Handle any

type entry struct {
	id     string
	coords domain.Coordinates
	handle Handle
}

// Index maps record ids to marker handles and keeps insertion order so bulk
// operations visit markers the way they were placed.
type Index struct {
	mu      sync.RWMutex
	byID    map[string]int
	entries []entry
}

// NewIndex constructs an empty Index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

// Add registers handle for the record id. Re-adding an id replaces its entry.
func (x *Index) Add(id string, coords domain.Coordinates, handle Handle) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if i, ok := x.byID[id]; ok {
		x.entries[i] = entry{id: id, coords: coords, handle: handle}
		return
	}
	x.byID[id] = len(x.entries)
	x.entries = append(x.entries, entry{id: id, coords: coords, handle: handle})
}

// Handle returns the marker registered for id.
func (x *Index) Handle(id string) (Handle, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return x.entries[i].handle, true
}

// FindByCoordinates returns the first marker placed at exactly coords.
func (x *Index) FindByCoordinates(coords domain.Coordinates) (Handle, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, e := range x.entries {
		if e.coords == coords {
			return e.handle, true
		}
	}
	return nil, false
}

// Remove drops the entry for id and returns its handle.
func (x *Index) Remove(id string) (Handle, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return x.removeAt(i), true
}

// RemoveByCoordinates drops the first entry placed at exactly coords.
func (x *Index) RemoveByCoordinates(coords domain.Coordinates) (Handle, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, e := range x.entries {
		if e.coords == coords {
			return x.removeAt(i), true
		}
	}
	return nil, false
}

// caller holds x.mu.
func (x *Index) removeAt(i int) Handle {
	removed := x.entries[i]
	x.entries = append(x.entries[:i], x.entries[i+1:]...)
	delete(x.byID, removed.id)
	for j := i; j < len(x.entries); j++ {
		x.byID[x.entries[j].id] = j
	}
	return removed.handle
}

// All returns every handle in insertion order.
func (x *Index) All() []Handle {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Handle, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e.handle)
	}
	return out
}

// Len reports the number of registered markers.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Clear empties the index and returns the handles it held, in insertion order.
func (x *Index) Clear() []Handle {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]Handle, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e.handle)
	}
	x.entries = nil
	x.byID = make(map[string]int)
	return out
}
