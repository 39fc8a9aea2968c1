// Package mapview keeps a headless model of the map widget: the current
// view and the markers drawn on it. The HTTP API serves its snapshot to the
// browser, which mirrors it onto the real map.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/markers"
)

// ErrInvalidCoordinates is returned when a marker is placed outside the globe.
var ErrInvalidCoordinates = errors.New("mapview: coordinates out of range")

// MarkerID identifies a marker drawn on a Canvas.
type MarkerID int64

// Marker is a drawn marker as seen in a snapshot.
type Marker struct {
	ID    MarkerID      `json:"id"`
	Lat   float64       `json:"lat"`
	Lng   float64       `json:"lng"`
	Popup markers.Popup `json:"popup"`
}

// Bounds is the south-west / north-east box of a fit-bounds request.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// View is a point-in-time copy of the canvas state.
type View struct {
	Initialised bool     `json:"initialised"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Zoom        int      `json:"zoom"`
	Bounds      *Bounds  `json:"bounds,omitempty"`
	Markers     []Marker `json:"markers"`
}

// Canvas is safe for concurrent use.
type Canvas struct {
	mu          sync.Mutex
	initialised bool
	center      domain.Coordinates
	zoom        int
	bounds      *Bounds
	nextID      MarkerID
	order       []MarkerID
	markers     map[MarkerID]Marker
}

// NewCanvas constructs an empty, uninitialised Canvas.
func NewCanvas() *Canvas {
	return &Canvas{markers: make(map[MarkerID]Marker)}
}

// CreateMarker draws a marker at coords with the given popup.
func (c *Canvas) CreateMarker(coords domain.Coordinates, popup markers.Popup) (markers.Handle, error) {
	if !inRange(coords) {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, coords.Lat, coords.Lng)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.markers[id] = Marker{ID: id, Lat: coords.Lat, Lng: coords.Lng, Popup: popup}
	c.order = append(c.order, id)
	return id, nil
}

// RemoveMarker erases the marker behind h. Unknown handles are ignored.
func (c *Canvas) RemoveMarker(h markers.Handle) {
	id, ok := h.(MarkerID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.markers[id]; !ok {
		return
	}
	delete(c.markers, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SetView centres the map on coords at zoom and clears any fitted bounds.
func (c *Canvas) SetView(coords domain.Coordinates, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initialised = true
	c.center = coords
	c.zoom = zoom
	c.bounds = nil
}

// FitBounds frames every marker in handles. Unknown handles are skipped and
// an empty selection leaves the view unchanged.
func (c *Canvas) FitBounds(handles []markers.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b *Bounds
	for _, h := range handles {
		id, ok := h.(MarkerID)
		if !ok {
			continue
		}
		m, ok := c.markers[id]
		if !ok {
			continue
		}
		if b == nil {
			b = &Bounds{South: m.Lat, North: m.Lat, West: m.Lng, East: m.Lng}
			continue
		}
		b.South = math.Min(b.South, m.Lat)
		b.North = math.Max(b.North, m.Lat)
		b.West = math.Min(b.West, m.Lng)
		b.East = math.Max(b.East, m.Lng)
	}
	if b == nil {
		return
	}
	c.initialised = true
	c.bounds = b
	c.center = domain.Coordinates{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// Snapshot copies the current state. Markers are listed in drawing order.
func (c *Canvas) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Initialised: c.initialised,
		Lat:         c.center.Lat,
		Lng:         c.center.Lng,
		Zoom:        c.zoom,
		Markers:     make([]Marker, 0, len(c.order)),
	}
	if c.bounds != nil {
		b := *c.bounds
		v.Bounds = &b
	}
	for _, id := range c.order {
		v.Markers = append(v.Markers, c.markers[id])
	}
	return v
}

func inRange(c domain.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
