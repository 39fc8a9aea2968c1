// Package engine owns the authoritative workout list and keeps it in step
// with the map markers and the persisted snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/events"
	"github.com/barbizo19/mapty/internal/geolocation"
	"github.com/barbizo19/mapty/internal/mapview"
	"github.com/barbizo19/mapty/internal/markers"
	"github.com/barbizo19/mapty/internal/observability"
)

// DefaultZoom is the map zoom used on start and when focusing a workout.
const DefaultZoom = 13

// DefaultGeocodeTimeout bounds a single location label lookup.
const DefaultGeocodeTimeout = 5 * time.Second

var (
	// ErrUnknownSortField is returned by SortBy for fields other than distance and duration.
	ErrUnknownSortField = errors.New("unknown sort field")
	// ErrNotEditing is returned when saving a workout that is not in the editing state.
	ErrNotEditing = errors.New("workout is not being edited")
	// ErrUnknownAction is returned by Dispatch for unrecognised action types.
	ErrUnknownAction = errors.New("unknown action")
)

// Codec persists the full workout list.
type Codec interface {
	Save(ctx context.Context, workouts []domain.Workout) error
	Load(ctx context.Context) ([]domain.Workout, error)
	Clear(ctx context.Context) error
}

// Map is the map widget the manager draws on.
type Map interface {
	CreateMarker(coords domain.Coordinates, popup markers.Popup) (markers.Handle, error)
	RemoveMarker(h markers.Handle)
	SetView(coords domain.Coordinates, zoom int)
	FitBounds(handles []markers.Handle)
}

// Locator reports the user's current position.
type Locator interface {
	CurrentPosition(ctx context.Context) (domain.Coordinates, error)
}

// Geocoder resolves coordinates to a place name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.Place, error)
}

// Option configures optional collaborators of the Manager.
type Option func(*Manager)

// WithMap sets the map widget. Defaults to a headless mapview.Canvas.
func WithMap(m Map) Option {
	return func(mgr *Manager) {
		mgr.mapper = m
	}
}

// WithGeocoder enables location labels.
func WithGeocoder(g Geocoder) Option {
	return func(mgr *Manager) {
		mgr.geocoder = g
	}
}

// WithGeocodeTimeout overrides DefaultGeocodeTimeout.
func WithGeocodeTimeout(d time.Duration) Option {
	return func(mgr *Manager) {
		if d > 0 {
			mgr.geocodeTimeout = d
		}
	}
}

// WithLocator sets the position source used by Start.
func WithLocator(l Locator) Option {
	return func(mgr *Manager) {
		mgr.locator = l
	}
}

// WithPublisher sets the change feed.
func WithPublisher(p events.Publisher) Option {
	return func(mgr *Manager) {
		mgr.publisher = p
	}
}

// WithLogger overrides the logger used to report background failures.
func WithLogger(logger *log.Logger) Option {
	return func(mgr *Manager) {
		mgr.logger = logger
	}
}

// WithZoom overrides DefaultZoom.
func WithZoom(zoom int) Option {
	return func(mgr *Manager) {
		if zoom > 0 {
			mgr.zoom = zoom
		}
	}
}

// Entry is a workout as rendered in the list.
type Entry struct {
	Workout  domain.Workout
	Location string
	Editing  bool
}

// Manager serialises every mutation behind one mutex. Returned workouts are
// copies; the manager is the only writer of its records.
type Manager struct {
	codec          Codec
	mapper         Map
	geocoder       Geocoder
	geocodeTimeout time.Duration
	locator        Locator
	publisher      events.Publisher
	logger         *log.Logger
	zoom           int

	mu       sync.Mutex
	workouts []domain.Workout
	index    *markers.Index
	pending  *domain.Coordinates
	editing  map[string]bool
	labels   map[string]string
	lookups  map[string]*lookup
	mapReady bool
	// ids in the order last written to storage
	saved []string

	wg sync.WaitGroup
}

// New constructs a Manager persisting through codec.
func New(codec Codec, opts ...Option) *Manager {
	m := &Manager{
		codec:          codec,
		mapper:         mapview.NewCanvas(),
		geocodeTimeout: DefaultGeocodeTimeout,
		locator:        geolocation.Unavailable(),
		publisher:      events.Noop{},
		logger:         log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lshortfile),
		zoom:           DefaultZoom,
		workouts:       []domain.Workout{},
		index:          markers.NewIndex(),
		editing:        make(map[string]bool),
		labels:         make(map[string]string),
		lookups:        make(map[string]*lookup),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open replaces the in-memory list with the persisted one, draws a marker
// per workout and starts the label lookups. A corrupt snapshot fails the open
// and is left untouched.
func (m *Manager) Open(ctx context.Context) (err error) {
	defer func() { observability.RecordOperation("open", err) }()

	loaded, err := m.codec.Load(ctx)
	if err != nil {
		return fmt.Errorf("load workouts: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLookupsLocked()
	for _, h := range m.index.Clear() {
		m.mapper.RemoveMarker(h)
	}
	m.workouts = loaded
	m.saved = workoutIDs(loaded)
	m.pending = nil
	m.editing = make(map[string]bool)
	m.labels = make(map[string]string)
	for _, w := range loaded {
		m.scheduleLabelLocked(w)
	}
	m.renderMarkersLocked()
	observability.SetWorkoutCount(len(m.workouts))
	return nil
}

// Start centres the map on the current position and redraws any marker that
// failed to render earlier. When the position is unavailable the map stays
// uninitialised, and markers and list stay in step.
func (m *Manager) Start(ctx context.Context) (err error) {
	defer func() { observability.RecordOperation("start", err) }()

	pos, err := m.locator.CurrentPosition(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrPositionUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.mapper.SetView(pos, m.zoom)
	m.mapReady = true
	m.renderMarkersLocked()
	return nil
}

// MapReady reports whether Start has initialised the map.
func (m *Manager) MapReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapReady
}

// Close cancels outstanding label lookups and waits for them to return.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelLookupsLocked()
	m.mu.Unlock()
	m.wg.Wait()
}

// renderMarkersLocked draws markers for workouts that have none yet.
func (m *Manager) renderMarkersLocked() {
	for _, w := range m.workouts {
		base := w.Base()
		if _, ok := m.index.Handle(base.ID); ok {
			continue
		}
		h, err := m.mapper.CreateMarker(base.Coordinates, markers.PopupFor(w))
		if err != nil {
			m.logger.Printf("render marker for workout %s: %v", base.ID, err)
			continue
		}
		m.index.Add(base.ID, base.Coordinates, h)
	}
}

// indexOfLocked returns the position of id in the list, or -1.
func (m *Manager) indexOfLocked(id string) int {
	for i, w := range m.workouts {
		if w.Base().ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) findLocked(id string) (domain.Workout, error) {
	i := m.indexOfLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkoutNotFound, id)
	}
	return m.workouts[i], nil
}

// persistLocked writes workouts in the order last saved, so an unsaved sort
// stays out of storage. Workouts not saved before go last, in list order.
func (m *Manager) persistLocked(ctx context.Context, workouts []domain.Workout) error {
	return m.writeLocked(ctx, m.inSavedOrderLocked(workouts))
}

func (m *Manager) writeLocked(ctx context.Context, workouts []domain.Workout) error {
	if err := m.codec.Save(ctx, workouts); err != nil {
		return fmt.Errorf("persist workouts: %w", err)
	}
	m.saved = workoutIDs(workouts)
	observability.RecordPersisted(time.Now())
	return nil
}

func (m *Manager) inSavedOrderLocked(workouts []domain.Workout) []domain.Workout {
	byID := make(map[string]domain.Workout, len(workouts))
	for _, w := range workouts {
		byID[w.Base().ID] = w
	}
	ordered := make([]domain.Workout, 0, len(workouts))
	for _, id := range m.saved {
		if w, ok := byID[id]; ok {
			ordered = append(ordered, w)
			delete(byID, id)
		}
	}
	for _, w := range workouts {
		if _, ok := byID[w.Base().ID]; ok {
			ordered = append(ordered, w)
		}
	}
	return ordered
}

func workoutIDs(workouts []domain.Workout) []string {
	ids := make([]string, len(workouts))
	for i, w := range workouts {
		ids[i] = w.Base().ID
	}
	return ids
}

func (m *Manager) publish(ctx context.Context, evt events.Event) {
	if err := m.publisher.Publish(ctx, evt); err != nil {
		m.logger.Printf("publish %s (workout=%s): %v", evt.EventType, evt.WorkoutID, err)
	}
}

// lookup is one in-flight label resolution.
type lookup struct {
	cancel context.CancelFunc
}

// scheduleLabelLocked resolves the location label of w in the background.
// The result is applied only while the lookup is still registered, so
// deleted or reset workouts never receive a stale label.
func (m *Manager) scheduleLabelLocked(w domain.Workout) {
	if m.geocoder == nil {
		return
	}
	id, coords := w.Base().ID, w.Base().Coordinates
	m.cancelLookupLocked(id)

	ctx, cancel := context.WithTimeout(context.Background(), m.geocodeTimeout)
	l := &lookup{cancel: cancel}
	m.lookups[id] = l
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		place, err := m.geocoder.ReverseGeocode(ctx, coords)

		m.mu.Lock()
		defer m.mu.Unlock()

		if m.lookups[id] != l {
			return
		}
		delete(m.lookups, id)
		if m.indexOfLocked(id) < 0 {
			return
		}
		if err != nil {
			observability.RecordGeocodeFailure()
			m.logger.Printf("resolve location for workout %s: %v", id, err)
			return
		}
		m.labels[id] = place.Label()
	}()
}

func (m *Manager) cancelLookupLocked(id string) {
	if l, ok := m.lookups[id]; ok {
		l.cancel()
		delete(m.lookups, id)
	}
}

func (m *Manager) cancelLookupsLocked() {
	for id, l := range m.lookups {
		l.cancel()
		delete(m.lookups, id)
	}
}
