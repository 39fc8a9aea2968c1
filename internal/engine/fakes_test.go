package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/events"
	"github.com/barbizo19/mapty/internal/markers"
	"github.com/barbizo19/mapty/internal/persistence"
	"github.com/barbizo19/mapty/internal/persistence/memory"
)

var errStoreDown = errors.New("store down")

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

// flakyStore wraps the in-memory store with switchable failures.
type flakyStore struct {
	*memory.Store

	mu         sync.Mutex
	failSet    bool
	failDelete bool
	sets       int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.NewStore()}
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSet
	s.sets++
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.Store.Set(ctx, key, value)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.failDelete
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.Store.Delete(ctx, key)
}

func (s *flakyStore) setFailures(set, del bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = set
	s.failDelete = del
}

type drawnMarker struct {
	coords domain.Coordinates
	popup  markers.Popup
}

type view struct {
	coords domain.Coordinates
	zoom   int
}

type fakeMap struct {
	mu        sync.Mutex
	next      int
	drawn     map[int]drawnMarker
	removed   []int
	views     []view
	fits      [][]markers.Handle
	createErr error
}

func newFakeMap() *fakeMap {
	return &fakeMap{drawn: make(map[int]drawnMarker)}
}

func (f *fakeMap) CreateMarker(coords domain.Coordinates, popup markers.Popup) (markers.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.next++
	f.drawn[f.next] = drawnMarker{coords: coords, popup: popup}
	return f.next, nil
}

func (f *fakeMap) RemoveMarker(h markers.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := h.(int)
	delete(f.drawn, id)
	f.removed = append(f.removed, id)
}

func (f *fakeMap) SetView(coords domain.Coordinates, zoom int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view{coords: coords, zoom: zoom})
}

func (f *fakeMap) FitBounds(handles []markers.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fits = append(f.fits, handles)
}

func (f *fakeMap) markerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drawn)
}

func (f *fakeMap) lastView() (view, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.views) == 0 {
		return view{}, false
	}
	return f.views[len(f.views)-1], true
}

type fakeLocator struct {
	coords domain.Coordinates
	err    error
}

func (f fakeLocator) CurrentPosition(context.Context) (domain.Coordinates, error) {
	return f.coords, f.err
}

// fakeGeocoder answers from places, or blocks until release is closed when
// it is set.
type fakeGeocoder struct {
	places  map[domain.Coordinates]domain.Place
	err     error
	release chan struct{}

	mu       sync.Mutex
	calls    int
	canceled int
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.Place, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			f.mu.Lock()
			f.canceled++
			f.mu.Unlock()
			return domain.Place{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Place{}, f.err
	}
	return f.places[coords], nil
}

func (f *fakeGeocoder) canceledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type harness struct {
	mgr   *Manager
	store *flakyStore
	codec *persistence.Codec
	mapw  *fakeMap
	pub   *recordingPublisher
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store: newFlakyStore(),
		mapw:  newFakeMap(),
		pub:   &recordingPublisher{},
	}
	h.codec = persistence.NewCodec(h.store, "")
	base := []Option{
		WithMap(h.mapw),
		WithPublisher(h.pub),
		WithLogger(log.New(testWriter{t}, "", 0)),
	}
	h.mgr = New(h.codec, append(base, opts...)...)
	t.Cleanup(h.mgr.Close)
	return h
}

func (h *harness) create(t *testing.T, kind domain.Kind, coords domain.Coordinates, m domain.Metrics) domain.Workout {
	t.Helper()
	h.mgr.BeginPlacement(coords)
	w, err := h.mgr.CreateWorkout(context.Background(), kind, m)
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	return w
}

func (h *harness) stored(t *testing.T) []domain.Workout {
	t.Helper()
	loaded, err := h.codec.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return loaded
}

func ids(ws []domain.Workout) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Base().ID)
	}
	return out
}
