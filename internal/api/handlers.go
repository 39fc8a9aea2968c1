// Package api exposes HTTP handlers for the mapty workout engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/engine"
	"github.com/barbizo19/mapty/internal/mapview"
)

// Engine is the subset of *engine.Manager used by the handlers. Every
// mutation goes through Dispatch.
type Engine interface {
	Dispatch(ctx context.Context, a engine.Action) (engine.Result, error)
	Entries() []engine.Entry
	PendingPlacement() (domain.Coordinates, bool)
	Save(ctx context.Context) error
}

// MapView serves the current map state.
type MapView interface {
	Snapshot() mapview.View
}

// Handler coordinates HTTP requests with the workout engine.
type Handler struct {
	engine Engine
	view   MapView
}

// NewHandler builds a Handler.
func NewHandler(e Engine, view MapView) *Handler {
	return &Handler{engine: e, view: view}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/placement", h.placement)
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/sort", h.sortWorkouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/map", h.mapSnapshot)
	mux.HandleFunc("/v1/map/fit", h.fitMap)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) placement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req PlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := h.engine.Dispatch(r.Context(), engine.Action{
		Type:   engine.ActionPlace,
		Coords: domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng},
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoordinatesView(res.Coords))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listWorkouts(w)
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodDelete:
		h.resetWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/workouts/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.getWorkout(w, id)
		case http.MethodPut:
			h.editWorkout(w, r, id, engine.ActionEdit)
		case http.MethodDelete:
			h.deleteWorkout(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
	case "edit", "cancel", "save", "focus":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		switch action {
		case "edit":
			h.beginEdit(w, r, id)
		case "cancel":
			h.cancelEdit(w, r, id)
		case "save":
			h.editWorkout(w, r, id, engine.ActionSave)
		case "focus":
			h.focusWorkout(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown workout action")
	}
}

func (h *Handler) listWorkouts(w http.ResponseWriter) {
	resp := ListWorkoutsResponse{Items: h.entryViews()}
	if coords, ok := h.engine.PendingPlacement(); ok {
		view := toCoordinatesView(coords)
		resp.PendingPlacement = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	metrics, err := req.Metrics(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionCreate, Kind: kind, Metrics: metrics})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(engine.Entry{Workout: res.Workout}))
}

func (h *Handler) resetWorkouts(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionReset}); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getWorkout(w http.ResponseWriter, id string) {
	entry, ok := h.entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(entry))
}

func (h *Handler) editWorkout(w http.ResponseWriter, r *http.Request, id string, actionType engine.ActionType) {
	entry, ok := h.entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}

	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	metrics, err := req.Metrics(entry.Workout.Kind())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := h.engine.Dispatch(r.Context(), engine.Action{Type: actionType, ID: id, Metrics: metrics})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(engine.Entry{Workout: res.Workout, Location: entry.Location}))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionDelete, ID: id}); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) beginEdit(w http.ResponseWriter, r *http.Request, id string) {
	entry, ok := h.entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
		return
	}
	res, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionBeginEdit, ID: id})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEditFormView(id, entry.Workout.Kind(), res.Metrics))
}

func (h *Handler) cancelEdit(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionCancelEdit, ID: id}); err != nil {
		writeEngineError(w, err)
		return
	}
	h.getWorkout(w, id)
}

func (h *Handler) focusWorkout(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionFocus, ID: id})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoordinatesView(res.Coords))
}

func (h *Handler) sortWorkouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	field := engine.SortField(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("by"))))
	if _, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionSort, SortBy: field}); err != nil {
		writeEngineError(w, err)
		return
	}
	if r.URL.Query().Get("persist") == "true" {
		if err := h.engine.Save(r.Context()); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	h.listWorkouts(w)
}

func (h *Handler) mapSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}

func (h *Handler) fitMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, err := h.engine.Dispatch(r.Context(), engine.Action{Type: engine.ActionShowAll}); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}

func (h *Handler) entry(id string) (engine.Entry, bool) {
	for _, e := range h.engine.Entries() {
		if e.Workout.Base().ID == id {
			return e, true
		}
	}
	return engine.Entry{}, false
}

func (h *Handler) entryViews() []WorkoutView {
	entries := h.engine.Entries()
	items := make([]WorkoutView, 0, len(entries))
	for _, e := range entries {
		items = append(items, toWorkoutView(e))
	}
	return items
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, engine.ErrUnknownSortField),
		errors.Is(err, mapview.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
	case errors.Is(err, domain.ErrNoPendingPlacement):
		writeError(w, http.StatusConflict, "no_pending_placement", "choose a location on the map first")
	case errors.Is(err, engine.ErrNotEditing):
		writeError(w, http.StatusConflict, "not_editing", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
