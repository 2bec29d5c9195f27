package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"notehub/internal/domain"
	"notehub/internal/notes"
	"notehub/internal/schedule"
)

// NoteStore is the persistence surface the handler needs.
type NoteStore interface {
	Create(ctx context.Context, note domain.Note) error
	Get(ctx context.Context, id uuid.UUID) (domain.Note, error)
	Update(ctx context.Context, note domain.Note) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params notes.ListParams) ([]domain.Note, int, error)
}

// TriggerService arms and cancels notification triggers for notes.
type TriggerService interface {
	Arm(ctx context.Context, subjectID, spec string, payload []byte) (uuid.UUID, error)
	Cancel(ctx context.Context, key uuid.UUID) (bool, error)
	Get(ctx context.Context, subjectID string) (domain.ArmedTrigger, bool, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	store    NoteStore
	triggers TriggerService
	db       HealthChecker
	clock    func() time.Time
}

func NewHandler(store NoteStore, triggers TriggerService) *Handler {
	return &Handler{
		store:    store,
		triggers: triggers,
		clock:    time.Now,
	}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithClock overrides the time source. Intended for tests.
func (h *Handler) WithClock(clock func() time.Time) *Handler {
	h.clock = clock
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/notes" && r.Method == http.MethodPost:
		h.createNote(w, r)

	case path == "/notes" && r.Method == http.MethodGet:
		h.listNotes(w, r)

	case strings.HasSuffix(path, "/notification-schedule"):
		h.routeSchedule(w, r)

	case strings.HasPrefix(path, "/notes/"):
		h.routeNote(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// routeNote dispatches /notes/{id} by method.
func (h *Handler) routeNote(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != "notes" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getNote(w, r, id)
	case http.MethodPut, http.MethodPatch:
		h.updateNote(w, r, id)
	case http.MethodDelete:
		h.deleteNote(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// routeSchedule dispatches /notes/{id}/notification-schedule by method.
func (h *Handler) routeSchedule(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "notes" || parts[2] != "notification-schedule" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		h.setSchedule(w, r, id)
	case http.MethodDelete:
		h.removeSchedule(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateCreateNote(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validate the schedule before creating anything so a bad one leaves
	// no half-created note behind.
	spec := r.URL.Query().Get("notification-schedule")
	if spec != "" {
		if _, err := schedule.Compile(spec); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	now := h.clock().UTC()
	note := domain.Note{
		ID:        uuid.New(),
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		Schedule:  spec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.Create(r.Context(), note); err != nil {
		log.Printf("api: create note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	var jobID string
	if spec != "" {
		key, err := h.triggers.Arm(r.Context(), note.ID.String(), spec, notePayload(note))
		if err != nil {
			log.Printf("api: arm trigger error: %v", err)
			// Compensate so the failure never leaves a note without the
			// notification the caller asked for.
			if delErr := h.store.SoftDelete(r.Context(), note.ID); delErr != nil {
				log.Printf("api: rollback note after arm failure: %v", delErr)
			}
			writeError(w, http.StatusInternalServerError, "failed to arm notification")
			return
		}
		jobID = key.String()
	}

	writeJSON(w, http.StatusCreated, noteResponse(note, jobID))
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, total, err := h.store.List(r.Context(), params)
	if err != nil {
		log.Printf("api: list notes error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}

	resp := ListNotesResponse{
		Notes:  make([]NoteResponse, len(list)),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for i, note := range list {
		resp.Notes[i] = noteResponse(note, "")
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getNote(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: get note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}

	var jobID string
	if t, ok, err := h.triggers.Get(r.Context(), id.String()); err == nil && ok {
		jobID = t.Key.String()
	}

	writeJSON(w, http.StatusOK, noteResponse(note, jobID))
}

func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validateUpdateNote(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: get note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Body != nil {
		note.Body = *req.Body
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	note.UpdatedAt = h.clock().UTC()

	if err := h.store.Update(r.Context(), note); err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: update note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	writeJSON(w, http.StatusOK, noteResponse(note, ""))
}

func (h *Handler) deleteNote(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	// Withdraw any armed trigger first so a note never fires after deletion.
	if t, ok, err := h.triggers.Get(r.Context(), id.String()); err == nil && ok {
		if _, err := h.triggers.Cancel(r.Context(), t.Key); err != nil {
			log.Printf("api: cancel trigger on delete error: %v", err)
		}
	}

	if err := h.store.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: delete note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setSchedule(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SetScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: get note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set schedule")
		return
	}

	// Arm replaces any existing trigger for this note.
	key, err := h.triggers.Arm(r.Context(), id.String(), req.Schedule, notePayload(note))
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidScheduleFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("api: arm trigger error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set schedule")
		return
	}

	note.Schedule = req.Schedule
	note.UpdatedAt = h.clock().UTC()
	if err := h.store.Update(r.Context(), note); err != nil {
		log.Printf("api: persist schedule error: %v", err)
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		Message:  "notification schedule updated",
		JobID:    key.String(),
		Schedule: req.Schedule,
	})
}

func (h *Handler) removeSchedule(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		log.Printf("api: get note error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove schedule")
		return
	}

	removed := false
	if t, ok, err := h.triggers.Get(r.Context(), id.String()); err != nil {
		log.Printf("api: get trigger error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to remove schedule")
		return
	} else if ok {
		removed, err = h.triggers.Cancel(r.Context(), t.Key)
		if err != nil {
			log.Printf("api: cancel trigger error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to remove schedule")
			return
		}
	}

	if note.Schedule != "" {
		note.Schedule = ""
		note.UpdatedAt = h.clock().UTC()
		if err := h.store.Update(r.Context(), note); err != nil {
			log.Printf("api: persist schedule removal error: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, RemoveScheduleResponse{Removed: removed})
}

// notePayload is the payload carried by the trigger and delivered on firing.
func notePayload(note domain.Note) []byte {
	payload, err := json.Marshal(map[string]string{
		"id":    note.ID.String(),
		"title": note.Title,
	})
	if err != nil {
		return nil
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// parseListParams extracts pagination, filter and sort query parameters.
// Both offset and 1-based page addressing are accepted; page wins when both
// are present.
func parseListParams(r *http.Request) (notes.ListParams, error) {
	params := notes.ListParams{
		Search: r.URL.Query().Get("search"),
	}

	if tagsStr := r.URL.Query().Get("tags"); tagsStr != "" {
		for _, tag := range strings.Split(tagsStr, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return params, err
		}
		if limit < 0 {
			return params, strconv.ErrRange
		}
		if limit > notes.MaxLimit {
			return params, &limitExceededError{max: notes.MaxLimit}
		}
		params.Limit = limit
	}
	if params.Limit == 0 {
		params.Limit = notes.DefaultLimit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return params, err
		}
		if offset < 0 {
			return params, strconv.ErrRange
		}
		params.Offset = offset
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return params, err
		}
		if page < 1 {
			return params, strconv.ErrRange
		}
		params.Offset = (page - 1) * params.Limit
	}

	params.SortBy = r.URL.Query().Get("sortBy")
	params.SortOrder = strings.ToLower(r.URL.Query().Get("sortOrder"))

	return params, nil
}

type limitExceededError struct {
	max int
}

func (e *limitExceededError) Error() string {
	return "limit exceeds maximum of " + strconv.Itoa(e.max)
}
