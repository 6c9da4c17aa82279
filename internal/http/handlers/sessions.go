package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/http/middleware"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// SessionsConfig wires the sessions handler.
type SessionsConfig struct {
	Scheduler *scheduling.Scheduler
	Logger    *logging.Logger
}

// SessionsHandler exposes the appointment lifecycle over HTTP.
type SessionsHandler struct {
	scheduler *scheduling.Scheduler
	logger    *logging.Logger
}

func NewSessionsHandler(cfg SessionsConfig) *SessionsHandler {
	if cfg.Scheduler == nil {
		panic("handlers: scheduler required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SessionsHandler{scheduler: cfg.Scheduler, logger: cfg.Logger}
}

type sessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      uuid.UUID  `json:"client_id"`
	ClientName    string     `json:"client_name,omitempty"`
	ServiceID     uuid.UUID  `json:"service_id"`
	ServiceName   string     `json:"service_name,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Recurrence    string     `json:"recurrence"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	PredecessorID *uuid.UUID `json:"predecessor_id,omitempty"`
}

func toSessionResponse(a scheduling.Appointment) sessionResponse {
	return sessionResponse{
		ID:            a.ID,
		ClientID:      a.ClientID,
		ClientName:    a.ClientName,
		ServiceID:     a.ServiceID,
		ServiceName:   a.ServiceName,
		StartsAt:      a.StartsAt,
		EndsAt:        a.EndsAt,
		Recurrence:    string(a.Recurrence),
		Status:        string(a.Status),
		Notes:         a.Notes,
		PredecessorID: a.PredecessorID,
	}
}

func toSessionResponses(appts []scheduling.Appointment) []sessionResponse {
	out := make([]sessionResponse, len(appts))
	for i, a := range appts {
		out[i] = toSessionResponse(a)
	}
	return out
}

func providerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.ProviderIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing provider identity")
		return uuid.Nil, false
	}
	return id, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "sessionID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

type createSessionRequest struct {
	ClientID   uuid.UUID `json:"client_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	StartsAt   time.Time `json:"starts_at"`
	Recurrence string    `json:"recurrence,omitempty"`
	Months     int       `json:"months,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// Create books a single session or a weekly series.
// Route: POST /api/sessions
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	appts, err := h.scheduler.Book(r.Context(), provID, scheduling.BookRequest{
		ClientID:   req.ClientID,
		ServiceID:  req.ServiceID,
		StartsAt:   req.StartsAt,
		Recurrence: scheduling.Recurrence(req.Recurrence),
		Months:     req.Months,
		Notes:      req.Notes,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponses(appts))
}

// List returns sessions in a date range.
// Route: GET /api/sessions?from=...&to=...&client_id=...&status=...
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be RFC3339")
		return
	}
	filter := scheduling.ListFilter{From: from, To: to, Status: scheduling.Status(q.Get("status"))}
	if raw := q.Get("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "client_id must be a UUID")
			return
		}
		filter.ClientID = clientID
	}
	appts, err := h.scheduler.List(r.Context(), provID, filter)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponses(appts))
}

// Get returns one session.
// Route: GET /api/sessions/{sessionID}
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	appt, err := h.scheduler.Get(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*appt))
}

type cancelSessionRequest struct {
	CascadeFuture bool `json:"cascade_future,omitempty"`
}

type cancelSessionResponse struct {
	Session   sessionResponse `json:"session"`
	Cancelled int64           `json:"cancelled"`
}

// Cancel cancels one session, or the rest of its weekly series.
// Route: POST /api/sessions/{sessionID}/cancel
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req cancelSessionRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	appt, cancelled, err := h.scheduler.Cancel(r.Context(), provID, id, req.CascadeFuture)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelSessionResponse{
		Session:   toSessionResponse(*appt),
		Cancelled: cancelled,
	})
}

type rescheduleSessionRequest struct {
	NewStartsAt time.Time `json:"new_starts_at"`
	Reason      string    `json:"reason,omitempty"`
}

// Reschedule moves a session to a new slot, creating a successor.
// Route: POST /api/sessions/{sessionID}/reschedule
func (h *SessionsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req rescheduleSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	successor, err := h.scheduler.Reschedule(r.Context(), provID, id, req.NewStartsAt, req.Reason)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(*successor))
}

// Complete marks a session done.
// Route: POST /api/sessions/{sessionID}/complete
func (h *SessionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	appt, err := h.scheduler.Complete(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*appt))
}

// Reopen flips a completed session back to scheduled.
// Route: POST /api/sessions/{sessionID}/reopen
func (h *SessionsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	appt, err := h.scheduler.Reopen(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*appt))
}

type updateSessionRequest struct {
	ServiceID uuid.UUID `json:"service_id,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Update patches non-lifecycle fields of a session.
// Route: PATCH /api/sessions/{sessionID}
func (h *SessionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req updateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	appt, err := h.scheduler.Update(r.Context(), provID, id, scheduling.UpdateRequest{
		ServiceID: req.ServiceID,
		Notes:     req.Notes,
		Status:    scheduling.Status(req.Status),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(*appt))
}
