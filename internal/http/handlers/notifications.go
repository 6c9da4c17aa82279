package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/clients"
	"github.com/trainerhub/trainerhub/internal/notify"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// NotificationsConfig wires the notifications handler.
type NotificationsConfig struct {
	Logs      *notify.LogStore
	Publisher *notify.Publisher
	Settings  *providers.SettingsStore
	Providers *providers.Store
	Clients   *clients.Store
	Scheduler *scheduling.Scheduler
	Location  *time.Location
	Logger    *logging.Logger
}

// NotificationsHandler exposes the notification log, the provider's
// messaging preferences and a manual test send.
type NotificationsHandler struct {
	logs      *notify.LogStore
	publisher *notify.Publisher
	settings  *providers.SettingsStore
	providers *providers.Store
	clients   *clients.Store
	scheduler *scheduling.Scheduler
	location  *time.Location
	logger    *logging.Logger
}

func NewNotificationsHandler(cfg NotificationsConfig) *NotificationsHandler {
	if cfg.Logs == nil {
		panic("handlers: log store required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &NotificationsHandler{
		logs:      cfg.Logs,
		publisher: cfg.Publisher,
		settings:  cfg.Settings,
		providers: cfg.Providers,
		clients:   cfg.Clients,
		scheduler: cfg.Scheduler,
		location:  cfg.Location,
		logger:    cfg.Logger,
	}
}

type logEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      *uuid.UUID `json:"client_id,omitempty"`
	Kind          string     `json:"kind"`
	Channel       string     `json:"channel"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	ContractID    *uuid.UUID `json:"contract_id,omitempty"`
	Read          bool       `json:"read"`
	SentAt        time.Time  `json:"sent_at"`
}

// List returns the provider's newest log entries.
// Route: GET /api/notifications?limit=...
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.logs.List(r.Context(), provID, limit)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]logEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = logEntryResponse{
			ID:            e.ID,
			ClientID:      e.ClientID,
			Kind:          string(e.Kind),
			Channel:       e.Channel,
			Message:       e.Message,
			Status:        string(e.Status),
			AppointmentID: e.AppointmentID,
			ContractID:    e.ContractID,
			Read:          e.Read,
			SentAt:        e.SentAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// UnreadCount returns how many entries the provider has not acknowledged.
// Route: GET /api/notifications/unread
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	n, err := h.logs.CountUnread(r.Context(), provID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

// MarkAllRead acknowledges every unread entry.
// Route: POST /api/notifications/read
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	n, err := h.logs.MarkAllRead(r.Context(), provID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

type testSendRequest struct {
	Destination string `json:"destination"`
	Message     string `json:"message,omitempty"`
}

// TestSend queues a manual test message, used when wiring up an instance.
// Route: POST /api/notifications/test
func (h *NotificationsHandler) TestSend(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	if h.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging not configured")
		return
	}
	var req testSendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	if req.Message == "" {
		req.Message = "Mensagem de teste do TrainerHub ✅"
	}
	instance := ""
	if h.providers != nil {
		if p, err := h.providers.Get(r.Context(), provID); err == nil && p != nil {
			instance = p.WhatsAppInstance
		}
	}
	err := h.publisher.Publish(r.Context(), notify.Task{
		Kind:        notify.KindTest,
		ProviderID:  provID,
		Instance:    instance,
		Destination: req.Destination,
		Message:     req.Message,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

// ClientSummary pushes a student's own upcoming schedule to their WhatsApp.
// Route: POST /api/notifications/clients/{clientID}/summary
func (h *NotificationsHandler) ClientSummary(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	if h.publisher == nil || h.clients == nil || h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging not configured")
		return
	}
	c, err := h.clients.Get(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	if c.WhatsAppPhone == "" {
		writeError(w, http.StatusBadRequest, "client has no WhatsApp number")
		return
	}
	if !c.NotificationsEnabled {
		writeError(w, http.StatusForbidden, "client opted out of notifications")
		return
	}

	now := time.Now().In(h.location)
	appts, err := h.scheduler.List(r.Context(), provID, scheduling.ListFilter{
		From:     now,
		To:       now.AddDate(0, 0, 30),
		ClientID: id,
		Status:   scheduling.StatusScheduled,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	instance := ""
	if h.providers != nil {
		if p, err := h.providers.Get(r.Context(), provID); err == nil && p != nil {
			instance = p.WhatsAppInstance
		}
	}
	err = h.publisher.Publish(r.Context(), notify.Task{
		Kind:        notify.KindClientSummary,
		ProviderID:  provID,
		ClientID:    &c.ID,
		Instance:    instance,
		Destination: c.WhatsAppPhone,
		Message:     notify.ClientUpcoming(c.Name, appts, h.location),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true, "sessions": len(appts)})
}

// GetSettings returns the provider's messaging preferences.
// Route: GET /api/notifications/settings
func (h *NotificationsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	if h.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings store not configured")
		return
	}
	st, err := h.settings.Get(r.Context(), provID.String())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings replaces the provider's messaging preferences.
// Route: PUT /api/notifications/settings
func (h *NotificationsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	if h.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings store not configured")
		return
	}
	var st providers.Settings
	if !decodeBody(w, r, &st) {
		return
	}
	st.ProviderID = provID.String()
	if err := h.settings.Set(r.Context(), &st); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
