package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/clients"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// ClientsConfig wires the clients handler.
type ClientsConfig struct {
	Store  *clients.Store
	Logger *logging.Logger
}

// ClientsHandler exposes the client roster over HTTP.
type ClientsHandler struct {
	store  *clients.Store
	logger *logging.Logger
}

func NewClientsHandler(cfg ClientsConfig) *ClientsHandler {
	if cfg.Store == nil {
		panic("handlers: clients store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ClientsHandler{store: cfg.Store, logger: cfg.Logger}
}

type clientPayload struct {
	Name                 string `json:"name"`
	WhatsAppPhone        string `json:"whatsapp_phone,omitempty"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	Notes                string `json:"notes,omitempty"`
}

type clientResponse struct {
	ID uuid.UUID `json:"id"`
	clientPayload
}

func toClientResponse(c clients.Client) clientResponse {
	return clientResponse{
		ID: c.ID,
		clientPayload: clientPayload{
			Name:                 c.Name,
			WhatsAppPhone:        c.WhatsAppPhone,
			NotificationsEnabled: c.NotificationsEnabled,
			Notes:                c.Notes,
		},
	}
}

func clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "clientID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Create registers a client.
// Route: POST /api/clients
func (h *ClientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	var req clientPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c := &clients.Client{
		ProviderID:           provID,
		Name:                 req.Name,
		WhatsAppPhone:        req.WhatsAppPhone,
		NotificationsEnabled: req.NotificationsEnabled,
		Notes:                req.Notes,
	}
	if err := h.store.Insert(r.Context(), c); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientResponse(*c))
}

// List returns the provider's roster.
// Route: GET /api/clients
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	list, err := h.store.List(r.Context(), provID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]clientResponse, len(list))
	for i, c := range list {
		out[i] = toClientResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one client.
// Route: GET /api/clients/{clientID}
func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	c, err := h.store.Get(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(*c))
}

// Update replaces the client's mutable fields.
// Route: PUT /api/clients/{clientID}
func (h *ClientsHandler) Update(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var req clientPayload
	if !decodeBody(w, r, &req) {
		return
	}
	c := &clients.Client{
		ID:                   id,
		ProviderID:           provID,
		Name:                 req.Name,
		WhatsAppPhone:        req.WhatsAppPhone,
		NotificationsEnabled: req.NotificationsEnabled,
		Notes:                req.Notes,
	}
	found, err := h.store.Update(r.Context(), c)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(*c))
}

// Delete soft-deletes a client.
// Route: DELETE /api/clients/{clientID}
func (h *ClientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	found, err := h.store.SoftDelete(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
