package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// ContractsConfig wires the contracts handler.
type ContractsConfig struct {
	Service *contracts.Service
	Logger  *logging.Logger
}

// ContractsHandler exposes contract lifecycle over HTTP.
type ContractsHandler struct {
	service *contracts.Service
	logger  *logging.Logger
}

func NewContractsHandler(cfg ContractsConfig) *ContractsHandler {
	if cfg.Service == nil {
		panic("handlers: contracts service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ContractsHandler{service: cfg.Service, logger: cfg.Logger}
}

type contractResponse struct {
	ID                 uuid.UUID `json:"id"`
	ClientID           uuid.UUID `json:"client_id"`
	ClientName         string    `json:"client_name,omitempty"`
	ServiceID          uuid.UUID `json:"service_id"`
	ServiceName        string    `json:"service_name,omitempty"`
	Status             string    `json:"status"`
	StartDate          time.Time `json:"start_date"`
	DueDate            time.Time `json:"due_date"`
	MonthlyAmountCents int64     `json:"monthly_amount_cents"`
}

func toContractResponse(c contracts.Contract) contractResponse {
	return contractResponse{
		ID:                 c.ID,
		ClientID:           c.ClientID,
		ClientName:         c.ClientName,
		ServiceID:          c.ServiceID,
		ServiceName:        c.ServiceName,
		Status:             string(c.Status),
		StartDate:          c.StartDate,
		DueDate:            c.DueDate,
		MonthlyAmountCents: c.MonthlyAmountCents,
	}
}

func contractID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "contractID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

type createContractRequest struct {
	ClientID           uuid.UUID `json:"client_id"`
	ServiceID          uuid.UUID `json:"service_id"`
	StartDate          time.Time `json:"start_date,omitempty"`
	DueDate            time.Time `json:"due_date,omitempty"`
	MonthlyAmountCents int64     `json:"monthly_amount_cents"`
}

// Create opens a contract.
// Route: POST /api/contracts
func (h *ContractsHandler) Create(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	var req createContractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.service.Create(r.Context(), provID, contracts.CreateRequest{
		ClientID:           req.ClientID,
		ServiceID:          req.ServiceID,
		StartDate:          req.StartDate,
		DueDate:            req.DueDate,
		MonthlyAmountCents: req.MonthlyAmountCents,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractResponse(*c))
}

// List returns the provider's contracts.
// Route: GET /api/contracts?client_id=...&status=...
func (h *ContractsHandler) List(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var clientID uuid.UUID
	if raw := q.Get("client_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "client_id must be a UUID")
			return
		}
		clientID = parsed
	}
	list, err := h.service.List(r.Context(), provID, clientID, contracts.Status(q.Get("status")))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]contractResponse, len(list))
	for i, c := range list {
		out[i] = toContractResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one contract.
// Route: GET /api/contracts/{contractID}
func (h *ContractsHandler) Get(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(*c))
}

type terminateContractResponse struct {
	Contract              contractResponse `json:"contract"`
	AppointmentsCancelled int64            `json:"appointments_cancelled"`
}

// Terminate cancels a contract and the client's future schedule.
// Route: DELETE /api/contracts/{contractID}
func (h *ContractsHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	c, cancelled, err := h.service.Terminate(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, terminateContractResponse{
		Contract:              toContractResponse(*c),
		AppointmentsCancelled: cancelled,
	})
}

// RegisterPayment advances the contract's due date one month.
// Route: POST /api/contracts/{contractID}/payments
func (h *ContractsHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	provID, ok := providerID(w, r)
	if !ok {
		return
	}
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RegisterPayment(r.Context(), provID, id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(*c))
}
