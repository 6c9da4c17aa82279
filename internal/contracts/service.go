package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

var contractsTracer = otel.Tracer("trainerhub.internal.contracts")

type contractStore interface {
	Insert(ctx context.Context, c *Contract) error
	Get(ctx context.Context, providerID, id uuid.UUID) (*Contract, error)
	List(ctx context.Context, providerID uuid.UUID, clientID uuid.UUID, status Status) ([]Contract, error)
	SetStatus(ctx context.Context, providerID, id uuid.UUID, status Status) (bool, error)
	AdvanceDueDate(ctx context.Context, providerID, id uuid.UUID) (bool, error)
}

// ScheduleCanceller cancels a client's future scheduled appointments. The
// scheduling store satisfies this.
type ScheduleCanceller interface {
	CancelFutureForClient(ctx context.Context, providerID, clientID uuid.UUID, from time.Time) (int64, error)
}

// Service owns contract lifecycle. Terminating a contract clears the
// client's entire future schedule, not only the contracted service.
type Service struct {
	store    contractStore
	schedule ScheduleCanceller
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(store *Store, schedule ScheduleCanceller, logger *logging.Logger) *Service {
	if store == nil {
		panic("contracts: store required")
	}
	if schedule == nil {
		panic("contracts: schedule canceller required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, schedule: schedule, logger: logger, now: time.Now}
}

// CreateRequest carries the fields of a contract creation call.
type CreateRequest struct {
	ClientID           uuid.UUID
	ServiceID          uuid.UUID
	StartDate          time.Time
	DueDate            time.Time
	MonthlyAmountCents int64
}

// Create opens an active contract.
func (s *Service) Create(ctx context.Context, providerID uuid.UUID, req CreateRequest) (*Contract, error) {
	ctx, span := contractsTracer.Start(ctx, "contracts.create")
	defer span.End()

	if req.ClientID == uuid.Nil || req.ServiceID == uuid.Nil {
		return nil, &scheduling.ValidationError{Reason: "client_id and service_id are required"}
	}
	if req.StartDate.IsZero() {
		req.StartDate = s.now()
	}
	if req.DueDate.IsZero() {
		req.DueDate = req.StartDate.AddDate(0, 1, 0)
	}
	c := &Contract{
		ID:                 uuid.New(),
		ProviderID:         providerID,
		ClientID:           req.ClientID,
		ServiceID:          req.ServiceID,
		Status:             StatusActive,
		StartDate:          req.StartDate,
		DueDate:            req.DueDate,
		MonthlyAmountCents: req.MonthlyAmountCents,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("contract created",
		"provider_id", providerID,
		"contract_id", c.ID,
		"client_id", c.ClientID)
	return c, nil
}

// Terminate cancels a contract and cascades: every future scheduled
// appointment of the client is cancelled, regardless of service.
func (s *Service) Terminate(ctx context.Context, providerID, id uuid.UUID) (*Contract, int64, error) {
	ctx, span := contractsTracer.Start(ctx, "contracts.terminate")
	defer span.End()
	span.SetAttributes(attribute.String("trainerhub.contract_id", id.String()))

	c, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if c == nil {
		return nil, 0, &scheduling.NotFoundError{Entity: "contract"}
	}
	if c.Status != StatusActive {
		return nil, 0, &scheduling.PolicyError{Reason: "contract is not active"}
	}

	if _, err := s.store.SetStatus(ctx, providerID, id, StatusCancelled); err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	c.Status = StatusCancelled

	cancelled, err := s.schedule.CancelFutureForClient(ctx, providerID, c.ClientID, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	s.logger.Info("contract terminated",
		"provider_id", providerID,
		"contract_id", id,
		"appointments_cancelled", cancelled)
	return c, cancelled, nil
}

// RegisterPayment advances the due date one month.
func (s *Service) RegisterPayment(ctx context.Context, providerID, id uuid.UUID) (*Contract, error) {
	ctx, span := contractsTracer.Start(ctx, "contracts.register_payment")
	defer span.End()

	ok, err := s.store.AdvanceDueDate(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return nil, &scheduling.NotFoundError{Entity: "contract"}
	}
	c, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if c == nil {
		return nil, &scheduling.NotFoundError{Entity: "contract"}
	}
	s.logger.Info("contract payment registered", "provider_id", providerID, "contract_id", id)
	return c, nil
}

// Get returns one contract or NotFoundError.
func (s *Service) Get(ctx context.Context, providerID, id uuid.UUID) (*Contract, error) {
	c, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &scheduling.NotFoundError{Entity: "contract"}
	}
	return c, nil
}

// List returns the provider's contracts.
func (s *Service) List(ctx context.Context, providerID uuid.UUID, clientID uuid.UUID, status Status) ([]Contract, error) {
	return s.store.List(ctx, providerID, clientID, status)
}
