package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one appointment instance.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Recurrence marks whether an appointment was booked alone or as part of a
// weekly series.
type Recurrence string

const (
	RecurrenceSingle Recurrence = "single"
	RecurrenceWeekly Recurrence = "weekly"
)

// ServiceKind classifies what a service occupies on the calendar. In-person
// and online sessions block the provider's agenda; a standalone workout plan
// does not.
type ServiceKind string

const (
	ServiceInPerson ServiceKind = "in_person"
	ServiceOnline   ServiceKind = "online"
	ServicePlan     ServiceKind = "plan"
)

// Blocking reports whether appointments of this kind participate in conflict
// detection.
func (k ServiceKind) Blocking() bool {
	return k == ServiceInPerson || k == ServiceOnline
}

// Service is a bookable offering owned by a provider.
type Service struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID
	Name            string
	Kind            ServiceKind
	DurationMinutes int
}

// Duration returns the service length as a time.Duration.
func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Appointment is one scheduled occurrence of a service for a client.
type Appointment struct {
	ID            uuid.UUID
	ProviderID    uuid.UUID
	ClientID      uuid.UUID
	ServiceID     uuid.UUID
	StartsAt      time.Time
	EndsAt        time.Time
	Recurrence    Recurrence
	Status        Status
	Notes         string
	PredecessorID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined columns, populated by list/get queries.
	ClientName  string
	ClientPhone string
	ServiceName string
	ServiceKind ServiceKind
}

// ListFilter narrows appointment listings. From/To are mandatory at the API
// boundary; ClientID and Status are optional.
type ListFilter struct {
	From     time.Time
	To       time.Time
	ClientID uuid.UUID
	Status   Status
}
