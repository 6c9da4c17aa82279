package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Contract binds a client to a service with a monthly recurring obligation.
// DueDate is the recurring monthly anchor used by expiry reminders.
type Contract struct {
	ID                 uuid.UUID
	ProviderID         uuid.UUID
	ClientID           uuid.UUID
	ServiceID          uuid.UUID
	Status             Status
	StartDate          time.Time
	DueDate            time.Time
	MonthlyAmountCents int64
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Joined columns, populated by list/get queries.
	ClientName  string
	ServiceName string
}

// ExpiringContract is one active contract whose due date falls inside the
// expiry-reminder window, with the delivery data the dispatcher needs.
type ExpiringContract struct {
	Contract
	ClientPhone          string
	NotificationsEnabled bool
	ProviderInstance     string
}

// DaysUntilDue returns whole days between now and the due date, truncated to
// calendar days in the given location. Negative when overdue.
func (c Contract) DaysUntilDue(now time.Time, loc *time.Location) int {
	day := func(t time.Time) time.Time {
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	return int(day(c.DueDate).Sub(day(now)).Hours() / 24)
}
