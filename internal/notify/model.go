// Package notify owns outbound messaging: composition, queueing, dispatch
// and the audit log that doubles as the send-dedup index.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for templates, dedup and audit.
type Kind string

const (
	KindBookingConfirmed Kind = "booking_confirmed"
	KindRescheduled      Kind = "rescheduled"
	KindCancelled        Kind = "cancelled"
	KindDailySummary     Kind = "daily_summary"
	KindMiddaySummary    Kind = "midday_summary"
	KindWeeklySummary    Kind = "weekly_summary"
	KindSessionReminder  Kind = "session_reminder"
	KindContractExpiry   Kind = "contract_expiry"
	KindInboundCommand   Kind = "inbound_command"
	KindClientSummary    Kind = "client_summary"
	KindTest             Kind = "test"
)

// SendStatus is the outcome recorded for one dispatch attempt.
type SendStatus string

const (
	StatusSent   SendStatus = "sent"
	StatusFailed SendStatus = "failed"
)

// LogEntry is one immutable dispatch record. For scheduled sends the
// (provider, kind, related entity, calendar day) tuple with status sent is
// the idempotency key.
type LogEntry struct {
	ID            uuid.UUID
	ProviderID    uuid.UUID
	ClientID      *uuid.UUID
	Kind          Kind
	Channel       string
	Message       string
	Status        SendStatus
	AppointmentID *uuid.UUID
	ContractID    *uuid.UUID
	Read          bool
	SentAt        time.Time
}

// Task is one unit of outbound work carried through the queue.
type Task struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	ClientID      *uuid.UUID `json:"client_id,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	ContractID    *uuid.UUID `json:"contract_id,omitempty"`
	Instance      string     `json:"instance,omitempty"`
	Destination   string     `json:"destination"`
	Message       string     `json:"message"`
	// Bulk marks background fan-out sends that get anti-throttle jitter.
	Bulk bool `json:"bulk,omitempty"`
}
