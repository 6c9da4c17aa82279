package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type overlapLister interface {
	ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Appointment, error)
}

// ConflictDetector decides whether a candidate interval collides with an
// existing blocking appointment on the provider's calendar.
type ConflictDetector struct {
	store overlapLister
}

func NewConflictDetector(store overlapLister) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// HasConflict reports whether [start, end) overlaps a scheduled or completed
// blocking appointment for the provider. Non-blocking services never
// conflict. excludeID skips the appointment being moved during a reschedule;
// pass uuid.Nil otherwise.
//
// Overlap is half-open: an appointment ending exactly when the candidate
// starts does not collide.
func (d *ConflictDetector) HasConflict(ctx context.Context, providerID uuid.UUID, kind ServiceKind, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	if !kind.Blocking() {
		return false, nil
	}
	overlapping, err := d.store.ListOverlapping(ctx, providerID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("scheduling: list overlapping: %w", err)
	}
	// The query joins service kind but cannot always pre-filter on it, so
	// non-blocking rows are dropped here.
	for _, appt := range overlapping {
		if appt.ServiceKind.Blocking() {
			return true, nil
		}
	}
	return false, nil
}
