// Package trigger runs the time-based notification scans: provider
// summaries, pre-session reminders, contract expiry warnings and log
// maintenance. Every send is guarded by the notification log, so
// overlapping runs and restarts never double-send.
package trigger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/internal/notify"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

type providerLister interface {
	ListAll(ctx context.Context) ([]providers.Provider, error)
}

type settingsReader interface {
	Get(ctx context.Context, providerID string) (*providers.Settings, error)
}

type scheduleReader interface {
	ListScheduledBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error)
	ListRemindersDue(ctx context.Context, from, to time.Time) ([]scheduling.ReminderCandidate, error)
	CountByStatusBetween(ctx context.Context, providerID uuid.UUID, status scheduling.Status, from, to time.Time) (int, error)
}

type expiryReader interface {
	ListExpiringWithin(ctx context.Context, from, to time.Time) ([]contracts.ExpiringContract, error)
}

type sendLog interface {
	WasSent(ctx context.Context, providerID uuid.UUID, kind notify.Kind, appointmentID, contractID *uuid.UUID, from, to time.Time) (bool, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type hashPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type taskPublisher interface {
	Publish(ctx context.Context, task notify.Task) error
}

// Config carries the runner's schedule knobs. Hours are in the provider's
// local time (or DefaultLocation when the provider has none).
type Config struct {
	Interval          time.Duration
	DefaultLocation   *time.Location
	DailySummaryHour  int
	MiddaySummaryHour int
	WeeklySummaryHour int
	// ReminderLead is how far before a session the reminder fires;
	// ReminderWindow widens the scan so a 15-minute tick cannot skip over
	// a session.
	ReminderLead        time.Duration
	ReminderWindow      time.Duration
	ExpiryLookaheadDays int
	MaintenanceHour     int
	RetentionDays       int
}

// Runner owns the periodic scans.
type Runner struct {
	providers providerLister
	settings  settingsReader
	schedule  scheduleReader
	expiry    expiryReader
	log       sendLog
	hashes    hashPurger
	publisher taskPublisher
	logger    *logging.Logger
	cfg       Config
	now       func() time.Time

	lastPurgeDay string
}

func NewRunner(providerDir providerLister, settings settingsReader, schedule scheduleReader, expiry expiryReader, log sendLog, hashes hashPurger, publisher taskPublisher, cfg Config, logger *logging.Logger) *Runner {
	if providerDir == nil {
		panic("trigger: provider lister required")
	}
	if schedule == nil {
		panic("trigger: schedule reader required")
	}
	if log == nil {
		panic("trigger: send log required")
	}
	if publisher == nil {
		panic("trigger: publisher required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 45 * time.Minute
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 30 * time.Minute
	}
	if cfg.ExpiryLookaheadDays <= 0 {
		cfg.ExpiryLookaheadDays = 7
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		providers: providerDir,
		settings:  settings,
		schedule:  schedule,
		expiry:    expiry,
		log:       log,
		hashes:    hashes,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. The first scan happens immediately so a
// restart does not wait a full interval.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("trigger runner started", "interval", r.cfg.Interval)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("trigger runner stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs every scan once. Exported so tests and admin endpoints can fire
// it on demand.
func (r *Runner) Tick(ctx context.Context) {
	r.runProviderScans(ctx)
	r.runSessionReminders(ctx)
	r.runContractExpiry(ctx)
	r.runMaintenance(ctx)
}

func (r *Runner) location(p *providers.Provider) *time.Location {
	if p == nil {
		return r.cfg.DefaultLocation
	}
	return r.locationFor(p.Timezone)
}

func (r *Runner) locationFor(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return r.cfg.DefaultLocation
}

func dayBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// sentToday checks the dedup tuple against today's log window.
func (r *Runner) sentToday(ctx context.Context, providerID uuid.UUID, kind notify.Kind, apptID, contractID *uuid.UUID, loc *time.Location) (bool, error) {
	from, to := dayBounds(r.now(), loc)
	return r.log.WasSent(ctx, providerID, kind, apptID, contractID, from, to)
}

func (r *Runner) runProviderScans(ctx context.Context) {
	all, err := r.providers.ListAll(ctx)
	if err != nil {
		r.logger.Error("trigger provider list failed", "error", err)
		return
	}
	for i := range all {
		p := &all[i]
		st := providers.DefaultSettings(p.ID.String())
		if r.settings != nil {
			if loaded, err := r.settings.Get(ctx, p.ID.String()); err == nil && loaded != nil {
				st = loaded
			}
		}
		loc := r.location(p)
		hour := r.now().In(loc).Hour()

		if st.DailySummaryEnabled && hour == r.cfg.DailySummaryHour {
			r.sendDailySummary(ctx, p, loc)
		}
		if st.MiddaySummaryEnabled && hour == r.cfg.MiddaySummaryHour {
			r.sendMiddaySummary(ctx, p, loc)
		}
		if st.WeeklySummaryEnabled && hour == r.cfg.WeeklySummaryHour && r.now().In(loc).Weekday() == time.Sunday {
			r.sendWeeklySummary(ctx, p, loc)
		}
	}
}

func (r *Runner) sendDailySummary(ctx context.Context, p *providers.Provider, loc *time.Location) {
	sent, err := r.sentToday(ctx, p.ID, notify.KindDailySummary, nil, nil, loc)
	if err != nil || sent {
		r.logCheckErr("daily summary", p.ID, err)
		return
	}
	dayStart, dayEnd := dayBounds(r.now(), loc)
	appts, err := r.schedule.ListScheduledBetween(ctx, p.ID, dayStart, dayEnd)
	if err != nil {
		r.logger.Error("daily summary query failed", "provider_id", p.ID, "error", err)
		return
	}
	r.publish(ctx, notify.Task{
		Kind:        notify.KindDailySummary,
		ProviderID:  p.ID,
		Instance:    p.WhatsAppInstance,
		Destination: p.Phone,
		Message:     notify.DailySummary(dayStart, appts, loc),
		Bulk:        true,
	})
}

func (r *Runner) sendMiddaySummary(ctx context.Context, p *providers.Provider, loc *time.Location) {
	sent, err := r.sentToday(ctx, p.ID, notify.KindMiddaySummary, nil, nil, loc)
	if err != nil || sent {
		r.logCheckErr("midday summary", p.ID, err)
		return
	}
	_, dayEnd := dayBounds(r.now(), loc)
	remaining, err := r.schedule.ListScheduledBetween(ctx, p.ID, r.now(), dayEnd)
	if err != nil {
		r.logger.Error("midday summary query failed", "provider_id", p.ID, "error", err)
		return
	}
	r.publish(ctx, notify.Task{
		Kind:        notify.KindMiddaySummary,
		ProviderID:  p.ID,
		Instance:    p.WhatsAppInstance,
		Destination: p.Phone,
		Message:     notify.MiddaySummary(remaining, loc),
		Bulk:        true,
	})
}

func (r *Runner) sendWeeklySummary(ctx context.Context, p *providers.Provider, loc *time.Location) {
	sent, err := r.sentToday(ctx, p.ID, notify.KindWeeklySummary, nil, nil, loc)
	if err != nil || sent {
		r.logCheckErr("weekly summary", p.ID, err)
		return
	}
	dayStart, _ := dayBounds(r.now(), loc)
	weekStart := dayStart.AddDate(0, 0, -6)
	completed, err := r.schedule.CountByStatusBetween(ctx, p.ID, scheduling.StatusCompleted, weekStart, r.now())
	if err != nil {
		r.logger.Error("weekly summary count failed", "provider_id", p.ID, "error", err)
		return
	}
	upcoming, err := r.schedule.ListScheduledBetween(ctx, p.ID, dayStart.AddDate(0, 0, 1), dayStart.AddDate(0, 0, 8))
	if err != nil {
		r.logger.Error("weekly summary query failed", "provider_id", p.ID, "error", err)
		return
	}
	r.publish(ctx, notify.Task{
		Kind:        notify.KindWeeklySummary,
		ProviderID:  p.ID,
		Instance:    p.WhatsAppInstance,
		Destination: p.Phone,
		Message:     notify.WeeklySummary(completed, upcoming, loc),
		Bulk:        true,
	})
}

func (r *Runner) runSessionReminders(ctx context.Context) {
	from := r.now().Add(r.cfg.ReminderLead)
	to := from.Add(r.cfg.ReminderWindow)
	due, err := r.schedule.ListRemindersDue(ctx, from, to)
	if err != nil {
		r.logger.Error("session reminder scan failed", "error", err)
		return
	}
	settingsCache := make(map[uuid.UUID]bool)
	for _, cand := range due {
		if !cand.NotificationsEnabled || cand.ClientPhone == "" {
			continue
		}
		enabled, seen := settingsCache[cand.ProviderID]
		if !seen {
			enabled = true
			if r.settings != nil {
				if st, err := r.settings.Get(ctx, cand.ProviderID.String()); err == nil && st != nil {
					enabled = st.SessionRemindersEnabled
				}
			}
			settingsCache[cand.ProviderID] = enabled
		}
		if !enabled {
			continue
		}
		loc := r.locationFor(cand.ProviderTimezone)
		apptID := cand.ID
		sent, err := r.sentToday(ctx, cand.ProviderID, notify.KindSessionReminder, &apptID, nil, loc)
		if err != nil || sent {
			r.logCheckErr("session reminder", cand.ProviderID, err)
			continue
		}
		clientID := cand.ClientID
		r.publish(ctx, notify.Task{
			Kind:          notify.KindSessionReminder,
			ProviderID:    cand.ProviderID,
			ClientID:      &clientID,
			AppointmentID: &apptID,
			Instance:      cand.ProviderInstance,
			Destination:   cand.ClientPhone,
			Message:       notify.SessionReminder(cand.Appointment, loc),
			Bulk:          true,
		})
	}
}

func (r *Runner) runContractExpiry(ctx context.Context) {
	if r.expiry == nil {
		return
	}
	// Once a day, alongside the morning summary hour.
	if r.now().In(r.cfg.DefaultLocation).Hour() != r.cfg.DailySummaryHour {
		return
	}
	now := r.now()
	expiring, err := r.expiry.ListExpiringWithin(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, r.cfg.ExpiryLookaheadDays))
	if err != nil {
		r.logger.Error("contract expiry scan failed", "error", err)
		return
	}
	settingsCache := make(map[uuid.UUID]bool)
	for _, ec := range expiring {
		if !ec.NotificationsEnabled || ec.ClientPhone == "" {
			continue
		}
		enabled, seen := settingsCache[ec.ProviderID]
		if !seen {
			enabled = true
			if r.settings != nil {
				if st, err := r.settings.Get(ctx, ec.ProviderID.String()); err == nil && st != nil {
					enabled = st.ExpiryRemindersEnabled
				}
			}
			settingsCache[ec.ProviderID] = enabled
		}
		if !enabled {
			continue
		}
		contractID := ec.ID
		sent, err := r.sentToday(ctx, ec.ProviderID, notify.KindContractExpiry, nil, &contractID, r.cfg.DefaultLocation)
		if err != nil || sent {
			r.logCheckErr("contract expiry", ec.ProviderID, err)
			continue
		}
		clientID := ec.ClientID
		r.publish(ctx, notify.Task{
			Kind:        notify.KindContractExpiry,
			ProviderID:  ec.ProviderID,
			ClientID:    &clientID,
			ContractID:  &contractID,
			Instance:    ec.ProviderInstance,
			Destination: ec.ClientPhone,
			Message:     notify.ContractExpiry(ec, now, r.cfg.DefaultLocation),
			Bulk:        true,
		})
	}
}

// runMaintenance purges aged notification-log rows and inbound hashes once a
// day. The deletes are idempotent, so the in-process day marker is only an
// optimization.
func (r *Runner) runMaintenance(ctx context.Context) {
	local := r.now().In(r.cfg.DefaultLocation)
	if local.Hour() != r.cfg.MaintenanceHour {
		return
	}
	day := local.Format("2006-01-02")
	if r.lastPurgeDay == day {
		return
	}
	r.lastPurgeDay = day
	cutoff := r.now().AddDate(0, 0, -r.cfg.RetentionDays)
	if n, err := r.log.PurgeOlderThan(ctx, cutoff); err != nil {
		r.logger.Error("notification log purge failed", "error", err)
	} else if n > 0 {
		r.logger.Info("notification log purged", "rows", n)
	}
	if r.hashes != nil {
		if n, err := r.hashes.PurgeOlderThan(ctx, cutoff); err != nil {
			r.logger.Error("inbound hash purge failed", "error", err)
		} else if n > 0 {
			r.logger.Info("inbound hashes purged", "rows", n)
		}
	}
}

func (r *Runner) publish(ctx context.Context, task notify.Task) {
	if err := r.publisher.Publish(ctx, task); err != nil {
		r.logger.Error("trigger enqueue failed",
			"kind", task.Kind,
			"provider_id", task.ProviderID,
			"error", err)
	}
}

func (r *Runner) logCheckErr(scan string, providerID uuid.UUID, err error) {
	if err != nil {
		r.logger.Error("trigger dedup check failed",
			"scan", scan,
			"provider_id", providerID,
			"error", err)
	}
}
