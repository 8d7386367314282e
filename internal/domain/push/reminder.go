package push

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/visitregistry/visitregistry/internal/domain/registry"
)

// PatientSource is the slice of the registry the reminder engine needs.
type PatientSource interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ListPatientsWithVisits(ctx context.Context, userID string) ([]*registry.Patient, error)
	MarkNotified(ctx context.Context, patientID int64, at time.Time) error
}

// ReminderEngine periodically sweeps every patient and pushes a follow-up
// reminder when the last visit has gone stale. Reminders are edge-triggered:
// once a patient is notified, the engine stays quiet for the cooldown window
// instead of re-firing on every sweep.
type ReminderEngine struct {
	patients   PatientSource
	dispatcher *Dispatcher
	interval   time.Duration
	cooldown   time.Duration
	logger     zerolog.Logger

	kick chan struct{}
	now  func() time.Time
}

func NewReminderEngine(patients PatientSource, dispatcher *Dispatcher, interval, cooldown time.Duration, logger zerolog.Logger) *ReminderEngine {
	return &ReminderEngine{
		patients:   patients,
		dispatcher: dispatcher,
		interval:   interval,
		cooldown:   cooldown,
		logger:     logger,
		kick:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Kick requests an out-of-band sweep, typically after a visit mutation.
// Non-blocking; a sweep already pending absorbs the request.
func (e *ReminderEngine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Start runs the sweep loop until the context is cancelled.
func (e *ReminderEngine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info().Dur("interval", e.interval).Dur("cooldown", e.cooldown).Msg("reminder engine started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("reminder engine stopped")
			return
		case <-ticker.C:
		case <-e.kick:
		}
		if err := e.Sweep(ctx); err != nil {
			e.logger.Error().Err(err).Msg("reminder sweep failed")
		}
	}
}

// Sweep evaluates every patient of every user once.
func (e *ReminderEngine) Sweep(ctx context.Context) error {
	userIDs, err := e.patients.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	now := e.now()
	for _, userID := range userIDs {
		if err := e.sweepUser(ctx, userID, now); err != nil {
			e.logger.Error().Err(err).Str("user_id", userID).Msg("user sweep failed")
		}
	}
	return nil
}

func (e *ReminderEngine) sweepUser(ctx context.Context, userID string, now time.Time) error {
	patients, err := e.patients.ListPatientsWithVisits(ctx, userID)
	if err != nil {
		return fmt.Errorf("list patients: %w", err)
	}

	for _, p := range patients {
		res := registry.IsLastVisitOld(p.Visits, now)
		if !res.IsOld {
			continue
		}
		if p.LastNotifiedAt != nil && now.Sub(*p.LastNotifiedAt) < e.cooldown {
			continue
		}

		msg := ReminderMessage(p.FullName(), res.LastVisitDate)
		delivered, err := e.dispatcher.NotifyUser(ctx, userID, msg)
		if err != nil {
			e.logger.Error().Err(err).Int64("patient_id", p.ID).Msg("reminder dispatch failed")
			continue
		}
		e.logger.Info().
			Int64("patient_id", p.ID).
			Str("last_visit", res.LastVisitDate).
			Int("delivered", delivered).
			Msg("visit reminder sent")

		if err := e.patients.MarkNotified(ctx, p.ID, now); err != nil {
			e.logger.Error().Err(err).Int64("patient_id", p.ID).Msg("mark notified failed")
		}
	}
	return nil
}

// ReminderMessage builds the notification shown to the clinician.
func ReminderMessage(patientName, lastVisitDate string) Message {
	return Message{
		Title: "Promemoria Visita Paziente",
		Body:  fmt.Sprintf("%s non ha visite da %s. Potrebbe essere necessario un controllo.", patientName, lastVisitDate),
	}
}
