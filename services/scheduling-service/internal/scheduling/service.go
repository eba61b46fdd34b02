// Package scheduling implements the appointment lifecycle: booking with
// conflict admission, updates, cancellation, reschedule, status
// transitions and removal. All writes go through transactional storage
// and emit outbox events in the same transaction.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/availability"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/model"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

type Service struct {
	store     Store
	directory Directory
	logger    *slog.Logger
	slotCfg   availability.SlotConfig
	now       func() time.Time
}

func New(store Store, directory Directory, logger *slog.Logger, slotCfg availability.SlotConfig) *Service {
	if slotCfg.SlotMinutes <= 0 {
		slotCfg = availability.DefaultSlotConfig()
	}
	return &Service{
		store:     store,
		directory: directory,
		logger:    logger,
		slotCfg:   slotCfg,
		now:       time.Now,
	}
}

// CreateInput carries a booking request. ActorID identifies who books and
// is required; there is no fallback actor.
type CreateInput struct {
	ClientID       string
	ProfessionalID string
	ServiceID      string
	Date           string
	StartTime      string
	Type           model.Type
	Priority       model.Priority
	Notes          string
	ActorID        string
}

// Create books an appointment. The availability check and the insert run
// in one transaction under the date's booking lock, so two concurrent
// requests for the same slot cannot both pass admission.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	if in.ClientID == "" || in.ServiceID == "" || in.Date == "" || in.StartTime == "" {
		return model.Appointment{}, fmt.Errorf("%w: client_id, service_id, date and start_time are required", ErrInvalidInput)
	}
	if in.ActorID == "" {
		return model.Appointment{}, fmt.Errorf("%w: actor_id is required", ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = model.TypeService
	}
	if !model.ValidType(in.Type) {
		return model.Appointment{}, fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, in.Type)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityNormal
	}
	if !model.ValidPriority(in.Priority) {
		return model.Appointment{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}
	if _, err := timegrid.ParseDate(in.Date); err != nil {
		return model.Appointment{}, err
	}
	start, err := timegrid.ParseClock(in.StartTime)
	if err != nil {
		return model.Appointment{}, err
	}

	if err := s.requireClient(ctx, in.ClientID); err != nil {
		return model.Appointment{}, err
	}
	if in.ProfessionalID != "" {
		if err := s.requireProfessional(ctx, in.ProfessionalID); err != nil {
			return model.Appointment{}, err
		}
	}
	svc, err := s.requireService(ctx, in.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}

	end := start.AddMinutes(svc.DurationMinutes)
	now := s.now().UTC()
	appt := model.Appointment{
		ID:              uuid.NewString(),
		ClientID:        in.ClientID,
		ProfessionalID:  in.ProfessionalID,
		ServiceID:       in.ServiceID,
		Date:            in.Date,
		StartTime:       start.String(),
		EndTime:         end.String(),
		DurationMinutes: svc.DurationMinutes,
		Type:            in.Type,
		Priority:        in.Priority,
		Status:          model.StatusScheduled,
		Notes:           in.Notes,
		CreatedBy:       in.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.store.WithSlotLock(ctx, in.Date, func(tx StoreTx) error {
		ok, err := availability.NewChecker(tx, tx).IsAvailable(ctx, availability.Query{
			Date:           in.Date,
			Start:          start,
			End:            end,
			ProfessionalID: in.ProfessionalID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s-%s: %w", in.Date, appt.StartTime, appt.EndTime, ErrConflict)
		}
		if err := tx.Insert(ctx, &appt); err != nil {
			return err
		}
		if err := tx.Emit(ctx, appointmentEvent(EventAppointmentBooked, appt, svc.Price, "", in.ActorID)); err != nil {
			return err
		}
		return s.emitReminders(ctx, tx, appt)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"date", appt.Date,
		"start_time", appt.StartTime,
		"professional_id", appt.ProfessionalID,
	)
	return appt, nil
}

func (s *Service) emitReminders(ctx context.Context, tx StoreTx, appt model.Appointment) error {
	start, err := timegrid.ParseClock(appt.StartTime)
	if err != nil {
		return err
	}
	at, err := timegrid.At(appt.Date, start)
	if err != nil {
		return err
	}
	for _, r := range reminderOffsets {
		if err := tx.Emit(ctx, reminderEvent(appt, r.Kind, at.Add(-r.Before))); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInput patches an appointment. Nil fields are left unchanged.
type UpdateInput struct {
	ProfessionalID *string
	ServiceID      *string
	Date           *string
	StartTime      *string
	Type           *model.Type
	Priority       *model.Priority
	Notes          *string
	ActorID        string
}

// Update edits appointment details. It deliberately does not re-run the
// availability check, so the front desk can move an appointment onto an
// occupied slot on purpose; callers wanting admission use Reschedule.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (model.Appointment, error) {
	if in.ActorID == "" {
		return model.Appointment{}, fmt.Errorf("%w: actor_id is required", ErrInvalidInput)
	}

	if in.ProfessionalID != nil && *in.ProfessionalID != "" {
		if err := s.requireProfessional(ctx, *in.ProfessionalID); err != nil {
			return model.Appointment{}, err
		}
	}
	var svc *CatalogService
	if in.ServiceID != nil {
		resolved, err := s.requireService(ctx, *in.ServiceID)
		if err != nil {
			return model.Appointment{}, err
		}
		svc = &resolved
	}

	var out model.Appointment
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		appt, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.ProfessionalID != nil {
			appt.ProfessionalID = *in.ProfessionalID
		}
		if svc != nil {
			appt.ServiceID = svc.ID
			appt.DurationMinutes = svc.DurationMinutes
		}
		if in.Date != nil {
			if _, err := timegrid.ParseDate(*in.Date); err != nil {
				return err
			}
			appt.Date = *in.Date
		}
		if in.StartTime != nil {
			if _, err := timegrid.ParseClock(*in.StartTime); err != nil {
				return err
			}
			appt.StartTime = *in.StartTime
		}
		if in.Type != nil {
			if !model.ValidType(*in.Type) {
				return fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, *in.Type)
			}
			appt.Type = *in.Type
		}
		if in.Priority != nil {
			if !model.ValidPriority(*in.Priority) {
				return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *in.Priority)
			}
			appt.Priority = *in.Priority
		}
		if in.Notes != nil {
			appt.Notes = *in.Notes
		}
		end, err := timegrid.ComputeEndTime(appt.StartTime, appt.DurationMinutes)
		if err != nil {
			return err
		}
		appt.EndTime = end
		appt.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		if err := tx.Emit(ctx, appointmentEvent(EventAppointmentUpdated, appt, "", "", in.ActorID)); err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Cancel marks an appointment cancelled and records the reason. Only
// scheduled and confirmed appointments can be cancelled; cancelling twice
// is an invalid transition.
func (s *Service) Cancel(ctx context.Context, id, reason, actorID string) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusCancelled, reason, actorID,
		model.StatusScheduled, model.StatusConfirmed)
}

// Confirm moves a scheduled appointment to confirmed, typically after the
// client answers a confirmation reminder.
func (s *Service) Confirm(ctx context.Context, id, actorID string) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusConfirmed, "", actorID, model.StatusScheduled)
}

// Complete marks the visit as done.
func (s *Service) Complete(ctx context.Context, id, actorID string) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusCompleted, "", actorID,
		model.StatusScheduled, model.StatusConfirmed)
}

// NoShow marks the client as absent, freeing the slot retroactively.
func (s *Service) NoShow(ctx context.Context, id, actorID string) (model.Appointment, error) {
	return s.transition(ctx, id, model.StatusNoShow, "", actorID,
		model.StatusScheduled, model.StatusConfirmed)
}

var statusEvents = map[model.Status]string{
	model.StatusConfirmed: EventAppointmentConfirmed,
	model.StatusCancelled: EventAppointmentCancelled,
	model.StatusCompleted: EventAppointmentCompleted,
	model.StatusNoShow:    EventAppointmentNoShow,
}

func (s *Service) transition(ctx context.Context, id string, to model.Status, reason, actorID string, from ...model.Status) (model.Appointment, error) {
	if actorID == "" {
		return model.Appointment{}, fmt.Errorf("%w: actor_id is required", ErrInvalidInput)
	}
	var out model.Appointment
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		appt, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		allowed := false
		for _, f := range from {
			if appt.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		now := s.now().UTC()
		if err := tx.SetStatus(ctx, id, to, reason, now); err != nil {
			return err
		}
		appt.Status = to
		appt.CancellationReason = reason
		appt.UpdatedAt = now

		var price string
		if to == model.StatusCompleted {
			svc, ok, err := s.directory.GetService(ctx, appt.ServiceID)
			if err != nil {
				s.logger.Error("service price lookup failed, completing without revenue",
					"appointment_id", id, "service_id", appt.ServiceID, "err", err)
			} else if ok {
				price = svc.Price
			}
		}
		if evt, ok := statusEvents[to]; ok {
			if err := tx.Emit(ctx, appointmentEvent(evt, appt, price, reason, actorID)); err != nil {
				return err
			}
		}
		out = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info("appointment status changed", "appointment_id", id, "status", string(to))
	return out, nil
}

// Reschedule cancels-and-replaces in one transaction: the original is
// marked rescheduled and a fresh appointment is created on the new slot
// with a link back to the original. Admission runs with the original
// excluded, so moving an appointment within its own interval works.
func (s *Service) Reschedule(ctx context.Context, id, newDate, newStart, actorID string) (model.Appointment, error) {
	if actorID == "" {
		return model.Appointment{}, fmt.Errorf("%w: actor_id is required", ErrInvalidInput)
	}
	if _, err := timegrid.ParseDate(newDate); err != nil {
		return model.Appointment{}, err
	}
	start, err := timegrid.ParseClock(newStart)
	if err != nil {
		return model.Appointment{}, err
	}

	var out model.Appointment
	err = s.store.WithSlotLock(ctx, newDate, func(tx StoreTx) error {
		orig, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if orig.Status != model.StatusScheduled && orig.Status != model.StatusConfirmed {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, orig.Status, model.StatusRescheduled)
		}

		end := start.AddMinutes(orig.DurationMinutes)
		ok, err := availability.NewChecker(tx, tx).IsAvailable(ctx, availability.Query{
			Date:                 newDate,
			Start:                start,
			End:                  end,
			ProfessionalID:       orig.ProfessionalID,
			ExcludeAppointmentID: orig.ID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s-%s: %w", newDate, start, end, ErrConflict)
		}

		now := s.now().UTC()
		replacement := orig
		replacement.ID = uuid.NewString()
		replacement.Date = newDate
		replacement.StartTime = start.String()
		replacement.EndTime = end.String()
		replacement.Status = model.StatusScheduled
		replacement.CancellationReason = ""
		replacement.RescheduledFrom = orig.ID
		replacement.CreatedBy = actorID
		replacement.CreatedAt = now
		replacement.UpdatedAt = now

		reason := "rescheduled to " + newDate + " " + start.String()
		if err := tx.SetStatus(ctx, orig.ID, model.StatusRescheduled, reason, now); err != nil {
			return err
		}
		if err := tx.Insert(ctx, &replacement); err != nil {
			return err
		}
		if err := tx.Emit(ctx, appointmentEvent(EventAppointmentRescheduled, replacement, "", "", actorID)); err != nil {
			return err
		}
		if err := s.emitReminders(ctx, tx, replacement); err != nil {
			return err
		}
		out = replacement
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment rescheduled",
		"appointment_id", id,
		"replacement_id", out.ID,
		"date", out.Date,
		"start_time", out.StartTime,
	)
	return out, nil
}

// Remove hard-deletes an appointment. Prefer Cancel; Remove exists for
// administrative cleanup of bad data.
func (s *Service) Remove(ctx context.Context, id, actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor_id is required", ErrInvalidInput)
	}
	return s.store.WithTx(ctx, func(tx StoreTx) error {
		deleted, err := tx.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByDate(ctx context.Context, date, professionalID string) ([]model.Appointment, error) {
	if _, err := timegrid.ParseDate(date); err != nil {
		return nil, err
	}
	return s.store.ListByDate(ctx, date, professionalID)
}

func (s *Service) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	return s.store.ListByClient(ctx, clientID, limit)
}

// Slots lists bookable and occupied start times for a date. Naming a
// service sizes the candidate interval to its duration; otherwise one
// slot width is assumed.
func (s *Service) Slots(ctx context.Context, date, professionalID, serviceID string) (availability.DaySlots, error) {
	if _, err := timegrid.ParseDate(date); err != nil {
		return availability.DaySlots{}, err
	}
	duration := 0
	if serviceID != "" {
		svc, err := s.requireService(ctx, serviceID)
		if err != nil {
			return availability.DaySlots{}, err
		}
		duration = svc.DurationMinutes
	}
	var out availability.DaySlots
	err := s.store.WithTx(ctx, func(tx StoreTx) error {
		gen := availability.NewGenerator(availability.NewChecker(tx, tx), tx, s.slotCfg)
		slots, err := gen.Slots(ctx, date, professionalID, duration)
		if err != nil {
			return err
		}
		out = slots
		return nil
	})
	if err != nil {
		return availability.DaySlots{}, err
	}
	return out, nil
}

func (s *Service) requireClient(ctx context.Context, id string) error {
	ok, err := s.directory.ClientExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Service) requireProfessional(ctx context.Context, id string) error {
	ok, err := s.directory.ProfessionalExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("professional %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Service) requireService(ctx context.Context, id string) (CatalogService, error) {
	svc, ok, err := s.directory.GetService(ctx, id)
	if err != nil {
		return CatalogService{}, err
	}
	if !ok || !svc.Active {
		return CatalogService{}, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	return svc, nil
}
