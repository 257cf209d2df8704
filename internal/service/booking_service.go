package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/notify"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"go.uber.org/zap"
)

const (
	requesterSubject = "Your Appointment Confirmation"
	providerSubject  = "New Appointment Booking"
)

type BookingService struct {
	store    repository.Store
	notifier notify.Notifier
	loc      *time.Location
	logger   *zap.Logger
}

func NewBookingService(
	store repository.Store,
	notifier notify.Notifier,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		store:    store,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
	}
}

// BookSlot бронирует слот. Among concurrent callers for one slot exactly one
// gets the appointment and the rest get ErrAlreadyBooked. Storage failures
// come back as ErrBookingFailed with nothing committed, so retrying is safe.
func (s *BookingService) BookSlot(ctx context.Context, requesterID, slotID int64, urgency model.Urgency) (*model.Appointment, error) {
	if urgency == "" {
		urgency = model.UrgencyNormal
	}
	if !urgency.Valid() {
		return nil, ErrInvalidUrgency
	}

	var appointment *model.Appointment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		slot, err := tx.ClaimSlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("claim slot: %w", err)
		}
		if slot == nil {
			return ErrSlotNotFound
		}
		if slot.Booked {
			return ErrAlreadyBooked
		}

		if err := tx.MarkSlotBooked(ctx, slotID); err != nil {
			return fmt.Errorf("mark slot booked: %w", err)
		}

		appointment = model.NewAppointment(requesterID, slot, urgency)
		if err := tx.CreateAppointment(ctx, appointment); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrSlotNotFound):
		return nil, err
	case errors.Is(err, ErrAlreadyBooked),
		errors.Is(err, repository.ErrSlotTaken),
		errors.Is(err, repository.ErrDuplicateAppointment):
		s.logger.Info("Slot already booked",
			zap.Int64("slot_id", slotID),
			zap.Int64("requester_id", requesterID),
		)
		return nil, ErrAlreadyBooked
	default:
		s.logger.Error("Booking failed",
			zap.Int64("slot_id", slotID),
			zap.Int64("requester_id", requesterID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrBookingFailed, err)
	}

	s.logger.Info("Slot booked",
		zap.Int64("appointment_id", appointment.ID),
		zap.Int64("requester_id", requesterID),
		zap.Int64("provider_id", appointment.ProviderID),
		zap.Int64("slot_id", slotID),
		zap.String("urgency", string(appointment.Urgency)),
	)

	s.notifyBooked(ctx, appointment)

	return appointment, nil
}

// notifyBooked tells both sides about the booking. It runs after commit and
// only logs failures: the booking stands regardless.
func (s *BookingService) notifyBooked(ctx context.Context, a *model.Appointment) {
	if s.notifier == nil {
		return
	}

	serviceType := "appointment"
	provider, err := s.store.Providers().GetByID(ctx, a.ProviderID)
	if err != nil {
		s.logger.Warn("Failed to load provider for notification",
			zap.Int64("provider_id", a.ProviderID),
			zap.Error(err),
		)
	}
	if provider != nil && provider.ServiceType != "" {
		serviceType = provider.ServiceType
	}

	when := a.Start.In(s.loc).Format("Mon 02 Jan 2006 15:04 MST")

	requesterBody := fmt.Sprintf("Your %s appointment #%d is confirmed for %s.", serviceType, a.ID, when)
	if err := s.notifier.Notify(ctx, a.RequesterID, requesterSubject, requesterBody); err != nil {
		s.logger.Warn("Failed to notify requester",
			zap.Int64("appointment_id", a.ID),
			zap.Int64("party_id", a.RequesterID),
			zap.Error(err),
		)
	}

	if provider == nil {
		return
	}
	providerBody := fmt.Sprintf("New %s appointment #%d booked for %s (urgency: %s).", serviceType, a.ID, when, a.Urgency)
	if err := s.notifier.Notify(ctx, provider.PartyID, providerSubject, providerBody); err != nil {
		s.logger.Warn("Failed to notify provider",
			zap.Int64("appointment_id", a.ID),
			zap.Int64("party_id", provider.PartyID),
			zap.Error(err),
		)
	}
}

// GetAppointment получает запись по ID
func (s *BookingService) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	appointment, err := s.store.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appointment == nil {
		return nil, ErrNotFound
	}
	return appointment, nil
}

// ListForRequester получает записи клиента
func (s *BookingService) ListForRequester(ctx context.Context, requesterID int64) ([]*model.Appointment, error) {
	appointments, err := s.store.Appointments().ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// ListForProvider получает записи к провайдеру
func (s *BookingService) ListForProvider(ctx context.Context, providerID int64) ([]*model.Appointment, error) {
	appointments, err := s.store.Appointments().ListByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}
