package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"go.uber.org/zap"
)

// SlotPolicy holds the publish rules that differ between deployments.
type SlotPolicy struct {
	// RejectPastStart refuses slots starting before Now().
	RejectPastStart bool
	Now             func() time.Time
}

type SlotService struct {
	store  repository.Store
	policy SlotPolicy
	logger *zap.Logger
}

func NewSlotService(store repository.Store, policy SlotPolicy, logger *zap.Logger) *SlotService {
	if policy.Now == nil {
		policy.Now = time.Now
	}
	return &SlotService{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

// PublishSlot создаёт слот для провайдера. The overlap check and the insert run
// under the provider lock, so two concurrent publishes cannot both pass the check.
func (s *SlotService) PublishSlot(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}
	if s.policy.RejectPastStart && start.Before(s.policy.Now()) {
		return nil, ErrPastStartTime
	}

	slot := &model.Slot{
		ProviderID: providerID,
		Start:      start,
		End:        end,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		provider, err := tx.LockProvider(ctx, providerID)
		if err != nil {
			return fmt.Errorf("lock provider: %w", err)
		}
		if provider == nil {
			return ErrProviderNotFound
		}

		conflict, err := tx.FindOverlapping(ctx, providerID, start, end)
		if err != nil {
			return fmt.Errorf("find overlapping slot: %w", err)
		}
		if conflict != nil {
			return &OverlapError{Conflict: conflict}
		}

		return tx.CreateSlot(ctx, slot)
	})
	if err != nil {
		var overlap *OverlapError
		if errors.As(err, &overlap) {
			s.logger.Info("Slot rejected, overlaps existing slot",
				zap.Int64("provider_id", providerID),
				zap.Int64("conflict_slot_id", overlap.Conflict.ID),
			)
			return nil, err
		}
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("publish slot: %w", err)
	}

	s.logger.Info("Slot published",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("provider_id", providerID),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	return slot, nil
}

// ListSlots returns slots of one provider, or of all providers when providerID is nil.
func (s *SlotService) ListSlots(ctx context.Context, providerID *int64) ([]*model.Slot, error) {
	return s.ListProviderSlots(ctx, providerID, time.Time{}, time.Time{})
}

// ListProviderSlots narrows ListSlots to starts within [from, to]. Zero bounds are open.
func (s *SlotService) ListProviderSlots(ctx context.Context, providerID *int64, from, to time.Time) ([]*model.Slot, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidRange
	}

	slots, err := s.store.Slots().List(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// GetSlot получает слот по ID
func (s *SlotService) GetSlot(ctx context.Context, id int64) (*model.Slot, error) {
	slot, err := s.store.Slots().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}
