package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"go.uber.org/zap"
)

// AvailabilityService answers discovery queries over free slots.
type AvailabilityService struct {
	slots     repository.SlotStore
	providers repository.ProviderStore
	loc       *time.Location
	logger    *zap.Logger
}

// NewAvailabilityService creates the planner. loc is where preference bands
// are evaluated; nil means UTC.
func NewAvailabilityService(
	slots repository.SlotStore,
	providers repository.ProviderStore,
	loc *time.Location,
	logger *zap.Logger,
) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{
		slots:     slots,
		providers: providers,
		loc:       loc,
		logger:    logger,
	}
}

// QuerySlots returns free slots in the range, ascending by start. With a
// preference, slots whose local start hour falls in the band come first;
// nothing is ever filtered out by the preference.
func (s *AvailabilityService) QuerySlots(ctx context.Context, filter model.SlotFilter, pref model.Preference) ([]model.AnnotatedSlot, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, ErrMissingRange
	}
	if filter.From.After(filter.To) {
		return nil, ErrInvalidRange
	}
	if _, err := model.ParsePreference(string(pref)); err != nil {
		return nil, ErrInvalidPreference
	}

	free, err := s.slots.ListFree(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}

	providers, err := s.providers.GetByIDs(ctx, providerIDs(free))
	if err != nil {
		return nil, fmt.Errorf("get providers: %w", err)
	}

	matched := make([]model.AnnotatedSlot, 0, len(free))
	var rest []model.AnnotatedSlot
	for _, slot := range free {
		annotated := model.AnnotatedSlot{
			Slot:     slot,
			Provider: providers[slot.ProviderID],
		}
		if pref.MatchesHour(slot.Start.In(s.loc).Hour()) {
			annotated.MatchedPreference = true
			matched = append(matched, annotated)
			continue
		}
		rest = append(rest, annotated)
	}

	s.logger.Debug("Availability query",
		zap.Int("matched", len(matched)),
		zap.Int("other", len(rest)),
		zap.String("preference", string(pref)),
	)

	return append(matched, rest...), nil
}

func providerIDs(slots []*model.Slot) []int64 {
	seen := make(map[int64]struct{}, len(slots))
	ids := make([]int64, 0, len(slots))
	for _, slot := range slots {
		if _, ok := seen[slot.ProviderID]; ok {
			continue
		}
		seen[slot.ProviderID] = struct{}{}
		ids = append(ids, slot.ProviderID)
	}
	return ids
}
