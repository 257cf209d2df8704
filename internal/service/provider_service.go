package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"go.uber.org/zap"
)

// ProviderService is the registry side: it maps a party to its provider record.
type ProviderService struct {
	providers repository.ProviderStore
	logger    *zap.Logger
}

func NewProviderService(providers repository.ProviderStore, logger *zap.Logger) *ProviderService {
	return &ProviderService{
		providers: providers,
		logger:    logger,
	}
}

// Register регистрирует сторону как провайдера услуги
func (s *ProviderService) Register(ctx context.Context, partyID int64, serviceType, bio string) (*model.Provider, error) {
	provider := &model.Provider{
		PartyID:     partyID,
		ServiceType: strings.TrimSpace(serviceType),
		Bio:         strings.TrimSpace(bio),
	}

	if err := s.providers.Create(ctx, provider); err != nil {
		if errors.Is(err, repository.ErrDuplicateProvider) {
			return nil, ErrProviderExists
		}
		return nil, fmt.Errorf("create provider: %w", err)
	}

	s.logger.Info("Provider registered",
		zap.Int64("provider_id", provider.ID),
		zap.Int64("party_id", partyID),
		zap.String("service_type", provider.ServiceType),
	)

	return provider, nil
}

// GetByPartyID возвращает провайдера стороны или ErrProviderNotFound
func (s *ProviderService) GetByPartyID(ctx context.Context, partyID int64) (*model.Provider, error) {
	provider, err := s.providers.GetByPartyID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

func (s *ProviderService) GetByID(ctx context.Context, id int64) (*model.Provider, error) {
	provider, err := s.providers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}
