package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
)

const providerColumns = `id, party_id, service_type, bio, created_at`

type ProviderRepository struct {
	db base.DBTX
}

func NewProviderRepository(db base.DBTX) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// Create регистрирует провайдера. Один провайдер на одного участника
func (r *ProviderRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (party_id, service_type, bio)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		provider.PartyID,
		provider.ServiceType,
		provider.Bio,
	).Scan(&provider.ID, &provider.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, "providers_party_id_key") {
			return ErrDuplicateProvider
		}
		return fmt.Errorf("create provider: %w", err)
	}

	return nil
}

// GetByID получает провайдера по ID
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	provider, err := scanProvider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider by id: %w", err)
	}

	return provider, nil
}

// GetByIDForUpdate holds the provider row lock until the surrounding transaction ends.
func (r *ProviderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1 FOR UPDATE`

	provider, err := scanProvider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock provider: %w", err)
	}

	return provider, nil
}

// GetByPartyID получает провайдера по идентификатору участника
func (r *ProviderRepository) GetByPartyID(ctx context.Context, partyID int64) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE party_id = $1`

	provider, err := scanProvider(r.db.QueryRow(ctx, query, partyID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider by party id: %w", err)
	}

	return provider, nil
}

// GetByIDs получает провайдеров пачкой
func (r *ProviderRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Provider, error) {
	result := make(map[int64]*model.Provider, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get providers by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		result[provider.ID] = provider
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get providers by ids: %w", err)
	}

	return result, nil
}

func scanProvider(row base.Scanner) (*model.Provider, error) {
	var p model.Provider
	err := row.Scan(
		&p.ID,
		&p.PartyID,
		&p.ServiceType,
		&p.Bio,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
