package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
)

const slotColumns = `s.id, s.provider_id, s.start_time, s.end_time, s.is_booked, s.created_at`

type SlotRepository struct {
	db base.DBTX
}

func NewSlotRepository(db base.DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (provider_id, start_time, end_time, is_booked)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.ProviderID,
		slot.Start,
		slot.End,
		slot.Booked,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByIDForUpdate reads the slot and holds its row lock until the surrounding
// transaction ends. Only meaningful when r is bound to a pgx.Tx.
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = $1 FOR UPDATE`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	return slot, nil
}

// FindOverlapping returns the earliest slot of the provider intersecting [start, end), booked or not.
func (r *SlotRepository) FindOverlapping(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		WHERE s.provider_id = $1
		  AND s.start_time < $3
		  AND s.end_time > $2
		ORDER BY s.start_time
		LIMIT 1
	`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, providerID, start, end))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping slot: %w", err)
	}

	return slot, nil
}

// List получает слоты, опционально для одного провайдера и в диапазоне
func (r *SlotRepository) List(ctx context.Context, providerID *int64, from, to time.Time) ([]*model.Slot, error) {
	var (
		conds []string
		args  []any
	)
	if providerID != nil {
		args = append(args, *providerID)
		conds = append(conds, fmt.Sprintf("s.provider_id = $%d", len(args)))
	}
	if !from.IsZero() {
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("s.start_time >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("s.start_time <= $%d", len(args)))
	}

	query := `SELECT ` + slotColumns + ` FROM slots s`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY s.start_time, s.id`

	return r.query(ctx, "list slots", query, args...)
}

// ListFree получает свободные слоты по фильтру
func (r *SlotRepository) ListFree(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	args := []any{filter.From, filter.To}
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		JOIN providers p ON p.id = s.provider_id
		WHERE s.is_booked = FALSE
		  AND s.start_time >= $1
		  AND s.start_time <= $2
	`

	switch {
	case filter.ProviderID != nil:
		args = append(args, *filter.ProviderID)
		query += fmt.Sprintf(" AND s.provider_id = $%d", len(args))
	case filter.ServiceType != "":
		// strpos instead of ILIKE so that % and _ in user input stay literal
		args = append(args, filter.ServiceType)
		query += fmt.Sprintf(" AND strpos(lower(p.service_type), lower($%d)) > 0", len(args))
	}
	query += ` ORDER BY s.start_time, s.id`

	return r.query(ctx, "list free slots", query, args...)
}

// MarkBooked переводит слот в занятый. Повторный вызов возвращает ErrSlotTaken
func (r *SlotRepository) MarkBooked(ctx context.Context, id int64) error {
	query := `
		UPDATE slots
		SET is_booked = TRUE
		WHERE id = $1 AND is_booked = FALSE
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSlotTaken
	}

	return nil
}

func (r *SlotRepository) query(ctx context.Context, op, query string, args ...any) ([]*model.Slot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

func scanSlot(row base.Scanner) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.ProviderID,
		&slot.Start,
		&slot.End,
		&slot.Booked,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
