package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

const slotColumns = `s.id, s.provider_id, s.start_time, s.end_time, s.is_booked, s.created_at`

type slotRepo struct {
	q   querier
	now func() time.Time
}

func (r *slotRepo) create(ctx context.Context, slot *model.Slot) error {
	createdAt := r.now()
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO slots (provider_id, start_time, end_time, is_booked, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, slot.ProviderID, toMillis(slot.Start), toMillis(slot.End), slot.Booked, toMillis(createdAt)).Scan(&slot.ID)
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	slot.CreatedAt = fromMillis(toMillis(createdAt))
	return nil
}

func (r *slotRepo) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	slot, err := scanSlot(r.q.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots s WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

func (r *slotRepo) findOverlapping(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	slot, err := scanSlot(r.q.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE s.provider_id = ?
		  AND s.start_time < ?
		  AND s.end_time > ?
		ORDER BY s.start_time
		LIMIT 1
	`, providerID, toMillis(end), toMillis(start)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping slot: %w", err)
	}
	return slot, nil
}

func (r *slotRepo) List(ctx context.Context, providerID *int64, from, to time.Time) ([]*model.Slot, error) {
	var (
		conds []string
		args  []any
	)
	if providerID != nil {
		conds = append(conds, "s.provider_id = ?")
		args = append(args, *providerID)
	}
	if !from.IsZero() {
		conds = append(conds, "s.start_time >= ?")
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		conds = append(conds, "s.start_time <= ?")
		args = append(args, toMillis(to))
	}

	query := `SELECT ` + slotColumns + ` FROM slots s`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY s.start_time, s.id`

	return r.query(ctx, "list slots", query, args...)
}

func (r *slotRepo) ListFree(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	args := []any{toMillis(filter.From), toMillis(filter.To)}
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		JOIN providers p ON p.id = s.provider_id
		WHERE s.is_booked = 0
		  AND s.start_time >= ?
		  AND s.start_time <= ?
	`
	switch {
	case filter.ProviderID != nil:
		query += ` AND s.provider_id = ?`
		args = append(args, *filter.ProviderID)
	case filter.ServiceType != "":
		query += ` AND instr(lower(p.service_type), lower(?)) > 0`
		args = append(args, filter.ServiceType)
	}
	query += ` ORDER BY s.start_time, s.id`

	return r.query(ctx, "list free slots", query, args...)
}

func (r *slotRepo) markBooked(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE slots SET is_booked = 1 WHERE id = ? AND is_booked = 0`, id)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	if n == 0 {
		return repository.ErrSlotTaken
	}
	return nil
}

func (r *slotRepo) query(ctx context.Context, op, query string, args ...any) ([]*model.Slot, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner) (*model.Slot, error) {
	var (
		slot                  model.Slot
		start, end, createdAt int64
	)
	if err := row.Scan(&slot.ID, &slot.ProviderID, &start, &end, &slot.Booked, &createdAt); err != nil {
		return nil, err
	}
	slot.Start = fromMillis(start)
	slot.End = fromMillis(end)
	slot.CreatedAt = fromMillis(createdAt)
	return &slot, nil
}

const appointmentColumns = `id, requester_id, provider_id, slot_id, start_time, end_time, status, urgency, created_at`

type appointmentRepo struct {
	q   querier
	now func() time.Time
}

func (r *appointmentRepo) create(ctx context.Context, a *model.Appointment) error {
	createdAt := r.now()
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO appointments (requester_id, provider_id, slot_id, start_time, end_time, status, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		a.RequesterID, a.ProviderID, a.SlotID,
		toMillis(a.Start), toMillis(a.End),
		string(a.Status), string(a.Urgency), toMillis(createdAt),
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err, "appointments.slot_id") {
			return repository.ErrDuplicateAppointment
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	a.CreatedAt = fromMillis(toMillis(createdAt))
	return nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, "get appointment by id", `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
}

func (r *appointmentRepo) GetBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error) {
	return r.get(ctx, "get appointment by slot", `SELECT `+appointmentColumns+` FROM appointments WHERE slot_id = ?`, slotID)
}

func (r *appointmentRepo) ListByRequester(ctx context.Context, requesterID int64) ([]*model.Appointment, error) {
	return r.list(ctx, "list appointments by requester",
		`SELECT `+appointmentColumns+` FROM appointments WHERE requester_id = ? ORDER BY start_time, id`, requesterID)
}

func (r *appointmentRepo) ListByProvider(ctx context.Context, providerID int64) ([]*model.Appointment, error) {
	return r.list(ctx, "list appointments by provider",
		`SELECT `+appointmentColumns+` FROM appointments WHERE provider_id = ? ORDER BY start_time, id`, providerID)
}

func (r *appointmentRepo) get(ctx context.Context, op, query string, arg int64) (*model.Appointment, error) {
	a, err := scanAppointment(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (r *appointmentRepo) list(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanAppointment(row scanner) (*model.Appointment, error) {
	var (
		a                     model.Appointment
		status, urgency       string
		start, end, createdAt int64
	)
	err := row.Scan(&a.ID, &a.RequesterID, &a.ProviderID, &a.SlotID, &start, &end, &status, &urgency, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Start = fromMillis(start)
	a.End = fromMillis(end)
	a.Status = model.AppointmentStatus(status)
	a.Urgency = model.Urgency(urgency)
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

const providerColumns = `id, party_id, service_type, bio, created_at`

type providerRepo struct {
	q   querier
	now func() time.Time
}

func (r *providerRepo) Create(ctx context.Context, p *model.Provider) error {
	createdAt := r.now()
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO providers (party_id, service_type, bio, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, p.PartyID, p.ServiceType, p.Bio, toMillis(createdAt)).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err, "providers.party_id") {
			return repository.ErrDuplicateProvider
		}
		return fmt.Errorf("create provider: %w", err)
	}
	p.CreatedAt = fromMillis(toMillis(createdAt))
	return nil
}

func (r *providerRepo) GetByID(ctx context.Context, id int64) (*model.Provider, error) {
	return r.get(ctx, "get provider by id", `SELECT `+providerColumns+` FROM providers WHERE id = ?`, id)
}

func (r *providerRepo) GetByPartyID(ctx context.Context, partyID int64) (*model.Provider, error) {
	return r.get(ctx, "get provider by party", `SELECT `+providerColumns+` FROM providers WHERE party_id = ?`, partyID)
}

func (r *providerRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Provider, error) {
	out := make(map[int64]*model.Provider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get providers by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get providers by ids: %w", err)
	}
	return out, nil
}

func (r *providerRepo) get(ctx context.Context, op, query string, arg int64) (*model.Provider, error) {
	p, err := scanProvider(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func scanProvider(row scanner) (*model.Provider, error) {
	var (
		p         model.Provider
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.PartyID, &p.ServiceType, &p.Bio, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, created_at`

type userRepo struct {
	q   querier
	now func() time.Time
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	createdAt := r.now()
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, u.TelegramID, u.Username, u.FirstName, u.LastName, u.LanguageCode, toMillis(createdAt)).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = fromMillis(toMillis(createdAt))
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, language_code = ?
		WHERE id = ?
	`, u.Username, u.FirstName, u.LastName, u.LanguageCode, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.get(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.get(ctx, "get user by telegram id", `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
}

func (r *userRepo) get(ctx context.Context, op, query string, arg int64) (*model.User, error) {
	var (
		u         model.User
		createdAt int64
	)
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.LanguageCode, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}
