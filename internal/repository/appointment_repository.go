package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
)

const appointmentColumns = `id, requester_id, provider_id, slot_id, start_time, end_time, status, urgency, created_at`

type AppointmentRepository struct {
	db base.DBTX
}

func NewAppointmentRepository(db base.DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create создаёт новую запись. Вторая запись на тот же слот даёт ErrDuplicateAppointment
func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (requester_id, provider_id, slot_id, start_time, end_time, status, urgency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		appointment.RequesterID,
		appointment.ProviderID,
		appointment.SlotID,
		appointment.Start,
		appointment.End,
		appointment.Status,
		appointment.Urgency,
	).Scan(&appointment.ID, &appointment.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, "appointments_slot_id_key") {
			return ErrDuplicateAppointment
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appointment, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appointment, nil
}

// GetBySlotID получает запись для слота
func (r *AppointmentRepository) GetBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE slot_id = $1`

	appointment, err := scanAppointment(r.db.QueryRow(ctx, query, slotID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by slot: %w", err)
	}

	return appointment, nil
}

// ListByRequester получает все записи клиента
func (r *AppointmentRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE requester_id = $1
		ORDER BY start_time
	`
	return r.list(ctx, "list appointments by requester", query, requesterID)
}

// ListByProvider получает все записи к провайдеру
func (r *AppointmentRepository) ListByProvider(ctx context.Context, providerID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		ORDER BY start_time
	`
	return r.list(ctx, "list appointments by provider", query, providerID)
}

func (r *AppointmentRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

func scanAppointment(row base.Scanner) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.RequesterID,
		&a.ProviderID,
		&a.SlotID,
		&a.Start,
		&a.End,
		&a.Status,
		&a.Urgency,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
