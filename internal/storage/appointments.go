package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lumera/salonbook/internal/availability"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/libs/db"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

// Create inserts the appointment and its booked event atomically. The
// exclusion constraint on (staff_id, time range) serializes the
// check-then-insert sequence: when two bookings race for one interval the
// loser gets ErrSlotConflict instead of a second row.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, customer_id, staff_id, service_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, appt.ID, appt.CustomerID, appt.StaffID, appt.ServiceID, appt.StartTime, appt.EndTime, appt.Status).Scan(&appt.CreatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrSlotConflict
		}
		return err
	}

	evt.AggregateID = appt.ID
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT a.id::text, a.customer_id::text, a.staff_id::text, a.service_id::text,
			a.start_time, a.end_time, a.status, a.cancelled_at, a.created_at,
			cp.full_name, sp.full_name, sv.name
		FROM appointments a
		JOIN profiles cp ON cp.id = a.customer_id
		JOIN staff st ON st.id = a.staff_id
		JOIN profiles sp ON sp.id = st.profile_id
		JOIN services sv ON sv.id = a.service_id
		WHERE a.id = $1
	`, id).Scan(
		&appt.ID, &appt.CustomerID, &appt.StaffID, &appt.ServiceID,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.CancelledAt, &appt.CreatedAt,
		&appt.CustomerName, &appt.StaffName, &appt.ServiceName,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus applies a transition that was already validated against the
// state machine. The WHERE clause re-checks the from-status so a concurrent
// transition surfaces as ErrStatusChanged rather than silently overwriting.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.Status, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
			cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusChanged
	}

	evt.AggregateID = id
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListBookedIntervals returns the intervals that block a staff member's
// calendar within [from, to). Cancelled and finished appointments do not
// block.
func (r *AppointmentRepository) ListBookedIntervals(ctx context.Context, staffID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE staff_id = $1
			AND status IN ('pending', 'confirmed')
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
		WHERE a.customer_id = $1
		ORDER BY a.start_time DESC
		LIMIT $2
	`, customerID, limit)
}

// ListForStaffDay is the staff schedule view: everything on one staff
// member's calendar within [from, to), regardless of status.
func (r *AppointmentRepository) ListForStaffDay(ctx context.Context, staffID string, from, to time.Time) ([]model.Appointment, error) {
	return r.list(ctx, `
		WHERE a.staff_id = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time
	`, staffID, from, to)
}

// AdminFilter mirrors the filters of the admin appointments page.
type AdminFilter string

const (
	FilterAll       AdminFilter = "all"
	FilterUpcoming  AdminFilter = "upcoming"
	FilterPast      AdminFilter = "past"
	FilterCancelled AdminFilter = "cancelled"
	FilterConfirmed AdminFilter = "confirmed"
)

func ParseAdminFilter(s string) (AdminFilter, bool) {
	switch AdminFilter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterUpcoming, FilterPast, FilterCancelled, FilterConfirmed:
		return AdminFilter(s), true
	default:
		return "", false
	}
}

func (r *AppointmentRepository) ListAdmin(ctx context.Context, filter AdminFilter, now time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	switch filter {
	case FilterUpcoming:
		return r.list(ctx, `
			WHERE a.start_time >= $1 AND a.status IN ('confirmed', 'pending')
			ORDER BY a.start_time
			LIMIT $2
		`, now, limit)
	case FilterPast:
		return r.list(ctx, `
			WHERE a.start_time < $1 AND a.status IN ('completed', 'cancelled', 'no-show')
			ORDER BY a.start_time DESC
			LIMIT $2
		`, now, limit)
	case FilterCancelled:
		return r.list(ctx, `
			WHERE a.status = 'cancelled'
			ORDER BY a.start_time DESC
			LIMIT $1
		`, limit)
	case FilterConfirmed:
		return r.list(ctx, `
			WHERE a.status = 'confirmed'
			ORDER BY a.start_time DESC
			LIMIT $1
		`, limit)
	default:
		return r.list(ctx, `
			ORDER BY a.start_time DESC
			LIMIT $1
		`, limit)
	}
}

func (r *AppointmentRepository) list(ctx context.Context, tail string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.customer_id::text, a.staff_id::text, a.service_id::text,
			a.start_time, a.end_time, a.status, a.cancelled_at, a.created_at,
			cp.full_name, sp.full_name, sv.name
		FROM appointments a
		JOIN profiles cp ON cp.id = a.customer_id
		JOIN staff st ON st.id = a.staff_id
		JOIN profiles sp ON sp.id = st.profile_id
		JOIN services sv ON sv.id = a.service_id
	`+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID, &appt.CustomerID, &appt.StaffID, &appt.ServiceID,
			&appt.StartTime, &appt.EndTime, &appt.Status, &appt.CancelledAt, &appt.CreatedAt,
			&appt.CustomerName, &appt.StaffName, &appt.ServiceName,
		); err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}
