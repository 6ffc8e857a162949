package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/libs/db"
)

type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateService(ctx context.Context, svc *model.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, description, duration_minutes, price, category, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, svc.ID, svc.Name, svc.Description, svc.DurationMins, svc.Price, svc.Category, svc.IsActive)
	return err
}

func (r *CatalogRepository) UpdateService(ctx context.Context, svc model.Service) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services
		SET name = $2,
			description = $3,
			duration_minutes = $4,
			price = $5,
			category = $6,
			is_active = $7
		WHERE id = $1
	`, svc.ID, svc.Name, svc.Description, svc.DurationMins, svc.Price, svc.Category, svc.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, description, duration_minutes, price::text, category, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.Category, &svc.IsActive)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, includeInactive bool) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, description, duration_minutes, price::text, category, is_active
		FROM services
		WHERE is_active OR $1
		ORDER BY category, name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.Category, &svc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// CreateStaff inserts the linked profile, the staff row, and a default
// Mon-Fri 09:00-17:00 weekly template in one transaction, so a freshly
// created stylist is immediately bookable once services are assigned.
func (r *CatalogRepository) CreateStaff(ctx context.Context, profile *model.Profile, specialization string) (model.Staff, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.Role = model.RoleStaff

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Staff{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, full_name, email, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, profile.ID, profile.FullName, profile.Email, profile.Phone, profile.Role, profile.PasswordHash)
	if err != nil {
		return model.Staff{}, err
	}

	staff := model.Staff{
		ID:             uuid.NewString(),
		ProfileID:      profile.ID,
		FullName:       profile.FullName,
		Specialization: specialization,
		IsActive:       true,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO staff (id, profile_id, specialization, is_active)
		VALUES ($1, $2, $3, $4)
	`, staff.ID, staff.ProfileID, staff.Specialization, staff.IsActive)
	if err != nil {
		return model.Staff{}, err
	}

	for wd := 1; wd <= 5; wd++ {
		_, err = tx.Exec(ctx, `
			INSERT INTO working_hours (staff_id, day_of_week, start_time, end_time, is_active)
			VALUES ($1, $2, '09:00', '17:00', TRUE)
		`, staff.ID, wd)
		if err != nil {
			return model.Staff{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Staff{}, err
	}
	return staff, nil
}

func (r *CatalogRepository) UpdateStaff(ctx context.Context, id, specialization string, isActive bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET specialization = $2,
			is_active = $3
		WHERE id = $1
	`, id, specialization, isActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

func (r *CatalogRepository) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT s.id::text, s.profile_id::text, p.full_name, s.specialization, s.is_active
		FROM staff s
		JOIN profiles p ON p.id = s.profile_id
		WHERE s.id = $1
	`, id).Scan(&s.ID, &s.ProfileID, &s.FullName, &s.Specialization, &s.IsActive)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

// GetStaffByProfile resolves the staff row owned by a signed-in profile,
// used by the staff schedule view.
func (r *CatalogRepository) GetStaffByProfile(ctx context.Context, profileID string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT s.id::text, s.profile_id::text, p.full_name, s.specialization, s.is_active
		FROM staff s
		JOIN profiles p ON p.id = s.profile_id
		WHERE s.profile_id = $1
	`, profileID).Scan(&s.ID, &s.ProfileID, &s.FullName, &s.Specialization, &s.IsActive)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

func (r *CatalogRepository) ListStaff(ctx context.Context, includeInactive bool) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.profile_id::text, p.full_name, s.specialization, s.is_active
		FROM staff s
		JOIN profiles p ON p.id = s.profile_id
		WHERE s.is_active OR $1
		ORDER BY p.full_name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.FullName, &s.Specialization, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListStaffForService returns the active staff assigned to a service, for
// the booking flow's stylist picker.
func (r *CatalogRepository) ListStaffForService(ctx context.Context, serviceID string) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.profile_id::text, p.full_name, s.specialization, s.is_active
		FROM staff_services ss
		JOIN staff s ON s.id = ss.staff_id
		JOIN profiles p ON p.id = s.profile_id
		WHERE ss.service_id = $1 AND s.is_active
		ORDER BY p.full_name
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.FullName, &s.Specialization, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) ListAssignedServices(ctx context.Context, staffID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT service_id::text
		FROM staff_services
		WHERE staff_id = $1
		ORDER BY service_id
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ReplaceAssignedServices swaps a staff member's service assignment set.
func (r *CatalogRepository) ReplaceAssignedServices(ctx context.Context, staffID string, serviceIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM staff_services WHERE staff_id = $1`, staffID); err != nil {
		return err
	}
	for _, serviceID := range serviceIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_services (staff_id, service_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, staffID, serviceID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *CatalogRepository) ListWorkingHours(ctx context.Context, staffID string) ([]model.WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, staff_id::text, day_of_week, start_time, end_time, is_active
		FROM working_hours
		WHERE staff_id = $1
		ORDER BY day_of_week
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkingHours
	for rows.Next() {
		var wh model.WorkingHours
		if err := rows.Scan(&wh.ID, &wh.StaffID, &wh.Weekday, &wh.Start, &wh.End, &wh.IsActive); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

// UpsertWorkingHours writes one weekday template row. The unique index on
// (staff_id, day_of_week) keeps the template free of duplicate rows.
func (r *CatalogRepository) UpsertWorkingHours(ctx context.Context, wh model.WorkingHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO working_hours (staff_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id, day_of_week) DO UPDATE
		SET start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_active = EXCLUDED.is_active
	`, wh.StaffID, wh.Weekday, wh.Start, wh.End, wh.IsActive)
	return err
}
