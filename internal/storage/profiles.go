package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/libs/db"
)

type ProfileRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewProfileRepository(pool *db.Pool, outboxRepo *outbox.Repository) *ProfileRepository {
	return &ProfileRepository{pool: pool, outbox: outboxRepo}
}

// Create inserts the profile and its signup event in one transaction.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile, evt outbox.Event) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, full_name, email, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.FullName, p.Email, p.Phone, p.Role, p.PasswordHash)
	if err != nil {
		return err
	}

	evt.AggregateID = p.ID
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	return r.scanOne(ctx, `
		SELECT id::text, full_name, email, phone, role, password_hash, created_at
		FROM profiles
		WHERE lower(email) = lower($1)
	`, email)
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (model.Profile, error) {
	return r.scanOne(ctx, `
		SELECT id::text, full_name, email, phone, role, password_hash, created_at
		FROM profiles
		WHERE id = $1
	`, id)
}

func (r *ProfileRepository) scanOne(ctx context.Context, query string, arg any) (model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Role, &p.PasswordHash, &p.CreatedAt,
	)
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}
