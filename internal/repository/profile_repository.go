package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// ProfileRepository resolves authenticated users to their school profile.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository instantiates a profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns sql.ErrNoRows when the user has no profile.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT user_id, school_id, role, full_name, email, is_active, created_at, updated_at FROM profiles WHERE user_id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}
