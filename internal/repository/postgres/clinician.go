package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
)

func (r *clinicianRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	query := `
		SELECT id, name, email, specialty, role, password_hash, active,
			   created_at, updated_at
		FROM clinicians
		WHERE id = $1
	`
	var clinician model.Clinician
	if err := r.db.GetContext(ctx, &clinician, query, id); err != nil {
		return nil, wrapNotFound(err, "failed to get clinician")
	}
	return &clinician, nil
}

func (r *clinicianRepository) GetByEmail(ctx context.Context, email string) (*model.Clinician, error) {
	query := `
		SELECT id, name, email, specialty, role, password_hash, active,
			   created_at, updated_at
		FROM clinicians
		WHERE email = $1
	`
	var clinician model.Clinician
	if err := r.db.GetContext(ctx, &clinician, query, email); err != nil {
		return nil, wrapNotFound(err, "failed to get clinician by email")
	}
	return &clinician, nil
}
