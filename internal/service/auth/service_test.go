package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	jwtauth "github.com/clinicore/clinic-api/pkg/auth"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/security"
)

type fakeClinicianRepo struct {
	byEmail map[string]*model.Clinician
}

func (r *fakeClinicianRepo) Get(_ context.Context, id uuid.UUID) (*model.Clinician, error) {
	for _, c := range r.byEmail {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeClinicianRepo) GetByEmail(_ context.Context, email string) (*model.Clinician, error) {
	c, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func newTestService(t *testing.T, clinicians ...*model.Clinician) *Service {
	t.Helper()
	repo := &fakeClinicianRepo{byEmail: make(map[string]*model.Clinician)}
	for _, c := range clinicians {
		repo.byEmail[c.Email] = c
	}
	return NewService(repo, jwtauth.NewJWTService("test-secret", 1), security.NewBcryptHasher(4))
}

func clinician(t *testing.T, email, password string) *model.Clinician {
	t.Helper()
	hash, err := security.NewBcryptHasher(4).Hash(password)
	require.NoError(t, err)
	return &model.Clinician{
		Base:         model.Base{ID: uuid.New()},
		Name:         "Dr. Vega",
		Email:        email,
		Role:         model.RoleClinician,
		PasswordHash: hash,
		Active:       true,
	}
}

func TestLogin(t *testing.T) {
	t.Run("issues a token for valid credentials", func(t *testing.T) {
		c := clinician(t, "vega@clinic.test", "correct horse")
		svc := newTestService(t, c)

		resp, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "vega@clinic.test",
			Password: "correct horse",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, c.ID, resp.Clinician.ID)

		claims, err := svc.ValidateToken(context.Background(), resp.Token)
		require.NoError(t, err)
		assert.Equal(t, c.ID, claims.ClinicianID)
		assert.Equal(t, model.RoleClinician, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newTestService(t, clinician(t, "vega@clinic.test", "correct horse"))

		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "vega@clinic.test",
			Password: "battery staple",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "nobody@clinic.test",
			Password: "whatever",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("disabled account", func(t *testing.T) {
		c := clinician(t, "vega@clinic.test", "correct horse")
		c.Active = false
		svc := newTestService(t, c)

		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "vega@clinic.test",
			Password: "correct horse",
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}
