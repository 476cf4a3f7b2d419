package auth

import (
	"context"
	"errors"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/auth"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/security"
)

type Service struct {
	clinicians repository.ClinicianRepository
	jwt        *auth.JWTService
	hasher     security.PasswordHasher
}

func NewService(clinicians repository.ClinicianRepository, jwt *auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		clinicians: clinicians,
		jwt:        jwt,
		hasher:     hasher,
	}
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	clinician, err := s.clinicians.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
		}
		return nil, apperrors.NewInternal(err)
	}

	if !clinician.Active {
		return nil, apperrors.Unauthorized(errors.New("account disabled"))
	}

	if err := s.hasher.Compare(clinician.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	token, err := s.jwt.GenerateToken(clinician)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &model.LoginResponse{Token: token, Clinician: clinician}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
