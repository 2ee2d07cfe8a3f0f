package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "employee").Logger()}
}

// Authenticate verifies the credentials of a reception or doctor account.
// Every failure, including an unknown ID or an unsupported role, returns
// auth.ErrAuthFailure so callers cannot tell them apart.
func (s *Service) Authenticate(ctx context.Context, empID, password string) (*Employee, error) {
	e, err := s.repo.GetByID(ctx, empID)
	if errors.Is(err, db.ErrNotFound) {
		auth.BurnPasswordCheck(password)
		s.logger.Info().Str("emp_id", empID).Msg("login failed")
		return nil, auth.ErrAuthFailure
	}
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if !auth.CheckPassword(e.PasswordHash, password) {
		s.logger.Info().Str("emp_id", empID).Msg("login failed")
		return nil, auth.ErrAuthFailure
	}
	if auth.MenuPath(e.Role) == "" {
		s.logger.Warn().Str("emp_id", empID).Int("role", int(e.Role)).Msg("login refused for role without a menu")
		return nil, auth.ErrAuthFailure
	}
	return e, nil
}

// Create registers an account directly, hashing password. Used to bootstrap
// the first reception account from the command line.
func (s *Service) Create(ctx context.Context, e *Employee, password string) error {
	if e.EmpID == "" || e.LastName == "" || e.FirstName == "" {
		return fmt.Errorf("emp_id, last_name and first_name are required")
	}
	if auth.MenuPath(e.Role) == "" {
		return fmt.Errorf("unsupported role %d", int(e.Role))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	e.PasswordHash = hash
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, empID string) (*Employee, error) {
	return s.repo.GetByID(ctx, empID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Employee, int, error) {
	return s.repo.List(ctx, limit, offset)
}
