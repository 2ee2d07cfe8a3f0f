package patient

import (
	"context"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, Filter{Name: name}, limit, offset)
}

// ListExpired returns patients whose insurance expired before today.
func (s *Service) ListExpired(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	t := today(s.now())
	return s.repo.Search(ctx, Filter{ExpiredBefore: &t}, limit, offset)
}
