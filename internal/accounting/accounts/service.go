package accounts

import "context"

type Service struct {
	repo     Repository
	registry *Registry
}

func NewService(repo Repository, registry *Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// SeedDefaults creates the minimum chart and reloads the registry.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	created, err := s.repo.Seed(ctx, DefaultChart())
	if err != nil {
		return created, err
	}
	if s.registry != nil && created > 0 {
		if err := s.registry.Load(ctx); err != nil {
			return created, err
		}
	}
	return created, nil
}
