package service

import (
	"context"
	"fmt"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

type FarmerMapService struct {
	repo repository.FarmerLocationRepository
}

func NewFarmerMapService(repo repository.FarmerLocationRepository) *FarmerMapService {
	return &FarmerMapService{repo: repo}
}

func (s *FarmerMapService) Locations(ctx context.Context) ([]model.FarmerLocation, error) {
	locs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list farmer locations: %w", err)
	}
	return locs, nil
}

// Replace swaps the whole map for locations and returns how many were stored.
func (s *FarmerMapService) Replace(ctx context.Context, locations []model.FarmerLocation) (int, error) {
	n, err := s.repo.ReplaceAll(ctx, locations)
	if err != nil {
		return 0, fmt.Errorf("replace farmer locations: %w", err)
	}
	return n, nil
}
