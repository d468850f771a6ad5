package repository

import (
	"context"
	"fmt"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"

	"gorm.io/gorm"
)

// LocationRepository reads ranch reference locations
type LocationRepository interface {
	List(ctx context.Context) ([]model.RanchLocation, error)
}

type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) List(ctx context.Context) ([]model.RanchLocation, error) {
	var locations []model.RanchLocation
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to list ranch locations: %w", err)
	}
	return locations, nil
}

// IngestionRunRepository persists ingestion run summaries. Runs are written once, when they finish.
type IngestionRunRepository interface {
	Save(ctx context.Context, run *model.IngestionRun) error
	Recent(ctx context.Context, limit int) ([]model.IngestionRun, error)
}

type ingestionRunRepository struct {
	db *gorm.DB
}

// NewIngestionRunRepository creates a new ingestion run repository
func NewIngestionRunRepository(db *gorm.DB) IngestionRunRepository {
	return &ingestionRunRepository{db: db}
}

func (r *ingestionRunRepository) Save(ctx context.Context, run *model.IngestionRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save ingestion run %s: %w", run.ID, err)
	}
	return nil
}

func (r *ingestionRunRepository) Recent(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	var runs []model.IngestionRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	return runs, nil
}
