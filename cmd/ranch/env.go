package main

import (
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/ingest"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/observability"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// storeEnv holds the open store and its repositories for one command
type storeEnv struct {
	DB        *gorm.DB
	Records   repository.WaterQualityRepository
	Users     repository.UserRepository
	Locations repository.LocationRepository
	Runs      repository.IngestionRunRepository
	Metrics   *observability.Metrics
}

// openStore connects to the configured store and migrates the schema
func openStore() (*storeEnv, error) {
	db, err := repository.Open(cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := repository.Migrate(db); err != nil {
		_ = repository.Close(db)
		return nil, eris.Wrap(err, "migrate store")
	}

	return &storeEnv{
		DB:        db,
		Records:   repository.NewWaterQualityRepository(db, cfg.Ingest.BatchSize),
		Users:     repository.NewUserRepository(db),
		Locations: repository.NewLocationRepository(db),
		Runs:      repository.NewIngestionRunRepository(db),
		Metrics:   observability.NewMetrics(),
	}, nil
}

func (e *storeEnv) pipeline() *ingest.Pipeline {
	return ingest.NewPipeline(e.Records, e.Runs, logger, e.Metrics)
}

func (e *storeEnv) Close() {
	if err := repository.Close(e.DB); err != nil {
		logger.Warn("failed to close store", "error", err)
	}
}
