package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"

	"gorm.io/gorm"
)

// PasswordHasher turns a plain password into its stored hash
type PasswordHasher func(password string) (string, error)

// SeedResult reports what a seeding pass created
type SeedResult struct {
	Users     int
	Locations int
	Samples   int
}

// SeedRepository handles database seeding operations
type SeedRepository struct {
	db   *gorm.DB
	hash PasswordHasher
}

// NewSeedRepository creates a new seed repository
func NewSeedRepository(db *gorm.DB, hash PasswordHasher) *SeedRepository {
	return &SeedRepository{db: db, hash: hash}
}

// SeedDefaults creates the default accounts and ranch locations when the admin account is absent
func (s *SeedRepository) SeedDefaults(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	var admins int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", "admin").Count(&admins).Error; err != nil {
		return result, fmt.Errorf("failed to check default users: %w", err)
	}
	if admins > 0 {
		return result, nil
	}

	users, err := s.createUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to create users: %w", err)
	}
	result.Users = users

	locations, err := s.createLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to create ranch locations: %w", err)
	}
	result.Locations = locations

	return result, nil
}

// createUsers creates the default admin and user accounts
func (s *SeedRepository) createUsers(ctx context.Context) (int, error) {
	defaults := []struct {
		username, password, role string
	}{
		{"admin", "admin123", model.RoleAdmin},
		{"user", "user123", model.RoleUser},
	}

	users := make([]model.User, 0, len(defaults))
	for _, d := range defaults {
		hash, err := s.hash(d.password)
		if err != nil {
			return 0, err
		}
		users = append(users, model.User{Username: d.username, PasswordHash: hash, Role: d.role})
	}

	if err := s.db.WithContext(ctx).Create(&users).Error; err != nil {
		return 0, err
	}
	return len(users), nil
}

// createLocations creates the sample ranch locations if none exist
func (s *SeedRepository) createLocations(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.RanchLocation{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	locations := []model.RanchLocation{
		{Name: "青岛海洋牧场", Latitude: 36.0671, Longitude: 120.3826, Description: "山东青岛近海海洋牧场"},
		{Name: "舟山海洋牧场", Latitude: 30.0444, Longitude: 122.1997, Description: "浙江舟山群岛海洋牧场"},
		{Name: "北部湾海洋牧场", Latitude: 21.4735, Longitude: 109.1192, Description: "广西北部湾海洋牧场"},
	}
	if err := s.db.WithContext(ctx).Create(&locations).Error; err != nil {
		return 0, err
	}
	return len(locations), nil
}

// WaterQualityEmpty reports whether no observations have been stored yet
func (s *SeedRepository) WaterQualityEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.WaterQuality{}).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// sampleSection is one synthetic monitoring section
type sampleSection struct {
	province, basin, name string
	baseTemp, basePH     float64
}

// SeedSamples generates hourly-ish synthetic observations for the days before end.
// The generator is seeded so repeated runs produce identical data.
func (s *SeedRepository) SeedSamples(ctx context.Context, end time.Time, days int) (int, error) {
	sections := []sampleSection{
		{"山东省", "黄河流域", "泺口", 14, 8.1},
		{"浙江省", "浙闽片河流", "舟山近岸", 18, 7.9},
		{"广西壮族自治区", "珠江流域", "北部湾口", 24, 7.8},
	}
	levels := []string{"I", "II", "II", "III", "IV"}

	rng := rand.New(rand.NewSource(42))
	batchSize := 100
	batch := make([]model.WaterQuality, 0, batchSize)
	total := 0

	start := end.AddDate(0, 0, -days).Truncate(24 * time.Hour)
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		// Seasonal swing peaks in midsummer
		season := math.Sin(2 * math.Pi * float64(day.YearDay()-105) / 365)

		for _, sec := range sections {
			// Readings every 4 hours, as the automatic stations report
			for hour := 0; hour < 24; hour += 4 {
				level := levels[rng.Intn(len(levels))]
				rec := model.WaterQuality{
					Province:      sec.province,
					Basin:         sec.basin,
					SectionName:   sec.name,
					MonitorTime:   day.Add(time.Duration(hour) * time.Hour),
					QualityLevel:  &level,
					StationStatus: "正常",
				}
				rec.Temperature = sample(rng, sec.baseTemp+8*season, 1.5)
				rec.PH = sample(rng, sec.basePH, 0.2)
				rec.DissolvedOxygen = sample(rng, 8-2*season, 0.8)
				rec.Conductivity = sample(rng, 450, 60)
				rec.Turbidity = sample(rng, 12, 5)
				rec.PermanganateIndex = sample(rng, 3, 0.6)
				rec.AmmoniaNitrogen = sample(rng, 0.3, 0.1)
				rec.TotalPhosphorus = sample(rng, 0.08, 0.02)
				rec.TotalNitrogen = sample(rng, 1.6, 0.4)
				rec.ChlorophyllA = sample(rng, 0.01, 0.004)
				rec.AlgaeDensity = sample(rng, 2.5e6, 8e5)

				batch = append(batch, rec)
				total++

				if len(batch) >= batchSize {
					if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
						return 0, fmt.Errorf("failed to create sample batch: %w", err)
					}
					batch = make([]model.WaterQuality, 0, batchSize)
				}
			}
		}
	}

	if len(batch) > 0 {
		if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
			return 0, fmt.Errorf("failed to create final sample batch: %w", err)
		}
	}
	return total, nil
}

// sample draws a non-negative reading around mean, rounded to 3 decimals
func sample(rng *rand.Rand, mean, spread float64) *float64 {
	v := mean + rng.NormFloat64()*spread
	if v < 0 {
		v = 0
	}
	v = math.Round(v*1000) / 1000
	return &v
}
