package repository

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WaterQualityFilter narrows a query to a time window [Start, End) and categorical values.
// Zero values mean "no constraint".
type WaterQualityFilter struct {
	Start    *time.Time
	End      *time.Time
	Province string
	Basin    string
}

// DailyAverage is one calendar-day bucket of a measurement
type DailyAverage struct {
	Day     string  `gorm:"column:day" json:"day"`
	Average float64 `gorm:"column:average" json:"average"`
	Samples int     `gorm:"column:samples" json:"samples"`
}

// WaterQualityRepository is the record store for monitoring observations
type WaterQualityRepository interface {
	CreateBatch(ctx context.Context, records []model.WaterQuality) (int, error)
	Find(ctx context.Context, filter WaterQualityFilter) ([]model.WaterQuality, error)
	Page(ctx context.Context, filter WaterQualityFilter, page, pageSize int) ([]model.WaterQuality, int64, error)
	Latest(ctx context.Context, filter WaterQualityFilter, limit int) ([]model.WaterQuality, error)
	Count(ctx context.Context, filter WaterQualityFilter) (int64, error)
	DistinctProvinces(ctx context.Context) ([]string, error)
	DistinctBasins(ctx context.Context, province string) ([]string, error)
	DailyAverages(ctx context.Context, field string, filter WaterQualityFilter) ([]DailyAverage, error)
}

// waterQualityRepository implements WaterQualityRepository
type waterQualityRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewWaterQualityRepository creates a new water quality repository.
// batchSize bounds the rows per INSERT statement inside one bulk write.
func NewWaterQualityRepository(db *gorm.DB, batchSize int) WaterQualityRepository {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &waterQualityRepository{db: db, batchSize: batchSize}
}

// CreateBatch inserts all records in a single transaction and returns how many
// were new. Records already stored for the same province, basin, section and
// monitor time are skipped.
func (r *waterQualityRepository) CreateBatch(ctx context.Context, records []model.WaterQuality) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&records, r.batchSize)
		inserted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert %d water quality records: %w", len(records), err)
	}
	return int(inserted), nil
}

func (r *waterQualityRepository) scoped(ctx context.Context, filter WaterQualityFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.WaterQuality{})
	if filter.Start != nil {
		q = q.Where("monitor_time >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("monitor_time < ?", *filter.End)
	}
	if filter.Province != "" {
		q = q.Where("province = ?", filter.Province)
	}
	if filter.Basin != "" {
		q = q.Where("basin = ?", filter.Basin)
	}
	return q
}

// Find returns every record matching the filter in monitor_time order
func (r *waterQualityRepository) Find(ctx context.Context, filter WaterQualityFilter) ([]model.WaterQuality, error) {
	var records []model.WaterQuality
	err := r.scoped(ctx, filter).Order("monitor_time ASC").Order("id ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query water quality: %w", err)
	}
	return records, nil
}

// Page returns one page of matching records together with the total match count
func (r *waterQualityRepository) Page(ctx context.Context, filter WaterQualityFilter, page, pageSize int) ([]model.WaterQuality, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count water quality: %w", err)
	}
	// an offset that overflows int lies past any stored row
	if page-1 > math.MaxInt/pageSize {
		return []model.WaterQuality{}, total, nil
	}

	var records []model.WaterQuality
	err := r.scoped(ctx, filter).
		Order("id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to page water quality: %w", err)
	}
	return records, total, nil
}

// Latest returns the most recent records first
func (r *waterQualityRepository) Latest(ctx context.Context, filter WaterQualityFilter, limit int) ([]model.WaterQuality, error) {
	var records []model.WaterQuality
	err := r.scoped(ctx, filter).Order("monitor_time DESC").Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query latest water quality: %w", err)
	}
	return records, nil
}

// Count returns the number of matching records
func (r *waterQualityRepository) Count(ctx context.Context, filter WaterQualityFilter) (int64, error) {
	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count water quality: %w", err)
	}
	return total, nil
}

// DistinctProvinces lists every province present in the store
func (r *waterQualityRepository) DistinctProvinces(ctx context.Context) ([]string, error) {
	var provinces []string
	err := r.db.WithContext(ctx).Model(&model.WaterQuality{}).
		Distinct("province").Order("province").Pluck("province", &provinces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list provinces: %w", err)
	}
	return provinces, nil
}

// DistinctBasins lists every basin, optionally within one province
func (r *waterQualityRepository) DistinctBasins(ctx context.Context, province string) ([]string, error) {
	var basins []string
	q := r.db.WithContext(ctx).Model(&model.WaterQuality{})
	if province != "" {
		q = q.Where("province = ?", province)
	}
	if err := q.Distinct("basin").Order("basin").Pluck("basin", &basins).Error; err != nil {
		return nil, fmt.Errorf("failed to list basins: %w", err)
	}
	return basins, nil
}

// DailyAverages groups one measurement by calendar day with efficient SQL grouping
func (r *waterQualityRepository) DailyAverages(ctx context.Context, field string, filter WaterQualityFilter) ([]DailyAverage, error) {
	// field is interpolated into SQL, so it must be a known column
	if !slices.Contains(model.NumericFields, field) {
		return nil, fmt.Errorf("unknown measurement %q", field)
	}

	dayExpr := r.dayExpression()
	var results []DailyAverage
	err := r.scoped(ctx, filter).
		Select(dayExpr+" AS day, AVG("+field+") AS average, COUNT("+field+") AS samples").
		Where(field + " IS NOT NULL").
		Group(dayExpr).
		Order(dayExpr + " ASC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s by day: %w", field, err)
	}
	return results, nil
}

// dayExpression renders monitor_time as YYYY-MM-DD text for the active dialect
func (r *waterQualityRepository) dayExpression() string {
	switch r.db.Dialector.Name() {
	case "postgres":
		return "TO_CHAR(monitor_time, 'YYYY-MM-DD')"
	default:
		return "strftime('%Y-%m-%d', monitor_time)"
	}
}
