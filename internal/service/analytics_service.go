package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

var (
	// ErrUnknownParameter is returned for a trend over a field that is not a measurement
	ErrUnknownParameter = errors.New("unknown water quality parameter")
	// ErrInvalidClusterCount is returned when fewer than one cluster is requested
	ErrInvalidClusterCount = errors.New("cluster count must be at least 1")
)

// ClusterFeatures are the measurements used for clustering, in matrix column order
var ClusterFeatures = []string{
	"temperature",
	"ph",
	"dissolved_oxygen",
	"conductivity",
	"turbidity",
	"permanganate_index",
	"ammonia_nitrogen",
}

// normalRange bounds the expected mean of one parameter
type normalRange struct {
	parameter string
	min, max  float64
}

// normalRanges are checked in this order by the quality report
var normalRanges = []normalRange{
	{"ph", 6.5, 8.5},
	{"dissolved_oxygen", 5.0, 15.0},
	{"temperature", 0, 35},
	{"turbidity", 0, 50},
}

// excellentRateTarget is the share of grade I/II rows below which the report raises a warning
const excellentRateTarget = 80.0

// AnalyticsService computes read-only analyses over stored observations.
// Every method returns a nil result with a nil error when there is not enough
// data, so callers can tell "insufficient data" apart from failures.
type AnalyticsService interface {
	Statistics(ctx context.Context, filter repository.WaterQualityFilter) (*Statistics, error)
	Correlation(ctx context.Context, filter repository.WaterQualityFilter) (*CorrelationMatrix, error)
	Trend(ctx context.Context, parameter string, filter repository.WaterQualityFilter) (*Trend, error)
	Clustering(ctx context.Context, nClusters int) (*Clustering, error)
	QualityReport(ctx context.Context, filter repository.WaterQualityFilter) (*QualityReport, error)
}

// DateRange is the span of monitor times covered by a result
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Statistics summarizes the filtered observations
type Statistics struct {
	TotalRecords         int                        `json:"total_records"`
	DateRange            DateRange                  `json:"date_range"`
	QualityDistribution  map[string]int             `json:"quality_distribution"`
	ProvinceDistribution map[string]int             `json:"province_distribution"`
	ParameterStatistics  map[string]FieldStatistics `json:"parameter_statistics"`
}

// CorrelationMatrix holds pairwise Pearson coefficients. A nil cell means the
// pair had fewer than two joint values or no variance.
type CorrelationMatrix struct {
	Fields []string     `json:"fields"`
	Matrix [][]*float64 `json:"matrix"`
}

// TrendPoint is the mean of one parameter over one calendar day
type TrendPoint struct {
	Date    string  `json:"date"`
	Mean    float64 `json:"mean"`
	Samples int     `json:"samples"`
	Fitted  float64 `json:"fitted"`
}

// Trend is a daily series with a least-squares line fitted over its positions
type Trend struct {
	Parameter string       `json:"parameter"`
	Series    []TrendPoint `json:"series"`
	Slope     float64      `json:"slope"`
	Intercept float64      `json:"intercept"`
}

// ClusterPoint is one clustered observation projected onto two principal components
type ClusterPoint struct {
	ID      uint    `json:"id"`
	Cluster int     `json:"cluster"`
	PC1     float64 `json:"pc1"`
	PC2     float64 `json:"pc2"`
}

// Clustering is the k-means result over standardized features
type Clustering struct {
	NClusters              int            `json:"n_clusters"`
	Features               []string       `json:"features"`
	Window                 DateRange      `json:"window"`
	Points                 []ClusterPoint `json:"points"`
	ClusterSizes           []int          `json:"cluster_sizes"`
	ClusterCenters         [][]float64    `json:"cluster_centers"`
	Inertia                float64        `json:"inertia"`
	ExplainedVarianceRatio []float64      `json:"explained_variance_ratio"`
}

// Anomaly flags a parameter whose mean is outside its normal range
type Anomaly struct {
	Parameter   string     `json:"parameter"`
	Value       float64    `json:"value"`
	NormalRange [2]float64 `json:"normal_range"`
	Status      string     `json:"status"`
}

// ReportSummary is the headline of a quality report
type ReportSummary struct {
	TotalRecords        int            `json:"total_records"`
	DateRange           DateRange      `json:"date_range"`
	ExcellentRate       float64        `json:"excellent_rate"`
	QualityDistribution map[string]int `json:"quality_distribution"`
}

// QualityReport is the rule-based water quality assessment
type QualityReport struct {
	Summary           ReportSummary              `json:"summary"`
	ParameterAnalysis map[string]FieldStatistics `json:"parameter_analysis"`
	Anomalies         []Anomaly                  `json:"anomalies"`
	Recommendations   []string                   `json:"recommendations"`
}

// analyticsService implements AnalyticsService
type analyticsService struct {
	repo         repository.WaterQualityRepository
	clock        clockwork.Clock
	lookbackDays int
	seed         int64
}

// NewAnalyticsService creates a new analytics service. Clustering looks back
// lookbackDays from the clock's now and seeds k-means with seed.
func NewAnalyticsService(repo repository.WaterQualityRepository, clock clockwork.Clock, lookbackDays int, seed int64) AnalyticsService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &analyticsService{repo: repo, clock: clock, lookbackDays: lookbackDays, seed: seed}
}

// Statistics describes every measurement plus grade and province counts
func (s *analyticsService) Statistics(ctx context.Context, filter repository.WaterQualityFilter) (*Statistics, error) {
	records, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return s.calculateStatistics(records), nil
}

func (s *analyticsService) calculateStatistics(records []model.WaterQuality) *Statistics {
	stats := &Statistics{
		TotalRecords:         len(records),
		DateRange:            dateRange(records),
		QualityDistribution:  make(map[string]int),
		ProvinceDistribution: make(map[string]int),
		ParameterStatistics:  make(map[string]FieldStatistics),
	}

	for i := range records {
		if q := records[i].QualityLevel; q != nil && *q != "" {
			stats.QualityDistribution[*q]++
		}
		if p := records[i].Province; p != "" {
			stats.ProvinceDistribution[p]++
		}
	}

	for _, field := range model.NumericFields {
		values := presentValues(records, field)
		if len(values) > 0 {
			stats.ParameterStatistics[field] = describe(values)
		}
	}
	return stats
}

// Correlation computes the Pearson matrix over all measurements
func (s *analyticsService) Correlation(ctx context.Context, filter repository.WaterQualityFilter) (*CorrelationMatrix, error) {
	records, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	fields := model.NumericFields
	columns := make([][]*float64, len(fields))
	for j, field := range fields {
		columns[j] = make([]*float64, len(records))
		for i := range records {
			columns[j][i] = records[i].Value(field)
		}
	}

	matrix := make([][]*float64, len(fields))
	for i := range fields {
		matrix[i] = make([]*float64, len(fields))
	}
	for i := range fields {
		for j := i; j < len(fields); j++ {
			r, ok := pearson(columns[i], columns[j])
			if !ok {
				continue
			}
			r = math.Round(r*10000) / 10000
			matrix[i][j] = &r
			matrix[j][i] = &r
		}
	}

	return &CorrelationMatrix{Fields: slices.Clone(fields), Matrix: matrix}, nil
}

// Trend averages one parameter per calendar day and fits a line through the daily means
func (s *analyticsService) Trend(ctx context.Context, parameter string, filter repository.WaterQualityFilter) (*Trend, error) {
	if !slices.Contains(model.NumericFields, parameter) {
		return nil, ErrUnknownParameter
	}

	days, err := s.repo.DailyAverages(ctx, parameter, filter)
	if err != nil {
		return nil, err
	}

	values := 0
	for _, d := range days {
		values += d.Samples
	}
	if values < 2 {
		return nil, nil
	}

	return buildTrend(parameter, days), nil
}

func buildTrend(parameter string, days []repository.DailyAverage) *Trend {
	means := make([]float64, len(days))
	for i, d := range days {
		means[i] = d.Average
	}
	intercept, slope := fitLine(means)

	series := make([]TrendPoint, len(days))
	for i, d := range days {
		series[i] = TrendPoint{
			Date:    d.Day,
			Mean:    d.Average,
			Samples: d.Samples,
			Fitted:  intercept + slope*float64(i),
		}
	}
	return &Trend{
		Parameter: parameter,
		Series:    series,
		Slope:     slope,
		Intercept: intercept,
	}
}

// Clustering groups the recent complete observations with k-means
func (s *analyticsService) Clustering(ctx context.Context, nClusters int) (*Clustering, error) {
	if nClusters < 1 {
		return nil, ErrInvalidClusterCount
	}

	end := s.clock.Now().UTC()
	start := end.AddDate(0, 0, -s.lookbackDays)
	records, err := s.repo.Find(ctx, repository.WaterQualityFilter{Start: &start, End: &end})
	if err != nil {
		return nil, err
	}

	// rows missing any feature are dropped before clustering
	var ids []uint
	var rows [][]float64
	for i := range records {
		row, ok := featureRow(&records[i])
		if !ok {
			continue
		}
		ids = append(ids, records[i].ID)
		rows = append(rows, row)
	}
	if len(rows) < nClusters {
		return nil, nil
	}

	x := standardize(rows)
	km := kmeans(x, nClusters, s.seed)

	result := &Clustering{
		NClusters:      nClusters,
		Features:       slices.Clone(ClusterFeatures),
		Window:         DateRange{Start: &start, End: &end},
		Points:         make([]ClusterPoint, len(rows)),
		ClusterSizes:   make([]int, nClusters),
		ClusterCenters: km.centers,
		Inertia:        km.inertia,
	}

	coords, ratios, ok := project(x)
	if ok {
		result.ExplainedVarianceRatio = ratios
	}
	for i := range rows {
		p := ClusterPoint{ID: ids[i], Cluster: km.labels[i]}
		if ok {
			p.PC1, p.PC2 = coords[i][0], coords[i][1]
		}
		result.Points[i] = p
		result.ClusterSizes[km.labels[i]]++
	}
	return result, nil
}

func featureRow(rec *model.WaterQuality) ([]float64, bool) {
	row := make([]float64, len(ClusterFeatures))
	for j, field := range ClusterFeatures {
		v := rec.Value(field)
		if v == nil {
			return nil, false
		}
		row[j] = *v
	}
	return row, true
}

// QualityReport grades the window by its excellent rate and flags parameters
// whose mean is out of range
func (s *analyticsService) QualityReport(ctx context.Context, filter repository.WaterQualityFilter) (*QualityReport, error) {
	stats, err := s.Statistics(ctx, filter)
	if err != nil || stats == nil {
		return nil, err
	}
	return buildReport(stats), nil
}

func buildReport(stats *Statistics) *QualityReport {
	excellent := stats.QualityDistribution["I"] + stats.QualityDistribution["II"]
	rate := percentage(excellent, stats.TotalRecords)

	anomalies := make([]Anomaly, 0)
	for _, nr := range normalRanges {
		ps, ok := stats.ParameterStatistics[nr.parameter]
		if !ok {
			continue
		}
		if ps.Mean < nr.min || ps.Mean > nr.max {
			anomalies = append(anomalies, Anomaly{
				Parameter:   nr.parameter,
				Value:       ps.Mean,
				NormalRange: [2]float64{nr.min, nr.max},
				Status:      "abnormal",
			})
		}
	}

	return &QualityReport{
		Summary: ReportSummary{
			TotalRecords:        stats.TotalRecords,
			DateRange:           stats.DateRange,
			ExcellentRate:       calculateRate(excellent, stats.TotalRecords),
			QualityDistribution: stats.QualityDistribution,
		},
		ParameterAnalysis: stats.ParameterStatistics,
		Anomalies:         anomalies,
		Recommendations:   recommendations(anomalies, rate),
	}
}

// percentage returns part/total as an unrounded percentage
func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100
}

// calculateRate returns part/total as a percentage rounded to 2 decimal places
func calculateRate(part, total int) float64 {
	return math.Round(percentage(part, total)*100) / 100
}

var parameterAdvice = map[string]string{
	"ph":               "pH值异常，建议检查酸碱平衡，必要时进行pH调节",
	"dissolved_oxygen": "溶解氧异常，建议检查增氧设备运行状态",
	"turbidity":        "浊度异常，建议检查过滤系统和沉淀处理",
}

func recommendations(anomalies []Anomaly, excellentRate float64) []string {
	var recs []string
	if excellentRate < excellentRateTarget {
		recs = append(recs, "水质优良率偏低，建议加强水质监测和治理措施")
	}
	for _, a := range anomalies {
		if advice, ok := parameterAdvice[a.Parameter]; ok {
			recs = append(recs, advice)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "水质状况良好，继续保持现有管理措施")
	}
	return recs
}

func presentValues(records []model.WaterQuality, field string) []float64 {
	values := make([]float64, 0, len(records))
	for i := range records {
		if v := records[i].Value(field); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

func dateRange(records []model.WaterQuality) DateRange {
	if len(records) == 0 {
		return DateRange{}
	}
	times := make([]time.Time, len(records))
	for i := range records {
		times[i] = records[i].MonitorTime
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	start, end := times[0], times[len(times)-1]
	return DateRange{Start: &start, End: &end}
}
