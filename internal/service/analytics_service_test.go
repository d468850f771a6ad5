package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// mockWaterQualityRepository serves canned records and daily averages
type mockWaterQualityRepository struct {
	records []model.WaterQuality
	days    []repository.DailyAverage
	err     error

	lastFilter repository.WaterQualityFilter
}

func (m *mockWaterQualityRepository) CreateBatch(ctx context.Context, records []model.WaterQuality) (int, error) {
	m.records = append(m.records, records...)
	return len(records), m.err
}

func (m *mockWaterQualityRepository) Find(ctx context.Context, filter repository.WaterQualityFilter) ([]model.WaterQuality, error) {
	m.lastFilter = filter
	return m.records, m.err
}

func (m *mockWaterQualityRepository) Page(ctx context.Context, filter repository.WaterQualityFilter, page, pageSize int) ([]model.WaterQuality, int64, error) {
	return m.records, int64(len(m.records)), m.err
}

func (m *mockWaterQualityRepository) Latest(ctx context.Context, filter repository.WaterQualityFilter, limit int) ([]model.WaterQuality, error) {
	return m.records, m.err
}

func (m *mockWaterQualityRepository) Count(ctx context.Context, filter repository.WaterQualityFilter) (int64, error) {
	return int64(len(m.records)), m.err
}

func (m *mockWaterQualityRepository) DistinctProvinces(ctx context.Context) ([]string, error) {
	return nil, m.err
}

func (m *mockWaterQualityRepository) DistinctBasins(ctx context.Context, province string) ([]string, error) {
	return nil, m.err
}

func (m *mockWaterQualityRepository) DailyAverages(ctx context.Context, field string, filter repository.WaterQualityFilter) ([]repository.DailyAverage, error) {
	m.lastFilter = filter
	return m.days, m.err
}

func f64(v float64) *float64 { return &v }

func str(s string) *string { return &s }

func at(day int) time.Time {
	return time.Date(2024, 3, day, 8, 0, 0, 0, time.UTC)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCalculateRate(t *testing.T) {
	tests := []struct {
		name     string
		part     int
		total    int
		expected float64
	}{
		{"all excellent", 4, 4, 100.0},
		{"half", 2, 4, 50.0},
		{"rounds to 2 decimal places", 1, 3, 33.33},
		{"two thirds", 2, 3, 66.67},
		{"none", 0, 5, 0.0},
		{"division by zero", 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateRate(tt.part, tt.total)
			if result != tt.expected {
				t.Errorf("calculateRate(%d, %d) = %f, expected %f", tt.part, tt.total, result, tt.expected)
			}
		})
	}
}

func TestBuildReport_RateJustBelowTarget(t *testing.T) {
	stats := &Statistics{
		TotalRecords:        100000,
		QualityDistribution: map[string]int{"I": 79996, "III": 20004},
		ParameterStatistics: map[string]FieldStatistics{},
	}

	report := buildReport(stats)
	if report.Summary.ExcellentRate != 80 {
		t.Errorf("ExcellentRate = %f, expected 80", report.Summary.ExcellentRate)
	}
	if len(report.Recommendations) == 0 || report.Recommendations[0] != "水质优良率偏低，建议加强水质监测和治理措施" {
		t.Errorf("Recommendations = %v, expected the low-rate advice first", report.Recommendations)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		mean     float64
		median   float64
		std      *float64
		min, max float64
	}{
		{
			name:   "even count averages the middle pair",
			values: []float64{4, 1, 3, 2},
			mean:   2.5,
			median: 2.5,
			std:    f64(1.2909944),
			min:    1,
			max:    4,
		},
		{
			name:   "odd count",
			values: []float64{7, 7.5, 9},
			mean:   7.833333,
			median: 7.5,
			std:    f64(1.0408330),
			min:    7,
			max:    9,
		},
		{
			name:   "single value has no std",
			values: []float64{7.2},
			mean:   7.2,
			median: 7.2,
			std:    nil,
			min:    7.2,
			max:    7.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := describe(tt.values)
			if !approx(fs.Mean, tt.mean) || !approx(fs.Median, tt.median) {
				t.Errorf("mean/median = %f/%f, expected %f/%f", fs.Mean, fs.Median, tt.mean, tt.median)
			}
			if fs.Min != tt.min || fs.Max != tt.max {
				t.Errorf("min/max = %f/%f, expected %f/%f", fs.Min, fs.Max, tt.min, tt.max)
			}
			if fs.Count != len(tt.values) {
				t.Errorf("count = %d, expected %d", fs.Count, len(tt.values))
			}
			switch {
			case tt.std == nil && fs.Std != nil:
				t.Errorf("std = %f, expected nil", *fs.Std)
			case tt.std != nil && (fs.Std == nil || !approx(*fs.Std, *tt.std)):
				t.Errorf("std = %v, expected %f", fs.Std, *tt.std)
			}
		})
	}
}

func TestFitLine(t *testing.T) {
	tests := []struct {
		name      string
		ys        []float64
		intercept float64
		slope     float64
	}{
		{"rising by one", []float64{1, 2, 3, 4, 5}, 1, 1},
		{"flat", []float64{3, 3, 3}, 3, 0},
		{"falling", []float64{10, 8, 6}, 10, -2},
		{"single point", []float64{7.5}, 7.5, 0},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intercept, slope := fitLine(tt.ys)
			if !approx(intercept, tt.intercept) || !approx(slope, tt.slope) {
				t.Errorf("fitLine(%v) = (%f, %f), expected (%f, %f)", tt.ys, intercept, slope, tt.intercept, tt.slope)
			}
		})
	}
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		x, y []*float64
		r    float64
		ok   bool
	}{
		{
			name: "perfect positive",
			x:    []*float64{f64(1), f64(2), f64(3)},
			y:    []*float64{f64(2), f64(4), f64(6)},
			r:    1, ok: true,
		},
		{
			name: "perfect negative",
			x:    []*float64{f64(1), f64(2), f64(3)},
			y:    []*float64{f64(3), f64(2), f64(1)},
			r:    -1, ok: true,
		},
		{
			name: "missing pairs are dropped",
			x:    []*float64{f64(1), nil, f64(2), f64(3)},
			y:    []*float64{f64(10), f64(99), f64(20), f64(30)},
			r:    1, ok: true,
		},
		{
			name: "one joint pair",
			x:    []*float64{f64(1), nil},
			y:    []*float64{f64(2), f64(3)},
			ok:   false,
		},
		{
			name: "constant side",
			x:    []*float64{f64(5), f64(5), f64(5)},
			y:    []*float64{f64(1), f64(2), f64(3)},
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := pearson(tt.x, tt.y)
			if ok != tt.ok {
				t.Fatalf("ok = %v, expected %v", ok, tt.ok)
			}
			if ok && !approx(r, tt.r) {
				t.Errorf("r = %f, expected %f", r, tt.r)
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	t.Run("empty window is insufficient data", func(t *testing.T) {
		svc := NewAnalyticsService(&mockWaterQualityRepository{}, nil, 30, 42)
		stats, err := svc.Statistics(context.Background(), repository.WaterQualityFilter{})
		if err != nil || stats != nil {
			t.Fatalf("Statistics() = %v, %v; expected nil, nil", stats, err)
		}
	})

	t.Run("store failure is an error", func(t *testing.T) {
		svc := NewAnalyticsService(&mockWaterQualityRepository{err: errors.New("db down")}, nil, 30, 42)
		if _, err := svc.Statistics(context.Background(), repository.WaterQualityFilter{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("distributions and parameters", func(t *testing.T) {
		repo := &mockWaterQualityRepository{records: []model.WaterQuality{
			{ID: 1, Province: "北京市", MonitorTime: at(3), QualityLevel: str("II"), PH: f64(7.0)},
			{ID: 2, Province: "北京市", MonitorTime: at(1), QualityLevel: str("II"), PH: f64(8.0)},
			{ID: 3, Province: "天津市", MonitorTime: at(2), QualityLevel: nil, PH: nil, Temperature: f64(12)},
		}}
		svc := NewAnalyticsService(repo, nil, 30, 42)

		stats, err := svc.Statistics(context.Background(), repository.WaterQualityFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.TotalRecords != 3 {
			t.Errorf("TotalRecords = %d, expected 3", stats.TotalRecords)
		}
		if !stats.DateRange.Start.Equal(at(1)) || !stats.DateRange.End.Equal(at(3)) {
			t.Errorf("DateRange = %v..%v", stats.DateRange.Start, stats.DateRange.End)
		}
		if stats.QualityDistribution["II"] != 2 || len(stats.QualityDistribution) != 1 {
			t.Errorf("QualityDistribution = %v", stats.QualityDistribution)
		}
		if stats.ProvinceDistribution["北京市"] != 2 || stats.ProvinceDistribution["天津市"] != 1 {
			t.Errorf("ProvinceDistribution = %v", stats.ProvinceDistribution)
		}

		ph := stats.ParameterStatistics["ph"]
		if ph.Count != 2 || !approx(ph.Mean, 7.5) {
			t.Errorf("ph = %+v", ph)
		}
		temp := stats.ParameterStatistics["temperature"]
		if temp.Count != 1 || temp.Std != nil {
			t.Errorf("temperature = %+v, expected one value and nil std", temp)
		}
		if _, ok := stats.ParameterStatistics["conductivity"]; ok {
			t.Error("conductivity has no values and should be absent")
		}
	})
}

func TestCorrelation(t *testing.T) {
	t.Run("single record is insufficient data", func(t *testing.T) {
		repo := &mockWaterQualityRepository{records: []model.WaterQuality{{ID: 1, MonitorTime: at(1), PH: f64(7)}}}
		svc := NewAnalyticsService(repo, nil, 30, 42)
		m, err := svc.Correlation(context.Background(), repository.WaterQualityFilter{})
		if err != nil || m != nil {
			t.Fatalf("Correlation() = %v, %v; expected nil, nil", m, err)
		}
	})

	t.Run("matrix", func(t *testing.T) {
		repo := &mockWaterQualityRepository{records: []model.WaterQuality{
			{ID: 1, MonitorTime: at(1), PH: f64(7.0), Temperature: f64(10), DissolvedOxygen: f64(9)},
			{ID: 2, MonitorTime: at(2), PH: f64(7.5), Temperature: f64(20), DissolvedOxygen: f64(8)},
			{ID: 3, MonitorTime: at(3), PH: f64(8.0), Temperature: f64(30), DissolvedOxygen: f64(7)},
		}}
		svc := NewAnalyticsService(repo, nil, 30, 42)
		m, err := svc.Correlation(context.Background(), repository.WaterQualityFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		index := make(map[string]int)
		for i, f := range m.Fields {
			index[f] = i
		}
		if len(m.Matrix) != len(model.NumericFields) {
			t.Fatalf("matrix has %d rows", len(m.Matrix))
		}

		cell := func(a, b string) *float64 { return m.Matrix[index[a]][index[b]] }
		if c := cell("ph", "temperature"); c == nil || *c != 1 {
			t.Errorf("ph~temperature = %v, expected 1", c)
		}
		if c := cell("dissolved_oxygen", "ph"); c == nil || *c != -1 {
			t.Errorf("dissolved_oxygen~ph = %v, expected -1", c)
		}
		if c := cell("ph", "ph"); c == nil || *c != 1 {
			t.Errorf("diagonal = %v, expected 1", c)
		}
		if c := cell("ph", "conductivity"); c != nil {
			t.Errorf("ph~conductivity = %f, expected nil", *c)
		}
	})
}

func TestTrend(t *testing.T) {
	t.Run("unknown parameter", func(t *testing.T) {
		svc := NewAnalyticsService(&mockWaterQualityRepository{}, nil, 30, 42)
		_, err := svc.Trend(context.Background(), "salinity", repository.WaterQualityFilter{})
		if !errors.Is(err, ErrUnknownParameter) {
			t.Fatalf("err = %v, expected ErrUnknownParameter", err)
		}
	})

	t.Run("fewer than two values is insufficient data", func(t *testing.T) {
		repo := &mockWaterQualityRepository{days: []repository.DailyAverage{{Day: "2024-03-01", Average: 7, Samples: 1}}}
		svc := NewAnalyticsService(repo, nil, 30, 42)
		trend, err := svc.Trend(context.Background(), "ph", repository.WaterQualityFilter{})
		if err != nil || trend != nil {
			t.Fatalf("Trend() = %v, %v; expected nil, nil", trend, err)
		}
	})

	t.Run("one day with two values is flat", func(t *testing.T) {
		repo := &mockWaterQualityRepository{days: []repository.DailyAverage{{Day: "2024-03-01", Average: 7.25, Samples: 2}}}
		svc := NewAnalyticsService(repo, nil, 30, 42)
		trend, err := svc.Trend(context.Background(), "ph", repository.WaterQualityFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trend.Slope != 0 || trend.Intercept != 7.25 {
			t.Errorf("slope/intercept = %f/%f, expected 0/7.25", trend.Slope, trend.Intercept)
		}
	})

	t.Run("daily means rising by one", func(t *testing.T) {
		repo := &mockWaterQualityRepository{days: []repository.DailyAverage{
			{Day: "2024-03-01", Average: 1, Samples: 1},
			{Day: "2024-03-02", Average: 2, Samples: 3},
			{Day: "2024-03-03", Average: 3, Samples: 1},
			{Day: "2024-03-04", Average: 4, Samples: 2},
			{Day: "2024-03-05", Average: 5, Samples: 1},
		}}
		svc := NewAnalyticsService(repo, nil, 30, 42)
		trend, err := svc.Trend(context.Background(), "temperature", repository.WaterQualityFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !approx(trend.Slope, 1) || !approx(trend.Intercept, 1) {
			t.Errorf("slope/intercept = %f/%f, expected 1/1", trend.Slope, trend.Intercept)
		}
		if len(trend.Series) != 5 || trend.Series[1].Samples != 3 {
			t.Fatalf("series = %+v", trend.Series)
		}
		if !approx(trend.Series[4].Fitted, 5) {
			t.Errorf("last fitted = %f, expected 5", trend.Series[4].Fitted)
		}
	})
}

// cluster builds a complete observation around a base value
func cluster(id uint, base float64, day int) model.WaterQuality {
	jitter := float64(id%3) * 0.01
	return model.WaterQuality{
		ID:                id,
		MonitorTime:       at(day),
		Temperature:       f64(base + jitter),
		PH:                f64(base + 0.5 - jitter),
		DissolvedOxygen:   f64(base + 1 + jitter),
		Conductivity:      f64(base*10 + jitter),
		Turbidity:         f64(base + 2 - jitter),
		PermanganateIndex: f64(base + 3 + jitter),
		AmmoniaNitrogen:   f64(base/10 + jitter),
	}
}

func TestClustering(t *testing.T) {
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("invalid cluster count", func(t *testing.T) {
		svc := NewAnalyticsService(&mockWaterQualityRepository{}, clockwork.NewFakeClockAt(now), 30, 42)
		if _, err := svc.Clustering(context.Background(), 0); !errors.Is(err, ErrInvalidClusterCount) {
			t.Fatalf("err = %v, expected ErrInvalidClusterCount", err)
		}
	})

	t.Run("fewer complete rows than clusters", func(t *testing.T) {
		incomplete := cluster(3, 5, 3)
		incomplete.AmmoniaNitrogen = nil
		repo := &mockWaterQualityRepository{records: []model.WaterQuality{cluster(1, 5, 1), cluster(2, 5, 2), incomplete}}
		svc := NewAnalyticsService(repo, clockwork.NewFakeClockAt(now), 30, 42)

		result, err := svc.Clustering(context.Background(), 3)
		if err != nil || result != nil {
			t.Fatalf("Clustering() = %v, %v; expected nil, nil", result, err)
		}
	})

	t.Run("separates two groups over the lookback window", func(t *testing.T) {
		var records []model.WaterQuality
		for i := uint(1); i <= 5; i++ {
			records = append(records, cluster(i, 5, int(i)))
		}
		for i := uint(6); i <= 10; i++ {
			records = append(records, cluster(i, 25, int(i)))
		}
		repo := &mockWaterQualityRepository{records: records}
		svc := NewAnalyticsService(repo, clockwork.NewFakeClockAt(now), 30, 42)

		result, err := svc.Clustering(context.Background(), 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !repo.lastFilter.Start.Equal(now.AddDate(0, 0, -30)) || !repo.lastFilter.End.Equal(now) {
			t.Errorf("window = %v..%v", repo.lastFilter.Start, repo.lastFilter.End)
		}
		if result.ClusterSizes[0] != 5 || result.ClusterSizes[1] != 5 {
			t.Errorf("ClusterSizes = %v, expected [5 5]", result.ClusterSizes)
		}
		first := result.Points[0].Cluster
		for i, p := range result.Points {
			if (i < 5) != (p.Cluster == first) {
				t.Errorf("point %d in cluster %d", p.ID, p.Cluster)
			}
		}
		if len(result.ExplainedVarianceRatio) != 2 || result.ExplainedVarianceRatio[0] < 0.9 {
			t.Errorf("ExplainedVarianceRatio = %v", result.ExplainedVarianceRatio)
		}
		if len(result.ClusterCenters) != 2 || len(result.ClusterCenters[0]) != len(ClusterFeatures) {
			t.Errorf("ClusterCenters = %v", result.ClusterCenters)
		}

		again, err := svc.Clustering(context.Background(), 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := range result.Points {
			if again.Points[i].Cluster != result.Points[i].Cluster {
				t.Fatalf("clustering is not deterministic at point %d", i)
			}
		}
	})
}

func TestQualityReport(t *testing.T) {
	t.Run("empty window is insufficient data", func(t *testing.T) {
		svc := NewAnalyticsService(&mockWaterQualityRepository{}, nil, 30, 42)
		report, err := svc.QualityReport(context.Background(), repository.WaterQualityFilter{})
		if err != nil || report != nil {
			t.Fatalf("QualityReport() = %v, %v; expected nil, nil", report, err)
		}
	})

	tests := []struct {
		name      string
		records   []model.WaterQuality
		rate      float64
		anomalies []string
		recs      []string
	}{
		{
			name: "good water",
			records: []model.WaterQuality{
				{ID: 1, MonitorTime: at(1), QualityLevel: str("I"), PH: f64(7.2), DissolvedOxygen: f64(8)},
				{ID: 2, MonitorTime: at(2), QualityLevel: str("II"), PH: f64(7.4), DissolvedOxygen: f64(9)},
			},
			rate:      100,
			anomalies: nil,
			recs:      []string{"水质状况良好，继续保持现有管理措施"},
		},
		{
			name: "low rate and acidic",
			records: []model.WaterQuality{
				{ID: 1, MonitorTime: at(1), QualityLevel: str("I"), PH: f64(5.5)},
				{ID: 2, MonitorTime: at(2), QualityLevel: str("III"), PH: f64(6.0)},
				{ID: 3, MonitorTime: at(3), QualityLevel: str("IV"), PH: f64(6.1), Temperature: f64(40)},
			},
			rate:      33.33,
			anomalies: []string{"ph", "temperature"},
			recs: []string{
				"水质优良率偏低，建议加强水质监测和治理措施",
				"pH值异常，建议检查酸碱平衡，必要时进行pH调节",
			},
		},
		{
			name: "turbid and low oxygen",
			records: []model.WaterQuality{
				{ID: 1, MonitorTime: at(1), QualityLevel: str("II"), DissolvedOxygen: f64(3), Turbidity: f64(80)},
			},
			rate:      100,
			anomalies: []string{"dissolved_oxygen", "turbidity"},
			recs: []string{
				"溶解氧异常，建议检查增氧设备运行状态",
				"浊度异常，建议检查过滤系统和沉淀处理",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAnalyticsService(&mockWaterQualityRepository{records: tt.records}, nil, 30, 42)
			report, err := svc.QualityReport(context.Background(), repository.WaterQualityFilter{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Summary.ExcellentRate != tt.rate {
				t.Errorf("ExcellentRate = %f, expected %f", report.Summary.ExcellentRate, tt.rate)
			}

			var got []string
			for _, a := range report.Anomalies {
				got = append(got, a.Parameter)
				if a.Status != "abnormal" {
					t.Errorf("anomaly %s status = %q", a.Parameter, a.Status)
				}
			}
			if len(got) != len(tt.anomalies) {
				t.Fatalf("anomalies = %v, expected %v", got, tt.anomalies)
			}
			for i := range got {
				if got[i] != tt.anomalies[i] {
					t.Errorf("anomaly %d = %s, expected %s", i, got[i], tt.anomalies[i])
				}
			}

			if len(report.Recommendations) != len(tt.recs) {
				t.Fatalf("recommendations = %v, expected %v", report.Recommendations, tt.recs)
			}
			for i := range tt.recs {
				if report.Recommendations[i] != tt.recs[i] {
					t.Errorf("recommendation %d = %q, expected %q", i, report.Recommendations[i], tt.recs[i])
				}
			}
		})
	}
}
