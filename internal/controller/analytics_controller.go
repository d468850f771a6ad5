package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

const (
	defaultTrendParameter = "ph"
	defaultClusters       = 3
)

// AnalyticsController handles analytics and export HTTP requests
type AnalyticsController struct {
	analyticsService service.AnalyticsService
	exportService    service.ExportService
	logger           *slog.Logger
}

// NewAnalyticsController creates a new analytics controller
func NewAnalyticsController(analyticsService service.AnalyticsService, exportService service.ExportService, logger *slog.Logger) *AnalyticsController {
	return &AnalyticsController{
		analyticsService: analyticsService,
		exportService:    exportService,
		logger:           logger,
	}
}

// GetStatistics handles GET /api/data/statistics
// Query parameters:
//   - start_date, end_date (optional): RFC3339 or YYYY-MM-DD; a date-only end is inclusive
//   - province, basin (optional)
func (c *AnalyticsController) GetStatistics(ctx *gin.Context) {
	startTime := time.Now()
	filter, err := parseWindow(ctx)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.analyticsService.Statistics(ctx.Request.Context(), filter)
	if err != nil {
		c.fail(ctx, "statistics", err, startTime)
		return
	}
	if stats == nil {
		respondError(ctx, http.StatusOK, msgNoData)
		return
	}

	c.logger.Info("statistics computed",
		"records", stats.TotalRecords,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	respondData(ctx, stats)
}

// GetCorrelation handles GET /api/data/correlation
func (c *AnalyticsController) GetCorrelation(ctx *gin.Context) {
	startTime := time.Now()
	filter, err := parseWindow(ctx)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	matrix, err := c.analyticsService.Correlation(ctx.Request.Context(), filter)
	if err != nil {
		c.fail(ctx, "correlation", err, startTime)
		return
	}
	if matrix == nil {
		respondError(ctx, http.StatusOK, msgInsufficient)
		return
	}
	respondData(ctx, matrix)
}

// GetTrend handles GET /api/data/trend
// Query parameters:
//   - parameter (optional): measurement name, default ph
//   - start_date, end_date, province, basin (optional)
func (c *AnalyticsController) GetTrend(ctx *gin.Context) {
	startTime := time.Now()
	filter, err := parseWindow(ctx)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	parameter := ctx.DefaultQuery("parameter", defaultTrendParameter)

	trend, err := c.analyticsService.Trend(ctx.Request.Context(), parameter, filter)
	if errors.Is(err, service.ErrUnknownParameter) {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.fail(ctx, "trend", err, startTime)
		return
	}
	if trend == nil {
		respondError(ctx, http.StatusOK, msgInsufficient)
		return
	}

	c.logger.Info("trend computed",
		"parameter", parameter,
		"days", len(trend.Series),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	respondData(ctx, trend)
}

// GetClustering handles GET /api/data/clustering
// Query parameters:
//   - n_clusters (optional): positive integer, default 3
func (c *AnalyticsController) GetClustering(ctx *gin.Context) {
	startTime := time.Now()
	n := defaultClusters
	if s := ctx.Query("n_clusters"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, "n_clusters must be an integer")
			return
		}
		n = v
	}

	result, err := c.analyticsService.Clustering(ctx.Request.Context(), n)
	if errors.Is(err, service.ErrInvalidClusterCount) {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.fail(ctx, "clustering", err, startTime)
		return
	}
	if result == nil {
		respondError(ctx, http.StatusOK, msgInsufficient)
		return
	}

	c.logger.Info("clustering computed",
		"n_clusters", n,
		"points", len(result.Points),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	respondData(ctx, result)
}

// GetReport handles GET /api/data/report
func (c *AnalyticsController) GetReport(ctx *gin.Context) {
	startTime := time.Now()
	filter, err := parseWindow(ctx)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}

	report, err := c.analyticsService.QualityReport(ctx.Request.Context(), filter)
	if err != nil {
		c.fail(ctx, "report", err, startTime)
		return
	}
	if report == nil {
		respondError(ctx, http.StatusOK, msgNoData)
		return
	}
	respondData(ctx, report)
}

// Export handles GET /api/data/export
// Query parameters:
//   - format (optional): csv or excel, default csv
//   - start_date, end_date, province, basin (optional)
func (c *AnalyticsController) Export(ctx *gin.Context) {
	startTime := time.Now()
	filter, err := parseWindow(ctx)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	format := ctx.DefaultQuery("format", service.FormatCSV)

	file, err := c.exportService.Export(ctx.Request.Context(), filter, format)
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		respondError(ctx, http.StatusBadRequest, "format must be one of: csv, excel")
		return
	case errors.Is(err, service.ErrNoData):
		respondError(ctx, http.StatusNotFound, msgNoData)
		return
	case err != nil:
		c.fail(ctx, "export", err, startTime)
		return
	}

	c.logger.Info("export rendered",
		"format", format,
		"rows", file.Rows,
		"bytes", len(file.Data),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	ctx.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	ctx.Data(http.StatusOK, file.ContentType, file.Data)
}

func (c *AnalyticsController) fail(ctx *gin.Context, analysis string, err error, startTime time.Time) {
	c.logger.Error("analysis failed",
		"analysis", analysis,
		"query", ctx.Request.URL.RawQuery,
		"error", err.Error(),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	respondError(ctx, http.StatusInternalServerError, msgInternal)
}
