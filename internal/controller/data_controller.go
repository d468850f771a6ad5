package controller

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

const (
	defaultPageSize   = 100
	maxPageSize       = 1000
	historyDays       = 30
	historyTableLimit = 10
	defaultHistory    = "temperature"
)

// historyAliases maps the dashboard's short parameter names to measurements
var historyAliases = map[string]string{
	"oxygen": "dissolved_oxygen",
}

// DataController serves raw observations for browsing
type DataController struct {
	repo   repository.WaterQualityRepository
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewDataController creates a new data controller
func NewDataController(repo repository.WaterQualityRepository, clock clockwork.Clock, logger *slog.Logger) *DataController {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DataController{repo: repo, clock: clock, logger: logger}
}

// PagedRecords is one page of observations
type PagedRecords struct {
	Records  []model.WaterQuality `json:"records"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// GetWaterQualityData handles GET /api/water_quality_data
// Query parameters:
//   - province, basin (optional)
//   - page (optional, default 1), page_size (optional, default 100, max 1000)
func (c *DataController) GetWaterQualityData(ctx *gin.Context) {
	page, err := positiveQuery(ctx, "page", 1)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := positiveQuery(ctx, "page_size", defaultPageSize)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	}
	pageSize = min(pageSize, maxPageSize)

	filter := repository.WaterQualityFilter{
		Province: strings.TrimSpace(ctx.Query("province")),
		Basin:    strings.TrimSpace(ctx.Query("basin")),
	}
	records, total, err := c.repo.Page(ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		c.logger.Error("failed to page water quality", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	respondData(ctx, PagedRecords{Records: records, Total: total, Page: page, PageSize: pageSize})
}

// GetProvinces handles GET /api/provinces
func (c *DataController) GetProvinces(ctx *gin.Context) {
	provinces, err := c.repo.DistinctProvinces(ctx.Request.Context())
	if err != nil {
		c.logger.Error("failed to list provinces", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(ctx, provinces)
}

// GetBasins handles GET /api/basins?province=
func (c *DataController) GetBasins(ctx *gin.Context) {
	basins, err := c.repo.DistinctBasins(ctx.Request.Context(), strings.TrimSpace(ctx.Query("province")))
	if err != nil {
		c.logger.Error("failed to list basins", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(ctx, basins)
}

// HistoryRow is one line of the history table
type HistoryRow struct {
	Time         string   `json:"time"`
	Temperature  *float64 `json:"temperature"`
	PH           *float64 `json:"ph"`
	Oxygen       *float64 `json:"oxygen"`
	Turbidity    *float64 `json:"turbidity"`
	Conductivity *float64 `json:"conductivity"`
	Status       string   `json:"status"`
}

// History is a per-day chart series plus the most recent observations
type History struct {
	Parameter string       `json:"parameter"`
	Labels    []string     `json:"labels"`
	Data      []float64    `json:"data"`
	TableData []HistoryRow `json:"table_data"`
}

// GetWaterQualityHistory handles GET /api/water_quality_history
// Query parameters:
//   - dataType (optional): temperature, ph, oxygen, turbidity, conductivity or any measurement; default temperature
//   - startDate, endDate (optional): YYYY-MM-DD, end inclusive; both must parse or the last 30 days are used
func (c *DataController) GetWaterQualityHistory(ctx *gin.Context) {
	parameter := historyParameter(ctx.Query("dataType"))
	start, end := c.historyWindow(ctx.Query("startDate"), ctx.Query("endDate"))
	filter := repository.WaterQualityFilter{Start: &start, End: &end}

	days, err := c.repo.DailyAverages(ctx.Request.Context(), parameter, filter)
	if err != nil {
		c.logger.Error("failed to aggregate history", "parameter", parameter, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	latest, err := c.repo.Latest(ctx.Request.Context(), filter, historyTableLimit)
	if err != nil {
		c.logger.Error("failed to load latest records", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	history := History{
		Parameter: parameter,
		Labels:    make([]string, len(days)),
		Data:      make([]float64, len(days)),
		TableData: make([]HistoryRow, len(latest)),
	}
	for i, d := range days {
		history.Labels[i] = d.Day
		history.Data[i] = math.Round(d.Average*100) / 100
	}
	for i, rec := range latest {
		history.TableData[i] = HistoryRow{
			Time:         rec.MonitorTime.UTC().Format("2006-01-02 15:04"),
			Temperature:  rec.Temperature,
			PH:           rec.PH,
			Oxygen:       rec.DissolvedOxygen,
			Turbidity:    rec.Turbidity,
			Conductivity: rec.Conductivity,
			Status:       rec.StationStatus,
		}
	}
	respondData(ctx, history)
}

func historyParameter(dataType string) string {
	if field, ok := historyAliases[dataType]; ok {
		return field
	}
	if slices.Contains(model.NumericFields, dataType) {
		return dataType
	}
	return defaultHistory
}

func (c *DataController) historyWindow(startStr, endStr string) (time.Time, time.Time) {
	start, errStart := time.Parse(dateOnly, startStr)
	end, errEnd := time.Parse(dateOnly, endStr)
	if errStart != nil || errEnd != nil || end.Before(start) {
		end = c.clock.Now().UTC()
		return end.AddDate(0, 0, -historyDays), end
	}
	return start, end.AddDate(0, 0, 1)
}

func positiveQuery(ctx *gin.Context, key string, def int) (int, error) {
	s := ctx.Query(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return v, nil
}
