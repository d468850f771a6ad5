package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/weather"
)

const defaultForecastDays = 7

// WeatherController passes weather data through from the configured provider
type WeatherController struct {
	provider weather.Provider
	logger   *slog.Logger
}

// NewWeatherController creates a new weather controller
func NewWeatherController(provider weather.Provider, logger *slog.Logger) *WeatherController {
	return &WeatherController{provider: provider, logger: logger}
}

// GetCurrent handles GET /api/weather/current
func (c *WeatherController) GetCurrent(ctx *gin.Context) {
	current, err := c.provider.Current(ctx.Request.Context())
	if err != nil {
		c.unavailable(ctx, err)
		return
	}
	respondData(ctx, current)
}

// GetForecast handles GET /api/weather/forecast?days=7
func (c *WeatherController) GetForecast(ctx *gin.Context) {
	days := defaultForecastDays
	if s := ctx.Query("days"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			respondError(ctx, http.StatusBadRequest, "days must be an integer between 1 and 16")
			return
		}
		days = v
	}

	forecast, err := c.provider.Forecast(ctx.Request.Context(), days)
	if errors.Is(err, weather.ErrInvalidDays) {
		respondError(ctx, http.StatusBadRequest, "days must be an integer between 1 and 16")
		return
	}
	if err != nil {
		c.unavailable(ctx, err)
		return
	}
	respondData(ctx, forecast)
}

func (c *WeatherController) unavailable(ctx *gin.Context, err error) {
	c.logger.Warn("weather unavailable", "path", ctx.FullPath(), "error", err.Error())
	respondError(ctx, http.StatusServiceUnavailable, weather.ErrUnavailable.Error())
}
