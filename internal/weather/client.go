package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnavailable wraps every failure to obtain weather data
	ErrUnavailable = errors.New("weather data unavailable")
	// ErrInvalidDays is returned for a forecast length outside 1..MaxForecastDays
	ErrInvalidDays = errors.New("forecast days out of range")
)

// MaxForecastDays is the longest forecast Open-Meteo serves
const MaxForecastDays = 16

var currentVariables = []string{
	"temperature_2m", "relative_humidity_2m", "precipitation",
	"wind_speed_10m", "wind_direction_10m", "weather_code",
	"pressure_msl", "surface_pressure", "cloud_cover",
	"uv_index", "visibility", "is_day",
}

var dailyVariables = []string{
	"temperature_2m_max", "temperature_2m_min", "precipitation_sum", "weather_code",
}

// Current is the present weather at the configured coordinates. Fields are
// nil when the upstream omitted them.
type Current struct {
	Time               string   `json:"time"`
	Temperature        *float64 `json:"temperature"`
	Humidity           *float64 `json:"humidity"`
	Precipitation      *float64 `json:"precipitation"`
	WindSpeed          *float64 `json:"wind_speed"`
	WindDirection      *float64 `json:"wind_direction"`
	Pressure           *float64 `json:"pressure"`
	SurfacePressure    *float64 `json:"surface_pressure"`
	CloudCover         *float64 `json:"cloud_cover"`
	UVIndex            *float64 `json:"uv_index"`
	Visibility         *float64 `json:"visibility"`
	IsDay              *int     `json:"is_day"`
	WeatherCode        *int     `json:"weather_code"`
	WeatherDescription string   `json:"weather_description"`
}

// Daily is a column-oriented multi-day forecast
type Daily struct {
	Time               []string   `json:"time"`
	TemperatureMax     []*float64 `json:"temperature_2m_max"`
	TemperatureMin     []*float64 `json:"temperature_2m_min"`
	PrecipitationSum   []*float64 `json:"precipitation_sum"`
	WeatherCode        []*int     `json:"weather_code"`
	WeatherDescription []string   `json:"weather_description"`
}

// Forecast is the daily forecast together with its location
type Forecast struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Timezone  string            `json:"timezone"`
	Units     map[string]string `json:"daily_units"`
	Daily     Daily             `json:"daily"`
}

// Client reads current weather and forecasts from the Open-Meteo API
type Client struct {
	httpClient *http.Client
	baseURL    string
	latitude   float64
	longitude  float64
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client for one fixed location.
func NewClient(baseURL string, latitude, longitude float64, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		latitude:  latitude,
		longitude: longitude,
		logger:    logger,
	}
}

// Current fetches the present conditions
func (c *Client) Current(ctx context.Context) (*Current, error) {
	params := c.params()
	params.Set("current", strings.Join(currentVariables, ","))

	var resp currentResponse
	if err := c.doRequest(ctx, params, "current", &resp); err != nil {
		return nil, err
	}

	cur := resp.Current
	return &Current{
		Time:               cur.Time,
		Temperature:        cur.Temperature,
		Humidity:           cur.Humidity,
		Precipitation:      cur.Precipitation,
		WindSpeed:          cur.WindSpeed,
		WindDirection:      cur.WindDirection,
		Pressure:           cur.Pressure,
		SurfacePressure:    cur.SurfacePressure,
		CloudCover:         cur.CloudCover,
		UVIndex:            cur.UVIndex,
		Visibility:         cur.Visibility,
		IsDay:              cur.IsDay,
		WeatherCode:        cur.WeatherCode,
		WeatherDescription: Describe(cur.WeatherCode),
	}, nil
}

// Forecast fetches a daily forecast of days days
func (c *Client) Forecast(ctx context.Context, days int) (*Forecast, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, ErrInvalidDays
	}
	params := c.params()
	params.Set("daily", strings.Join(dailyVariables, ","))
	params.Set("forecast_days", strconv.Itoa(days))

	var forecast Forecast
	if err := c.doRequest(ctx, params, "forecast", &forecast); err != nil {
		return nil, err
	}

	forecast.Daily.WeatherDescription = make([]string, len(forecast.Daily.WeatherCode))
	for i, code := range forecast.Daily.WeatherCode {
		forecast.Daily.WeatherDescription[i] = Describe(code)
	}
	return &forecast, nil
}

func (c *Client) params() url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(c.latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(c.longitude, 'f', -1, 64)},
		"timezone":  {"auto"},
	}
}

func (c *Client) doRequest(ctx context.Context, params url.Values, source string, out any) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("weather request failed", "source", source, "error", err)
		return fmt.Errorf("%w: %s request: %w", ErrUnavailable, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("weather upstream error", "source", source, "status", resp.StatusCode)
		return fmt.Errorf("%w: open-meteo status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrUnavailable, source, err)
	}

	c.logger.Debug("weather fetched", "source", source, "latency_ms", time.Since(start).Milliseconds())
	return nil
}

// Open-Meteo API response types.

type currentResponse struct {
	Current currentBlock `json:"current"`
}

type currentBlock struct {
	Time            string   `json:"time"`
	Temperature     *float64 `json:"temperature_2m"`
	Humidity        *float64 `json:"relative_humidity_2m"`
	Precipitation   *float64 `json:"precipitation"`
	WindSpeed       *float64 `json:"wind_speed_10m"`
	WindDirection   *float64 `json:"wind_direction_10m"`
	Pressure        *float64 `json:"pressure_msl"`
	SurfacePressure *float64 `json:"surface_pressure"`
	CloudCover      *float64 `json:"cloud_cover"`
	UVIndex         *float64 `json:"uv_index"`
	Visibility      *float64 `json:"visibility"`
	IsDay           *int     `json:"is_day"`
	WeatherCode     *int     `json:"weather_code"`
}
