package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// Generic messages returned to clients. Details only go to the log.
const (
	msgInternal     = "internal server error"
	msgInsufficient = "insufficient data"
	msgNoData       = "no data found"
)

// respondData writes a success envelope
func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondMessage writes a success envelope carrying only a message
func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// respondError writes a failure envelope
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// dateOnly is the layout of a calendar-day query value
const dateOnly = "2006-01-02"

// parseISO8601Date parses a date string in ISO 8601 format (RFC3339 is ISO 8601 compliant).
// dateOnlyValue reports whether the value carried no time of day.
// Supports:
//   - RFC3339 (e.g., "2006-01-02T15:04:05Z07:00")
//   - RFC3339Nano (e.g., "2006-01-02T15:04:05.999999999Z07:00")
//   - YYYY-MM-DD (e.g., "2006-01-02")
//   - YYYY-MM-DDTHH:MM:SS (e.g., "2006-01-02T15:04:05"), read as UTC
func parseISO8601Date(dateStr string) (t time.Time, dateOnlyValue bool, err error) {
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.UTC(), false, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, dateStr); err == nil {
		return t.UTC(), false, nil
	}

	if t, err := time.Parse(dateOnly, dateStr); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true, nil
	}

	if t, err := time.Parse("2006-01-02T15:04:05", dateStr); err == nil {
		return t, false, nil
	}

	return time.Time{}, false, fmt.Errorf("unable to parse ISO 8601 date: %s (expected RFC3339 or YYYY-MM-DD format)", dateStr)
}

var errInvalidRange = errors.New("end_date must be after start_date")

// parseWindow reads start_date, end_date, province and basin into a filter.
// A date-only end_date includes that whole day.
func parseWindow(c *gin.Context) (repository.WaterQualityFilter, error) {
	filter := repository.WaterQualityFilter{
		Province: strings.TrimSpace(c.Query("province")),
		Basin:    strings.TrimSpace(c.Query("basin")),
	}

	if s := c.Query("start_date"); s != "" {
		start, _, err := parseISO8601Date(s)
		if err != nil {
			return filter, fmt.Errorf("invalid start_date: %w", err)
		}
		filter.Start = &start
	}

	if s := c.Query("end_date"); s != "" {
		end, whole, err := parseISO8601Date(s)
		if err != nil {
			return filter, fmt.Errorf("invalid end_date: %w", err)
		}
		if whole {
			end = end.AddDate(0, 0, 1)
		}
		filter.End = &end
	}

	if filter.Start != nil && filter.End != nil && !filter.End.After(*filter.Start) {
		return filter, errInvalidRange
	}
	return filter, nil
}
