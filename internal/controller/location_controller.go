package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// LocationController lists the ranch sites
type LocationController struct {
	repo   repository.LocationRepository
	logger *slog.Logger
}

// NewLocationController creates a new location controller
func NewLocationController(repo repository.LocationRepository, logger *slog.Logger) *LocationController {
	return &LocationController{repo: repo, logger: logger}
}

// List handles GET /api/locations
func (c *LocationController) List(ctx *gin.Context) {
	locations, err := c.repo.List(ctx.Request.Context())
	if err != nil {
		c.logger.Error("failed to list locations", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(ctx, locations)
}
