package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/ingest"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// uploadExtensions are the file types accepted by the upload endpoint
var uploadExtensions = []string{".csv", ".xlsx", ".xls"}

const defaultRunLimit = 20

// FileIngester ingests one source file
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (*ingest.Report, error)
}

// IngestController accepts uploaded source files and lists past ingestion runs
type IngestController struct {
	ingester  FileIngester
	runs      repository.IngestionRunRepository
	uploadDir string
	maxBytes  int64
	logger    *slog.Logger
}

// NewIngestController creates a new ingest controller. Uploads larger than
// maxBytes are refused.
func NewIngestController(ingester FileIngester, runs repository.IngestionRunRepository, uploadDir string, maxBytes int64, logger *slog.Logger) *IngestController {
	return &IngestController{
		ingester:  ingester,
		runs:      runs,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Upload handles POST /api/data/upload with a multipart "file" field
func (c *IngestController) Upload(ctx *gin.Context) {
	startTime := time.Now()
	if ctx.Request.ContentLength > c.maxBytes {
		respondError(ctx, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", c.maxBytes))
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes)

	header, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", c.maxBytes))
			return
		}
		respondError(ctx, http.StatusBadRequest, "no file selected")
		return
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || !slices.Contains(uploadExtensions, strings.ToLower(filepath.Ext(name))) {
		respondError(ctx, http.StatusBadRequest, "file type must be one of: "+strings.Join(uploadExtensions, ", "))
		return
	}

	// each upload gets its own directory so the file keeps its original name
	dir := filepath.Join(c.uploadDir, "upload-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		c.logger.Error("failed to create upload dir", "dir", dir, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := ctx.SaveUploadedFile(header, path); err != nil {
		c.logger.Error("failed to save upload", "file", name, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	report, err := c.ingester.IngestFile(ctx.Request.Context(), path)
	if errors.Is(err, ingest.ErrIngestionInProgress) {
		respondError(ctx, http.StatusConflict, "an ingestion is already running, try again later")
		return
	}
	if err != nil {
		c.logger.Error("upload ingestion failed",
			"file", name,
			"error", err.Error(),
			"latency_ms", time.Since(startTime).Milliseconds(),
		)
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	if report.FilesSkipped > 0 {
		respondError(ctx, http.StatusBadRequest, "file could not be read or lacks province/basin columns")
		return
	}

	c.logger.Info("upload ingested",
		"file", name,
		"size", header.Size,
		"rows_inserted", report.RowsInserted,
		"rows_skipped", report.RowsSkipped,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("imported %d records, skipped %d", report.RowsInserted, report.RowsSkipped),
		"data":    report,
	})
}

// ListRuns handles GET /api/admin/ingestion_runs?limit=
func (c *IngestController) ListRuns(ctx *gin.Context) {
	limit := defaultRunLimit
	if s := ctx.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			respondError(ctx, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, 200)
	}

	runs, err := c.runs.Recent(ctx.Request.Context(), limit)
	if err != nil {
		c.logger.Error("failed to list ingestion runs", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(ctx, runs)
}
