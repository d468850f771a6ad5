package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/observability"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

// ErrIngestionInProgress is returned when another run holds the pipeline
var ErrIngestionInProgress = eris.New("ingestion already in progress")

// maxRejectionSamples bounds the per-row rejections kept in a report
const maxRejectionSamples = 50

// Rejection identifies one row that was not stored
type Rejection struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason Reason `json:"reason"`
}

// Report summarizes one ingestion run
type Report struct {
	RunID          string         `json:"run_id"`
	Source         string         `json:"source"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	FilesProcessed int            `json:"files_processed"`
	FilesSkipped   int            `json:"files_skipped"`
	RowsInserted   int            `json:"rows_inserted"`
	RowsSkipped    int            `json:"rows_skipped"`
	RowsDuplicate  int            `json:"rows_duplicate"`
	Rejections     map[Reason]int `json:"rejections"`
	Samples        []Rejection    `json:"samples,omitempty"`
}

func (r *Report) reject(file string, line int, reason Reason) {
	r.RowsSkipped++
	r.Rejections[reason]++
	if len(r.Samples) < maxRejectionSamples {
		r.Samples = append(r.Samples, Rejection{File: file, Line: line, Reason: reason})
	}
}

// run converts the report into its persisted summary
func (r *Report) run(runErr error) *model.IngestionRun {
	counts, _ := json.Marshal(r.Rejections)
	run := &model.IngestionRun{
		ID:             r.RunID,
		Source:         r.Source,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		FilesProcessed: r.FilesProcessed,
		FilesSkipped:   r.FilesSkipped,
		RowsInserted:   r.RowsInserted,
		RowsSkipped:    r.RowsSkipped,
		RowsDuplicate:  r.RowsDuplicate,
		Rejections:     string(counts),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}

// Pipeline discovers source files, normalizes their rows and writes each
// file's accepted records in one bulk write. One run at a time per Pipeline.
type Pipeline struct {
	store     repository.WaterQualityRepository
	runs      repository.IngestionRunRepository
	whitelist *Whitelist
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	mu sync.Mutex
}

// NewPipeline creates a pipeline using the default whitelist. runs may be nil
// when run summaries should not be persisted.
func NewPipeline(store repository.WaterQualityRepository, runs repository.IngestionRunRepository, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:     store,
		runs:      runs,
		whitelist: DefaultWhitelist(),
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock swaps the time source. Pass nil to reset to real time.
func (p *Pipeline) SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	p.clock = c
}

// SetWhitelist replaces the province/basin whitelist
func (p *Pipeline) SetWhitelist(w *Whitelist) {
	p.whitelist = w
}

// Run ingests every supported file under root. Unreadable files and bad rows
// are counted and skipped; a store failure stops the run and is returned
// together with the partial report.
func (p *Pipeline) Run(ctx context.Context, root string) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrIngestionInProgress
	}
	defer p.mu.Unlock()

	files, err := Discover(root)
	if err != nil {
		return nil, err
	}

	report := p.begin(root)
	p.logger.Info("ingestion started", "run_id", report.RunID, "root", root, "files", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return p.finish(ctx, report, eris.Wrap(err, "ingestion cancelled"))
		}
		if err := p.ingestFile(ctx, YearContext(root, path), path, report); err != nil {
			return p.finish(ctx, report, err)
		}
	}
	return p.finish(ctx, report, nil)
}

// IngestFile ingests a single file, taking the year for time fragments from
// its file name, or from its directory when the name carries none.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrIngestionInProgress
	}
	defer p.mu.Unlock()

	if ReaderFor(path) == nil {
		return nil, eris.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	year := FileYear(path)
	if year == "" {
		year = YearContext(filepath.Dir(path), path)
	}

	report := p.begin(path)
	err := p.ingestFile(ctx, year, path, report)
	return p.finish(ctx, report, err)
}

func (p *Pipeline) begin(source string) *Report {
	p.metrics.IngestRunning.Set(1)
	return &Report{
		RunID:      uuid.NewString(),
		Source:     source,
		StartedAt:  p.clock.Now().UTC(),
		Rejections: make(map[Reason]int),
	}
}

func (p *Pipeline) finish(ctx context.Context, report *Report, runErr error) (*Report, error) {
	p.metrics.IngestRunning.Set(0)
	report.FinishedAt = p.clock.Now().UTC()

	if p.runs != nil {
		// the run summary must be written even when the caller's context is done
		saveCtx := context.WithoutCancel(ctx)
		if err := p.runs.Save(saveCtx, report.run(runErr)); err != nil {
			p.logger.Error("failed to record ingestion run", "run_id", report.RunID, "error", err)
		}
	}

	if runErr != nil {
		p.logger.Error("ingestion failed",
			"run_id", report.RunID,
			"error", runErr,
			"rows_inserted", report.RowsInserted,
		)
		return report, runErr
	}

	p.logger.Info("ingestion finished",
		"run_id", report.RunID,
		"files_processed", report.FilesProcessed,
		"files_skipped", report.FilesSkipped,
		"rows_inserted", report.RowsInserted,
		"rows_skipped", report.RowsSkipped,
	)
	return report, nil
}

// ingestFile reads, filters and normalizes one file and bulk-writes its
// records. Only a store failure is returned.
func (p *Pipeline) ingestFile(ctx context.Context, year, path string, report *Report) error {
	start := p.clock.Now()

	batch, err := ReaderFor(path).Read(ctx, path)
	if err != nil {
		report.FilesSkipped++
		p.metrics.FilesSkipped.Inc()
		p.logger.Warn("skipping file", "file", path, "error", err)
		return nil
	}
	report.FilesProcessed++
	p.metrics.FilesProcessed.Inc()

	skippedBefore := report.RowsSkipped
	for _, line := range batch.Short {
		p.rejectRow(report, path, line, ReasonShortRow)
	}

	records := make([]model.WaterQuality, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		if row.missingGrouping() {
			p.rejectRow(report, path, row.Line, ReasonMissingField)
			continue
		}
		if !p.whitelist.Allows(row.Get(ColProvince), row.Get(ColBasin)) {
			p.rejectRow(report, path, row.Line, ReasonWhitelist)
			continue
		}
		res := Normalize(row, year)
		if !res.OK() {
			p.rejectRow(report, path, row.Line, res.Reason)
			continue
		}
		records = append(records, *res.Record)
	}

	inserted, err := p.store.CreateBatch(ctx, records)
	if err != nil {
		return eris.Wrapf(err, "bulk write %s", path)
	}
	report.RowsInserted += inserted
	report.RowsDuplicate += len(records) - inserted
	p.metrics.RowsInserted.Add(float64(inserted))
	p.metrics.FileDuration.Observe(p.clock.Since(start).Seconds())

	p.logger.Info("file ingested",
		"file", path,
		"year", year,
		"rows_inserted", inserted,
		"rows_duplicate", len(records)-inserted,
		"rows_skipped", report.RowsSkipped-skippedBefore,
	)
	return nil
}

func (p *Pipeline) rejectRow(report *Report, path string, line int, reason Reason) {
	report.reject(path, line, reason)
	p.metrics.RowsRejected.WithLabelValues(string(reason)).Inc()
	p.logger.Debug("row rejected", "file", path, "line", line, "reason", reason)
}
