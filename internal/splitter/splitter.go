package splitter

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"contact-splitter/internal/config"
	"contact-splitter/internal/db"
	"contact-splitter/internal/exporter"
	"contact-splitter/internal/metrics"
	"contact-splitter/internal/models"
	"contact-splitter/internal/parser"
	"contact-splitter/internal/processor"
	"contact-splitter/internal/storage"
)

// Recorder persists a summary of each successful run.
type Recorder interface {
	RecordRun(ctx context.Context, run *db.Run) error
}

type Request struct {
	RunID         string
	FilePath      string
	SourceName    string
	ContactColumn string
	Numbers       []string
	MaxRows       int
}

type Result struct {
	RunID   string   `json:"run_id"`
	Files   []string `json:"files"`
	RowsIn  int      `json:"rows_in"`
	RowsOut int      `json:"rows_out"`
}

type Splitter struct {
	parser    parser.Parser
	exporter  *exporter.Exporter
	workspace *storage.Workspace
	recorder  Recorder
	metrics   *metrics.Metrics
}

// NewSplitter wires the pipeline. recorder and m may be nil.
func NewSplitter(cfg *config.Config, workspace *storage.Workspace, recorder Recorder, m *metrics.Metrics) *Splitter {
	return &Splitter{
		parser:    parser.NewParser(cfg.Spreadsheet),
		exporter:  exporter.NewExporter(cfg.Spreadsheet),
		workspace: workspace,
		recorder:  recorder,
		metrics:   m,
	}
}

// Split reads the table, filters it and writes the chunks into the run's
// output folder. Previous outputs of the run are cleared only after the
// input has been read and validated.
func (s *Splitter) Split(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.split(ctx, req)
	s.observe(res, err, time.Since(start))
	return res, err
}

func (s *Splitter) split(ctx context.Context, req Request) (*Result, error) {
	if req.MaxRows <= 0 {
		return nil, models.NewValidationError(models.MsgInvalidMax)
	}
	column := strings.TrimSpace(req.ContactColumn)

	table, err := s.parser.ParseTable(req.FilePath)
	if err != nil {
		return nil, err
	}
	chunks, err := processor.Process(table, column, req.Numbers, req.MaxRows)
	if err != nil {
		return nil, err
	}

	dir, err := s.workspace.ResetOutput(req.RunID)
	if err != nil {
		return nil, err
	}
	files, err := s.exporter.WriteChunks(dir, filepath.Ext(req.FilePath), chunks)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: req.RunID, Files: files, RowsIn: table.Len()}
	for _, c := range chunks {
		res.RowsOut += c.Table.Len()
	}

	log.Info().
		Str("run_id", req.RunID).
		Str("source", req.SourceName).
		Int("rows_in", res.RowsIn).
		Int("rows_out", res.RowsOut).
		Int("files", len(files)).
		Msg("Split completed")

	s.record(ctx, req, column, res)
	return res, nil
}

func (s *Splitter) record(ctx context.Context, req Request, column string, res *Result) {
	if s.recorder == nil {
		return
	}
	run := &db.Run{
		RunID:          req.RunID,
		SourceFilename: req.SourceName,
		ContactColumn:  column,
		NumbersRemoved: len(req.Numbers),
		RowsIn:         res.RowsIn,
		RowsOut:        res.RowsOut,
		ChunkCount:     len(res.Files),
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", req.RunID).Msg("Failed to record run")
	}
}

func (s *Splitter) observe(res *Result, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.ObserveRun("ok", res.RowsIn, res.RowsOut, len(res.Files), elapsed.Seconds())
	case models.IsValidationError(err):
		s.metrics.ObserveRun("invalid", 0, 0, 0, elapsed.Seconds())
	default:
		s.metrics.ObserveRun("error", 0, 0, 0, elapsed.Seconds())
	}
}
