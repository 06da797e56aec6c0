package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/uvems/uvems-api/internal/dto"
	"github.com/uvems/uvems-api/internal/models"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
	"github.com/uvems/uvems-api/pkg/export"
)

type runExportSource interface {
	FindByID(ctx context.Context, id string) (*models.OptimizationRun, error)
}

type datasetExporter interface {
	Export(ds export.Dataset) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// ExportFile is a rendered run export ready to be served.
type ExportFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportService renders stored run reports as downloadable files.
type ExportService struct {
	runs   runExportSource
	csv    datasetExporter
	pdf    datasetExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(runs runExportSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		runs:   runs,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ExportRun renders the proposed schedule of a completed run in the requested
// format (csv or pdf).
func (s *ExportService) ExportRun(ctx context.Context, runID, format string) (*ExportFile, error) {
	var exporter datasetExporter
	switch strings.ToLower(format) {
	case "csv", "":
		exporter = s.csv
	case "pdf":
		exporter = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load optimization run")
	}
	if run.Status != models.OptimizationRunCompleted || len(run.Report) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "optimization run has no report to export")
	}

	var report dto.RunReport
	if err := json.Unmarshal(run.Report, &report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored run report is unreadable")
	}

	data, err := exporter.Export(buildRunDataset(run, report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Data:        data,
		ContentType: exporter.ContentType(),
		Filename:    fmt.Sprintf("optimization_run_%s.%s", run.ID, exporter.FileExtension()),
	}, nil
}

func buildRunDataset(run *models.OptimizationRun, report dto.RunReport) export.Dataset {
	ds := export.Dataset{
		Title:   fmt.Sprintf("Proposed schedule for week of %s", run.WeekStart.Format("2006-01-02")),
		Headers: []string{"Event", "Venue", "Start (UTC)", "End (UTC)", "Status"},
	}
	for _, entry := range report.Entries {
		name := entry.EventName
		if name == "" {
			name = entry.EventID
		}
		venue := entry.VenueName
		if venue == "" {
			venue = entry.VenueID
		}
		ds.Rows = append(ds.Rows, []string{
			name,
			venue,
			entry.StartTime.UTC().Format("2006-01-02 15:04"),
			entry.EndTime.UTC().Format("2006-01-02 15:04"),
			"PROPOSED",
		})
	}
	for _, finding := range report.Unscheduled {
		name := finding.EventName
		if name == "" {
			name = finding.EventID
		}
		ds.Rows = append(ds.Rows, []string{name, "", "", "", "UNSCHEDULED"})
	}
	return ds
}
