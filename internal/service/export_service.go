package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
	"github.com/tumblelab/gym-api/pkg/export"
)

type exportEnrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type exportIterationRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.IterationDetail, error)
}

// ExportFormat names a supported roster output format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders class rosters as CSV or PDF.
type ExportService struct {
	enrollments exportEnrollmentRepository
	iterations  exportIterationRepository
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
	enabled     bool
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments exportEnrollmentRepository, iterations exportIterationRepository, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		iterations:  iterations,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		enabled:     enabled,
	}
}

// Roster renders the active roster for one iteration.
func (s *ExportService) Roster(ctx context.Context, iterationID string, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	detail, err := s.iterations.FindDetailByID(ctx, iterationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "iteration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load iteration")
	}

	enrollments, err := s.loadFullRoster(ctx, iterationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Athlete", "Days Per Week", "Selected Days", "Joined"},
	}
	for _, e := range enrollments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Athlete":       e.AthleteName,
			"Days Per Week": fmt.Sprintf("%d", e.DaysPerWeek),
			"Selected Days": strings.Join(e.SelectedDays, ", "),
			"Joined":        e.JoinedAt.Format("2006-01-02"),
		})
	}

	title := fmt.Sprintf("%s - Iteration %d Roster", detail.ProgramName, detail.IterationNumber)
	base := fmt.Sprintf("roster-%s-%d", slugify(detail.ProgramName), detail.IterationNumber)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return &ExportResult{FileName: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return &ExportResult{FileName: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// loadFullRoster pages through every active enrollment of the iteration so
// rosters larger than one page are never truncated.
func (s *ExportService) loadFullRoster(ctx context.Context, iterationID string) ([]models.EnrollmentDetail, error) {
	const pageSize = 100

	var roster []models.EnrollmentDetail
	for page := 1; ; page++ {
		batch, total, err := s.enrollments.List(ctx, models.EnrollmentFilter{
			IterationID: iterationID,
			Status:      models.EnrollmentStatusActive,
			Page:        page,
			PageSize:    pageSize,
			SortBy:      "athlete_name",
			SortOrder:   "ASC",
		})
		if err != nil {
			return nil, err
		}
		roster = append(roster, batch...)
		if len(batch) < pageSize || len(roster) >= total {
			return roster, nil
		}
	}
}

func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "class"
	}
	return b.String()
}
