package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// ExportFormat is the rendered document type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFilter narrows the grid to one student group or teacher.
type ExportFilter struct {
	Group   string
	Teacher string
}

// ExportResult is a rendered timetable.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders stored schedules as a period-by-day grid.
type ExportService struct {
	store  TimetableStore
	csv    renderer
	pdf    renderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers default to the package exporters.
func NewExportService(store TimetableStore, logger *zap.Logger, csv renderer, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{store: store, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the current version of a schedule.
func (s *ExportService) Export(ctx context.Context, scheduleID string, format ExportFormat, filter ExportFilter) (*ExportResult, error) {
	var (
		r           renderer
		contentType string
	)
	switch ExportFormat(strings.ToLower(string(format))) {
	case ExportCSV, "":
		format, r, contentType = ExportCSV, s.csv, "text/csv"
	case ExportPDF:
		format, r, contentType = ExportPDF, s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	stored, err := s.store.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %s not found", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	dataset := BuildGrid(stored.Name, stored.Snapshot(), filter)
	payload, err := r.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Debug("timetable exported", zap.String("schedule_id", scheduleID), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return &ExportResult{
		Filename:    fmt.Sprintf("%s_v%d.%s", sanitizeFilename(stored.Name), stored.Version, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

// BuildGrid lays assignments out as one row per period and one column per weekday. Cells with
// several lessons list them in group order, one per line.
func BuildGrid(name string, schedule timetable.Schedule, filter ExportFilter) export.Dataset {
	headers := []string{"Period"}
	for day := 0; day < timetable.DaysPerWeek; day++ {
		headers = append(headers, timetable.Slot{Day: day, Period: 1}.DayName())
	}

	cells := make(map[timetable.Slot][]timetable.Assignment)
	for _, a := range schedule.Assignments {
		if filter.Group != "" && a.StudentGroup != filter.Group {
			continue
		}
		if filter.Teacher != "" && a.TeacherCode != filter.Teacher {
			continue
		}
		cells[a.Slot] = append(cells[a.Slot], a)
	}

	rows := make([]map[string]string, 0, timetable.PeriodsPerDay)
	for period := 1; period <= timetable.PeriodsPerDay; period++ {
		row := map[string]string{"Period": strconv.Itoa(period)}
		for day := 0; day < timetable.DaysPerWeek; day++ {
			slot := timetable.Slot{Day: day, Period: period}
			lessons := cells[slot]
			sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].StudentGroup < lessons[j].StudentGroup })
			lines := make([]string, 0, len(lessons))
			for _, a := range lessons {
				lines = append(lines, fmt.Sprintf("%s (%s) %s, %s", a.Subject, a.StudentGroup, a.TeacherLabel(), a.Room))
			}
			row[headers[day+1]] = strings.Join(lines, "\n")
		}
		rows = append(rows, row)
	}

	title := name
	switch {
	case filter.Group != "":
		title = fmt.Sprintf("%s: %s", name, filter.Group)
	case filter.Teacher != "":
		title = fmt.Sprintf("%s: %s", name, filter.Teacher)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "timetable"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
