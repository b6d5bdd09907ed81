package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-assist/rostering-api/internal/models"
	"github.com/campus-assist/rostering-api/pkg/export"
	"github.com/campus-assist/rostering-api/pkg/storage"
)

type exportTimeEntryRepository interface {
	ListInRange(ctx context.Context, scheduleID int, username string, from, to time.Time) ([]models.TimeEntry, error)
}

type exportScheduleRepository interface {
	Grid(ctx context.Context, scheduleID int, start, end time.Time) ([]models.Shift, error)
	AllocationsForShifts(ctx context.Context, shiftIDs []string) ([]models.AllocationDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders attendance and schedule datasets to CSV/PDF and
// persists them behind a signed, time-limited download token.
type ExportService struct {
	entries   exportTimeEntryRepository
	schedules exportScheduleRepository
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs the export service.
func NewExportService(entries exportTimeEntryRepository, schedules exportScheduleRepository, fstorage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		entries:   entries,
		schedules: schedules,
		storage:   fstorage,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset a job describes, renders it in the requested
// format, stores the file and returns a signed download URL for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token and returns the path it references.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup purges files older than ttl, defaulting to the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.Username)
	if scope == "na" {
		scope = fmt.Sprintf("schedule-%d", job.Params.ScheduleID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, job.Params)
	case models.ReportTypeSchedule:
		return s.buildScheduleDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	from, to, err := parseReportRange(params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows, err := s.entries.ListInRange(ctx, params.ScheduleID, params.Username, from, to)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load attendance entries: %w", err)
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, e := range rows {
		clockOut := ""
		hours := "0.00"
		if e.ClockOut != nil {
			clockOut = e.ClockOut.UTC().Format(time.RFC3339)
			hours = fmt.Sprintf("%.2f", e.DurationHours())
		}
		dataRows = append(dataRows, map[string]string{
			"Username":   e.Username,
			"Clock In":   e.ClockIn.UTC().Format(time.RFC3339),
			"Clock Out":  clockOut,
			"Hours":      hours,
			"Status":     string(e.Status),
			"Auto Close": fmt.Sprintf("%t", e.AutoCompleted),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Username", "Clock In", "Clock Out", "Hours", "Status", "Auto Close"},
		Rows:    dataRows,
	}
	title := "Attendance Report"
	if params.Username != "" {
		title = fmt.Sprintf("Attendance Report - %s", params.Username)
	}
	return dataset, title, nil
}

func (s *ExportService) buildScheduleDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	from, to, err := parseReportRange(params)
	if err != nil {
		return export.Dataset{}, "", err
	}
	shifts, err := s.schedules.Grid(ctx, params.ScheduleID, from, to)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load grid: %w", err)
	}
	ids := make([]string, len(shifts))
	for i, sh := range shifts {
		ids[i] = sh.ID
	}
	allocations, err := s.schedules.AllocationsForShifts(ctx, ids)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load allocations: %w", err)
	}
	staffByShift := make(map[string][]string)
	for _, a := range allocations {
		staffByShift[a.ShiftID] = append(staffByShift[a.ShiftID], a.StaffName)
	}

	dataRows := make([]map[string]string, 0, len(shifts))
	for _, sh := range shifts {
		dataRows = append(dataRows, map[string]string{
			"Date":      sh.Date.Format("2006-01-02"),
			"Start":     sh.StartTime.String(),
			"End":       sh.EndTime.String(),
			"Staff":     strings.Join(staffByShift[sh.ID], ", "),
			"Headcount": fmt.Sprintf("%d", len(staffByShift[sh.ID])),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Staff", "Headcount"},
		Rows:    dataRows,
	}
	return dataset, "Schedule Grid", nil
}

func parseReportRange(params models.ReportJobParams) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", params.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate: %w", err)
	}
	to, err := time.Parse("2006-01-02", params.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate: %w", err)
	}
	return from, to.AddDate(0, 0, 1), nil
}
