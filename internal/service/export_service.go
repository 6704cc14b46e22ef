package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/export"
)

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type doctorAppointmentLister interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorAppointment, error)
}

// ExportResult is a rendered export document.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders a doctor's appointment book as CSV or PDF.
type ExportService struct {
	appointments doctorAppointmentLister
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	enabled      bool
	logger       *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(appointments doctorAppointmentLister, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		appointments: appointments,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		enabled:      enabled,
		logger:       logger,
	}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s.enabled
}

// DoctorAppointments exports the calling doctor's appointments.
func (s *ExportService) DoctorAppointments(ctx context.Context, doctorID string, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}

	appts, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	dataset := appointmentDataset(appts)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case ExportCSV, "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("appointments-%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportPDF:
		content, err := s.pdf.Render(dataset, "Appointments")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("appointments-%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func appointmentDataset(appts []models.DoctorAppointment) export.Dataset {
	headers := []string{"Date", "Time", "Patient", "Phone", "Status", "Reason"}
	rows := make([]map[string]string, 0, len(appts))
	for _, appt := range appts {
		rows = append(rows, map[string]string{
			"Date":    appt.Date,
			"Time":    appt.Time,
			"Patient": appt.PatientName,
			"Phone":   appt.PatientPhone,
			"Status":  string(appt.Status),
			"Reason":  appt.Reason,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
