package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/pkg/jobs"
)

// Notification job types.
const (
	jobAppointmentBooked        = "appointment.booked"
	jobAppointmentStatusChanged = "appointment.status_changed"
)

// NotificationPayload carries the appointment facts a notification needs.
type NotificationPayload struct {
	AppointmentID string
	PatientID     string
	DoctorID      string
	Date          string
	Time          string
	Status        models.AppointmentStatus
}

// NotificationService fans appointment events out to a background worker
// pool. Delivery is best-effort: booking and lifecycle transitions never
// fail because a notification could not be queued.
type NotificationService struct {
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NotificationConfig tunes the background queue.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
}

// NewNotificationService builds the service and its queue. Call Start
// before enqueueing events.
func NewNotificationService(cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &NotificationService{enabled: cfg.Enabled, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// AppointmentBooked announces a freshly created appointment.
func (s *NotificationService) AppointmentBooked(appt *models.Appointment) {
	s.enqueue(jobAppointmentBooked, appt)
}

// AppointmentStatusChanged announces a lifecycle transition.
func (s *NotificationService) AppointmentStatusChanged(appt *models.Appointment) {
	s.enqueue(jobAppointmentStatusChanged, appt)
}

func (s *NotificationService) enqueue(jobType string, appt *models.Appointment) {
	if !s.enabled || appt == nil {
		return
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobType,
		Payload: NotificationPayload{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			DoctorID:      appt.DoctorID,
			Date:          appt.Date,
			Time:          appt.Time,
			Status:        appt.Status,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", jobType),
			zap.String("appointment_id", appt.ID),
			zap.Error(err))
	}
}

// handle is the queue worker. Today notifications are recorded in the
// structured log; a mail or push provider plugs in here.
func (s *NotificationService) handle(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	s.logger.Info("notification dispatched",
		zap.String("type", job.Type),
		zap.String("appointment_id", payload.AppointmentID),
		zap.String("patient_id", payload.PatientID),
		zap.String("doctor_id", payload.DoctorID),
		zap.String("date", payload.Date),
		zap.String("time", payload.Time),
		zap.String("status", string(payload.Status)))
	return nil
}
