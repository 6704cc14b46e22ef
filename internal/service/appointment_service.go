package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/repository"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type appointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.PatientAppointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorAppointment, error)
	UpdateStatus(ctx context.Context, id, doctorID string, status models.AppointmentStatus) (*models.Appointment, error)
}

type doctorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// BookAppointmentRequest describes the payload for creating an appointment.
type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Date     string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time     string `json:"appointment_time" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// UpdateAppointmentStatusRequest carries a status transition target.
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SlotListing is the response for the public slot query.
type SlotListing struct {
	DoctorID         string                  `json:"doctor_id"`
	Date             string                  `json:"date"`
	AvailabilityMode models.AvailabilityMode `json:"availability_mode"`
	AvailableSlots   []string                `json:"available_slots"`
}

// AppointmentService coordinates slot listing, booking admission and the
// appointment lifecycle.
type AppointmentService struct {
	repo          appointmentRepository
	doctors       doctorFinder
	availability  *AvailabilityService
	notifications *NotificationService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAppointmentService instantiates AppointmentService.
func NewAppointmentService(repo appointmentRepository, doctors doctorFinder, availability *AvailabilityService, notifications *NotificationService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		repo:          repo,
		doctors:       doctors,
		availability:  availability,
		notifications: notifications,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// AvailableSlots serves the public slot listing for a doctor and date.
func (s *AppointmentService) AvailableSlots(ctx context.Context, doctorID, date string) (*SlotListing, error) {
	if strings.TrimSpace(date) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}

	doctor, err := s.loadBookableDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots, err := s.availability.CachedAvailableSlots(ctx, doctor, date)
	if err != nil {
		return nil, err
	}

	return &SlotListing{
		DoctorID:         doctor.ID,
		Date:             date,
		AvailabilityMode: doctor.AvailabilityMode,
		AvailableSlots:   slots,
	}, nil
}

// Book runs the booking transaction for a patient. Preconditions are
// checked in order and the first failure wins; the slot check and insert
// are backed by the storage occupancy constraint, so a concurrent booking
// that slips past the in-process check still resolves to a slot rejection.
func (s *AppointmentService) Book(ctx context.Context, patientID string, req BookAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "please provide doctor, date, and time")
	}

	normalized, ok := NormalizeTimeOfDay(req.Time)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid appointment time")
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	doctor, err := s.loadBookableDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	slots, err := s.availability.AvailableSlots(ctx, doctor, req.Date)
	if err != nil {
		return nil, err
	}
	if !containsSlot(slots, normalized) {
		s.recordBooking("slot_unavailable")
		return nil, s.slotUnavailable(slots)
	}

	appt := &models.Appointment{
		PatientID: patientID,
		DoctorID:  doctor.ID,
		Date:      req.Date,
		Time:      normalized + ":00",
		Status:    models.StatusPending,
		Reason:    reason,
	}

	start := time.Now()
	err = s.repo.Create(ctx, appt)
	s.observeQuery("appointment_insert", start)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// Lost the race at the occupancy constraint. Recompute so the
			// rejection carries a slot list the caller can act on.
			s.recordBooking("slot_unavailable")
			fresh, ferr := s.availability.AvailableSlots(ctx, doctor, req.Date)
			if ferr != nil {
				s.logger.Warn("failed to refresh slots after booking conflict", zap.String("doctor_id", doctor.ID), zap.Error(ferr))
			}
			return nil, s.slotUnavailable(fresh)
		}
		s.recordBooking("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.recordBooking("created")
	s.availability.InvalidateSlots(ctx, doctor.ID, req.Date)
	if s.notifications != nil {
		s.notifications.AppointmentBooked(appt)
	}
	return appt, nil
}

// ListByPatient returns the caller's appointments with doctor display fields.
func (s *AppointmentService) ListByPatient(ctx context.Context, patientID string) ([]models.PatientAppointment, error) {
	start := time.Now()
	appts, err := s.repo.ListByPatient(ctx, patientID)
	s.observeQuery("appointments_by_patient", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appts, nil
}

// ListByDoctor returns the caller's appointments with patient display fields.
func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorAppointment, error) {
	start := time.Now()
	appts, err := s.repo.ListByDoctor(ctx, doctorID)
	s.observeQuery("appointments_by_doctor", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appts, nil
}

// UpdateStatus transitions an appointment owned by the calling doctor.
// Appointments that do not exist or belong to another doctor are reported
// identically as not found.
func (s *AppointmentService) UpdateStatus(ctx context.Context, doctorID, appointmentID string, req UpdateAppointmentStatusRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status is required")
	}

	status := models.AppointmentStatus(req.Status)
	if !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "invalid status value")
	}

	start := time.Now()
	appt, err := s.repo.UpdateStatus(ctx, appointmentID, doctorID, status)
	s.observeQuery("appointment_status_update", start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	// Rejection and cancellation free the slot for other patients.
	s.availability.InvalidateSlots(ctx, appt.DoctorID, appt.Date)
	if s.notifications != nil {
		s.notifications.AppointmentStatusChanged(appt)
	}
	return appt, nil
}

func (s *AppointmentService) loadBookableDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor is required")
	}

	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDoctorNotBookable, "doctor is not accepting appointments")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if !doctor.Bookable() {
		return nil, appErrors.Clone(appErrors.ErrDoctorNotBookable, "doctor is not accepting appointments")
	}
	return doctor, nil
}

func (s *AppointmentService) slotUnavailable(slots []string) error {
	if slots == nil {
		slots = []string{}
	}
	domainErr := &models.SlotUnavailableError{
		Message:        appErrors.ErrSlotUnavailable.Message,
		AvailableSlots: slots,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrSlotUnavailable.Code, appErrors.ErrSlotUnavailable.Status, appErrors.ErrSlotUnavailable.Message)
}

func (s *AppointmentService) recordBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBookingOutcome(outcome)
	}
}

func (s *AppointmentService) observeQuery(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(operation, time.Since(start))
	}
}

func containsSlot(slots []string, slot string) bool {
	for _, candidate := range slots {
		if candidate == slot {
			return true
		}
	}
	return false
}
