package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medi-online/clinic-api/internal/models"
)

// ErrSlotTaken is returned when an insert loses the race for a slot and the
// occupancy constraint on (doctor, date, time) rejects the row. Callers map
// it to a booking rejection rather than an infrastructure failure.
var ErrSlotTaken = errors.New("appointment slot already taken")

const appointmentColumns = `id, patient_id, doctor_id, appointment_date::text AS appointment_date, appointment_time::text AS appointment_time, status, reason, created_at, updated_at`

// AppointmentRepository provides persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment. The appointments_slot_occupied_idx
// partial unique index serializes concurrent bookings for the same
// doctor/date/time; a unique violation is surfaced as ErrSlotTaken.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if appt.Status == "" {
		appt.Status = models.StatusPending
	}

	const query = `INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time, status, reason, created_at, updated_at) VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, appt.ID, appt.PatientID, appt.DoctorID, appt.Date, appt.Time, appt.Status, appt.Reason, appt.CreatedAt, appt.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSlotTaken
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// BookedSlots returns the time-of-day values occupied on the given date,
// restricted to occupying statuses and ordered ascending.
func (r *AppointmentRepository) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	const query = `SELECT appointment_time::text FROM appointments WHERE doctor_id = $1 AND appointment_date = $2::date AND status IN ('pending', 'confirmed') ORDER BY appointment_time ASC`
	var slots []string
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	return slots, nil
}

// ListByPatient returns the patient's appointments with doctor display fields.
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]models.PatientAppointment, error) {
	const query = `SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date::text AS appointment_date, a.appointment_time::text AS appointment_time, a.status, a.reason, a.created_at, a.updated_at, d.name AS doctor_name, d.specialty AS doctor_specialty FROM appointments a JOIN doctors d ON d.id = a.doctor_id WHERE a.patient_id = $1 ORDER BY a.appointment_date ASC, a.appointment_time ASC`
	var appts []models.PatientAppointment
	if err := r.db.SelectContext(ctx, &appts, query, patientID); err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return appts, nil
}

// ListByDoctor returns the doctor's appointments with patient display fields.
func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.DoctorAppointment, error) {
	const query = `SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date::text AS appointment_date, a.appointment_time::text AS appointment_time, a.status, a.reason, a.created_at, a.updated_at, p.name AS patient_name, p.phone AS patient_phone FROM appointments a JOIN patients p ON p.id = a.patient_id WHERE a.doctor_id = $1 ORDER BY a.appointment_date ASC, a.appointment_time ASC`
	var appts []models.DoctorAppointment
	if err := r.db.SelectContext(ctx, &appts, query, doctorID); err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return appts, nil
}

// UpdateStatus transitions an appointment owned by the doctor. sql.ErrNoRows
// is returned when the appointment does not exist or belongs to another
// doctor; callers must not distinguish the two cases.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, doctorID string, status models.AppointmentStatus) (*models.Appointment, error) {
	query := fmt.Sprintf(`UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3 AND doctor_id = $4 RETURNING %s`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, status, time.Now().UTC(), id, doctorID); err != nil {
		return nil, err
	}
	return &appt, nil
}
