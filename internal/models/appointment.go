package models

import "time"

// AppointmentStatus enumerates the appointment lifecycle states.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Occupying reports whether an appointment in this status counts against
// slot availability. Rejected and cancelled appointments free their slot.
func (s AppointmentStatus) Occupying() bool {
	return s == StatusPending || s == StatusConfirmed
}

// AllowedStatuses is the transition allow-list for status updates.
var AllowedStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusRejected, StatusCancelled}

// ValidStatus reports whether the value is in the transition allow-list.
func ValidStatus(s AppointmentStatus) bool {
	for _, allowed := range AllowedStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// Appointment represents one booking request against a doctor's slot.
// Dates are naive YYYY-MM-DD strings and times are HH:MM:SS time-of-day
// values; the service layer normalizes times to HH:MM for comparison.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	PatientID string            `db:"patient_id" json:"patient_id"`
	DoctorID  string            `db:"doctor_id" json:"doctor_id"`
	Date      string            `db:"appointment_date" json:"appointment_date"`
	Time      string            `db:"appointment_time" json:"appointment_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Reason    string            `db:"reason" json:"reason"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// PatientAppointment is an appointment joined with doctor display fields
// for the patient-facing listing.
type PatientAppointment struct {
	Appointment
	DoctorName      string `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty string `db:"doctor_specialty" json:"doctor_specialty"`
}

// DoctorAppointment is an appointment joined with patient display fields
// for the doctor-facing listing.
type DoctorAppointment struct {
	Appointment
	PatientName  string `db:"patient_name" json:"patient_name"`
	PatientPhone string `db:"patient_phone" json:"patient_phone"`
}

// SlotUnavailableError is returned when a booking request loses the slot,
// either at the admission check or at the storage uniqueness constraint.
// It carries the refreshed slot list so callers can re-offer choices
// without a second round trip.
type SlotUnavailableError struct {
	Message        string   `json:"message"`
	AvailableSlots []string `json:"available_slots"`
}

// Error implements the error interface.
func (e *SlotUnavailableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
