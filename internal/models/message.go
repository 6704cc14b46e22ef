package models

import "time"

// SenderRole identifies which party of an appointment authored a message.
type SenderRole string

const (
	SenderPatient SenderRole = "patient"
	SenderDoctor  SenderRole = "doctor"
)

// Message is one immutable note attached to an appointment thread.
type Message struct {
	ID            string     `db:"id" json:"id"`
	AppointmentID string     `db:"appointment_id" json:"appointment_id"`
	SenderRole    SenderRole `db:"sender_role" json:"sender_role"`
	SenderID      string     `db:"sender_id" json:"sender_id"`
	Body          string     `db:"body" json:"body"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
