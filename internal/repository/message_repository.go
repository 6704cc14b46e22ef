package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medi-online/clinic-api/internal/models"
)

// MessageRepository provides persistence for appointment messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a new message. Messages are append-only.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO messages (id, appointment_id, sender_role, sender_id, body, created_at) VALUES (:id, :appointment_id, :sender_role, :sender_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByAppointment returns messages for an appointment in creation order.
func (r *MessageRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Message, error) {
	const query = `SELECT id, appointment_id, sender_role, sender_id, body, created_at FROM messages WHERE appointment_id = $1 ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list appointment messages: %w", err)
	}
	return messages, nil
}

// CountDoctorMessages returns the number of doctor-authored messages on an
// appointment. Used to enforce the single rejection-reason message.
func (r *MessageRepository) CountDoctorMessages(ctx context.Context, appointmentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE appointment_id = $1 AND sender_role = 'doctor'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, appointmentID); err != nil {
		return 0, fmt.Errorf("count doctor messages: %w", err)
	}
	return count, nil
}
