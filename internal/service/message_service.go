package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

const (
	maxMessageLength          = 2000
	minRejectionReasonLength  = 10
	maxDoctorRejectionReplies = 1
)

type messageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Message, error)
	CountDoctorMessages(ctx context.Context, appointmentID string) (int, error)
}

type appointmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

// MessageService enforces the messaging policy on appointment threads.
type MessageService struct {
	repo         messageRepository
	appointments appointmentFinder
	logger       *zap.Logger
}

// NewMessageService instantiates MessageService.
func NewMessageService(repo messageRepository, appointments appointmentFinder, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, appointments: appointments, logger: logger}
}

// List returns the messages of an appointment the caller is party to.
// Non-party callers receive the same not-found answer as missing
// appointments so message threads never leak existence.
func (s *MessageService) List(ctx context.Context, claims *models.JWTClaims, appointmentID string) ([]models.Message, error) {
	if _, err := s.loadPartyAppointment(ctx, claims, appointmentID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

// Send applies the messaging policy in order and persists the message when
// every rule passes. Doctors may only message active appointments, and a
// rejected appointment admits exactly one doctor message of at least ten
// characters, which is the channel for justifying the rejection.
func (s *MessageService) Send(ctx context.Context, claims *models.JWTClaims, appointmentID, body string) (*models.Message, error) {
	trimmed := strings.TrimSpace(body)

	appt, err := s.loadPartyAppointment(ctx, claims, appointmentID)
	if err != nil {
		return nil, err
	}

	if claims.Role == models.RoleDoctor {
		switch appt.Status {
		case models.StatusPending, models.StatusConfirmed, models.StatusRejected:
		default:
			return nil, appErrors.Clone(appErrors.ErrMessagingClosed, "")
		}

		if appt.Status == models.StatusRejected {
			count, err := s.repo.CountDoctorMessages(ctx, appointmentID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count messages")
			}
			if count >= maxDoctorRejectionReplies {
				return nil, appErrors.Clone(appErrors.ErrLimitReached, "")
			}
			if utf8.RuneCountInString(trimmed) < minRejectionReasonLength {
				return nil, appErrors.Clone(appErrors.ErrReasonTooShort, "")
			}
		}
	}

	if trimmed == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message is required")
	}
	if utf8.RuneCountInString(trimmed) > maxMessageLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message is too long")
	}

	msg := &models.Message{
		AppointmentID: appt.ID,
		SenderRole:    senderRole(claims.Role),
		SenderID:      claims.UserID,
		Body:          trimmed,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create message")
	}
	return msg, nil
}

func (s *MessageService) loadPartyAppointment(ctx context.Context, claims *models.JWTClaims, appointmentID string) (*models.Appointment, error) {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	if claims == nil || strings.TrimSpace(appointmentID) == "" {
		return nil, notFound
	}

	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if !isParty(appt, claims) {
		return nil, notFound
	}
	return appt, nil
}

func isParty(appt *models.Appointment, claims *models.JWTClaims) bool {
	switch claims.Role {
	case models.RolePatient:
		return appt.PatientID == claims.UserID
	case models.RoleDoctor:
		return appt.DoctorID == claims.UserID
	default:
		return false
	}
}

func senderRole(role models.UserRole) models.SenderRole {
	if role == models.RoleDoctor {
		return models.SenderDoctor
	}
	return models.SenderPatient
}
