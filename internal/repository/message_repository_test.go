package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medi-online/clinic-api/internal/models"
)

func newMessageRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMessageRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMessageRepoMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "appt-1", "doctor", "doc-1", "fully booked that week", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	msg := &models.Message{
		AppointmentID: "appt-1",
		SenderRole:    models.SenderDoctor,
		SenderID:      "doc-1",
		Body:          "fully booked that week",
	}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryListByAppointment(t *testing.T) {
	db, mock, cleanup := newMessageRepoMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "appointment_id", "sender_role", "sender_id", "body", "created_at"}).
		AddRow("msg-1", "appt-1", "patient", "pat-1", "hello", now).
		AddRow("msg-2", "appt-1", "doctor", "doc-1", "hi there", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, appointment_id, sender_role, sender_id, body, created_at FROM messages WHERE appointment_id = $1 ORDER BY created_at ASC")).
		WithArgs("appt-1").
		WillReturnRows(rows)

	messages, err := repo.ListByAppointment(context.Background(), "appt-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.SenderPatient, messages[0].SenderRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepositoryCountDoctorMessages(t *testing.T) {
	db, mock, cleanup := newMessageRepoMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE appointment_id = $1 AND sender_role = 'doctor'")).
		WithArgs("appt-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountDoctorMessages(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
