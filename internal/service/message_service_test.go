package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type mockMessageRepo struct {
	created     []*models.Message
	createErr   error
	messages    []models.Message
	doctorCount int
	countErr    error
}

func (m *mockMessageRepo) Create(_ context.Context, msg *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	msg.ID = "msg-1"
	m.created = append(m.created, msg)
	return nil
}

func (m *mockMessageRepo) ListByAppointment(_ context.Context, _ string) ([]models.Message, error) {
	return m.messages, nil
}

func (m *mockMessageRepo) CountDoctorMessages(_ context.Context, _ string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.doctorCount, nil
}

type mockAppointmentFinder struct {
	appointments map[string]*models.Appointment
}

func (m *mockAppointmentFinder) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	appt, ok := m.appointments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return appt, nil
}

func threadFixture(status models.AppointmentStatus) *mockAppointmentFinder {
	return &mockAppointmentFinder{appointments: map[string]*models.Appointment{
		"appt-1": {ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1", Status: status},
	}}
}

func patientClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient}
}

func doctorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "doc-1", Role: models.RoleDoctor}
}

func TestSendPatientMessageOnPendingAppointment(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusPending), zap.NewNop())

	msg, err := svc.Send(context.Background(), patientClaims(), "appt-1", "  hello doctor  ")
	require.NoError(t, err)

	assert.Equal(t, models.SenderPatient, msg.SenderRole)
	assert.Equal(t, "pat-1", msg.SenderID)
	assert.Equal(t, "hello doctor", msg.Body)
	require.Len(t, repo.created, 1)
}

func TestSendNonPartyReportsNotFound(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusPending), zap.NewNop())

	stranger := &models.JWTClaims{UserID: "pat-99", Role: models.RolePatient}
	_, err := svc.Send(context.Background(), stranger, "appt-1", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSendMissingAppointmentReportsNotFound(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, &mockAppointmentFinder{}, zap.NewNop())

	_, err := svc.Send(context.Background(), patientClaims(), "ghost", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSendDoctorOnCancelledAppointmentClosed(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusCancelled), zap.NewNop())

	_, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMessagingClosed.Code, appErrors.FromError(err).Code)
}

func TestSendPatientOnCancelledAppointmentAllowed(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusCancelled), zap.NewNop())

	_, err := svc.Send(context.Background(), patientClaims(), "appt-1", "why was this cancelled?")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestSendDoctorRejectedAppointmentSingleReply(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusRejected), zap.NewNop())

	msg, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "fully booked that week, sorry")
	require.NoError(t, err)
	assert.Equal(t, models.SenderDoctor, msg.SenderRole)
}

func TestSendDoctorRejectedAppointmentLimitReached(t *testing.T) {
	repo := &mockMessageRepo{doctorCount: 1}
	svc := NewMessageService(repo, threadFixture(models.StatusRejected), zap.NewNop())

	_, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "one more explanation")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLimitReached.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestSendDoctorRejectionReasonTooShort(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusRejected), zap.NewNop())

	// Nine characters after trimming.
	_, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "  too short  ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReasonTooShort.Code, appErrors.FromError(err).Code)
}

func TestSendDoctorRejectionReasonCountsCharactersNotBytes(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusRejected), zap.NewNop())

	// Four characters, twelve bytes.
	_, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "抱歉没空")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReasonTooShort.Code, appErrors.FromError(err).Code)
}

func TestSendDoctorRejectionReasonBoundary(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusRejected), zap.NewNop())

	// Exactly ten characters passes.
	_, err := svc.Send(context.Background(), doctorClaims(), "appt-1", "ten chars!")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestSendEmptyBodyRejected(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusPending), zap.NewNop())

	_, err := svc.Send(context.Background(), patientClaims(), "appt-1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSendOverlongBodyRejected(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusPending), zap.NewNop())

	_, err := svc.Send(context.Background(), patientClaims(), "appt-1", strings.Repeat("a", 2001))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSendBodyAtLimitAccepted(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusPending), zap.NewNop())

	_, err := svc.Send(context.Background(), patientClaims(), "appt-1", strings.Repeat("a", 2000))
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestSendMultibyteBodyAtLimitAccepted(t *testing.T) {
	repo := &mockMessageRepo{}
	svc := NewMessageService(repo, threadFixture(models.StatusPending), zap.NewNop())

	// 2000 characters but 6000 bytes; the cap counts characters.
	_, err := svc.Send(context.Background(), patientClaims(), "appt-1", strings.Repeat("谢", 2000))
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestListRequiresParty(t *testing.T) {
	svc := NewMessageService(&mockMessageRepo{}, threadFixture(models.StatusPending), zap.NewNop())

	stranger := &models.JWTClaims{UserID: "doc-99", Role: models.RoleDoctor}
	_, err := svc.List(context.Background(), stranger, "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListReturnsThread(t *testing.T) {
	repo := &mockMessageRepo{messages: []models.Message{
		{ID: "msg-1", Body: "first"},
		{ID: "msg-2", Body: "second"},
	}}
	svc := NewMessageService(repo, threadFixture(models.StatusPending), zap.NewNop())

	messages, err := svc.List(context.Background(), patientClaims(), "appt-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
}
