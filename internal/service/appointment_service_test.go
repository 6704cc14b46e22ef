package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/repository"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type mockAppointmentRepo struct {
	created      []*models.Appointment
	createErr    error
	booked       []string
	bookedErr    error
	updated      *models.Appointment
	updateErr    error
	updateCalls  int
	lastStatus   models.AppointmentStatus
	lastDoctorID string
}

func (m *mockAppointmentRepo) Create(_ context.Context, appt *models.Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	appt.ID = "appt-1"
	m.created = append(m.created, appt)
	return nil
}

func (m *mockAppointmentRepo) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockAppointmentRepo) BookedSlots(_ context.Context, _, _ string) ([]string, error) {
	if m.bookedErr != nil {
		return nil, m.bookedErr
	}
	return m.booked, nil
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, _ string) ([]models.PatientAppointment, error) {
	return nil, nil
}

func (m *mockAppointmentRepo) ListByDoctor(_ context.Context, _ string) ([]models.DoctorAppointment, error) {
	return nil, nil
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, id, doctorID string, status models.AppointmentStatus) (*models.Appointment, error) {
	m.updateCalls++
	m.lastStatus = status
	m.lastDoctorID = doctorID
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updated, nil
}

type mockDoctorFinder struct {
	doctors map[string]*models.Doctor
}

func (m *mockDoctorFinder) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	doctor, ok := m.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return doctor, nil
}

func bookableDoctor(id string, slots ...string) *models.Doctor {
	mode := models.AvailabilityAlwaysOpen
	if len(slots) > 0 {
		mode = models.AvailabilityCustom
	}
	return &models.Doctor{
		ID:                id,
		AvailabilityMode:  mode,
		AvailabilitySlots: pq.StringArray(slots),
		IsVerified:        true,
		IsApproved:        true,
	}
}

func newAppointmentService(repo *mockAppointmentRepo, doctors *mockDoctorFinder) *AppointmentService {
	availability := NewAvailabilityService(repo, nil, time.Minute, zap.NewNop())
	return NewAppointmentService(repo, doctors, availability, nil, nil, nil, zap.NewNop())
}

func TestBookObservesInsertDuration(t *testing.T) {
	repo := &mockAppointmentRepo{}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00"),
	}}
	metrics := NewMetricsService()
	availability := NewAvailabilityService(repo, nil, time.Minute, zap.NewNop())
	svc := NewAppointmentService(repo, doctors, availability, nil, metrics, nil, zap.NewNop())

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "checkup",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `db_query_duration_seconds_count{operation="appointment_insert"} 1`)
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	repo := &mockAppointmentRepo{}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00", "10:00"),
	}}
	svc := newAppointmentService(repo, doctors)

	appt, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00:00",
		Reason:   "  checkup  ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, "09:00:00", appt.Time)
	assert.Equal(t, "checkup", appt.Reason)
	assert.Equal(t, "pat-1", appt.PatientID)
	require.Len(t, repo.created, 1)
}

func TestBookRejectsInvalidTime(t *testing.T) {
	svc := newAppointmentService(&mockAppointmentRepo{}, &mockDoctorFinder{})

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "25:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookRejectsBlankReason(t *testing.T) {
	svc := newAppointmentService(&mockAppointmentRepo{}, &mockDoctorFinder{})

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "   ",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookUnknownDoctorNotBookable(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newAppointmentService(repo, &mockDoctorFinder{doctors: map[string]*models.Doctor{}})

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "ghost",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDoctorNotBookable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestBookDoctorFlagsGateBooking(t *testing.T) {
	cases := map[string]*models.Doctor{
		"unverified": {ID: "doc-1", IsApproved: true},
		"unapproved": {ID: "doc-1", IsVerified: true},
		"blocked":    {ID: "doc-1", IsVerified: true, IsApproved: true, IsBlocked: true},
	}

	for name, doctor := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newAppointmentService(&mockAppointmentRepo{}, &mockDoctorFinder{doctors: map[string]*models.Doctor{"doc-1": doctor}})

			_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
				DoctorID: "doc-1",
				Date:     "2026-09-10",
				Time:     "09:00",
				Reason:   "checkup",
			})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrDoctorNotBookable.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestBookSlotNotOfferedCarriesAvailableSlots(t *testing.T) {
	repo := &mockAppointmentRepo{}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00", "10:00"),
	}}
	svc := newAppointmentService(repo, doctors)

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "13:00",
		Reason:   "checkup",
	})
	require.Error(t, err)

	var slotErr *models.SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, []string{"09:00", "10:00"}, slotErr.AvailableSlots)
	assert.Empty(t, repo.created)
}

func TestBookAlreadyBookedSlotRejected(t *testing.T) {
	repo := &mockAppointmentRepo{booked: []string{"09:00:00"}}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00", "10:00"),
	}}
	svc := newAppointmentService(repo, doctors)

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "checkup",
	})
	require.Error(t, err)

	var slotErr *models.SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, []string{"10:00"}, slotErr.AvailableSlots)
}

func TestBookLostRaceMapsToSlotUnavailable(t *testing.T) {
	repo := &mockAppointmentRepo{createErr: repository.ErrSlotTaken}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00", "10:00"),
	}}
	svc := newAppointmentService(repo, doctors)

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "checkup",
	})
	require.Error(t, err)

	var slotErr *models.SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookStorageErrorIsInternal(t *testing.T) {
	repo := &mockAppointmentRepo{createErr: errors.New("connection reset")}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00"),
	}}
	svc := newAppointmentService(repo, doctors)

	_, err := svc.Book(context.Background(), "pat-1", BookAppointmentRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Time:     "09:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &mockAppointmentRepo{}
	svc := newAppointmentService(repo, &mockDoctorFinder{})

	_, err := svc.UpdateStatus(context.Background(), "doc-1", "appt-1", UpdateAppointmentStatusRequest{Status: "done"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.updateCalls)
}

func TestUpdateStatusNotOwnedReportsNotFound(t *testing.T) {
	repo := &mockAppointmentRepo{updateErr: sql.ErrNoRows}
	svc := newAppointmentService(repo, &mockDoctorFinder{})

	_, err := svc.UpdateStatus(context.Background(), "doc-2", "appt-1", UpdateAppointmentStatusRequest{Status: "confirmed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "doc-2", repo.lastDoctorID)
}

func TestUpdateStatusTransitions(t *testing.T) {
	repo := &mockAppointmentRepo{updated: &models.Appointment{
		ID:       "appt-1",
		DoctorID: "doc-1",
		Date:     "2026-09-10",
		Status:   models.StatusConfirmed,
	}}
	svc := newAppointmentService(repo, &mockDoctorFinder{})

	appt, err := svc.UpdateStatus(context.Background(), "doc-1", "appt-1", UpdateAppointmentStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, appt.Status)
	assert.Equal(t, models.StatusConfirmed, repo.lastStatus)
}

func TestAvailableSlotsRequiresDateParam(t *testing.T) {
	svc := newAppointmentService(&mockAppointmentRepo{}, &mockDoctorFinder{})

	_, err := svc.AvailableSlots(context.Background(), "doc-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailableSlotsUnknownDoctor(t *testing.T) {
	svc := newAppointmentService(&mockAppointmentRepo{}, &mockDoctorFinder{doctors: map[string]*models.Doctor{}})

	_, err := svc.AvailableSlots(context.Background(), "ghost", "2026-09-10")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDoctorNotBookable.Code, appErrors.FromError(err).Code)
}

func TestAvailableSlotsListing(t *testing.T) {
	repo := &mockAppointmentRepo{booked: []string{"09:00:00"}}
	doctors := &mockDoctorFinder{doctors: map[string]*models.Doctor{
		"doc-1": bookableDoctor("doc-1", "09:00", "10:00", "14:30"),
	}}
	svc := newAppointmentService(repo, doctors)

	listing, err := svc.AvailableSlots(context.Background(), "doc-1", "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", listing.DoctorID)
	assert.Equal(t, models.AvailabilityCustom, listing.AvailabilityMode)
	assert.Equal(t, []string{"10:00", "14:30"}, listing.AvailableSlots)
}
