package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/middleware"
	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/service"
)

type messageRepoMock struct {
	messages    []models.Message
	doctorCount int
}

func (m *messageRepoMock) Create(_ context.Context, msg *models.Message) error {
	msg.ID = "msg-1"
	return nil
}

func (m *messageRepoMock) ListByAppointment(_ context.Context, _ string) ([]models.Message, error) {
	return m.messages, nil
}

func (m *messageRepoMock) CountDoctorMessages(_ context.Context, _ string) (int, error) {
	return m.doctorCount, nil
}

type appointmentFinderMock struct {
	appt *models.Appointment
}

func (m *appointmentFinderMock) FindByID(_ context.Context, _ string) (*models.Appointment, error) {
	if m.appt == nil {
		return nil, sql.ErrNoRows
	}
	return m.appt, nil
}

func newMessageTestHandler(repo *messageRepoMock, appt *models.Appointment) *MessageHandler {
	messages := service.NewMessageService(repo, &appointmentFinderMock{appt: appt}, zap.NewNop())
	return NewMessageHandler(messages)
}

func messageContext(w *httptest.ResponseRecorder, method string, body []byte, claims *models.JWTClaims) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, "/messages/appointments/appt-1", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, "/messages/appointments/appt-1", nil)
	}
	c.Request = req
	c.Params = gin.Params{{Key: "appointmentId", Value: "appt-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c
}

func pendingThread() *models.Appointment {
	return &models.Appointment{ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1", Status: models.StatusPending}
}

func TestMessageHandlerSendCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageTestHandler(&messageRepoMock{}, pendingThread())

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodPost, []byte(`{"body":"hello doctor"}`), &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})

	handler.Send(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.SenderPatient, envelope.Data.SenderRole)
}

func TestMessageHandlerSendNonParty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageTestHandler(&messageRepoMock{}, pendingThread())

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodPost, []byte(`{"body":"hello"}`), &models.JWTClaims{UserID: "pat-99", Role: models.RolePatient})

	handler.Send(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessageHandlerSendLimitReached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rejected := pendingThread()
	rejected.Status = models.StatusRejected
	handler := newMessageTestHandler(&messageRepoMock{doctorCount: 1}, rejected)

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodPost, []byte(`{"body":"a longer explanation here"}`), &models.JWTClaims{UserID: "doc-1", Role: models.RoleDoctor})

	handler.Send(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageHandlerSendInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageTestHandler(&messageRepoMock{}, pendingThread())

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodPost, []byte(`{"body":`), &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})

	handler.Send(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessageHandlerSendWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newMessageTestHandler(&messageRepoMock{}, pendingThread())

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodPost, []byte(`{"body":"hello"}`), nil)

	handler.Send(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMessageHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &messageRepoMock{messages: []models.Message{{ID: "msg-1", Body: "hello"}}}
	handler := newMessageTestHandler(repo, pendingThread())

	w := httptest.NewRecorder()
	c := messageContext(w, http.MethodGet, nil, &models.JWTClaims{UserID: "doc-1", Role: models.RoleDoctor})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
}
