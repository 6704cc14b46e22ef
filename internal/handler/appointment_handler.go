package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/service"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/response"
)

// AppointmentHandler exposes slot listing, booking and lifecycle endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
	exports      *service.ExportService
}

// NewAppointmentHandler constructs handler.
func NewAppointmentHandler(appointments *service.AppointmentService, exports *service.ExportService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, exports: exports}
}

// Slots godoc
// @Summary List a doctor's available slots for a date
// @Tags Appointments
// @Produce json
// @Param doctorId path string true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /appointments/doctor/{doctorId}/slots [get]
func (h *AppointmentHandler) Slots(c *gin.Context) {
	listing, err := h.appointments.AvailableSlots(c.Request.Context(), c.Param("doctorId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Book godoc
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	appt, err := h.appointments.Book(c.Request.Context(), claims.UserID, req)
	if err != nil {
		var slotErr *models.SlotUnavailableError
		if errors.As(err, &slotErr) {
			response.ErrorWithMeta(c, err, map[string]interface{}{"available_slots": slotErr.AvailableSlots})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// ListForPatient godoc
// @Summary List the calling patient's appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/patient [get]
func (h *AppointmentHandler) ListForPatient(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appts, err := h.appointments.ListByPatient(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, nil)
}

// ListForDoctor godoc
// @Summary List the calling doctor's appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /appointments/doctor [get]
func (h *AppointmentHandler) ListForDoctor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appts, err := h.appointments.ListByDoctor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, nil)
}

// UpdateStatus godoc
// @Summary Transition an appointment's status
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body service.UpdateAppointmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.appointments.UpdateStatus(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Export godoc
// @Summary Export the calling doctor's appointments
// @Tags Appointments
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.exports.DoctorAppointments(c.Request.Context(), claims.UserID, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
