package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medi-online/clinic-api/internal/service"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/response"
)

// PatientHandler exposes patient account endpoints.
type PatientHandler struct {
	patients *service.PatientService
}

// NewPatientHandler constructs handler.
func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// Register godoc
// @Summary Register a patient account
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body service.RegisterPatientRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /patients/register [post]
func (h *PatientHandler) Register(c *gin.Context) {
	var req service.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.patients.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login godoc
// @Summary Log in as a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body service.PatientLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /patients/login [post]
func (h *PatientHandler) Login(c *gin.Context) {
	var req service.PatientLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.patients.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Profile godoc
// @Summary Get the calling patient's profile
// @Tags Patients
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /patients/profile [get]
func (h *PatientHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	patient, err := h.patients.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}
