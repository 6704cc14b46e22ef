package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/service"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/response"
)

// AdminHandler exposes the moderation back office.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Login godoc
// @Summary Log in as the administrator
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req service.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.admin.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// ListDoctors godoc
// @Summary List all doctors for moderation
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free-text search on name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors [get]
func (h *AdminHandler) ListDoctors(c *gin.Context) {
	filter := models.DoctorFilter{
		Specialty: c.Query("specialty"),
		Location:  c.Query("location"),
		Search:    c.Query("search"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
	}
	doctors, pagination, err := h.admin.ListDoctors(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, pagination)
}

// ListPatients godoc
// @Summary List all patients for moderation
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Free-text search on name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/patients [get]
func (h *AdminHandler) ListPatients(c *gin.Context) {
	filter := models.PatientFilter{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	patients, pagination, err := h.admin.ListPatients(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// SetDoctorApproval godoc
// @Summary Set a doctor's approval flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Doctor ID"
// @Param payload body service.ModerationRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors/{id}/approval [patch]
func (h *AdminHandler) SetDoctorApproval(c *gin.Context) {
	h.moderate(c, func(req service.ModerationRequest) error {
		return h.admin.SetDoctorApproval(c.Request.Context(), c.Param("id"), req)
	})
}

// SetDoctorVerified godoc
// @Summary Set a doctor's verification flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Doctor ID"
// @Param payload body service.ModerationRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors/{id}/verification [patch]
func (h *AdminHandler) SetDoctorVerified(c *gin.Context) {
	h.moderate(c, func(req service.ModerationRequest) error {
		return h.admin.SetDoctorVerified(c.Request.Context(), c.Param("id"), req)
	})
}

// SetDoctorBlocked godoc
// @Summary Set a doctor's blocked flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Doctor ID"
// @Param payload body service.ModerationRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors/{id}/block [patch]
func (h *AdminHandler) SetDoctorBlocked(c *gin.Context) {
	h.moderate(c, func(req service.ModerationRequest) error {
		return h.admin.SetDoctorBlocked(c.Request.Context(), c.Param("id"), req)
	})
}

// SetPatientBlocked godoc
// @Summary Set a patient's blocked flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param payload body service.ModerationRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /admin/patients/{id}/block [patch]
func (h *AdminHandler) SetPatientBlocked(c *gin.Context) {
	h.moderate(c, func(req service.ModerationRequest) error {
		return h.admin.SetPatientBlocked(c.Request.Context(), c.Param("id"), req)
	})
}

// SetPatientVerified godoc
// @Summary Set a patient's verification flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Patient ID"
// @Param payload body service.ModerationRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /admin/patients/{id}/verification [patch]
func (h *AdminHandler) SetPatientVerified(c *gin.Context) {
	h.moderate(c, func(req service.ModerationRequest) error {
		return h.admin.SetPatientVerified(c.Request.Context(), c.Param("id"), req)
	})
}

func (h *AdminHandler) moderate(c *gin.Context, apply func(service.ModerationRequest) error) {
	var req service.ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := apply(req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "updated"}, nil)
}
