package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// EnrollmentHandler manages section membership endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param section_id query string false "Section ID"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		SectionID: c.Query("section_id"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	enrollments, total, err := h.enrollments.List(c.Request.Context(), school.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Enroll godoc
// @Summary Enroll a student into a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body service.CreateEnrollmentInput true "Enrollment"
// @Success 201 {object} response.Envelope
// @Router /{school}/api/v1/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var input service.CreateEnrollmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), school.ID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Withdraw godoc
// @Summary Close a student's active enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param id path string true "Student ID"
// @Success 204
// @Router /{school}/api/v1/enrollments/students/{id} [delete]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if err := h.enrollments.Withdraw(c.Request.Context(), school.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
