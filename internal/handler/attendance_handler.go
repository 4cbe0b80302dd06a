package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// AttendanceHandler exposes attendance recording and summaries.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record one attendance entry
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body service.RecordAttendanceInput true "Entry"
// @Success 201 {object} response.Envelope
// @Router /{school}/api/v1/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var input service.RecordAttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	entry, err := h.attendance.Record(c.Request.Context(), school.ID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// StudentSummary godoc
// @Summary Attendance summary for a student
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/attendance/students/{id} [get]
func (h *AttendanceHandler) StudentSummary(c *gin.Context) {
	school := schoolFromContext(c)
	claims := claimsFromContext(c)
	if school == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID := c.Param("id")
	if !claims.Role.Staff() {
		if claims.StudentID == nil || *claims.StudentID != studentID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}
	summary, err := h.attendance.Summary(c.Request.Context(), school.ID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
