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

// AssessmentHandler exposes assessment management endpoints.
type AssessmentHandler struct {
	assessments *service.AssessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// List godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param section_id query string false "Section ID"
// @Param term query string false "Term label"
// @Param published query bool false "Published filter"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter := models.AssessmentFilter{
		SectionID: c.Query("section_id"),
		SubjectID: c.Query("subject_id"),
		TermLabel: c.Query("term"),
	}
	if raw := c.Query("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "published must be a boolean"))
			return
		}
		filter.Published = &published
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	assessments, total, err := h.assessments.List(c.Request.Context(), school.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Create godoc
// @Summary Define a new assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body service.CreateAssessmentInput true "Assessment"
// @Success 201 {object} response.Envelope
// @Router /{school}/api/v1/assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var input service.CreateAssessmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	assessment, err := h.assessments.Create(c.Request.Context(), school.ID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assessment)
}

// SetPublished godoc
// @Summary Publish or unpublish an assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param id path string true "Assessment ID"
// @Success 204
// @Router /{school}/api/v1/assessments/{id}/publish [patch]
func (h *AssessmentHandler) SetPublished(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var body struct {
		Published bool `json:"published"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.assessments.SetPublished(c.Request.Context(), school.ID, c.Param("id"), body.Published); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
