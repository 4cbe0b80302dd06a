package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// GradeScaleHandler manages the school's grade bands.
type GradeScaleHandler struct {
	scale *service.GradeScaleService
	cache *service.ReportCacheService
}

// NewGradeScaleHandler constructs handler.
func NewGradeScaleHandler(scale *service.GradeScaleService, cache *service.ReportCacheService) *GradeScaleHandler {
	return &GradeScaleHandler{scale: scale, cache: cache}
}

// Get godoc
// @Summary Current grade scale
// @Tags Grade Scale
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/grade-scale [get]
func (h *GradeScaleHandler) Get(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	thresholds, err := h.scale.Get(c.Request.Context(), school.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thresholds, nil)
}

// Replace godoc
// @Summary Replace the grade scale
// @Tags Grade Scale
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body []service.GradeThresholdInput true "Bands"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/grade-scale [put]
func (h *GradeScaleHandler) Replace(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var inputs []service.GradeThresholdInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	thresholds, err := h.scale.Replace(c.Request.Context(), school.ID, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateSchool(c.Request.Context(), school.ID)
	}
	response.JSON(c, http.StatusOK, thresholds, nil)
}
