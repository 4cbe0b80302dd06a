package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// ReportCardHandler exposes report card generation endpoints.
type ReportCardHandler struct {
	reports *service.ReportCardService
	cache   *service.ReportCacheService
	metrics *service.MetricsService
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(reports *service.ReportCardService, cache *service.ReportCacheService, metrics *service.MetricsService) *ReportCardHandler {
	return &ReportCardHandler{reports: reports, cache: cache, metrics: metrics}
}

// SectionReports godoc
// @Summary Generate ranked report cards for a section
// @Tags Report Cards
// @Produce json
// @Param school path string true "School slug"
// @Param id path string true "Section ID"
// @Param term query string false "Term label"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/report-cards/sections/{id} [get]
func (h *ReportCardHandler) SectionReports(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sectionID := c.Param("id")
	term := termLabelFromQuery(c)

	if h.cache != nil {
		if cards, err := h.cache.GetSection(c.Request.Context(), school.ID, sectionID, term); err == nil {
			h.metrics.RecordCacheLookup(true)
			response.JSON(c, http.StatusOK, cards, nil, map[string]interface{}{"cache": "hit"})
			return
		}
		h.metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	cards, err := h.reports.GenerateSection(c.Request.Context(), school.ID, sectionID, term)
	h.metrics.ObserveReportGeneration("section", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.cache != nil {
		h.cache.PutSection(c.Request.Context(), school.ID, sectionID, term, cards)
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// StudentReport godoc
// @Summary Generate a single student's report card
// @Tags Report Cards
// @Produce json
// @Param school path string true "School slug"
// @Param id path string true "Student ID"
// @Param term query string false "Term label"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/report-cards/students/{id} [get]
func (h *ReportCardHandler) StudentReport(c *gin.Context) {
	school := schoolFromContext(c)
	claims := claimsFromContext(c)
	if school == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	studentID := c.Param("id")

	// Student and parent accounts may only read their own linked student.
	if !claims.Role.Staff() {
		if claims.StudentID == nil || *claims.StudentID != studentID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	start := time.Now()
	card, err := h.reports.GenerateStudent(c.Request.Context(), school.ID, studentID, termLabelFromQuery(c), claims.Role)
	h.metrics.ObserveReportGeneration("student", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}
