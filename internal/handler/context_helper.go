package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/middleware"
	"github.com/classbridge/reportcard-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func schoolFromContext(c *gin.Context) *models.School {
	value, exists := c.Get(middleware.ContextSchoolKey)
	if !exists {
		return nil
	}
	school, ok := value.(*models.School)
	if !ok {
		return nil
	}
	return school
}

func termLabelFromQuery(c *gin.Context) *string {
	if term := c.Query("term"); term != "" {
		return &term
	}
	return nil
}
