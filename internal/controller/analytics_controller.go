package controller

import (
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// @Summary Exam statistics
// @Description Attempt counts, score distribution and per-question accuracy
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Router /lecturer/exams/{id}/stats [get]
func (c *AnalyticsController) ExamStats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.AnalyticsService.Stats(ctx.Request.Context(), ctx.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
