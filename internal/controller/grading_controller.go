package controller

import (
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	GradingService *service.GradingService
}

func NewGradingController(gradingService *service.GradingService) *GradingController {
	return &GradingController{GradingService: gradingService}
}

// @Summary Answers waiting for a manual grade
// @Description Essay and coding answers of submitted attempts not yet graded
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Router /lecturer/exams/{id}/pending-grading [get]
func (c *GradingController) ListPending(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	answers, err := c.GradingService.ListPendingManual(ctx.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary Grade one answer manually
// @Description Records a human grade and re-finalizes the attempt total
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "answer id"
// @Param request body service.ManualGradeRequest true "grade"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/answers/{id}/grade [post]
func (c *GradingController) GradeAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ManualGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.GradingService.GradeAnswerManually(ctx.Param("id"), claims.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}
