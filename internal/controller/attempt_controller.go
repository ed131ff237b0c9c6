package controller

import (
	"encoding/json"

	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService   *service.AttemptService
	AnalyticsService *service.AnalyticsService
}

func NewAttemptController(attemptService *service.AttemptService, analyticsService *service.AnalyticsService) *AttemptController {
	return &AttemptController{AttemptService: attemptService, AnalyticsService: analyticsService}
}

// @Summary Start or resume an attempt
// @Description Opens a new attempt, or returns the attempt already in progress
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/exams/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.Start(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// @Summary Own attempts for an exam
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Router /student/exams/{id}/attempts [get]
func (c *AttemptController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.AttemptService.History(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

type recordAnswerRequest struct {
	QuestionID string          `json:"questionId" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
}

// @Summary Record one answer
// @Description Upserts the answer; recording the same question again overwrites
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "attempt id"
// @Param request body controller.recordAnswerRequest true "answer"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/attempts/{id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req recordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AttemptService.RecordAnswer(ctx.Param("id"), claims.UserID, req.QuestionID, req.Payload); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Submit an attempt
// @Description Closes the attempt and runs the auto-grader
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "attempt id"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.AttemptService.Submit(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

type bulkSubmitRequest struct {
	Answers []service.BulkAnswer `json:"answers"`
}

// @Summary Submit with a final batch of answers
// @Description Records every answer, then submits; invalid questions fail only that item
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "attempt id"
// @Param request body controller.bulkSubmitRequest true "answers"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/attempts/{id}/bulk-submit [post]
func (c *AttemptController) BulkSubmit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req bulkSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.BulkSubmit(ctx.Param("id"), claims.UserID, req.Answers)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Attempt result detail
// @Description Status, score and per-question breakdown of one attempt
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param id path string true "attempt id"
// @Success 200 {object} util.Response
// @Router /student/attempts/{id} [get]
func (c *AttemptController) Detail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.AnalyticsService.AttemptDetail(ctx.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
