package controller

import (
	"fmt"
	"path/filepath"
	"strconv"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExamController struct {
	ExamService    *service.ExamService
	StorageService *service.StorageService
}

func NewExamController(examService *service.ExamService, storageService *service.StorageService) *ExamController {
	return &ExamController{ExamService: examService, StorageService: storageService}
}

// @Summary Create an exam
// @Description Creates a draft exam, optionally with its questions
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ExamCreateRequest true "exam payload"
// @Success 201 {object} util.Response
// @Router /lecturer/exams [post]
func (c *ExamController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ExamCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.CreateExam(claims.UserID, claims.Role, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// @Summary Update a draft exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Param request body service.ExamUpdateRequest true "fields to change"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/exams/{id} [put]
func (c *ExamController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ExamUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.UpdateExam(claims.UserID, claims.Role, ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// @Summary Exam detail with questions and answer keys
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Router /lecturer/exams/{id} [get]
func (c *ExamController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	exam, questions, err := c.ExamService.GetExam(ctx.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"exam": exam, "questions": questions})
}

// @Summary List own exams
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /lecturer/exams [get]
func (c *ExamController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	exams, err := c.ExamService.ListByLecturer(claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// @Summary Exam paper for a student
// @Description Published exam without answer keys
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Router /student/exams/{id} [get]
func (c *ExamController) StudentView(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.ExamService.StudentView(ctx.Param("id"), claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary List exams of a class
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path int true "class id"
// @Success 200 {object} util.Response
// @Router /student/classes/{id}/exams [get]
func (c *ExamController) ListByClass(ctx *gin.Context) {
	classID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid class id")
		return
	}

	exams, err := c.ExamService.ListByClass(uint(classID))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// @Summary Add a question to a draft exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Param request body service.QuestionRequest true "question payload"
// @Success 201 {object} util.Response
// @Router /lecturer/exams/{id}/questions [post]
func (c *ExamController) AddQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.ExamService.AddQuestion(claims.UserID, claims.Role, ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// @Summary Replace a question of a draft exam
// @Tags exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Param questionId path string true "question id"
// @Param request body service.QuestionRequest true "question payload"
// @Success 200 {object} util.Response
// @Router /lecturer/exams/{id}/questions/{questionId} [put]
func (c *ExamController) UpdateQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.ExamService.UpdateQuestion(claims.UserID, claims.Role, ctx.Param("id"), ctx.Param("questionId"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary Delete a question from a draft exam
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Param questionId path string true "question id"
// @Success 200 {object} util.Response
// @Router /lecturer/exams/{id}/questions/{questionId} [delete]
func (c *ExamController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ExamService.DeleteQuestion(claims.UserID, claims.Role, ctx.Param("id"), ctx.Param("questionId")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Upload a question attachment
// @Description Stores an image or file referenced by a question
// @Tags exams
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "attachment"
// @Success 201 {object} util.Response
// @Router /lecturer/attachments [post]
func (c *ExamController) UploadAttachment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	filename := fmt.Sprintf("attachments/%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	url, err := c.StorageService.UploadAttachment(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}

// @Summary Publish an exam
// @Description Freezes the question set and makes the exam schedulable
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/exams/{id}/publish [post]
func (c *ExamController) Publish(ctx *gin.Context) {
	c.transition(ctx, c.ExamService.Publish)
}

// @Summary Activate an exam
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/exams/{id}/activate [post]
func (c *ExamController) Activate(ctx *gin.Context) {
	c.transition(ctx, c.ExamService.Activate)
}

// @Summary Close an exam
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/exams/{id}/close [post]
func (c *ExamController) Close(ctx *gin.Context) {
	c.transition(ctx, c.ExamService.Close)
}

// @Summary Delete an exam
// @Description Only exams without attempts can be deleted
// @Tags exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "exam id"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /lecturer/exams/{id} [delete]
func (c *ExamController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ExamService.DeleteExam(claims.UserID, claims.Role, ctx.Param("id")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *ExamController) transition(ctx *gin.Context, fn func(uint, model.UserRole, string) (*model.Exam, error)) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	exam, err := fn(claims.UserID, claims.Role, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}
