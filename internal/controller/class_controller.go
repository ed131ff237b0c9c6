package controller

import (
	"strconv"

	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassController struct {
	ClassService *service.ClassService
}

func NewClassController(classService *service.ClassService) *ClassController {
	return &ClassController{ClassService: classService}
}

// @Summary Create a class
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ClassCreateRequest true "class payload"
// @Success 201 {object} util.Response
// @Router /lecturer/classes [post]
func (c *ClassController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ClassCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.ClassService.CreateClass(claims.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// @Summary List own classes
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /lecturer/classes [get]
func (c *ClassController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	classes, err := c.ClassService.ListClasses(claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, classes)
}

type memberRequest struct {
	StudentID uint `json:"studentId" binding:"required"`
}

// @Summary Enroll a student
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "class id"
// @Param request body controller.memberRequest true "student"
// @Success 200 {object} util.Response
// @Router /lecturer/classes/{id}/members [post]
func (c *ClassController) AddMember(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	classID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid class id")
		return
	}

	var req memberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ClassService.AddMember(claims.UserID, claims.Role, uint(classID), req.StudentID); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Remove a student from a class
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param id path int true "class id"
// @Param studentId path int true "student id"
// @Success 200 {object} util.Response
// @Router /lecturer/classes/{id}/members/{studentId} [delete]
func (c *ClassController) RemoveMember(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	classID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid class id")
		return
	}
	studentID, err := strconv.ParseUint(ctx.Param("studentId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid student id")
		return
	}

	if err := c.ClassService.RemoveMember(claims.UserID, claims.Role, uint(classID), uint(studentID)); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary List class members
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param id path int true "class id"
// @Success 200 {object} util.Response
// @Router /lecturer/classes/{id}/members [get]
func (c *ClassController) ListMembers(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	classID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid class id")
		return
	}

	members, err := c.ClassService.ListMembers(claims.UserID, claims.Role, uint(classID))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, members)
}
