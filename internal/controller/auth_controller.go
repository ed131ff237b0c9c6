package controller

import (
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// @Summary Register a new account
// @Description Creates a student or lecturer account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "registration payload"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// @Summary Log in
// @Description Exchanges credentials for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginRequest true "credentials"
// @Success 200 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.AuthService.Login(req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /profile [get]
func (c *AuthController) Profile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.AuthService.Profile(claims.UserID)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
