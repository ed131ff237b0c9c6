package util

import (
	"errors"
	"net/http"

	"exam_platform_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the unified JSON envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse wraps paginated list payloads.
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// DomainError maps a core sentinel error to its HTTP status. Storage
// failures fall through to a logged 500.
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrExamNotFound),
		errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrAnswerNotFound),
		errors.Is(err, ErrClassNotFound),
		errors.Is(err, ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStudentNotEligible),
		errors.Is(err, ErrUnauthorizedAccess):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrExamNotActive),
		errors.Is(err, ErrInvalidExamState),
		errors.Is(err, ErrExamHasAttempts),
		errors.Is(err, ErrAttemptLimitReached),
		errors.Is(err, ErrAttemptNotInProgress),
		errors.Is(err, ErrExamTimeExpired),
		errors.Is(err, ErrAnswerAlreadyManual),
		errors.Is(err, ErrEmailRegistered):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		Unauthorized(c)
	default:
		LogInternalError(c, err)
	}
}
