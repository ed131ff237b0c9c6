package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUnauthorizedAccess   = errors.New("unauthorized access")
	ErrClassNotFound        = errors.New("class not found")
	ErrExamNotFound         = errors.New("exam not found")
	ErrExamNotActive        = errors.New("exam not active")
	ErrInvalidExamState     = errors.New("invalid exam state")
	ErrExamHasAttempts      = errors.New("exam has recorded attempts")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionGeneration   = errors.New("question generation failed")
	ErrStudentNotEligible   = errors.New("student not eligible for exam")
	ErrAttemptLimitReached  = errors.New("attempt limit exceeded")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotInProgress = errors.New("attempt not in progress")
	ErrExamTimeExpired      = errors.New("exam time expired")
	ErrAnswerNotFound       = errors.New("answer not found")
	ErrAnswerAlreadyManual  = errors.New("answer already graded manually")
)
