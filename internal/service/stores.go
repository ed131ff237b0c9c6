package service

import (
	"time"

	"exam_platform_backend/internal/model"
)

// Store interfaces consumed by the exam core. The gorm repositories in
// internal/repository satisfy them; tests substitute in-memory fakes.

type ExamStore interface {
	Create(exam *model.Exam) error
	FindByID(id string) (*model.Exam, error)
	Updates(examID string, fields map[string]interface{}) error
	CompareAndSetStatus(examID string, from, to model.ExamStatus) (bool, error)
	ListByClass(classID uint) ([]model.Exam, error)
	ListByLecturer(lecturerID uint) ([]model.Exam, error)
	ListDueForActivation(now time.Time) ([]model.Exam, error)
	ListDueForClose(now time.Time) ([]model.Exam, error)
	Delete(examID string) error

	CreateQuestion(q *model.ExamQuestion) error
	UpdateQuestion(q *model.ExamQuestion) error
	DeleteQuestion(id string) error
	FindQuestion(id string) (*model.ExamQuestion, error)
	ListQuestions(examID string) ([]model.ExamQuestion, error)
}

type AttemptStore interface {
	Create(attempt *model.ExamAttempt) error
	FindByID(id string) (*model.ExamAttempt, error)
	FindInProgress(examID string, studentID uint) (*model.ExamAttempt, error)
	CountForStudent(examID string, studentID uint) (int64, error)
	MaxAttemptNumber(examID string, studentID uint) (int, error)
	CountByExam(examID string) (int64, error)
	CompareAndSetStatus(id string, from, to model.AttemptStatus, fields map[string]interface{}) (bool, error)
	ListInProgress(limit int) ([]model.ExamAttempt, error)
	ListByExam(examID string) ([]model.ExamAttempt, error)
	ListByStudent(examID string, studentID uint) ([]model.ExamAttempt, error)
}

type AnswerStore interface {
	UpsertAnswer(ans *model.ExamAnswer) error
	ListAnswers(attemptID string) ([]model.ExamAnswer, error)
	FindAnswerByID(id string) (*model.ExamAnswer, error)
	SaveAnswer(ans *model.ExamAnswer) error
	ListPendingManual(examID string) ([]model.ExamAnswer, error)
	ListAnswersByExam(examID string) ([]model.ExamAnswer, error)
}

// MembershipStore answers the class-eligibility question for attempt
// starts.
type MembershipStore interface {
	IsMember(classID, studentID uint) (bool, error)
}

type ClassStore interface {
	FindByID(id uint) (*model.Class, error)
}
