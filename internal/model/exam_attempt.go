package model

import (
	"encoding/json"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
)

// Terminal reports whether the attempt can no longer accept answers.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptInProgress
}

// swagger:model ExamAttempt
type ExamAttempt struct {
	UUIDBase
	ExamID        string        `gorm:"index;uniqueIndex:idx_exam_student_attempt;type:varchar(36)" json:"examId"`
	StudentID     uint          `gorm:"index;uniqueIndex:idx_exam_student_attempt;type:bigint unsigned" json:"studentId"`
	AttemptNumber int           `gorm:"uniqueIndex:idx_exam_student_attempt" json:"attemptNumber"`
	Status        AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	SubmittedAt   *time.Time    `json:"submittedAt,omitempty"`
	TotalScore    *int          `json:"totalScore,omitempty"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// Deadline is the instant after which the server force-expires the
// attempt. The buffer absorbs client-side auto-submit latency.
func (a *ExamAttempt) Deadline(exam *Exam) time.Time {
	return a.StartedAt.Add(exam.Duration() + exam.AutoSubmitBuffer())
}

// swagger:model ExamAnswer
type ExamAnswer struct {
	UUIDBase
	AttemptID    string          `gorm:"index;uniqueIndex:idx_attempt_question;type:varchar(36)" json:"attemptId"`
	QuestionID   string          `gorm:"uniqueIndex:idx_attempt_question;type:varchar(36)" json:"questionId"`
	Payload      json.RawMessage `gorm:"type:json" json:"payload"`
	IsCorrect    *bool           `json:"isCorrect,omitempty"`
	PointsEarned int             `gorm:"default:0" json:"pointsEarned"`
	AutoGraded   bool            `gorm:"default:false" json:"autoGraded"`
	GradedByID   *uint           `gorm:"type:bigint unsigned" json:"gradedById,omitempty"`
}

func (ExamAnswer) TableName() string {
	return "exam_answers"
}

// Graded reports whether the answer has a final score, either from the
// auto-grader or from a human grader.
func (a *ExamAnswer) Graded() bool {
	return a.AutoGraded || a.GradedByID != nil
}

// MCQPayload is the stored shape of an MCQ answer.
type MCQPayload struct {
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// TextPayload is the stored shape of an essay or coding answer.
type TextPayload struct {
	Text string `json:"text"`
}
