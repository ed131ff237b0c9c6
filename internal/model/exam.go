package model

import "time"

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
	ExamActive    ExamStatus = "active"
	ExamClosed    ExamStatus = "closed"
)

// CanTransitionTo reports whether a status change is allowed. The
// lifecycle is monotonic: draft -> published -> active -> closed, no
// reopening.
func (s ExamStatus) CanTransitionTo(next ExamStatus) bool {
	switch s {
	case ExamDraft:
		return next == ExamPublished
	case ExamPublished:
		return next == ExamActive
	case ExamActive:
		return next == ExamClosed
	default:
		return false
	}
}

type QuestionType string

const (
	QuestionMCQ    QuestionType = "mcq"
	QuestionEssay  QuestionType = "essay"
	QuestionCoding QuestionType = "coding"
)

// NeedsManualGrading reports whether answers of this type wait for a
// human grader instead of the auto-grader.
func (t QuestionType) NeedsManualGrading() bool {
	return t == QuestionEssay || t == QuestionCoding
}

// swagger:model Exam
type Exam struct {
	UUIDBase
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	ClassID           uint       `gorm:"index;type:bigint unsigned" json:"classId"`
	LecturerID        uint       `gorm:"index;type:bigint unsigned" json:"lecturerId"`
	Status            ExamStatus `gorm:"size:20;default:'draft'" json:"status"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           time.Time  `json:"endTime"`
	DurationMinutes   int        `gorm:"default:60" json:"durationMinutes"`
	MaxAttempts       int        `gorm:"default:1" json:"maxAttempts"`
	AutoSubmitBufferS int        `gorm:"default:30" json:"autoSubmitBufferSeconds"`
}

func (Exam) TableName() string {
	return "exams"
}

// Duration returns the per-attempt time limit.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// AutoSubmitBuffer is the grace period granted after the time limit
// before the server force-expires an attempt.
func (e *Exam) AutoSubmitBuffer() time.Duration {
	return time.Duration(e.AutoSubmitBufferS) * time.Second
}

// swagger:model ExamQuestion
type ExamQuestion struct {
	UUIDBase
	ExamID        string           `gorm:"index;uniqueIndex:idx_exam_order;type:varchar(36)" json:"examId"`
	QuestionType  QuestionType     `gorm:"size:20;not null" json:"questionType"`
	Content       string           `gorm:"type:text;not null" json:"content"`
	Points        int              `gorm:"default:0" json:"points"`
	OrderIndex    int              `gorm:"uniqueIndex:idx_exam_order" json:"orderIndex"`
	Explanation   string           `gorm:"type:text" json:"explanation"`
	AttachmentURL string           `gorm:"size:255" json:"attachmentUrl,omitempty"`
	Options       []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// CorrectOptionIDs returns the ids of options flagged correct.
func (q *ExamQuestion) CorrectOptionIDs() []string {
	var ids []string
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// swagger:model QuestionOption
type QuestionOption struct {
	UUIDBase
	QuestionID string `gorm:"index;type:varchar(36)" json:"questionId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	OrderIndex int    `gorm:"default:0" json:"orderIndex"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect,omitempty"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
