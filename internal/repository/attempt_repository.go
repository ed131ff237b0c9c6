package repository

import (
	"errors"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateAttempt reports that another writer created the same
// (exam, student, attemptNumber) row first. Callers re-read and return
// the winner's attempt.
var ErrDuplicateAttempt = errors.New("duplicate attempt number")

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.ExamAttempt) error {
	if err := r.DB.Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *AttemptRepository) FindByID(id string) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	if err := r.DB.First(&attempt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindInProgress(examID string, studentID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, model.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) CountForStudent(examID string, studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) MaxAttemptNumber(examID string, studentID uint) (int, error) {
	var max int
	err := r.DB.Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *AttemptRepository) CountByExam(examID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ExamAttempt{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, err
}

// CompareAndSetStatus performs the guarded status transition that
// serializes submit, expiry and grading writers. Exactly one caller
// observes true for a given from -> to edge.
func (r *AttemptRepository) CompareAndSetStatus(id string, from, to model.AttemptStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.DB.Model(&model.ExamAttempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AttemptRepository) ListInProgress(limit int) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	q := r.DB.Where("status = ?", model.AttemptInProgress).Order("started_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByExam(examID string) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Where("exam_id = ?", examID).
		Order("student_id ASC, attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByStudent(examID string, studentID uint) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

// UpsertAnswer stores at most one answer per (attempt, question);
// recording twice overwrites the payload and resets grading state.
func (r *AttemptRepository) UpsertAnswer(ans *model.ExamAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"payload":       ans.Payload,
			"is_correct":    nil,
			"points_earned": 0,
			"auto_graded":   false,
		}),
	}).Create(ans).Error
}

func (r *AttemptRepository) ListAnswers(attemptID string) ([]model.ExamAnswer, error) {
	var answers []model.ExamAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) FindAnswerByID(id string) (*model.ExamAnswer, error) {
	var ans model.ExamAnswer
	if err := r.DB.First(&ans, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAnswerNotFound
		}
		return nil, err
	}
	return &ans, nil
}

func (r *AttemptRepository) SaveAnswer(ans *model.ExamAnswer) error {
	return r.DB.Save(ans).Error
}

// ListPendingManual returns answers of submitted or expired attempts
// that still wait for a human grade.
func (r *AttemptRepository) ListPendingManual(examID string) ([]model.ExamAnswer, error) {
	var answers []model.ExamAnswer
	err := r.DB.
		Joins("JOIN exam_attempts ON exam_attempts.id = exam_answers.attempt_id").
		Where("exam_attempts.exam_id = ? AND exam_attempts.status IN ?", examID,
			[]model.AttemptStatus{model.AttemptSubmitted, model.AttemptExpired}).
		Where("exam_answers.auto_graded = ? AND exam_answers.graded_by_id IS NULL", false).
		Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) ListAnswersByExam(examID string) ([]model.ExamAnswer, error) {
	var answers []model.ExamAnswer
	err := r.DB.
		Joins("JOIN exam_attempts ON exam_attempts.id = exam_answers.attempt_id").
		Where("exam_attempts.exam_id = ?", examID).
		Find(&answers).Error
	return answers, err
}
