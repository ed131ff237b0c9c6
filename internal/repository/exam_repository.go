package repository

import (
	"errors"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) Create(exam *model.Exam) error {
	return r.DB.Create(exam).Error
}

func (r *ExamRepository) FindByID(id string) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.First(&exam, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) Updates(examID string, fields map[string]interface{}) error {
	return r.DB.Model(&model.Exam{}).Where("id = ?", examID).Updates(fields).Error
}

// CompareAndSetStatus transitions the exam status only when the stored
// status still matches from. The loser of a concurrent transition sees
// false.
func (r *ExamRepository) CompareAndSetStatus(examID string, from, to model.ExamStatus) (bool, error) {
	res := r.DB.Model(&model.Exam{}).
		Where("id = ? AND status = ?", examID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ExamRepository) ListByClass(classID uint) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.Where("class_id = ?", classID).Order("start_time DESC").Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) ListByLecturer(lecturerID uint) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.Where("lecturer_id = ?", lecturerID).Order("created_at DESC").Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) ListDueForActivation(now time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.
		Where("status = ? AND start_time <= ? AND end_time > ?", model.ExamPublished, now, now).
		Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) ListDueForClose(now time.Time) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.
		Where("status = ? AND end_time <= ?", model.ExamActive, now).
		Find(&exams).Error
	return exams, err
}

// Delete removes the exam together with its questions and options in
// one transaction. Attempts are never cascaded; callers must check
// that none exist first.
func (r *ExamRepository) Delete(examID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []string
		if err := tx.Model(&model.ExamQuestion{}).
			Where("exam_id = ?", examID).
			Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).
				Delete(&model.QuestionOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("exam_id = ?", examID).
			Delete(&model.ExamQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Exam{}, "id = ?", examID).Error
	})
}

func (r *ExamRepository) CreateQuestion(q *model.ExamQuestion) error {
	return r.DB.Create(q).Error
}

func (r *ExamRepository) UpdateQuestion(q *model.ExamQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).
			Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(q).Error
	})
}

func (r *ExamRepository) DeleteQuestion(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).
			Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ExamQuestion{}, "id = ?", id).Error
	})
}

func (r *ExamRepository) FindQuestion(id string) (*model.ExamQuestion, error) {
	var q model.ExamQuestion
	if err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *ExamRepository) ListQuestions(examID string) ([]model.ExamQuestion, error) {
	var questions []model.ExamQuestion
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).Where("exam_id = ?", examID).Order("order_index ASC").Find(&questions).Error
	return questions, err
}
