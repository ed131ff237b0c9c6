package repository

import (
	"errors"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) Create(class *model.Class) error {
	return r.DB.Create(class).Error
}

func (r *ClassRepository) FindByID(id uint) (*model.Class, error) {
	var class model.Class
	if err := r.DB.First(&class, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

func (r *ClassRepository) ListByLecturer(lecturerID uint) ([]model.Class, error) {
	var classes []model.Class
	err := r.DB.Where("lecturer_id = ?", lecturerID).Order("created_at DESC").Find(&classes).Error
	return classes, err
}

func (r *ClassRepository) AddMember(classID, studentID uint) error {
	member := &model.ClassMember{ClassID: classID, StudentID: studentID}
	// re-adding an existing member is a no-op
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

func (r *ClassRepository) RemoveMember(classID, studentID uint) error {
	return r.DB.Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&model.ClassMember{}).Error
}

func (r *ClassRepository) ListMembers(classID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.
		Joins("JOIN class_members ON class_members.student_id = users.id").
		Where("class_members.class_id = ? AND class_members.deleted_at IS NULL", classID).
		Find(&users).Error
	return users, err
}

func (r *ClassRepository) IsMember(classID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.ClassMember{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	return count > 0, err
}
