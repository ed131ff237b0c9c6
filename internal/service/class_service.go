package service

import (
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
)

type ClassService struct {
	ClassRepo *repository.ClassRepository
	UserRepo  *repository.UserRepository
}

func NewClassService(classRepo *repository.ClassRepository, userRepo *repository.UserRepository) *ClassService {
	return &ClassService{ClassRepo: classRepo, UserRepo: userRepo}
}

type ClassCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *ClassService) CreateClass(lecturerID uint, req ClassCreateRequest) (*model.Class, error) {
	class := &model.Class{
		Name:        req.Name,
		Description: req.Description,
		LecturerID:  lecturerID,
	}
	if err := s.ClassRepo.Create(class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *ClassService) ListClasses(lecturerID uint) ([]model.Class, error) {
	return s.ClassRepo.ListByLecturer(lecturerID)
}

func (s *ClassService) AddMember(lecturerID uint, role model.UserRole, classID, studentID uint) error {
	if err := s.requireOwned(classID, lecturerID, role); err != nil {
		return err
	}
	student, err := s.UserRepo.FindByID(studentID)
	if err != nil {
		return err
	}
	if student.Role != model.Student {
		return util.ErrStudentNotEligible
	}
	return s.ClassRepo.AddMember(classID, studentID)
}

func (s *ClassService) RemoveMember(lecturerID uint, role model.UserRole, classID, studentID uint) error {
	if err := s.requireOwned(classID, lecturerID, role); err != nil {
		return err
	}
	return s.ClassRepo.RemoveMember(classID, studentID)
}

func (s *ClassService) ListMembers(lecturerID uint, role model.UserRole, classID uint) ([]model.User, error) {
	if err := s.requireOwned(classID, lecturerID, role); err != nil {
		return nil, err
	}
	return s.ClassRepo.ListMembers(classID)
}

func (s *ClassService) requireOwned(classID, lecturerID uint, role model.UserRole) error {
	class, err := s.ClassRepo.FindByID(classID)
	if err != nil {
		return err
	}
	if role != model.Admin && class.LecturerID != lecturerID {
		return util.ErrUnauthorizedAccess
	}
	return nil
}
