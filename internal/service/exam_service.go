package service

import (
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"go.uber.org/zap"
)

// ExamService manages the question bank and the monotonic exam
// lifecycle draft -> published -> active -> closed. Questions are
// frozen the moment an exam leaves draft.
type ExamService struct {
	Exams    ExamStore
	Attempts AttemptStore
	Classes  ClassStore

	now func() time.Time
}

func NewExamService(exams ExamStore, attempts AttemptStore, classes ClassStore) *ExamService {
	return &ExamService{
		Exams:    exams,
		Attempts: attempts,
		Classes:  classes,
		now:      time.Now,
	}
}

type OptionRequest struct {
	Content    string `json:"content" binding:"required"`
	OrderIndex int    `json:"orderIndex"`
	IsCorrect  bool   `json:"isCorrect"`
}

type QuestionRequest struct {
	QuestionType  model.QuestionType `json:"questionType" binding:"required"`
	Content       string             `json:"content" binding:"required"`
	Points        int                `json:"points"`
	OrderIndex    int                `json:"orderIndex"`
	Explanation   string             `json:"explanation"`
	AttachmentURL string             `json:"attachmentUrl"`
	Options       []OptionRequest    `json:"options"`
}

type ExamCreateRequest struct {
	Title                   string            `json:"title" binding:"required"`
	Description             string            `json:"description"`
	ClassID                 uint              `json:"classId" binding:"required"`
	StartTime               time.Time         `json:"startTime" binding:"required"`
	EndTime                 time.Time         `json:"endTime" binding:"required"`
	DurationMinutes         int               `json:"durationMinutes"`
	MaxAttempts             int               `json:"maxAttempts"`
	AutoSubmitBufferSeconds *int              `json:"autoSubmitBufferSeconds"`
	Questions               []QuestionRequest `json:"questions"`
}

type ExamUpdateRequest struct {
	Title                   *string    `json:"title"`
	Description             *string    `json:"description"`
	StartTime               *time.Time `json:"startTime"`
	EndTime                 *time.Time `json:"endTime"`
	DurationMinutes         *int       `json:"durationMinutes"`
	MaxAttempts             *int       `json:"maxAttempts"`
	AutoSubmitBufferSeconds *int       `json:"autoSubmitBufferSeconds"`
}

func (s *ExamService) CreateExam(lecturerID uint, role model.UserRole, req ExamCreateRequest) (*model.Exam, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, util.ErrInvalidExamState
	}

	class, err := s.Classes.FindByID(req.ClassID)
	if err != nil {
		return nil, err
	}
	if role != model.Admin && class.LecturerID != lecturerID {
		return nil, util.ErrUnauthorizedAccess
	}

	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		ClassID:         req.ClassID,
		LecturerID:      lecturerID,
		Status:          model.ExamDraft,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		MaxAttempts:     req.MaxAttempts,
	}
	if exam.DurationMinutes <= 0 {
		exam.DurationMinutes = 60
	}
	if exam.MaxAttempts <= 0 {
		exam.MaxAttempts = 1
	}
	if req.AutoSubmitBufferSeconds != nil && *req.AutoSubmitBufferSeconds >= 0 {
		exam.AutoSubmitBufferS = *req.AutoSubmitBufferSeconds
	}

	if err := s.Exams.Create(exam); err != nil {
		return nil, err
	}

	for i, qReq := range req.Questions {
		if qReq.OrderIndex == 0 {
			qReq.OrderIndex = i + 1
		}
		if _, err := s.addQuestion(exam, qReq); err != nil {
			return nil, err
		}
	}

	return exam, nil
}

func (s *ExamService) UpdateExam(lecturerID uint, role model.UserRole, examID string, req ExamUpdateRequest) (*model.Exam, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamDraft {
		return nil, util.ErrInvalidExamState
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
		exam.Title = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
		exam.Description = *req.Description
	}
	if req.StartTime != nil {
		fields["start_time"] = *req.StartTime
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		fields["end_time"] = *req.EndTime
		exam.EndTime = *req.EndTime
	}
	if req.DurationMinutes != nil && *req.DurationMinutes > 0 {
		fields["duration_minutes"] = *req.DurationMinutes
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxAttempts != nil && *req.MaxAttempts > 0 {
		fields["max_attempts"] = *req.MaxAttempts
		exam.MaxAttempts = *req.MaxAttempts
	}
	if req.AutoSubmitBufferSeconds != nil && *req.AutoSubmitBufferSeconds >= 0 {
		fields["auto_submit_buffer_s"] = *req.AutoSubmitBufferSeconds
		exam.AutoSubmitBufferS = *req.AutoSubmitBufferSeconds
	}

	if !exam.StartTime.Before(exam.EndTime) {
		return nil, util.ErrInvalidExamState
	}

	if len(fields) == 0 {
		return exam, nil
	}
	if err := s.Exams.Updates(examID, fields); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) GetExam(examID string, lecturerID uint, role model.UserRole) (*model.Exam, []model.ExamQuestion, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.Exams.ListQuestions(examID)
	if err != nil {
		return nil, nil, err
	}
	return exam, questions, nil
}

func (s *ExamService) ListByLecturer(lecturerID uint) ([]model.Exam, error) {
	return s.Exams.ListByLecturer(lecturerID)
}

func (s *ExamService) ListByClass(classID uint) ([]model.Exam, error) {
	return s.Exams.ListByClass(classID)
}

// StudentOptionView is an option with the correct flag stripped.
type StudentOptionView struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	OrderIndex int    `json:"orderIndex"`
}

type StudentQuestionView struct {
	ID            string              `json:"id"`
	QuestionType  model.QuestionType  `json:"questionType"`
	Content       string              `json:"content"`
	Points        int                 `json:"points"`
	OrderIndex    int                 `json:"orderIndex"`
	AttachmentURL string              `json:"attachmentUrl,omitempty"`
	Options       []StudentOptionView `json:"options,omitempty"`
}

type StudentExamView struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          model.ExamStatus      `json:"status"`
	StartTime       time.Time             `json:"startTime"`
	EndTime         time.Time             `json:"endTime"`
	DurationMinutes int                   `json:"durationMinutes"`
	MaxAttempts     int                   `json:"maxAttempts"`
	QuestionCount   int                   `json:"questionCount"`
	Questions       []StudentQuestionView `json:"questions"`
}

// StudentView returns the exam as a student may see it: only once
// published, and without answer keys.
func (s *ExamService) StudentView(examID string, studentID uint) (*StudentExamView, error) {
	exam, err := s.Exams.FindByID(examID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamDraft {
		return nil, util.ErrExamNotFound
	}

	questions, err := s.Exams.ListQuestions(examID)
	if err != nil {
		return nil, err
	}

	view := &StudentExamView{
		ID:              exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		Status:          exam.Status,
		StartTime:       exam.StartTime,
		EndTime:         exam.EndTime,
		DurationMinutes: exam.DurationMinutes,
		MaxAttempts:     exam.MaxAttempts,
		QuestionCount:   len(questions),
	}
	for _, q := range questions {
		qv := StudentQuestionView{
			ID:            q.ID,
			QuestionType:  q.QuestionType,
			Content:       q.Content,
			Points:        q.Points,
			OrderIndex:    q.OrderIndex,
			AttachmentURL: q.AttachmentURL,
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, StudentOptionView{
				ID:         o.ID,
				Content:    o.Content,
				OrderIndex: o.OrderIndex,
			})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

func (s *ExamService) AddQuestion(lecturerID uint, role model.UserRole, examID string, req QuestionRequest) (*model.ExamQuestion, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamDraft {
		return nil, util.ErrInvalidExamState
	}
	return s.addQuestion(exam, req)
}

func (s *ExamService) addQuestion(exam *model.Exam, req QuestionRequest) (*model.ExamQuestion, error) {
	q := &model.ExamQuestion{
		ExamID:        exam.ID,
		QuestionType:  req.QuestionType,
		Content:       req.Content,
		Points:        req.Points,
		OrderIndex:    req.OrderIndex,
		Explanation:   req.Explanation,
		AttachmentURL: req.AttachmentURL,
	}
	for _, o := range req.Options {
		q.Options = append(q.Options, model.QuestionOption{
			Content:    o.Content,
			OrderIndex: o.OrderIndex,
			IsCorrect:  o.IsCorrect,
		})
	}
	if err := s.Exams.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *ExamService) UpdateQuestion(lecturerID uint, role model.UserRole, examID, questionID string, req QuestionRequest) (*model.ExamQuestion, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamDraft {
		return nil, util.ErrInvalidExamState
	}

	q, err := s.Exams.FindQuestion(questionID)
	if err != nil {
		return nil, err
	}
	if q.ExamID != examID {
		return nil, util.ErrQuestionNotFound
	}

	q.QuestionType = req.QuestionType
	q.Content = req.Content
	q.Points = req.Points
	q.OrderIndex = req.OrderIndex
	q.Explanation = req.Explanation
	q.AttachmentURL = req.AttachmentURL
	q.Options = nil
	for _, o := range req.Options {
		q.Options = append(q.Options, model.QuestionOption{
			QuestionID: q.ID,
			Content:    o.Content,
			OrderIndex: o.OrderIndex,
			IsCorrect:  o.IsCorrect,
		})
	}
	if err := s.Exams.UpdateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *ExamService) DeleteQuestion(lecturerID uint, role model.UserRole, examID, questionID string) error {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamDraft {
		return util.ErrInvalidExamState
	}
	q, err := s.Exams.FindQuestion(questionID)
	if err != nil {
		return err
	}
	if q.ExamID != examID {
		return util.ErrQuestionNotFound
	}
	return s.Exams.DeleteQuestion(questionID)
}

// Publish freezes the question bank and opens the exam for scheduling.
// An exam publishes only with a valid window and a non-empty question
// set where every MCQ carries at least one correct option.
func (s *ExamService) Publish(lecturerID uint, role model.UserRole, examID string) (*model.Exam, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	if !exam.StartTime.Before(exam.EndTime) || !s.now().Before(exam.EndTime) {
		return nil, util.ErrInvalidExamState
	}

	questions, err := s.Exams.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrInvalidExamState
	}
	for _, q := range questions {
		if q.QuestionType != model.QuestionMCQ {
			continue
		}
		if len(q.Options) < 2 || len(q.CorrectOptionIDs()) == 0 {
			return nil, util.ErrQuestionGeneration
		}
	}

	return s.transition(exam, model.ExamDraft, model.ExamPublished)
}

func (s *ExamService) Activate(lecturerID uint, role model.UserRole, examID string) (*model.Exam, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(exam.EndTime) {
		return nil, util.ErrInvalidExamState
	}
	return s.transition(exam, model.ExamPublished, model.ExamActive)
}

func (s *ExamService) Close(lecturerID uint, role model.UserRole, examID string) (*model.Exam, error) {
	exam, err := s.requireOwned(examID, lecturerID, role)
	if err != nil {
		return nil, err
	}
	return s.transition(exam, model.ExamActive, model.ExamClosed)
}

// DeleteExam is restricted once any attempt exists: grading history is
// never silently destroyed. Questions and options cascade explicitly.
func (s *ExamService) DeleteExam(lecturerID uint, role model.UserRole, examID string) error {
	if _, err := s.requireOwned(examID, lecturerID, role); err != nil {
		return err
	}
	count, err := s.Attempts.CountByExam(examID)
	if err != nil {
		return err
	}
	if count > 0 {
		return util.ErrExamHasAttempts
	}
	return s.Exams.Delete(examID)
}

// ProcessSchedule activates published exams whose window has opened
// and closes active exams whose window has ended. Driven by the
// background ticker.
func (s *ExamService) ProcessSchedule() error {
	now := s.now()

	due, err := s.Exams.ListDueForActivation(now)
	if err != nil {
		return err
	}
	for _, exam := range due {
		won, err := s.Exams.CompareAndSetStatus(exam.ID, model.ExamPublished, model.ExamActive)
		if err != nil {
			return err
		}
		if won {
			logger.Log.Info("exam activated on schedule", zap.String("examId", exam.ID))
		}
	}

	ended, err := s.Exams.ListDueForClose(now)
	if err != nil {
		return err
	}
	for _, exam := range ended {
		won, err := s.Exams.CompareAndSetStatus(exam.ID, model.ExamActive, model.ExamClosed)
		if err != nil {
			return err
		}
		if won {
			logger.Log.Info("exam closed on schedule", zap.String("examId", exam.ID))
		}
	}
	return nil
}

func (s *ExamService) requireOwned(examID string, lecturerID uint, role model.UserRole) (*model.Exam, error) {
	exam, err := s.Exams.FindByID(examID)
	if err != nil {
		return nil, err
	}
	if role != model.Admin && exam.LecturerID != lecturerID {
		return nil, util.ErrUnauthorizedAccess
	}
	return exam, nil
}

func (s *ExamService) transition(exam *model.Exam, from, to model.ExamStatus) (*model.Exam, error) {
	if !exam.Status.CanTransitionTo(to) || exam.Status != from {
		return nil, util.ErrInvalidExamState
	}
	won, err := s.Exams.CompareAndSetStatus(exam.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, util.ErrInvalidExamState
	}
	exam.Status = to
	return exam, nil
}
