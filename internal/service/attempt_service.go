package service

import (
	"encoding/json"
	"errors"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// AttemptService owns the attempt lifecycle:
//
//	in_progress -> submitted -> graded
//	in_progress -> expired
//
// All transitions go through the store's compare-and-set so concurrent
// submits and expiry sweeps cannot both win; the loser re-reads and
// converges on the terminal state instead of raising a conflict.
type AttemptService struct {
	Exams    ExamStore
	Attempts AttemptStore
	Answers  AnswerStore
	Members  MembershipStore
	Grader   *GradingService

	now func() time.Time
}

func NewAttemptService(exams ExamStore, attempts AttemptStore, answers AnswerStore, members MembershipStore, grader *GradingService) *AttemptService {
	return &AttemptService{
		Exams:    exams,
		Attempts: attempts,
		Answers:  answers,
		Members:  members,
		Grader:   grader,
		now:      time.Now,
	}
}

// Start opens a new attempt, or returns the student's attempt that is
// already in progress. attemptNumber is gapless per (exam, student);
// the unique index on (exam_id, student_id, attempt_number) is the
// serialization point for concurrent starts.
func (s *AttemptService) Start(examID string, studentID uint) (*model.ExamAttempt, error) {
	exam, err := s.Exams.FindByID(examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if exam.Status != model.ExamActive || now.Before(exam.StartTime) || !now.Before(exam.EndTime) {
		return nil, util.ErrExamNotActive
	}

	eligible, err := s.Members.IsMember(exam.ClassID, studentID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, util.ErrStudentNotEligible
	}

	for i := 0; i < 3; i++ {
		existing, err := s.Attempts.FindInProgress(examID, studentID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if s.now().Before(existing.Deadline(exam)) {
				return existing, nil
			}
			// overdue leftover; close it and fall through to the
			// attempt-limit check with it counted
			if err := s.expire(existing, exam); err != nil {
				return nil, err
			}
		}

		count, err := s.Attempts.CountForStudent(examID, studentID)
		if err != nil {
			return nil, err
		}
		if exam.MaxAttempts > 0 && count >= int64(exam.MaxAttempts) {
			return nil, util.ErrAttemptLimitReached
		}

		max, err := s.Attempts.MaxAttemptNumber(examID, studentID)
		if err != nil {
			return nil, err
		}

		attempt := &model.ExamAttempt{
			ExamID:        examID,
			StudentID:     studentID,
			AttemptNumber: max + 1,
			Status:        model.AttemptInProgress,
			StartedAt:     s.now(),
		}
		err = s.Attempts.Create(attempt)
		if err == nil {
			monitoring.AttemptsStarted.Inc()
			return attempt, nil
		}
		if !errors.Is(err, repository.ErrDuplicateAttempt) {
			return nil, err
		}
		// lost the insert race; next iteration resumes the winner's
		// in-progress attempt
	}
	return nil, util.ErrAttemptNotFound
}

// History lists the student's attempts for one exam, oldest first.
func (s *AttemptService) History(examID string, studentID uint) ([]model.ExamAttempt, error) {
	if _, err := s.Exams.FindByID(examID); err != nil {
		return nil, err
	}
	return s.Attempts.ListByStudent(examID, studentID)
}

// TimeRemaining reports how long the attempt may still run, floored at
// zero. Clients use it to drive their auto-submit countdown.
func (s *AttemptService) TimeRemaining(attempt *model.ExamAttempt, exam *model.Exam) time.Duration {
	if attempt.Status.Terminal() {
		return 0
	}
	remaining := exam.Duration() - s.now().Sub(attempt.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordAnswer upserts one answer. Recording the same question twice
// overwrites; grading happens at submit time, keeping autosave cheap.
func (s *AttemptService) RecordAnswer(attemptID string, studentID uint, questionID string, payload json.RawMessage) error {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return err
	}
	if attempt.StudentID != studentID {
		return util.ErrUnauthorizedAccess
	}

	if _, err := s.ensureLive(attempt); err != nil {
		return err
	}

	question, err := s.Exams.FindQuestion(questionID)
	if err != nil {
		return err
	}
	if question.ExamID != attempt.ExamID {
		return util.ErrQuestionNotFound
	}

	return s.Answers.UpsertAnswer(&model.ExamAnswer{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Payload:    payload,
	})
}

// Submit closes the attempt and synchronously runs the auto-grader.
// When every answer is auto-gradable the attempt comes back GRADED;
// otherwise it stays SUBMITTED until manual grading completes. A
// submit that loses against another submit returns the winner's
// result; a submit that loses against the expiry sweep reports
// ExamTimeExpired.
func (s *AttemptService) Submit(attemptID string, studentID uint) (*model.ExamAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrUnauthorizedAccess
	}

	for i := 0; i < 2; i++ {
		switch attempt.Status {
		case model.AttemptSubmitted, model.AttemptGraded:
			return attempt, nil
		case model.AttemptExpired:
			return nil, util.ErrExamTimeExpired
		}

		exam, err := s.ensureLive(attempt)
		if err != nil {
			return nil, err
		}

		now := s.now()
		won, err := s.Attempts.CompareAndSetStatus(attemptID,
			model.AttemptInProgress, model.AttemptSubmitted,
			map[string]interface{}{"submitted_at": now})
		if err != nil {
			return nil, err
		}
		if won {
			monitoring.AttemptsFinished.WithLabelValues("submitted").Inc()
			logger.Log.Info("attempt submitted",
				zap.String("attemptId", attemptID),
				zap.String("examId", exam.ID),
				zap.Uint("studentId", studentID))
			return s.Grader.GradeAttempt(attemptID)
		}

		// lost to a concurrent submit or the expiry sweep; re-read and
		// map the observed terminal state
		attempt, err = s.Attempts.FindByID(attemptID)
		if err != nil {
			return nil, err
		}
	}
	return nil, util.ErrAttemptNotInProgress
}

// BulkAnswer is one item of a bulk submission.
type BulkAnswer struct {
	QuestionID string          `json:"questionId" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
}

// RejectedAnswer reports a single answer that could not be recorded
// during a bulk submission.
type RejectedAnswer struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
}

// BulkSubmitResult carries the terminal attempt plus any per-item
// failures.
type BulkSubmitResult struct {
	Attempt  *model.ExamAttempt `json:"attempt"`
	Rejected []RejectedAnswer   `json:"rejected,omitempty"`
}

// BulkSubmit records every answer and then always submits. An invalid
// question id fails only that item: once a submit is requested the
// attempt must reach a terminal state.
func (s *AttemptService) BulkSubmit(attemptID string, studentID uint, answers []BulkAnswer) (*BulkSubmitResult, error) {
	result := &BulkSubmitResult{}
	for _, a := range answers {
		err := s.RecordAnswer(attemptID, studentID, a.QuestionID, a.Payload)
		if err == nil {
			continue
		}
		if errors.Is(err, util.ErrQuestionNotFound) {
			result.Rejected = append(result.Rejected, RejectedAnswer{
				QuestionID: a.QuestionID,
				Reason:     err.Error(),
			})
			continue
		}
		// attempt-level failure; submission below converges on
		// whatever terminal state the attempt reached
		break
	}

	attempt, err := s.Submit(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	result.Attempt = attempt
	return result, nil
}

// ExpireOverdue is the periodic sweep that force-closes attempts whose
// clients never submitted. It runs the same grading pipeline as a
// submit, so partially answered attempts keep their partial credit.
func (s *AttemptService) ExpireOverdue() (int, error) {
	attempts, err := s.Attempts.ListInProgress(500)
	if err != nil {
		return 0, err
	}

	exams := make(map[string]*model.Exam)
	expired := 0
	for i := range attempts {
		attempt := &attempts[i]
		exam, ok := exams[attempt.ExamID]
		if !ok {
			exam, err = s.Exams.FindByID(attempt.ExamID)
			if err != nil {
				logger.Log.Error("expiry sweep: exam lookup failed",
					zap.String("examId", attempt.ExamID), zap.Error(err))
				continue
			}
			exams[attempt.ExamID] = exam
		}
		if s.now().Before(attempt.Deadline(exam)) {
			continue
		}
		if err := s.expire(attempt, exam); err != nil {
			logger.Log.Error("expiry sweep: transition failed",
				zap.String("attemptId", attempt.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// ensureLive returns the exam when the attempt may still accept
// writes. An attempt past its deadline is expired here, guarding
// against clients that never call submit.
func (s *AttemptService) ensureLive(attempt *model.ExamAttempt) (*model.Exam, error) {
	switch attempt.Status {
	case model.AttemptExpired:
		return nil, util.ErrExamTimeExpired
	case model.AttemptSubmitted, model.AttemptGraded:
		return nil, util.ErrAttemptNotInProgress
	}

	exam, err := s.Exams.FindByID(attempt.ExamID)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(attempt.Deadline(exam)) {
		if err := s.expire(attempt, exam); err != nil {
			return nil, err
		}
		return nil, util.ErrExamTimeExpired
	}
	return exam, nil
}

// expire performs the in_progress -> expired transition. When this
// writer loses to a concurrent submit the attempt is left as that
// submit produced it.
func (s *AttemptService) expire(attempt *model.ExamAttempt, exam *model.Exam) error {
	won, err := s.Attempts.CompareAndSetStatus(attempt.ID,
		model.AttemptInProgress, model.AttemptExpired, nil)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	attempt.Status = model.AttemptExpired
	monitoring.AttemptsFinished.WithLabelValues("expired").Inc()
	logger.Log.Info("attempt expired",
		zap.String("attemptId", attempt.ID),
		zap.String("examId", exam.ID),
		zap.Uint("studentId", attempt.StudentID))
	_, err = s.Grader.GradeAttempt(attempt.ID)
	return err
}
