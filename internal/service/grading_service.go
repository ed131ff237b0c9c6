package service

import (
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/monitoring"
)

// GradingService scores objective answers immediately and finalizes an
// attempt once nothing is left for the manual queue. Grading is
// idempotent: every run recomputes the same result from the stored
// payload and question definition, and never touches a manual grade.
type GradingService struct {
	Exams    ExamStore
	Attempts AttemptStore
	Answers  AnswerStore

	now func() time.Time
}

func NewGradingService(exams ExamStore, attempts AttemptStore, answers AnswerStore) *GradingService {
	return &GradingService{
		Exams:    exams,
		Attempts: attempts,
		Answers:  answers,
		now:      time.Now,
	}
}

// GradeAttempt runs the auto-grader over every answer of a submitted
// or expired attempt, then finalizes. Safe to re-run.
func (s *GradingService) GradeAttempt(attemptID string) (*model.ExamAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptInProgress {
		return nil, util.ErrAttemptNotInProgress
	}

	questions, err := s.Exams.ListQuestions(attempt.ExamID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.ExamQuestion, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	answers, err := s.Answers.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}

	for i := range answers {
		ans := &answers[i]
		question, ok := byID[ans.QuestionID]
		if !ok {
			continue
		}
		if ans.GradedByID != nil {
			// a human grade is never overwritten
			continue
		}
		outcome := ScoreAnswer(question, ans.Payload)
		if !outcome.AutoGradable {
			continue
		}
		correct := outcome.IsCorrect
		ans.IsCorrect = &correct
		ans.PointsEarned = outcome.PointsEarned
		ans.AutoGraded = true
		if err := s.Answers.SaveAnswer(ans); err != nil {
			return nil, err
		}
		monitoring.AnswersGraded.WithLabelValues("auto").Inc()
	}

	return s.finalize(attemptID)
}

// ManualGradeRequest carries a human grade for one subjective answer.
type ManualGradeRequest struct {
	Points    int  `json:"points"`
	IsCorrect bool `json:"isCorrect"`
}

// GradeAnswerManually records a human grade for an essay or coding
// answer, then re-finalizes the attempt. Graders may revise their own
// grade; auto-graded answers are out of reach.
func (s *GradingService) GradeAnswerManually(answerID string, graderID uint, req ManualGradeRequest) (*model.ExamAnswer, error) {
	ans, err := s.Answers.FindAnswerByID(answerID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.Attempts.FindByID(ans.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptInProgress {
		return nil, util.ErrAttemptNotInProgress
	}

	question, err := s.Exams.FindQuestion(ans.QuestionID)
	if err != nil {
		return nil, err
	}
	if !question.QuestionType.NeedsManualGrading() {
		return nil, util.ErrInvalidExamState
	}

	points := req.Points
	if points < 0 {
		points = 0
	}
	if points > question.Points {
		points = question.Points
	}

	correct := req.IsCorrect
	ans.IsCorrect = &correct
	ans.PointsEarned = points
	ans.AutoGraded = false
	ans.GradedByID = &graderID
	if err := s.Answers.SaveAnswer(ans); err != nil {
		return nil, err
	}
	monitoring.AnswersGraded.WithLabelValues("manual").Inc()

	if _, err := s.finalize(ans.AttemptID); err != nil {
		return nil, err
	}
	return ans, nil
}

// ListPendingManual returns the essay and coding answers of an exam
// still waiting for a human grade.
func (s *GradingService) ListPendingManual(examID string, lecturerID uint, role model.UserRole) ([]model.ExamAnswer, error) {
	exam, err := s.Exams.FindByID(examID)
	if err != nil {
		return nil, err
	}
	if role != model.Admin && exam.LecturerID != lecturerID {
		return nil, util.ErrUnauthorizedAccess
	}
	return s.Answers.ListPendingManual(examID)
}

// finalize computes the total once every answer carries a grade. A
// submitted attempt advances to graded; an expired attempt keeps its
// status but still receives its (partial-credit) total.
func (s *GradingService) finalize(attemptID string) (*model.ExamAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}

	answers, err := s.Answers.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}

	total := 0
	for i := range answers {
		if !answers[i].Graded() {
			return attempt, nil
		}
		total += answers[i].PointsEarned
	}

	switch attempt.Status {
	case model.AttemptSubmitted:
		won, err := s.Attempts.CompareAndSetStatus(attemptID,
			model.AttemptSubmitted, model.AttemptGraded,
			map[string]interface{}{"total_score": total})
		if err != nil {
			return nil, err
		}
		if won {
			monitoring.AttemptsFinished.WithLabelValues("graded").Inc()
		}
	case model.AttemptExpired:
		if _, err := s.Attempts.CompareAndSetStatus(attemptID,
			model.AttemptExpired, model.AttemptExpired,
			map[string]interface{}{"total_score": total}); err != nil {
			return nil, err
		}
	}

	return s.Attempts.FindByID(attemptID)
}
