package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AnalyticsService derives attempt results and exam-wide statistics on
// demand from the stored attempts and answers. Nothing here is
// persisted; the only copy of a statistic lives in the short-lived
// Redis cache.
type AnalyticsService struct {
	Exams    ExamStore
	Attempts AttemptStore
	Answers  AnswerStore
	Redis    *redis.Client
	CacheTTL time.Duration

	now func() time.Time
}

func NewAnalyticsService(exams ExamStore, attempts AttemptStore, answers AnswerStore, rdb *redis.Client, cacheTTL time.Duration) *AnalyticsService {
	return &AnalyticsService{
		Exams:    exams,
		Attempts: attempts,
		Answers:  answers,
		Redis:    rdb,
		CacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// QuestionBreakdown is one row of a per-question attempt result.
type QuestionBreakdown struct {
	QuestionID   string             `json:"questionId"`
	OrderIndex   int                `json:"orderIndex"`
	QuestionType model.QuestionType `json:"questionType"`
	Points       int                `json:"points"`
	Answered     bool               `json:"answered"`
	Payload      json.RawMessage    `json:"payload,omitempty"`
	IsCorrect    *bool              `json:"isCorrect,omitempty"`
	PointsEarned int                `json:"pointsEarned"`
	AutoGraded   bool               `json:"autoGraded"`
	GradedByID   *uint              `json:"gradedById,omitempty"`
}

// AttemptDetail is the full result view of one attempt.
type AttemptDetail struct {
	AttemptID            string              `json:"attemptId"`
	ExamID               string              `json:"examId"`
	ExamTitle            string              `json:"examTitle"`
	StudentID            uint                `json:"studentId"`
	AttemptNumber        int                 `json:"attemptNumber"`
	Status               model.AttemptStatus `json:"status"`
	StartedAt            time.Time           `json:"startedAt"`
	SubmittedAt          *time.Time          `json:"submittedAt,omitempty"`
	TotalScore           *int                `json:"totalScore,omitempty"`
	MaxScore             int                 `json:"maxScore"`
	TimeRemainingSeconds int                 `json:"timeRemainingSeconds"`
	Breakdown            []QuestionBreakdown `json:"breakdown"`
}

// AttemptDetail assembles status, score and the per-question breakdown
// for one attempt. Students see only their own attempts; lecturers
// only attempts of their own exams.
func (s *AnalyticsService) AttemptDetail(attemptID string, requesterID uint, role model.UserRole) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(attempt.ExamID)
	if err != nil {
		return nil, err
	}

	switch role {
	case model.Student:
		if attempt.StudentID != requesterID {
			return nil, util.ErrUnauthorizedAccess
		}
	case model.Lecturer:
		if exam.LecturerID != requesterID {
			return nil, util.ErrUnauthorizedAccess
		}
	}

	questions, err := s.Exams.ListQuestions(attempt.ExamID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Answers.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[string]*model.ExamAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	detail := &AttemptDetail{
		AttemptID:     attempt.ID,
		ExamID:        exam.ID,
		ExamTitle:     exam.Title,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		StartedAt:     attempt.StartedAt,
		SubmittedAt:   attempt.SubmittedAt,
		TotalScore:    attempt.TotalScore,
	}
	if !attempt.Status.Terminal() {
		remaining := exam.Duration() - s.now().Sub(attempt.StartedAt)
		if remaining < 0 {
			remaining = 0
		}
		detail.TimeRemainingSeconds = int(remaining.Seconds())
	}

	for _, q := range questions {
		row := QuestionBreakdown{
			QuestionID:   q.ID,
			OrderIndex:   q.OrderIndex,
			QuestionType: q.QuestionType,
			Points:       q.Points,
		}
		if ans, ok := byQuestion[q.ID]; ok {
			row.Answered = true
			row.Payload = ans.Payload
			row.IsCorrect = ans.IsCorrect
			row.PointsEarned = ans.PointsEarned
			row.AutoGraded = ans.AutoGraded
			row.GradedByID = ans.GradedByID
		}
		detail.MaxScore += q.Points
		detail.Breakdown = append(detail.Breakdown, row)
	}
	return detail, nil
}

// WrongAnswerCount is one frequently-chosen wrong answer.
type WrongAnswerCount struct {
	Payload string `json:"payload"`
	Count   int    `json:"count"`
}

type QuestionStats struct {
	QuestionID    string             `json:"questionId"`
	OrderIndex    int                `json:"orderIndex"`
	QuestionType  model.QuestionType `json:"questionType"`
	Answered      int                `json:"answered"`
	Correct       int                `json:"correct"`
	Incorrect     int                `json:"incorrect"`
	PendingManual int                `json:"pendingManual"`
	CommonWrong   []WrongAnswerCount `json:"commonWrong,omitempty"`
}

type ScoreBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type ExamStats struct {
	ExamID            string          `json:"examId"`
	Attempts          int             `json:"attempts"`
	InProgress        int             `json:"inProgress"`
	Submitted         int             `json:"submitted"`
	Graded            int             `json:"graded"`
	Expired           int             `json:"expired"`
	MinScore          *int            `json:"minScore,omitempty"`
	MaxScore          *int            `json:"maxScore,omitempty"`
	AvgScore          *float64        `json:"avgScore,omitempty"`
	ScoreDistribution []ScoreBucket   `json:"scoreDistribution"`
	Questions         []QuestionStats `json:"questions"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

const statsCacheKeyFmt = "exam_stats:%s"

// Stats computes exam-wide statistics across all attempts. Results are
// cached briefly in Redis; a cache miss recomputes from the rows.
func (s *AnalyticsService) Stats(ctx context.Context, examID string, lecturerID uint, role model.UserRole) (*ExamStats, error) {
	exam, err := s.Exams.FindByID(examID)
	if err != nil {
		return nil, err
	}
	if role != model.Admin && exam.LecturerID != lecturerID {
		return nil, util.ErrUnauthorizedAccess
	}

	cacheKey := fmt.Sprintf(statsCacheKeyFmt, examID)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var stats ExamStats
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.computeStats(examID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, encoded, s.CacheTTL).Err(); err != nil {
				logger.Log.Warn("exam stats cache write failed",
					zap.String("examId", examID), zap.Error(err))
			}
		}
	}
	return stats, nil
}

func (s *AnalyticsService) computeStats(examID string) (*ExamStats, error) {
	attempts, err := s.Attempts.ListByExam(examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Exams.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Answers.ListAnswersByExam(examID)
	if err != nil {
		return nil, err
	}

	stats := &ExamStats{
		ExamID:      examID,
		GeneratedAt: s.now(),
	}

	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
	}

	var scores []int
	for _, a := range attempts {
		stats.Attempts++
		switch a.Status {
		case model.AttemptInProgress:
			stats.InProgress++
		case model.AttemptSubmitted:
			stats.Submitted++
		case model.AttemptGraded:
			stats.Graded++
		case model.AttemptExpired:
			stats.Expired++
		}
		if a.TotalScore != nil {
			scores = append(scores, *a.TotalScore)
		}
	}

	if len(scores) > 0 {
		sort.Ints(scores)
		min, max := scores[0], scores[len(scores)-1]
		sum := 0
		for _, sc := range scores {
			sum += sc
		}
		avg := float64(sum) / float64(len(scores))
		stats.MinScore = &min
		stats.MaxScore = &max
		stats.AvgScore = &avg
		stats.ScoreDistribution = bucketScores(scores, maxScore)
	}

	byQuestion := make(map[string]*QuestionStats, len(questions))
	wrongCounts := make(map[string]map[string]int)
	for _, q := range questions {
		qs := &QuestionStats{
			QuestionID:   q.ID,
			OrderIndex:   q.OrderIndex,
			QuestionType: q.QuestionType,
		}
		byQuestion[q.ID] = qs
		wrongCounts[q.ID] = make(map[string]int)
	}

	for _, a := range answers {
		qs, ok := byQuestion[a.QuestionID]
		if !ok {
			continue
		}
		qs.Answered++
		switch {
		case !a.Graded():
			qs.PendingManual++
		case a.IsCorrect != nil && *a.IsCorrect:
			qs.Correct++
		default:
			qs.Incorrect++
			wrongCounts[a.QuestionID][string(a.Payload)]++
		}
	}

	for _, q := range questions {
		qs := byQuestion[q.ID]
		qs.CommonWrong = topWrongAnswers(wrongCounts[q.ID], 3)
		stats.Questions = append(stats.Questions, *qs)
	}

	return stats, nil
}

// bucketScores groups totals into five equal bands of the maximum
// achievable score.
func bucketScores(scores []int, maxScore int) []ScoreBucket {
	if maxScore <= 0 {
		return nil
	}
	const bands = 5
	buckets := make([]ScoreBucket, bands)
	step := float64(maxScore) / bands
	for i := 0; i < bands; i++ {
		lo := int(step * float64(i))
		hi := int(step * float64(i+1))
		buckets[i].Label = fmt.Sprintf("%d-%d", lo, hi)
	}
	for _, sc := range scores {
		idx := int(float64(sc) / step)
		if idx >= bands {
			idx = bands - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}

func topWrongAnswers(counts map[string]int, limit int) []WrongAnswerCount {
	out := make([]WrongAnswerCount, 0, len(counts))
	for payload, count := range counts {
		out = append(out, WrongAnswerCount{Payload: payload, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Payload < out[j].Payload
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
