package service

import (
	"encoding/json"
	"sort"

	"exam_platform_backend/internal/model"
)

// ScoreOutcome is the deterministic result of auto-grading one answer
// against its question definition.
type ScoreOutcome struct {
	AutoGradable bool
	IsCorrect    bool
	PointsEarned int
}

// ScoreAnswer recomputes the grade purely from the stored payload and
// the question definition, so re-running it on an already-graded
// answer always yields the same result.
func ScoreAnswer(question *model.ExamQuestion, payload json.RawMessage) ScoreOutcome {
	if question.QuestionType.NeedsManualGrading() {
		return ScoreOutcome{AutoGradable: false}
	}

	switch question.QuestionType {
	case model.QuestionMCQ:
		return scoreMCQ(question, payload)
	default:
		// unknown objective types stay in the manual queue
		return ScoreOutcome{AutoGradable: false}
	}
}

// scoreMCQ awards full points only when the selected option set
// exactly equals the correct option set. No partial credit.
func scoreMCQ(question *model.ExamQuestion, payload json.RawMessage) ScoreOutcome {
	var p model.MCQPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ScoreOutcome{AutoGradable: true, IsCorrect: false, PointsEarned: 0}
	}

	valid := make(map[string]bool, len(question.Options))
	for _, o := range question.Options {
		valid[o.ID] = true
	}
	for _, id := range p.SelectedOptionIDs {
		if !valid[id] {
			return ScoreOutcome{AutoGradable: true, IsCorrect: false, PointsEarned: 0}
		}
	}

	if equalIDSets(p.SelectedOptionIDs, question.CorrectOptionIDs()) {
		return ScoreOutcome{AutoGradable: true, IsCorrect: true, PointsEarned: question.Points}
	}
	return ScoreOutcome{AutoGradable: true, IsCorrect: false, PointsEarned: 0}
}

func equalIDSets(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	as := dedupSorted(a)
	bs := dedupSorted(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func dedupSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
