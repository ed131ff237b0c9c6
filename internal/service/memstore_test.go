package service

import (
	"fmt"
	"sync"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
)

// memStore is an in-memory stand-in for the gorm repositories. It
// enforces the same unique indexes and compare-and-set semantics the
// database provides, so the race-handling paths are exercised for
// real.
type memStore struct {
	mu sync.Mutex

	exams     map[string]*model.Exam
	questions map[string]*model.ExamQuestion
	attempts  map[string]*model.ExamAttempt
	answers   map[string]*model.ExamAnswer
	classes   map[uint]*model.Class
	members   map[string]bool

	seq int
}

func newMemStore() *memStore {
	return &memStore{
		exams:     make(map[string]*model.Exam),
		questions: make(map[string]*model.ExamQuestion),
		attempts:  make(map[string]*model.ExamAttempt),
		answers:   make(map[string]*model.ExamAnswer),
		classes:   make(map[uint]*model.Class),
		members:   make(map[string]bool),
	}
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%04d", m.seq)
}

func memberKey(classID, studentID uint) string {
	return fmt.Sprintf("%d/%d", classID, studentID)
}

// Names that collide between the store interfaces (Create, FindByID,
// CompareAndSetStatus) carry an Exam/Attempt/Class infix here; the
// thin wrapper types at the bottom restore the interface shapes.

func (m *memStore) CreateExam(exam *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exam.ID == "" {
		exam.ID = m.nextID()
	}
	cp := *exam
	m.exams[exam.ID] = &cp
	return nil
}

func (m *memStore) FindExamByID(id string) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[id]
	if !ok {
		return nil, util.ErrExamNotFound
	}
	cp := *exam
	return &cp, nil
}

func (m *memStore) Updates(examID string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[examID]
	if !ok {
		return util.ErrExamNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			exam.Title = v.(string)
		case "description":
			exam.Description = v.(string)
		case "start_time":
			exam.StartTime = v.(time.Time)
		case "end_time":
			exam.EndTime = v.(time.Time)
		case "duration_minutes":
			exam.DurationMinutes = v.(int)
		case "max_attempts":
			exam.MaxAttempts = v.(int)
		case "auto_submit_buffer_s":
			exam.AutoSubmitBufferS = v.(int)
		}
	}
	return nil
}

func (m *memStore) CompareAndSetExamStatus(examID string, from, to model.ExamStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exam, ok := m.exams[examID]
	if !ok {
		return false, util.ErrExamNotFound
	}
	if exam.Status != from {
		return false, nil
	}
	exam.Status = to
	return true, nil
}

func (m *memStore) ListByClass(classID uint) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exam
	for _, e := range m.exams {
		if e.ClassID == classID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) ListByLecturer(lecturerID uint) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exam
	for _, e := range m.exams {
		if e.LecturerID == lecturerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) ListDueForActivation(now time.Time) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exam
	for _, e := range m.exams {
		if e.Status == model.ExamPublished && !now.Before(e.StartTime) && now.Before(e.EndTime) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) ListDueForClose(now time.Time) ([]model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Exam
	for _, e := range m.exams {
		if e.Status == model.ExamActive && !now.Before(e.EndTime) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) Delete(examID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exams, examID)
	for id, q := range m.questions {
		if q.ExamID == examID {
			delete(m.questions, id)
		}
	}
	return nil
}

func (m *memStore) CreateQuestion(q *model.ExamQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = m.nextID()
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = m.nextID()
		}
		q.Options[i].QuestionID = q.ID
	}
	cp := *q
	cp.Options = append([]model.QuestionOption(nil), q.Options...)
	m.questions[q.ID] = &cp
	return nil
}

func (m *memStore) UpdateQuestion(q *model.ExamQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return util.ErrQuestionNotFound
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = m.nextID()
		}
		q.Options[i].QuestionID = q.ID
	}
	cp := *q
	cp.Options = append([]model.QuestionOption(nil), q.Options...)
	m.questions[q.ID] = &cp
	return nil
}

func (m *memStore) DeleteQuestion(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

func (m *memStore) FindQuestion(id string) (*model.ExamQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	cp := *q
	cp.Options = append([]model.QuestionOption(nil), q.Options...)
	return &cp, nil
}

func (m *memStore) ListQuestions(examID string) ([]model.ExamQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamQuestion
	for _, q := range m.questions {
		if q.ExamID != examID {
			continue
		}
		cp := *q
		cp.Options = append([]model.QuestionOption(nil), q.Options...)
		out = append(out, cp)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].OrderIndex < out[i].OrderIndex {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// --- AttemptStore ---

func (m *memStore) CreateAttempt(attempt *model.ExamAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ExamID == attempt.ExamID && a.StudentID == attempt.StudentID && a.AttemptNumber == attempt.AttemptNumber {
			return repository.ErrDuplicateAttempt
		}
	}
	if attempt.ID == "" {
		attempt.ID = m.nextID()
	}
	cp := *attempt
	m.attempts[attempt.ID] = &cp
	return nil
}

func (m *memStore) FindAttemptByID(id string) (*model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) FindInProgress(examID string, studentID uint) (*model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ExamID == examID && a.StudentID == studentID && a.Status == model.AttemptInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CountForStudent(examID string, studentID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MaxAttemptNumber(examID string, studentID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, a := range m.attempts {
		if a.ExamID == examID && a.StudentID == studentID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max, nil
}

func (m *memStore) CountByExam(examID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if a.ExamID == examID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CompareAndSetAttemptStatus(id string, from, to model.AttemptStatus, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return false, util.ErrAttemptNotFound
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	for k, v := range fields {
		switch k {
		case "submitted_at":
			t := v.(time.Time)
			a.SubmittedAt = &t
		case "total_score":
			n := v.(int)
			a.TotalScore = &n
		}
	}
	return true, nil
}

func (m *memStore) ListInProgress(limit int) ([]model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range m.attempts {
		if a.Status == model.AttemptInProgress {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListByExam(examID string) ([]model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range m.attempts {
		if a.ExamID == examID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ListByStudent(examID string, studentID uint) ([]model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAttempt
	for _, a := range m.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// --- AnswerStore ---

func (m *memStore) UpsertAnswer(ans *model.ExamAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.answers {
		if existing.AttemptID == ans.AttemptID && existing.QuestionID == ans.QuestionID {
			existing.Payload = ans.Payload
			existing.IsCorrect = nil
			existing.PointsEarned = 0
			existing.AutoGraded = false
			return nil
		}
	}
	if ans.ID == "" {
		ans.ID = m.nextID()
	}
	cp := *ans
	m.answers[ans.ID] = &cp
	return nil
}

func (m *memStore) ListAnswers(attemptID string) ([]model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAnswer
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) FindAnswerByID(id string) (*model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[id]
	if !ok {
		return nil, util.ErrAnswerNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) SaveAnswer(ans *model.ExamAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[ans.ID]; !ok {
		return util.ErrAnswerNotFound
	}
	cp := *ans
	m.answers[ans.ID] = &cp
	return nil
}

func (m *memStore) ListPendingManual(examID string) ([]model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAnswer
	for _, ans := range m.answers {
		attempt, ok := m.attempts[ans.AttemptID]
		if !ok || attempt.ExamID != examID {
			continue
		}
		if attempt.Status != model.AttemptSubmitted && attempt.Status != model.AttemptExpired {
			continue
		}
		if !ans.AutoGraded && ans.GradedByID == nil {
			out = append(out, *ans)
		}
	}
	return out, nil
}

func (m *memStore) ListAnswersByExam(examID string) ([]model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamAnswer
	for _, ans := range m.answers {
		attempt, ok := m.attempts[ans.AttemptID]
		if ok && attempt.ExamID == examID {
			out = append(out, *ans)
		}
	}
	return out, nil
}

// --- MembershipStore / ClassStore ---

func (m *memStore) IsMember(classID, studentID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[memberKey(classID, studentID)], nil
}

func (m *memStore) FindClassByID(id uint) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, util.ErrClassNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) addClass(id, lecturerID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[id] = &model.Class{BaseModel: model.BaseModel{ID: id}, Name: fmt.Sprintf("class %d", id), LecturerID: lecturerID}
}

func (m *memStore) addMember(classID, studentID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[memberKey(classID, studentID)] = true
}

// --- interface adapters ---

type memExams struct{ *memStore }

func (s memExams) Create(exam *model.Exam) error { return s.CreateExam(exam) }

func (s memExams) FindByID(id string) (*model.Exam, error) { return s.FindExamByID(id) }

func (s memExams) CompareAndSetStatus(examID string, from, to model.ExamStatus) (bool, error) {
	return s.CompareAndSetExamStatus(examID, from, to)
}

type memAttempts struct{ *memStore }

func (s memAttempts) Create(attempt *model.ExamAttempt) error { return s.CreateAttempt(attempt) }

func (s memAttempts) FindByID(id string) (*model.ExamAttempt, error) { return s.FindAttemptByID(id) }

func (s memAttempts) CompareAndSetStatus(id string, from, to model.AttemptStatus, fields map[string]interface{}) (bool, error) {
	return s.CompareAndSetAttemptStatus(id, from, to, fields)
}

type memClasses struct{ *memStore }

func (s memClasses) FindByID(id uint) (*model.Class, error) { return s.FindClassByID(id) }

var (
	_ ExamStore       = memExams{}
	_ AttemptStore    = memAttempts{}
	_ AnswerStore     = memAttempts{}
	_ MembershipStore = memClasses{}
	_ ClassStore      = memClasses{}
)
