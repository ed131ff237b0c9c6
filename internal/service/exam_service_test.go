package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/util"
)

type examFixture struct {
	store *memStore
	clock *testClock
	svc   *ExamService
}

func newExamFixture(t *testing.T) *examFixture {
	t.Helper()

	store := newMemStore()
	clock := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store.addClass(testClassID, testLecturer)

	svc := NewExamService(memExams{store}, memAttempts{store}, memClasses{store})
	svc.now = clock.Now

	return &examFixture{store: store, clock: clock, svc: svc}
}

func validCreateRequest(clock *testClock) ExamCreateRequest {
	return ExamCreateRequest{
		Title:     "Final",
		ClassID:   testClassID,
		StartTime: clock.Now().Add(time.Hour),
		EndTime:   clock.Now().Add(3 * time.Hour),
		Questions: []QuestionRequest{
			{
				QuestionType: model.QuestionMCQ,
				Content:      "pick one",
				Points:       4,
				OrderIndex:   1,
				Options: []OptionRequest{
					{Content: "right", IsCorrect: true},
					{Content: "wrong"},
				},
			},
		},
	}
}

func TestCreateExamDefaults(t *testing.T) {
	f := newExamFixture(t)

	exam, err := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if exam.Status != model.ExamDraft {
		t.Errorf("Status = %s, want draft", exam.Status)
	}
	if exam.DurationMinutes != 60 {
		t.Errorf("DurationMinutes = %d, want default 60", exam.DurationMinutes)
	}
	if exam.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want default 1", exam.MaxAttempts)
	}

	questions, _ := f.store.ListQuestions(exam.ID)
	if len(questions) != 1 {
		t.Fatalf("%d questions created, want 1", len(questions))
	}
}

func TestCreateExamRejectsInvertedWindow(t *testing.T) {
	f := newExamFixture(t)

	req := validCreateRequest(f.clock)
	req.StartTime, req.EndTime = req.EndTime, req.StartTime
	if _, err := f.svc.CreateExam(testLecturer, model.Lecturer, req); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("err = %v, want ErrInvalidExamState", err)
	}
}

func TestCreateExamRejectsForeignClass(t *testing.T) {
	f := newExamFixture(t)

	if _, err := f.svc.CreateExam(strangerID, model.Lecturer, validCreateRequest(f.clock)); !errors.Is(err, util.ErrUnauthorizedAccess) {
		t.Errorf("err = %v, want ErrUnauthorizedAccess", err)
	}
}

func TestLifecycleIsMonotonic(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))

	if _, err := f.svc.Activate(testLecturer, model.Lecturer, exam.ID); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("Activate from draft: err = %v, want ErrInvalidExamState", err)
	}

	published, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != model.ExamPublished {
		t.Fatalf("Status = %s, want published", published.Status)
	}

	active, err := f.svc.Activate(testLecturer, model.Lecturer, exam.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if active.Status != model.ExamActive {
		t.Fatalf("Status = %s, want active", active.Status)
	}

	closed, err := f.svc.Close(testLecturer, model.Lecturer, exam.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != model.ExamClosed {
		t.Fatalf("Status = %s, want closed", closed.Status)
	}

	// no reopening
	if _, err := f.svc.Activate(testLecturer, model.Lecturer, exam.ID); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("Activate after close: err = %v, want ErrInvalidExamState", err)
	}
	if _, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("Publish after close: err = %v, want ErrInvalidExamState", err)
	}
}

func TestPublishValidatesQuestions(t *testing.T) {
	f := newExamFixture(t)

	req := validCreateRequest(f.clock)
	req.Questions = nil
	empty, _ := f.svc.CreateExam(testLecturer, model.Lecturer, req)
	if _, err := f.svc.Publish(testLecturer, model.Lecturer, empty.ID); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("publish without questions: err = %v, want ErrInvalidExamState", err)
	}

	req = validCreateRequest(f.clock)
	req.Questions[0].Options = []OptionRequest{{Content: "a"}, {Content: "b"}}
	keyless, _ := f.svc.CreateExam(testLecturer, model.Lecturer, req)
	if _, err := f.svc.Publish(testLecturer, model.Lecturer, keyless.ID); !errors.Is(err, util.ErrQuestionGeneration) {
		t.Errorf("publish MCQ without answer key: err = %v, want ErrQuestionGeneration", err)
	}
}

func TestQuestionEditsFrozenAfterPublish(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))
	if _, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.AddQuestion(testLecturer, model.Lecturer, exam.ID, QuestionRequest{
		QuestionType: model.QuestionEssay, Content: "late", Points: 1, OrderIndex: 9,
	})
	if !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("AddQuestion after publish: err = %v, want ErrInvalidExamState", err)
	}

	if _, err := f.svc.UpdateExam(testLecturer, model.Lecturer, exam.ID, ExamUpdateRequest{}); !errors.Is(err, util.ErrInvalidExamState) {
		t.Errorf("UpdateExam after publish: err = %v, want ErrInvalidExamState", err)
	}
}

func TestDeleteExamRestrictedWithAttempts(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))

	if err := f.store.CreateAttempt(&model.ExamAttempt{
		ExamID: exam.ID, StudentID: testStudent, AttemptNumber: 1,
		Status: model.AttemptGraded, StartedAt: f.clock.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteExam(testLecturer, model.Lecturer, exam.ID); !errors.Is(err, util.ErrExamHasAttempts) {
		t.Errorf("err = %v, want ErrExamHasAttempts", err)
	}
	if _, err := f.store.FindExamByID(exam.ID); err != nil {
		t.Errorf("exam should survive the rejected delete: %v", err)
	}
}

func TestDeleteExamCascadesQuestions(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))

	if err := f.svc.DeleteExam(testLecturer, model.Lecturer, exam.ID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	questions, _ := f.store.ListQuestions(exam.ID)
	if len(questions) != 0 {
		t.Errorf("%d questions left after delete, want 0", len(questions))
	}
}

func TestStudentViewHidesAnswerKeyAndDrafts(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))

	if _, err := f.svc.StudentView(exam.ID, testStudent); !errors.Is(err, util.ErrExamNotFound) {
		t.Errorf("draft visible to student: err = %v, want ErrExamNotFound", err)
	}

	if _, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID); err != nil {
		t.Fatal(err)
	}

	view, err := f.svc.StudentView(exam.ID, testStudent)
	if err != nil {
		t.Fatalf("StudentView: %v", err)
	}
	if view.QuestionCount != 1 || len(view.Questions) != 1 {
		t.Fatalf("view has %d questions, want 1", len(view.Questions))
	}
	if len(view.Questions[0].Options) != 2 {
		t.Fatalf("view has %d options, want 2", len(view.Questions[0].Options))
	}
	// StudentOptionView carries no correctness flag at all; make sure
	// the explanation/answer data did not leak through another field
	for _, o := range view.Questions[0].Options {
		if o.ID == "" || o.Content == "" {
			t.Errorf("option view incomplete: %+v", o)
		}
	}
}

func TestProcessScheduleMovesWindows(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))
	if _, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID); err != nil {
		t.Fatal(err)
	}

	// before the window opens nothing happens
	if err := f.svc.ProcessSchedule(); err != nil {
		t.Fatal(err)
	}
	current, _ := f.store.FindExamByID(exam.ID)
	if current.Status != model.ExamPublished {
		t.Fatalf("Status = %s before window, want published", current.Status)
	}

	f.clock.Advance(90 * time.Minute) // inside the window
	if err := f.svc.ProcessSchedule(); err != nil {
		t.Fatal(err)
	}
	current, _ = f.store.FindExamByID(exam.ID)
	if current.Status != model.ExamActive {
		t.Fatalf("Status = %s inside window, want active", current.Status)
	}

	f.clock.Advance(5 * time.Hour) // past the window
	if err := f.svc.ProcessSchedule(); err != nil {
		t.Fatal(err)
	}
	current, _ = f.store.FindExamByID(exam.ID)
	if current.Status != model.ExamClosed {
		t.Fatalf("Status = %s past window, want closed", current.Status)
	}
}

func TestConcurrentPublishSingleWinner(t *testing.T) {
	f := newExamFixture(t)
	exam, _ := f.svc.CreateExam(testLecturer, model.Lecturer, validCreateRequest(f.clock))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Publish(testLecturer, model.Lecturer, exam.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, util.ErrInvalidExamState) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d publishes won, want exactly 1", wins)
	}
}
