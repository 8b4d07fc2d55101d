package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
)

// stubSource hands out a fixed question list.
type stubSource struct {
	questions []model.Question
}

func (s *stubSource) GenerateOrFallback(ctx context.Context, topic string, count int) []model.Question {
	return s.questions
}

// stubAnalyzer grades locally with canned feedback.
type stubAnalyzer struct{}

func (s *stubAnalyzer) AnalyzeOrDegrade(ctx context.Context, answers model.AnswerMap, questions []model.Question) Analysis {
	correct, score := Grade(answers, questions)
	return Analysis{Score: score, CorrectAnswers: correct, Feedback: "ok", WeakAreas: []string{}}
}

// stubGateway records saves and can simulate persistence failure.
type stubGateway struct {
	mu    sync.Mutex
	saves int
	last  *model.ExamResult
	entry *model.LeaderboardEntry
	err   error
	delay time.Duration
}

func (g *stubGateway) SaveResult(ctx context.Context, result *model.ExamResult, entry *model.LeaderboardEntry) (uuid.UUID, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return uuid.Nil, g.err
	}
	g.saves++
	g.last = result
	g.entry = entry
	return uuid.New(), nil
}

func (g *stubGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}

var testUser = User{UID: "user-1", Name: "nadia", Avatar: "N"}

func newTestSessions(t *testing.T, gateway ResultGateway, cfg *config.Config) *SessionService {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	return NewSessionService(
		&stubSource{questions: fiveQuestions()},
		&stubAnalyzer{},
		gateway,
		cfg,
		zerolog.Nop(),
	)
}

// waitStatus polls until the session reaches the wanted state; question
// loading is asynchronous even with an instant stub source.
func waitStatus(t *testing.T, s *SessionService, id uuid.UUID, want model.SessionStatus) *model.SessionView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := s.Get(id, testUser)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if view.Status == want {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached %s", want)
	return nil
}

func TestStartReachesReady(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)

	view := s.Start(testUser, "pointers", 5)
	if view.Status != model.SessionStatusLoading {
		t.Fatalf("initial status = %s, want LOADING", view.Status)
	}

	view = waitStatus(t, s, view.ID, model.SessionStatusReady)
	if len(view.Questions) != 5 {
		t.Fatalf("got %d questions, want 5", len(view.Questions))
	}
	if view.TimeLeft <= 0 {
		t.Errorf("countdown not running: time_left = %d", view.TimeLeft)
	}
}

func TestEmptyQuestionListIsLoadFailed(t *testing.T) {
	s := NewSessionService(&stubSource{}, &stubAnalyzer{}, &stubGateway{}, testConfig(), zerolog.Nop())

	view := s.Start(testUser, "pointers", 5)
	view = waitStatus(t, s, view.ID, model.SessionStatusLoadFailed)

	// Terminal: no retry, no mutation, no submission.
	if _, err := s.SelectAnswer(view.ID, testUser, 1, 0); !errors.Is(err, ErrSessionLoadFailed) {
		t.Errorf("SelectAnswer: got %v, want ErrSessionLoadFailed", err)
	}
	if _, err := s.Submit(t.Context(), view.ID, testUser); !errors.Is(err, ErrSessionLoadFailed) {
		t.Errorf("Submit: got %v, want ErrSessionLoadFailed", err)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	if _, err := s.SelectAnswer(view.ID, testUser, 1, 2); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	got, err := s.SelectAnswer(view.ID, testUser, 1, 3)
	if err != nil {
		t.Fatalf("SelectAnswer overwrite: %v", err)
	}
	if got.Answers[1] != 3 {
		t.Errorf("answer = %d, want 3 (overwritten)", got.Answers[1])
	}
	if got.Status != model.SessionStatusAnswering {
		t.Errorf("status = %s, want ANSWERING", got.Status)
	}

	if _, err := s.SelectAnswer(view.ID, testUser, 42, 0); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question: got %v", err)
	}
}

func TestToggleFlagIdempotence(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	on, err := s.ToggleFlag(view.ID, testUser, 2)
	if err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if len(on.Flagged) != 1 || on.Flagged[0] != 2 {
		t.Fatalf("flagged = %v, want [2]", on.Flagged)
	}

	off, err := s.ToggleFlag(view.ID, testUser, 2)
	if err != nil {
		t.Fatalf("ToggleFlag again: %v", err)
	}
	if len(off.Flagged) != 0 {
		t.Errorf("flagged = %v, want empty after double toggle", off.Flagged)
	}
}

func TestNavigate(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	abs := func(i int) *int { return &i }

	tests := []struct {
		name  string
		index *int
		move  string
		want  int
	}{
		{"absolute in range", abs(3), "", 3},
		{"absolute clamped high", abs(99), "", 4},
		{"next from last is disabled", nil, "next", 4},
		{"absolute clamped low", abs(-5), "", 0},
		{"prev from first is disabled", nil, "prev", 0},
		{"next advances", nil, "next", 1},
		{"prev retreats", nil, "prev", 0},
	}

	for _, tt := range tests {
		got, err := s.Navigate(view.ID, testUser, tt.index, tt.move)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got.CurrentIndex != tt.want {
			t.Errorf("%s: index = %d, want %d", tt.name, got.CurrentIndex, tt.want)
		}
	}
}

func TestToggleReview(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	rev, err := s.ToggleReview(view.ID, testUser)
	if err != nil {
		t.Fatalf("ToggleReview: %v", err)
	}
	if rev.Status != model.SessionStatusReviewing {
		t.Fatalf("status = %s, want REVIEWING", rev.Status)
	}

	// Mutations still allowed while reviewing.
	if _, err := s.SelectAnswer(view.ID, testUser, 1, 1); err != nil {
		t.Fatalf("SelectAnswer while reviewing: %v", err)
	}

	back, err := s.ToggleReview(view.ID, testUser)
	if err != nil {
		t.Fatalf("ToggleReview back: %v", err)
	}
	if back.Status != model.SessionStatusAnswering {
		t.Errorf("status = %s, want ANSWERING", back.Status)
	}
}

func TestSubmitScoring(t *testing.T) {
	gateway := &stubGateway{}
	s := newTestSessions(t, gateway, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	// Questions i (id i+1) have correctAnswer i%4: answer 3 right, leave 2 blank.
	for qid, sel := range map[int]int{1: 0, 2: 1, 3: 2} {
		if _, err := s.SelectAnswer(view.ID, testUser, qid, sel); err != nil {
			t.Fatalf("SelectAnswer: %v", err)
		}
	}

	resultID, err := s.Submit(t.Context(), view.ID, testUser)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resultID == uuid.Nil {
		t.Fatal("missing result id")
	}

	res := gateway.last
	if res.CorrectAnswers != 3 || res.TotalQuestions != 5 || res.Score != 60.0 {
		t.Errorf("got correct=%d total=%d score=%v, want 3/5/60.0",
			res.CorrectAnswers, res.TotalQuestions, res.Score)
	}
	if res.Topic != "pointers" || res.UserID != testUser.UID {
		t.Errorf("ownership fields wrong: %+v", res)
	}

	answered, unanswered := 0, 0
	for _, gq := range res.Questions {
		if gq.SelectedAnswer == nil {
			unanswered++
		} else {
			answered++
		}
	}
	if answered != 3 || unanswered != 2 {
		t.Errorf("answered=%d unanswered=%d, want 3/2", answered, unanswered)
	}

	if gateway.entry == nil || gateway.entry.Score != 60.0 || gateway.entry.Name != testUser.Name {
		t.Errorf("leaderboard entry wrong: %+v", gateway.entry)
	}

	// Session is read-only after submission.
	if _, err := s.SelectAnswer(view.ID, testUser, 1, 1); !errors.Is(err, ErrSessionReadOnly) {
		t.Errorf("mutation after submit: got %v, want ErrSessionReadOnly", err)
	}
	if _, err := s.Submit(t.Context(), view.ID, testUser); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second submit: got %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitRaceProducesOneResult(t *testing.T) {
	gateway := &stubGateway{delay: 50 * time.Millisecond}
	s := newTestSessions(t, gateway, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Submit(context.Background(), view.ID, testUser)
		}(i)
	}
	wg.Wait()

	if gateway.saveCount() != 1 {
		t.Fatalf("persisted %d results, want exactly 1", gateway.saveCount())
	}

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSubmitInFlight), errors.Is(err, ErrAlreadySubmitted):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Errorf("ok=%d rejected=%d, want 1/1", ok, rejected)
	}
}

func TestSubmitPersistenceFailureIsRetryable(t *testing.T) {
	gateway := &stubGateway{err: errors.New("connection reset")}
	s := newTestSessions(t, gateway, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	if _, err := s.SelectAnswer(view.ID, testUser, 1, 0); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	if _, err := s.Submit(t.Context(), view.ID, testUser); !errors.Is(err, ErrSubmitFailed) {
		t.Fatalf("got %v, want ErrSubmitFailed", err)
	}

	// Guard cleared, answers intact, session answerable again.
	got, err := s.Get(view.ID, testUser)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.SessionStatusAnswering {
		t.Fatalf("status = %s, want ANSWERING after failed submit", got.Status)
	}
	if got.Answers[1] != 0 {
		t.Error("answers lost across failed submission")
	}

	gateway.mu.Lock()
	gateway.err = nil
	gateway.mu.Unlock()

	if _, err := s.Submit(t.Context(), view.ID, testUser); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if gateway.saveCount() != 1 {
		t.Errorf("persisted %d results, want 1", gateway.saveCount())
	}
}

func TestCountdownAutoSubmitsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.ExamDuration = 100 * time.Millisecond

	gateway := &stubGateway{}
	s := newTestSessions(t, gateway, cfg)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	// Answer some questions, then let the clock run out.
	if _, err := s.SelectAnswer(view.ID, testUser, 1, 0); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	waitStatus(t, s, view.ID, model.SessionStatusSubmitted)

	if gateway.saveCount() != 1 {
		t.Fatalf("persisted %d results, want exactly 1", gateway.saveCount())
	}
	// Submission used the answers recorded at expiry.
	if gateway.last.CorrectAnswers != 1 {
		t.Errorf("correctAnswers = %d, want 1", gateway.last.CorrectAnswers)
	}
}

func TestOwnership(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	intruder := User{UID: "user-2", Name: "mallory"}
	if _, err := s.Get(view.ID, intruder); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Get as intruder: got %v, want ErrNotOwner", err)
	}
	if _, err := s.Submit(t.Context(), view.ID, intruder); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Submit as intruder: got %v, want ErrNotOwner", err)
	}
}

func TestTeardown(t *testing.T) {
	s := newTestSessions(t, &stubGateway{}, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	if err := s.Teardown(view.ID, testUser); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, err := s.Get(view.ID, testUser); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after teardown: got %v, want ErrSessionNotFound", err)
	}
}

func TestSweepExpired(t *testing.T) {
	gateway := &stubGateway{}
	s := newTestSessions(t, gateway, nil)
	view := s.Start(testUser, "pointers", 5)
	waitStatus(t, s, view.ID, model.SessionStatusReady)

	if _, err := s.Submit(t.Context(), view.ID, testUser); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Still within retention: untouched.
	if pruned := s.SweepExpired(time.Now(), time.Hour); pruned != 0 {
		t.Errorf("pruned %d sessions inside retention window", pruned)
	}

	// Past retention: gone.
	if pruned := s.SweepExpired(time.Now().Add(2*time.Hour), time.Hour); pruned != 1 {
		t.Fatalf("pruned %d sessions, want 1", pruned)
	}
	if s.Count() != 0 {
		t.Errorf("live sessions = %d, want 0", s.Count())
	}
}
