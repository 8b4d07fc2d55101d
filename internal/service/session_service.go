package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/config"
	"github.com/prepmind/prepmind-backend/internal/model"
)

// Session lifecycle errors.
var (
	ErrSessionNotFound   = errors.New("exam session not found")
	ErrNotOwner          = errors.New("exam session belongs to another user")
	ErrSessionNotReady   = errors.New("exam session is still loading")
	ErrSessionLoadFailed = errors.New("exam session failed to load questions")
	ErrSessionReadOnly   = errors.New("exam session is read-only")
	ErrUnknownQuestion   = errors.New("question does not belong to this session")
	ErrAlreadySubmitted  = errors.New("exam session already submitted")
	ErrSubmitInFlight    = errors.New("a submission is already in flight")
	ErrSubmitFailed      = errors.New("persisting exam result failed")
)

// User identifies the session owner as carried in the verified token.
type User struct {
	UID    string
	Name   string
	Avatar string
}

// QuestionSource populates a session with questions. Never fails; degraded
// output (fallback bank) is acceptable, an empty list is not.
type QuestionSource interface {
	GenerateOrFallback(ctx context.Context, topic string, count int) []model.Question
}

// PerformanceAnalyzer grades a finished answer set. Never fails.
type PerformanceAnalyzer interface {
	AnalyzeOrDegrade(ctx context.Context, answers model.AnswerMap, questions []model.Question) Analysis
}

// ResultGateway persists a finished attempt and its leaderboard entry.
type ResultGateway interface {
	SaveResult(ctx context.Context, result *model.ExamResult, entry *model.LeaderboardEntry) (uuid.UUID, error)
}

// ExamSession is one in-memory exam attempt. All fields are guarded by mu
// except the submit latch, which serializes the timer-vs-user submit race.
type ExamSession struct {
	mu sync.Mutex

	id        uuid.UUID
	user      User
	topic     string
	count     int
	status    model.SessionStatus
	questions []model.Question
	current   int
	answers   model.AnswerMap
	flagged   map[int]struct{}
	startedAt time.Time
	deadline  time.Time
	endedAt   time.Time
	resultID  *uuid.UUID

	// submitLatch is set synchronously before any asynchronous submission
	// work starts, so the countdown timer and a user click can never both
	// enter SUBMITTING.
	submitLatch atomic.Bool

	// timer fires the automatic submission at the deadline. Stored so every
	// exit path (submit entry, teardown, janitor) can cancel it.
	timer *time.Timer

	// cancelLoad aborts an outstanding question-generation call when the
	// session is torn down while still LOADING.
	cancelLoad context.CancelFunc
}

// SessionService owns all in-memory exam sessions and drives their
// lifecycle: LOADING → READY → (ANSWERING ⇄ REVIEWING) → SUBMITTING →
// SUBMITTED, with LOAD_FAILED terminal out of LOADING.
type SessionService struct {
	generator QuestionSource
	analyzer  PerformanceAnalyzer
	gateway   ResultGateway
	log       zerolog.Logger

	duration     time.Duration
	defaultCount int
	maxCount     int

	mu       sync.RWMutex
	sessions map[uuid.UUID]*ExamSession
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	generator QuestionSource,
	analyzer PerformanceAnalyzer,
	gateway ResultGateway,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		generator:    generator,
		analyzer:     analyzer,
		gateway:      gateway,
		log:          log.With().Str("component", "session_service").Logger(),
		duration:     cfg.ExamDuration,
		defaultCount: cfg.QuestionCount,
		maxCount:     cfg.MaxQuestionCount,
		sessions:     make(map[uuid.UUID]*ExamSession),
	}
}

// Start creates a new LOADING session and kicks off asynchronous question
// generation. The returned view reflects the LOADING state.
func (s *SessionService) Start(user User, topic string, count int) *model.SessionView {
	if count <= 0 {
		count = s.defaultCount
	}
	if count > s.maxCount {
		count = s.maxCount
	}

	loadCtx, cancel := context.WithCancel(context.Background())
	sess := &ExamSession{
		id:         uuid.New(),
		user:       user,
		topic:      topic,
		count:      count,
		status:     model.SessionStatusLoading,
		answers:    make(model.AnswerMap),
		flagged:    make(map[int]struct{}),
		startedAt:  time.Now(),
		cancelLoad: cancel,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	go s.load(loadCtx, sess)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.viewLocked(sess)
}

// load resolves the question source and transitions LOADING → READY or
// LOAD_FAILED. Runs outside any lock; the adapter call may take a while.
func (s *SessionService) load(ctx context.Context, sess *ExamSession) {
	questions := s.generator.GenerateOrFallback(ctx, sess.topic, sess.count)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != model.SessionStatusLoading {
		return // Torn down while loading.
	}
	if ctx.Err() != nil {
		return
	}
	sess.cancelLoad = nil

	if len(questions) == 0 {
		sess.status = model.SessionStatusLoadFailed
		sess.endedAt = time.Now()
		s.log.Error().Str("session_id", sess.id.String()).Str("topic", sess.topic).
			Msg("Question loading produced an empty list")
		return
	}

	sess.questions = questions
	sess.status = model.SessionStatusReady
	sess.deadline = time.Now().Add(s.duration)
	sess.timer = time.AfterFunc(s.duration, func() { s.autoSubmit(sess.id) })

	s.log.Info().Str("session_id", sess.id.String()).Str("topic", sess.topic).
		Int("questions", len(questions)).Msg("Session ready")
}

// Get returns a snapshot of the session state.
func (s *SessionService) Get(id uuid.UUID, user User) (*model.SessionView, error) {
	sess, err := s.owned(id, user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.viewLocked(sess), nil
}

// SelectAnswer stores an option choice, overwriting any prior selection for
// that question id.
func (s *SessionService) SelectAnswer(id uuid.UUID, user User, questionID, selected int) (*model.SessionView, error) {
	return s.mutate(id, user, func(sess *ExamSession) error {
		if !sess.hasQuestion(questionID) {
			return ErrUnknownQuestion
		}
		if selected < 0 || selected >= model.OptionCount {
			return ErrUnknownQuestion
		}
		sess.answers[questionID] = selected
		return nil
	})
}

// ToggleFlag inserts or removes the question id from the review flag set.
// Toggling twice restores the original state.
func (s *SessionService) ToggleFlag(id uuid.UUID, user User, questionID int) (*model.SessionView, error) {
	return s.mutate(id, user, func(sess *ExamSession) error {
		if !sess.hasQuestion(questionID) {
			return ErrUnknownQuestion
		}
		if _, ok := sess.flagged[questionID]; ok {
			delete(sess.flagged, questionID)
		} else {
			sess.flagged[questionID] = struct{}{}
		}
		return nil
	})
}

// Navigate moves the current position: absolute indexes are clamped to
// [0, len-1]; relative moves are ignored at the edges.
func (s *SessionService) Navigate(id uuid.UUID, user User, index *int, move string) (*model.SessionView, error) {
	return s.mutate(id, user, func(sess *ExamSession) error {
		switch {
		case index != nil:
			i := *index
			if i < 0 {
				i = 0
			}
			if i > len(sess.questions)-1 {
				i = len(sess.questions) - 1
			}
			sess.current = i
		case move == "next":
			if sess.current < len(sess.questions)-1 {
				sess.current++
			}
		case move == "prev":
			if sess.current > 0 {
				sess.current--
			}
		}
		return nil
	})
}

// ToggleReview flips between ANSWERING and REVIEWING. Both modes accept the
// same mutations; the distinction is advisory, like the flag set.
func (s *SessionService) ToggleReview(id uuid.UUID, user User) (*model.SessionView, error) {
	sess, err := s.owned(id, user)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := mutableLocked(sess); err != nil {
		return nil, err
	}
	if sess.status == model.SessionStatusReviewing {
		sess.status = model.SessionStatusAnswering
	} else {
		sess.status = model.SessionStatusReviewing
	}
	return s.viewLocked(sess), nil
}

// Submit drives SUBMITTING → SUBMITTED exactly once per session. Both the
// countdown timer and user requests land here; the latch admits one caller.
// On persistence failure the session drops back to ANSWERING with the latch
// cleared so the user can retry manually.
func (s *SessionService) Submit(ctx context.Context, id uuid.UUID, user User) (uuid.UUID, error) {
	sess, err := s.owned(id, user)
	if err != nil {
		return uuid.Nil, err
	}

	sess.mu.Lock()
	switch sess.status {
	case model.SessionStatusSubmitted:
		rid := *sess.resultID
		sess.mu.Unlock()
		return rid, ErrAlreadySubmitted
	case model.SessionStatusLoading:
		sess.mu.Unlock()
		return uuid.Nil, ErrSessionNotReady
	case model.SessionStatusLoadFailed:
		sess.mu.Unlock()
		return uuid.Nil, ErrSessionLoadFailed
	}

	if !sess.submitLatch.CompareAndSwap(false, true) {
		sess.mu.Unlock()
		return uuid.Nil, ErrSubmitInFlight
	}

	sess.status = model.SessionStatusSubmitting
	if sess.timer != nil {
		sess.timer.Stop()
	}

	// Snapshot under the lock; the adapter and gateway calls run without it.
	questions := make([]model.Question, len(sess.questions))
	copy(questions, sess.questions)
	answers := make(model.AnswerMap, len(sess.answers))
	for k, v := range sess.answers {
		answers[k] = v
	}
	topic := sess.topic
	owner := sess.user
	sess.mu.Unlock()

	analysis := s.analyzer.AnalyzeOrDegrade(ctx, answers, questions)
	correct, score := Grade(answers, questions)

	graded := make([]model.GradedQuestion, len(questions))
	for i, q := range questions {
		gq := model.GradedQuestion{Question: q}
		if selected, ok := answers[q.ID]; ok {
			sel := selected
			gq.SelectedAnswer = &sel
		}
		graded[i] = gq
	}

	result := &model.ExamResult{
		UserID:         owner.UID,
		Topic:          topic,
		Score:          score,
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
		AIFeedback:     analysis.Feedback,
		WeakAreas:      analysis.WeakAreas,
		Questions:      graded,
	}
	entry := &model.LeaderboardEntry{
		UserID: owner.UID,
		Name:   owner.Name,
		Avatar: owner.Avatar,
		Score:  score,
		Topic:  topic,
	}

	resultID, err := s.gateway.SaveResult(ctx, result, entry)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		// Back to ANSWERING with the guard cleared; re-arm the countdown if
		// time remains, otherwise leave resubmission to the user.
		sess.status = model.SessionStatusAnswering
		sess.submitLatch.Store(false)
		if remaining := time.Until(sess.deadline); remaining > 0 {
			sess.timer = time.AfterFunc(remaining, func() { s.autoSubmit(sess.id) })
		}
		s.log.Error().Err(err).Str("session_id", sess.id.String()).Msg("Result persistence failed")
		return uuid.Nil, errors.Join(ErrSubmitFailed, err)
	}

	sess.status = model.SessionStatusSubmitted
	sess.resultID = &resultID
	sess.endedAt = time.Now()
	s.log.Info().Str("session_id", sess.id.String()).Str("result_id", resultID.String()).
		Float64("score", score).Msg("Session submitted")
	return resultID, nil
}

// autoSubmit is the countdown-expiry trigger. Losing the latch race against a
// user-initiated submission is expected and harmless.
func (s *SessionService) autoSubmit(id uuid.UUID) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := s.Submit(ctx, id, sess.user)
	if err != nil && !errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrAlreadySubmitted) {
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Automatic submission failed")
	}
}

// Teardown cancels outstanding work and discards the session.
func (s *SessionService) Teardown(id uuid.UUID, user User) error {
	sess, err := s.owned(id, user)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.cancelLoad != nil {
		sess.cancelLoad()
		sess.cancelLoad = nil
	}
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	if !sess.status.Terminal() {
		sess.status = model.SessionStatusLoadFailed
		sess.endedAt = time.Now()
	}
	sess.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// SweepExpired drops terminal sessions past the retention window and
// abandoned sessions long past their deadline. Returns the pruned count.
func (s *SessionService) SweepExpired(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		stale := false
		if sess.status.Terminal() {
			stale = now.Sub(sess.endedAt) > retention
		} else if !sess.deadline.IsZero() {
			stale = now.Sub(sess.deadline) > retention
		} else {
			stale = now.Sub(sess.startedAt) > s.duration+retention
		}
		if stale {
			if sess.cancelLoad != nil {
				sess.cancelLoad()
			}
			if sess.timer != nil {
				sess.timer.Stop()
			}
		}
		sess.mu.Unlock()

		if stale {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Count returns the number of live sessions, for worker logging.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ─── Internal helpers ───────────────────────────────────────────────────────

func (s *SessionService) owned(id uuid.UUID, user User) (*ExamSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.user.UID != user.UID {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// mutate runs fn on a mutable session and moves READY → ANSWERING on the
// first interaction.
func (s *SessionService) mutate(id uuid.UUID, user User, fn func(*ExamSession) error) (*model.SessionView, error) {
	sess, err := s.owned(id, user)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := mutableLocked(sess); err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if sess.status == model.SessionStatusReady {
		sess.status = model.SessionStatusAnswering
	}
	return s.viewLocked(sess), nil
}

func mutableLocked(sess *ExamSession) error {
	switch sess.status {
	case model.SessionStatusLoading:
		return ErrSessionNotReady
	case model.SessionStatusLoadFailed:
		return ErrSessionLoadFailed
	case model.SessionStatusSubmitting, model.SessionStatusSubmitted:
		return ErrSessionReadOnly
	}
	return nil
}

func (sess *ExamSession) hasQuestion(questionID int) bool {
	for _, q := range sess.questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

func (s *SessionService) viewLocked(sess *ExamSession) *model.SessionView {
	view := &model.SessionView{
		ID:           sess.id,
		Topic:        sess.topic,
		Status:       sess.status,
		CurrentIndex: sess.current,
		Answers:      make(model.AnswerMap, len(sess.answers)),
		Flagged:      make([]int, 0, len(sess.flagged)),
		ResultID:     sess.resultID,
		StartedAt:    sess.startedAt,
	}
	for k, v := range sess.answers {
		view.Answers[k] = v
	}
	for qid := range sess.flagged {
		view.Flagged = append(view.Flagged, qid)
	}
	sort.Ints(view.Flagged)

	if len(sess.questions) > 0 {
		view.Questions = make([]model.SessionQuestion, len(sess.questions))
		for i, q := range sess.questions {
			view.Questions[i] = model.SessionQuestion{ID: q.ID, Text: q.Text, Options: q.Options}
		}
	}

	switch sess.status {
	case model.SessionStatusLoading:
		view.TimeLeft = int(s.duration.Seconds())
	case model.SessionStatusSubmitted, model.SessionStatusLoadFailed:
		view.TimeLeft = 0
	default:
		if remaining := time.Until(sess.deadline); remaining > 0 {
			view.TimeLeft = int(remaining.Seconds())
		}
	}
	return view
}
