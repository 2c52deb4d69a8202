package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"quizroom/internal/domain"
	"quizroom/internal/joincode"
)

// SessionRepository abstracts where quiz sessions are registered (in-memory, Redis-backed, etc).
type SessionRepository interface {
	// Add registers the session under its code. It reports false when the
	// code is already taken, leaving the registry unchanged.
	Add(ctx context.Context, session *Session) bool
	Get(ctx context.Context, code string) (*Session, bool)
}

// JoinOutcome labels a join attempt for observability.
type JoinOutcome string

const (
	JoinAdmitted   JoinOutcome = "admitted"
	JoinDenied     JoinOutcome = "denied"
	JoinRestricted JoinOutcome = "restricted"
	JoinInvalid    JoinOutcome = "invalid"
)

// Recorder receives domain events (metrics, audit).
type Recorder interface {
	QuizCreated()
	JoinAttempt(outcome JoinOutcome)
	AnswerRecorded(correct bool)
}

type nopRecorder struct{}

func (nopRecorder) QuizCreated()            {}
func (nopRecorder) JoinAttempt(JoinOutcome) {}
func (nopRecorder) AnswerRecorded(bool)     {}

// QuizService contains the quiz use cases: it acts as the registry for join
// codes and dispatches per-quiz operations to the owning Session.
type QuizService struct {
	sessions SessionRepository
	recorder Recorder
	newCode  func() string
	now      func() time.Time
	sf       singleflight.Group
}

type ServiceOption func(*QuizService)

// WithCodeGenerator replaces the random generator used for quiz codes and participant ids.
func WithCodeGenerator(gen func() string) ServiceOption {
	return func(s *QuizService) { s.newCode = gen }
}

func WithRecorder(r Recorder) ServiceOption {
	return func(s *QuizService) { s.recorder = r }
}

// WithClock replaces the clock used for creation, join and scoreboard timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(store SessionRepository, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions: store,
		recorder: nopRecorder{},
		newCode:  joincode.Generate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates the draft, registers it under a fresh code and returns the code.
func (s *QuizService) CreateQuiz(ctx context.Context, draft domain.QuizDraft) (string, error) {
	normalized, err := draft.Normalize()
	if err != nil {
		return "", err
	}

	session, err := s.registerWithUniqueCode(ctx, normalized)
	if err != nil {
		return "", err
	}
	s.recorder.QuizCreated()
	return session.Code(), nil
}

// registerWithUniqueCode draws codes until the repository accepts one. The
// repository's Add is the uniqueness check, so check and insert are atomic.
func (s *QuizService) registerWithUniqueCode(ctx context.Context, draft domain.QuizDraft) (*Session, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		session := newSessionWithClock(s.newCode(), draft, s.newCode, s.now)
		if s.sessions.Add(ctx, session) {
			return session, nil
		}
	}
	return nil, fmt.Errorf("register quiz: %w", errCodeSpaceExhausted)
}

// GetQuiz looks a quiz up by code. Input is normalized to upper case first.
func (s *QuizService) GetQuiz(ctx context.Context, code string) (domain.QuizSummary, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return session.Summary(), nil
}

// Join admits a participant after access control and returns the participant id.
func (s *QuizService) Join(ctx context.Context, code, name, ip string) (string, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return "", err
	}

	id, err := session.join(name, ip)
	s.recorder.JoinAttempt(joinOutcome(err))
	if err != nil {
		return "", err
	}
	return id, nil
}

func joinOutcome(err error) JoinOutcome {
	switch {
	case err == nil:
		return JoinAdmitted
	case errors.Is(err, domain.ErrAccessDenied):
		return JoinDenied
	case errors.Is(err, domain.ErrAccessRestricted):
		return JoinRestricted
	default:
		return JoinInvalid
	}
}

// CurrentQuestion returns the participant's next question, or a completed view.
func (s *QuizService) CurrentQuestion(ctx context.Context, code, participantID string) (domain.QuestionView, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return session.currentQuestion(participantID)
}

// SubmitAnswer records the selection for the participant's current question.
func (s *QuizService) SubmitAnswer(ctx context.Context, code, participantID string, selected []int) (domain.Progress, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.Progress{}, err
	}

	progress, err := session.submitAnswer(participantID, selected)
	if err != nil {
		return domain.Progress{}, err
	}
	s.recorder.AnswerRecorded(progress.Correct)
	return progress, nil
}

func (s *QuizService) Result(ctx context.Context, code, participantID string) (domain.Result, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.Result{}, err
	}
	return session.result(participantID)
}

// Scoreboard returns participants ordered by score. Concurrent requests for
// the same quiz share one computation.
func (s *QuizService) Scoreboard(ctx context.Context, code string) (domain.Scoreboard, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.Scoreboard{}, err
	}
	result, _, _ := s.sf.Do(session.Code(), func() (interface{}, error) {
		return session.scoreboard(), nil
	})
	return result.(domain.Scoreboard), nil
}

// Access returns the access lists together with every participant's address.
func (s *QuizService) Access(ctx context.Context, code string) (domain.AccessLists, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.AccessLists{}, err
	}
	return session.access(), nil
}

func (s *QuizService) AddToWhitelist(ctx context.Context, code, ip string) (domain.AccessLists, error) {
	return s.moderate(ctx, code, ip, (*Session).allow)
}

func (s *QuizService) AddToBlacklist(ctx context.Context, code, ip string) (domain.AccessLists, error) {
	return s.moderate(ctx, code, ip, (*Session).deny)
}

func (s *QuizService) RemoveFromWhitelist(ctx context.Context, code, ip string) (domain.AccessLists, error) {
	return s.moderate(ctx, code, ip, (*Session).unallow)
}

func (s *QuizService) RemoveFromBlacklist(ctx context.Context, code, ip string) (domain.AccessLists, error) {
	return s.moderate(ctx, code, ip, (*Session).undeny)
}

func (s *QuizService) moderate(ctx context.Context, code, ip string, op func(*Session, string) domain.AccessLists) (domain.AccessLists, error) {
	session, err := s.session(ctx, code)
	if err != nil {
		return domain.AccessLists{}, err
	}
	return op(session, ip), nil
}

func (s *QuizService) session(ctx context.Context, code string) (*Session, error) {
	session, ok := s.sessions.Get(ctx, joincode.Normalize(code))
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return session, nil
}
