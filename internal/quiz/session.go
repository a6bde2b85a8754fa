package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

var (
	ErrNoSession     = errors.New("no active quiz")
	ErrStaleQuestion = errors.New("question already answered")
	ErrBadOption     = errors.New("option out of range")
)

// Session is one user's quiz in progress.
type Session struct {
	ID        string
	UserID    int64
	Theme     domain.Theme
	Questions []Question
	Current   int
	Score     int
	StartedAt time.Time
	touched   time.Time
}

// Question returns the question waiting for an answer.
func (s *Session) Question() (Question, bool) {
	if s.Current >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Current], true
}

// AnswerResult reports how an answer went.
type AnswerResult struct {
	Correct     bool
	CorrectText string
	Score       int
	Done        bool
}

// Sessions holds at most one quiz per user. Sessions idle for longer than ttl are dropped.
type Sessions struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	byUser map[int64]*Session
}

func NewSessions(ttl time.Duration, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{ttl: ttl, now: now, byUser: make(map[int64]*Session)}
}

// Start replaces any session the user already had.
func (s *Sessions) Start(userID int64, th domain.Theme, qs []Question) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Theme:     th,
		Questions: qs,
		StartedAt: now,
		touched:   now,
	}
	s.mu.Lock()
	s.byUser[userID] = sess
	s.mu.Unlock()
	return *sess
}

// lookup must be called with mu held.
func (s *Sessions) lookup(userID int64, now time.Time) (*Session, bool) {
	sess, ok := s.byUser[userID]
	if !ok {
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.byUser, userID)
		return nil, false
	}
	return sess, true
}

func (s *Sessions) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.touched) > s.ttl
}

func (s *Sessions) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lookup(userID, s.now())
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Answer scores option for question qIndex, which must be the current one.
func (s *Sessions) Answer(userID int64, qIndex, option int) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.lookup(userID, now)
	if !ok {
		return AnswerResult{}, ErrNoSession
	}
	if qIndex != sess.Current {
		return AnswerResult{}, ErrStaleQuestion
	}
	q, ok := sess.Question()
	if !ok {
		return AnswerResult{}, ErrStaleQuestion
	}
	if option < 0 || option >= len(q.Options) {
		return AnswerResult{}, ErrBadOption
	}

	res := AnswerResult{Correct: option == q.Correct, CorrectText: q.CorrectText()}
	if res.Correct {
		sess.Score++
	}
	sess.Current++
	sess.touched = now
	res.Score = sess.Score
	res.Done = sess.Current >= len(sess.Questions)
	return res, nil
}

// Finish removes the session and returns its result.
func (s *Sessions) Finish(userID int64) (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.lookup(userID, now)
	if !ok {
		return domain.QuizResult{}, ErrNoSession
	}
	delete(s.byUser, userID)
	return domain.NewQuizResult(sess.Score, len(sess.Questions), sess.Theme, now), nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.byUser {
		if s.expired(sess, now) {
			delete(s.byUser, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions, expired or not.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Sessions) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(s.now())
		}
	}
}
