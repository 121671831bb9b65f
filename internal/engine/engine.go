// Package engine implements the timed test-attempt state machine: question
// navigation, answer tracking, countdown with forced submission on timeout,
// scoring, and handoff of the finalized result to a persistence collaborator.
//
// The engine has no HTTP, database, or framework dependency. The host wires it
// to the outside world through the ResultSink and Clock collaborators injected
// at construction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors. All are recoverable conditions for the caller; none should be
// treated as fatal.
var (
	// ErrNoQuestions is returned by Start when the question set is empty.
	ErrNoQuestions = errors.New("no questions available for this test")
	// ErrInvalidDuration is returned by Start for a non-positive duration.
	ErrInvalidDuration = errors.New("test duration must be positive")
	// ErrInvalidAnswer is returned by SelectAnswer for an unknown question ID
	// or an option index outside the question's option range.
	ErrInvalidAnswer = errors.New("invalid answer selection")
	// ErrInvalidNavigation is returned by Navigate for an out-of-range index.
	ErrInvalidNavigation = errors.New("invalid navigation target")
	// ErrAlreadySubmitted is returned when a mutating operation is attempted
	// on a session that has already left the active state.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrSubmitInFlight is returned by Submit while another submit's sink
	// handoff has not returned yet. The sink is not invoked; retrying is
	// valid only after the in-flight call has failed.
	ErrSubmitInFlight = errors.New("submit handoff in flight")
	// ErrAbandoned is returned when an operation is attempted on a session
	// that was abandoned before submission.
	ErrAbandoned = errors.New("session abandoned")
)

// Question is a single test question, immutable once a session starts.
type Question struct {
	ID            string
	Text          string
	Options       []string
	CorrectOption int
	Explanation   string
}

// Result is the finalized record of one attempt, produced exactly once per
// session at submit time. Answers is a snapshot of the session's answer map;
// unanswered questions are simply absent from it.
type Result struct {
	TestID         string
	Score          int
	TotalQuestions int
	Accuracy       float64
	Answers        map[string]int
	SubmittedAt    time.Time
}

// ResultSink durably records a finalized attempt result. The engine calls it
// at most once per session as long as the call succeeds; on failure the
// session stays in StatusSubmitting and Submit may be retried, in which case
// the same result is handed over again without being recomputed.
type ResultSink interface {
	Record(ctx context.Context, sessionID string, res *Result) error
}

// Clock supplies one tick per elapsed second while a session is active. The
// engine assumes no precision beyond a drift of a few seconds over a typical
// test duration.
type Clock interface {
	Ticks() <-chan time.Time
	Stop()
}

type wallClock struct{ t *time.Ticker }

func (c *wallClock) Ticks() <-chan time.Time { return c.t.C }
func (c *wallClock) Stop()                   { c.t.Stop() }

// AutoSubmitFunc is notified after the countdown forces a submission. The
// result is nil when the sink handoff failed; err carries the failure.
type AutoSubmitFunc func(sessionID string, res *Result, err error)

// Option configures an Engine.
type Option func(*Engine)

// WithClockFactory overrides the per-session tick source. Tests use this to
// drive simulated seconds.
func WithClockFactory(f func() Clock) Option {
	return func(e *Engine) { e.newClock = f }
}

// WithAutoSubmit registers a callback invoked after timeout-forced submission.
func WithAutoSubmit(fn AutoSubmitFunc) Option {
	return func(e *Engine) { e.onAutoSubmit = fn }
}

// Engine creates sessions bound to a shared result sink. The zero value is
// not usable; construct with New.
type Engine struct {
	sink         ResultSink
	newClock     func() Clock
	onAutoSubmit AutoSubmitFunc
}

// New creates an Engine that hands finalized results to sink.
func New(sink ResultSink, opts ...Option) *Engine {
	e := &Engine{
		sink: sink,
		newClock: func() Clock {
			return &wallClock{t: time.NewTicker(time.Second)}
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates an active session for the given ordered question list and
// arms its countdown. The question order is preserved for the session's
// lifetime; it determines palette numbering and review order. sessionID is an
// opaque identifier chosen by the caller and passed through to the sink.
func (e *Engine) Start(sessionID, testID, title string, questions []Question, durationMinutes int) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	// Copy the question list so later mutation by the caller cannot reach
	// the session.
	qs := make([]Question, len(questions))
	copy(qs, questions)

	s := &Session{
		id:        sessionID,
		testID:    testID,
		title:     title,
		questions: qs,
		answers:   make(map[string]int),
		remaining: durationMinutes * 60,
		status:    StatusActive,
		sink:      e.sink,
		onAuto:    e.onAutoSubmit,
		clock:     e.newClock(),
		done:      make(chan struct{}),
	}

	go s.run()
	return s, nil
}

// Resume rehosts a session that was previously started elsewhere, seeding it
// with the answers recorded so far and the countdown already partially
// elapsed. remainingSeconds may be zero, in which case the caller is expected
// to submit immediately; negative values are clamped to zero.
func (e *Engine) Resume(sessionID, testID, title string, questions []Question, answers map[string]int, currentIndex, remainingSeconds int) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	if currentIndex < 0 || currentIndex >= len(questions) {
		currentIndex = 0
	}

	qs := make([]Question, len(questions))
	copy(qs, questions)

	seeded := make(map[string]int, len(answers))
	for qid, sel := range answers {
		for i := range qs {
			if qs[i].ID == qid && sel >= 0 && sel < len(qs[i].Options) {
				seeded[qid] = sel
				break
			}
		}
	}

	s := &Session{
		id:        sessionID,
		testID:    testID,
		title:     title,
		questions: qs,
		answers:   seeded,
		current:   currentIndex,
		remaining: remainingSeconds,
		status:    StatusActive,
		sink:      e.sink,
		onAuto:    e.onAutoSubmit,
		clock:     e.newClock(),
		done:      make(chan struct{}),
	}

	go s.run()
	return s, nil
}

// recordResult is shared by manual and timeout-forced submission so both
// paths behave identically.
func recordResult(ctx context.Context, sink ResultSink, sessionID string, res *Result) error {
	if err := sink.Record(ctx, sessionID, res); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}
