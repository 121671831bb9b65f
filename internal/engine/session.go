package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status enumerates session states.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusSubmitting Status = "SUBMITTING"
	StatusFinished   Status = "FINISHED"
	StatusAbandoned  Status = "ABANDONED"
)

// Session is one student's single timed attempt at a test. The countdown tick
// arrives on a separate goroutine, so all state is guarded by a mutex; the
// exported methods are safe for concurrent use.
type Session struct {
	id     string
	testID string
	title  string

	// questions is fixed for the session's lifetime; order is significant.
	questions []Question

	sink   ResultSink
	onAuto AutoSubmitFunc
	clock  Clock

	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	answers   map[string]int
	current   int
	remaining int
	status    Status
	result    *Result

	// inFlight is true while a handoff is inside the sink. It keeps a
	// concurrent Submit from invoking the sink a second time.
	inFlight bool
}

// ID returns the caller-chosen session identifier.
func (s *Session) ID() string { return s.id }

// TestID returns the identifier of the test this session instantiates.
func (s *Session) TestID() string { return s.testID }

// Title returns the test title.
func (s *Session) Title() string { return s.title }

// Questions returns the session's ordered question list. Callers must not
// modify the returned slice.
func (s *Session) Questions() []Question { return s.questions }

// Status returns the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// CurrentIndex returns the navigation pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Answers returns a snapshot copy of the answer map. A question absent from
// the map is unanswered.
func (s *Session) Answers() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

// SelectAnswer records optionIndex as the student's answer for questionID.
// Re-selecting the same question overwrites the prior choice (last write
// wins). The navigation pointer and countdown are unaffected.
func (s *Session) SelectAnswer(questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusActive:
	case StatusAbandoned:
		return ErrAbandoned
	default:
		return ErrAlreadySubmitted
	}

	q := s.findQuestion(questionID)
	if q == nil || optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrInvalidAnswer
	}

	s.answers[questionID] = optionIndex
	return nil
}

// Navigate moves the navigation pointer to targetIndex. Navigation is
// unrestricted: any question may be revisited any number of times before
// submission.
func (s *Session) Navigate(targetIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusActive:
	case StatusAbandoned:
		return ErrAbandoned
	default:
		return ErrAlreadySubmitted
	}

	if targetIndex < 0 || targetIndex >= len(s.questions) {
		return ErrInvalidNavigation
	}

	s.current = targetIndex
	return nil
}

// Submit finalizes the session: stops the countdown, computes the score, and
// hands the result to the sink. Missing answers count as incorrect, never as
// an error.
//
// If the sink fails the session stays in StatusSubmitting and Submit may be
// called again; the already-computed result is re-handed to the sink without
// recomputation. A Submit arriving while a handoff is still inside the sink
// returns ErrSubmitInFlight without touching the sink. Once finished, further
// calls return the previous result together with ErrAlreadySubmitted and the
// sink is not invoked again.
func (s *Session) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()

	switch s.status {
	case StatusFinished:
		res := s.result
		s.mu.Unlock()
		return res, ErrAlreadySubmitted
	case StatusAbandoned:
		s.mu.Unlock()
		return nil, ErrAbandoned
	case StatusSubmitting:
		if s.inFlight {
			s.mu.Unlock()
			return nil, ErrSubmitInFlight
		}
		// Retry after a failed handoff: reuse the computed result.
		s.inFlight = true
		res := s.result
		s.mu.Unlock()
		return s.handoff(ctx, res)
	}

	s.status = StatusSubmitting
	s.inFlight = true
	s.result = s.scoreLocked()
	res := s.result
	s.mu.Unlock()

	s.stop()
	return s.handoff(ctx, res)
}

// Abandon terminates an active session without producing a result. The
// countdown stops and the session reaches a terminal state; answers recorded
// so far are discarded by the engine (the host may have mirrored them).
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusActive:
		s.status = StatusAbandoned
	case StatusAbandoned:
		return nil
	default:
		return ErrAlreadySubmitted
	}

	s.stop()
	return nil
}

// Result returns the finalized result, or nil if the session has not been
// scored yet.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) handoff(ctx context.Context, res *Result) (*Result, error) {
	err := recordResult(ctx, s.sink, s.id, res)
	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.status = StatusFinished
	s.mu.Unlock()
	return res, nil
}

// scoreLocked computes the result in a single pass over the question list.
// Uniform one point per question, no partial credit, no negative marking.
// Callers must hold s.mu.
func (s *Session) scoreLocked() *Result {
	score := 0
	for i := range s.questions {
		q := &s.questions[i]
		if sel, ok := s.answers[q.ID]; ok && sel == q.CorrectOption {
			score++
		}
	}

	total := len(s.questions)
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(score) / float64(total) * 100
	}

	return &Result{
		TestID:         s.testID,
		Score:          score,
		TotalQuestions: total,
		Accuracy:       accuracy,
		Answers:        copyAnswers(s.answers),
		SubmittedAt:    time.Now(),
	}
}

func (s *Session) findQuestion(id string) *Question {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return &s.questions[i]
		}
	}
	return nil
}

// run consumes countdown ticks until the session leaves the active state.
func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.clock.Ticks():
			if s.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown by one second and forces submission when it
// reaches zero. Returns true when the loop should exit. If a manual submit is
// already in flight the timer-triggered call is a no-op: manual submit wins.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return true
	}

	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return false
	}
	s.remaining = 0
	s.mu.Unlock()

	res, err := s.Submit(context.Background())
	if errors.Is(err, ErrSubmitInFlight) {
		// A manual submit slipped in between the countdown reaching zero and
		// this call. Manual submit wins; its caller reports the result.
		return true
	}
	if s.onAuto != nil {
		s.onAuto(s.id, res, err)
	}
	return true
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.clock.Stop()
	})
}

func copyAnswers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
