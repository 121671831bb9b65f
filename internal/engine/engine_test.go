package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// fakeClock is a hand-driven tick source for simulated seconds.
type fakeClock struct {
	ch      chan time.Time
	stopped bool
	mu      sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{ch: make(chan time.Time)}
}

func (c *fakeClock) Ticks() <-chan time.Time { return c.ch }

func (c *fakeClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// advance delivers n simulated seconds, stopping early once the session
// consumes no more ticks.
func (c *fakeClock) advance(n int) {
	for i := 0; i < n; i++ {
		select {
		case c.ch <- time.Now():
		case <-time.After(200 * time.Millisecond):
			return
		}
	}
}

// memorySink records handoffs in memory and can be told to fail.
type memorySink struct {
	mu       sync.Mutex
	records  int
	lastID   string
	last     *Result
	failNext bool
	done     chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{done: make(chan struct{}, 8)}
}

func (m *memorySink) Record(_ context.Context, sessionID string, res *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("sink unavailable")
	}
	m.records++
	m.lastID = sessionID
	m.last = res
	select {
	case m.done <- struct{}{}:
	default:
	}
	return nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records
}

// blockingSink parks inside Record until released, simulating a slow store.
type blockingSink struct {
	mu      sync.Mutex
	records int
	entered chan struct{}
	release chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{entered: make(chan struct{}, 2), release: make(chan struct{})}
}

func (b *blockingSink) Record(_ context.Context, _ string, _ *Result) error {
	b.entered <- struct{}{}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records++
	return nil
}

func (b *blockingSink) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.records
}

func questionSet(correct ...int) []Question {
	qs := make([]Question, len(correct))
	for i, c := range correct {
		qs[i] = Question{
			ID:            "q" + string(rune('1'+i)),
			Text:          "question",
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: c,
		}
	}
	return qs
}

func startSession(t *testing.T, sink ResultSink, questions []Question, minutes int, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append(opts, WithClockFactory(func() Clock { return clock }))
	e := New(sink, opts...)
	s, err := e.Start("att-1", "test-1", "Mock Test", questions, minutes)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, clock
}

// waitFor polls cond until it holds or the deadline passes. Tick delivery is
// asynchronous, so assertions that follow advance() need a small grace
// period.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartRejectsEmptyQuestionSet(t *testing.T) {
	e := New(newMemorySink())
	if _, err := e.Start("att-1", "test-1", "Empty", nil, 30); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("want ErrNoQuestions, got %v", err)
	}
	if _, err := e.Start("att-1", "test-1", "Empty", []Question{}, 30); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("want ErrNoQuestions for empty slice, got %v", err)
	}
}

func TestStartRejectsNonPositiveDuration(t *testing.T) {
	e := New(newMemorySink())
	if _, err := e.Start("att-1", "test-1", "Bad", questionSet(0), 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("want ErrInvalidDuration, got %v", err)
	}
}

func TestStartInitialState(t *testing.T) {
	s, _ := startSession(t, newMemorySink(), questionSet(0, 1, 2), 2)
	defer s.Abandon()

	if got := s.Status(); got != StatusActive {
		t.Errorf("status = %s, want ACTIVE", got)
	}
	if got := s.Remaining(); got != 120 {
		t.Errorf("remaining = %d, want 120", got)
	}
	if got := s.CurrentIndex(); got != 0 {
		t.Errorf("currentIndex = %d, want 0", got)
	}
	if got := len(s.Answers()); got != 0 {
		t.Errorf("answers = %d entries, want 0", got)
	}
}

func TestScoring(t *testing.T) {
	// Five questions with correct indices 1,1,2,0,1; the student gets q1 and
	// q3 wrong.
	sink := newMemorySink()
	s, _ := startSession(t, sink, questionSet(1, 1, 2, 0, 1), 30)

	answers := map[string]int{"q1": 2, "q2": 1, "q3": 1, "q4": 0, "q5": 1}
	for qid, sel := range answers {
		if err := s.SelectAnswer(qid, sel); err != nil {
			t.Fatalf("SelectAnswer(%s, %d): %v", qid, sel, err)
		}
	}

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 3 {
		t.Errorf("score = %d, want 3", res.Score)
	}
	if res.TotalQuestions != 5 {
		t.Errorf("totalQuestions = %d, want 5", res.TotalQuestions)
	}
	if res.Accuracy != 60 {
		t.Errorf("accuracy = %v, want 60", res.Accuracy)
	}
	if got := s.Status(); got != StatusFinished {
		t.Errorf("status = %s, want FINISHED", got)
	}
}

func TestUnansweredQuestionsCountAsWrong(t *testing.T) {
	sink := newMemorySink()
	s, _ := startSession(t, sink, questionSet(0, 1, 2), 30)

	if err := s.SelectAnswer("q1", 0); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 1 || res.TotalQuestions != 3 {
		t.Errorf("score = %d/%d, want 1/3", res.Score, res.TotalQuestions)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	sink := newMemorySink()
	s, _ := startSession(t, sink, questionSet(0, 1), 30)
	_ = s.SelectAnswer("q1", 0)

	first, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second, err := s.Submit(context.Background())
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second Submit err = %v, want ErrAlreadySubmitted", err)
	}
	if second != first {
		t.Errorf("second Submit returned a different result")
	}
	if got := sink.count(); got != 1 {
		t.Errorf("sink handoffs = %d, want exactly 1", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	s, _ := startSession(t, newMemorySink(), questionSet(3), 30)
	defer s.Abandon()

	if err := s.SelectAnswer("q1", 1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.SelectAnswer("q1", 3); err != nil {
		t.Fatalf("SelectAnswer overwrite: %v", err)
	}
	if got := s.Answers()["q1"]; got != 3 {
		t.Errorf("answers[q1] = %d, want 3", got)
	}
}

func TestSelectAnswerValidation(t *testing.T) {
	s, _ := startSession(t, newMemorySink(), questionSet(0), 30)
	defer s.Abandon()

	if err := s.SelectAnswer("unknown", 0); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("unknown question: err = %v, want ErrInvalidAnswer", err)
	}
	if err := s.SelectAnswer("q1", 4); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("out-of-range option: err = %v, want ErrInvalidAnswer", err)
	}
	if err := s.SelectAnswer("q1", -1); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("negative option: err = %v, want ErrInvalidAnswer", err)
	}
	if got := len(s.Answers()); got != 0 {
		t.Errorf("rejected selections mutated state: %d entries", got)
	}
}

func TestNavigationIsFree(t *testing.T) {
	s, _ := startSession(t, newMemorySink(), questionSet(0, 1, 2, 3), 30)
	defer s.Abandon()

	for _, i := range []int{3, 0, 2, 2, 1} {
		if err := s.Navigate(i); err != nil {
			t.Fatalf("Navigate(%d): %v", i, err)
		}
		if got := s.CurrentIndex(); got != i {
			t.Fatalf("currentIndex = %d, want %d", got, i)
		}
	}

	// Answering stays possible on any question regardless of the pointer.
	if err := s.SelectAnswer("q1", 0); err != nil {
		t.Errorf("SelectAnswer after navigation: %v", err)
	}

	if err := s.Navigate(4); !errors.Is(err, ErrInvalidNavigation) {
		t.Errorf("Navigate(4): err = %v, want ErrInvalidNavigation", err)
	}
	if err := s.Navigate(-1); !errors.Is(err, ErrInvalidNavigation) {
		t.Errorf("Navigate(-1): err = %v, want ErrInvalidNavigation", err)
	}
}

func TestCountdownAutoSubmit(t *testing.T) {
	sink := newMemorySink()
	autoDone := make(chan *Result, 1)
	s, clock := startSession(t, sink, questionSet(0, 1), 1,
		WithAutoSubmit(func(_ string, res *Result, err error) {
			if err != nil {
				t.Errorf("auto-submit error: %v", err)
			}
			autoDone <- res
		}))

	_ = s.SelectAnswer("q1", 0)

	clock.advance(60)

	var res *Result
	select {
	case res = <-autoDone:
	case <-time.After(time.Second):
		t.Fatal("auto-submit did not fire after 60 simulated seconds")
	}

	if got := s.Status(); got != StatusFinished {
		t.Errorf("status = %s, want FINISHED", got)
	}
	if s.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", s.Remaining())
	}
	if res.Score != 1 || res.TotalQuestions != 2 {
		t.Errorf("score = %d/%d, want 1/2", res.Score, res.TotalQuestions)
	}
	if got := sink.count(); got != 1 {
		t.Errorf("sink handoffs = %d, want 1", got)
	}

	// The timer self-loop must not resurrect the session: further ticks are
	// ignored and mutation is rejected.
	clock.advance(3)
	if err := s.SelectAnswer("q2", 1); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("SelectAnswer after timeout: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestManualSubmitWinsOverTimer(t *testing.T) {
	sink := newMemorySink()
	s, clock := startSession(t, sink, questionSet(0), 1)

	clock.advance(59)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The next tick finds the session non-active and must be a no-op.
	clock.advance(2)

	if got := sink.count(); got != 1 {
		t.Errorf("sink handoffs = %d, want 1", got)
	}
}

func TestSubmitRetryAfterSinkFailure(t *testing.T) {
	sink := newMemorySink()
	sink.failNext = true
	s, _ := startSession(t, sink, questionSet(0), 30)
	_ = s.SelectAnswer("q1", 0)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("Submit succeeded despite sink failure")
	}
	if got := s.Status(); got != StatusSubmitting {
		t.Fatalf("status after failed handoff = %s, want SUBMITTING", got)
	}

	// Answers survive the failure; the retry re-hands the same result.
	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if res.Score != 1 {
		t.Errorf("score = %d, want 1", res.Score)
	}
	if got := s.Status(); got != StatusFinished {
		t.Errorf("status = %s, want FINISHED", got)
	}
	if got := sink.count(); got != 1 {
		t.Errorf("successful handoffs = %d, want 1", got)
	}
}

func TestSubmitWhileHandoffInFlightSkipsSink(t *testing.T) {
	sink := newBlockingSink()
	clock := newFakeClock()
	auto := make(chan error, 1)
	e := New(sink,
		WithClockFactory(func() Clock { return clock }),
		WithAutoSubmit(func(_ string, _ *Result, err error) { auto <- err }),
	)
	s, err := e.Resume("att-1", "test-1", "Mock Test", questionSet(0, 1), map[string]int{"q1": 0}, 0, 1)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	// Drive the countdown to zero; the timer handoff parks inside the sink.
	clock.advance(1)
	<-sink.entered

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("concurrent Submit: want ErrSubmitInFlight, got %v", err)
	}

	close(sink.release)
	if err := <-auto; err != nil {
		t.Fatalf("auto submit handoff: %v", err)
	}

	if got := sink.count(); got != 1 {
		t.Errorf("sink invoked %d times, want 1", got)
	}

	res, err := s.Submit(context.Background())
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("replay: want ErrAlreadySubmitted, got %v", err)
	}
	if res == nil || res.Score != 1 {
		t.Errorf("replayed result = %+v, want score 1", res)
	}
	if got := sink.count(); got != 1 {
		t.Errorf("sink invoked %d times after replay, want 1", got)
	}
}

func TestAbandon(t *testing.T) {
	sink := newMemorySink()
	s, clock := startSession(t, sink, questionSet(0), 1)

	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if got := s.Status(); got != StatusAbandoned {
		t.Errorf("status = %s, want ABANDONED", got)
	}
	if err := s.Abandon(); err != nil {
		t.Errorf("Abandon is not idempotent: %v", err)
	}

	if err := s.SelectAnswer("q1", 0); !errors.Is(err, ErrAbandoned) {
		t.Errorf("SelectAnswer: err = %v, want ErrAbandoned", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrAbandoned) {
		t.Errorf("Submit: err = %v, want ErrAbandoned", err)
	}

	// The countdown is dead; no submission can be forced.
	clock.advance(61)
	if got := sink.count(); got != 0 {
		t.Errorf("sink handoffs = %d, want 0", got)
	}
}

func TestAccuracyZeroDivisionGuard(t *testing.T) {
	// A session cannot be started without questions, but scoring must still
	// guard the division for a zero-question state.
	s := &Session{answers: map[string]int{}}
	res := s.scoreLocked()
	if res.Accuracy != 0 {
		t.Errorf("accuracy = %v, want 0", res.Accuracy)
	}
	if math.IsNaN(res.Accuracy) {
		t.Error("accuracy is NaN")
	}
}

// TestFullAttempt walks the end-to-end scenario: three questions, two-minute
// duration, one correct answer, one skip, one wrong answer, manual submit
// with time still on the clock.
func TestFullAttempt(t *testing.T) {
	sink := newMemorySink()
	s, clock := startSession(t, sink, questionSet(0, 1, 2), 2)

	if err := s.SelectAnswer("q1", 0); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if err := s.Navigate(2); err != nil {
		t.Fatalf("skip to q3: %v", err)
	}
	if err := s.SelectAnswer("q3", 1); err != nil {
		t.Fatalf("answer q3: %v", err)
	}

	clock.advance(30)
	waitFor(t, func() bool { return s.Remaining() == 90 }, "remaining to reach 90")

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.Score != 1 || res.TotalQuestions != 3 {
		t.Errorf("score = %d/%d, want 1/3", res.Score, res.TotalQuestions)
	}
	if math.Abs(res.Accuracy-100.0/3) > 0.01 {
		t.Errorf("accuracy = %v, want ~33.33", res.Accuracy)
	}
	if got := len(res.Answers); got != 2 {
		t.Errorf("answer snapshot has %d entries, want 2", got)
	}
	if got := sink.count(); got != 1 {
		t.Errorf("sink handoffs = %d, want 1", got)
	}
	if sink.lastID != "att-1" {
		t.Errorf("sink session id = %q, want att-1", sink.lastID)
	}
	if got := s.Status(); got != StatusFinished {
		t.Errorf("status = %s, want FINISHED", got)
	}
}

func TestResumeSeedsStateAndKeepsCountdown(t *testing.T) {
	sink := newMemorySink()
	clock := newFakeClock()
	e := New(sink, WithClockFactory(func() Clock { return clock }))

	qs := questionSet(0, 1, 2)
	s, err := e.Resume("att-9", "test-1", "Mock Test", qs,
		map[string]int{"q1": 0, "q2": 3, "zz": 1, "q3": 9}, 2, 45)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	// Invalid seeds (unknown question, out-of-range option) are dropped.
	answers := s.Answers()
	if len(answers) != 2 || answers["q1"] != 0 || answers["q2"] != 3 {
		t.Fatalf("seeded answers = %v", answers)
	}
	if s.CurrentIndex() != 2 {
		t.Fatalf("current index = %d, want 2", s.CurrentIndex())
	}
	if s.Remaining() != 45 {
		t.Fatalf("remaining = %d, want 45", s.Remaining())
	}

	clock.advance(45)
	waitFor(t, func() bool { return s.Status() == StatusFinished }, "auto submit after resume")
	if sink.count() != 1 {
		t.Fatalf("sink records = %d, want 1", sink.count())
	}
}

func TestResumeWithExpiredCountdown(t *testing.T) {
	sink := newMemorySink()
	clock := newFakeClock()
	e := New(sink, WithClockFactory(func() Clock { return clock }))

	s, err := e.Resume("att-10", "test-1", "Mock Test", questionSet(1), map[string]int{"q1": 1}, 0, -30)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", s.Remaining())
	}

	// The rehosting caller submits immediately when nothing is left.
	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 1 {
		t.Fatalf("score = %d, want 1", res.Score)
	}
}
