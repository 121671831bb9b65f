package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/engine"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrTestUnavailable = errors.New("test is not available for attempts")
	ErrPremiumRequired = errors.New("test requires a premium plan")
	ErrNoActiveAttempt = errors.New("no active attempt")
	ErrNotYourAttempt  = errors.New("attempt belongs to another student")
	ErrResultNotSaved  = errors.New("result could not be recorded")
)

// hostedAttempt pairs a live engine session with its owner.
type hostedAttempt struct {
	sess      *engine.Session
	studentID int
	testID    uuid.UUID
}

// AttemptService hosts live test attempts. Each running attempt is an engine
// session held in an in-memory registry keyed by attempt ID; answers are
// mirrored to Redis as they arrive so a process restart can rehost the
// attempt with the countdown continuing from where it was. Finalized results
// are handed to the result worker through a Redis queue, which is the durable
// acknowledgement point for submission.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	studentRepo *repository.StudentRepository
	testRepo    *repository.TestRepository
	tests       *TestService
	rdb         *redis.Client
	log         zerolog.Logger

	eng *engine.Engine

	mu   sync.RWMutex
	live map[uuid.UUID]*hostedAttempt
}

// NewAttemptService creates a new AttemptService and its underlying engine.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	studentRepo *repository.StudentRepository,
	testRepo *repository.TestRepository,
	tests *TestService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	s := &AttemptService{
		attemptRepo: attemptRepo,
		studentRepo: studentRepo,
		testRepo:    testRepo,
		tests:       tests,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
		live:        make(map[uuid.UUID]*hostedAttempt),
	}
	s.eng = engine.New(s, engine.WithAutoSubmit(s.afterAutoSubmit))
	return s
}

// Record implements engine.ResultSink: the finalized result is pushed onto
// the persistence queue. A successful push is the durable acknowledgement;
// the worker takes it from there.
func (s *AttemptService) Record(ctx context.Context, sessionID string, res *engine.Result) error {
	attemptID, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("bad session id: %w", err)
	}

	s.mu.RLock()
	host, ok := s.live[attemptID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("attempt %s is not hosted", sessionID)
	}

	job := model.AttemptResultJob{
		AttemptID:   sessionID,
		TestID:      res.TestID,
		StudentID:   host.studentID,
		Score:       res.Score,
		TotalQs:     res.TotalQuestions,
		Accuracy:    res.Accuracy,
		Answers:     res.Answers,
		SubmittedAt: res.SubmittedAt,
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode result job: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}
	return nil
}

// PortalTest is a published test as shown in the student portal, overlaid
// with the student's own attempt history.
type PortalTest struct {
	model.Test
	Locked    bool     `json:"locked"`
	Attempted bool     `json:"attempted"`
	BestScore *int     `json:"best_score,omitempty"`
	Running   bool     `json:"running"`
	RunningID *string  `json:"running_attempt_id,omitempty"`
	Accuracy  *float64 `json:"best_accuracy,omitempty"`
}

// Portal returns the published tests with the student's status overlaid.
func (s *AttemptService) Portal(ctx context.Context, studentID int) ([]PortalTest, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	history, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	type best struct {
		score    int
		accuracy float64
	}
	bestByTest := make(map[uuid.UUID]best, len(history))
	for _, a := range history {
		if a.Score == nil {
			continue
		}
		if b, ok := bestByTest[a.TestID]; !ok || *a.Score > b.score {
			acc := 0.0
			if a.Accuracy != nil {
				acc = *a.Accuracy
			}
			bestByTest[a.TestID] = best{score: *a.Score, accuracy: acc}
		}
	}

	premium := student.Premium(time.Now())
	portal := make([]PortalTest, 0, len(tests))
	for i := range tests {
		entry := PortalTest{
			Test:   tests[i],
			Locked: tests[i].Premium && !premium,
		}
		if b, ok := bestByTest[tests[i].ID]; ok {
			entry.Attempted = true
			score, acc := b.score, b.accuracy
			entry.BestScore = &score
			entry.Accuracy = &acc
		}
		if running, err := s.attemptRepo.GetRunning(ctx, tests[i].ID, studentID); err == nil {
			entry.Running = true
			id := running.ID.String()
			entry.RunningID = &id
		}
		portal = append(portal, entry)
	}

	return portal, nil
}

// Start begins an attempt at a published test, or resumes the student's
// running attempt for it. Starting is idempotent: hitting start twice for the
// same test rejoins the existing attempt instead of opening a second one.
func (s *AttemptService) Start(ctx context.Context, studentID int, testID uuid.UUID) (*model.Attempt, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test.Status != model.TestStatusPublished {
		return nil, ErrTestUnavailable
	}
	if test.Premium && !student.Premium(time.Now()) {
		return nil, ErrPremiumRequired
	}

	existing, err := s.attemptRepo.GetRunning(ctx, testID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check running attempt: %w", err)
	}
	if existing != nil {
		if err := s.ensureHosted(ctx, existing, test); err != nil {
			return nil, err
		}
		return existing, nil
	}

	// Load questions before creating the row. A failed cache warm must not
	// leave an IN_PROGRESS attempt whose countdown burns unattended.
	questions, err := s.loadQuestions(ctx, test)
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		TestID:    testID,
		StudentID: studentID,
		Status:    model.AttemptStatusInProgress,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	sess, err := s.eng.Start(attempt.ID.String(), testID.String(), test.Title, questions, test.DurationMinutes)
	if err != nil {
		// Roll the row back so the student is not left with a phantom
		// running attempt.
		_ = s.attemptRepo.Abandon(ctx, attempt.ID)
		return nil, err
	}
	s.host(attempt.ID, sess, studentID, testID)

	// Mirror the start time so a restarted process can recompute the
	// countdown. DB and Redis stay in sync by using the row's timestamp.
	tid := testID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(tid, studentID), attempt.StartedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.StudentActiveTestKey(studentID), attempt.ID.String(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("start time mirror failed")
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("test_id", tid).
		Int("student_id", studentID).
		Msg("Attempt started")
	return attempt, nil
}

// ensureHosted rehosts an in-progress attempt whose live session was lost to
// a restart. Answers come back from the Redis mirror and the countdown
// resumes from the persisted start time.
func (s *AttemptService) ensureHosted(ctx context.Context, attempt *model.Attempt, test *model.Test) error {
	s.mu.RLock()
	_, hosted := s.live[attempt.ID]
	s.mu.RUnlock()
	if hosted {
		return nil
	}

	questions, err := s.loadQuestions(ctx, test)
	if err != nil {
		return err
	}

	answers, err := s.mirroredAnswers(ctx, test.ID, attempt.StudentID)
	if err != nil {
		return err
	}

	remaining := int(time.Until(attempt.StartedAt.Add(time.Duration(test.DurationMinutes) * time.Minute)).Seconds())

	sess, err := s.eng.Resume(attempt.ID.String(), test.ID.String(), test.Title, questions, answers, 0, remaining)
	if err != nil {
		return err
	}
	s.host(attempt.ID, sess, attempt.StudentID, test.ID)

	if remaining <= 0 {
		// Timed out while unhosted: finalize right away.
		if _, err := sess.Submit(ctx); err != nil {
			return err
		}
		s.finish(ctx, attempt.ID)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("remaining", remaining).
		Msg("Attempt rehosted")
	return nil
}

// State returns the live state of an attempt for frontend restore. When the
// session is hosted it is authoritative; otherwise start time and answer
// mirror in Redis reconstruct the state, falling back to PostgreSQL for the
// start time on a cache miss.
func (s *AttemptService) State(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.AttemptState, error) {
	if host, err := s.hosted(attemptID, studentID); err == nil {
		sess := host.sess
		return &model.AttemptState{
			AttemptID:        attemptID,
			TestID:           host.testID,
			StudentID:        studentID,
			AnsweredSoFar:    sess.Answers(),
			CurrentIndex:     sess.CurrentIndex(),
			RemainingSeconds: sess.Remaining(),
		}, nil
	} else if errors.Is(err, ErrNotYourAttempt) {
		return nil, err
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotYourAttempt
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrNoActiveAttempt
	}

	answers, err := s.mirroredAnswers(ctx, attempt.TestID, studentID)
	if err != nil {
		return nil, err
	}

	durationStr, err := s.rdb.Get(ctx, config.CacheKey.TestDurationKey(attempt.TestID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get duration: %w", err)
	}
	durationMinutes, err := strconv.Atoi(durationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid duration in cache: %w", err)
	}

	startUnix, err := s.startTime(ctx, attempt)
	if err != nil {
		return nil, err
	}

	remaining := time.Until(time.Unix(startUnix, 0).Add(time.Duration(durationMinutes) * time.Minute))
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		AttemptID:        attemptID,
		TestID:           attempt.TestID,
		StudentID:        studentID,
		AnsweredSoFar:    answers,
		CurrentIndex:     0,
		RemainingSeconds: int(remaining.Seconds()),
	}, nil
}

// Connect verifies ownership of an in-progress attempt and rehosts its
// session when the host was lost, returning the remaining seconds. The
// WebSocket stream calls this once per connection.
func (s *AttemptService) Connect(ctx context.Context, studentID int, attemptID uuid.UUID) (int, error) {
	if host, err := s.hosted(attemptID, studentID); err == nil {
		return host.sess.Remaining(), nil
	} else if errors.Is(err, ErrNotYourAttempt) {
		return 0, err
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoActiveAttempt
		}
		return 0, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return 0, ErrNotYourAttempt
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return 0, ErrNoActiveAttempt
	}

	test, err := s.testRepo.GetByID(ctx, attempt.TestID)
	if err != nil {
		return 0, fmt.Errorf("get test: %w", err)
	}
	if err := s.ensureHosted(ctx, attempt, test); err != nil {
		return 0, err
	}

	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return 0, err
	}
	return host.sess.Remaining(), nil
}

// Remaining reports the live countdown of a hosted attempt in seconds.
func (s *AttemptService) Remaining(studentID int, attemptID uuid.UUID) (int, error) {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return 0, err
	}
	return host.sess.Remaining(), nil
}

// Position reports the live palette pointer of a hosted attempt.
func (s *AttemptService) Position(studentID int, attemptID uuid.UUID) (int, error) {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return 0, err
	}
	return host.sess.CurrentIndex(), nil
}

// startTime resolves an attempt's start as a Unix timestamp, preferring the
// Redis mirror and self-healing it from PostgreSQL on a miss.
func (s *AttemptService) startTime(ctx context.Context, attempt *model.Attempt) (int64, error) {
	key := config.CacheKey.AttemptStartKey(attempt.TestID.String(), attempt.StudentID)

	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		unix := attempt.StartedAt.Unix()
		_ = s.rdb.Set(ctx, key, unix, 0)
		return unix, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get start time: %w", err)
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid start time in cache: %w", err)
	}
	return unix, nil
}

// SelectAnswer records one answer on the live session, mirrors it to Redis,
// and queues it for durable autosave.
func (s *AttemptService) SelectAnswer(ctx context.Context, studentID int, attemptID uuid.UUID, questionID string, optionIndex int) error {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return err
	}

	if err := host.sess.SelectAnswer(questionID, optionIndex); err != nil {
		return err
	}

	mirrorKey := config.CacheKey.AttemptAnswersKey(host.testID.String(), studentID)
	if err := s.rdb.HSet(ctx, mirrorKey, questionID, optionIndex).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("answer mirror failed")
	}

	job, _ := json.Marshal(map[string]any{
		"attempt_id":   attemptID.String(),
		"question_id":  questionID,
		"option_index": optionIndex,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("autosave enqueue failed")
	}

	return nil
}

// Navigate moves the palette pointer on the live session.
func (s *AttemptService) Navigate(ctx context.Context, studentID int, attemptID uuid.UUID, targetIndex int) error {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return err
	}
	return host.sess.Navigate(targetIndex)
}

// Submit finalizes the attempt and returns its result. Repeated submits
// return the original result with engine.ErrAlreadySubmitted, which the
// handler treats as a success replay.
func (s *AttemptService) Submit(ctx context.Context, studentID int, attemptID uuid.UUID) (*engine.Result, error) {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return nil, err
	}

	res, err := host.sess.Submit(ctx)
	if err != nil && !errors.Is(err, engine.ErrAlreadySubmitted) {
		if errors.Is(err, engine.ErrAbandoned) || errors.Is(err, engine.ErrSubmitInFlight) {
			return nil, err
		}
		// The session stays in SUBMITTING; the student can submit again and
		// the computed result is replayed to the sink.
		return nil, fmt.Errorf("%w: %v", ErrResultNotSaved, err)
	}

	s.finish(ctx, attemptID)
	return res, err
}

// Abandon discards an in-progress attempt without producing a result.
func (s *AttemptService) Abandon(ctx context.Context, studentID int, attemptID uuid.UUID) error {
	host, err := s.hosted(attemptID, studentID)
	if err != nil {
		return err
	}

	if err := host.sess.Abandon(); err != nil {
		return err
	}

	if err := s.attemptRepo.Abandon(ctx, attemptID); err != nil {
		return fmt.Errorf("abandon attempt: %w", err)
	}

	tid := host.testID.String()
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(tid, studentID))
	pipe.Del(ctx, config.CacheKey.AttemptStartKey(tid, studentID))
	pipe.Del(ctx, config.CacheKey.StudentActiveTestKey(studentID))
	_, _ = pipe.Exec(ctx)

	s.unhost(attemptID)
	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt abandoned")
	return nil
}

// Paper returns the student-facing question paper for a running attempt.
func (s *AttemptService) Paper(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.TestPayload, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotYourAttempt
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrNoActiveAttempt
	}
	return s.tests.GetPayload(ctx, attempt.TestID)
}

// History returns a student's completed attempts, newest first.
func (s *AttemptService) History(ctx context.Context, studentID int) ([]model.Attempt, error) {
	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// GetResult returns a finished attempt with its recorded answers for review.
func (s *AttemptService) GetResult(ctx context.Context, studentID int, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotYourAttempt
	}
	return attempt, nil
}

// Results returns paginated attempt rows for a test, for the admin console.
func (s *AttemptService) Results(ctx context.Context, testID uuid.UUID, page, perPage int) ([]repository.AttemptRow, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return s.attemptRepo.ListByTest(ctx, testID, perPage, (page-1)*perPage)
}

// afterAutoSubmit runs when the countdown forces a submission.
func (s *AttemptService) afterAutoSubmit(sessionID string, res *engine.Result, err error) {
	if err != nil {
		// The session stays in SUBMITTING; the student's next submit or the
		// rehost path retries the handoff.
		s.log.Error().Err(err).Str("attempt_id", sessionID).Msg("auto submit handoff failed")
		return
	}

	attemptID, perr := uuid.Parse(sessionID)
	if perr != nil {
		return
	}
	s.finish(context.Background(), attemptID)
	s.log.Info().Str("attempt_id", sessionID).Int("score", res.Score).Msg("Attempt auto-submitted")
}

// finish clears the active pointer and drops the finished session from the
// registry. The answer mirror is left for the result worker to clear after
// the row is written.
func (s *AttemptService) finish(ctx context.Context, attemptID uuid.UUID) {
	s.mu.RLock()
	host, ok := s.live[attemptID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if host.sess.Status() != engine.StatusFinished {
		return
	}

	_ = s.rdb.Del(ctx, config.CacheKey.StudentActiveTestKey(host.studentID)).Err()
	s.unhost(attemptID)
}

// hosted returns the live session for an attempt after an ownership check.
func (s *AttemptService) hosted(attemptID uuid.UUID, studentID int) (*hostedAttempt, error) {
	s.mu.RLock()
	host, ok := s.live[attemptID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	if host.studentID != studentID {
		return nil, ErrNotYourAttempt
	}
	return host, nil
}

func (s *AttemptService) host(attemptID uuid.UUID, sess *engine.Session, studentID int, testID uuid.UUID) {
	s.mu.Lock()
	s.live[attemptID] = &hostedAttempt{sess: sess, studentID: studentID, testID: testID}
	s.mu.Unlock()
}

func (s *AttemptService) unhost(attemptID uuid.UUID) {
	s.mu.Lock()
	delete(s.live, attemptID)
	s.mu.Unlock()
}

// loadQuestions builds the engine question list from the cached payload and
// answer key, warming the cache from PostgreSQL on a miss.
func (s *AttemptService) loadQuestions(ctx context.Context, test *model.Test) ([]engine.Question, error) {
	payload, err := s.tests.GetPayload(ctx, test.ID)
	if err != nil {
		if err := s.tests.WarmTestCache(ctx, test); err != nil {
			return nil, fmt.Errorf("warm cache: %w", err)
		}
		payload, err = s.tests.GetPayload(ctx, test.ID)
		if err != nil {
			return nil, err
		}
	}

	key, err := s.tests.GetAnswerKey(ctx, test.ID)
	if err != nil {
		return nil, err
	}

	questions := make([]engine.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		correct, ok := key[q.ID.String()]
		if !ok {
			return nil, fmt.Errorf("answer key missing question %s", q.ID)
		}
		questions = append(questions, engine.Question{
			ID:            q.ID.String(),
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: correct,
		})
	}

	if len(questions) == 0 {
		return nil, engine.ErrNoQuestions
	}
	return questions, nil
}

// mirroredAnswers reads the Redis answer mirror for a live attempt.
func (s *AttemptService) mirroredAnswers(ctx context.Context, testID uuid.UUID, studentID int) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(testID.String(), studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer mirror: %w", err)
	}

	answers := make(map[string]int, len(raw))
	for qid, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		answers[qid] = n
	}
	return answers, nil
}
