package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains persist_results_queue and finalizes attempt rows in
// batches. The queue push at submit time is the durable acknowledgement, so
// everything here must either land in PostgreSQL or go back on the queue.
type ResultWorker struct {
	pool     *pgxpool.Pool
	attempts *repository.AttemptRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool:     pool,
		attempts: repository.NewAttemptRepository(pool),
		rdb:      rdb,
		log:      log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.AttemptResultJob, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.AttemptResultJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &job)
		}
	}
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.AttemptResultJob) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkFinalize(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk finalize failed, using fallback")

		for _, job := range batch {
			if err := w.persistSingle(ctx, job); err != nil {
				w.log.Error().Err(err).Str("attempt_id", job.AttemptID).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(job)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// Rows are durable now, the live answer mirrors can go.
	w.bulkClearMirrors(ctx, batch)
}

// bulkFinalize writes a whole batch with a single UNNEST update.
func (w *ResultWorker) bulkFinalize(ctx context.Context, batch []*model.AttemptResultJob) error {
	n := len(batch)

	attemptIDs := make([]uuid.UUID, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	accuracies := make([]float64, 0, n)
	answerDocs := make([][]byte, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, job := range batch {
		id, err := uuid.Parse(job.AttemptID)
		if err != nil {
			return err
		}
		answers, err := json.Marshal(job.Answers)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, id)
		scores = append(scores, job.Score)
		totals = append(totals, job.TotalQs)
		accuracies = append(accuracies, job.Accuracy)
		answerDocs = append(answerDocs, answers)
		finishedAts = append(finishedAts, job.SubmittedAt)
	}

	query := `
		UPDATE attempts AS a
		SET status = 'COMPLETED',
		    score = t.score,
		    total_questions = t.total_questions,
		    accuracy = t.accuracy,
		    answers = t.answers,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.id,
				u.score,
				u.total_questions,
				u.accuracy,
				u.answers,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::int[],
				$4::float8[],
				$5::jsonb[],
				$6::timestamptz[]
			) AS u (id, score, total_questions, accuracy, answers, finished_at)
		) AS t
		WHERE a.id = t.id
	`

	_, err := w.pool.Exec(ctx, query, attemptIDs, scores, totals, accuracies, answerDocs, finishedAts)
	return err
}

func (w *ResultWorker) bulkClearMirrors(ctx context.Context, batch []*model.AttemptResultJob) {
	pipe := w.rdb.Pipeline()

	for _, job := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(job.TestID, job.StudentID))
		pipe.Del(ctx, config.CacheKey.AttemptStartKey(job.TestID, job.StudentID))
	}

	_, _ = pipe.Exec(ctx)
}

// persistSingle is the fallback when the bulk path fails.
func (w *ResultWorker) persistSingle(ctx context.Context, job *model.AttemptResultJob) error {
	id, err := uuid.Parse(job.AttemptID)
	if err != nil {
		return err
	}
	return w.attempts.Complete(ctx, id, job.Score, job.TotalQs, job.Accuracy, job.Answers, job.SubmittedAt)
}
