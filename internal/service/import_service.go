package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/rs/zerolog"
)

// importColumns is the expected CSV header, in order. The correct column
// accepts a letter (A-D) or a 1-based number; explanation and image_path are
// optional.
var importColumns = []string{
	"text", "option_a", "option_b", "option_c", "option_d", "correct", "explanation", "image_path",
}

// ErrEmptyImport is returned when the CSV contains no question rows.
var ErrEmptyImport = errors.New("import file contains no question rows")

// ImportRowError describes why a single CSV row was rejected.
type ImportRowError struct {
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ImportReport summarizes one import run. Valid rows are inserted even when
// some rows fail; rejected rows are reported per line so the author can fix
// and re-upload only those.
type ImportReport struct {
	Imported int              `json:"imported"`
	Rejected int              `json:"rejected"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ImportService ingests question banks from CSV uploads.
type ImportService struct {
	questionRepo *repository.QuestionRepository
	topicRepo    *repository.TopicRepository
	log          zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(questionRepo *repository.QuestionRepository, topicRepo *repository.TopicRepository, log zerolog.Logger) *ImportService {
	return &ImportService{
		questionRepo: questionRepo,
		topicRepo:    topicRepo,
		log:          log.With().Str("component", "import_service").Logger(),
	}
}

// ImportCSV parses r as a question bank and inserts the valid rows under the
// given topic. The first row must be the header.
func (s *ImportService) ImportCSV(ctx context.Context, topicID int, r io.Reader) (*ImportReport, error) {
	if _, err := s.topicRepo.GetByID(ctx, topicID); err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	report := &ImportReport{}
	var questions []model.Question

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Rejected++
			report.Errors = append(report.Errors, ImportRowError{
				Line: line, Reason: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}

		q, rowErr := parseRow(topicID, line, row)
		if rowErr != nil {
			report.Rejected++
			report.Errors = append(report.Errors, *rowErr)
			continue
		}
		questions = append(questions, *q)
	}

	if len(questions) == 0 && report.Rejected == 0 {
		return nil, ErrEmptyImport
	}

	if len(questions) > 0 {
		if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
			return nil, fmt.Errorf("insert questions: %w", err)
		}
	}
	report.Imported = len(questions)

	s.log.Info().
		Int("topic_id", topicID).
		Int("imported", report.Imported).
		Int("rejected", report.Rejected).
		Msg("Question bank imported")
	return report, nil
}

func checkHeader(header []string) error {
	if len(header) < 6 {
		return fmt.Errorf("header has %d columns, expected at least 6", len(header))
	}
	for i, want := range importColumns {
		if i >= len(header) {
			break
		}
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("header column %d is %q, expected %q", i+1, header[i], want)
		}
	}
	return nil
}

// parseRow maps one CSV row to a question. The options keep their column
// order, so the correct marker resolves against indices 0 to 3.
func parseRow(topicID, line int, row []string) (*model.Question, *ImportRowError) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	text := get(0)
	if text == "" {
		return nil, &ImportRowError{Line: line, Field: "text", Reason: "question text is required"}
	}

	options := make([]string, 0, 4)
	for i := 1; i <= 4; i++ {
		opt := get(i)
		if opt == "" {
			return nil, &ImportRowError{
				Line: line, Field: importColumns[i], Reason: "all four options are required",
			}
		}
		options = append(options, opt)
	}

	correct, err := parseCorrect(get(5))
	if err != nil {
		return nil, &ImportRowError{Line: line, Field: "correct", Reason: err.Error()}
	}

	return &model.Question{
		TopicID:       topicID,
		Text:          text,
		Options:       options,
		CorrectOption: correct,
		Explanation:   get(6),
		ImagePath:     get(7),
	}, nil
}

// parseCorrect accepts "A".."D" (any case) or "1".."4" and returns the
// zero-based option index.
func parseCorrect(v string) (int, error) {
	if v == "" {
		return 0, errors.New("correct answer is required")
	}

	upper := strings.ToUpper(v)
	if len(upper) == 1 && upper[0] >= 'A' && upper[0] <= 'D' {
		return int(upper[0] - 'A'), nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 4 {
		return 0, fmt.Errorf("correct must be A-D or 1-4, got %q", v)
	}
	return n - 1, nil
}
