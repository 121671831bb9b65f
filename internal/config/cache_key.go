package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptAnswersKey returns the cache key for the answer mirror of a live
// attempt.
func (r *CacheKeyStruct) AttemptAnswersKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:answers", studentID, testID)
}

// AttemptStartKey returns the cache key for an attempt's start timestamp.
func (r *CacheKeyStruct) AttemptStartKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:attempt_start", studentID, testID)
}

// StudentActiveTestKey returns the cache key for a student's currently
// running attempt, if any.
func (r *CacheKeyStruct) StudentActiveTestKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_test", studentID)
}

// TestPayloadKey returns the cache key for a published test's student-facing
// payload (questions without correct answers).
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestDurationKey returns the cache key for a test's duration in minutes.
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

// TestAnswerKey returns the cache key for a test's answer key hash.
func (r *CacheKeyStruct) TestAnswerKey(testID string) string {
	return fmt.Sprintf("test:%s:key", testID)
}

var CacheKey = NewCacheKeyStruct()
