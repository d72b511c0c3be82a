// Package exams holds the storage-free rules of the exam workflow: window checks,
// attempt eligibility and scoring.
package exams

import (
	"errors"
	"math"
	"time"

	"clubhub/internal/model"
)

var (
	ErrNotOpen = errors.New("exam not open yet")
	ErrClosed  = errors.New("exam closed")
)

// CheckWindow reports whether now falls inside the optional [start, end] window.
func CheckWindow(now time.Time, start, end *time.Time) error {
	if start != nil && now.Before(*start) {
		return ErrNotOpen
	}
	if end != nil && now.After(*end) {
		return ErrClosed
	}
	return nil
}

// CanAttempt treats a nil or non-positive maxAttempts as unlimited.
func CanAttempt(attemptsTaken int, maxAttempts *int) bool {
	if maxAttempts == nil || *maxAttempts <= 0 {
		return true
	}
	return attemptsTaken < *maxAttempts
}

func HasPassed(results []model.ExamResult) bool {
	for _, result := range results {
		if result.Status == model.ExamPassed {
			return true
		}
	}
	return false
}

type Outcome struct {
	Score       int
	TotalPoints int
	Percentage  float64
	Status      string
	// Answers keeps only the submitted answers that belong to the exam.
	Answers map[string]string
}

// Score grades answers against the exam questions. An answer counts only if it equals the
// stored correct answer exactly. Pass/fail compares the unrounded percentage.
func Score(questions []model.ExamQuestion, answers map[string]string, passingScore int) Outcome {
	outcome := Outcome{Answers: make(map[string]string, len(answers))}
	for _, question := range questions {
		outcome.TotalPoints += question.Points
		answer, ok := answers[question.ID]
		if !ok {
			continue
		}
		outcome.Answers[question.ID] = answer
		if answer == question.CorrectAnswer {
			outcome.Score += question.Points
		}
	}
	if outcome.TotalPoints > 0 {
		outcome.Percentage = float64(outcome.Score) / float64(outcome.TotalPoints) * 100
	}
	outcome.Status = model.ExamFailed
	if outcome.Percentage >= float64(passingScore) {
		outcome.Status = model.ExamPassed
	}
	return outcome
}

// RoundPercentage rounds to two decimals for display.
func RoundPercentage(value float64) float64 {
	return math.Round(value*100) / 100
}

// MinutesTaken is the elapsed time rounded to whole minutes.
func MinutesTaken(startedAt, completedAt time.Time) int {
	elapsed := completedAt.Sub(startedAt)
	if elapsed < 0 {
		return 0
	}
	return int(math.Round(elapsed.Minutes()))
}

// Expired reports whether an attempt has outlived its duration plus grace.
func Expired(startedAt time.Time, duration, grace time.Duration, now time.Time) bool {
	return now.After(startedAt.Add(duration + grace))
}
