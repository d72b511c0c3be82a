package operations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/db"
	"clubhub/internal/exams"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
)

var questionTypes = map[string]bool{
	"multiple_choice": true,
	"true_false":      true,
	"short_answer":    true,
}

type QuestionInput struct {
	QuestionText  string
	QuestionType  string
	Options       []string
	CorrectAnswer string
	Points        int
}

type CreateExamInput struct {
	Title           string
	Description     *string
	Instructions    *string
	DurationMinutes int
	MaxAttempts     *int
	PassingScore    int
	StartDate       *time.Time
	EndDate         *time.Time
	Questions       []QuestionInput
}

// CreateExam inserts the exam and its ordered questions in one transaction.
func CreateExam(ctx context.Context, store *db.Store, creatorID string, input CreateExamInput) (model.Exam, error) {
	for _, question := range input.Questions {
		if !questionTypes[question.QuestionType] || question.QuestionText == "" || question.CorrectAnswer == "" {
			return model.Exam{}, fail(ErrInvalidQuestion)
		}
	}

	var exam model.Exam
	err := store.WithTx(ctx, func(q *db.Queries) error {
		var err error
		exam, err = q.CreateExam(ctx, db.CreateExamParams{
			Title:           input.Title,
			Description:     input.Description,
			Instructions:    input.Instructions,
			DurationMinutes: input.DurationMinutes,
			MaxAttempts:     input.MaxAttempts,
			PassingScore:    input.PassingScore,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
			CreatedBy:       creatorID,
		})
		if err != nil {
			return err
		}
		for i, question := range input.Questions {
			points := question.Points
			if points <= 0 {
				points = 1
			}
			var options []byte
			if len(question.Options) > 0 {
				if options, err = json.Marshal(question.Options); err != nil {
					return err
				}
			}
			if _, err := q.CreateExamQuestion(ctx, db.CreateExamQuestionParams{
				ExamID:        exam.ID,
				QuestionText:  question.QuestionText,
				QuestionType:  question.QuestionType,
				Options:       options,
				CorrectAnswer: question.CorrectAnswer,
				Points:        points,
				OrderIndex:    i + 1,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return exam, err
}

// StartAttempt opens a new in-progress attempt. Concurrent starts for the same user and exam are
// serialized by an advisory lock, and the partial unique index on in-progress rows backs it up.
func StartAttempt(ctx context.Context, store *db.Store, userID, examID string, now time.Time) (model.ExamResult, model.Exam, error) {
	var (
		result model.ExamResult
		exam   model.Exam
	)
	err := store.WithTx(ctx, func(q *db.Queries) error {
		var err error
		exam, err = q.GetExam(ctx, examID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrExamNotFound)
			}
			return err
		}
		if !exam.IsActive {
			return fail(ErrExamNotFound)
		}
		if err := windowError(exams.CheckWindow(now, exam.StartDate, exam.EndDate)); err != nil {
			return err
		}

		if err := q.LockAttemptSlot(ctx, userID, examID); err != nil {
			return err
		}
		if _, err := q.GetInProgressAttempt(ctx, userID, examID); err == nil {
			return fail(ErrAttemptInProgress)
		} else if !db.IsNotFound(err) {
			return err
		}
		taken, err := q.CountAttempts(ctx, userID, examID)
		if err != nil {
			return err
		}
		if !exams.CanAttempt(taken, exam.MaxAttempts) {
			return fail(ErrMaxAttemptsReached)
		}
		result, err = q.CreateExamResult(ctx, userID, examID, taken+1, now)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fail(ErrAttemptInProgress)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.ExamResult{}, model.Exam{}, err
	}
	metrics.ExamAttemptsTotal.WithLabelValues("started").Inc()
	return result, exam, nil
}

func windowError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, exams.ErrNotOpen):
		return fail(ErrExamNotOpen)
	case errors.Is(err, exams.ErrClosed):
		return fail(ErrExamClosed)
	default:
		return err
	}
}

type Submission struct {
	Result  model.ExamResult
	Outcome exams.Outcome
}

// SubmitAttempt scores an in-progress attempt exactly once. The result row is locked for the
// duration of the transaction, so a second submit observes the terminal status.
func SubmitAttempt(ctx context.Context, store *db.Store, userID, examID, resultID string, answers map[string]string, now time.Time) (Submission, error) {
	var submission Submission
	err := store.WithTx(ctx, func(q *db.Queries) error {
		result, err := q.LockExamResult(ctx, resultID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrResultNotFound)
			}
			return err
		}
		if result.UserID != userID || result.ExamID != examID {
			return fail(ErrResultNotFound)
		}
		if result.Status != model.ExamInProgress {
			return fail(ErrAttemptAlreadySubmitted)
		}

		exam, err := q.GetExam(ctx, examID)
		if err != nil {
			return err
		}
		questions, err := q.ListExamQuestions(ctx, examID)
		if err != nil {
			return err
		}
		outcome := exams.Score(questions, answers, exam.PassingScore)
		result, err = complete(ctx, q, result, outcome, now)
		if err != nil {
			return err
		}
		submission = Submission{Result: result, Outcome: outcome}
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	metrics.ExamAttemptsTotal.WithLabelValues(submission.Outcome.Status).Inc()
	metrics.ExamScoreHistogram.Observe(submission.Outcome.Percentage)
	return submission, nil
}

func complete(ctx context.Context, q *db.Queries, result model.ExamResult, outcome exams.Outcome, now time.Time) (model.ExamResult, error) {
	payload, err := json.Marshal(outcome.Answers)
	if err != nil {
		return result, err
	}
	minutes := exams.MinutesTaken(result.StartedAt, now)
	updated, err := q.CompleteExamResult(ctx, db.CompleteExamResultParams{
		ID:               result.ID,
		Status:           outcome.Status,
		Score:            outcome.Score,
		TotalPoints:      outcome.TotalPoints,
		Percentage:       outcome.Percentage,
		Answers:          payload,
		CompletedAt:      now,
		TimeTakenMinutes: minutes,
	})
	if err != nil {
		return result, err
	}
	if updated == 0 {
		return result, fail(ErrAttemptAlreadySubmitted)
	}
	result.Status = outcome.Status
	result.Score = outcome.Score
	result.TotalPoints = outcome.TotalPoints
	result.Percentage = outcome.Percentage
	result.Answers = payload
	result.CompletedAt = &now
	result.TimeTakenMinutes = &minutes
	return result, nil
}

const expireBatchSize = 100

// ExpireAttempts closes in-progress attempts that outlived their exam duration plus grace,
// grading whatever answers are on record.
func ExpireAttempts(ctx context.Context, store *db.Store, now time.Time, grace time.Duration) (int, error) {
	closed := 0
	err := store.WithTx(ctx, func(q *db.Queries) error {
		attempts, err := q.LockExpiredAttempts(ctx, now, grace, expireBatchSize)
		if err != nil {
			return err
		}
		for _, attempt := range attempts {
			answers := map[string]string{}
			if len(attempt.Result.Answers) > 0 {
				if err := json.Unmarshal(attempt.Result.Answers, &answers); err != nil {
					logger.Error.Printf("attempt %s has unreadable answers: %v", attempt.Result.ID, err)
				}
			}
			questions, err := q.ListExamQuestions(ctx, attempt.Result.ExamID)
			if err != nil {
				return err
			}
			outcome := exams.Score(questions, answers, attempt.PassingScore)
			if _, err := complete(ctx, q, attempt.Result, outcome, now); err != nil {
				return err
			}
			closed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		metrics.ExamAttemptsTotal.WithLabelValues("expired").Add(float64(closed))
	}
	return closed, nil
}
