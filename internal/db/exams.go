package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/model"
)

const examColumns = `e.id, e.title, e.description, e.instructions, e.duration_minutes, e.max_attempts,
    e.passing_score, e.start_date, e.end_date, e.is_active, e.created_by, e.created_at, e.updated_at`

const resultColumns = `id, user_id, exam_id, attempt_number, status, score, total_points, percentage,
    answers, started_at, completed_at, time_taken_minutes`

func examDest(exam *model.Exam) []interface{} {
	return []interface{}{
		&exam.ID,
		&exam.Title,
		&exam.Description,
		&exam.Instructions,
		&exam.DurationMinutes,
		&exam.MaxAttempts,
		&exam.PassingScore,
		&exam.StartDate,
		&exam.EndDate,
		&exam.IsActive,
		&exam.CreatedBy,
		&exam.CreatedAt,
		&exam.UpdatedAt,
	}
}

func scanResult(row pgx.Row) (model.ExamResult, error) {
	var result model.ExamResult
	err := row.Scan(
		&result.ID,
		&result.UserID,
		&result.ExamID,
		&result.AttemptNumber,
		&result.Status,
		&result.Score,
		&result.TotalPoints,
		&result.Percentage,
		&result.Answers,
		&result.StartedAt,
		&result.CompletedAt,
		&result.TimeTakenMinutes,
	)
	return result, err
}

type ListExamsParams struct {
	UserID   string
	OpenOnly bool
	Now      time.Time
	Limit    int
	Offset   int
}

// ListExams returns active exams with the caller's latest attempt. Other users' results never join in.
func (q *Queries) ListExams(ctx context.Context, arg ListExamsParams) ([]model.ExamListing, int, error) {
	where := `WHERE e.is_active = true
      AND (NOT $1::boolean OR ((e.start_date IS NULL OR e.start_date <= $2) AND (e.end_date IS NULL OR e.end_date >= $2)))`

	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM exams e `+where, arg.OpenOnly, arg.Now).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
    SELECT `+examColumns+`,
      (SELECT COUNT(*) FROM exam_questions q WHERE q.exam_id = e.id),
      (SELECT COUNT(*) FROM exam_results c WHERE c.exam_id = e.id AND c.user_id = $3),
      r.id, r.attempt_number, r.status, r.score, r.total_points, r.percentage, r.started_at, r.completed_at, r.time_taken_minutes
    FROM exams e
    LEFT JOIN LATERAL (
      SELECT * FROM exam_results er
      WHERE er.exam_id = e.id AND er.user_id = $3
      ORDER BY er.attempt_number DESC
      LIMIT 1
    ) r ON true
    `+where+`
    ORDER BY e.created_at DESC
    LIMIT $4 OFFSET $5`,
		arg.OpenOnly, arg.Now, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	listings := []model.ExamListing{}
	for rows.Next() {
		var listing model.ExamListing
		var (
			resultID      *string
			attemptNumber *int
			status        *string
			score         *int
			totalPoints   *int
			percentage    *float64
			startedAt     *time.Time
			completedAt   *time.Time
			timeTaken     *int
		)
		dest := append(examDest(&listing.Exam),
			&listing.QuestionCount,
			&listing.AttemptsTaken,
			&resultID, &attemptNumber, &status, &score, &totalPoints, &percentage, &startedAt, &completedAt, &timeTaken,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		if resultID != nil {
			listing.LastAttempt = &model.ExamResult{
				ID:               *resultID,
				UserID:           arg.UserID,
				ExamID:           listing.ID,
				AttemptNumber:    deref(attemptNumber),
				Status:           deref(status),
				Score:            deref(score),
				TotalPoints:      deref(totalPoints),
				Percentage:       deref(percentage),
				StartedAt:        deref(startedAt),
				CompletedAt:      completedAt,
				TimeTakenMinutes: timeTaken,
			}
		}
		listings = append(listings, listing)
	}
	return listings, total, rows.Err()
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (q *Queries) GetExam(ctx context.Context, id string) (model.Exam, error) {
	var exam model.Exam
	err := q.db.QueryRow(ctx, `SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id).Scan(examDest(&exam)...)
	return exam, err
}

type CreateExamParams struct {
	Title           string
	Description     *string
	Instructions    *string
	DurationMinutes int
	MaxAttempts     *int
	PassingScore    int
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedBy       string
}

func (q *Queries) CreateExam(ctx context.Context, arg CreateExamParams) (model.Exam, error) {
	var exam model.Exam
	err := q.db.QueryRow(ctx, `
    INSERT INTO exams AS e (title, description, instructions, duration_minutes, max_attempts, passing_score,
      start_date, end_date, created_by)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING `+examColumns,
		arg.Title, arg.Description, arg.Instructions, arg.DurationMinutes, arg.MaxAttempts, arg.PassingScore,
		arg.StartDate, arg.EndDate, arg.CreatedBy).Scan(examDest(&exam)...)
	return exam, err
}

type CreateExamQuestionParams struct {
	ExamID        string
	QuestionText  string
	QuestionType  string
	Options       []byte
	CorrectAnswer string
	Points        int
	OrderIndex    int
}

func (q *Queries) CreateExamQuestion(ctx context.Context, arg CreateExamQuestionParams) (string, error) {
	var id string
	err := q.db.QueryRow(ctx, `
    INSERT INTO exam_questions (exam_id, question_text, question_type, options, correct_answer, points, order_index)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id`,
		arg.ExamID, arg.QuestionText, arg.QuestionType, arg.Options, arg.CorrectAnswer, arg.Points, arg.OrderIndex).Scan(&id)
	return id, err
}

func (q *Queries) ListExamQuestions(ctx context.Context, examID string) ([]model.ExamQuestion, error) {
	rows, err := q.db.Query(ctx, `
    SELECT id, exam_id, question_text, question_type, options, correct_answer, points, order_index
    FROM exam_questions
    WHERE exam_id = $1
    ORDER BY order_index ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.ExamQuestion{}
	for rows.Next() {
		var question model.ExamQuestion
		if err := rows.Scan(
			&question.ID,
			&question.ExamID,
			&question.QuestionText,
			&question.QuestionType,
			&question.Options,
			&question.CorrectAnswer,
			&question.Points,
			&question.OrderIndex,
		); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

// LockAttemptSlot serializes attempt creation for one (user, exam) pair until the transaction ends.
func (q *Queries) LockAttemptSlot(ctx context.Context, userID, examID string) error {
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, "exam_attempt:"+userID+":"+examID)
	return err
}

func (q *Queries) CountAttempts(ctx context.Context, userID, examID string) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM exam_results WHERE user_id = $1 AND exam_id = $2`, userID, examID).Scan(&count)
	return count, err
}

func (q *Queries) GetInProgressAttempt(ctx context.Context, userID, examID string) (model.ExamResult, error) {
	row := q.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM exam_results
    WHERE user_id = $1 AND exam_id = $2 AND status = 'in_progress'`, userID, examID)
	return scanResult(row)
}

func (q *Queries) CreateExamResult(ctx context.Context, userID, examID string, attemptNumber int, startedAt time.Time) (model.ExamResult, error) {
	row := q.db.QueryRow(ctx, `
    INSERT INTO exam_results (user_id, exam_id, attempt_number, status, started_at)
    VALUES ($1, $2, $3, 'in_progress', $4)
    RETURNING `+resultColumns, userID, examID, attemptNumber, startedAt)
	return scanResult(row)
}

// LockExamResult reads a result row with FOR UPDATE. Only meaningful inside a transaction.
func (q *Queries) LockExamResult(ctx context.Context, id string) (model.ExamResult, error) {
	row := q.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1 FOR UPDATE`, id)
	return scanResult(row)
}

type CompleteExamResultParams struct {
	ID               string
	Status           string
	Score            int
	TotalPoints      int
	Percentage       float64
	Answers          []byte
	CompletedAt      time.Time
	TimeTakenMinutes int
}

// CompleteExamResult only transitions rows that are still in progress.
func (q *Queries) CompleteExamResult(ctx context.Context, arg CompleteExamResultParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
    UPDATE exam_results SET
      status = $2, score = $3, total_points = $4, percentage = $5, answers = $6,
      completed_at = $7, time_taken_minutes = $8
    WHERE id = $1 AND status = 'in_progress'`,
		arg.ID, arg.Status, arg.Score, arg.TotalPoints, arg.Percentage, arg.Answers, arg.CompletedAt, arg.TimeTakenMinutes)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) ListExamResults(ctx context.Context, userID, examID string) ([]model.ExamResult, error) {
	rows, err := q.db.Query(ctx, `SELECT `+resultColumns+` FROM exam_results
    WHERE user_id = $1 AND exam_id = $2
    ORDER BY attempt_number DESC`, userID, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.ExamResult{}
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// ExpiredAttempt is an in-progress attempt together with the exam data needed to close it.
type ExpiredAttempt struct {
	Result       model.ExamResult
	PassingScore int
	Duration     time.Duration
}

// LockExpiredAttempts claims in-progress attempts older than their exam duration plus grace.
// Rows already locked by a concurrent submit are skipped.
func (q *Queries) LockExpiredAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]ExpiredAttempt, error) {
	rows, err := q.db.Query(ctx, `
    SELECT r.id, r.user_id, r.exam_id, r.attempt_number, r.status, r.score, r.total_points, r.percentage,
      r.answers, r.started_at, r.completed_at, r.time_taken_minutes, e.passing_score, e.duration_minutes
    FROM exam_results r
    JOIN exams e ON e.id = r.exam_id
    WHERE r.status = 'in_progress'
      AND r.started_at + make_interval(mins => e.duration_minutes) + make_interval(secs => $2) < $1
    ORDER BY r.started_at
    LIMIT $3
    FOR UPDATE OF r SKIP LOCKED`, now, grace.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []ExpiredAttempt{}
	for rows.Next() {
		var attempt ExpiredAttempt
		var durationMinutes int
		r := &attempt.Result
		if err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.ExamID,
			&r.AttemptNumber,
			&r.Status,
			&r.Score,
			&r.TotalPoints,
			&r.Percentage,
			&r.Answers,
			&r.StartedAt,
			&r.CompletedAt,
			&r.TimeTakenMinutes,
			&attempt.PassingScore,
			&durationMinutes,
		); err != nil {
			return nil, err
		}
		attempt.Duration = time.Duration(durationMinutes) * time.Minute
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}
