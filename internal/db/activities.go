package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/model"
)

const activityColumns = `a.id, a.title, a.description, a.type, a.status, a.is_public, a.max_participants,
    a.current_participants, a.start_date, a.end_date, a.location, a.online_link, a.requirements,
    a.created_by, u.first_name, u.last_name, a.created_at, a.updated_at`

func scanActivity(row pgx.Row, extra ...interface{}) (model.Activity, error) {
	var activity model.Activity
	dest := []interface{}{
		&activity.ID,
		&activity.Title,
		&activity.Description,
		&activity.Type,
		&activity.Status,
		&activity.IsPublic,
		&activity.MaxParticipants,
		&activity.CurrentParticipants,
		&activity.StartDate,
		&activity.EndDate,
		&activity.Location,
		&activity.OnlineLink,
		&activity.Requirements,
		&activity.CreatedBy,
		&activity.CreatorFirstName,
		&activity.CreatorLastName,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return activity, err
}

type ListActivitiesParams struct {
	PublicOnly bool
	Status     string
	Type       string
	Search     string
	ViewerID   string
	Limit      int
	Offset     int
}

func (q *Queries) ListActivities(ctx context.Context, arg ListActivitiesParams) ([]model.Activity, int, error) {
	where := `WHERE (NOT $1::boolean OR (a.is_public = true AND a.status = 'published'))
      AND ($2::text = '' OR a.status = $2)
      AND ($3::text = '' OR a.type = $3)
      AND ($4::text = '' OR a.title ILIKE $4 ESCAPE '\' OR a.description ILIKE $4 ESCAPE '\')`

	search := containsPattern(arg.Search)
	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM activities a `+where,
		arg.PublicOnly, arg.Status, arg.Type, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
    SELECT `+activityColumns+`,
      EXISTS (SELECT 1 FROM activity_registrations r WHERE r.activity_id = a.id AND r.user_id::text = $5)
    FROM activities a
    LEFT JOIN users u ON u.id = a.created_by
    `+where+`
    ORDER BY a.start_date ASC
    LIMIT $6 OFFSET $7`,
		arg.PublicOnly, arg.Status, arg.Type, search, arg.ViewerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var registered bool
		activity, err := scanActivity(rows, &registered)
		if err != nil {
			return nil, 0, err
		}
		activity.IsRegistered = registered
		activities = append(activities, activity)
	}
	return activities, total, rows.Err()
}

func (q *Queries) GetActivity(ctx context.Context, id, viewerID string) (model.Activity, error) {
	var registered bool
	row := q.db.QueryRow(ctx, `
    SELECT `+activityColumns+`,
      EXISTS (SELECT 1 FROM activity_registrations r WHERE r.activity_id = a.id AND r.user_id::text = $2)
    FROM activities a
    LEFT JOIN users u ON u.id = a.created_by
    WHERE a.id = $1`, id, viewerID)
	activity, err := scanActivity(row, &registered)
	activity.IsRegistered = registered
	return activity, err
}

// LockActivity reads the activity row with FOR UPDATE. Only meaningful inside a transaction.
func (q *Queries) LockActivity(ctx context.Context, id string) (model.Activity, error) {
	row := q.db.QueryRow(ctx, `
    SELECT `+activityColumns+`
    FROM activities a
    LEFT JOIN users u ON u.id = a.created_by
    WHERE a.id = $1
    FOR UPDATE OF a`, id)
	return scanActivity(row)
}

type ActivityParams struct {
	Title           string
	Description     string
	Type            string
	Status          string
	IsPublic        bool
	MaxParticipants *int
	StartDate       time.Time
	EndDate         time.Time
	Location        *string
	OnlineLink      *string
	Requirements    *string
}

func (q *Queries) CreateActivity(ctx context.Context, createdBy string, arg ActivityParams) (string, error) {
	var id string
	err := q.db.QueryRow(ctx, `
    INSERT INTO activities (title, description, type, status, is_public, max_participants, start_date, end_date,
      location, online_link, requirements, created_by)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    RETURNING id`,
		arg.Title, arg.Description, arg.Type, arg.Status, arg.IsPublic, arg.MaxParticipants, arg.StartDate, arg.EndDate,
		arg.Location, arg.OnlineLink, arg.Requirements, createdBy).Scan(&id)
	return id, err
}

func (q *Queries) UpdateActivity(ctx context.Context, id string, arg ActivityParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
    UPDATE activities SET
      title = $2, description = $3, type = $4, status = $5, is_public = $6, max_participants = $7,
      start_date = $8, end_date = $9, location = $10, online_link = $11, requirements = $12, updated_at = now()
    WHERE id = $1`,
		id, arg.Title, arg.Description, arg.Type, arg.Status, arg.IsPublic, arg.MaxParticipants,
		arg.StartDate, arg.EndDate, arg.Location, arg.OnlineLink, arg.Requirements)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) DeleteActivity(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetRegistration(ctx context.Context, userID, activityID string) (model.Registration, error) {
	var reg model.Registration
	err := q.db.QueryRow(ctx, `
    SELECT id, user_id, activity_id, status, registration_date
    FROM activity_registrations
    WHERE user_id = $1 AND activity_id = $2`, userID, activityID).
		Scan(&reg.ID, &reg.UserID, &reg.ActivityID, &reg.Status, &reg.RegistrationDate)
	return reg, err
}

func (q *Queries) CreateRegistration(ctx context.Context, userID, activityID string) (model.Registration, error) {
	var reg model.Registration
	err := q.db.QueryRow(ctx, `
    INSERT INTO activity_registrations (user_id, activity_id, status)
    VALUES ($1, $2, 'registered')
    RETURNING id, user_id, activity_id, status, registration_date`, userID, activityID).
		Scan(&reg.ID, &reg.UserID, &reg.ActivityID, &reg.Status, &reg.RegistrationDate)
	return reg, err
}

func (q *Queries) DeleteRegistration(ctx context.Context, userID, activityID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM activity_registrations WHERE user_id = $1 AND activity_id = $2`, userID, activityID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AdjustParticipants applies delta to the participant counter, never going below zero.
func (q *Queries) AdjustParticipants(ctx context.Context, activityID string, delta int) error {
	_, err := q.db.Exec(ctx, `
    UPDATE activities
    SET current_participants = GREATEST(current_participants + $2, 0)
    WHERE id = $1`, activityID, delta)
	return err
}

func (q *Queries) ListParticipants(ctx context.Context, activityID string) ([]model.Participant, error) {
	rows, err := q.db.Query(ctx, `
    SELECT u.id, u.first_name, u.last_name, u.email, u.student_id, r.registration_date, r.status
    FROM activity_registrations r
    JOIN users u ON u.id = r.user_id
    WHERE r.activity_id = $1
    ORDER BY r.registration_date ASC`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.StudentID, &p.RegistrationDate, &p.Status); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// CompletePastActivities moves published activities whose end date has passed to completed.
func (q *Queries) CompletePastActivities(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
    UPDATE activities
    SET status = 'completed', updated_at = now()
    WHERE status = 'published' AND end_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
