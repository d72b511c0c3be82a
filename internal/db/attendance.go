package db

import (
	"context"
	"time"

	"clubhub/internal/model"
)

func (q *Queries) ListActivityAttendance(ctx context.Context, activityID string) ([]model.AttendanceSheetRow, error) {
	rows, err := q.db.Query(ctx, `
    SELECT u.id, u.first_name, u.last_name, u.email, u.student_id, r.registration_date,
      a.id, a.status, a.check_in_time, a.notes, m.first_name, m.last_name
    FROM activity_registrations r
    JOIN users u ON u.id = r.user_id
    LEFT JOIN attendance a ON a.user_id = r.user_id AND a.activity_id = r.activity_id
    LEFT JOIN users m ON m.id = a.marked_by
    WHERE r.activity_id = $1
    ORDER BY u.last_name, u.first_name`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sheet := []model.AttendanceSheetRow{}
	for rows.Next() {
		var row model.AttendanceSheetRow
		if err := rows.Scan(
			&row.UserID,
			&row.FirstName,
			&row.LastName,
			&row.Email,
			&row.StudentID,
			&row.RegistrationDate,
			&row.AttendanceID,
			&row.Status,
			&row.CheckInTime,
			&row.Notes,
			&row.MarkedByFirstName,
			&row.MarkedByLastName,
		); err != nil {
			return nil, err
		}
		sheet = append(sheet, row)
	}
	return sheet, rows.Err()
}

type UpsertAttendanceParams struct {
	UserID      string
	ActivityID  string
	Status      string
	CheckInTime *time.Time
	Notes       *string
	MarkedBy    string
}

// UpsertAttendance keeps one row per (user, activity).
func (q *Queries) UpsertAttendance(ctx context.Context, arg UpsertAttendanceParams) (model.Attendance, error) {
	var att model.Attendance
	err := q.db.QueryRow(ctx, `
    INSERT INTO attendance (user_id, activity_id, status, check_in_time, notes, marked_by)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (user_id, activity_id) DO UPDATE SET
      status = EXCLUDED.status,
      check_in_time = EXCLUDED.check_in_time,
      notes = EXCLUDED.notes,
      marked_by = EXCLUDED.marked_by,
      updated_at = now()
    RETURNING id, user_id, activity_id, status, check_in_time, notes, marked_by, created_at, updated_at`,
		arg.UserID, arg.ActivityID, arg.Status, arg.CheckInTime, arg.Notes, arg.MarkedBy).Scan(
		&att.ID,
		&att.UserID,
		&att.ActivityID,
		&att.Status,
		&att.CheckInTime,
		&att.Notes,
		&att.MarkedBy,
		&att.CreatedAt,
		&att.UpdatedAt,
	)
	return att, err
}

type ListUserAttendanceParams struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (q *Queries) ListUserAttendance(ctx context.Context, arg ListUserAttendanceParams) ([]model.AttendanceHistoryRow, int, error) {
	where := `WHERE a.user_id = $1
      AND ($2::timestamptz IS NULL OR act.start_date >= $2)
      AND ($3::timestamptz IS NULL OR act.start_date <= $3)`

	var total int
	if err := q.db.QueryRow(ctx, `
    SELECT COUNT(*) FROM attendance a JOIN activities act ON act.id = a.activity_id `+where,
		arg.UserID, arg.From, arg.To).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
    SELECT a.id, act.id, act.title, act.type, act.start_date, act.end_date, act.location,
      a.status, a.check_in_time, a.notes, a.updated_at
    FROM attendance a
    JOIN activities act ON act.id = a.activity_id
    `+where+`
    ORDER BY act.start_date DESC
    LIMIT $4 OFFSET $5`,
		arg.UserID, arg.From, arg.To, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	history := []model.AttendanceHistoryRow{}
	for rows.Next() {
		var row model.AttendanceHistoryRow
		if err := rows.Scan(
			&row.AttendanceID,
			&row.ActivityID,
			&row.Title,
			&row.Type,
			&row.StartDate,
			&row.EndDate,
			&row.Location,
			&row.Status,
			&row.CheckInTime,
			&row.Notes,
			&row.MarkedAt,
		); err != nil {
			return nil, 0, err
		}
		history = append(history, row)
	}
	return history, total, rows.Err()
}
