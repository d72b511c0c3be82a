// Package reports runs the aggregate queries behind the statistics endpoints. It scans into
// tagged structs through sqlx on top of the shared pgx pool.
package reports

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

type Reports struct {
	db *sqlx.DB
}

func New(pool *pgxpool.Pool) *Reports {
	return &Reports{db: sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")}
}

func NewWithDB(db *sqlx.DB) *Reports {
	return &Reports{db: db}
}

func (r *Reports) Close() error {
	return r.db.Close()
}

type AttendanceStats struct {
	Total          int     `db:"total" json:"total"`
	Present        int     `db:"present" json:"present"`
	Absent         int     `db:"absent" json:"absent"`
	Late           int     `db:"late" json:"late"`
	Excused        int     `db:"excused" json:"excused"`
	AttendanceRate float64 `db:"-" json:"attendanceRate"`
}

func (s *AttendanceStats) computeRate() {
	if s.Total == 0 {
		s.AttendanceRate = 0
		return
	}
	s.AttendanceRate = roundTwo(float64(s.Present) / float64(s.Total) * 100)
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

// UserAttendance aggregates one user's attendance, optionally restricted to activities starting in [from, to].
func (r *Reports) UserAttendance(ctx context.Context, userID string, from, to *time.Time) (AttendanceStats, error) {
	var stats AttendanceStats
	err := r.db.GetContext(ctx, &stats, `
    SELECT
      COUNT(*) AS total,
      COUNT(*) FILTER (WHERE a.status = 'present') AS present,
      COUNT(*) FILTER (WHERE a.status = 'absent') AS absent,
      COUNT(*) FILTER (WHERE a.status = 'late') AS late,
      COUNT(*) FILTER (WHERE a.status = 'excused') AS excused
    FROM attendance a
    JOIN activities act ON act.id = a.activity_id
    WHERE a.user_id = $1
      AND ($2::timestamptz IS NULL OR act.start_date >= $2)
      AND ($3::timestamptz IS NULL OR act.start_date <= $3)`, userID, nullTime(from), nullTime(to))
	if err != nil {
		return AttendanceStats{}, err
	}
	stats.computeRate()
	return stats, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type TopParticipant struct {
	UserID         string  `db:"user_id" json:"userId"`
	FirstName      string  `db:"first_name" json:"firstName"`
	LastName       string  `db:"last_name" json:"lastName"`
	PresentCount   int     `db:"present_count" json:"presentCount"`
	TotalCount     int     `db:"total_count" json:"totalCount"`
	AttendanceRate float64 `db:"attendance_rate" json:"attendanceRate"`
}

type PopularActivity struct {
	ActivityID        string    `db:"activity_id" json:"activityId"`
	Title             string    `db:"title" json:"title"`
	StartDate         time.Time `db:"start_date" json:"startDate"`
	TotalParticipants int       `db:"total_participants" json:"totalParticipants"`
	PresentCount      int       `db:"present_count" json:"presentCount"`
	AttendanceRate    float64   `db:"attendance_rate" json:"attendanceRate"`
}

type AttendanceOverview struct {
	Stats struct {
		AttendanceStats
		UniqueParticipants int `db:"unique_participants" json:"uniqueParticipants"`
		Activities         int `db:"activities" json:"activities"`
	} `json:"stats"`
	TopParticipants   []TopParticipant  `json:"topParticipants"`
	PopularActivities []PopularActivity `json:"popularActivities"`
}

// presentRate is the share of rows marked present, as a percentage rounded to two decimals.
const presentRate = `COALESCE(ROUND((COUNT(a.id) FILTER (WHERE a.status = 'present'))::numeric * 100 / NULLIF(COUNT(a.id), 0), 2), 0)::float8`

// AttendanceOverview aggregates every attendance record, optionally restricted to activities
// starting in [from, to]. Both top lists rank by attendance rate, then by present count.
func (r *Reports) AttendanceOverview(ctx context.Context, from, to *time.Time) (AttendanceOverview, error) {
	const window = `($1::timestamptz IS NULL OR act.start_date >= $1)
      AND ($2::timestamptz IS NULL OR act.start_date <= $2)`
	var overview AttendanceOverview
	if err := r.db.GetContext(ctx, &overview.Stats, `
    SELECT
      COUNT(*) AS total,
      COUNT(*) FILTER (WHERE a.status = 'present') AS present,
      COUNT(*) FILTER (WHERE a.status = 'absent') AS absent,
      COUNT(*) FILTER (WHERE a.status = 'late') AS late,
      COUNT(*) FILTER (WHERE a.status = 'excused') AS excused,
      COUNT(DISTINCT a.user_id) AS unique_participants,
      COUNT(DISTINCT a.activity_id) AS activities
    FROM attendance a
    JOIN activities act ON act.id = a.activity_id
    WHERE `+window, nullTime(from), nullTime(to)); err != nil {
		return AttendanceOverview{}, err
	}
	overview.Stats.computeRate()

	overview.TopParticipants = []TopParticipant{}
	if err := r.db.SelectContext(ctx, &overview.TopParticipants, `
    SELECT u.id::text AS user_id, u.first_name, u.last_name,
      COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
      COUNT(a.id) AS total_count,
      `+presentRate+` AS attendance_rate
    FROM attendance a
    JOIN users u ON u.id = a.user_id
    JOIN activities act ON act.id = a.activity_id
    WHERE `+window+`
    GROUP BY u.id, u.first_name, u.last_name
    ORDER BY attendance_rate DESC, present_count DESC
    LIMIT 10`, nullTime(from), nullTime(to)); err != nil {
		return AttendanceOverview{}, err
	}

	overview.PopularActivities = []PopularActivity{}
	if err := r.db.SelectContext(ctx, &overview.PopularActivities, `
    SELECT act.id::text AS activity_id, act.title, act.start_date,
      COUNT(a.id) AS total_participants,
      COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
      `+presentRate+` AS attendance_rate
    FROM activities act
    JOIN attendance a ON a.activity_id = act.id
    WHERE `+window+`
    GROUP BY act.id, act.title, act.start_date
    ORDER BY attendance_rate DESC, present_count DESC
    LIMIT 10`, nullTime(from), nullTime(to)); err != nil {
		return AttendanceOverview{}, err
	}
	return overview, nil
}

type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

type UserOverview struct {
	Total      int            `db:"total" json:"total"`
	Active     int            `db:"active" json:"active"`
	Verified   int            `db:"verified" json:"verified"`
	Admins     int            `db:"admins" json:"admins"`
	Executives int            `db:"executives" json:"executives"`
	Members    int            `db:"members" json:"members"`
	Monthly    []MonthlyCount `db:"-" json:"monthlyRegistrations"`
}

func (r *Reports) UserOverview(ctx context.Context) (UserOverview, error) {
	var overview UserOverview
	if err := r.db.GetContext(ctx, &overview, `
    SELECT
      COUNT(*) AS total,
      COUNT(*) FILTER (WHERE is_active) AS active,
      COUNT(*) FILTER (WHERE is_verified) AS verified,
      COUNT(*) FILTER (WHERE role = 'admin') AS admins,
      COUNT(*) FILTER (WHERE role = 'executive') AS executives,
      COUNT(*) FILTER (WHERE role = 'member') AS members
    FROM users`); err != nil {
		return UserOverview{}, err
	}
	monthly, err := r.monthly(ctx, "users")
	if err != nil {
		return UserOverview{}, err
	}
	overview.Monthly = monthly
	return overview, nil
}

// monthly counts rows created per month over the last 12 months. table is never user input.
func (r *Reports) monthly(ctx context.Context, table string) ([]MonthlyCount, error) {
	counts := []MonthlyCount{}
	err := r.db.SelectContext(ctx, &counts, `
    SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS count
    FROM `+table+`
    WHERE created_at >= date_trunc('month', now()) - interval '11 months'
    GROUP BY 1
    ORDER BY 1`)
	return counts, err
}

type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

type RequestStats struct {
	ByStatus []StatusCount `json:"byStatus"`
	Total    int           `json:"total"`
	Recent   int           `json:"recent"`
}

func (r *Reports) MembershipRequests(ctx context.Context) (RequestStats, error) {
	stats := RequestStats{ByStatus: []StatusCount{}}
	if err := r.db.SelectContext(ctx, &stats.ByStatus, `
    SELECT status, COUNT(*) AS count FROM membership_requests GROUP BY status ORDER BY status`); err != nil {
		return RequestStats{}, err
	}
	for _, sc := range stats.ByStatus {
		stats.Total += sc.Count
	}
	if err := r.db.GetContext(ctx, &stats.Recent, `
    SELECT COUNT(*) FROM membership_requests WHERE created_at >= now() - interval '7 days'`); err != nil {
		return RequestStats{}, err
	}
	return stats, nil
}

type ApplicationStats struct {
	Total    int            `db:"total" json:"total"`
	Pending  int            `db:"pending" json:"pending"`
	Approved int            `db:"approved" json:"approved"`
	Rejected int            `db:"rejected" json:"rejected"`
	Monthly  []MonthlyCount `db:"-" json:"monthly"`
}

func (r *Reports) MembershipApplications(ctx context.Context) (ApplicationStats, error) {
	var stats ApplicationStats
	if err := r.db.GetContext(ctx, &stats, `
    SELECT
      COUNT(*) AS total,
      COUNT(*) FILTER (WHERE status = 'pending') AS pending,
      COUNT(*) FILTER (WHERE status = 'approved') AS approved,
      COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
    FROM membership_applications`); err != nil {
		return ApplicationStats{}, err
	}
	monthly, err := r.monthly(ctx, "membership_applications")
	if err != nil {
		return ApplicationStats{}, err
	}
	stats.Monthly = monthly
	return stats, nil
}
