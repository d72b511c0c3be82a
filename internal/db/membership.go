package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/model"
)

const requestColumns = `mr.id, mr.email, mr.first_name, mr.last_name, mr.phone, mr.student_id, mr.motivation,
    mr.status, mr.rejection_reason, mr.reviewed_by, mr.reviewed_at, rv.first_name, rv.last_name,
    mr.created_at, mr.updated_at`

func scanRequest(row pgx.Row) (model.MembershipRequest, error) {
	var req model.MembershipRequest
	err := row.Scan(
		&req.ID,
		&req.Email,
		&req.FirstName,
		&req.LastName,
		&req.Phone,
		&req.StudentID,
		&req.Motivation,
		&req.Status,
		&req.RejectionReason,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.ReviewerFirstName,
		&req.ReviewerLastName,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	return req, err
}

type CreateMembershipRequestParams struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      *string
	StudentID  *string
	Motivation *string
}

func (q *Queries) CreateMembershipRequest(ctx context.Context, arg CreateMembershipRequestParams) (string, error) {
	var id string
	err := q.db.QueryRow(ctx, `
    INSERT INTO membership_requests (email, first_name, last_name, phone, student_id, motivation)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id`,
		arg.Email, arg.FirstName, arg.LastName, arg.Phone, arg.StudentID, arg.Motivation).Scan(&id)
	return id, err
}

func (q *Queries) MembershipRequestExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM membership_requests WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

type ListMembershipRequestsParams struct {
	Status string
	Limit  int
	Offset int
}

func (q *Queries) ListMembershipRequests(ctx context.Context, arg ListMembershipRequestsParams) ([]model.MembershipRequest, int, error) {
	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM membership_requests WHERE ($1::text = '' OR status = $1)`,
		arg.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
    SELECT `+requestColumns+`
    FROM membership_requests mr
    LEFT JOIN users rv ON rv.id = mr.reviewed_by
    WHERE ($1::text = '' OR mr.status = $1)
    ORDER BY mr.created_at DESC
    LIMIT $2 OFFSET $3`, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := []model.MembershipRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// LockMembershipRequest reads a request row with FOR UPDATE. Only meaningful inside a transaction.
func (q *Queries) LockMembershipRequest(ctx context.Context, id string) (model.MembershipRequest, error) {
	row := q.db.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM membership_requests mr
    LEFT JOIN users rv ON rv.id = mr.reviewed_by
    WHERE mr.id = $1
    FOR UPDATE OF mr`, id)
	return scanRequest(row)
}

type ReviewMembershipRequestParams struct {
	ID              string
	Status          string
	ReviewedBy      string
	ReviewedAt      time.Time
	RejectionReason *string
}

func (q *Queries) ReviewMembershipRequest(ctx context.Context, arg ReviewMembershipRequestParams) error {
	_, err := q.db.Exec(ctx, `
    UPDATE membership_requests
    SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5, updated_at = now()
    WHERE id = $1`,
		arg.ID, arg.Status, arg.ReviewedBy, arg.ReviewedAt, arg.RejectionReason)
	return err
}

const applicationColumns = `ma.id, ma.first_name, ma.last_name, ma.email, ma.phone, ma.student_id, ma.motivation,
    ma.experience, ma.interests, ma.status, ma.notes, ma.reviewed_by, ma.reviewed_at, rv.first_name, rv.last_name,
    ma.created_at, ma.updated_at`

func scanApplication(row pgx.Row) (model.MembershipApplication, error) {
	var app model.MembershipApplication
	err := row.Scan(
		&app.ID,
		&app.FirstName,
		&app.LastName,
		&app.Email,
		&app.Phone,
		&app.StudentID,
		&app.Motivation,
		&app.Experience,
		&app.Interests,
		&app.Status,
		&app.Notes,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.ReviewerFirstName,
		&app.ReviewerLastName,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	return app, err
}

type CreateMembershipApplicationParams struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      *string
	StudentID  *string
	Motivation string
	Experience *string
	Interests  *string
}

func (q *Queries) CreateMembershipApplication(ctx context.Context, arg CreateMembershipApplicationParams) (string, error) {
	var id string
	err := q.db.QueryRow(ctx, `
    INSERT INTO membership_applications (first_name, last_name, email, phone, student_id, motivation, experience, interests)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id`,
		arg.FirstName, arg.LastName, arg.Email, arg.Phone, arg.StudentID, arg.Motivation, arg.Experience, arg.Interests).Scan(&id)
	return id, err
}

func (q *Queries) PendingApplicationExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM membership_applications WHERE lower(email) = lower($1) AND status = 'pending')`,
		email).Scan(&exists)
	return exists, err
}

type ListMembershipApplicationsParams struct {
	Status string
	Search string
	Limit  int
	Offset int
}

func (q *Queries) ListMembershipApplications(ctx context.Context, arg ListMembershipApplicationsParams) ([]model.MembershipApplication, int, error) {
	where := `WHERE ($1::text = '' OR ma.status = $1)
      AND ($2::text = '' OR ma.first_name ILIKE $2 ESCAPE '\' OR ma.last_name ILIKE $2 ESCAPE '\' OR ma.email ILIKE $2 ESCAPE '\')`

	search := containsPattern(arg.Search)
	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM membership_applications ma `+where,
		arg.Status, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `
    SELECT `+applicationColumns+`
    FROM membership_applications ma
    LEFT JOIN users rv ON rv.id = ma.reviewed_by
    `+where+`
    ORDER BY ma.created_at DESC
    LIMIT $3 OFFSET $4`, arg.Status, search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := []model.MembershipApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	return apps, total, rows.Err()
}

func (q *Queries) GetMembershipApplication(ctx context.Context, id string) (model.MembershipApplication, error) {
	row := q.db.QueryRow(ctx, `
    SELECT `+applicationColumns+`
    FROM membership_applications ma
    LEFT JOIN users rv ON rv.id = ma.reviewed_by
    WHERE ma.id = $1`, id)
	return scanApplication(row)
}

// LockMembershipApplication reads an application row with FOR UPDATE. Only meaningful inside a transaction.
func (q *Queries) LockMembershipApplication(ctx context.Context, id string) (model.MembershipApplication, error) {
	row := q.db.QueryRow(ctx, `
    SELECT `+applicationColumns+`
    FROM membership_applications ma
    LEFT JOIN users rv ON rv.id = ma.reviewed_by
    WHERE ma.id = $1
    FOR UPDATE OF ma`, id)
	return scanApplication(row)
}

type ReviewMembershipApplicationParams struct {
	ID         string
	Status     string
	Notes      *string
	ReviewedBy string
	ReviewedAt time.Time
}

func (q *Queries) ReviewMembershipApplication(ctx context.Context, arg ReviewMembershipApplicationParams) error {
	_, err := q.db.Exec(ctx, `
    UPDATE membership_applications
    SET status = $2, notes = $3, reviewed_by = $4, reviewed_at = $5, updated_at = now()
    WHERE id = $1`,
		arg.ID, arg.Status, arg.Notes, arg.ReviewedBy, arg.ReviewedAt)
	return err
}

// LockEmail serializes submissions and account creation for one address until the transaction ends.
func (q *Queries) LockEmail(ctx context.Context, email string) error {
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('email:' || lower($1::text)))`, email)
	return err
}
