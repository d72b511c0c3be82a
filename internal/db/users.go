package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, student_id, bio, position,
    role, is_active, is_verified, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.StudentID,
		&user.Bio,
		&user.Position,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	StudentID    *string
	Role         string
	IsVerified   bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, first_name, last_name, phone, student_id, role, is_verified)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.FirstName, arg.LastName, arg.Phone, arg.StudentID, arg.Role, arg.IsVerified)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (q *Queries) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (q *Queries) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return err
}

func (q *Queries) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
	return err
}

// UpdateUserParams leaves a column untouched when its field is nil.
type UpdateUserParams struct {
	ID        string
	FirstName *string
	LastName  *string
	Phone     *string
	Bio       *string
	Position  *string
	Role      *string
	IsActive  *bool
}

func (p UpdateUserParams) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil && p.Bio == nil &&
		p.Position == nil && p.Role == nil && p.IsActive == nil
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (model.User, error) {
	row := q.db.QueryRow(ctx, `
    UPDATE users SET
      first_name = COALESCE($2, first_name),
      last_name = COALESCE($3, last_name),
      phone = COALESCE($4, phone),
      bio = COALESCE($5, bio),
      position = COALESCE($6, position),
      role = COALESCE($7, role),
      is_active = COALESCE($8, is_active),
      updated_at = now()
    WHERE id = $1
    RETURNING `+userColumns,
		arg.ID, arg.FirstName, arg.LastName, arg.Phone, arg.Bio, arg.Position, arg.Role, arg.IsActive)
	return scanUser(row)
}

func (q *Queries) DeactivateUser(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE users SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListUsersParams struct {
	Role   string
	Search string
	Limit  int
	Offset int
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]model.User, int, error) {
	where := `WHERE ($1::text = '' OR role = $1)
      AND ($2::text = '' OR first_name ILIKE $2 ESCAPE '\' OR last_name ILIKE $2 ESCAPE '\' OR email ILIKE $2 ESCAPE '\')`

	search := containsPattern(arg.Search)
	var total int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, arg.Role, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users `+where+`
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4`, arg.Role, search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (q *Queries) ListExecutiveBoard(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users
    WHERE role IN ('admin', 'executive') AND is_active = true
    ORDER BY CASE role WHEN 'admin' THEN 0 ELSE 1 END, position NULLS LAST, last_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
