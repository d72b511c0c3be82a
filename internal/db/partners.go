package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"clubhub/internal/model"
)

const partnerColumns = `id, name, description, website, logo, contact_email, contact_phone, is_active, created_at, updated_at`

func scanPartner(row pgx.Row) (model.Partner, error) {
	var p model.Partner
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Website, &p.Logo, &p.ContactEmail, &p.ContactPhone, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *Queries) ListActivePartners(ctx context.Context) ([]model.Partner, error) {
	rows, err := q.db.Query(ctx, `SELECT `+partnerColumns+` FROM partners WHERE is_active = true ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := []model.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (q *Queries) GetActivePartner(ctx context.Context, id string) (model.Partner, error) {
	return scanPartner(q.db.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1 AND is_active = true`, id))
}

func (q *Queries) GetPartner(ctx context.Context, id string) (model.Partner, error) {
	return scanPartner(q.db.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id))
}

type PartnerParams struct {
	Name         string
	Description  string
	Website      *string
	Logo         *string
	ContactEmail *string
	ContactPhone *string
	IsActive     bool
}

func (q *Queries) CreatePartner(ctx context.Context, arg PartnerParams) (model.Partner, error) {
	return scanPartner(q.db.QueryRow(ctx, `
    INSERT INTO partners (name, description, website, logo, contact_email, contact_phone, is_active)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING `+partnerColumns,
		arg.Name, arg.Description, arg.Website, arg.Logo, arg.ContactEmail, arg.ContactPhone, arg.IsActive))
}

func (q *Queries) UpdatePartner(ctx context.Context, id string, arg PartnerParams) (model.Partner, error) {
	return scanPartner(q.db.QueryRow(ctx, `
    UPDATE partners SET
      name = $2, description = $3, website = $4, logo = $5, contact_email = $6, contact_phone = $7,
      is_active = $8, updated_at = now()
    WHERE id = $1
    RETURNING `+partnerColumns,
		id, arg.Name, arg.Description, arg.Website, arg.Logo, arg.ContactEmail, arg.ContactPhone, arg.IsActive))
}

// UpsertPartnerByName is used by the seed tool so repeated runs do not duplicate rows.
func (q *Queries) UpsertPartnerByName(ctx context.Context, arg PartnerParams) (model.Partner, error) {
	existing, err := scanPartner(q.db.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE name = $1`, arg.Name))
	if err == nil {
		return q.UpdatePartner(ctx, existing.ID, arg)
	}
	if !IsNotFound(err) {
		return model.Partner{}, err
	}
	return q.CreatePartner(ctx, arg)
}

func (q *Queries) DeactivatePartner(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, `UPDATE partners SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
