package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/crypto"
	"clubhub/internal/db"
	"clubhub/internal/model"
)

type Admin struct {
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	FirstName string `toml:"first_name"`
	LastName  string `toml:"last_name"`
	Position  string `toml:"position"`
}

type Partner struct {
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	Website      string `toml:"website"`
	Logo         string `toml:"logo"`
	ContactEmail string `toml:"contact_email"`
	ContactPhone string `toml:"contact_phone"`
}

type File struct {
	Admin    *Admin    `toml:"admin"`
	Partners []Partner `toml:"partners"`
}

type Summary struct {
	AdminCreated bool
	Partners     int
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return file, nil
}

func Parse(data []byte) (*File, error) {
	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if a := file.Admin; a != nil {
		a.Email = strings.ToLower(strings.TrimSpace(a.Email))
		if a.Email == "" || !strings.Contains(a.Email, "@") {
			return nil, errors.New("admin.email must be an email address")
		}
		if len(a.Password) < 6 {
			return nil, errors.New("admin.password must be at least 6 characters")
		}
		if strings.TrimSpace(a.FirstName) == "" || strings.TrimSpace(a.LastName) == "" {
			return nil, errors.New("admin.first_name and admin.last_name are required")
		}
	}
	for i, p := range file.Partners {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "" {
			return nil, fmt.Errorf("partners[%d]: name and description are required", i)
		}
	}
	return &file, nil
}

// Apply creates the admin when no account holds its email and upserts partners by name. It is
// safe to run repeatedly.
func Apply(ctx context.Context, store *db.Store, file *File, cost int) (Summary, error) {
	var summary Summary
	err := store.WithTx(ctx, func(q *db.Queries) error {
		if file.Admin != nil {
			created, err := ensureAdmin(ctx, q, *file.Admin, cost)
			if err != nil {
				return err
			}
			summary.AdminCreated = created
		}
		for _, p := range file.Partners {
			if _, err := q.UpsertPartnerByName(ctx, db.PartnerParams{
				Name:         strings.TrimSpace(p.Name),
				Description:  strings.TrimSpace(p.Description),
				Website:      optional(p.Website),
				Logo:         optional(p.Logo),
				ContactEmail: optional(p.ContactEmail),
				ContactPhone: optional(p.ContactPhone),
				IsActive:     true,
			}); err != nil {
				return fmt.Errorf("partner %q: %w", p.Name, err)
			}
			summary.Partners++
		}
		return nil
	})
	return summary, err
}

func ensureAdmin(ctx context.Context, q *db.Queries, a Admin, cost int) (bool, error) {
	exists, err := q.UserExistsByEmail(ctx, a.Email)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Info.Printf("seed: %s already exists, leaving it untouched", a.Email)
		return false, nil
	}
	hash, err := crypto.HashPasswordCost(a.Password, cost)
	if err != nil {
		return false, err
	}
	user, err := q.CreateUser(ctx, db.CreateUserParams{
		Email:        a.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(a.FirstName),
		LastName:     strings.TrimSpace(a.LastName),
		Role:         model.RoleAdmin,
		IsVerified:   true,
	})
	if err != nil {
		return false, err
	}
	if position := optional(a.Position); position != nil {
		if _, err := q.UpdateUser(ctx, db.UpdateUserParams{ID: user.ID, Position: position}); err != nil {
			return false, err
		}
	}
	return true, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
