package operations

import (
	"context"
	"errors"

	"clubhub/internal/crypto"
	"clubhub/internal/db"
	"clubhub/internal/model"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	StudentID *string
}

// hashPassword maps bcrypt's 72 byte input limit onto ErrPasswordTooLong.
func hashPassword(password string, cost int) (string, error) {
	hash, err := crypto.HashPasswordCost(password, cost)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return "", fail(ErrPasswordTooLong)
	}
	return hash, err
}

// RegisterUser creates a self-registered member account.
func RegisterUser(ctx context.Context, store *db.Store, input RegisterInput, cost int) (model.User, error) {
	hash, err := hashPassword(input.Password, cost)
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	err = store.WithTx(ctx, func(q *db.Queries) error {
		if err := q.LockEmail(ctx, input.Email); err != nil {
			return err
		}
		if taken, err := q.UserExistsByEmail(ctx, input.Email); err != nil {
			return err
		} else if taken {
			return fail(ErrEmailTaken)
		}
		user, err = q.CreateUser(ctx, db.CreateUserParams{
			Email:        input.Email,
			PasswordHash: hash,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			Phone:        input.Phone,
			StudentID:    input.StudentID,
			Role:         model.RoleMember,
		})
		if err != nil && db.IsUniqueViolation(err) {
			return fail(ErrEmailTaken)
		}
		return err
	})
	return user, err
}

func ChangePassword(ctx context.Context, store *db.Store, userID, current, next string, cost int) error {
	user, err := store.Queries.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return fail(ErrUserNotFound)
		}
		return err
	}
	if err := crypto.CheckPassword(user.PasswordHash, current); err != nil {
		return fail(ErrInvalidCurrentPassword)
	}
	hash, err := hashPassword(next, cost)
	if err != nil {
		return err
	}
	return store.Queries.UpdatePassword(ctx, userID, hash)
}
