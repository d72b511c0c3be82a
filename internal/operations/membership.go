package operations

import (
	"context"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/crypto"
	"clubhub/internal/db"
	"clubhub/internal/model"
)

var assignableRoles = map[string]bool{
	model.RoleMember:    true,
	model.RoleExecutive: true,
	model.RoleAdmin:     true,
}

type RequestInput struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      *string
	StudentID  *string
	Motivation *string
}

// SubmitMembershipRequest rejects an address that already has a request in any state or an account.
func SubmitMembershipRequest(ctx context.Context, store *db.Store, input RequestInput) (string, error) {
	var id string
	err := store.WithTx(ctx, func(q *db.Queries) error {
		if err := q.LockEmail(ctx, input.Email); err != nil {
			return err
		}
		exists, err := q.MembershipRequestExists(ctx, input.Email)
		if err != nil {
			return err
		}
		if exists {
			return fail(ErrRequestExists)
		}
		if taken, err := q.UserExistsByEmail(ctx, input.Email); err != nil {
			return err
		} else if taken {
			return fail(ErrEmailTaken)
		}
		id, err = q.CreateMembershipRequest(ctx, db.CreateMembershipRequestParams{
			Email:      input.Email,
			FirstName:  input.FirstName,
			LastName:   input.LastName,
			Phone:      input.Phone,
			StudentID:  input.StudentID,
			Motivation: input.Motivation,
		})
		return err
	})
	return id, err
}

type Approval struct {
	User model.User
	// TemporaryPassword is set only when the password was generated rather than supplied.
	TemporaryPassword string
}

// newCredentials returns the hash for password, generating a temporary one when password is empty.
func newCredentials(password string, cost int) (hash, temporary string, err error) {
	if password == "" {
		if temporary, err = crypto.NewTemporaryPassword(); err != nil {
			return "", "", err
		}
		password = temporary
	}
	hash, err = hashPassword(password, cost)
	return hash, temporary, err
}

// ApproveMembershipRequest creates the member account and marks the request approved in one
// transaction holding the request row lock.
func ApproveMembershipRequest(ctx context.Context, store *db.Store, reviewerID, requestID, password, role string, cost int, now time.Time) (Approval, error) {
	if role == "" {
		role = model.RoleMember
	}
	if !assignableRoles[role] {
		return Approval{}, fail(ErrInvalidRole)
	}
	hash, temporary, err := newCredentials(password, cost)
	if err != nil {
		return Approval{}, err
	}

	var approval Approval
	err = store.WithTx(ctx, func(q *db.Queries) error {
		req, err := q.LockMembershipRequest(ctx, requestID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrRequestNotFound)
			}
			return err
		}
		if req.Status != model.MembershipPending {
			return fail(ErrRequestAlreadyReviewed)
		}
		if err := q.LockEmail(ctx, req.Email); err != nil {
			return err
		}
		if taken, err := q.UserExistsByEmail(ctx, req.Email); err != nil {
			return err
		} else if taken {
			return fail(ErrEmailTaken)
		}
		user, err := q.CreateUser(ctx, db.CreateUserParams{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			StudentID:    req.StudentID,
			Role:         role,
			IsVerified:   true,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fail(ErrEmailTaken)
			}
			return err
		}
		if err := q.ReviewMembershipRequest(ctx, db.ReviewMembershipRequestParams{
			ID:         req.ID,
			Status:     model.MembershipApproved,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
		}); err != nil {
			return err
		}
		approval = Approval{User: user, TemporaryPassword: temporary}
		return nil
	})
	if err != nil {
		return Approval{}, err
	}
	if temporary != "" {
		logger.Info.Printf("membership request %s approved; temporary password for %s: %s", requestID, approval.User.Email, temporary)
	}
	return approval, nil
}

func RejectMembershipRequest(ctx context.Context, store *db.Store, reviewerID, requestID string, reason *string, now time.Time) error {
	return store.WithTx(ctx, func(q *db.Queries) error {
		req, err := q.LockMembershipRequest(ctx, requestID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrRequestNotFound)
			}
			return err
		}
		if req.Status != model.MembershipPending {
			return fail(ErrRequestAlreadyReviewed)
		}
		return q.ReviewMembershipRequest(ctx, db.ReviewMembershipRequestParams{
			ID:              req.ID,
			Status:          model.MembershipRejected,
			ReviewedBy:      reviewerID,
			ReviewedAt:      now,
			RejectionReason: reason,
		})
	})
}

type ApplicationInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      *string
	StudentID  *string
	Motivation string
	Experience *string
	Interests  *string
}

// SubmitApplication allows one pending application per address and none for existing members.
func SubmitApplication(ctx context.Context, store *db.Store, input ApplicationInput) (string, error) {
	var id string
	err := store.WithTx(ctx, func(q *db.Queries) error {
		if err := q.LockEmail(ctx, input.Email); err != nil {
			return err
		}
		pending, err := q.PendingApplicationExists(ctx, input.Email)
		if err != nil {
			return err
		}
		if pending {
			return fail(ErrApplicationPending)
		}
		if taken, err := q.UserExistsByEmail(ctx, input.Email); err != nil {
			return err
		} else if taken {
			return fail(ErrEmailTaken)
		}
		id, err = q.CreateMembershipApplication(ctx, db.CreateMembershipApplicationParams{
			FirstName:  input.FirstName,
			LastName:   input.LastName,
			Email:      input.Email,
			Phone:      input.Phone,
			StudentID:  input.StudentID,
			Motivation: input.Motivation,
			Experience: input.Experience,
			Interests:  input.Interests,
		})
		if err != nil && db.IsUniqueViolation(err) {
			return fail(ErrApplicationPending)
		}
		return err
	})
	return id, err
}

type ApplicationReview struct {
	Application model.MembershipApplication
	// CreatedUser is nil when the application was rejected or the address already had an account.
	CreatedUser       *model.User
	TemporaryPassword string
}

// ReviewApplication records the decision. Approval creates a verified member account unless one
// already exists for the address, so it never produces a second user row.
func ReviewApplication(ctx context.Context, store *db.Store, reviewerID, applicationID, status string, notes *string, cost int, now time.Time) (ApplicationReview, error) {
	if status != model.MembershipApproved && status != model.MembershipRejected {
		return ApplicationReview{}, fail(ErrInvalidReviewStatus)
	}
	var hash, temporary string
	if status == model.MembershipApproved {
		var err error
		if hash, temporary, err = newCredentials("", cost); err != nil {
			return ApplicationReview{}, err
		}
	}

	var review ApplicationReview
	err := store.WithTx(ctx, func(q *db.Queries) error {
		app, err := q.LockMembershipApplication(ctx, applicationID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrApplicationNotFound)
			}
			return err
		}
		if app.Status != model.MembershipPending {
			return fail(ErrApplicationReviewed)
		}
		if err := q.ReviewMembershipApplication(ctx, db.ReviewMembershipApplicationParams{
			ID:         app.ID,
			Status:     status,
			Notes:      notes,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
		}); err != nil {
			return err
		}
		app.Status = status
		app.Notes = notes
		app.ReviewedBy = &reviewerID
		app.ReviewedAt = &now
		review.Application = app

		if status != model.MembershipApproved {
			return nil
		}
		if err := q.LockEmail(ctx, app.Email); err != nil {
			return err
		}
		taken, err := q.UserExistsByEmail(ctx, app.Email)
		if err != nil {
			return err
		}
		if taken {
			return nil
		}
		user, err := q.CreateUser(ctx, db.CreateUserParams{
			Email:        app.Email,
			PasswordHash: hash,
			FirstName:    app.FirstName,
			LastName:     app.LastName,
			Phone:        app.Phone,
			StudentID:    app.StudentID,
			Role:         model.RoleMember,
			IsVerified:   true,
		})
		if err != nil {
			return err
		}
		review.CreatedUser = &user
		review.TemporaryPassword = temporary
		return nil
	})
	if err != nil {
		return ApplicationReview{}, err
	}
	if review.CreatedUser != nil {
		logger.Info.Printf("membership application %s approved; temporary password for %s: %s", applicationID, review.CreatedUser.Email, temporary)
	}
	return review, nil
}
