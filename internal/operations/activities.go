package operations

import (
	"context"
	"time"

	"clubhub/internal/db"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
)

// RegisterForActivity holds the activity row lock while checking capacity, so the participant
// counter and the registration rows cannot drift under concurrent registrations.
func RegisterForActivity(ctx context.Context, store *db.Store, userID, activityID string, now time.Time) (model.Registration, error) {
	var reg model.Registration
	err := store.WithTx(ctx, func(q *db.Queries) error {
		activity, err := q.LockActivity(ctx, activityID)
		if err != nil {
			if db.IsNotFound(err) {
				return fail(ErrActivityNotFound)
			}
			return err
		}
		if activity.Status != model.ActivityPublished {
			return fail(ErrActivityNotOpen)
		}
		if !activity.StartDate.After(now) {
			return fail(ErrRegistrationClosed)
		}
		if activity.IsFull() {
			return fail(ErrActivityFull)
		}
		if _, err := q.GetRegistration(ctx, userID, activityID); err == nil {
			return fail(ErrAlreadyRegistered)
		} else if !db.IsNotFound(err) {
			return err
		}

		reg, err = q.CreateRegistration(ctx, userID, activityID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return fail(ErrAlreadyRegistered)
			}
			return err
		}
		return q.AdjustParticipants(ctx, activityID, 1)
	})
	if err != nil {
		return model.Registration{}, err
	}
	metrics.ActivityRegistrationsTotal.WithLabelValues("register").Inc()
	return reg, nil
}

func UnregisterFromActivity(ctx context.Context, store *db.Store, userID, activityID string) error {
	err := store.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.LockActivity(ctx, activityID); err != nil {
			if db.IsNotFound(err) {
				return fail(ErrActivityNotFound)
			}
			return err
		}
		deleted, err := q.DeleteRegistration(ctx, userID, activityID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return fail(ErrRegistrationNotFound)
		}
		return q.AdjustParticipants(ctx, activityID, -1)
	})
	if err != nil {
		return err
	}
	metrics.ActivityRegistrationsTotal.WithLabelValues("unregister").Inc()
	return nil
}
