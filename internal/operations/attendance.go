package operations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/db"
	"clubhub/internal/model"
)

var attendanceStatuses = map[string]bool{
	model.AttendancePresent: true,
	model.AttendanceAbsent:  true,
	model.AttendanceLate:    true,
	model.AttendanceExcused: true,
}

func ValidAttendanceStatus(status string) bool {
	return attendanceStatuses[status]
}

type MarkInput struct {
	UserID     string
	ActivityID string
	Status     string
	Notes      *string
}

// MarkAttendance upserts the attendance row of a registered participant. The check-in time is
// set only for present.
func MarkAttendance(ctx context.Context, store *db.Store, markerID string, input MarkInput, now time.Time) (model.Attendance, error) {
	if !ValidAttendanceStatus(input.Status) {
		return model.Attendance{}, fail(ErrInvalidAttendanceStatus)
	}
	var checkIn *time.Time
	if input.Status == model.AttendancePresent {
		checkIn = &now
	}

	var att model.Attendance
	err := store.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.GetRegistration(ctx, input.UserID, input.ActivityID); err != nil {
			if db.IsNotFound(err) {
				return fail(ErrNotRegistered)
			}
			return err
		}
		var err error
		att, err = q.UpsertAttendance(ctx, db.UpsertAttendanceParams{
			UserID:      input.UserID,
			ActivityID:  input.ActivityID,
			Status:      input.Status,
			CheckInTime: checkIn,
			Notes:       input.Notes,
			MarkedBy:    markerID,
		})
		return err
	})
	return att, err
}

type BulkItem struct {
	UserID string
	Status string
	Notes  *string
}

type BulkSuccess struct {
	UserID string
	Status string
}

type BulkFailure struct {
	UserID string
	Code   string
}

type BulkOutcome struct {
	Successful []BulkSuccess
	Errors     []BulkFailure
}

// BulkMarkAttendance marks each item independently. A failing item is reported and does not
// undo the others.
func BulkMarkAttendance(ctx context.Context, store *db.Store, markerID, activityID string, items []BulkItem, now time.Time) (BulkOutcome, error) {
	outcome := BulkOutcome{Successful: []BulkSuccess{}, Errors: []BulkFailure{}}
	for _, item := range items {
		if _, err := uuid.Parse(item.UserID); err != nil {
			outcome.Errors = append(outcome.Errors, BulkFailure{UserID: item.UserID, Code: ErrInvalidUserID})
			continue
		}
		_, err := MarkAttendance(ctx, store, markerID, MarkInput{
			UserID:     item.UserID,
			ActivityID: activityID,
			Status:     item.Status,
			Notes:      item.Notes,
		}, now)
		if err == nil {
			outcome.Successful = append(outcome.Successful, BulkSuccess{UserID: item.UserID, Status: item.Status})
			continue
		}
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		code := "server_error"
		var opErr *Error
		if errors.As(err, &opErr) {
			code = opErr.Code
		} else if db.IsForeignKeyViolation(err) {
			code = ErrNotRegistered
		}
		outcome.Errors = append(outcome.Errors, BulkFailure{UserID: item.UserID, Code: code})
	}
	return outcome, nil
}
