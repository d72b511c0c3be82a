package operations

const (
	ErrEmailTaken              = "email_taken"
	ErrUserNotFound            = "user_not_found"
	ErrInvalidUserID           = "invalid_user_id"
	ErrInvalidCurrentPassword  = "invalid_current_password"
	ErrActivityNotFound        = "activity_not_found"
	ErrActivityNotOpen         = "activity_not_open"
	ErrRegistrationClosed      = "registration_closed"
	ErrActivityFull            = "activity_full"
	ErrAlreadyRegistered       = "already_registered"
	ErrRegistrationNotFound    = "registration_not_found"
	ErrNotRegistered           = "not_registered"
	ErrInvalidAttendanceStatus = "invalid_attendance_status"
	ErrExamNotFound            = "exam_not_found"
	ErrExamNotOpen             = "exam_not_open"
	ErrExamClosed              = "exam_closed"
	ErrMaxAttemptsReached      = "max_attempts_reached"
	ErrAttemptInProgress       = "attempt_in_progress"
	ErrResultNotFound          = "exam_result_not_found"
	ErrAttemptAlreadySubmitted = "attempt_already_submitted"
	ErrInvalidQuestion         = "invalid_question"
	ErrRequestExists           = "request_exists"
	ErrRequestNotFound         = "request_not_found"
	ErrRequestAlreadyReviewed  = "request_already_reviewed"
	ErrApplicationPending      = "application_pending"
	ErrApplicationNotFound     = "application_not_found"
	ErrApplicationReviewed     = "application_already_reviewed"
	ErrInvalidReviewStatus     = "invalid_review_status"
	ErrInvalidRole             = "invalid_role"
	ErrPasswordTooLong         = "password_too_long"
)

type Error struct {
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func fail(code string) error {
	return &Error{Code: code}
}
