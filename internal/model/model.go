package model

import "time"

const (
	RoleAdmin     = "admin"
	RoleExecutive = "executive"
	RoleMember    = "member"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	StudentID    *string
	Bio          *string
	Position     *string
	Role         string
	IsActive     bool
	IsVerified   bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) IsExecutive() bool {
	return u.Role == RoleAdmin || u.Role == RoleExecutive
}

const (
	ActivityDraft     = "draft"
	ActivityPublished = "published"
	ActivityCancelled = "cancelled"
	ActivityCompleted = "completed"
)

type Activity struct {
	ID                  string
	Title               string
	Description         string
	Type                string
	Status              string
	IsPublic            bool
	MaxParticipants     *int
	CurrentParticipants int
	StartDate           time.Time
	EndDate             time.Time
	Location            *string
	OnlineLink          *string
	Requirements        *string
	CreatedBy           *string
	CreatorFirstName    *string
	CreatorLastName     *string
	IsRegistered        bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (a Activity) IsFull() bool {
	return a.MaxParticipants != nil && a.CurrentParticipants >= *a.MaxParticipants
}

type Registration struct {
	ID               string
	UserID           string
	ActivityID       string
	Status           string
	RegistrationDate time.Time
}

type Participant struct {
	UserID           string
	FirstName        string
	LastName         string
	Email            string
	StudentID        *string
	RegistrationDate time.Time
	Status           string
}

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

type Attendance struct {
	ID          string
	UserID      string
	ActivityID  string
	Status      string
	CheckInTime *time.Time
	Notes       *string
	MarkedBy    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AttendanceSheetRow is one registered participant of an activity and their attendance, if marked.
type AttendanceSheetRow struct {
	UserID            string
	FirstName         string
	LastName          string
	Email             string
	StudentID         *string
	RegistrationDate  time.Time
	AttendanceID      *string
	Status            *string
	CheckInTime       *time.Time
	Notes             *string
	MarkedByFirstName *string
	MarkedByLastName  *string
}

type AttendanceHistoryRow struct {
	AttendanceID string
	ActivityID   string
	Title        string
	Type         string
	StartDate    time.Time
	EndDate      time.Time
	Location     *string
	Status       string
	CheckInTime  *time.Time
	Notes        *string
	MarkedAt     time.Time
}

const (
	ExamInProgress = "in_progress"
	ExamPassed     = "passed"
	ExamFailed     = "failed"
)

type Exam struct {
	ID              string
	Title           string
	Description     *string
	Instructions    *string
	DurationMinutes int
	MaxAttempts     *int
	PassingScore    int
	StartDate       *time.Time
	EndDate         *time.Time
	IsActive        bool
	CreatedBy       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExamListing is an exam joined with the caller's most recent attempt, if any.
type ExamListing struct {
	Exam
	QuestionCount int
	LastAttempt   *ExamResult
	AttemptsTaken int
}

type ExamQuestion struct {
	ID            string
	ExamID        string
	QuestionText  string
	QuestionType  string
	Options       []byte
	CorrectAnswer string
	Points        int
	OrderIndex    int
}

type ExamResult struct {
	ID               string
	UserID           string
	ExamID           string
	AttemptNumber    int
	Status           string
	Score            int
	TotalPoints      int
	Percentage       float64
	Answers          []byte
	StartedAt        time.Time
	CompletedAt      *time.Time
	TimeTakenMinutes *int
}

const (
	MembershipPending  = "pending"
	MembershipApproved = "approved"
	MembershipRejected = "rejected"
)

type MembershipRequest struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	Phone             *string
	StudentID         *string
	Motivation        *string
	Status            string
	RejectionReason   *string
	ReviewedBy        *string
	ReviewedAt        *time.Time
	ReviewerFirstName *string
	ReviewerLastName  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MembershipApplication struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Phone             *string
	StudentID         *string
	Motivation        string
	Experience        *string
	Interests         *string
	Status            string
	Notes             *string
	ReviewedBy        *string
	ReviewedAt        *time.Time
	ReviewerFirstName *string
	ReviewerLastName  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Partner struct {
	ID           string
	Name         string
	Description  string
	Website      *string
	Logo         *string
	ContactEmail *string
	ContactPhone *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
