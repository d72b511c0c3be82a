package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/db"
	"clubhub/internal/operations"
)

type sheetRowResponse struct {
	UserID           string     `json:"userId"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	StudentID        *string    `json:"studentId"`
	RegistrationDate time.Time  `json:"registrationDate"`
	AttendanceID     *string    `json:"attendanceId"`
	Status           *string    `json:"status"`
	CheckInTime      *time.Time `json:"checkInTime"`
	Notes            *string    `json:"notes"`
	MarkedBy         *string    `json:"markedBy"`
}

func (s *Server) handleActivityAttendance(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	activity, err := s.store.Queries.GetActivity(r.Context(), activityID, "")
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	sheet, err := s.store.Queries.ListActivityAttendance(r.Context(), activityID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	rows := make([]sheetRowResponse, 0, len(sheet))
	for _, row := range sheet {
		var markedBy *string
		if row.MarkedByFirstName != nil && row.MarkedByLastName != nil {
			name := *row.MarkedByFirstName + " " + *row.MarkedByLastName
			markedBy = &name
		}
		rows = append(rows, sheetRowResponse{
			UserID:           row.UserID,
			FirstName:        row.FirstName,
			LastName:         row.LastName,
			Email:            row.Email,
			StudentID:        row.StudentID,
			RegistrationDate: row.RegistrationDate,
			AttendanceID:     row.AttendanceID,
			Status:           row.Status,
			CheckInTime:      row.CheckInTime,
			Notes:            row.Notes,
			MarkedBy:         markedBy,
		})
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{
		"activity": map[string]interface{}{
			"id":        activity.ID,
			"title":     activity.Title,
			"startDate": activity.StartDate,
			"endDate":   activity.EndDate,
		},
		"attendance": rows,
	})
}

type markRequest struct {
	UserID     string  `json:"userId" validate:"required,uuid"`
	ActivityID string  `json:"activityId" validate:"required,uuid"`
	Status     string  `json:"status" validate:"required,oneof=present absent late excused"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !bind(w, r, &req) {
		return
	}
	att, err := operations.MarkAttendance(r.Context(), s.store, currentUser(r.Context()).ID, operations.MarkInput{
		UserID:     uuid.MustParse(req.UserID).String(),
		ActivityID: uuid.MustParse(req.ActivityID).String(),
		Status:     req.Status,
		Notes:      optionalString(req.Notes),
	}, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Attendance recorded", map[string]interface{}{
		"attendance": map[string]interface{}{
			"id":          att.ID,
			"userId":      att.UserID,
			"activityId":  att.ActivityID,
			"status":      att.Status,
			"checkInTime": att.CheckInTime,
			"notes":       att.Notes,
		},
	})
}

type bulkItemRequest struct {
	UserID string  `json:"userId"`
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type bulkMarkRequest struct {
	ActivityID     string            `json:"activityId" validate:"required,uuid"`
	AttendanceData []bulkItemRequest `json:"attendanceData" validate:"required,min=1"`
}

type bulkSuccessResponse struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type bulkErrorResponse struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// handleBulkMarkAttendance reports per item. Item problems never fail the request.
func (s *Server) handleBulkMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req bulkMarkRequest
	if !bind(w, r, &req) {
		return
	}
	items := make([]operations.BulkItem, 0, len(req.AttendanceData))
	for _, item := range req.AttendanceData {
		items = append(items, operations.BulkItem{UserID: item.UserID, Status: item.Status, Notes: optionalString(item.Notes)})
	}
	outcome, err := operations.BulkMarkAttendance(r.Context(), s.store, currentUser(r.Context()).ID,
		uuid.MustParse(req.ActivityID).String(), items, s.now())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	successful := make([]bulkSuccessResponse, 0, len(outcome.Successful))
	for _, item := range outcome.Successful {
		successful = append(successful, bulkSuccessResponse{UserID: item.UserID, Status: item.Status})
	}
	failed := make([]bulkErrorResponse, 0, len(outcome.Errors))
	for _, item := range outcome.Errors {
		failed = append(failed, bulkErrorResponse{UserID: item.UserID, Code: item.Code, Error: humanize(item.Code)})
	}
	writeData(w, http.StatusOK, "Bulk attendance processed", map[string]interface{}{
		"successful": successful,
		"errors":     failed,
	})
}

type historyRowResponse struct {
	ID          string     `json:"id"`
	ActivityID  string     `json:"activityId"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Location    *string    `json:"location"`
	Status      string     `json:"status"`
	CheckInTime *time.Time `json:"checkInTime"`
	Notes       *string    `json:"notes"`
	MarkedAt    time.Time  `json:"markedAt"`
}

func (s *Server) handleUserAttendance(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrUserNotFound)
		return
	}
	if !canSee(currentUser(r.Context()), userID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	from, ok := parseDateParam(w, r, "startDate")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "endDate")
	if !ok {
		return
	}

	p := parsePage(r, 20)
	history, total, err := s.store.Queries.ListUserAttendance(r.Context(), db.ListUserAttendanceParams{
		UserID: userID,
		From:   from,
		To:     to,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	stats, err := s.reports.UserAttendance(r.Context(), userID, from, to)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	rows := make([]historyRowResponse, 0, len(history))
	for _, h := range history {
		rows = append(rows, historyRowResponse{
			ID:          h.AttendanceID,
			ActivityID:  h.ActivityID,
			Title:       h.Title,
			Type:        h.Type,
			StartDate:   h.StartDate,
			EndDate:     h.EndDate,
			Location:    h.Location,
			Status:      h.Status,
			CheckInTime: h.CheckInTime,
			Notes:       h.Notes,
			MarkedAt:    h.MarkedAt,
		})
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{
		"attendance": rows,
		"stats":      stats,
		"pagination": p.of(total),
	})
}

// parseDateParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	invalidField(w, name, "must be a date (YYYY-MM-DD or RFC 3339)")
	return nil, false
}

func (s *Server) handleAttendanceStats(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateParam(w, r, "startDate")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "endDate")
	if !ok {
		return
	}
	overview, err := s.reports.AttendanceOverview(r.Context(), from, to)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", overview)
}
