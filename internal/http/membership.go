package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"clubhub/internal/db"
	"clubhub/internal/model"
	"clubhub/internal/operations"
)

var membershipStatuses = map[string]bool{
	model.MembershipPending:  true,
	model.MembershipApproved: true,
	model.MembershipRejected: true,
}

type reviewerResponse struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func reviewer(first, last *string) *reviewerResponse {
	if first == nil && last == nil {
		return nil
	}
	return &reviewerResponse{FirstName: first, LastName: last}
}

type requestResponse struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	Phone           *string           `json:"phone"`
	StudentID       *string           `json:"studentId"`
	Motivation      *string           `json:"motivation"`
	Status          string            `json:"status"`
	RejectionReason *string           `json:"rejectionReason"`
	ReviewedAt      *time.Time        `json:"reviewedAt"`
	Reviewer        *reviewerResponse `json:"reviewer"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func toRequest(m model.MembershipRequest) requestResponse {
	return requestResponse{
		ID:              m.ID,
		Email:           m.Email,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Phone:           m.Phone,
		StudentID:       m.StudentID,
		Motivation:      m.Motivation,
		Status:          m.Status,
		RejectionReason: m.RejectionReason,
		ReviewedAt:      m.ReviewedAt,
		Reviewer:        reviewer(m.ReviewerFirstName, m.ReviewerLastName),
		CreatedAt:       m.CreatedAt,
	}
}

type submitRequestRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	FirstName  string  `json:"firstName" validate:"required,min=2,max=50"`
	LastName   string  `json:"lastName" validate:"required,min=2,max=50"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	StudentID  *string `json:"studentId" validate:"omitempty,min=3,max=20"`
	Motivation *string `json:"motivation" validate:"omitempty,max=1000"`
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req submitRequestRequest
	if !bind(w, r, &req) {
		return
	}
	id, err := operations.SubmitMembershipRequest(r.Context(), s.store, operations.RequestInput{
		Email:      normalizeEmail(req.Email),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      optionalString(req.Phone),
		StudentID:  optionalString(req.StudentID),
		Motivation: optionalString(req.Motivation),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Membership request submitted", map[string]string{"requestId": id})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, 20)
	status := r.URL.Query().Get("status")
	if status != "" && !membershipStatuses[status] {
		invalidField(w, "status", "must be one of: pending, approved, rejected")
		return
	}
	requests, total, err := s.store.Queries.ListMembershipRequests(r.Context(), db.ListMembershipRequestsParams{
		Status: status,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]requestResponse, 0, len(requests))
	for _, m := range requests {
		out = append(out, toRequest(m))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"requests": out, "pagination": p.of(total)})
}

type approveRequest struct {
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin executive member"`
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(r, "requestID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrRequestNotFound)
		return
	}
	var req approveRequest
	if !bindOptional(w, r, &req) {
		return
	}
	approval, err := operations.ApproveMembershipRequest(r.Context(), s.store, currentUser(r.Context()).ID, requestID,
		req.Password, req.Role, s.cfg.BcryptCost, s.now())
	if err != nil {
		var opErr *operations.Error
		if errors.As(err, &opErr) && opErr.Code == operations.ErrEmailTaken {
			writeError(w, http.StatusConflict, opErr.Code)
			return
		}
		s.fail(w, r, err)
		return
	}
	data := map[string]interface{}{"user": toUser(approval.User)}
	if approval.TemporaryPassword != "" {
		data["temporaryPassword"] = approval.TemporaryPassword
	}
	writeData(w, http.StatusOK, "Membership request approved", data)
}

type rejectRequest struct {
	RejectionReason *string `json:"rejection_reason" validate:"omitempty,max=1000"`
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(r, "requestID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrRequestNotFound)
		return
	}
	var req rejectRequest
	if !bindOptional(w, r, &req) {
		return
	}
	err := operations.RejectMembershipRequest(r.Context(), s.store, currentUser(r.Context()).ID, requestID,
		optionalString(req.RejectionReason), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Membership request rejected", nil)
}

func (s *Server) handleRequestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.MembershipRequests(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"stats": stats})
}

type applicationResponse struct {
	ID         string            `json:"id"`
	FirstName  string            `json:"firstName"`
	LastName   string            `json:"lastName"`
	Email      string            `json:"email"`
	Phone      *string           `json:"phone"`
	StudentID  *string           `json:"studentId"`
	Motivation string            `json:"motivation"`
	Experience *string           `json:"experience"`
	Interests  *string           `json:"interests"`
	Status     string            `json:"status"`
	Notes      *string           `json:"notes"`
	ReviewedAt *time.Time        `json:"reviewedAt"`
	Reviewer   *reviewerResponse `json:"reviewer"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func toApplication(a model.MembershipApplication) applicationResponse {
	return applicationResponse{
		ID:         a.ID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Email:      a.Email,
		Phone:      a.Phone,
		StudentID:  a.StudentID,
		Motivation: a.Motivation,
		Experience: a.Experience,
		Interests:  a.Interests,
		Status:     a.Status,
		Notes:      a.Notes,
		ReviewedAt: a.ReviewedAt,
		Reviewer:   reviewer(a.ReviewerFirstName, a.ReviewerLastName),
		CreatedAt:  a.CreatedAt,
	}
}

type applyRequest struct {
	FirstName  string  `json:"firstName" validate:"required,min=2,max=50"`
	LastName   string  `json:"lastName" validate:"required,min=2,max=50"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	StudentID  *string `json:"studentId" validate:"omitempty,min=3,max=20"`
	Motivation string  `json:"motivation" validate:"required,min=50,max=1000"`
	Experience *string `json:"experience" validate:"omitempty,max=500"`
	Interests  *string `json:"interests" validate:"omitempty,max=300"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !bind(w, r, &req) {
		return
	}
	id, err := operations.SubmitApplication(r.Context(), s.store, operations.ApplicationInput{
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      normalizeEmail(req.Email),
		Phone:      optionalString(req.Phone),
		StudentID:  optionalString(req.StudentID),
		Motivation: strings.TrimSpace(req.Motivation),
		Experience: optionalString(req.Experience),
		Interests:  optionalString(req.Interests),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Application submitted", map[string]string{"applicationId": id})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, 20)
	status := r.URL.Query().Get("status")
	switch {
	case status == "":
		status = model.MembershipPending
	case status == "all":
		status = ""
	case !membershipStatuses[status]:
		invalidField(w, "status", "must be one of: pending, approved, rejected, all")
		return
	}
	apps, total, err := s.store.Queries.ListMembershipApplications(r.Context(), db.ListMembershipApplicationsParams{
		Status: status,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplication(a))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"applications": out, "pagination": p.of(total)})
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := pathID(r, "applicationID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrApplicationNotFound)
		return
	}
	app, err := s.store.Queries.GetMembershipApplication(r.Context(), applicationID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, operations.ErrApplicationNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"application": toApplication(app)})
}

type reviewRequest struct {
	Status string  `json:"status" validate:"required,oneof=approved rejected"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

func (s *Server) handleReviewApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := pathID(r, "applicationID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrApplicationNotFound)
		return
	}
	var req reviewRequest
	if !bind(w, r, &req) {
		return
	}
	review, err := operations.ReviewApplication(r.Context(), s.store, currentUser(r.Context()).ID, applicationID,
		req.Status, optionalString(req.Notes), s.cfg.BcryptCost, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := map[string]interface{}{"application": toApplication(review.Application)}
	if review.CreatedUser != nil {
		data["user"] = toUser(*review.CreatedUser)
		data["temporaryPassword"] = review.TemporaryPassword
	}
	writeData(w, http.StatusOK, "Application "+req.Status, data)
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.MembershipApplications(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"stats": stats})
}
