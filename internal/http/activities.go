package http

import (
	"net/http"
	"strings"
	"time"

	"clubhub/internal/db"
	"clubhub/internal/model"
	"clubhub/internal/operations"
)

var activityStatuses = map[string]bool{
	model.ActivityDraft:     true,
	model.ActivityPublished: true,
	model.ActivityCancelled: true,
	model.ActivityCompleted: true,
}

type creatorResponse struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type activityResponse struct {
	ID                  string                `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Type                string                `json:"type"`
	Status              string                `json:"status"`
	IsPublic            bool                  `json:"isPublic"`
	MaxParticipants     *int                  `json:"maxParticipants"`
	CurrentParticipants int                   `json:"currentParticipants"`
	StartDate           time.Time             `json:"startDate"`
	EndDate             time.Time             `json:"endDate"`
	Location            *string               `json:"location"`
	OnlineLink          *string               `json:"onlineLink"`
	Requirements        *string               `json:"requirements"`
	Creator             creatorResponse       `json:"creator"`
	IsRegistered        bool                  `json:"isRegistered"`
	Participants        []participantResponse `json:"participants,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

type participantResponse struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	StudentID        *string   `json:"studentId"`
	Status           string    `json:"status"`
	RegistrationDate time.Time `json:"registrationDate"`
}

func toActivity(a model.Activity) activityResponse {
	return activityResponse{
		ID:                  a.ID,
		Title:               a.Title,
		Description:         a.Description,
		Type:                a.Type,
		Status:              a.Status,
		IsPublic:            a.IsPublic,
		MaxParticipants:     a.MaxParticipants,
		CurrentParticipants: a.CurrentParticipants,
		StartDate:           a.StartDate,
		EndDate:             a.EndDate,
		Location:            a.Location,
		OnlineLink:          a.OnlineLink,
		Requirements:        a.Requirements,
		Creator:             creatorResponse{FirstName: a.CreatorFirstName, LastName: a.CreatorLastName},
		IsRegistered:        a.IsRegistered,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, 10)
	query := r.URL.Query()
	params := db.ListActivitiesParams{
		Type:   query.Get("type"),
		Search: strings.TrimSpace(query.Get("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if caller := currentUser(r.Context()); caller != nil {
		params.ViewerID = caller.ID
		params.Status = query.Get("status")
		if params.Status == "" {
			params.Status = model.ActivityPublished
		}
		if !activityStatuses[params.Status] {
			invalidField(w, "status", "must be one of: draft, published, cancelled, completed")
			return
		}
	} else {
		params.PublicOnly = true
	}

	activities, total, err := s.store.Queries.ListActivities(r.Context(), params)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivity(a))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"activities": out, "pagination": p.of(total)})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	caller := currentUser(r.Context())
	viewerID := ""
	if caller != nil {
		viewerID = caller.ID
	}
	activity, err := s.store.Queries.GetActivity(r.Context(), activityID, viewerID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	if caller == nil && (!activity.IsPublic || activity.Status != model.ActivityPublished) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	resp := toActivity(activity)
	if caller != nil && caller.IsExecutive() {
		participants, err := s.store.Queries.ListParticipants(r.Context(), activityID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		resp.Participants = make([]participantResponse, 0, len(participants))
		for _, p := range participants {
			resp.Participants = append(resp.Participants, participantResponse{
				ID:               p.UserID,
				FirstName:        p.FirstName,
				LastName:         p.LastName,
				Email:            p.Email,
				StudentID:        p.StudentID,
				Status:           p.Status,
				RegistrationDate: p.RegistrationDate,
			})
		}
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"activity": resp})
}

type activityRequest struct {
	Title           string    `json:"title" validate:"required,min=5,max=255"`
	Description     string    `json:"description" validate:"required,min=10"`
	Type            string    `json:"type" validate:"required,oneof=seminar conference workshop meeting exam other"`
	Status          string    `json:"status" validate:"omitempty,oneof=draft published cancelled completed"`
	IsPublic        bool      `json:"isPublic"`
	MaxParticipants *int      `json:"maxParticipants" validate:"omitempty,min=1"`
	StartDate       time.Time `json:"startDate" validate:"required"`
	EndDate         time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	Location        *string   `json:"location" validate:"omitempty,max=255"`
	OnlineLink      *string   `json:"onlineLink" validate:"omitempty,url"`
	Requirements    *string   `json:"requirements"`
}

func (req activityRequest) params(defaultStatus string) db.ActivityParams {
	status := req.Status
	if status == "" {
		status = defaultStatus
	}
	return db.ActivityParams{
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Type:            req.Type,
		Status:          status,
		IsPublic:        req.IsPublic,
		MaxParticipants: req.MaxParticipants,
		StartDate:       req.StartDate.UTC(),
		EndDate:         req.EndDate.UTC(),
		Location:        optionalString(req.Location),
		OnlineLink:      optionalString(req.OnlineLink),
		Requirements:    optionalString(req.Requirements),
	}
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !bind(w, r, &req) {
		return
	}
	caller := currentUser(r.Context())
	id, err := s.store.Queries.CreateActivity(r.Context(), caller.ID, req.params(model.ActivityDraft))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	activity, err := s.store.Queries.GetActivity(r.Context(), id, caller.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Activity created", map[string]interface{}{"activity": toActivity(activity)})
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	var req activityRequest
	if !bind(w, r, &req) {
		return
	}
	caller := currentUser(r.Context())
	current, err := s.store.Queries.GetActivity(r.Context(), activityID, caller.ID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	if _, err := s.store.Queries.UpdateActivity(r.Context(), activityID, req.params(current.Status)); err != nil {
		s.fail(w, r, err)
		return
	}
	activity, err := s.store.Queries.GetActivity(r.Context(), activityID, caller.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Activity updated", map[string]interface{}{"activity": toActivity(activity)})
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	deleted, err := s.store.Queries.DeleteActivity(r.Context(), activityID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	writeData(w, http.StatusOK, "Activity deleted", nil)
}

func (s *Server) handleRegisterActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	reg, err := operations.RegisterForActivity(r.Context(), s.store, currentUser(r.Context()).ID, activityID, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Registered", map[string]interface{}{
		"registration": map[string]interface{}{
			"id":               reg.ID,
			"activityId":       reg.ActivityID,
			"status":           reg.Status,
			"registrationDate": reg.RegistrationDate,
		},
	})
}

func (s *Server) handleUnregisterActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := pathID(r, "activityID")
	if !ok {
		writeError(w, http.StatusNotFound, operations.ErrActivityNotFound)
		return
	}
	if err := operations.UnregisterFromActivity(r.Context(), s.store, currentUser(r.Context()).ID, activityID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Registration cancelled", nil)
}
