package http

import (
	"net/http"
	"strings"

	"clubhub/internal/db"
	"clubhub/internal/model"
)

var userRoles = map[string]bool{
	model.RoleAdmin:     true,
	model.RoleExecutive: true,
	model.RoleMember:    true,
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, 20)
	role := r.URL.Query().Get("role")
	if role != "" && !userRoles[role] {
		invalidField(w, "role", "must be one of: admin, executive, member")
		return
	}
	users, total, err := s.store.Queries.ListUsers(r.Context(), db.ListUsersParams{
		Role:   role,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"users": out, "pagination": p.of(total)})
}

type boardMember struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Role      string  `json:"role"`
	Position  *string `json:"position"`
	Bio       *string `json:"bio"`
}

func (s *Server) handleExecutiveBoard(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Queries.ListExecutiveBoard(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	board := make([]boardMember, 0, len(users))
	for _, u := range users {
		board = append(board, boardMember{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
			Position:  u.Position,
			Bio:       u.Bio,
		})
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"executiveBoard": board})
}

// canSee lets users read and edit their own record and executives everyone's.
func canSee(caller *model.User, userID string) bool {
	return caller != nil && (caller.ID == userID || caller.IsExecutive())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if !canSee(currentUser(r.Context()), userID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	user, err := s.store.Queries.GetUserByID(r.Context(), userID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"user": toUser(user)})
}

type updateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin executive member"`
	Position  *string `json:"position" validate:"omitempty,max=100"`
	IsActive  *bool   `json:"isActive"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	caller := currentUser(r.Context())
	if !canSee(caller, userID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	var req updateUserRequest
	if !bind(w, r, &req) {
		return
	}
	params := db.UpdateUserParams{
		ID:        userID,
		FirstName: optionalString(req.FirstName),
		LastName:  optionalString(req.LastName),
		Phone:     req.Phone,
		Bio:       req.Bio,
	}
	if req.Role != nil || req.Position != nil || req.IsActive != nil {
		if caller.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only_fields")
			return
		}
		params.Role = req.Role
		params.Position = req.Position
		params.IsActive = req.IsActive
	}
	if params.Empty() {
		writeError(w, http.StatusBadRequest, "nothing_to_update")
		return
	}
	user, err := s.store.Queries.UpdateUser(r.Context(), params)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User updated", map[string]interface{}{"user": toUser(user)})
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if currentUser(r.Context()).ID == userID {
		writeError(w, http.StatusBadRequest, "cannot_deactivate_self")
		return
	}
	affected, err := s.store.Queries.DeactivateUser(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeData(w, http.StatusOK, "User deactivated", nil)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.reports.UserOverview(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"stats": overview})
}
