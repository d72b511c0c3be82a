package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/auth"
	"clubhub/internal/crypto"
	"clubhub/internal/db"
	"clubhub/internal/model"
	"clubhub/internal/operations"
)

type userResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Phone      *string    `json:"phone"`
	StudentID  *string    `json:"studentId"`
	Role       string     `json:"role"`
	Position   *string    `json:"position"`
	Bio        *string    `json:"bio"`
	IsActive   bool       `json:"isActive"`
	IsVerified bool       `json:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toUser(u model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		StudentID:  u.StudentID,
		Role:       u.Role,
		Position:   u.Position,
		Bio:        u.Bio,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

type sessionUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  sessionUser `json:"user"`
}

func (s *Server) session(u model.User) (sessionResponse, error) {
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.JWTExpiresIn, u.ID, u.Email)
	if err != nil {
		return sessionResponse{}, err
	}
	return sessionResponse{
		Token: token,
		User: sessionUser{
			ID:         u.ID,
			Email:      u.Email,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Role:       u.Role,
			IsVerified: u.IsVerified,
		},
	}, nil
}

type registerRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6,max=72"`
	FirstName string  `json:"firstName" validate:"required,max=50"`
	LastName  string  `json:"lastName" validate:"required,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	StudentID *string `json:"studentId" validate:"omitempty,min=3,max=20"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !bind(w, r, &req) {
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if blank := blankFields(map[string]string{"firstName": req.FirstName, "lastName": req.LastName}); len(blank) > 0 {
		writeFieldErrors(w, blank)
		return
	}

	user, err := operations.RegisterUser(r.Context(), s.store, operations.RegisterInput{
		Email:     normalizeEmail(req.Email),
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     optionalString(req.Phone),
		StudentID: optionalString(req.StudentID),
	}, s.cfg.BcryptCost)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.session(user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Account created", resp)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := s.store.Queries.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "account_disabled")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err := s.store.Queries.UpdateLastLogin(r.Context(), user.ID, s.now()); err != nil {
		logger.Error.Printf("update last login for %s: %v", user.ID, err)
	}

	resp, err := s.session(user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Logged in", resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	writeData(w, http.StatusOK, "", map[string]interface{}{"user": toUser(*user)})
}

type profileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=50"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !bind(w, r, &req) {
		return
	}
	user := currentUser(r.Context())
	params := db.UpdateUserParams{
		ID:        user.ID,
		FirstName: optionalString(req.FirstName),
		LastName:  optionalString(req.LastName),
		Phone:     req.Phone,
		Bio:       req.Bio,
	}
	if params.Empty() {
		writeError(w, http.StatusBadRequest, "nothing_to_update")
		return
	}
	updated, err := s.store.Queries.UpdateUser(r.Context(), params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Profile updated", map[string]interface{}{"user": toUser(updated)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !bind(w, r, &req) {
		return
	}
	user := currentUser(r.Context())
	if err := operations.ChangePassword(r.Context(), s.store, user.ID, req.CurrentPassword, req.NewPassword, s.cfg.BcryptCost); err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Password changed", nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session(*currentUser(r.Context()))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Token refreshed", map[string]string{"token": resp.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims != nil && claims.ExpiresAt != nil {
		if err := s.revoked.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	writeData(w, http.StatusOK, "Logged out", nil)
}
