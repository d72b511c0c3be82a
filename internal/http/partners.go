package http

import (
	"net/http"
	"strings"
	"time"

	"clubhub/internal/db"
	"clubhub/internal/model"
)

type partnerResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Website      *string   `json:"website"`
	Logo         *string   `json:"logo"`
	ContactEmail *string   `json:"contactEmail"`
	ContactPhone *string   `json:"contactPhone"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toPartner(p model.Partner) partnerResponse {
	return partnerResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Website:      p.Website,
		Logo:         p.Logo,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.store.Queries.ListActivePartners(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	out := make([]partnerResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, toPartner(p))
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"partners": out})
}

func (s *Server) handleGetPartner(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := pathID(r, "partnerID")
	if !ok {
		writeError(w, http.StatusNotFound, "partner_not_found")
		return
	}
	partner, err := s.store.Queries.GetActivePartner(r.Context(), partnerID)
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "partner_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{"partner": toPartner(partner)})
}

type partnerRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Description  string  `json:"description" validate:"required"`
	Website      *string `json:"website" validate:"omitempty,url"`
	Logo         *string `json:"logo" validate:"omitempty,max=500"`
	ContactEmail *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone" validate:"omitempty,max=20"`
	IsActive     *bool   `json:"isActive"`
}

func (req partnerRequest) params() db.PartnerParams {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return db.PartnerParams{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Website:      optionalString(req.Website),
		Logo:         optionalString(req.Logo),
		ContactEmail: optionalString(req.ContactEmail),
		ContactPhone: optionalString(req.ContactPhone),
		IsActive:     active,
	}
}

func (s *Server) handleCreatePartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if !bind(w, r, &req) {
		return
	}
	partner, err := s.store.Queries.CreatePartner(r.Context(), req.params())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Partner created", map[string]interface{}{"partner": toPartner(partner)})
}

func (s *Server) handleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := pathID(r, "partnerID")
	if !ok {
		writeError(w, http.StatusNotFound, "partner_not_found")
		return
	}
	var req partnerRequest
	if !bind(w, r, &req) {
		return
	}
	partner, err := s.store.Queries.UpdatePartner(r.Context(), partnerID, req.params())
	if err != nil {
		if db.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "partner_not_found")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Partner updated", map[string]interface{}{"partner": toPartner(partner)})
}

func (s *Server) handleDeletePartner(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := pathID(r, "partnerID")
	if !ok {
		writeError(w, http.StatusNotFound, "partner_not_found")
		return
	}
	affected, err := s.store.Queries.DeactivatePartner(r.Context(), partnerID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "partner_not_found")
		return
	}
	writeData(w, http.StatusOK, "Partner deactivated", nil)
}
