package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clubhub/internal/config"
	"clubhub/internal/db"
	"clubhub/internal/ratelimit"
	"clubhub/internal/reports"
	"clubhub/internal/revocation"
)

const Version = "1.0.0"

type Server struct {
	cfg     config.Config
	store   *db.Store
	reports *reports.Reports
	revoked *revocation.List
	limiter ratelimit.Limiter
	now     func() time.Time
}

// NewServer wires the handlers. A nil limiter disables rate limiting and a nil or empty
// revocation list makes logout a no-op.
func NewServer(cfg config.Config, store *db.Store, reports *reports.Reports, revoked *revocation.List, limiter ratelimit.Limiter) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		reports: reports,
		revoked: revoked,
		limiter: limiter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.rateLimit)
	r.Use(middleware.Compress(5))
	if s.cfg.BodyLimitBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.BodyLimitBytes))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route_not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleAPIInfo)
		r.Get("/health", s.handleAPIHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(s.authenticate).Get("/me", s.handleMe)
			r.With(s.authenticate).Put("/profile", s.handleUpdateProfile)
			r.With(s.authenticate).Post("/change-password", s.handleChangePassword)
			r.With(s.authenticate).Post("/refresh", s.handleRefresh)
			r.With(s.authenticate).Post("/logout", s.handleLogout)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(s.authenticate, requireExecutive).Get("/", s.handleListUsers)
			r.Get("/executive-board", s.handleExecutiveBoard)
			r.With(s.authenticate, requireExecutive).Get("/stats/overview", s.handleUserStats)
			r.With(s.authenticate).Get("/{userID}", s.handleGetUser)
			r.With(s.authenticate).Put("/{userID}", s.handleUpdateUser)
			r.With(s.authenticate, requireAdmin).Delete("/{userID}", s.handleDeactivateUser)
		})

		r.Route("/activities", func(r chi.Router) {
			r.With(s.optionalAuth).Get("/", s.handleListActivities)
			r.With(s.authenticate, requireExecutive).Post("/", s.handleCreateActivity)
			r.With(s.optionalAuth).Get("/{activityID}", s.handleGetActivity)
			r.With(s.authenticate, requireExecutive).Put("/{activityID}", s.handleUpdateActivity)
			r.With(s.authenticate, requireExecutive).Delete("/{activityID}", s.handleDeleteActivity)
			r.With(s.authenticate, requireMember).Post("/{activityID}/register", s.handleRegisterActivity)
			r.With(s.authenticate, requireMember).Delete("/{activityID}/register", s.handleUnregisterActivity)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Use(s.authenticate)
			r.With(requireExecutive).Get("/activity/{activityID}", s.handleActivityAttendance)
			r.With(requireExecutive).Post("/mark", s.handleMarkAttendance)
			r.With(requireExecutive).Post("/bulk-mark", s.handleBulkMarkAttendance)
			r.Get("/user/{userID}", s.handleUserAttendance)
			r.With(requireExecutive).Get("/stats/overview", s.handleAttendanceStats)
		})

		r.Route("/exams", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/", s.handleListExams)
			r.With(requireExecutive).Post("/", s.handleCreateExam)
			r.Get("/{examID}", s.handleGetExam)
			r.Post("/{examID}/start", s.handleStartExam)
			r.Post("/{examID}/submit", s.handleSubmitExam)
			r.Get("/{examID}/results", s.handleExamResults)
		})

		r.Route("/membership", func(r chi.Router) {
			r.Post("/apply", s.handleApply)
			r.With(s.authenticate, requireExecutive).Get("/applications", s.handleListApplications)
			r.With(s.authenticate, requireExecutive).Get("/applications/{applicationID}", s.handleGetApplication)
			r.With(s.authenticate, requireExecutive).Put("/applications/{applicationID}/review", s.handleReviewApplication)
			r.With(s.authenticate, requireExecutive).Get("/stats", s.handleApplicationStats)
		})

		r.Route("/membership-requests", func(r chi.Router) {
			r.Post("/", s.handleSubmitRequest)
			r.With(s.authenticate, requireAdmin).Get("/", s.handleListRequests)
			r.With(s.authenticate, requireAdmin).Get("/stats", s.handleRequestStats)
			r.With(s.authenticate, requireAdmin).Put("/{requestID}/approve", s.handleApproveRequest)
			r.With(s.authenticate, requireAdmin).Put("/{requestID}/reject", s.handleRejectRequest)
		})

		r.Route("/partners", func(r chi.Router) {
			r.Get("/", s.handleListPartners)
			r.With(s.authenticate, requireExecutive).Post("/", s.handleCreatePartner)
			r.Get("/{partnerID}", s.handleGetPartner)
			r.With(s.authenticate, requireExecutive).Put("/{partnerID}", s.handleUpdatePartner)
			r.With(s.authenticate, requireExecutive).Delete("/{partnerID}", s.handleDeletePartner)
		})
	})

	return r
}

type healthResponse struct {
	Success     bool      `json:"success"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Environment string    `json:"environment,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Status:    "OK",
		Message:   "clubhub API is running",
		Timestamp: s.now(),
		Version:   Version,
	})
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:     true,
		Status:      "OK",
		Message:     "clubhub API is running",
		Timestamp:   s.now(),
		Version:     Version,
		Environment: s.cfg.Environment,
	})
}

func (s *Server) handleAPIInfo(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, "clubhub API", map[string]interface{}{
		"version": Version,
		"endpoints": []string{
			"/api/auth",
			"/api/users",
			"/api/activities",
			"/api/attendance",
			"/api/exams",
			"/api/membership",
			"/api/membership-requests",
			"/api/partners",
		},
	})
}
