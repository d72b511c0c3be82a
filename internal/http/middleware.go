package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/auth"
	"clubhub/internal/db"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
)

type userKey struct{}

type claimsKey struct{}

func currentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey{}).(*model.User)
	return user
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// identify resolves the bearer token to an active user. On failure it returns the status and
// code to respond with.
func (s *Server) identify(r *http.Request) (*model.User, *auth.Claims, int, string) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, nil, http.StatusUnauthorized, "missing_token"
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, http.StatusUnauthorized, "expired_token"
		}
		return nil, nil, http.StatusUnauthorized, "invalid_token"
	}
	revoked, err := s.revoked.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		logger.Error.Printf("revocation lookup for %s: %v", claims.ID, err)
	}
	if revoked {
		return nil, nil, http.StatusUnauthorized, "revoked_token"
	}
	user, err := s.store.Queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, http.StatusUnauthorized, "user_inactive"
		}
		logger.Error.Printf("load user %s: %v", claims.UserID, err)
		return nil, nil, http.StatusInternalServerError, "server_error"
	}
	if !user.IsActive {
		return nil, nil, http.StatusUnauthorized, "user_inactive"
	}
	return &user, claims, 0, ""
}

func withIdentity(r *http.Request, user *model.User, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), userKey{}, user)
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return r.WithContext(ctx)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, status, code := s.identify(r)
		if code != "" {
			writeError(w, status, code)
			return
		}
		next.ServeHTTP(w, withIdentity(r, user, claims))
	})
}

// optionalAuth attaches the caller when the token checks out and otherwise proceeds anonymously.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, claims, _, code := s.identify(r)
		if code != "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withIdentity(r, user, claims))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if !allowed[user.Role] {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	requireMember    = requireRole(model.RoleAdmin, model.RoleExecutive, model.RoleMember)
	requireExecutive = requireRole(model.RoleAdmin, model.RoleExecutive)
	requireAdmin     = requireRole(model.RoleAdmin)
)

// requestLogger logs one line per request and records its duration under the matched route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.APIRequestDuration.WithLabelValues(pattern, r.Method, strconv.Itoa(status)).Observe(elapsed.Seconds())
		logger.Info.Printf("%s %s %d %s req=%s", r.Method, r.URL.Path, status, elapsed.Round(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}

// rateLimit applies the per-address window to /api routes. Limiter failures let the request through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		res, err := s.limiter.Allow(r.Context(), clientAddr(r))
		if err != nil {
			logger.Error.Printf("rate limiter: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		reset := int(time.Until(res.ResetAt).Seconds())
		if reset < 0 {
			reset = 0
		}
		w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("RateLimit-Reset", strconv.Itoa(reset))
		if !res.Allowed {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(reset))
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Success: false,
				Code:    "too_many_requests",
				Message: "Too many requests from this address, please try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the host part of RemoteAddr, which middleware.RealIP has already rewritten.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
