package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/services"
)

type contextKey int

const (
	userContextKey contextKey = iota
	tokenContextKey
)

// userFromContext returns the authenticated caller, nil for anonymous
// requests that passed through optional authentication.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// tokenFromContext returns the raw bearer token the caller presented.
func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// clientMeta derives session metadata from the request. The first
// X-Forwarded-For hop wins over the socket address when a proxy is in front.
func clientMeta(r *http.Request) services.ClientMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return services.ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: ip,
	}
}

// requireAuth resolves the bearer token to a user and stores both on the
// request context. Requests without a valid token are refused with 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus an admin check.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !userFromContext(r.Context()).IsAdmin {
			writeServiceError(w, common.ErrorForbidden)
			return
		}
		next(w, r)
	})
}
