// Package httpapi exposes the authentication and session services over a
// JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/navhub/navhub/internal/logging"
	"github.com/navhub/navhub/internal/server/services"
)

type Server struct {
	addr     string
	logger   logging.Logger
	auth     *services.AuthService
	sessions *services.SessionService
	users    *services.UserService
}

func NewServer(addr string, l logging.Logger, auth *services.AuthService,
	sessions *services.SessionService, users *services.UserService) *Server {
	return &Server{
		addr:     addr,
		logger:   l.With("module", "httpapi"),
		auth:     auth,
		sessions: sessions,
		users:    users,
	}
}

// Router builds the route table. Exposed separately from Run so tests can
// drive it through httptest.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/token", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", s.requireAuth(s.handleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout_all", s.requireAuth(s.handleLogoutAll)).Methods(http.MethodPost)

	r.HandleFunc("/sessions", s.requireAuth(s.handleListSessions)).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.requireAuth(s.handleRevokeOwnSession)).Methods(http.MethodDelete)

	r.HandleFunc("/admin/online", s.requireAdmin(s.handleListOnline)).Methods(http.MethodGet)
	r.HandleFunc("/admin/sessions/{id}", s.requireAdmin(s.handleRevokeAnySession)).Methods(http.MethodDelete)
	r.HandleFunc("/admin/users/{id}/logout", s.requireAdmin(s.handleForceLogout)).Methods(http.MethodPost)

	r.HandleFunc("/users", s.requireAuth(s.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.requireAuth(s.handleGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.requireAuth(s.handleUpdateUser)).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}", s.requireAuth(s.handleDeleteUser)).Methods(http.MethodDelete)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	return handlers.LoggingHandler(os.Stdout, cors(r))
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.Router(),
		Addr:         s.addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
