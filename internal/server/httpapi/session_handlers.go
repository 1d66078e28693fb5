package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	tokens, err := s.sessions.ListSessions(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponses(tokens))
}

func (s *Server) handleRevokeOwnSession(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	if err := s.sessions.RevokeOwn(r.Context(), mux.Vars(r)["id"], caller.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Session revoked."})
}

func (s *Server) handleListOnline(w http.ResponseWriter, r *http.Request) {
	online, err := s.sessions.ListOnlineUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnlineUserResponses(online))
}

func (s *Server) handleRevokeAnySession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.RevokeAdmin(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Session revoked."})
}

// handleForceLogout revokes every session a user holds.
func (s *Server) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.RevokeAllForUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "User logged out."})
}
