package httpapi

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "username, email and password are required.")
		return
	}

	user, err := s.users.Register(r.Context(), req.UserName, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// handleLogin accepts the OAuth2 password-grant form shape: urlencoded
// username and password fields, bearer token response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form payload.")
		return
	}
	userName := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if userName == "" || password == "" {
		writeJSONError(w, http.StatusBadRequest, "username and password are required.")
		return
	}

	result, err := s.auth.Login(r.Context(), userName, password, clientMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: result.SessionToken,
		SignedToken: result.SignedToken,
		TokenType:   "bearer",
		ExpiresAt:   result.ExpiresAt,
		DeviceInfo:  result.DeviceInfo,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserResponse(userFromContext(r.Context())))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	if err := s.sessions.Logout(r.Context(), tokenFromContext(r.Context()), caller.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Logged out."})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	if err := s.sessions.RevokeAllForUser(r.Context(), caller.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Logged out everywhere."})
}
