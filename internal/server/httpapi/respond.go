package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Login failures keep their user-facing countdown messages; everything else
// gets a generic message for its class so internals do not leak.
func writeServiceError(w http.ResponseWriter, err error) {
	var locked *services.LockedError
	if errors.As(err, &locked) {
		writeJSONError(w, http.StatusUnauthorized,
			fmt.Sprintf("Account locked. Try again in %d minutes.", locked.RetryAfterMinutes))
		return
	}

	var invalid *services.InvalidCredentialsError
	if errors.As(err, &invalid) {
		if invalid.JustLocked {
			writeJSONError(w, http.StatusUnauthorized,
				"Invalid username or password. Account locked.")
			return
		}
		writeJSONError(w, http.StatusUnauthorized,
			fmt.Sprintf("Invalid username or password. %d attempts remaining.", invalid.RemainingAttempts))
		return
	}

	switch {
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password.")
	case errors.Is(err, common.ErrorUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSONError(w, http.StatusUnauthorized, "Not authenticated.")
	case errors.Is(err, common.ErrorForbidden):
		writeJSONError(w, http.StatusForbidden, "Not enough privileges.")
	case errors.Is(err, common.ErrorNotFound):
		writeJSONError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeJSONError(w, http.StatusConflict, "Already exists.")
	default:
		writeJSONError(w, http.StatusInternalServerError, "Internal server error.")
	}
}
