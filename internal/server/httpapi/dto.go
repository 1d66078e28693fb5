package httpapi

import (
	"time"

	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/services"
)

type userResponse struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// sessionResponse deliberately omits the token value: it is shown once, at
// login, and never again.
type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

func toSessionResponses(tokens []*models.SessionToken) []sessionResponse {
	out := make([]sessionResponse, 0, len(tokens))
	for _, st := range tokens {
		out = append(out, sessionResponse{
			ID:         st.ID,
			DeviceInfo: st.DeviceInfo,
			IPAddress:  st.IPAddress,
			CreatedAt:  st.CreatedAt,
			ExpiresAt:  st.ExpiresAt,
			LastUsedAt: st.LastUsedAt,
		})
	}
	return out
}

type onlineUserResponse struct {
	User     userResponse      `json:"user"`
	Sessions []sessionResponse `json:"sessions"`
}

func toOnlineUserResponses(online []*services.OnlineUser) []onlineUserResponse {
	out := make([]onlineUserResponse, 0, len(online))
	for _, entry := range online {
		out = append(out, onlineUserResponse{
			User:     toUserResponse(entry.User),
			Sessions: toSessionResponses(entry.Sessions),
		})
	}
	return out
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	SignedToken string    `json:"signed_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	DeviceInfo  string    `json:"device_info"`
}
