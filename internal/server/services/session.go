package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/logging"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/repositories/repomanager"
)

// OnlineUser pairs a user with their live sessions for the privileged
// online-users view.
type OnlineUser struct {
	User     *models.User
	Sessions []*models.SessionToken
}

// SessionService provides session oversight: listing, revocation, and
// logout. Expired tokens are swept opportunistically before listing
// operations; a production deployment should additionally run the sweep on
// a timer.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "session_service"),
	}
}

// ListSessions returns the user's active, non-expired sessions, most
// recently used first.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]*models.SessionToken, error) {
	now := time.Now()
	repo := s.repomanager.Sessions(s.db)

	s.sweep(ctx, now)

	tokens, err := repo.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return tokens, nil
}

// ListOnlineUsers returns every user holding at least one live session,
// with their session sets. Users are ordered by most recent activity;
// within a user, sessions are most recently used first. Privilege is
// checked by the caller.
func (s *SessionService) ListOnlineUsers(ctx context.Context) ([]*OnlineUser, error) {
	now := time.Now()

	s.sweep(ctx, now)

	tokens, err := s.repomanager.Sessions(s.db).ListActive(ctx, now)
	if err != nil {
		return nil, common.ErrorInternal
	}

	usersRepo := s.repomanager.Users(s.db)

	byUser := make(map[string]*OnlineUser)
	var result []*OnlineUser
	for _, token := range tokens {
		entry, ok := byUser[token.UserID]
		if !ok {
			user, err := usersRepo.GetByID(ctx, token.UserID)
			if err != nil {
				// Cascade delete can race the listing; skip the orphan.
				if errors.Is(err, common.ErrorNotFound) {
					continue
				}
				return nil, common.ErrorInternal
			}
			entry = &OnlineUser{User: user}
			byUser[token.UserID] = entry
			result = append(result, entry)
		}
		entry.Sessions = append(entry.Sessions, token)
	}

	sortOnlineUsersByRecency(result)
	return result, nil
}

// sortOnlineUsersByRecency orders users by their most recently used session.
// Sessions within each user are already sorted by the store.
func sortOnlineUsersByRecency(users []*OnlineUser) {
	sort.Slice(users, func(i, j int) bool {
		return mostRecent(users[i]).After(mostRecent(users[j]))
	})
}

func mostRecent(u *OnlineUser) time.Time {
	if len(u.Sessions) == 0 {
		return time.Time{}
	}
	return u.Sessions[0].LastUsedAt
}

// RevokeOwn deactivates one of the caller's own sessions by id. A token
// that does not exist, is already inactive, or belongs to someone else is
// ErrorNotFound — never Forbidden, so foreign token ids do not leak.
func (s *SessionService) RevokeOwn(ctx context.Context, tokenID, callerID string) error {
	return s.deactivateByID(ctx, tokenID, callerID)
}

// RevokeAdmin deactivates any session by id, without an ownership check.
// Same not-found semantics as RevokeOwn, including for already-inactive
// tokens (revocation is not idempotent by design: the caller learns the
// token was already gone).
func (s *SessionService) RevokeAdmin(ctx context.Context, tokenID string) error {
	return s.deactivateByID(ctx, tokenID, "")
}

func (s *SessionService) deactivateByID(ctx context.Context, tokenID, scopeUserID string) error {
	err := s.repomanager.Sessions(s.db).DeactivateByID(ctx, tokenID, scopeUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "session revoked", "token_id", tokenID)
	return nil
}

// RevokeAllForUser deactivates every session the user holds. Backs both
// self-service "logout everywhere" and the privileged force-logout.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.repomanager.Sessions(s.db).DeactivateAllForUser(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	s.logger.Info(ctx, "all sessions revoked", "user_id", userID)
	return nil
}

// Logout ends the caller's current session. When the presented token is an
// active persistent session, exactly that session is deactivated. When the
// caller authenticated via a signed token there is nothing to revoke
// directly, so the caller's most recently used persistent session is
// deactivated as a best-effort substitute. With several live sessions this
// can pick one that is not the session actually terminating; the imprecision
// is inherited from the stateless token and accepted.
func (s *SessionService) Logout(ctx context.Context, presentedToken, callerID string) error {
	repo := s.repomanager.Sessions(s.db)

	err := repo.Deactivate(ctx, presentedToken)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return common.ErrorInternal
	}

	session, err := repo.MostRecentActive(ctx, callerID, time.Now())
	if err != nil {
		// No persistent session left to revoke; logout is still a success
		// from the caller's point of view.
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	return s.deactivateByID(ctx, session.ID, callerID)
}

// sweep bulk-deactivates expired tokens. Failures are logged, not
// propagated: listings still work against the expiry predicate.
func (s *SessionService) sweep(ctx context.Context, now time.Time) {
	n, err := s.repomanager.Sessions(s.db).SweepExpired(ctx, now)
	if err != nil {
		s.logger.Error(ctx, "expired session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "expired sessions deactivated", "count", n)
	}
}
