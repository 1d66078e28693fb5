// Package services contains server-side business logic. This file implements
// AuthService, which handles login with brute-force lockout and resolves
// presented tokens back to users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/dbx"
	"github.com/navhub/navhub/internal/logging"
	"github.com/navhub/navhub/internal/server/auth"
	"github.com/navhub/navhub/internal/server/config"
	"github.com/navhub/navhub/internal/server/device"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/repositories/repomanager"
)

// sessionTokenBytes gives 256 bits of entropy per opaque token.
const sessionTokenBytes = 32

// ClientMeta carries request metadata recorded on the session for the
// device list UI.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// LoginResult is the successful login response: a persistent session token,
// a stateless signed token, the session expiry, and the derived device
// descriptor.
type LoginResult struct {
	SessionToken string
	SignedToken  string
	ExpiresAt    time.Time
	DeviceInfo   string
	User         *models.User
}

// tokenVerdict is the tri-state outcome of one verifier in the
// authentication chain.
type tokenVerdict int

const (
	verdictHit tokenVerdict = iota
	verdictMiss
	verdictError
)

type tokenVerifier func(ctx context.Context, token string, now time.Time) (*models.User, tokenVerdict, error)

// AuthService implements credential verification with lockout and the
// dual-mode token lifecycle.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	logger      logging.Logger
	secretKey   []byte

	sessionTokenValidityDuration time.Duration
	signedTokenValidityDuration  time.Duration

	// Ordered verifier chain. Persistent tokens come first so revocation
	// takes effect immediately even while a signed token for the same
	// session is still unexpired.
	verifiers []tokenVerifier
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *AuthService {
	s := &AuthService{
		db:                           db,
		repomanager:                  m,
		hasher:                       auth.NewHasher(cfg.BcryptCost),
		logger:                       l.With("module", "auth_service"),
		secretKey:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		signedTokenValidityDuration:  cfg.SignedTokenValidityDuration,
	}
	s.verifiers = []tokenVerifier{s.verifyPersistentToken, s.verifySignedToken}
	return s
}

// Login verifies the password for userName under the lockout policy and, on
// success, issues a session token plus a signed token.
//
// Failure modes:
//   - active lock: *LockedError with the countdown in whole minutes
//   - wrong password, known user: *InvalidCredentialsError with the
//     post-increment remaining-attempts count; the increment and any lock it
//     triggers commit atomically even though the login fails
//   - unknown user: bare common.ErrorInvalidCredentials
func (s *AuthService) Login(ctx context.Context, userName, password string, meta ClientMeta) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorInternal
	}
	if !user.IsActive {
		return nil, common.ErrorInvalidCredentials
	}

	now := time.Now()

	decision := auth.EvaluateLockout(now, user.FailedAttempts, user.LockedUntil)
	switch decision.Outcome {
	case auth.LockoutLocked:
		return nil, &LockedError{RetryAfterMinutes: auth.RetryAfterMinutes(decision.Remaining)}
	case auth.LockoutAllowedAfterAutoUnlock:
		if err := repo.ResetLockState(ctx, user.ID, now); err != nil {
			return nil, common.ErrorInternal
		}
		s.logger.Info(ctx, "lock window elapsed, attempt counter reset", "username", userName)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.recordFailedAttempt(ctx, user, now)
	}

	if err := repo.ResetLockState(ctx, user.ID, now); err != nil {
		return nil, common.ErrorInternal
	}

	result, err := s.issueTokens(ctx, user, meta, now)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login succeeded", "username", userName, "device", result.DeviceInfo)
	return result, nil
}

// recordFailedAttempt commits the counter increment and, when the counter
// reaches the limit, the lock timestamp in one transaction. The increment is
// a single atomic statement, so concurrent failures each advance the counter
// exactly once; the lock write is guarded to fire at most once.
func (s *AuthService) recordFailedAttempt(ctx context.Context, user *models.User, now time.Time) error {
	var attempts int

	err := s.runInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		var err error
		attempts, err = repo.IncrementFailedAttempts(ctx, user.ID, now)
		if err != nil {
			return err
		}
		if attempts >= auth.MaxFailedAttempts {
			return repo.LockUntil(ctx, user.ID, now.Add(auth.LockDuration))
		}
		return nil
	})
	if err != nil {
		return common.ErrorInternal
	}

	if attempts >= auth.MaxFailedAttempts {
		s.logger.Warn(ctx, "account locked after repeated failures", "username", user.UserName)
	}

	return &InvalidCredentialsError{
		RemainingAttempts: auth.RemainingAttempts(attempts),
		JustLocked:        attempts >= auth.MaxFailedAttempts,
	}
}

// runInTx wraps fn in a database transaction. The in-memory repository
// manager runs without a *sql.DB; its repositories serialize internally, so
// fn runs directly in that case.
func (s *AuthService) runInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User, meta ClientMeta, now time.Time) (*LoginResult, error) {
	opaque, err := common.MakeRandURLString(sessionTokenBytes)
	if err != nil {
		return nil, err
	}

	session := &models.SessionToken{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Token:      opaque,
		DeviceInfo: device.Describe(meta.UserAgent),
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTokenValidityDuration),
		LastUsedAt: now,
		IsActive:   true,
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, err
	}

	signed, err := auth.GenerateSignedToken(user.UserName, s.secretKey, s.signedTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		SessionToken: opaque,
		SignedToken:  signed,
		ExpiresAt:    session.ExpiresAt,
		DeviceInfo:   session.DeviceInfo,
		User:         user,
	}, nil
}

// Authenticate resolves a presented token to its user by walking the
// verifier chain in priority order, short-circuiting on the first hit.
// Every validation failure collapses to common.ErrorUnauthenticated; the
// caller learns nothing about why the token was refused.
func (s *AuthService) Authenticate(ctx context.Context, presented string) (*models.User, error) {
	if presented == "" {
		return nil, common.ErrorUnauthenticated
	}

	now := time.Now()
	for _, verify := range s.verifiers {
		user, verdict, err := verify(ctx, presented, now)
		switch verdict {
		case verdictHit:
			return user, nil
		case verdictError:
			s.logger.Error(ctx, "token verification failed", "error", err)
			return nil, common.ErrorInternal
		}
	}
	return nil, common.ErrorUnauthenticated
}

// AuthenticateOptional is the anonymous-tolerant variant: a missing or
// invalid token yields (nil, nil) instead of an error.
func (s *AuthService) AuthenticateOptional(ctx context.Context, presented string) (*models.User, error) {
	user, err := s.Authenticate(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// verifyPersistentToken resolves the token against the session store and
// stamps last_used_at on a hit (write-through, every validation).
func (s *AuthService) verifyPersistentToken(ctx context.Context, token string, now time.Time) (*models.User, tokenVerdict, error) {
	sessionsRepo := s.repomanager.Sessions(s.db)

	session, err := sessionsRepo.FindActive(ctx, token, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, verdictMiss, nil
		}
		return nil, verdictError, err
	}

	if err := sessionsRepo.Touch(ctx, token, now); err != nil {
		return nil, verdictError, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, verdictMiss, nil
		}
		return nil, verdictError, err
	}
	if !user.IsActive {
		return nil, verdictMiss, nil
	}
	return user, verdictHit, nil
}

// verifySignedToken checks the stateless fallback path: signature and
// expiry verify offline, then the embedded subject must resolve to an
// existing active user.
func (s *AuthService) verifySignedToken(ctx context.Context, token string, now time.Time) (*models.User, tokenVerdict, error) {
	subject, err := auth.GetSubjectFromSignedToken(token, s.secretKey)
	if err != nil {
		return nil, verdictMiss, nil
	}

	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, verdictMiss, nil
		}
		return nil, verdictError, fmt.Errorf("resolving signed token subject: %w", err)
	}
	if !user.IsActive {
		return nil, verdictMiss, nil
	}
	return user, verdictHit, nil
}
