package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plancore/api/internal/config"
	"plancore/api/internal/ids"
	"plancore/api/internal/models"
	"plancore/api/internal/repository"
	"plancore/api/internal/security"
)

var (
	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
)

// UserStore is the credential-store surface the authenticator consumes.
type UserStore interface {
	FindByLogin(ctx context.Context, login string) (models.User, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int) (int, bool, error)
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
}

// LoginLogStore appends audit records for login attempts.
type LoginLogStore interface {
	Insert(ctx context.Context, entry models.LoginLog) error
}

type AuthService struct {
	users UserStore
	audit LoginLogStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, audit LoginLogStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		audit: audit,
		cfg:   cfg,
		log:   log,
	}
}

type LoginInput struct {
	Login     string // username or email
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	Token string
	User  models.User
}

// Login runs one authentication attempt. Lockout and the audit record are
// persisted on every path, including the ones that end in an error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	input.Login = strings.TrimSpace(input.Login)

	user, err := s.users.FindByLogin(ctx, input.Login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.writeAudit(ctx, nil, input, models.LoginTypeFailed, "user not found")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	// Locked accounts are rejected before the password compare so the
	// response can never reveal whether the password was correct.
	if user.IsLocked {
		s.writeAudit(ctx, &user, input, models.LoginTypeFailed, "account locked")
		return LoginResult{}, ErrAccountLocked
	}

	if !user.IsActive {
		s.writeAudit(ctx, &user, input, models.LoginTypeFailed, "account inactive")
		return LoginResult{}, ErrAccountInactive
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		count, locked, err := s.users.RecordLoginFailure(ctx, user.ID, s.cfg.Security.LockoutThreshold)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("record login failure")
		} else if locked {
			s.log.Warn().
				Str("user_id", user.ID).
				Int("failed_count", count).
				Msg("account locked after repeated failures")
		}
		s.writeAudit(ctx, &user, input, models.LoginTypeFailed, "wrong password")
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, time.Now()); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("record login success")
	}

	token, err := security.IssueAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		user.Username,
		user.Role.Code,
		s.cfg.Security.JWTTTL,
	)
	if err != nil {
		return LoginResult{}, err
	}

	s.writeAudit(ctx, &user, input, models.LoginTypeSuccess, "")

	return LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) writeAudit(ctx context.Context, user *models.User, input LoginInput, loginType models.LoginType, reason string) {
	entry := models.LoginLog{
		ID:           ids.New(),
		Username:     input.Login,
		LoginType:    loginType,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		FailedReason: reason,
		CreatedAt:    time.Now(),
	}
	if user != nil {
		entry.UserID = &user.ID
		entry.Username = user.Username
	}

	if err := s.audit.Insert(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("username", entry.Username).Msg("write login audit")
	}
}
