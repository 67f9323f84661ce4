// Package service contains the application services of the portal:
// authentication, documents, history, groups, taxonomy and collaborators.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/vgents/portaljuridico/internal/crypto"
	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/limiter"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
)

// AuthService defines authentication and bootstrap operations.
type AuthService interface {
	PasswordChecker
	// Login applies rate-limiting by (email, ip) and authenticates the user.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// EnsureAdmin creates the bootstrap administrator when the email is unknown.
	EnsureAdmin(ctx context.Context, email, password string) error
}

// AuthServiceImpl implements AuthService with HS256 access tokens.
type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	log       *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, log: log.Named("auth")}
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.Salt, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID int64) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// ConfirmPassword re-checks the password of an authenticated user.
// A wrong password is (false, nil); a failed lookup is a generic error.
func (s *AuthServiceImpl) ConfirmPassword(ctx context.Context, userID int64, password string) (bool, error) {
	if userID == 0 || password == "" {
		return false, nil
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.Warn("password confirmation lookup failed", zap.Int64("user", userID), zap.Error(err))
		return false, errors.New("password verification failed")
	}
	return pkgcrypto.VerifyPassword([]byte(password), u.Salt, u.PwdHash), nil
}

// EnsureAdmin creates an Administrador account for email unless one exists.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	u, err := createUser(ctx, s.users, NewUser{
		Nome:     "Administrador",
		Email:    email,
		Profile:  model.ProfileAdmin,
		Password: password,
	})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap administrator created", zap.Int64("id", u.ID), zap.String("email", u.Email))
	return nil
}
