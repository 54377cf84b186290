package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-user-service/internal/model"
	"go-user-service/internal/security"
	"go-user-service/pkg/apierror"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
	List(ctx context.Context) ([]model.UserSummary, error)
}

type TokenRepository interface {
	Save(ctx context.Context, t model.RefreshToken) (model.RefreshToken, error)
}

// AuthService orchestrates signup, login and bearer-token authentication on
// top of the credential hasher, the token manager and the two repositories.
// It holds no mutable state; every call is independent.
type AuthService struct {
	users  UserRepository
	tokens TokenRepository
	hasher *security.Hasher
	jwt    *security.TokenManager
}

func NewAuthService(users UserRepository, tokens TokenRepository, hasher *security.Hasher, jwt *security.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher, jwt: jwt}
}

func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return model.User{}, apierror.New("BAD_REQUEST", "username, email and password are required", "", http.StatusBadRequest)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, err
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrDuplicateUser) {
		return model.User{}, apierror.New("CONFLICT", "username or email already taken", "", http.StatusConflict)
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, unauthorized("invalid credentials")
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return model.TokenPair{}, unauthorized("invalid credentials")
	}

	accessToken, err := s.jwt.IssueAccessToken(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	jti, err := security.GenerateJTI()
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.jwt.IssueRefreshToken(user.ID, jti)
	if err != nil {
		return model.TokenPair{}, err
	}

	if _, err := s.tokens.Save(ctx, model.RefreshToken{
		UserID:    user.ID,
		JTI:       jti,
		Token:     refreshToken,
		ExpiresAt: time.Now().UTC().Add(s.jwt.RefreshTTL()),
	}); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// Authenticate validates a bearer access token and loads its owner. Every
// rejection reason (expired, malformed, wrong type, missing claims, unknown
// user) collapses into the same outward UNAUTHORIZED; the cause is only
// logged.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (model.User, error) {
	claims, err := s.jwt.DecodeAndValidate(tokenString, security.TokenTypeAccess)
	if err != nil {
		slog.Debug("access token rejected", "reason", err)
		return model.User{}, unauthorized("invalid or expired token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		slog.Debug("access token rejected", "reason", "user no longer exists", "user_id", claims.UserID)
		return model.User{}, unauthorized("invalid or expired token")
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	return s.users.List(ctx)
}

func (s *AuthService) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	user.UpdatedAt = time.Now().UTC()

	return s.users.Update(ctx, user)
}

func unauthorized(message string) error {
	return apierror.New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}
