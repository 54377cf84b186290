package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-user-service/internal/config"
	"go-user-service/internal/handler"
	"go-user-service/internal/middleware"
	"go-user-service/internal/model"
	"go-user-service/internal/security"
	"go-user-service/internal/service"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]model.User{}}
}

func (f *fakeUserRepo) FindByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return model.User{}, fmt.Errorf("%w: username", model.ErrDuplicateUser)
		}
		if existing.Email == u.Email {
			return model.User{}, fmt.Errorf("%w: email", model.ErrDuplicateUser)
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return model.User{}, model.ErrUserNotFound
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UserSummary, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, model.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return out, nil
}

type fakeTokenRepo struct {
	mu   sync.Mutex
	rows []model.RefreshToken
}

func (f *fakeTokenRepo) Save(_ context.Context, t model.RefreshToken) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.JTI == t.JTI || row.Token == t.Token {
			return model.RefreshToken{}, model.ErrDuplicateToken
		}
	}
	t.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, t)
	return t, nil
}

type testEnv struct {
	server  *httptest.Server
	users   *fakeUserRepo
	tokens  *fakeTokenRepo
	manager *security.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		ServerPort:     "0",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}

	manager, err := security.NewTokenManager("test-secret", "HS256", 30*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	users := newFakeUserRepo()
	tokens := &fakeTokenRepo{}
	svc := service.NewAuthService(users, tokens, security.NewHasher(bcrypt.MinCost), manager)

	h := New(cfg,
		middleware.NewAuthMiddleware(svc),
		handler.NewAuthHandler(svc),
		handler.NewUserHandler(svc),
	)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: users, tokens: tokens, manager: manager}
}

func (e *testEnv) do(t *testing.T, method string, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func (e *testEnv) signup(t *testing.T, username string, email string, password string) map[string]any {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/users", model.SignupRequest{
		FirstName: "Test",
		LastName:  "User",
		Username:  username,
		Email:     email,
		Password:  password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

func (e *testEnv) login(t *testing.T, username string, password string) (string, string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Username: username,
		Password: password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "bearer", data["token_type"])
	return data["access_token"].(string), data["refresh_token"].(string)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	body := env.signup(t, "alice", "alice@example.com", "s3cret")

	data := body["data"].(map[string]any)
	assert.Equal(t, "alice", data["username"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "password_hash")

	t.Run("duplicate username conflicts", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users", model.SignupRequest{
			Username: "alice",
			Email:    "other@example.com",
			Password: "whatever",
		}, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])
		assert.Len(t, env.users.users, 1)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users", model.SignupRequest{
			Username: "alice2",
			Email:    "alice@example.com",
			Password: "whatever",
		}, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "alice@example.com", "s3cret")

	t.Run("issues validating token pair and persists refresh row", func(t *testing.T) {
		access, refresh := env.login(t, "alice", "s3cret")

		accessClaims, err := env.manager.DecodeAndValidate(access, security.TokenTypeAccess)
		require.NoError(t, err)
		refreshClaims, err := env.manager.DecodeAndValidate(refresh, security.TokenTypeRefresh)
		require.NoError(t, err)
		assert.Equal(t, accessClaims.UserID, refreshClaims.UserID)

		require.Len(t, env.tokens.rows, 1)
		row := env.tokens.rows[0]
		assert.Equal(t, refreshClaims.ID, row.JTI)
		assert.Equal(t, refresh, row.Token)
		assert.Equal(t, refreshClaims.UserID, row.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		before := len(env.tokens.rows)
		resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
			Username: "alice",
			Password: "wrong",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
		assert.Len(t, env.tokens.rows, before)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
			Username: "ghost",
			Password: "whatever",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestListUsersGuard(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "alice@example.com", "s3cret")
	access, refresh := env.login(t, "alice", "s3cret")

	t.Run("no token", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/users", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh token presented as access token", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/users", nil, refresh)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired access token", func(t *testing.T) {
		expiredManager, err := security.NewTokenManager("test-secret", "HS256", -time.Minute, -time.Minute)
		require.NoError(t, err)
		expired, err := expiredManager.IssueAccessToken(1)
		require.NoError(t, err)

		resp, _ := env.do(t, http.MethodGet, "/api/v1/users", nil, expired)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid access token", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users", nil, access)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		users := body["data"].(map[string]any)["users"].([]any)
		require.Len(t, users, 1)
		entry := users[0].(map[string]any)
		assert.Equal(t, "alice", entry["username"])
		assert.Equal(t, "alice@example.com", entry["email"])
	})
}

func TestGetAndUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice", "alice@example.com", "s3cret")

	t.Run("get existing", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/1", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := body["data"].(map[string]any)
		assert.Equal(t, "alice", data["username"])
		assert.NotContains(t, data, "password_hash")
	})

	t.Run("get missing", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/999", nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
	})

	t.Run("get with junk id", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/users/abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("update existing", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/v1/users/1", map[string]string{
			"first_name": "Alicia",
		}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := body["data"].(map[string]any)
		assert.Equal(t, "Alicia", data["first_name"])
		assert.Equal(t, "User", data["last_name"])
	})

	t.Run("update missing", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPut, "/api/v1/users/999", map[string]string{
			"first_name": "Nobody",
		}, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
