package httpapi

import (
	"bytes"
	"chat-presence/auth"
	"chat-presence/repositories"
	"chat-presence/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var fastParams = auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type apiFixture struct {
	server *httptest.Server
	db     *badger.DB
	tokens *auth.TokenManager
}

func newAPIFixture(t *testing.T) apiFixture {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tokens := auth.NewTokenManager("test_secret_with_enough_entropy_2026", time.Hour)
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens, fastParams)
	gateway := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	mux := Routes(log, NewAuthHandler(log, authService), auth.NewJWTVerifier(tokens), gateway)
	mux.Method(http.MethodGet, "/debug/inspect", InspectHandler(db, nil, func() map[string]any {
		return map[string]any{"connections": 0}
	}))
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})
	return apiFixture{server: server, db: db, tokens: tokens}
}

func (f apiFixture) post(t *testing.T, path string, body any) *http.Response {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) SessionResponse {
	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func TestAuthEndpoints(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	registration := RegisterRequest{Email: "alice@example.com", Password: "ComplexPass123!", FullName: "Alice"}

	// Given a registered user
	resp := f.post(t, "/auth/register", registration)
	req.Equal(http.StatusCreated, resp.StatusCode)
	registered := decodeSession(t, resp)
	req.NotEmpty(registered.Token)
	req.Equal("Alice", registered.FullName)

	// When registering the same email again
	resp = f.post(t, "/auth/register", registration)

	// Then it conflicts
	req.Equal(http.StatusConflict, resp.StatusCode)

	// When logging in
	resp = f.post(t, "/auth/login", LoginRequest{Email: "alice@example.com", Password: "ComplexPass123!"})
	req.Equal(http.StatusOK, resp.StatusCode)
	loggedIn := decodeSession(t, resp)
	req.Equal(registered.UserID, loggedIn.UserID)

	// Then the token passes check-status
	statusReq, err := http.NewRequest(http.MethodGet, f.server.URL+"/auth/check-status", nil)
	req.NoError(err)
	statusReq.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	statusResp, err := http.DefaultClient.Do(statusReq)
	req.NoError(err)
	defer statusResp.Body.Close()
	req.Equal(http.StatusOK, statusResp.StatusCode)
	req.Equal(registered.UserID, decodeSession(t, statusResp).UserID)
}

func TestAuthEndpoints_Failures(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("should reject a weak password", func(t *testing.T) {
		resp := f.post(t, "/auth/register", RegisterRequest{Email: "bob@example.com", Password: "short", FullName: "Bob"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("should reject a malformed body", func(t *testing.T) {
		resp, err := http.Post(f.server.URL+"/auth/register", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("should reject unknown credentials", func(t *testing.T) {
		resp := f.post(t, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "ComplexPass123!"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should reject check-status without token", func(t *testing.T) {
		resp, err := http.Get(f.server.URL + "/auth/check-status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should route the gateway upgrade", func(t *testing.T) {
		resp, err := http.Get(f.server.URL + "/ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
}

func (f apiFixture) getWithRoles(t *testing.T, path string, roles ...string) *http.Response {
	token, err := f.tokens.Generate("u-"+path, roles)
	require.NoError(t, err)
	r, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoleProtectedEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("should let a user reach the private route", func(t *testing.T) {
		req := require.New(t)

		resp := f.getWithRoles(t, "/auth/private", auth.RoleUser)

		req.Equal(http.StatusOK, resp.StatusCode)
		var body PrivateResponse
		req.NoError(json.NewDecoder(resp.Body).Decode(&body))
		req.True(body.OK)
		req.Equal([]string{auth.RoleUser}, body.Roles)
	})

	t.Run("should forbid the admin route to a user", func(t *testing.T) {
		resp := f.getWithRoles(t, "/auth/admin", auth.RoleUser)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("should open the admin route to an admin", func(t *testing.T) {
		req := require.New(t)

		resp := f.getWithRoles(t, "/auth/admin", auth.RoleAdmin)

		req.Equal(http.StatusOK, resp.StatusCode)
		var body PrivateResponse
		req.NoError(json.NewDecoder(resp.Body).Decode(&body))
		req.Equal("u-/auth/admin", body.UserID)
	})

	t.Run("should forbid a token without roles", func(t *testing.T) {
		resp := f.getWithRoles(t, "/auth/private")
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("should reject the admin route without token", func(t *testing.T) {
		resp, err := http.Get(f.server.URL + "/auth/admin")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestInspectHandler(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	resp := f.post(t, "/auth/register", RegisterRequest{Email: "alice@example.com", Password: "ComplexPass123!", FullName: "Alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)

	inspectResp, err := http.Get(f.server.URL + "/debug/inspect?prefix=user:email:")
	req.NoError(err)
	defer inspectResp.Body.Close()

	var page InspectPage
	req.NoError(json.NewDecoder(inspectResp.Body).Decode(&page))
	req.Equal("user:email:", page.Prefix)
	req.Len(page.Items, 1)
	req.Equal("user", page.Items[0].Namespace)
	req.Equal("email", page.Items[0].Index)
	req.Equal("alice@example.com", page.Items[0].EntityID)
	req.EqualValues(0, page.Stats["connections"])
}

func TestDefaultMapper(t *testing.T) {
	req := require.New(t)

	row := DefaultMapper("raw", 12)

	req.Equal("default", row.Namespace)
	req.Equal("Size: 12 bytes", row.Detail)
}
