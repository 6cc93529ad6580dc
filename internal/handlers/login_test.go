package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storelink/internal/db/dbtest"
	"storelink/internal/security"
)

func loginFixture(t *testing.T) (*LoginHandler, *dbtest.Fake, *security.SessionIssuer) {
	t.Helper()
	hash, err := security.HashPassword("correct horse")
	require.NoError(t, err)

	fake := dbtest.New()
	fake.Queries[`FROM "admin_users"`] = func(args []any) ([]any, error) {
		if args[0] == "admin" {
			return []any{int64(1), "admin", hash}, nil
		}
		return dbtest.NoRows(args)
	}

	cfg := testConfig()
	sessions, err := security.NewSessionIssuer(cfg.Session.JWTSecret, cfg.Session.TTL)
	require.NoError(t, err)
	h, err := NewLoginHandler(cfg, testDeps(fake), sessions)
	require.NoError(t, err)
	return h, fake, sessions
}

func TestLoginSuccess(t *testing.T) {
	h, _, sessions := loginFixture(t)

	resp, err := h.Handle(context.Background(), jsonRequest(http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "correct horse",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/dashboard.html", body["redirect"])

	claims, err := sessions.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	require.Len(t, resp.Cookies, 1)
	assert.True(t, strings.HasPrefix(resp.Cookies[0], "admin_session="))
	assert.Contains(t, resp.Cookies[0], "HttpOnly")
	assert.Contains(t, resp.Cookies[0], "Secure")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h, _, _ := loginFixture(t)

	wrong, err := h.Handle(context.Background(), jsonRequest(http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "nope",
	}))
	require.NoError(t, err)
	unknown, err := h.Handle(context.Background(), jsonRequest(http.MethodPost, "/login", map[string]string{
		"username": "ghost",
		"password": "nope",
	}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, wrong.Body, unknown.Body)
	assert.Empty(t, wrong.Cookies)
	assert.Empty(t, unknown.Cookies)
}

func TestLoginFailureHidesDetailEvenInDebug(t *testing.T) {
	h, _, _ := loginFixture(t)
	h.cfg.DebugErrors = true

	resp, err := h.Handle(context.Background(), jsonRequest(http.MethodPost, "/login", map[string]string{
		"username": "ghost",
		"password": "nope",
	}))
	require.NoError(t, err)
	assert.NotContains(t, decodeBody(t, resp), "detail")
}

func TestLoginFormBody(t *testing.T) {
	h, _, _ := loginFixture(t)
	req := request(http.MethodPost, "/login", nil)
	req.Headers["content-type"] = "application/x-www-form-urlencoded"
	req.Body = "username=admin&password=correct+horse"

	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsNonPost(t *testing.T) {
	h, fake, _ := loginFixture(t)
	resp, err := h.Handle(context.Background(), request(http.MethodGet, "/login", map[string]string{
		"username": "admin",
		"password": "correct horse",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Zero(t, fake.Connects)
}

func TestLoginMissingFields(t *testing.T) {
	h, fake, _ := loginFixture(t)
	resp, err := h.Handle(context.Background(), jsonRequest(http.MethodPost, "/login", map[string]string{"username": "admin"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing password", decodeBody(t, resp)["error"])
	assert.Zero(t, fake.Connects)
}

func TestLoginIgnoresQueryCredentials(t *testing.T) {
	h, fake, _ := loginFixture(t)
	resp, err := h.Handle(context.Background(), request(http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "correct horse",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing username", decodeBody(t, resp)["error"])
	assert.Empty(t, resp.Cookies)
	assert.Zero(t, fake.Connects)

	req := jsonRequest(http.MethodPost, "/login", map[string]string{"username": "admin"})
	req.QueryStringParameters = map[string]string{"password": "correct horse"}
	resp, err = h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "missing password", decodeBody(t, resp)["error"])
}
