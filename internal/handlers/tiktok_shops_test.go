package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storelink/internal/db/dbtest"
	"storelink/internal/tiktok"
)

const shopsOK = `{"code":0,"message":"Success","data":{"shops":[
	{"id":"7000","name":"Toko A","region":"ID","seller_type":"LOCAL","cipher":"GCP_a","code":"IDLCA"},
	{"id":"7001","name":"Toko B","region":"ID","seller_type":"LOCAL","cipher":"GCP_b","code":"IDLCB"}]}}`

func shopsServer(t *testing.T, body string, token *string) *tiktok.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != nil {
			*token = r.Header.Get("x-tts-access-token")
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := tiktok.NewClient("app-key", "app-secret", srv.URL, srv.URL, time.Second)
	c.APIHost = srv.URL
	return c
}

func storedTikTokToken(fake *dbtest.Fake) {
	fake.Queries["refresh_token <> ''"] = func(args []any) ([]any, error) {
		return []any{"app-key", "ID", "stored-access", "stored-refresh"}, nil
	}
}

func TestTikTokShopsUpsertsByShopID(t *testing.T) {
	fake := dbtest.New()
	storedTikTokToken(fake)
	var token string
	h := NewTikTokShopsHandler(testConfig(), testDeps(fake), shopsServer(t, shopsOK, &token))

	for range 2 {
		resp, err := h.Handle(context.Background(), request(http.MethodGet, "/tiktok/shops", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
		assert.Equal(t, float64(2), decodeBody(t, resp)["count"])
	}
	assert.Equal(t, "stored-access", token)

	rows := fake.Rows("tiktok_shops")
	require.Len(t, rows, 2)
	assert.Equal(t, "7000", rows[0]["shop_id"])
	assert.Equal(t, "GCP_a", rows[0]["cipher"])
	assert.Equal(t, "IDLCB", rows[1]["code"])
}

func TestTikTokShopsUpstreamErrorWritesNothing(t *testing.T) {
	for _, body := range []string{
		`{"code":105001,"message":"access token is invalid"}`,
		`{"code":0,"message":"Success","data":{"shops":[]}}`,
	} {
		fake := dbtest.New()
		storedTikTokToken(fake)
		h := NewTikTokShopsHandler(testConfig(), testDeps(fake), shopsServer(t, body, nil))

		resp, err := h.Handle(context.Background(), request(http.MethodPost, "/tiktok/shops", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, 0, fake.Writes(), body)
		assert.False(t, fake.HasTable("tiktok_shops"), body)
	}
}

func TestTikTokShopsPersistenceFailure(t *testing.T) {
	fake := dbtest.New()
	storedTikTokToken(fake)
	fake.FailExec = func(sql string, args []any) error {
		if len(args) > 0 && args[0] == "7001" {
			return assert.AnError
		}
		return nil
	}
	h := NewTikTokShopsHandler(testConfig(), testDeps(fake), shopsServer(t, shopsOK, nil))

	resp, err := h.Handle(context.Background(), request(http.MethodGet, "/tiktok/shops", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTikTokShopsNoStoredToken(t *testing.T) {
	fake := dbtest.New()
	fake.Queries["refresh_token <> ''"] = dbtest.NoRows
	h := NewTikTokShopsHandler(testConfig(), testDeps(fake), shopsServer(t, shopsOK, nil))

	resp, err := h.Handle(context.Background(), request(http.MethodGet, "/tiktok/shops", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no stored tiktok token", decodeBody(t, resp)["error"])
}
