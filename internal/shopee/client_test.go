package shopee

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storelink/internal/apperr"
)

func TestSignIsDeterministic(t *testing.T) {
	a := Sign(1001, "key", TokenGetPath, 1700000000)
	b := Sign(1001, "key", TokenGetPath, 1700000000)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Sign(1001, "key", TokenGetPath, 1700000001))
	assert.NotEqual(t, a, Sign(1001, "other", TokenGetPath, 1700000000))
}

func TestExchange(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TokenGetPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1001", q.Get("partner_id"))
		assert.Equal(t, "1700000000", q.Get("timestamp"))
		assert.Equal(t, Sign(1001, "key", TokenGetPath, 1700000000), q.Get("sign"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		_, _ = w.Write([]byte(`{"access_token":"AT","refresh_token":"RT","expire_in":14400,"request_id":"r1","error":"","message":""}`))
	}))
	defer srv.Close()

	c := NewClient(1001, "key", srv.URL, time.Second)
	c.now = func() time.Time { return fixed }

	tok, err := c.Exchange(context.Background(), "CODE", "555")
	require.NoError(t, err)
	assert.Equal(t, "AT", tok.AccessToken)
	assert.Equal(t, int64(14400), tok.ExpireIn)
	assert.Equal(t, "CODE", body["code"])
	assert.Equal(t, float64(555), body["shop_id"])
	assert.Equal(t, float64(1001), body["partner_id"])
}

func TestExchangeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"error_auth","message":"Invalid code","request_id":"r2"}`))
	}))
	defer srv.Close()

	_, err := NewClient(1001, "key", srv.URL, time.Second).Exchange(context.Background(), "CODE", "555")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamExchange, apperr.KindOf(err))
}

func TestExchangeRejectsNonNumericShop(t *testing.T) {
	_, err := NewClient(1001, "key", "http://unused", time.Second).Exchange(context.Background(), "CODE", "abc")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestExchangeAcceptsLeadingZeros(t *testing.T) {
	sid, err := ParseShopID("0123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), sid)

	_, err = ParseShopID("0")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRefresh(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AccessTokenPath, r.URL.Path)
		assert.Equal(t, Sign(1001, "key", AccessTokenPath, 1700000000), r.URL.Query().Get("sign"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		_, _ = w.Write([]byte(`{"partner_id":1001,"shop_id":555,"access_token":"AT2","refresh_token":"RT2","expire_in":14400,"request_id":"r3","error":"","message":""}`))
	}))
	defer srv.Close()

	c := NewClient(1001, "key", srv.URL, time.Second)
	c.now = func() time.Time { return fixed }

	tok, err := c.Refresh(context.Background(), "555", "RT")
	require.NoError(t, err)
	assert.Equal(t, "AT2", tok.AccessToken)
	assert.Equal(t, "RT2", tok.RefreshToken)
	assert.Equal(t, "RT", body["refresh_token"])
	assert.Equal(t, float64(555), body["shop_id"])
}

func TestRefreshUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"error_param","message":"refresh_token expired"}`))
	}))
	defer srv.Close()

	_, err := NewClient(1001, "key", srv.URL, time.Second).Refresh(context.Background(), "555", "RT")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamExchange, apperr.KindOf(err))
}

func TestExchangeRequiresCredentials(t *testing.T) {
	_, err := NewClient(0, "", "http://unused", time.Second).Exchange(context.Background(), "CODE", "1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
