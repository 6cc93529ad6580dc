package security

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestTokenSealerRoundTrip(t *testing.T) {
	s, err := NewTokenSealer(testKey())
	require.NoError(t, err)
	require.True(t, s.Enabled())

	sealed, err := s.Seal("ROW_access_token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "ROW_access_token")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ROW_access_token", plain)
}

func TestTokenSealerPassthrough(t *testing.T) {
	s, err := NewTokenSealer("")
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	v, err := s.Seal("tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	keyed, err := NewTokenSealer(testKey())
	require.NoError(t, err)
	legacy, err := keyed.Open("plain-legacy-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-legacy-token", legacy)

	sealed, err := keyed.Seal("tok")
	require.NoError(t, err)
	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestTokenSealerBadKey(t *testing.T) {
	_, err := NewTokenSealer(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "s3cret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
	assert.Error(t, CheckPassword("s3cret", "s3cret"), "plaintext column values never match")
}

func TestPasswordVerifierBuildsPlaceholderUpFront(t *testing.T) {
	v, err := NewPasswordVerifier()
	require.NoError(t, err)
	cost, err := bcrypt.Cost(v.placeholder)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	assert.ErrorIs(t, v.CheckUnknown("anything"), bcrypt.ErrMismatchedHashAndPassword)
	assert.ErrorIs(t, v.CheckUnknown("unused-login-placeholder"), bcrypt.ErrMismatchedHashAndPassword)

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, v.Check(hash, "s3cret"))
	assert.Error(t, v.Check(hash, "wrong"))
}

func TestSessionIssueAndParse(t *testing.T) {
	iss, err := NewSessionIssuer("test-secret", 2*time.Hour)
	require.NoError(t, err)
	fixed := time.Date(2025, 10, 14, 8, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return fixed }

	tok, exp, err := iss.Issue(7, "admin")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(2*time.Hour), exp)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	iss.now = func() time.Time { return fixed.Add(3 * time.Hour) }
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionRejectsOtherSecret(t *testing.T) {
	a, _ := NewSessionIssuer("a", time.Hour)
	b, _ := NewSessionIssuer("b", time.Hour)
	tok, _, err := a.Issue(1, "admin")
	require.NoError(t, err)
	_, err = b.Parse(tok)
	assert.Error(t, err)
}

func TestNewSessionIssuerRequiresSecret(t *testing.T) {
	_, err := NewSessionIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrNoJWTSecret)
}
