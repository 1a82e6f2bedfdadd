package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// signToken signs claims with the test server's secret, bypassing
// issueToken so tests can hand-craft incomplete claim sets.
func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	ts := newTestServer(t)

	// Correct secret, issuer, audience, and subject, but no exp claim.
	token := signToken(t, jwt.RegisteredClaims{
		Subject:  "user-1",
		Issuer:   "taskhive-server",
		Audience: jwt.ClaimStrings{"taskhive-users"},
	})

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/verify", "", VerifyRequest{Token: token})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/auth/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyToleratesMissingIssuedAt(t *testing.T) {
	ts := newTestServer(t)

	token := signToken(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "taskhive-server",
		Audience:  jwt.ClaimStrings{"taskhive-users"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/verify", "", VerifyRequest{Token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified VerifyResponse
	require.NoError(t, json.Unmarshal(body, &verified))
	require.True(t, verified.Valid)
	require.Equal(t, "user-1", verified.UserID)
	require.True(t, verified.IssuedAt.IsZero())
	require.False(t, verified.ExpiresAt.IsZero())
}
