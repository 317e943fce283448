package oidc

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssuerURL(t *testing.T) {
	require.Equal(t, "https://sso.example/realms/tourcraft", IssuerURL("https://sso.example/", "tourcraft"))
	require.Equal(t, "https://sso.example/realms/tourcraft", IssuerURL("https://sso.example/realms/tourcraft", ""))
}

func unsignedToken(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`)) + "." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + "."
}

func TestInsecureVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewInsecureVerifier()
	tok, err := v.Verify(ctx, unsignedToken(`{"sub":"booker-1","email":"booker@example.com"}`))
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "booker-1", claims["sub"])
	require.Equal(t, "booker@example.com", claims["email"])

	_, err = v.Verify(ctx, "garbage")
	require.Error(t, err)
	_, err = v.Verify(ctx, "a.!!!.c")
	require.Error(t, err)
	_, err = v.Verify(ctx, unsignedToken(`{"email":"anonymous@example.com"}`))
	require.EqualError(t, err, "integration token: missing sub")
}

func TestInsecureVerifier_Expiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v := NewInsecureVerifier()
	v.now = func() time.Time { return now }

	_, err := v.Verify(context.Background(), unsignedToken(fmt.Sprintf(`{"sub":"b","exp":%d}`, now.Add(-time.Second).Unix())))
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = v.Verify(context.Background(), unsignedToken(fmt.Sprintf(`{"sub":"b","exp":%d}`, now.Add(time.Hour).Unix())))
	require.NoError(t, err)
}
