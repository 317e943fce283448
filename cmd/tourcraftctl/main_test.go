package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/tourcraft/tourcraft/internal/tokens"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "tourcraftctl "+Version+"\n", out)
}

func TestRelationsValidate(t *testing.T) {
	out, err := run(t, "relations", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "relation graph OK")

	out, err = run(t, "relations", "validate", "--json")
	require.NoError(t, err)
	var rep struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Empty(t, rep.Errors)
}

func TestRelationsIndexes(t *testing.T) {
	out, err := run(t, "relations", "indexes", "--json")
	require.NoError(t, err)
	var idx map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &idx))
	require.Contains(t, idx["dates"], "lieuId")
	require.Contains(t, idx["lieux"], "gestionnaire.id")
}

func TestRelationsCheck_Errors(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	_, err := run(t, "relations", "check", "planets", "p1")
	require.ErrorContains(t, err, "unknown collection")

	_, err = run(t, "relations", "check", "lieux", "l1")
	require.ErrorContains(t, err, "MONGODB_URI")

	_, err = run(t, "relations", "check", "lieux")
	require.Error(t, err)
}

func TestTokenIssue(t *testing.T) {
	secret := "cli-test-secret-0123456789abcdef"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("JWT_ISSUER", "tourcraft")

	_, err := run(t, "token", "issue")
	require.ErrorContains(t, err, "--sub")

	out, err := run(t, "token", "issue", "--sub", "ops", "--name", "Ops", "--ttl", "5m")
	require.NoError(t, err)
	tok, err := tokens.NewHMACVerifier(secret, "tourcraft").Verify(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "ops", claims["sub"])
	require.Equal(t, "Ops", claims["name"])
}

func TestTokenRevoke(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	t.Setenv("REDIS_HOST", m.Host())
	t.Setenv("REDIS_PORT", m.Port())

	out, err := run(t, "token", "revoke", "raw-token", "--ttl", "1m")
	require.NoError(t, err)
	require.Contains(t, out, "token revoked")

	revoked, err := tokens.NewRedisRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()})).IsRevoked(context.Background(), "raw-token")
	require.NoError(t, err)
	require.True(t, revoked)

	m.FastForward(2 * time.Minute)
	revoked, err = tokens.NewRedisRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()})).IsRevoked(context.Background(), "raw-token")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRelanceTypes(t *testing.T) {
	out, err := run(t, "relance", "types")
	require.NoError(t, err)
	require.Contains(t, out, "envoyer_contrat")
	require.Contains(t, out, "relancer_contrat")
	require.Contains(t, out, "7d")
}
