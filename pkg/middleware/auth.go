package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tourcraft/tourcraft/internal/models"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// RevocationChecker reports whether a raw token was revoked before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

// AuthMiddleware verifies Bearer tokens with ver, stores the claims under
// "claims" and the caller identity in the request context. revoked may be nil.
func AuthMiddleware(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" && c.IsWebsocket() {
			// browsers cannot set headers on websocket upgrades
			if qt := c.Query("access_token"); qt != "" {
				auth = "Bearer " + qt
			}
		}
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), token)
			if err != nil {
				logger.Warnf("revocation check failed: %v", err)
			} else if isRevoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		id, ok := models.IdentityFromClaims(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set("claims", claims)
		c.Request = c.Request.WithContext(models.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// CurrentIdentity returns the identity attached by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	return models.IdentityFrom(c.Request.Context())
}

// Verifiers tries each verifier in order and returns the first success.
type Verifiers []Verifier

func (vs Verifiers) Verify(ctx context.Context, raw string) (Token, error) {
	err := errors.New("no token verifier configured")
	for _, v := range vs {
		tok, verr := v.Verify(ctx, raw)
		if verr == nil {
			return tok, nil
		}
		err = verr
	}
	return nil, err
}
