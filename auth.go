package ballot

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// identityKey is the gin context key the authenticated identity is stored
// under by the Authenticate middleware.
const identityKey = "identity"

// MintToken signs an HS256 identity token for the given identity, valid for
// the specified duration. The token carries identity only: admin rights are
// decided by the ledger's admin set at call time, never baked into a token,
// so revoking an admin takes effect immediately.
func MintToken(secret, identity string, duration time.Duration) (string, error) {
	if identity == "" {
		return "", Errorf(InvalidInput, "an identity is required to mint a token")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates an identity token, returning the identity
// it was minted for.
func VerifyToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, Errorf(Unauthorized, "unexpected token signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", Errorf(Unauthorized, "invalid identity token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", Errorf(Unauthorized, "identity token has no subject")
	}
	return claims.Subject, nil
}

// Authenticate is gin middleware that resolves the caller identity from the
// Authorization bearer token and stores it on the request context. Requests
// without a valid token are rejected before reaching the engine.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(401, gin.H{"error": "a bearer identity token is required"})
			return
		}

		identity, err := VerifyToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": err.Error()})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}
