package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prepmind/prepmind-backend/internal/response"
)

const (
	// ContextKeyIdentity is the Gin context key for the verified identity.
	ContextKeyIdentity = "identity"
)

// Claims are the token claims issued by the external identity provider.
// This service only verifies tokens, it never issues them.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	UID  string
	Name string
}

// Avatar returns the single-glyph avatar derived from the display name,
// matching what the leaderboard stores.
func (id Identity) Avatar() string {
	for _, r := range id.Name {
		return string(unicode.ToUpper(r))
	}
	return "A"
}

// RequireUserJWT validates an HS256 bearer token from the Authorization
// header (or ?token= for WebSocket/EventSource clients, which cannot send
// headers) and stores the resulting Identity on the context.
func RequireUserJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := parseToken(tokenStr, secret)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		c.Set(ContextKeyIdentity, Identity{UID: claims.Subject, Name: claims.Name})
		c.Next()
	}
}

// GetIdentity retrieves the verified identity from the Gin context.
// Returns the zero Identity if the JWT middleware did not run.
func GetIdentity(c *gin.Context) Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return Identity{}
	}
	id, ok := val.(Identity)
	if !ok {
		return Identity{}
	}
	return id
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

func parseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}
