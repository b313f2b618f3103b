package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lnbits/chat/pkg/model"
)

// AuthUser is the identity extracted from a bearer token. Accounts live in
// the surrounding host application; this service only verifies tokens it
// issued or trusts.
type AuthUser struct {
	ID       string
	Username string
	Wallet   string
}

type Claims struct {
	Username string `json:"username,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

const userKey contextKey = "auth_user"

func parseBearer(c *gin.Context, secret string) (AuthUser, bool) {
	token := extractBearer(c)
	if token == "" {
		return AuthUser{}, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return AuthUser{}, false
	}
	return AuthUser{ID: claims.Subject, Username: claims.Username, Wallet: claims.Wallet}, true
}

// OptionalUser attaches the authenticated user to the request context when
// a valid token is present, and lets anonymous requests through untouched.
// Public chat endpoints use this: senders may or may not be logged in.
func OptionalUser(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := parseBearer(c, secret); ok {
			ctx := context.WithValue(c.Request.Context(), userKey, user)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// RequireUser rejects requests without a valid bearer token.
func RequireUser(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := parseBearer(c, secret)
		if !ok {
			c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		ctx := context.WithValue(c.Request.Context(), userKey, user)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func UserFromContext(ctx context.Context) (AuthUser, bool) {
	user, ok := ctx.Value(userKey).(AuthUser)
	return user, ok
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
