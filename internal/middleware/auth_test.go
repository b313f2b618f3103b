package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func authRouter(t *testing.T, required bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mw := OptionalUser(testSecret)
	if required {
		mw = RequireUser(testSecret)
	}
	r.GET("/probe", mw, func(c *gin.Context) {
		user, ok := UserFromContext(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, user.ID+":"+user.Username)
	})
	return r
}

func probe(r *gin.Engine, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireUser(t *testing.T) {
	r := authRouter(t, true)

	token := signToken(t, testSecret, Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name       string
		authz      string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", authz: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "u1:alice"},
		{name: "missing header", authz: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", authz: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authz: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{
			name: "wrong key",
			authz: "Bearer " + signToken(t, "other-secret", Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			authz: "Bearer " + signToken(t, testSecret, Claims{
				RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			authz: "Bearer " + signToken(t, testSecret, Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			}),
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := probe(r, tt.authz)
			if w.Code != tt.wantStatus {
				t.Fatalf("want %d, got %d (%s)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("want body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestOptionalUser(t *testing.T) {
	r := authRouter(t, false)

	if w := probe(r, ""); w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Fatalf("anonymous must pass through: %d %q", w.Code, w.Body.String())
	}
	// A broken token degrades to anonymous instead of failing the request.
	if w := probe(r, "Bearer junk"); w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Fatalf("bad token must degrade to anonymous: %d %q", w.Code, w.Body.String())
	}

	token := signToken(t, testSecret, Claims{
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if w := probe(r, "Bearer "+token); w.Body.String() != "u2:bob" {
		t.Fatalf("valid token must attach the user: %q", w.Body.String())
	}
}
