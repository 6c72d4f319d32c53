package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/anidigital/harvest-hub/internal/config"
)

const testSecret = "s3cret-for-tests"

func signHS256(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func authRouter(t *testing.T, cfg config.AuthConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts, stop, err := NewAuthOptions(cfg)
	if err != nil {
		t.Fatalf("NewAuthOptions: %v", err)
	}
	t.Cleanup(stop)

	r := gin.New()
	r.Use(Authenticate(opts))
	r.GET("/public", func(c *gin.Context) { c.String(http.StatusOK, "anon:"+UserID(c)) })
	r.GET("/private", RequireUser(), func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_DisabledTrustsHeader(t *testing.T) {
	r := authRouter(t, config.AuthConfig{Enabled: false})

	if w := get(r, "/private", map[string]string{HeaderUserID: " farmer-1 "}); w.Code != http.StatusOK || w.Body.String() != "farmer-1" {
		t.Fatalf("header identity: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "/private", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous private request: %d", w.Code)
	}
}

func TestAuthenticate_HS256(t *testing.T) {
	r := authRouter(t, config.AuthConfig{Enabled: true, JWTSecret: testSecret, Issuer: "hub-auth"})
	now := time.Now()

	valid := signHS256(t, jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "hub-auth",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if w := get(r, "/private", map[string]string{"Authorization": "Bearer " + valid}); w.Code != http.StatusOK || w.Body.String() != "user-42" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}
	// The header is ignored once tokens are required.
	if w := get(r, "/public", map[string]string{HeaderUserID: "spoofed"}); w.Body.String() != "anon:" {
		t.Fatalf("X-User-ID honoured with auth enabled: %q", w.Body.String())
	}

	bad := map[string]string{
		"expired":      signHS256(t, jwt.RegisteredClaims{Subject: "u", Issuer: "hub-auth", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}),
		"no expiry":    signHS256(t, jwt.RegisteredClaims{Subject: "u", Issuer: "hub-auth"}),
		"wrong issuer": signHS256(t, jwt.RegisteredClaims{Subject: "u", Issuer: "other", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}),
		"no subject":   signHS256(t, jwt.RegisteredClaims{Issuer: "hub-auth", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}),
		"garbage":      "not-a-jwt",
	}
	for name, tok := range bad {
		if w := get(r, "/public", map[string]string{"Authorization": "Bearer " + tok}); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d", name, w.Code)
		}
	}
	if w := get(r, "/public", map[string]string{"Authorization": "Basic abc"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer scheme: %d", w.Code)
	}
}

func TestAuthenticate_RejectsOtherAlgorithms(t *testing.T) {
	r := authRouter(t, config.AuthConfig{Enabled: true, JWTSecret: testSecret})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if w := get(r, "/private", map[string]string{"Authorization": "Bearer " + tok}); w.Code != http.StatusUnauthorized {
		t.Fatalf("HS512 token accepted: %d", w.Code)
	}
}

func TestNewAuthOptions_RequiresKeySource(t *testing.T) {
	if _, _, err := NewAuthOptions(config.AuthConfig{Enabled: true}); err == nil {
		t.Fatalf("enabled auth without secret or JWKS must fail")
	}
}
