package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func protectedEndpoint(t *testing.T, serviceToken, jwtSecret string) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return ServiceAuth(serviceToken, jwtSecret)(next)
}

func TestServiceAuth_AcceptsServiceToken(t *testing.T) {
	handler := protectedEndpoint(t, "svc-token", "")

	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer svc-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServiceAuth_RejectsWrongToken(t *testing.T) {
	handler := protectedEndpoint(t, "svc-token", "")

	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServiceAuth_RejectsMissingHeader(t *testing.T) {
	handler := protectedEndpoint(t, "svc-token", "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync/all", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServiceAuth_RejectsWhenDisabled(t *testing.T) {
	handler := protectedEndpoint(t, "", "")

	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServiceAuth_AcceptsHMACJWT(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "en-garde-backend",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	handler := protectedEndpoint(t, "svc-token", "jwt-secret")
	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServiceAuth_RejectsExpiredJWT(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	handler := protectedEndpoint(t, "", "jwt-secret")
	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServiceAuth_RejectsJWTWithWrongSecret(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	handler := protectedEndpoint(t, "", "jwt-secret")
	req := httptest.NewRequest(http.MethodPost, "/sync/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
