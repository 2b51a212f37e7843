package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creative_gateway/internal/auth"
	"creative_gateway/internal/models"
)

func TestIdentityMiddleware_Success(t *testing.T) {
	store := auth.NewInMemoryIdentityStore()
	middleware := IdentityMiddleware(store)

	// Create a test handler that the middleware will wrap
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify the identity is in context
		identity, ok := GetIdentity(r.Context())
		if !ok {
			t.Error("Identity not found in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if identity.UserID != "demo-user" {
			t.Errorf("Unexpected user ID: %s", identity.UserID)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	handler := middleware(nextHandler)

	t.Run("with X-API-Key header", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/generations", nil)
		req.Header.Set("X-API-Key", "demo-key")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("with Bearer token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/generations", nil)
		req.Header.Set("Authorization", "Bearer demo-key")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestIdentityMiddleware_MissingKey(t *testing.T) {
	store := auth.NewInMemoryIdentityStore()
	middleware := IdentityMiddleware(store)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called when API key is missing")
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware(nextHandler)

	req := httptest.NewRequest("POST", "/v1/generations", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	if w.Body.String() == "" {
		t.Error("Expected error message in response body")
	}
}

func TestIdentityMiddleware_InvalidKey(t *testing.T) {
	store := auth.NewInMemoryIdentityStore()
	middleware := IdentityMiddleware(store)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called for invalid API key")
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware(nextHandler)

	req := httptest.NewRequest("POST", "/v1/generations", nil)
	req.Header.Set("X-API-Key", "invalid-key-12345")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestIdentityMiddleware_RevokedKey(t *testing.T) {
	store := auth.NewInMemoryIdentityStore()
	store.Add("revoked-key", &models.Identity{UserID: "u-rev", Revoked: true})
	middleware := IdentityMiddleware(store)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called for a revoked key")
	})

	handler := middleware(nextHandler)

	req := httptest.NewRequest("POST", "/v1/generations", nil)
	req.Header.Set("X-API-Key", "revoked-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

type failingIdentityStore struct {
	err error
}

func (s *failingIdentityStore) Lookup(ctx context.Context, plaintextKey string) (*models.Identity, error) {
	return nil, s.err
}

func TestIdentityMiddleware_LookupFailure(t *testing.T) {
	store := &failingIdentityStore{err: errors.New("pq: connection refused at 10.0.0.5:5432")}
	middleware := IdentityMiddleware(store)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called when the lookup fails")
	})

	handler := middleware(nextHandler)

	req := httptest.NewRequest("POST", "/v1/generations", nil)
	req.Header.Set("X-API-Key", "some-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("Response leaked store error detail: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Error validating API key") {
		t.Errorf("Expected generic error body, got: %s", w.Body.String())
	}
}

func TestGetIdentity(t *testing.T) {
	t.Run("identity exists in context", func(t *testing.T) {
		identity := &models.Identity{UserID: "u-1", OrgID: "o-1"}
		ctx := context.WithValue(context.Background(), IdentityKey, identity)

		got, ok := GetIdentity(ctx)
		if !ok {
			t.Fatal("expected identity in context")
		}
		if got.UserID != "u-1" {
			t.Errorf("unexpected user ID: %s", got.UserID)
		}
	})

	t.Run("identity missing from context", func(t *testing.T) {
		if _, ok := GetIdentity(context.Background()); ok {
			t.Error("expected no identity in empty context")
		}
	})
}
