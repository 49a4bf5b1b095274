package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/middleware"
	"github.com/loglens/loglens/internal/models"
)

type mockVerifier struct {
	keys map[string]string // tenant ID -> valid key
	errs map[string]error  // tenant ID -> forced error
}

func (m *mockVerifier) Verify(_ context.Context, tenantID, presented string) error {
	if err, ok := m.errs[tenantID]; ok {
		return err
	}
	if key, ok := m.keys[tenantID]; ok && key == presented {
		return nil
	}
	return models.ErrBadCredential
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestAuth(t *testing.T) {
	verifier := &mockVerifier{
		keys: map[string]string{"t1": "llk_goodkey"},
		errs: map[string]error{
			"t-revoked": models.ErrTenantRevoked,
			"t-locked":  models.ErrRateLimited,
			"t-missing": models.ErrTenantNotFound,
		},
	}

	tests := []struct {
		name       string
		authHeader string
		tenantID   string
		wantCode   int
	}{
		{"valid credentials", "Bearer llk_goodkey", "t1", http.StatusOK},
		{"missing auth header", "", "t1", http.StatusUnauthorized},
		{"no bearer prefix", "llk_goodkey", "t1", http.StatusUnauthorized},
		{"missing tenant header", "Bearer llk_goodkey", "", http.StatusUnauthorized},
		{"wrong key", "Bearer llk_wrongkey", "t1", http.StatusForbidden},
		{"unknown tenant", "Bearer llk_goodkey", "t-missing", http.StatusForbidden},
		{"revoked tenant", "Bearer llk_goodkey", "t-revoked", http.StatusForbidden},
		{"locked out", "Bearer llk_goodkey", "t-locked", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.Auth(verifier, quietLog()))
			r.POST("/ingest", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/ingest", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.tenantID != "" {
				req.Header.Set(middleware.TenantIDHeader, tt.tenantID)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("got %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestAuthSetsTenantID(t *testing.T) {
	verifier := &mockVerifier{keys: map[string]string{"t1": "llk_k1"}}

	var gotTenant string
	r := gin.New()
	r.Use(middleware.Auth(verifier, quietLog()))
	r.POST("/ingest", func(c *gin.Context) {
		gotTenant = c.GetString(middleware.TenantIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ingest", http.NoBody)
	req.Header.Set("Authorization", "Bearer llk_k1")
	req.Header.Set(middleware.TenantIDHeader, "t1")
	r.ServeHTTP(w, req)

	if gotTenant != "t1" {
		t.Fatalf("expected tenant_id=t1, got %q", gotTenant)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"abc123", ""},
		{"", ""},
		{"Bearer ", ""},
		{"bearer abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			got := middleware.ExtractBearerToken(c)
			if got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
