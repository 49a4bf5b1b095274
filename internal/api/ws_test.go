package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/ws"
)

type staticCreds struct {
	verifyErr error
}

func (s staticCreds) Issue(context.Context, models.CreateTenantRequest, string) (*models.CreatedTenant, error) {
	return nil, errors.New("not implemented")
}

func (s staticCreds) Verify(context.Context, string, string) error { return s.verifyErr }

func (s staticCreds) Revoke(context.Context, string) error { return nil }

func newWSRouter(creds Credentials) *gin.Engine {
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	r := gin.New()
	r.GET("/ws/:tenant_id", wsHandler(context.Background(), log, ws.NewHub(log, 1, 1), nil, creds))

	return r
}

func TestWSHandlerRejectionStatuses(t *testing.T) {
	const tenantID = "00000000-0000-0000-0000-000000000001"

	cases := []struct {
		name      string
		verifyErr error
		want      int
	}{
		{"unknown tenant", models.ErrTenantNotFound, http.StatusForbidden},
		{"wrong key", models.ErrBadCredential, http.StatusForbidden},
		{"revoked tenant", models.ErrTenantRevoked, http.StatusForbidden},
		{"locked out", models.ErrRateLimited, http.StatusTooManyRequests},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newWSRouter(staticCreds{verifyErr: tc.verifyErr})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ws/"+tenantID, http.NoBody)
			req.Header.Set("Authorization", "Bearer llk_wrongkey")
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// An unknown tenant and a wrong key must be indistinguishable to the caller,
// same as the HTTP auth middleware.
func TestWSHandlerDoesNotRevealTenantExistence(t *testing.T) {
	const tenantID = "00000000-0000-0000-0000-000000000002"

	bodies := map[string]string{}
	for name, verifyErr := range map[string]error{
		"unknown": models.ErrTenantNotFound,
		"wrong":   models.ErrBadCredential,
	} {
		r := newWSRouter(staticCreds{verifyErr: verifyErr})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ws/"+tenantID+"?api_key=llk_guess", http.NoBody)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("%s: status = %d, want 403", name, w.Code)
		}
		bodies[name] = w.Body.String()
	}

	if bodies["unknown"] != bodies["wrong"] {
		t.Errorf("response bodies differ:\nunknown: %s\nwrong:   %s", bodies["unknown"], bodies["wrong"])
	}
}
