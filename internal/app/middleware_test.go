package app

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

func TestActorMiddleware(t *testing.T) {
	var got shared.Actor
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("X-Role-ID", "7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, int64(7), got.RoleID)
}

func TestActorMiddlewareMissingHeaders(t *testing.T) {
	var got shared.Actor
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = shared.ActorFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Zero(t, got.UserID)
	require.Zero(t, got.RoleID)
}

func TestRequireRoles(t *testing.T) {
	gate := RequireRoles(shared.RoleWarehouseKeeper)

	cases := []struct {
		name   string
		role   int64
		status int
	}{
		{"warehouse keeper allowed", shared.RoleWarehouseKeeper, http.StatusOK},
		{"admin always allowed", shared.RoleAdmin, http.StatusOK},
		{"foreman rejected", shared.RoleForeman, http.StatusForbidden},
		{"anonymous rejected", 0, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := ActorMiddleware(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			req := httptest.NewRequest(http.MethodPost, "/purchaseOrderItems/receive", nil)
			if tc.role != 0 {
				req.Header.Set("X-User-ID", "1")
				req.Header.Set("X-Role-ID", strconv.FormatInt(tc.role, 10))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}
