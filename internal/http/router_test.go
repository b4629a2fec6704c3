package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/Kailou1991/ahis-001-sub001/internal/http/handlers"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

func TestRouterRegistersHealthAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:           logger.Nop(),
		ServiceName:   "ahis-test",
		HealthHandler: httpH.NewHealthHandler(nil),
	})

	req := httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("request id: %q", got)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace id header missing")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/sync", nil))
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("unconfigured sync route must not exist, got %d", rec.Code)
	}
}
