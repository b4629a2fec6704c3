package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		config, origin string
		allowed        bool
	}{
		{"", "http://localhost:5173", true},
		{"", "https://evil.example", false},
		{"https://dash.example, https://ops.example", "https://ops.example", true},
		{"https://dash.example", "http://localhost:5173", false},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(CORS(tc.config))
		r.POST("/api/sync", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		rec := preflight(r, tc.origin)
		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tc.allowed && got != tc.origin {
			t.Fatalf("%q with %q: allow-origin %q", tc.origin, tc.config, got)
		}
		if !tc.allowed && got != "" {
			t.Fatalf("%q with %q must be refused, got %q", tc.origin, tc.config, got)
		}
	}
}
