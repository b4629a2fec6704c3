package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the dashboard origins to read the sync API. A comma-separated
// list replaces the local development defaults.
func CORS(origins string) gin.HandlerFunc {
	allowed := defaultOrigins
	if list := splitList(origins); len(list) > 0 {
		allowed = list
	}
	return cors.New(cors.Config{
		AllowOrigins: allowed,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "X-Trace-Id"},
	})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
