package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secRouter(opt SecurityOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := httptest.NewRecorder()
	secRouter(SecurityOptions{NoStore: true, EnablePolicy: true}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	if h.Get("Cache-Control") != "no-store" {
		t.Fatalf("no-store missing: %v", h)
	}
	if h.Get("Permissions-Policy") == "" {
		t.Fatalf("policy headers missing: %v", h)
	}
	if !strings.Contains(h.Get("Access-Control-Expose-Headers"), requestIDHeader) {
		t.Fatalf("request id not exposed: %v", h)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	r := secRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour})

	// Plain HTTP: no HSTS.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted on plain HTTP")
	}

	// Proxied HTTPS: HSTS present.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Header().Get("Strict-Transport-Security"), "max-age=86400") {
		t.Fatalf("HSTS missing or wrong: %q", w.Header().Get("Strict-Transport-Security"))
	}
}
