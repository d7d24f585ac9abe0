package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ketracker/backend/internal/ratelimit"
)

func TestMatchOrigin(t *testing.T) {
	allowed := []string{"https://dashboard.ketracker.app", "http://localhost:*"}

	tests := []struct {
		origin string
		list   []string
		want   bool
	}{
		{"https://dashboard.ketracker.app", allowed, true},
		{"http://localhost:5173", allowed, true},
		{"http://localhost", allowed, false},
		{"https://dashboard.ketracker.app.evil.com", allowed, false},
		{"", allowed, false},
		{"http://localhost:5173", nil, false},
		{"https://anything.example", []string{"*"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			if _, got := matchOrigin(tt.origin, tt.list); got != tt.want {
				t.Errorf("matchOrigin(%q, %v) = %v, want %v", tt.origin, tt.list, got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:*"}))
	router.POST("/run", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/run", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusAccepted {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusAccepted)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if w.Header().Get("Vary") != "Origin" {
			t.Errorf("Vary = %q, want Origin", w.Header().Get("Vary"))
		}
	})

	t.Run("other origin gets none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/run", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight is answered without reaching the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/run", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
			t.Errorf("Access-Control-Allow-Methods = %q", w.Header().Get("Access-Control-Allow-Methods"))
		}
	})
}

func TestCORSMiddleware_Credentials(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
		wantCreds  string
	}{
		{name: "listed origin is echoed with credentials", allowed: []string{"http://localhost:*"}, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000", wantCreds: "true"},
		{name: "match-all never carries credentials", allowed: []string{"*"}, origin: "https://evil.example", wantOrigin: "*"},
		{name: "listed origin wins over match-all", allowed: []string{"https://dashboard.ketracker.app", "*"}, origin: "https://dashboard.ketracker.app", wantOrigin: "https://dashboard.ketracker.app", wantCreds: "true"},
		{name: "empty list allows nothing", allowed: nil, origin: "https://evil.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowed))
			router.POST("/api/v1/checks/stock", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checks/stock", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(ratelimit.New(0, 2)))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Error("429 without Retry-After")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestRecoveryAndLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	router := gin.New()
	router.Use(LoggerMiddleware(logger), RecoveryMiddleware(logger))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	logs := buf.String()
	if !strings.Contains(logs, "panic recovered") || !strings.Contains(logs, "kaboom") {
		t.Errorf("panic not logged: %s", logs)
	}
	if !strings.Contains(logs, "level=ERROR") || !strings.Contains(logs, "status=500") {
		t.Errorf("request line not logged at error level: %s", logs)
	}
}
