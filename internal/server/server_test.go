package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/dataset"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const testAdminToken = "0123456789abcdef"

func newTestServer(ds *models.Dataset) *Server {
	holder := dataset.NewStatic(ds)
	analytics := services.NewAnalytics(holder, testLogger())
	dashboard := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}
	return NewServer(analytics, holder, testAdminToken, testLogger(), &TemplateHandlers{Dashboard: dashboard})
}

func TestServer_Routing(t *testing.T) {
	srv := newTestServer(&models.Dataset{
		Transactions: []models.Transaction{{TransactionID: "T1", Date: time.Now(), ProductID: "P1", TotalAmountUSD: 10}},
	})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/api", http.StatusOK},
		{"GET", "/api/kpis", http.StatusOK},
		{"GET", "/api/ml/recommendations/P1", http.StatusOK},
		{"GET", "/missing", http.StatusNotFound},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"GET", "/api/ml/forecast", http.StatusMethodNotAllowed},
		{"GET", "/admin/refresh", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestServer_EmptyDataset(t *testing.T) {
	srv := newTestServer(&models.Dataset{})

	for path, want := range map[string]int{
		"/health":                 http.StatusOK,
		"/api":                    http.StatusOK,
		"/api/kpis":               http.StatusServiceUnavailable,
		"/api/ml/anomalies":       http.StatusServiceUnavailable,
		"/api/export/excel":       http.StatusServiceUnavailable,
		"/api/analytics/segments": http.StatusServiceUnavailable,
	} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s status = %d, want %d", path, w.Code, want)
		}
	}
}

func TestServer_AdminRefreshRequiresToken(t *testing.T) {
	ds := &models.Dataset{
		Transactions: []models.Transaction{{TransactionID: "T1", Date: time.Now(), ProductID: "P1", TotalAmountUSD: 10}},
	}
	srv := newTestServer(ds)

	tests := []struct {
		name   string
		header [2]string
		want   int
	}{
		{"no credentials", [2]string{}, http.StatusUnauthorized},
		{"wrong bearer", [2]string{"Authorization", "Bearer not-the-token"}, http.StatusUnauthorized},
		{"basic scheme", [2]string{"Authorization", "Basic " + testAdminToken}, http.StatusUnauthorized},
		{"bearer", [2]string{"Authorization", "Bearer " + testAdminToken}, http.StatusOK},
		{"header", [2]string{"X-Admin-Token", testAdminToken}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
			if tt.header[0] != "" {
				r.Header.Set(tt.header[0], tt.header[1])
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"UNAUTHORIZED"`) {
				t.Errorf("body = %s, want the UNAUTHORIZED envelope", w.Body.String())
			}
		})
	}

	holder := dataset.NewStatic(ds)
	disabled := NewServer(services.NewAnalytics(holder, testLogger()), holder, "", testLogger(),
		&TemplateHandlers{Dashboard: func(http.ResponseWriter, *http.Request) {}})
	r := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	r.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	disabled.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("refresh without a configured token: status = %d, want 403", w.Code)
	}
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{ShutdownTimeout: 2 * time.Second}}
}

func TestGracefulServer_RunsHooksOnShutdown(t *testing.T) {
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	var calls atomic.Int32
	for _, name := range []string{"scheduler", "store"} {
		gs.RegisterShutdownHook(name, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if calls.Load() != 2 {
		t.Errorf("hooks called %d times, want 2", calls.Load())
	}
}

func TestGracefulServer_ReportsHookFailures(t *testing.T) {
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	boom := errors.New("boom")
	gs.RegisterShutdownHook("flaky", func(ctx context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gs.Run(ctx)
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "flaky") {
		t.Errorf("Run() error = %v, want hook failure", err)
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	httpServer := &http.Server{Addr: "invalid-address", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() should fail on an invalid address")
	}
}
