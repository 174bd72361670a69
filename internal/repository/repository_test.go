package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tower_monitoring/internal/config"
	"tower_monitoring/internal/logger"

	"github.com/alicebob/miniredis/v2"
)

func testConfig(t *testing.T, restURL, redisAddr string) *config.Config {
	t.Helper()
	return &config.Config{
		Mirror: config.Mirror{Path: filepath.Join(t.TempDir(), "mirror.sqlite3")},
		Authoritative: config.Authoritative{
			Driver:  "postgrest",
			URL:     restURL,
			APIKey:  "anon",
			Timeout: time.Second,
		},
		Cache: config.Cache{URL: "redis://" + redisAddr + "/0", LatestTTL: time.Hour},
	}
}

func TestOpenConnectsEveryStore(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer rest.Close()
	mr := miniredis.RunT(t)

	repo, err := Open(context.Background(), testConfig(t, rest.URL, mr.Addr()), logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repo.Close()

	if repo.Mirror == nil || repo.Operators == nil || repo.Towers == nil || repo.Cache == nil {
		t.Fatalf("handles not populated: %+v", repo)
	}
	if repo.TimeSeries != nil || repo.AlertBroker != nil {
		t.Fatal("optional sinks should stay nil when not configured")
	}
}

func TestOpenReportsFailingStore(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer rest.Close()
	mr := miniredis.RunT(t)

	_, err := Open(context.Background(), testConfig(t, rest.URL, mr.Addr()), logger.Nop())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Store != StoreAuthoritative {
		t.Fatalf("store = %q, want %q", connErr.Store, StoreAuthoritative)
	}

	okRest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer okRest.Close()
	addr := mr.Addr()
	mr.Close()

	_, err = Open(context.Background(), testConfig(t, okRest.URL, addr), logger.Nop())
	if !errors.As(err, &connErr) || connErr.Store != StoreCache {
		t.Fatalf("expected cache ConnectionError, got %v", err)
	}
}
