package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/loader"
	"github.com/AleksandarIlic/ParseQueryLoader/pkg/source"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		redisC.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupTestLoader wires a loader over an in-memory slice source and waits for
// the first delivery so handlers see a settled snapshot.
func setupTestLoader(t *testing.T, items []string, pageSize int) (*resultStore, *loader.Loader[json.RawMessage]) {
	t.Helper()

	raw := make([]json.RawMessage, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			t.Fatalf("Failed to encode item: %v", err)
		}
		raw[i] = data
	}

	store := &resultStore{}
	delivered := make(chan struct{}, 16)
	ldr, err := loader.New(loader.Config[json.RawMessage]{
		ObjectsPerPage: pageSize,
		OnResult: func(items []json.RawMessage) {
			store.set(items)
			delivered <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	ldr.SetQuery(source.NewSlice(raw))
	ldr.Start()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for first delivery")
	}

	t.Cleanup(func() {
		ldr.Reset()
	})

	return store, ldr
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	handler := readyHandler(redisClient)

	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}

		if string(body) != "OK" {
			t.Errorf("Expected body 'OK', got %s", string(body))
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		// Close Redis to simulate failure
		redisClient.Close()

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	// Exercise a loader so its metrics are registered and populated.
	setupTestLoader(t, []string{"a", "b"}, 10)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)

	// Just verify we get prometheus output format
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}

	if !strings.Contains(bodyStr, "loader_deliveries_total") {
		t.Error("Expected metrics output to contain loader_deliveries_total")
	}

	t.Logf("Metrics endpoint returned %d bytes of data", len(bodyStr))
}

func TestItemsEndpoint(t *testing.T) {
	store, ldr := setupTestLoader(t, []string{"a", "b", "c"}, 2)

	req := httptest.NewRequest("GET", "/items", nil)
	w := httptest.NewRecorder()

	itemsHandler(store, ldr)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var payload itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if payload.Count != 2 {
		t.Errorf("Count = %d, want 2 (first page)", payload.Count)
	}
	if !payload.HasNextPage {
		t.Error("HasNextPage = false with one item remaining")
	}
	if payload.Phase != "started" {
		t.Errorf("Phase = %q, want started", payload.Phase)
	}
}

func TestNextEndpoint(t *testing.T) {
	_, ldr := setupTestLoader(t, []string{"a", "b", "c"}, 2)

	t.Run("method_not_allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/items/next", nil)
		w := httptest.NewRecorder()

		nextHandler(ldr)(w, req)

		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Result().StatusCode)
		}
	})

	t.Run("next_page_accepted", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/items/next", nil)
		w := httptest.NewRecorder()

		nextHandler(ldr)(w, req)

		if w.Result().StatusCode != http.StatusAccepted {
			t.Errorf("Expected status 202, got %d", w.Result().StatusCode)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		// Wait until the requested page landed and the query is exhausted.
		deadline := time.Now().Add(2 * time.Second)
		for ldr.HasNextPage() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		req := httptest.NewRequest("POST", "/items/next", nil)
		w := httptest.NewRecorder()

		nextHandler(ldr)(w, req)

		if w.Result().StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", w.Result().StatusCode)
		}
	})
}

func TestRefreshEndpoint(t *testing.T) {
	_, ldr := setupTestLoader(t, []string{"a"}, 10)

	req := httptest.NewRequest("POST", "/items/refresh", nil)
	w := httptest.NewRecorder()

	refreshHandler(ldr)(w, req)

	if w.Result().StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Result().StatusCode)
	}
}

func TestResetEndpoint(t *testing.T) {
	_, ldr := setupTestLoader(t, []string{"a"}, 10)

	req := httptest.NewRequest("POST", "/items/reset", nil)
	w := httptest.NewRecorder()

	resetHandler(ldr)(w, req)

	if w.Result().StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Result().StatusCode)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	if got := getEnvInt("TEST_PAGE_SIZE", 25); got != 50 {
		t.Errorf("getEnvInt = %d, want 50", got)
	}

	t.Setenv("TEST_PAGE_SIZE", "not a number")
	if got := getEnvInt("TEST_PAGE_SIZE", 25); got != 25 {
		t.Errorf("getEnvInt with invalid value = %d, want default 25", got)
	}

	if got := getEnvInt("TEST_PAGE_SIZE_UNSET", 25); got != 25 {
		t.Errorf("getEnvInt with unset key = %d, want default 25", got)
	}
}
