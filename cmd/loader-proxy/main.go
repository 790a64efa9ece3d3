package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/loader"
	"github.com/AleksandarIlic/ParseQueryLoader/pkg/source"
)

// resultStore holds the latest delivered snapshot for serving.
type resultStore struct {
	mu    sync.RWMutex
	items []json.RawMessage
}

func (s *resultStore) set(items []json.RawMessage) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func (s *resultStore) get() []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	listKey := getEnv("LIST_KEY", "loader:items")
	pageSize := getEnvInt("PAGE_SIZE", 25)

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	// Ping Redis
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Printf("Connected to Redis at %s", redisURL)

	// Create loader over the Redis list
	store := &resultStore{}
	ldr, err := loader.New(loader.Config[json.RawMessage]{
		ObjectsPerPage: pageSize,
		OnResult:       store.set,
		OnError: func(err error) {
			log.Printf("Load failed (serving last snapshot): %v", err)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create loader: %v", err)
	}

	ldr.SetQuery(source.NewRedisList[json.RawMessage](redisClient, listKey))
	ldr.Start()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/items", itemsHandler(store, ldr))
	http.HandleFunc("/items/next", nextHandler(ldr))
	http.HandleFunc("/items/refresh", refreshHandler(ldr))
	http.HandleFunc("/items/reset", resetHandler(ldr))

	addr := ":" + port
	log.Printf("Starting loader proxy server on %s", addr)
	log.Printf("Serving Redis list %q with page size %d", listKey, pageSize)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, fmt.Sprintf("Redis unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// itemsResponse is the payload served by the /items endpoint.
type itemsResponse struct {
	Items       []json.RawMessage `json:"items"`
	Count       int               `json:"count"`
	HasNextPage bool              `json:"has_next_page"`
	Phase       string            `json:"phase"`
}

func itemsHandler(store *resultStore, ldr *loader.Loader[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := store.get()
		if items == nil {
			items = []json.RawMessage{}
		}

		resp := itemsResponse{
			Items:       items,
			Count:       len(items),
			HasNextPage: ldr.HasNextPage(),
			Phase:       ldr.Phase().String(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func nextHandler(ldr *loader.Loader[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		if err := ldr.RequestNextPage(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func refreshHandler(ldr *loader.Loader[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		ldr.NotifyContentChanged()
		w.WriteHeader(http.StatusAccepted)
	}
}

func resetHandler(ldr *loader.Loader[json.RawMessage]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		ldr.Reset()
		ldr.Start()
		w.WriteHeader(http.StatusAccepted)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid %s value %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}
