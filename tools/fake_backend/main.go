package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// fakeBackend stands in for the analytical backend whose health gates
// regression forecasts. Its health can be flipped at runtime.
type fakeBackend struct {
	start    time.Time
	latency  time.Duration
	failRate float64

	down       atomic.Bool
	totalCalls atomic.Int64

	mu       sync.Mutex
	rng      *rand.Rand
	byStatus map[int]int64
}

func main() {
	addr := getenvDefault("FAKE_BACKEND_ADDR", ":18090")
	latencyMs := getenvIntDefault("FAKE_BACKEND_LATENCY_MS", 0)
	failRate := getenvFloatDefault("FAKE_BACKEND_FAIL_RATE", 0)

	srv := &fakeBackend{
		start:    time.Now().UTC(),
		latency:  time.Duration(latencyMs) * time.Millisecond,
		failRate: failRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		byStatus: make(map[int]int64),
	}
	srv.down.Store(getenvDefault("FAKE_BACKEND_DOWN", "") == "true")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/admin/down", srv.handleToggle(true))
	mux.HandleFunc("/admin/up", srv.handleToggle(false))
	mux.HandleFunc("/metrics", srv.handleMetrics)

	log.Printf("fake analytics backend listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (s *fakeBackend) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.totalCalls.Add(1)
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	status := http.StatusOK
	if s.down.Load() || s.fail() {
		status = http.StatusServiceUnavailable
	}
	s.mu.Lock()
	s.byStatus[status]++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": status == http.StatusOK})
}

func (s *fakeBackend) handleToggle(down bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.down.Store(down)
		log.Printf("fake backend down=%v", down)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *fakeBackend) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	byStatus := make(map[string]int64, len(s.byStatus))
	for code, n := range s.byStatus {
		byStatus[strconv.Itoa(code)] = n
	}
	s.mu.Unlock()
	payload := map[string]any{
		"started_at": s.start.Format(time.RFC3339),
		"total":      s.totalCalls.Load(),
		"down":       s.down.Load(),
		"by_status":  byStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *fakeBackend) fail() bool {
	if s.failRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.failRate
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
