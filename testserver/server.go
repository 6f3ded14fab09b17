// Package testserver provides a configurable HTTP server for exercising
// load test scripts, including endpoints that return correlatable ids.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Server is a configurable HTTP test server.
type Server struct {
	mux       *http.ServeMux
	requestID atomic.Int64
}

// NewServer creates a new test server with all endpoints configured.
func NewServer() *Server {
	s := &Server{
		mux: http.NewServeMux(),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status/", s.handleStatus)
	s.mux.HandleFunc("/delay/", s.handleDelay)
	s.mux.HandleFunc("/echo", s.handleEcho)
	s.mux.HandleFunc("/fail-rate", s.handleFailRate)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.HandleFunc("/orders", s.handleOrders)
	s.mux.HandleFunc("/address", s.handleAddress)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStatus returns the specified HTTP status code.
// Example: GET /status/404 returns 404 Not Found
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/status/")
	code, err := strconv.Atoi(path)
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

// handleDelay waits for the specified duration before responding.
// Example: GET /delay/100 waits 100ms
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/delay/")
	ms, err := strconv.Atoi(path)
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}

	time.Sleep(time.Duration(ms) * time.Millisecond)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "delayed %dms", ms)
}

// handleEcho echoes back the request body with the same content type.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleFailRate fails a percentage of requests with 500 status.
// Example: GET /fail-rate?rate=10 fails 10% of requests
func (s *Server) handleFailRate(w http.ResponseWriter, r *http.Request) {
	rateStr := r.URL.Query().Get("rate")
	rate, err := strconv.Atoi(rateStr)
	if err != nil || rate < 0 || rate > 100 {
		rate = 0
	}

	if rand.Intn(100) < rate {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "success")
}

// handleLogin simulates an authentication endpoint.
// Returns a token suitable for response extraction.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := s.requestID.Add(1)
	token := fmt.Sprintf("token-%d-%d", id, time.Now().UnixNano())

	response := map[string]interface{}{
		"auth": map[string]interface{}{
			"token":      token,
			"expires_in": 3600,
		},
		"user": map[string]interface{}{
			"id":   id,
			"name": "testuser",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleOrders creates an order on POST and returns its id, the typical
// source of a chained extraction. GET returns a fixed order list.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		id := s.requestID.Add(1)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orderId": fmt.Sprintf("ORD-%06d", id),
			"status":  "created",
		})
	case http.MethodGet:
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orders": []string{"ORD-000001", "ORD-000002"},
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAddress looks up the delivery address for an order on GET, or
// records a new address on POST. GET requires an orderId query parameter so
// scripts must thread the extracted id through.
func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		orderID := r.URL.Query().Get("orderId")
		if orderID == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "missing orderId",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"orderId": orderID,
			"address": map[string]interface{}{
				"street": "1 Test Way",
				"city":   "Loadville",
				"zip":    "00042",
			},
		})
	case http.MethodPost:
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "invalid body",
			})
			return
		}
		id := s.requestID.Add(1)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"addressId": fmt.Sprintf("ADDR-%06d", id),
			"status":    "saved",
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
