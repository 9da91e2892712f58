// Package server exposes a small HTTP control surface over the converter:
// a health check, a status endpoint, and a manual scan trigger.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/converter"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/db"
)

// Server wires the converter and the conversion ledger to HTTP handlers.
type Server struct {
	db        *db.DB
	converter *converter.Converter

	mu       sync.Mutex
	scanning bool
}

// New creates a Server.
func New(database *db.DB, conv *converter.Converter) *Server {
	return &Server{db: database, converter: conv}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Get("/status", s.Status)
	r.Post("/scan", s.Scan)

	return r
}

// Health responds with a plain ok for liveness probes.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// statusResponse is the JSON shape of GET /status.
type statusResponse struct {
	TotalConversions int               `json:"total_conversions"`
	LastRun          *converter.Result `json:"last_run,omitempty"`
	Recent           []*db.Conversion  `json:"recent"`
}

// Status reports ledger totals, the last run summary, and recent conversions.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	total, err := s.db.Count()
	if err != nil {
		log.Printf("Error counting conversions: %v", err)
		http.Error(w, "failed to read conversion ledger", http.StatusInternalServerError)
		return
	}

	recent, err := s.db.Recent(20)
	if err != nil {
		log.Printf("Error listing recent conversions: %v", err)
		http.Error(w, "failed to read conversion ledger", http.StatusInternalServerError)
		return
	}
	if recent == nil {
		recent = []*db.Conversion{}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		TotalConversions: total,
		LastRun:          s.converter.LastResult(),
		Recent:           recent,
	})
}

// Scan runs a conversion pass and returns its result. Only one scan runs at
// a time; a second request while one is in flight gets a 409.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		http.Error(w, "scan already in progress", http.StatusConflict)
		return
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	result, err := s.converter.Run()
	if err != nil {
		log.Printf("Error during scan: %v", err)
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
