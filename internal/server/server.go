// Package server exposes the recall service over HTTP: query routing,
// ingestion, consolidation triggers, tier browsing, and a websocket feed of
// service activity.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindwell/recall/internal/config"
	"github.com/mindwell/recall/internal/storage"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware caps the request rate across all clients.
func rateLimitMiddleware(next http.Handler, limiter *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server. It returns the actual
// address being listened on (useful for testing with port 0) and the Hub for
// wiring activity broadcasts. The server shuts down when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, agent QueryAgent, consolidator Consolidator, store storage.Store) (string, *Hub, error) {
	hub := NewHub()
	h := &handlers{
		agent:        agent,
		consolidator: consolidator,
		store:        store,
		hub:          hub,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/api/query", h.query)
	mux.HandleFunc("/api/ingest", h.ingest)
	mux.HandleFunc("/api/consolidate", h.consolidate)
	mux.HandleFunc("/api/stats", h.stats)
	mux.HandleFunc("/api/memories", h.memories)
	mux.HandleFunc("/api/entities", h.entities)
	mux.HandleFunc("/api/relationships", h.relationships)
	mux.Handle("/ws", hub)

	// 10 req/sec with a burst of 20 across all clients.
	handler := rateLimitMiddleware(mux, rate.NewLimiter(10, 20))
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: serve error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
		hub.Stop()
	}()

	log.Printf("server: listening on %s", actualAddr)
	return actualAddr, hub, nil
}
