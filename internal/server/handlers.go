package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/internal/consolidation"
	"github.com/mindwell/recall/internal/storage"
)

// QueryAgent is the routing surface the server exposes over HTTP. The agent
// router satisfies this.
type QueryAgent interface {
	ProcessQuery(ctx context.Context, query string) (*agent.Response, error)
	IngestData(ctx context.Context, item agent.IngestItem) error
}

// Consolidator triggers a consolidation sweep. The consolidation service
// satisfies this.
type Consolidator interface {
	Consolidate(ctx context.Context) (*consolidation.Report, error)
}

type handlers struct {
	agent        QueryAgent
	consolidator Consolidator
	store        storage.Store
	hub          *Hub
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.agent.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrNotInitialized):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, agent.ErrNoProvidersAvailable):
			// The privacy policy refused every provider. Surface it as a
			// policy refusal, never as a retryable fault.
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	h.hub.Broadcast("query_processed", map[string]any{
		"provider":      resp.Provider,
		"is_on_device":  resp.IsOnDevice,
		"privacy_level": resp.PrivacyLevel.String(),
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var item agent.IngestItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.agent.IngestData(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.hub.Broadcast("item_ingested", map[string]any{"type": item.Type})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *handlers) consolidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, err := h.consolidator.Consolidate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.hub.Broadcast("consolidation_complete", map[string]any{
		"evaluated": report.Evaluated,
		"promoted":  report.Promoted,
		"created":   report.Created,
	})
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func scanLimit(r *http.Request) storage.ScanOptions {
	opts := storage.ScanOptions{Limit: 100}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	return opts
}

// memories lists a memory tier selected with ?tier=short|long|episodic|notes.
func (h *handlers) memories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	opts := scanLimit(r)

	var (
		result any
		err    error
	)
	switch tier := r.URL.Query().Get("tier"); tier {
	case "", "short":
		opts.IncludeConsolidated = true
		result, err = h.store.ListShortTerm(r.Context(), opts)
	case "long":
		result, err = h.store.ListLongTerm(r.Context(), opts)
	case "episodic":
		result, err = h.store.ListEpisodic(r.Context(), opts)
	case "notes":
		result, err = h.store.ListNotes(r.Context(), opts)
	default:
		writeError(w, http.StatusBadRequest, "unknown tier "+strconv.Quote(tier))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) entities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entities, err := h.store.ListEntities(r.Context(), scanLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (h *handlers) relationships(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rels, err := h.store.ListRelationships(r.Context(), scanLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rels)
}
