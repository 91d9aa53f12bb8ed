package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/internal/config"
	"github.com/mindwell/recall/internal/consolidation"
	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/provider"
	"github.com/mindwell/recall/internal/retrieval"
	"github.com/mindwell/recall/internal/server"
	"github.com/mindwell/recall/internal/storage/memory"
	"github.com/mindwell/recall/pkg/types"
)

// stubProvider is a minimal on-device generation provider for server tests.
type stubProvider struct {
	onDevice bool
	personal bool
}

func (s *stubProvider) Identifier() string                   { return "stub" }
func (s *stubProvider) DisplayName() string                  { return "stub" }
func (s *stubProvider) IsOnDevice() bool                     { return s.onDevice }
func (s *stubProvider) SupportsPersonalData() bool           { return s.personal }
func (s *stubProvider) MaxContextLength() int                { return 32768 }
func (s *stubProvider) EstimatedResponseTime() time.Duration { return time.Second }
func (s *stubProvider) Prepare(context.Context) error        { return nil }
func (s *stubProvider) Cleanup(context.Context) error        { return nil }

func (s *stubProvider) GenerateResponse(_ context.Context, prompt string, _ *types.MemoryContext) (*provider.GenerationResult, error) {
	return &provider.GenerationResult{
		Content:    "stub answer",
		Confidence: 0.8,
		ModelUsed:  "stub-model",
		IsOnDevice: s.onDevice,
	}, nil
}

// startTestServer wires a full stack on an in-memory store and a random
// port, and returns the base URL plus the store for direct seeding.
func startTestServer(t *testing.T, providers ...provider.GenerationProvider) (string, *memory.Store) {
	t.Helper()

	if len(providers) == 0 {
		providers = []provider.GenerationProvider{&stubProvider{onDevice: true, personal: true}}
	}

	store := memory.NewStore()
	analyzer := privacy.MustNewAnalyzer()
	engine := retrieval.NewEngine(store, analyzer)
	router := agent.NewRouter(store, analyzer, engine, providers)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, router.Initialize(ctx))

	svc, err := consolidation.NewService(store, analyzer, consolidation.DefaultConfig())
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0}}
	addr, _, err := server.Start(ctx, cfg, router, svc, store)
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
	})
	return "http://" + addr, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	base, _ := startTestServer(t)

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestQueryEndpoint(t *testing.T) {
	base, _ := startTestServer(t)

	resp := postJSON(t, base+"/api/query", map[string]string{"query": "capital of France"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out agent.Response
	decodeBody(t, resp, &out)
	assert.Equal(t, "stub answer", out.Content)
	assert.Equal(t, "stub", out.Provider)
	assert.True(t, out.IsOnDevice)
}

func TestQueryPolicyRefusalIsForbidden(t *testing.T) {
	// Cloud-only provider cannot serve a personal query.
	base, _ := startTestServer(t, &stubProvider{onDevice: false, personal: true})

	resp := postJSON(t, base+"/api/query", map[string]string{"query": "when is my sister's birthday"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestQueryRejectsBadBody(t *testing.T) {
	base, _ := startTestServer(t)

	resp, err := http.Post(base+"/api/query", "application/json", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryMethodNotAllowed(t *testing.T) {
	base, _ := startTestServer(t)

	resp, err := http.Get(base + "/api/query")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIngestEndpoint(t *testing.T) {
	base, store := startTestServer(t)

	resp := postJSON(t, base+"/api/ingest", agent.IngestItem{
		Type:       types.IngestTypeNote,
		Content:    "Garden redesign ideas",
		Confidence: 0.8,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Notes)
}

func TestConsolidateEndpoint(t *testing.T) {
	base, store := startTestServer(t)

	// One old, important entry that the sweep should promote.
	require.NoError(t, store.StoreShortTerm(context.Background(), &types.ShortTermMemory{
		ID:         "stm-old",
		Content:    "Settled on the vendor for the rollout",
		CreatedAt:  time.Now().Add(-48 * time.Hour),
		Importance: 0.8,
		Confidence: 0.9,
		MemoryType: types.MemoryTypeSemantic,
	}))

	resp := postJSON(t, base+"/api/consolidate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report consolidation.Report
	decodeBody(t, resp, &report)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Promoted)
}

func TestMemoriesEndpoint(t *testing.T) {
	base, store := startTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.StoreShortTerm(ctx, &types.ShortTermMemory{
		ID: "stm-1", Content: "hello", CreatedAt: time.Now(), MemoryType: types.MemoryTypeSemantic,
	}))
	require.NoError(t, store.StoreLongTerm(ctx, &types.LongTermMemory{
		ID: "ltm-1", Content: "world", CreatedAt: time.Now(), Category: types.CategoryFactual,
	}))

	var short []types.ShortTermMemory
	resp, err := http.Get(base + "/api/memories?tier=short")
	require.NoError(t, err)
	decodeBody(t, resp, &short)
	assert.Len(t, short, 1)

	var long []types.LongTermMemory
	resp, err = http.Get(base + "/api/memories?tier=long")
	require.NoError(t, err)
	decodeBody(t, resp, &long)
	assert.Len(t, long, 1)

	resp, err = http.Get(base + "/api/memories?tier=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	base, store := startTestServer(t)

	require.NoError(t, store.StoreEntity(context.Background(), &types.Entity{
		ID: "ent-1", Name: "Acme", Type: types.EntityTypeOrganization,
	}))

	var stats struct {
		Entities int `json:"entities"`
	}
	resp, err := http.Get(base + "/api/stats")
	require.NoError(t, err)
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.Entities)
}

func TestWebSocketBroadcast(t *testing.T) {
	base, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + base[len("http"):] + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// Give the hub a moment to register the connection.
	time.Sleep(50 * time.Millisecond)

	resp := postJSON(t, base+"/api/ingest", agent.IngestItem{
		Type:    types.IngestTypeNote,
		Content: "note for the websocket feed",
	})
	resp.Body.Close()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var activity server.Activity
	require.NoError(t, json.Unmarshal(data, &activity))
	assert.Equal(t, "item_ingested", activity.Kind)
	assert.Equal(t, "note", fmt.Sprint(activity.Payload["type"]))
}
