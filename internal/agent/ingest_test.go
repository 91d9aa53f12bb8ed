package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/internal/provider"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/internal/storage/memory"
	"github.com/mindwell/recall/pkg/types"
)

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func TestIngestTranscription(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	err := r.IngestData(ctx, agent.IngestItem{
		Type:       types.IngestTypeTranscription,
		Content:    "Discussed the quarterly roadmap with the platform team",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("IngestData failed: %v", err)
	}

	stms, err := store.ListShortTerm(ctx, storage.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(stms) != 1 {
		t.Fatalf("len(stms) = %d, want 1", len(stms))
	}
	got := stms[0]
	if got.Content != "Discussed the quarterly roadmap with the platform team" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.MemoryType != types.MemoryTypeEpisodic {
		t.Errorf("MemoryType = %q, want episodic", got.MemoryType)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}
	if !hasTag(got.ContextTags, "privacy:public_knowledge") {
		t.Errorf("ContextTags = %v, missing privacy tag", got.ContextTags)
	}
}

func TestIngestHealthDataTaggedSensitive(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	err := r.IngestData(ctx, agent.IngestItem{
		Type:       types.IngestTypeHealthData,
		Content:    "Blood pressure reading 128/82 after the morning walk",
		Confidence: 0.95,
	})
	if err != nil {
		t.Fatalf("IngestData failed: %v", err)
	}

	stms, err := store.ListShortTerm(ctx, storage.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(stms) != 1 {
		t.Fatalf("len(stms) = %d, want 1", len(stms))
	}
	got := stms[0]
	if !hasTag(got.ContextTags, "privacy:sensitive") {
		t.Errorf("ContextTags = %v, missing sensitive tag", got.ContextTags)
	}
	if !hasTag(got.ContextTags, types.RiskHealthInformation) {
		t.Errorf("ContextTags = %v, missing health risk factor", got.ContextTags)
	}
	// Sensitive content gets an importance boost over the base derived
	// from confidence alone.
	if got.Importance <= 0.95*0.8 {
		t.Errorf("Importance = %v, want boosted above %v", got.Importance, 0.95*0.8)
	}
}

func TestIngestNote(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	err := r.IngestData(ctx, agent.IngestItem{
		Type:       types.IngestTypeNote,
		Content:    "Ideas for the garden redesign, focus on native plants",
		Confidence: 0.8,
		Metadata: map[string]string{
			"summary": "Garden redesign ideas",
			"topics":  "garden, plants",
		},
	})
	if err != nil {
		t.Fatalf("IngestData failed: %v", err)
	}

	notes, err := store.ListNotes(ctx, storage.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
	got := notes[0]
	if got.Summary != "Garden redesign ideas" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if len(got.Topics) != 2 || got.Topics[0] != "garden" || got.Topics[1] != "plants" {
		t.Errorf("Topics = %v, want [garden plants]", got.Topics)
	}
}

func TestIngestEvent(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	occurred := time.Date(2026, 8, 15, 18, 30, 0, 0, time.UTC)
	err := r.IngestData(ctx, agent.IngestItem{
		Type:       types.IngestTypeEvent,
		Content:    "Team dinner to celebrate the release",
		Confidence: 0.85,
		Metadata: map[string]string{
			"occurred_at":  occurred.Format(time.RFC3339),
			"location":     "Luigi's",
			"participants": "Dana, Priya",
		},
	})
	if err != nil {
		t.Fatalf("IngestData failed: %v", err)
	}

	events, err := store.ListEpisodic(ctx, storage.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	got := events[0]
	if !got.OccurredAt.Equal(occurred) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, occurred)
	}
	if got.Location != "Luigi's" {
		t.Errorf("Location = %q", got.Location)
	}
	if len(got.Participants) != 2 {
		t.Errorf("Participants = %v, want two entries", got.Participants)
	}
}

func TestIngestMalformedItemsSwallowed(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	// Empty content and unknown types are dropped with a warning, not an
	// error, since ingestion is driven by background pipelines.
	if err := r.IngestData(ctx, agent.IngestItem{Type: types.IngestTypeNote, Content: "   "}); err != nil {
		t.Errorf("empty content returned error: %v", err)
	}
	if err := r.IngestData(ctx, agent.IngestItem{Type: "telemetry", Content: "cpu 85%"}); err != nil {
		t.Errorf("unknown type returned error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ShortTerm != 0 || stats.Notes != 0 {
		t.Errorf("malformed items were persisted: %+v", stats)
	}
}

func TestIngestIDsUniquePerRouter(t *testing.T) {
	ctx := context.Background()
	providers := []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	}

	// Each router carries its own ID generator, so two routers over separate
	// stores never contend for shared state and every record gets a distinct ID.
	storeA, storeB := memory.NewStore(), memory.NewStore()
	routerA := newTestRouter(t, storeA, providers)
	routerB := newTestRouter(t, storeB, providers)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		for _, r := range []*agent.Router{routerA, routerB} {
			if err := r.IngestData(ctx, agent.IngestItem{
				Type:       types.IngestTypeTranscription,
				Content:    "standup summary for the sprint",
				Confidence: 0.7,
			}); err != nil {
				t.Fatalf("IngestData failed: %v", err)
			}
		}
	}
	for _, store := range []*memory.Store{storeA, storeB} {
		stms, err := store.ListShortTerm(ctx, storage.ScanOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(stms) != 10 {
			t.Fatalf("len(stms) = %d, want 10", len(stms))
		}
		for _, stm := range stms {
			if seen[stm.ID] {
				t.Errorf("duplicate ID %s across routers", stm.ID)
			}
			seen[stm.ID] = true
		}
	}
}

func TestIngestDefaultsConfidence(t *testing.T) {
	store := memory.NewStore()
	r := newTestRouter(t, store, []provider.GenerationProvider{
		&fakeProvider{id: "local", onDevice: true, personal: true},
	})
	ctx := context.Background()

	err := r.IngestData(ctx, agent.IngestItem{
		Type:    types.IngestTypeTranscription,
		Content: "Quick hallway chat about the launch date",
	})
	if err != nil {
		t.Fatalf("IngestData failed: %v", err)
	}
	stms, err := store.ListShortTerm(ctx, storage.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(stms) != 1 || stms[0].Confidence != 0.5 {
		t.Errorf("expected one entry with default confidence 0.5, got %+v", stms)
	}
}
