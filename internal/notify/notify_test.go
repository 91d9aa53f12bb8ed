package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mindwell/recall/internal/agent"
	"github.com/mindwell/recall/pkg/types"
)

// chanIngestor forwards items to a channel for test assertions.
type chanIngestor struct {
	items chan agent.IngestItem
}

func (c *chanIngestor) IngestData(_ context.Context, item agent.IngestItem) error {
	c.items <- item
	return nil
}

func TestInboxWriterCreatesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewInboxWriter(dir)

	err := w.Write(agent.IngestItem{
		Type:    types.IngestTypeNote,
		Content: "Remember to water the plants",
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 item file, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".item" {
		t.Errorf("expected .item extension, got %s", entries[0].Name())
	}
}

func TestInboxWatcherReceivesItem(t *testing.T) {
	dir := t.TempDir()
	sink := &chanIngestor{items: make(chan agent.IngestItem, 1)}

	watcher := NewInboxWatcher(dir, sink)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Give fsnotify a moment to register
	time.Sleep(50 * time.Millisecond)

	writer := NewInboxWriter(dir)
	err := writer.Write(agent.IngestItem{
		Type:       types.IngestTypeTranscription,
		Content:    "Standup recap, release slips a week",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case item := <-sink.items:
		if item.Type != types.IngestTypeTranscription {
			t.Errorf("Type = %q, want transcription", item.Type)
		}
		if item.Content != "Standup recap, release slips a week" {
			t.Errorf("Content = %q", item.Content)
		}
		if item.Confidence != 0.9 {
			t.Errorf("Confidence = %v, want 0.9", item.Confidence)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for item")
	}
}

func TestInboxWatcherDrainsExisting(t *testing.T) {
	dir := t.TempDir()

	// Write items BEFORE starting the watcher
	writer := NewInboxWriter(dir)
	_ = writer.Write(agent.IngestItem{Type: types.IngestTypeNote, Content: "first"})
	_ = writer.Write(agent.IngestItem{Type: types.IngestTypeNote, Content: "second"})

	sink := &chanIngestor{items: make(chan agent.IngestItem, 10)}
	watcher := NewInboxWatcher(dir, sink)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Drain processes both files synchronously during Start
	time.Sleep(100 * time.Millisecond)

	if len(sink.items) != 2 {
		t.Fatalf("expected 2 drained items, got %d", len(sink.items))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected consumed files to be removed, %d remain", len(entries))
	}
}

func TestInboxWatcherSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "garbage.item"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	sink := &chanIngestor{items: make(chan agent.IngestItem, 1)}
	watcher := NewInboxWatcher(dir, sink)
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	if len(sink.items) != 0 {
		t.Error("invalid file produced an ingest item")
	}
}
