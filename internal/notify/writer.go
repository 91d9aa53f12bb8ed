// Package notify implements the filesystem ingestion inbox: external
// pipelines (or the CLI) drop item files into a shared directory and the
// running service picks them up and ingests them.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mindwell/recall/internal/agent"
)

// InboxWriter drops ingest item files into the inbox directory. It is the
// producer side of InboxWatcher.
type InboxWriter struct {
	dir string
}

// NewInboxWriter creates a writer targeting the given inbox directory.
func NewInboxWriter(dir string) *InboxWriter {
	return &InboxWriter{dir: dir}
}

// Write serializes the item to a uniquely named file in the inbox.
// Safe to call concurrently across processes.
func (w *InboxWriter) Write(item agent.IngestItem) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("notify: marshal item: %w", err)
	}

	// Write to a temp name first so the watcher never observes a partial
	// file, then rename into place.
	final := filepath.Join(w.dir, fmt.Sprintf("%d-%s.item", time.Now().UnixNano(), item.Type))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("notify: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("notify: rename %s: %w", tmp, err)
	}
	return nil
}
