package notify

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mindwell/recall/internal/agent"
)

// Ingestor consumes items drained from the inbox. The agent router
// satisfies this.
type Ingestor interface {
	IngestData(ctx context.Context, item agent.IngestItem) error
}

// InboxWatcher watches the inbox directory for dropped item files and feeds
// them to the ingestor. Files are consumed (deleted) once read, so external
// pipelines can treat the directory as a fire-and-forget queue.
type InboxWatcher struct {
	dir      string
	ingestor Ingestor
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewInboxWatcher creates a watcher over the given directory.
func NewInboxWatcher(dir string, ingestor Ingestor) *InboxWatcher {
	return &InboxWatcher{
		dir:      dir,
		ingestor: ingestor,
		done:     make(chan struct{}),
	}
}

// Start begins watching. It drains any item files already present, then
// watches for new ones. Call Stop to clean up.
func (iw *InboxWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(iw.dir, 0o700); err != nil {
		return err
	}

	iw.drainExisting(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(iw.dir); err != nil {
		_ = w.Close()
		return err
	}
	iw.watcher = w

	go iw.loop(ctx)
	log.Printf("notify: watching %s for ingest items", iw.dir)
	return nil
}

// Stop shuts down the watcher.
func (iw *InboxWatcher) Stop() {
	if iw.watcher != nil {
		_ = iw.watcher.Close()
	}
	<-iw.done
}

func (iw *InboxWatcher) loop(ctx context.Context) {
	defer close(iw.done)
	for {
		select {
		case evt, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 && strings.HasSuffix(evt.Name, ".item") {
				iw.processFile(ctx, evt.Name)
			}
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

func (iw *InboxWatcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(iw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".item") {
			iw.processFile(ctx, filepath.Join(iw.dir, entry.Name()))
		}
	}
}

func (iw *InboxWatcher) processFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // file already consumed by another process
	}
	_ = os.Remove(path)

	var item agent.IngestItem
	if err := json.Unmarshal(data, &item); err != nil {
		log.Printf("notify: invalid item file %s: %v", filepath.Base(path), err)
		return
	}

	if err := iw.ingestor.IngestData(ctx, item); err != nil {
		log.Printf("notify: WARNING: failed to ingest %s: %v", filepath.Base(path), err)
	}
}
