package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/internal/storage/sqlite"
	"github.com/mindwell/recall/pkg/types"
)

// seedDatabase creates a SQLite store with one note and closes it.
func seedDatabase(t *testing.T, path string) {
	t.Helper()
	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	note := types.ProcessedNote{
		ID:           "note:backup-seed",
		OriginalText: "Repotted the fiddle-leaf fig",
		Summary:      "Plant care",
		CreatedAt:    time.Now().UTC(),
		Importance:   0.4,
		Confidence:   0.9,
	}
	if err := store.StoreNote(context.Background(), &note); err != nil {
		t.Fatalf("store note: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

func TestBackupNowCreatesVerifiedSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "recall.db")
	seedDatabase(t, dbPath)

	svc, err := NewService(Config{DBPath: dbPath, Dir: filepath.Join(dir, "backups"), Verify: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	snap, err := svc.BackupNow(context.Background())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !snap.Verified {
		t.Error("snapshot was not verified")
	}
	if snap.Size == 0 {
		t.Error("snapshot is empty")
	}
	if _, err := os.Stat(snap.Path); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
	if svc.LastBackup().IsZero() {
		t.Error("LastBackup not recorded")
	}
}

func TestBackupNowMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(Config{DBPath: filepath.Join(dir, "absent.db"), Dir: filepath.Join(dir, "backups")})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.BackupNow(context.Background()); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "recall.db")
	seedDatabase(t, dbPath)

	svc, err := NewService(Config{DBPath: dbPath, Dir: filepath.Join(dir, "backups"), Verify: true})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	snap, err := svc.BackupNow(context.Background())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}

	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("remove live database: %v", err)
	}
	if err := svc.Restore(context.Background(), snap.Path); err != nil {
		t.Fatalf("restore: %v", err)
	}

	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	notes, err := store.ListNotes(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "note:backup-seed" {
		t.Fatalf("restored data mismatch: %+v", notes)
	}
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "recall.db")
	seedDatabase(t, dbPath)

	bogus := filepath.Join(dir, "bogus.db")
	if err := os.WriteFile(bogus, []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, err := NewService(Config{DBPath: dbPath, Dir: filepath.Join(dir, "backups")})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Restore(context.Background(), bogus); err == nil {
		t.Fatal("expected corrupt snapshot to be rejected")
	}
	// The live database must be untouched.
	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	store.Close()
}

func TestListSnapshotsIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"readme.txt", "stats.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	want := filepath.Join(dir, "recall-20260101-000000.000000.db")
	if err := os.WriteFile(want, []byte("sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}

	snaps, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Path != want {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}

func TestPruneKeepsPerTierCounts(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeSnapshot := func(name string, age time.Duration) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("sqlite"), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := now.Add(-age)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	keepRecent := writeSnapshot("recall-a.db", 1*time.Hour)
	dropRecent := writeSnapshot("recall-b.db", 5*time.Hour)
	keepDaily := writeSnapshot("recall-c.db", 2*24*time.Hour)
	dropAncient := writeSnapshot("recall-d.db", 400*24*time.Hour)

	policy := Policy{Hourly: 1, Daily: 1, Weekly: 1, Monthly: 1}
	if err := prune(dir, policy, now); err != nil {
		t.Fatalf("prune: %v", err)
	}

	for _, path := range []string{keepRecent, keepDaily} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to survive: %v", filepath.Base(path), err)
		}
	}
	for _, path := range []string{dropRecent, dropAncient} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected %s to be pruned", filepath.Base(path))
		}
	}
}
