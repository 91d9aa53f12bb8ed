package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mindwell/recall/internal/importer"
	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/internal/storage/memory"
)

func writeNote(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestImportVault(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "garden/alpha-note.md", `---
title: Alpha Note
tags: [garden]
date: 2026-03-01
---

# Alpha Note

Planning notes, see [[Beta Note]] for the follow-up.
`)
	writeNote(t, vault, "garden/beta-note.md", `---
title: Beta Note
---

Follow-up detail, links back to [[Alpha Note]].
`)
	writeNote(t, vault, "empty.md", "   \n")
	writeNote(t, vault, ".obsidian/workspace.md", "ignored")

	store := memory.NewStore()
	defer store.Close()

	imp := importer.New(store, privacy.MustNewAnalyzer())
	report, err := imp.Import(context.Background(), vault)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if report.FilesFound != 3 {
		t.Errorf("expected 3 files found, got %d", report.FilesFound)
	}
	if report.NotesCreated != 2 {
		t.Errorf("expected 2 notes created, got %d", report.NotesCreated)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", report.Skipped)
	}
	if report.LinksResolved != 2 {
		t.Errorf("expected 2 links resolved, got %d", report.LinksResolved)
	}

	notes, err := store.ListNotes(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 stored notes, got %d", len(notes))
	}
	for _, note := range notes {
		if !strings.HasPrefix(note.ID, "note:import:") {
			t.Errorf("unexpected note ID %q", note.ID)
		}
		found := false
		for _, tag := range note.ContextTags {
			if tag == "source:import" {
				found = true
			}
		}
		if !found {
			t.Errorf("note %q missing source:import tag, got %v", note.ID, note.ContextTags)
		}
	}

	entities, err := store.ListEntities(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list entities: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities (Alpha Note, Beta Note), got %d", len(entities))
	}

	rels, err := store.ListRelationships(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list relationships: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(rels))
	}
	for _, rel := range rels {
		if rel.PredicateType != "relates_to" {
			t.Errorf("unexpected predicate %q", rel.PredicateType)
		}
		if !strings.HasPrefix(rel.ID, "rel:") {
			t.Errorf("unexpected relationship ID %q", rel.ID)
		}
	}
}

func TestImportIsIdempotent(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "solo.md", "# Solo\n\nNo links here.")

	store := memory.NewStore()
	defer store.Close()

	imp := importer.New(store, privacy.MustNewAnalyzer())
	for i := 0; i < 2; i++ {
		if _, err := imp.Import(context.Background(), vault); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
	}

	notes, err := store.ListNotes(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("re-import duplicated notes: got %d", len(notes))
	}
}

func TestImportTagsSensitiveContent(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "health.md", "# Checkup\n\nMy blood pressure reading was high this week.")

	store := memory.NewStore()
	defer store.Close()

	imp := importer.New(store, privacy.MustNewAnalyzer())
	if _, err := imp.Import(context.Background(), vault); err != nil {
		t.Fatalf("import: %v", err)
	}

	notes, err := store.ListNotes(context.Background(), storage.ScanOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	found := false
	for _, tag := range notes[0].ContextTags {
		if tag == "privacy:sensitive" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected privacy:sensitive tag, got %v", notes[0].ContextTags)
	}
}

func TestImportRejectsMissingDirectory(t *testing.T) {
	imp := importer.New(memory.NewStore(), privacy.MustNewAnalyzer())
	if _, err := imp.Import(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestParseNote(t *testing.T) {
	content := []byte(`---
title: Test Note
tags: [reading, ideas]
date: 2026-01-15
---

# Test Note

Links to [[Another Note]] and [[Third Note|Display Name]].

Some content. #inline-tag
`)

	parsed, err := importer.ParseNote(content, "journal/2026/test-note.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if parsed.Title != "Test Note" {
		t.Errorf("title %q", parsed.Title)
	}
	if len(parsed.Topics) != 2 || parsed.Topics[0] != "journal" || parsed.Topics[1] != "2026" {
		t.Errorf("topics %v", parsed.Topics)
	}
	if len(parsed.Links) != 2 {
		t.Errorf("expected 2 links, got %v", parsed.Links)
	}
	if parsed.CreatedAt.IsZero() {
		t.Error("date frontmatter not parsed")
	}
	if strings.Contains(parsed.Body, "[[") {
		t.Errorf("wiki links not stripped: %q", parsed.Body)
	}
	if !strings.Contains(parsed.Body, "Display Name") {
		t.Errorf("alias not preserved: %q", parsed.Body)
	}

	wantTags := map[string]bool{"reading": false, "ideas": false, "inline-tag": false}
	for _, tag := range parsed.Tags {
		if _, ok := wantTags[tag]; ok {
			wantTags[tag] = true
		}
	}
	for tag, seen := range wantTags {
		if !seen {
			t.Errorf("missing tag %q in %v", tag, parsed.Tags)
		}
	}
}

func TestParseNoteWithoutFrontmatter(t *testing.T) {
	parsed, err := importer.ParseNote([]byte("plain text body"), "loose-thought.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "loose thought" {
		t.Errorf("title %q", parsed.Title)
	}
	if len(parsed.Topics) != 0 {
		t.Errorf("topics %v", parsed.Topics)
	}
}

func TestWikiLinksFlattenedAndDeduplicated(t *testing.T) {
	content := "See [[Project Alpha]] and [[Beta|Custom Label]]. Also [[project alpha]] again."

	parsed, err := importer.ParseNote([]byte(content), "linked.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Links) != 2 {
		t.Fatalf("expected 2 unique links, got %v", parsed.Links)
	}
	if parsed.Links[0].Target != "Project Alpha" {
		t.Errorf("first target %q", parsed.Links[0].Target)
	}
	if parsed.Links[1].Target != "Beta" || parsed.Links[1].Alias != "Custom Label" {
		t.Errorf("second link %+v", parsed.Links[1])
	}
	want := "See Project Alpha and Custom Label. Also project alpha again."
	if parsed.Body != want {
		t.Errorf("body %q, want %q", parsed.Body, want)
	}
}
