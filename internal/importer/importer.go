// Package importer loads Markdown note collections, Obsidian vaults
// included, into the memory store. Each file becomes a processed note
// tagged with its privacy classification, and wiki links between notes
// are materialized as entity relationships.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// Report summarizes one completed import.
type Report struct {
	FilesFound    int           `json:"files_found"`
	NotesCreated  int           `json:"notes_created"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	LinksResolved int           `json:"links_resolved"`
	Errors        []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Importer walks a directory of Markdown files and writes notes, entities,
// and relationships to the store.
type Importer struct {
	store    storage.Store
	analyzer *privacy.Analyzer
	now      func() time.Time
}

// New creates an importer backed by the given store and analyzer.
func New(store storage.Store, analyzer *privacy.Analyzer) *Importer {
	return &Importer{store: store, analyzer: analyzer, now: time.Now}
}

// Import walks dir and imports every Markdown file found. Unreadable or
// unparseable files are counted and reported but do not abort the run.
// Note IDs are derived from the relative path, so re-importing the same
// directory updates notes in place instead of duplicating them.
func (imp *Importer) Import(ctx context.Context, dir string) (*Report, error) {
	start := imp.now()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("importer: cannot access %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("importer: %q is not a directory", dir)
	}

	files, err := collectMarkdownFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("importer: walk %q: %w", dir, err)
	}

	report := &Report{FilesFound: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rel, _ := filepath.Rel(dir, path)

		data, err := os.ReadFile(path)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		if strings.TrimSpace(string(data)) == "" {
			report.Skipped++
			continue
		}

		parsed, err := ParseNote(data, rel)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}

		if err := imp.storeNote(ctx, parsed); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		report.NotesCreated++

		resolved, err := imp.linkEntities(ctx, parsed)
		if err != nil {
			log.Printf("importer: WARNING: linking %s: %v", rel, err)
		}
		report.LinksResolved += resolved
	}

	report.Duration = imp.now().Sub(start)
	return report, nil
}

// storeNote converts a parsed file into a processed note. The privacy
// classification of the content is recorded as context tags so retrieval
// and routing honor it like any other memory.
func (imp *Importer) storeNote(ctx context.Context, parsed *ParsedNote) error {
	now := imp.now()
	analysis := imp.analyzer.AnalyzeMemoryPrivacy(parsed.Body)

	createdAt := parsed.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	tags := []string{"privacy:" + analysis.Level.String(), "source:import"}
	tags = append(tags, analysis.RiskFactors...)
	tags = append(tags, parsed.Tags...)

	note := types.ProcessedNote{
		ID:           noteID(parsed.RelativePath),
		OriginalText: parsed.Body,
		Summary:      parsed.Title,
		Topics:       parsed.Topics,
		CreatedAt:    createdAt,
		Importance:   importedImportance(analysis),
		Confidence:   0.9,
		ContextTags:  tags,
	}
	return imp.store.StoreNote(ctx, &note)
}

// linkEntities upserts an entity for the note and one per wiki-link target,
// then records a relates_to relationship for each link. It returns how many
// links were recorded.
func (imp *Importer) linkEntities(ctx context.Context, parsed *ParsedNote) (int, error) {
	if len(parsed.Links) == 0 {
		return 0, nil
	}

	source, err := imp.upsertEntity(ctx, parsed.Title)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, link := range parsed.Links {
		target, err := imp.upsertEntity(ctx, link.Target)
		if err != nil {
			return resolved, err
		}
		rel := types.NewRelationship(source.ID, types.PredRelatesTo, target.ID)
		rel.Evidence = []string{parsed.RelativePath}
		if err := imp.store.StoreRelationship(ctx, rel); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// upsertEntity finds an entity by name or creates a concept entity for it,
// bumping the mention count either way.
func (imp *Importer) upsertEntity(ctx context.Context, name string) (*types.Entity, error) {
	now := imp.now()

	entity, err := imp.store.FindEntityByName(ctx, name)
	switch {
	case err == nil:
		entity.Mentions++
		entity.LastMentioned = now
		entity.UpdatedAt = now
	case errors.Is(err, storage.ErrNotFound):
		entity = &types.Entity{
			ID:            "ent:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("recall:entity:"+strings.ToLower(name))).String(),
			Name:          name,
			Type:          "concept",
			Confidence:    0.6,
			Mentions:      1,
			LastMentioned: now,
			Importance:    0.4,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	default:
		return nil, err
	}

	if err := imp.store.StoreEntity(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// noteID derives a stable note ID from the file's relative path.
func noteID(relativePath string) string {
	return "note:import:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("recall:import:"+filepath.ToSlash(relativePath))).String()
}

func importedImportance(analysis types.PrivacyAnalysis) float64 {
	importance := 0.4
	switch analysis.Level {
	case types.PrivacyPersonal:
		importance += 0.1
	case types.PrivacySensitive:
		importance += 0.2
	}
	return importance
}

// collectMarkdownFiles walks dir and returns the .md and .markdown files,
// skipping hidden directories such as .obsidian and .git.
func collectMarkdownFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".md", ".markdown":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
