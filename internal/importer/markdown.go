package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParsedNote is one Markdown file after parsing, ready to become a
// processed note.
type ParsedNote struct {
	// RelativePath is the path relative to the import root.
	RelativePath string

	// Title comes from frontmatter, the first H1 heading, or the filename,
	// in that order of preference.
	Title string

	// Body is the Markdown body with frontmatter stripped and wiki links
	// flattened to their display text.
	Body string

	// Tags merges frontmatter tags with inline #hashtags.
	Tags []string

	// Topics are the directory segments of RelativePath, lowercased.
	Topics []string

	// Links are the [[wiki-link]] targets the note references.
	Links []WikiLink

	// CreatedAt comes from a frontmatter date field, zero when absent.
	CreatedAt time.Time
}

// ParseNote parses a single Markdown file.
func ParseNote(content []byte, relativePath string) (*ParsedNote, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("importer: %s: %w", relativePath, err)
	}

	title := frontmatterString(fm, "title")
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = titleFromPath(relativePath)
	}

	flat, links := flattenWikiLinks(body)

	return &ParsedNote{
		RelativePath: relativePath,
		Title:        title,
		Body:         strings.TrimSpace(flat),
		Tags:         mergeTags(frontmatterTags(fm), inlineTags(body)),
		Topics:       topicsFromPath(relativePath),
		Links:        links,
		CreatedAt:    frontmatterTime(fm),
	}, nil
}

// WikiLink is one [[wiki-link]] reference found in a note body.
type WikiLink struct {
	// Target is the linked note or page name.
	Target string
	// Alias is the display text for [[target|alias]] links, empty otherwise.
	Alias string
}

// wikilinkRe matches [[target]] and [[target|alias]].
var wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// flattenWikiLinks walks the body once, replacing every [[wiki-link]] with
// its display text (alias when present, target otherwise) and collecting the
// referenced targets. Targets deduplicate case-insensitively in order of
// first appearance.
func flattenWikiLinks(body string) (string, []WikiLink) {
	matches := wikilinkRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	var flat strings.Builder
	flat.Grow(len(body))
	seen := make(map[string]bool)
	var links []WikiLink

	pos := 0
	for _, m := range matches {
		target := strings.TrimSpace(body[m[2]:m[3]])
		alias := ""
		if m[4] >= 0 {
			alias = strings.TrimSpace(body[m[4]:m[5]])
		}

		flat.WriteString(body[pos:m[0]])
		if alias != "" {
			flat.WriteString(alias)
		} else {
			flat.WriteString(target)
		}
		pos = m[1]

		if key := strings.ToLower(target); !seen[key] {
			seen[key] = true
			links = append(links, WikiLink{Target: target, Alias: alias})
		}
	}
	flat.WriteString(body[pos:])
	return flat.String(), links
}

// splitFrontmatter separates YAML frontmatter between --- delimiters from
// the body. Files without frontmatter come back with an empty map.
func splitFrontmatter(text string) (map[string]any, string, error) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]any{}, text, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return map[string]any{}, text, nil
	}

	fm := make(map[string]any)
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &fm); err != nil {
		return nil, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, strings.Join(lines[end+1:], "\n"), nil
}

func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

func topicsFromPath(rel string) []string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return nil
	}
	topics := make([]string, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		if topic := strings.ToLower(strings.TrimSpace(part)); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// frontmatterTags accepts both a YAML list and a comma-separated string.
func frontmatterTags(fm map[string]any) []string {
	switch v := fm["tags"].(type) {
	case []any:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

func frontmatterTime(fm map[string]any) time.Time {
	for _, key := range []string{"date", "created", "created_at"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case time.Time:
			return v
		case string:
			s = v
		default:
			s = fmt.Sprintf("%v", v)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func frontmatterString(fm map[string]any, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

func inlineTags(body string) []string {
	var tags []string
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		tags = append(tags, strings.TrimSpace(m[1]))
	}
	return tags
}

// mergeTags deduplicates case-insensitively, keeping first-seen casing.
func mergeTags(a, b []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range append(a, b...) {
		lower := strings.ToLower(tag)
		if !seen[lower] {
			seen[lower] = true
			result = append(result, tag)
		}
	}
	return result
}
