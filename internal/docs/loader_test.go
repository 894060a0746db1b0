package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kritsw/teamgraph/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", "The backend engineer builds the API.")
	md := writeFile(t, dir, "plan.md", "---\ntitle: Plan\n---\n# Plan\n\nThe QA engineer writes tests.")

	loader := NewLoader(config.DocumentConfig{ChunkSize: 1000, ChunkOverlap: 100}, nil)
	docs, err := loader.Load(context.Background(), []string{txt, md})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d chunks, want 2", len(docs))
	}
	if docs[0].Source != "notes.txt" || docs[1].Source != "plan.md" {
		t.Errorf("sources = %q, %q", docs[0].Source, docs[1].Source)
	}
	if docs[0].Title != "" || docs[1].Title != "Plan" {
		t.Errorf("titles = %q, %q, want only the markdown title", docs[0].Title, docs[1].Title)
	}
	if docs[1].Label() != "plan.md (Plan)" {
		t.Errorf("label = %q", docs[1].Label())
	}
	if strings.Contains(docs[1].Content, "title: Plan") {
		t.Error("frontmatter should be stripped from markdown content")
	}
	if !strings.Contains(docs[1].Content, "QA engineer") {
		t.Errorf("markdown body missing: %q", docs[1].Content)
	}
}

func TestLoadSplitsLongFiles(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("Each sprint the team plans new work. ", 50)
	path := writeFile(t, dir, "long.txt", long)

	loader := NewLoader(config.DocumentConfig{ChunkSize: 200, ChunkOverlap: 20}, nil)
	docs, err := loader.Load(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) < 2 {
		t.Fatalf("got %d chunks, want several", len(docs))
	}
	for _, d := range docs {
		if d.Source != "long.txt" {
			t.Errorf("chunk source = %q", d.Source)
		}
	}
}

func TestLoadSkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	docx := writeFile(t, dir, "report.docx", "binary-ish")
	txt := writeFile(t, dir, "ok.txt", "A designer sketches screens.")

	loader := NewLoader(config.DocumentConfig{ChunkSize: 1000, ChunkOverlap: 0}, nil)
	docs, err := loader.Load(context.Background(), []string{docx, txt})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "ok.txt" {
		t.Errorf("docs = %+v, want only ok.txt", docs)
	}
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no frontmatter", "# Title\n\nBody", "# Title\n\nBody"},
		{"with frontmatter", "---\ntitle: X\n---\n# Title\n\nBody", "# Title\n\nBody"},
		{"unterminated", "---\ntitle: X\n# Title", "---\ntitle: X\n# Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFrontmatter(tt.in); got != tt.want {
				t.Errorf("StripFrontmatter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	if got := Title("---\ntitle: From Frontmatter\n---\n# H1"); got != "From Frontmatter" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("# From Heading\n\nbody"); got != "From Heading" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("plain text only"); got != "" {
		t.Errorf("Title = %q, want empty", got)
	}
}
