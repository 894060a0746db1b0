// Package docs turns uploaded files into text chunks ready for extraction.
package docs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/kritsw/teamgraph/internal/config"
)

// Document is one chunk of loaded text with its originating file. Title is
// set when the file declared one (Markdown frontmatter or first heading).
type Document struct {
	Content string
	Source  string
	Title   string
}

// Label identifies the chunk's origin for reporting, including the document
// title when one was found.
func (d Document) Label() string {
	if d.Title != "" {
		return d.Source + " (" + d.Title + ")"
	}
	return d.Source
}

// Loader reads PDF, plain-text and Markdown files and splits them into
// overlapping chunks sized for an LLM context window.
type Loader struct {
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewLoader creates a Loader. log may be nil.
func NewLoader(cfg config.DocumentConfig, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       log,
	}
}

// Load reads every path and returns the combined chunk list. Files with an
// unsupported extension are skipped with a warning rather than failing the
// whole batch; a file that exists but cannot be parsed is an error.
func (l *Loader) Load(ctx context.Context, paths []string) ([]Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(l.chunkSize),
		textsplitter.WithChunkOverlap(l.chunkOverlap),
	)

	var docs []Document
	for _, path := range paths {
		chunks, err := l.loadFile(ctx, path, splitter)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		docs = append(docs, chunks...)
	}

	l.logger.Info("documents loaded", "files", len(paths), "chunks", len(docs))
	return docs, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, splitter textsplitter.TextSplitter) ([]Document, error) {
	var loaded []schema.Document
	var title string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		loaded, err = documentloaders.NewPDF(f, info.Size()).LoadAndSplit(ctx, splitter)
		if err != nil {
			return nil, err
		}

	case ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		loaded, err = documentloaders.NewText(f).LoadAndSplit(ctx, splitter)
		if err != nil {
			return nil, err
		}

	case ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// Frontmatter is metadata, not content worth extracting from
		title = Title(string(raw))
		body := StripFrontmatter(string(raw))
		loaded, err = documentloaders.NewText(strings.NewReader(body)).LoadAndSplit(ctx, splitter)
		if err != nil {
			return nil, err
		}

	default:
		l.logger.Warn("skipping unsupported file type", "file", filepath.Base(path))
		return nil, nil
	}

	source := filepath.Base(path)
	docs := make([]Document, 0, len(loaded))
	for _, d := range loaded {
		docs = append(docs, Document{Content: d.PageContent, Source: source, Title: title})
	}
	return docs, nil
}
