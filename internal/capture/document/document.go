// Package document resolves PDF file names seen in window titles to files
// on disk and reads their metadata.
package document

import (
	"context"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"rsc.io/pdf"
)

// maxDepth bounds how far below each document dir the resolver looks.
const maxDepth = 4

// Resolver searches a fixed set of directories for a PDF by file name.
// Results, including misses, are cached for the life of the resolver.
type Resolver struct {
	dirs []string

	mu    sync.Mutex
	cache map[string]map[string]string
}

// NewResolver creates a Resolver over dirs.
func NewResolver(dirs []string) *Resolver {
	return &Resolver{dirs: dirs, cache: make(map[string]map[string]string)}
}

// Enrich returns metadata for fileName: file_path, page_count and, when
// the document has one, pdf_title. It returns nil if the file is not found.
func (r *Resolver) Enrich(ctx context.Context, fileName string) map[string]string {
	if fileName == "" || !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil
	}

	r.mu.Lock()
	if meta, ok := r.cache[fileName]; ok {
		r.mu.Unlock()
		return meta
	}
	r.mu.Unlock()

	var meta map[string]string
	if path := r.find(ctx, fileName); path != "" {
		meta = ReadMetadata(path)
	}

	r.mu.Lock()
	r.cache[fileName] = meta
	r.mu.Unlock()
	return meta
}

func (r *Resolver) find(ctx context.Context, fileName string) string {
	for _, dir := range r.dirs {
		found := ""
		base := filepath.Clean(dir)
		filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if d.IsDir() {
				rel, _ := filepath.Rel(base, path)
				if rel != "." && (strings.Count(rel, string(filepath.Separator)) >= maxDepth || strings.HasPrefix(d.Name(), ".")) {
					return fs.SkipDir
				}
				return nil
			}
			if d.Name() == fileName {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// ReadMetadata opens a PDF and reports its path, page count and title.
// Unreadable files still report their path.
func ReadMetadata(path string) (meta map[string]string) {
	meta = map[string]string{"file_path": path}

	// the pdf package panics on some malformed object graphs
	defer func() {
		recover()
	}()

	doc, err := pdf.Open(path)
	if err != nil {
		return meta
	}
	meta["page_count"] = strconv.Itoa(doc.NumPage())

	title := strings.TrimSpace(doc.Trailer().Key("Info").Key("Title").Text())
	if title != "" {
		meta["pdf_title"] = title
	}
	return meta
}
