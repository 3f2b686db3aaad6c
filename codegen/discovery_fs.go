package codegen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystemDiscovery implements Discovery over a directory tree.
type FileSystemDiscovery struct {
	root  string
	metas []*DocumentMetadata
}

// NewFileSystemDiscovery walks rootDir and classifies every file matching
// one of the schema or document patterns. A pattern containing "/" is
// matched against the slash-separated path relative to rootDir, any other
// pattern against the base name. Empty pattern lists default to
// "*.graphqls" for schemas and "*.graphql" for documents.
func NewFileSystemDiscovery(ctx context.Context, rootDir string, schema, documents []string) (*FileSystemDiscovery, error) {
	if len(schema) == 0 {
		schema = []string{"*.graphqls"}
	}
	if len(documents) == 0 {
		documents = []string{"*.graphql"}
	}
	for _, p := range append(append([]string(nil), schema...), documents...) {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	discovery := &FileSystemDiscovery{root: rootDir}
	err := filepath.WalkDir(rootDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != rootDir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "vendor" || d.Name() == "testdata") {
				return fs.SkipDir
			}
			return nil
		}
		relPath, err := filepath.Rel(rootDir, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %q: %w", p, err)
		}
		rel := filepath.ToSlash(relPath)

		var kind DocumentKind
		switch {
		case matchAny(schema, rel):
			kind = SchemaDocument
		case matchAny(documents, rel):
			kind = OperationDocument
		default:
			return nil
		}
		discovery.metas = append(discovery.metas, &DocumentMetadata{ID: rel, Kind: kind, FilePath: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	sort.Slice(discovery.metas, func(i, j int) bool { return discovery.metas[i].FilePath < discovery.metas[j].FilePath })
	return discovery, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		name := rel
		if !strings.Contains(p, "/") {
			name = path.Base(rel)
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (d *FileSystemDiscovery) ListMetadata(ctx context.Context) ([]*DocumentMetadata, error) {
	return d.metas, nil
}

// ReadDocument reads the file registered under id.
func (d *FileSystemDiscovery) ReadDocument(ctx context.Context, id string) (string, error) {
	for _, m := range d.metas {
		if m.ID != id {
			continue
		}
		content, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(m.FilePath)))
		if err != nil {
			return "", fmt.Errorf("failed to read document %q: %w", id, err)
		}
		return string(content), nil
	}
	return "", fmt.Errorf("document %q not found", id)
}
