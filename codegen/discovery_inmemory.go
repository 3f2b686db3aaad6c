package codegen

import (
	"context"
	"fmt"
)

type InMemoryDocument struct {
	Name    string
	Kind    DocumentKind
	Content string
}

// InMemoryDiscovery is a Discovery over documents held in memory, listed in
// the order given.
type InMemoryDiscovery struct {
	metas    []*DocumentMetadata
	contents map[string]string
}

func NewInMemoryDiscovery(docs []InMemoryDocument) *InMemoryDiscovery {
	discovery := &InMemoryDiscovery{contents: make(map[string]string, len(docs))}
	for _, doc := range docs {
		discovery.metas = append(discovery.metas, &DocumentMetadata{
			ID:       doc.Name,
			Kind:     doc.Kind,
			FilePath: doc.Name,
		})
		discovery.contents[doc.Name] = doc.Content
	}
	return discovery
}

// ListMetadata implements Discovery interface
func (d *InMemoryDiscovery) ListMetadata(ctx context.Context) ([]*DocumentMetadata, error) {
	return d.metas, nil
}

// ReadDocument implements Discovery interface
func (d *InMemoryDiscovery) ReadDocument(ctx context.Context, id string) (string, error) {
	content, exists := d.contents[id]
	if !exists {
		return "", fmt.Errorf("document %q not found", id)
	}
	return content, nil
}
