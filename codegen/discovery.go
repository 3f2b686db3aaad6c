package codegen

import (
	"context"
)

// DocumentKind separates schema definitions from executable documents.
type DocumentKind string

const (
	SchemaDocument    DocumentKind = "schema"
	OperationDocument DocumentKind = "operation"
)

type DocumentMetadata struct {
	ID   string
	Kind DocumentKind
	// slash-separated, relative to the discovery root
	FilePath string
}

// Discovery lists and reads the GraphQL sources of a generator run.
// ListMetadata must return documents in a stable order.
type Discovery interface {
	ListMetadata(ctx context.Context) ([]*DocumentMetadata, error)
	ReadDocument(ctx context.Context, id string) (string, error)
}
