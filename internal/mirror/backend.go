package mirror

import "context"

// Document is one fetched remote document.
type Document interface {
	ID() string
	DataTo(v any) error
}

// Watcher yields successive full snapshots of a collection. Next returns
// iterator.Done once Stop has been called.
type Watcher interface {
	Next() ([]Document, error)
	Stop()
}

// Backend is a hierarchical document store addressed by slash-separated paths.
type Backend interface {
	Set(ctx context.Context, docPath string, data any) error
	Delete(ctx context.Context, docPath string) error
	List(ctx context.Context, collectionPath string) ([]Document, error)
	Watch(ctx context.Context, collectionPath string) Watcher
}
