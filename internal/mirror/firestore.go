package mirror

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the Backend over a Cloud Firestore client.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	if client == nil {
		panic("mirror.NewFirestore: client is nil")
	}
	return &Firestore{client: client}
}

func (f *Firestore) doc(docPath string) (*firestore.DocumentRef, error) {
	ref := f.client.Doc(docPath)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", docPath)
	}
	return ref, nil
}

func (f *Firestore) collection(collectionPath string) (*firestore.CollectionRef, error) {
	ref := f.client.Collection(collectionPath)
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path %q", collectionPath)
	}
	return ref, nil
}

func (f *Firestore) Set(ctx context.Context, docPath string, data any) error {
	ref, err := f.doc(docPath)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, data)
	return err
}

func (f *Firestore) Delete(ctx context.Context, docPath string) error {
	ref, err := f.doc(docPath)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (f *Firestore) List(ctx context.Context, collectionPath string) ([]Document, error) {
	ref, err := f.collection(collectionPath)
	if err != nil {
		return nil, err
	}
	snaps, err := ref.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return wrapSnapshots(snaps), nil
}

func (f *Firestore) Watch(ctx context.Context, collectionPath string) Watcher {
	ref, err := f.collection(collectionPath)
	if err != nil {
		return failedWatcher{err: err}
	}
	return &firestoreWatcher{it: ref.Snapshots(ctx)}
}

type firestoreDoc struct {
	snap *firestore.DocumentSnapshot
}

func (d firestoreDoc) ID() string { return d.snap.Ref.ID }

func (d firestoreDoc) DataTo(v any) error { return d.snap.DataTo(v) }

func wrapSnapshots(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, firestoreDoc{snap: s})
	}
	return docs
}

type firestoreWatcher struct {
	it *firestore.QuerySnapshotIterator
}

func (w *firestoreWatcher) Next() ([]Document, error) {
	qs, err := w.it.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
			return nil, iterator.Done
		}
		return nil, err
	}
	snaps, err := qs.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return wrapSnapshots(snaps), nil
}

func (w *firestoreWatcher) Stop() { w.it.Stop() }

type failedWatcher struct{ err error }

func (w failedWatcher) Next() ([]Document, error) { return nil, w.err }
func (w failedWatcher) Stop()                     {}
