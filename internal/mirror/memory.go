package mirror

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"google.golang.org/api/iterator"
)

// Memory is an in-process Backend with Firestore-like snapshot delivery.
type Memory struct {
	mu       sync.Mutex
	docs     map[string][]byte
	watchers map[string]map[*memoryWatcher]struct{}
	fail     error
}

func NewMemory() *Memory {
	return &Memory{docs: map[string][]byte{}, watchers: map[string]map[*memoryWatcher]struct{}{}}
}

// Fail makes every subsequent call return err; nil restores normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *Memory) Set(_ context.Context, docPath string, data any) error {
	raw, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.fail != nil {
		defer m.mu.Unlock()
		return m.fail
	}
	m.docs[docPath] = raw
	m.mu.Unlock()
	m.notify(path.Dir(docPath))
	return nil
}

func (m *Memory) Delete(_ context.Context, docPath string) error {
	m.mu.Lock()
	if m.fail != nil {
		defer m.mu.Unlock()
		return m.fail
	}
	delete(m.docs, docPath)
	m.mu.Unlock()
	m.notify(path.Dir(docPath))
	return nil
}

func (m *Memory) List(_ context.Context, collectionPath string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.listLocked(collectionPath), nil
}

func (m *Memory) listLocked(collectionPath string) []Document {
	prefix := collectionPath + "/"
	var docs []Document
	for p, raw := range m.docs {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		docs = append(docs, memoryDoc{id: rest, raw: raw})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	return docs
}

// Watch delivers the current snapshot on the first Next and one snapshot after
// every later change to the collection.
func (m *Memory) Watch(ctx context.Context, collectionPath string) Watcher {
	w := &memoryWatcher{
		m:          m,
		collection: collectionPath,
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		ctx:        ctx,
	}
	w.changed <- struct{}{}
	m.mu.Lock()
	set, ok := m.watchers[collectionPath]
	if !ok {
		set = map[*memoryWatcher]struct{}{}
		m.watchers[collectionPath] = set
	}
	set[w] = struct{}{}
	m.mu.Unlock()
	return w
}

func (m *Memory) notify(collectionPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for w := range m.watchers[collectionPath] {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

// Watchers reports how many watchers are open on collectionPath.
func (m *Memory) Watchers(collectionPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[collectionPath])
}

type memoryDoc struct {
	id  string
	raw []byte
}

func (d memoryDoc) ID() string { return d.id }

func (d memoryDoc) DataTo(v any) error { return sonic.ConfigStd.Unmarshal(d.raw, v) }

type memoryWatcher struct {
	m          *Memory
	collection string
	changed    chan struct{}
	done       chan struct{}
	once       sync.Once
	ctx        context.Context
}

func (w *memoryWatcher) Next() ([]Document, error) {
	select {
	case <-w.done:
		return nil, iterator.Done
	case <-w.ctx.Done():
		return nil, w.ctx.Err()
	case <-w.changed:
	}
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	if w.m.fail != nil {
		return nil, w.m.fail
	}
	return w.m.listLocked(w.collection), nil
}

func (w *memoryWatcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		w.m.mu.Lock()
		delete(w.m.watchers[w.collection], w)
		if len(w.m.watchers[w.collection]) == 0 {
			delete(w.m.watchers, w.collection)
		}
		w.m.mu.Unlock()
	})
}
