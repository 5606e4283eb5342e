package mirror

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/api/iterator"

	"taskboard/internal/domain"
)

// Snapshot is one remote change. A snapshot with Err set is the last one sent.
type Snapshot[T any] struct {
	Items T
	Err   error
}

// Subscription streams remote snapshots until Close. Events is closed once the
// underlying watcher stops.
type Subscription[T any] struct {
	events chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription[T]) Events() <-chan Snapshot[T] { return s.events }

// Close stops the watcher and waits for the delivery goroutine to exit.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func subscribe[T any](ctx context.Context, watch func(context.Context) Watcher, decode func([]Document) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{events: make(chan Snapshot[T], 1), cancel: cancel, done: make(chan struct{})}
	w := watch(ctx)
	stop := sync.OnceFunc(w.Stop)
	go func() {
		<-ctx.Done()
		stop()
	}()
	go func() {
		defer close(s.done)
		defer close(s.events)
		defer cancel()
		defer stop()
		for {
			docs, err := w.Next()
			if errors.Is(err, iterator.Done) || ctx.Err() != nil {
				return
			}
			var snap Snapshot[T]
			if err != nil {
				snap.Err = errors.Join(ErrRemote, err)
			} else {
				snap.Items, snap.Err = decode(docs)
			}
			select {
			case s.events <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Err != nil {
				return
			}
		}
	}()
	return s
}

// SubscribeTasks watches the task documents of one board.
func (m *Mirror) SubscribeTasks(ctx context.Context, userID, boardID string) (*Subscription[[]domain.Task], error) {
	if err := checkSegments(userID, boardID); err != nil {
		return nil, err
	}
	collection := TasksPath(userID, boardID)
	watch := func(ctx context.Context) Watcher { return m.backend.Watch(ctx, collection) }
	return subscribe(ctx, watch, decodeTasks), nil
}

// SubscribeBoards watches the user's board documents.
func (m *Mirror) SubscribeBoards(ctx context.Context, userID string) (*Subscription[[]domain.Board], error) {
	if err := checkSegments(userID); err != nil {
		return nil, err
	}
	collection := BoardsPath(userID)
	watch := func(ctx context.Context) Watcher { return m.backend.Watch(ctx, collection) }
	return subscribe(ctx, watch, decodeBoards), nil
}
