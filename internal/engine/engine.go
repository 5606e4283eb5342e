// Package engine is the shared state coordinator: it owns the live in-memory task
// collections of every open board and bridges the local store with the remote mirror.
//
// Local mutations update memory synchronously, then persist and mirror in two
// independent background steps. Neither step rolls back memory on failure; the
// mirror only updates the sync status label. Remote snapshots overwrite the
// in-memory collection of their board with no merge, so whichever write lands
// last wins.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/analytics"
	"taskboard/internal/auth"
	"taskboard/internal/boards"
	"taskboard/internal/domain"
	"taskboard/internal/mirror"
	"taskboard/internal/notify"
	"taskboard/internal/taskstore"
)

// Sync status labels.
const (
	StatusNotSynced    = "Not synced"
	StatusSyncing      = "Syncing..."
	StatusSyncFailed   = "Sync failed"
	StatusAuthRequired = "Authentication required"
	StatusSaving       = "Saving tasks to cloud..."
	StatusSaved        = "Tasks saved to cloud!"
	StatusSaveFailed   = "Cloud save failed"
	StatusLoading      = "Loading tasks from cloud..."
	StatusLoaded       = "Tasks loaded from cloud!"
	StatusLoadFailed   = "Cloud load failed"
)

const clockLayout = "15:04:05"

// ErrNoRemote is returned by manual sync operations when no mirror is configured.
var ErrNoRemote = errors.New("remote sync not configured")

type Options struct {
	Store     *taskstore.Store
	Boards    *boards.Registry
	Mirror    *mirror.Mirror
	Auth      auth.Provider
	Notifier  notify.Notifier
	Analytics analytics.Sink
	Logger    log.FieldLogger

	// ReminderHour is the local hour due-date reminders fire at, the day before.
	ReminderHour int
	Now          func() time.Time
}

type Engine struct {
	store        *taskstore.Store
	boards       *boards.Registry
	mirror       *mirror.Mirror
	auth         auth.Provider
	notifier     notify.Notifier
	analytics    analytics.Sink
	logger       log.FieldLogger
	reminderHour int

	Now   func() time.Time
	NewID func() string

	mu         sync.Mutex
	tasks      map[string][]domain.Task
	status     string
	subs       map[string]*mirror.Subscription[[]domain.Task]
	boardSub   *mirror.Subscription[[]domain.Board]
	subUser    string
	subGen     uint64
	cancelAuth func()
	closed     bool
	writers    map[string]*boardWriter

	wg    sync.WaitGroup
	subWG sync.WaitGroup
}

// boardWriter orders the local saves and mirror pushes of one board: work
// stamped before the last completed one is dropped. inflight is guarded by
// Engine.mu and counts pushes not yet finished.
type boardWriter struct {
	mu    sync.Mutex
	next  uint64
	saved uint64

	pushMu   sync.Mutex
	pushed   uint64
	inflight int
}

type pendingSave struct {
	boardID string
	tasks   []domain.Task
	w       *boardWriter
	seq     uint64
	push    bool
}

func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		boards:       opts.Boards,
		mirror:       opts.Mirror,
		auth:         opts.Auth,
		notifier:     opts.Notifier,
		analytics:    opts.Analytics,
		logger:       opts.Logger,
		reminderHour: opts.ReminderHour,
		Now:          opts.Now,
		NewID:        uuid.NewString,
		tasks:        map[string][]domain.Task{},
		status:       StatusNotSynced,
		subs:         map[string]*mirror.Subscription[[]domain.Task]{},
		writers:      map[string]*boardWriter{},
	}
	if e.logger == nil {
		e.logger = log.StandardLogger()
	}
	if e.notifier == nil {
		e.notifier = notify.LogNotifier{Logger: e.logger}
	}
	if e.analytics == nil {
		e.analytics = analytics.Discard{}
	}
	if e.reminderHour <= 0 || e.reminderHour > 23 {
		e.reminderHour = notify.DefaultReminderHour
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// Start subscribes to remote changes for the current user and follows later
// sign-ins and sign-outs.
func (e *Engine) Start(ctx context.Context) {
	if e.auth == nil || e.mirror == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	cancel := e.auth.OnChange(func(userID string) { e.resubscribe(ctx, userID) })
	e.mu.Lock()
	e.cancelAuth = cancel
	e.mu.Unlock()
	e.resubscribe(ctx, e.auth.UserID())
}

// Wait blocks until every background persist, push and notification has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close drops remote subscriptions and waits for background work.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	cancel := e.cancelAuth
	e.cancelAuth = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.closeSubscriptions()
	e.subWG.Wait()
	e.wg.Wait()
}

// SyncStatus is the label describing the last sync activity.
func (e *Engine) SyncStatus() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(s string) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

func (e *Engine) clock() string {
	return e.Now().Format(clockLayout)
}

// UserID is the signed-in user, or "".
func (e *Engine) UserID() string {
	if e.auth == nil {
		return ""
	}
	return e.auth.UserID()
}

func (e *Engine) track(ctx context.Context, name string, params analytics.Params) {
	e.analytics.Track(ctx, name, params)
}

// background runs fn detached from the caller's cancellation.
func (e *Engine) background(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(ctx)
	}()
}

// pendingLocked snapshots the board's collection for saving. Callers hold e.mu.
func (e *Engine) pendingLocked(boardID string) pendingSave {
	w := e.writers[boardID]
	if w == nil {
		w = &boardWriter{}
		e.writers[boardID] = w
	}
	w.next++
	return pendingSave{boardID: boardID, tasks: domain.CloneTasks(e.tasks[boardID]), w: w, seq: w.next}
}

func (e *Engine) save(ctx context.Context, p pendingSave) error {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	if p.seq <= p.w.saved {
		return nil
	}
	if err := e.store.Save(ctx, p.boardID, p.tasks); err != nil {
		return err
	}
	p.w.saved = p.seq
	return nil
}

func (e *Engine) persist(ctx context.Context, p pendingSave) {
	e.background(ctx, func(ctx context.Context) {
		if err := e.save(ctx, p); err != nil {
			e.logger.WithError(err).WithField("board_id", p.boardID).Error("persist tasks failed")
		}
	})
}

// changedLocked snapshots a local mutation for both saving and mirroring.
// Callers hold e.mu and hand the result to persist and mirrorBoard.
func (e *Engine) changedLocked(boardID string) pendingSave {
	p := e.pendingLocked(boardID)
	p.push = true
	p.w.inflight++
	return p
}

// release ends a mirror slot taken by changedLocked.
func (e *Engine) release(p pendingSave) {
	if !p.push {
		return
	}
	e.mu.Lock()
	p.w.inflight--
	e.mu.Unlock()
}

// mirrorBoard removes the deleted task documents, then pushes the board's
// whole collection for the signed-in user. Without one it only releases the slot.
func (e *Engine) mirrorBoard(ctx context.Context, p pendingSave, deleted ...string) {
	userID := e.UserID()
	if e.mirror == nil || userID == "" {
		e.release(p)
		return
	}
	e.setStatus(StatusSyncing)
	e.background(ctx, func(ctx context.Context) {
		e.pushBoard(ctx, userID, p, deleted...)
	})
}

// pushBoard is the body of mirrorBoard; it releases p's slot when done.
func (e *Engine) pushBoard(ctx context.Context, userID string, p pendingSave, deleted ...string) {
	defer e.release(p)
	fields := log.Fields{"board_id": p.boardID, "user_id": userID}
	p.w.pushMu.Lock()
	defer p.w.pushMu.Unlock()
	var failed bool
	for _, id := range deleted {
		if err := e.mirror.DeleteTask(ctx, userID, p.boardID, id); err != nil {
			e.logger.WithError(err).WithFields(fields).WithField("task_id", id).Warn("mirror delete failed")
			failed = true
		}
	}
	if p.seq > p.w.pushed {
		if _, err := e.mirror.PushTasks(ctx, userID, p.boardID, p.tasks); err != nil {
			e.logger.WithError(err).WithFields(fields).Warn("mirror tasks failed")
			failed = true
		} else {
			p.w.pushed = p.seq
		}
	}
	if failed {
		e.setStatus(StatusSyncFailed)
		return
	}
	e.setStatus("Synced: " + e.clock())
}

func (e *Engine) notify(ctx context.Context, n notify.Notification) {
	e.background(ctx, func(ctx context.Context) {
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.logger.WithError(err).WithField("title", n.Title).Warn("notification failed")
		}
	})
}

func (e *Engine) scheduleReminder(ctx context.Context, t domain.Task) {
	n, err := notify.Reminder(t, e.Now(), e.reminderHour)
	if err != nil {
		if !errors.Is(err, notify.ErrNoReminder) {
			e.logger.WithError(err).WithField("task_id", t.ID).Warn("reminder failed")
		}
		return
	}
	e.notify(ctx, n)
}
