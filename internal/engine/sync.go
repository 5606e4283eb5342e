package engine

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/analytics"
	"taskboard/internal/auth"
	"taskboard/internal/domain"
	"taskboard/internal/mirror"
)

// requireRemote checks the mirror and the signed-in user before any manual sync.
// Without a user the label becomes StatusAuthRequired and ErrRequired is returned.
func (e *Engine) requireRemote() (string, error) {
	if e.mirror == nil {
		return "", ErrNoRemote
	}
	userID, err := auth.Require(e.auth)
	if err != nil {
		e.setStatus(StatusAuthRequired)
		return "", err
	}
	return userID, nil
}

// PushBoard uploads every task of the board. Local state is never touched.
func (e *Engine) PushBoard(ctx context.Context, boardID string) (int, error) {
	userID, err := e.requireRemote()
	if err != nil {
		return 0, err
	}
	e.setStatus(StatusSaving)
	e.loaded(ctx, boardID)
	tasks := e.Tasks(boardID)
	pushed, err := e.mirror.PushTasks(ctx, userID, boardID, tasks)
	e.track(ctx, analytics.EventCloudSync, analytics.Params{"sync_type": "push", "success": err == nil, "item_count": pushed})
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{"board_id": boardID, "user_id": userID}).Warn("cloud save failed")
		e.setStatus(StatusSaveFailed)
		return pushed, err
	}
	e.setStatus(StatusSaved)
	return pushed, nil
}

// PullBoard replaces the board's collection, in memory and on disk, with the
// remote documents. A failed pull leaves local state alone.
func (e *Engine) PullBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	userID, err := e.requireRemote()
	if err != nil {
		return nil, err
	}
	e.setStatus(StatusLoading)
	res := e.mirror.PullTasks(ctx, userID, boardID)
	e.track(ctx, analytics.EventCloudSync, analytics.Params{"sync_type": "pull", "success": res.Success, "item_count": len(res.Tasks)})
	if !res.Success {
		e.logger.WithError(res.Err).WithFields(log.Fields{"board_id": boardID, "user_id": userID}).Warn("cloud load failed")
		e.setStatus(StatusLoadFailed)
		return nil, res.Err
	}
	e.mu.Lock()
	e.tasks[boardID] = domain.CloneTasks(res.Tasks)
	pending := e.pendingLocked(boardID)
	e.mu.Unlock()
	e.setStatus(StatusLoaded)
	if err := e.save(ctx, pending); err != nil {
		return res.Tasks, err
	}
	return res.Tasks, nil
}

// SyncBoards uploads the board registry and records lastSyncTime on success.
func (e *Engine) SyncBoards(ctx context.Context) error {
	userID, err := e.requireRemote()
	if err != nil {
		return err
	}
	list, err := e.boards.Load(ctx)
	if err != nil {
		return err
	}
	e.setStatus(StatusSyncing)
	err = e.mirror.PushBoards(ctx, list, userID)
	e.track(ctx, analytics.EventCloudSync, analytics.Params{"sync_type": "boards", "success": err == nil, "item_count": len(list)})
	if err != nil {
		e.setStatus(StatusSyncFailed)
		return err
	}
	if err := e.boards.SetLastSyncTime(ctx, e.Now()); err != nil {
		e.logger.WithError(err).Warn("record last sync time failed")
	}
	e.setStatus("Synced: " + e.clock())
	return nil
}

// RestoreBoards pulls the remote registry and, when it is not empty, replaces
// the local one with it.
func (e *Engine) RestoreBoards(ctx context.Context) ([]domain.Board, error) {
	userID, err := e.requireRemote()
	if err != nil {
		return nil, err
	}
	e.setStatus(StatusLoading)
	res := e.mirror.PullBoards(ctx, userID)
	e.track(ctx, analytics.EventCloudSync, analytics.Params{"sync_type": "restore", "success": res.Success, "item_count": len(res.Boards)})
	if !res.Success {
		e.setStatus(StatusLoadFailed)
		return nil, res.Err
	}
	if len(res.Boards) > 0 {
		if err := e.boards.Save(ctx, res.Boards); err != nil {
			e.setStatus(StatusLoadFailed)
			return nil, err
		}
	}
	e.setStatus(StatusLoaded)
	return res.Boards, nil
}

// resubscribe drops every remote listener and, for a signed-in user, pushes
// each board held in memory before listening to it and to the board registry,
// so no snapshot can replace tasks changed while signed out. With boards to push
// it returns before the pushes finish.
func (e *Engine) resubscribe(ctx context.Context, userID string) {
	e.closeSubscriptions()
	if userID == "" || e.mirror == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	gen := e.subGen
	pushes := make([]pendingSave, 0, len(e.tasks))
	for id := range e.tasks {
		pushes = append(pushes, e.changedLocked(id))
	}
	if len(pushes) == 0 {
		e.mu.Unlock()
		e.listen(ctx, userID, gen)
		return
	}
	e.subWG.Add(1)
	e.mu.Unlock()
	e.setStatus(StatusSyncing)

	go func() {
		defer e.subWG.Done()
		for _, p := range pushes {
			e.pushBoard(ctx, userID, p)
		}
		e.listen(ctx, userID, gen)
	}()
}

// listen subscribes to the board registry and to each board held in memory,
// unless the subscriptions were reset since gen was taken.
func (e *Engine) listen(ctx context.Context, userID string, gen uint64) {
	e.mu.Lock()
	if e.closed || e.subGen != gen {
		e.mu.Unlock()
		return
	}
	e.subUser = userID
	ids := make([]string, 0, len(e.tasks))
	for id := range e.tasks {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	if len(ids) == 0 {
		ids = []string{domain.DefaultBoardID}
	}

	bsub, err := e.mirror.SubscribeBoards(ctx, userID)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("subscribe boards failed")
	} else {
		e.mu.Lock()
		if e.closed || e.subGen != gen || e.boardSub != nil {
			e.mu.Unlock()
			bsub.Close()
		} else {
			e.boardSub = bsub
			e.subWG.Add(1)
			e.mu.Unlock()
			go e.consumeBoards(bsub)
		}
	}
	for _, id := range ids {
		e.watchBoard(ctx, id)
	}
}

// watchBoard starts a task listener for boardID unless one is already running.
func (e *Engine) watchBoard(ctx context.Context, boardID string) {
	if e.mirror == nil {
		return
	}
	userID := e.UserID()
	if userID == "" {
		return
	}
	e.mu.Lock()
	if e.closed || e.subUser != userID || e.subs[boardID] != nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	sub, err := e.mirror.SubscribeTasks(context.WithoutCancel(ctx), userID, boardID)
	if err != nil {
		e.logger.WithError(err).WithField("board_id", boardID).Warn("subscribe tasks failed")
		return
	}
	e.mu.Lock()
	if e.closed || e.subs[boardID] != nil || e.subUser != userID {
		e.mu.Unlock()
		sub.Close()
		return
	}
	e.subs[boardID] = sub
	e.mu.Unlock()
	e.subWG.Add(1)
	go e.consumeTasks(boardID, sub)
}

// consumeTasks applies remote snapshots of one board. Snapshots that arrive
// while a local push of the board is in flight are skipped, as is an empty
// first snapshot: the remote has nothing for the board yet.
func (e *Engine) consumeTasks(boardID string, sub *mirror.Subscription[[]domain.Task]) {
	defer e.subWG.Done()
	defer func() {
		e.mu.Lock()
		if e.subs[boardID] == sub {
			delete(e.subs, boardID)
		}
		e.mu.Unlock()
	}()
	first := true
	for snap := range sub.Events() {
		if snap.Err != nil {
			if !errors.Is(snap.Err, context.Canceled) {
				e.logger.WithError(snap.Err).WithField("board_id", boardID).Warn("task listener failed")
				e.setStatus(StatusSyncFailed)
			}
			continue
		}
		initial := first
		first = false
		e.mu.Lock()
		if e.subs[boardID] != sub || (initial && len(snap.Items) == 0) {
			e.mu.Unlock()
			continue
		}
		if w := e.writers[boardID]; w != nil && w.inflight > 0 {
			e.mu.Unlock()
			continue
		}
		e.tasks[boardID] = domain.CloneTasks(snap.Items)
		e.status = "Tasks live update: " + e.clock()
		e.mu.Unlock()
	}
}

func (e *Engine) consumeBoards(sub *mirror.Subscription[[]domain.Board]) {
	defer e.subWG.Done()
	for snap := range sub.Events() {
		if snap.Err != nil {
			e.logger.WithError(snap.Err).Warn("board listener failed")
			continue
		}
		e.mu.Lock()
		if e.boardSub == sub {
			e.status = "Boards live update: " + e.clock()
		}
		e.mu.Unlock()
		e.logger.WithField("boards", len(snap.Items)).Debug("remote boards changed")
	}
}

func (e *Engine) closeSubscriptions() {
	e.mu.Lock()
	subs := e.subs
	bsub := e.boardSub
	e.subs = map[string]*mirror.Subscription[[]domain.Task]{}
	e.boardSub = nil
	e.subUser = ""
	e.subGen++
	e.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	if bsub != nil {
		bsub.Close()
	}
}

func (e *Engine) dropSubscription(boardID string) {
	e.mu.Lock()
	sub := e.subs[boardID]
	delete(e.subs, boardID)
	e.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}
