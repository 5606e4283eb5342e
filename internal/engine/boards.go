package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/analytics"
	"taskboard/internal/domain"
)

func (e *Engine) Boards(ctx context.Context) ([]domain.Board, error) {
	return e.boards.Load(ctx)
}

func (e *Engine) AddBoard(ctx context.Context, name string) (domain.Board, error) {
	b, err := e.boards.Add(ctx, name)
	if err != nil {
		return domain.Board{}, err
	}
	e.track(ctx, analytics.EventBoardCreated, analytics.Params{"board_name": b.Name})
	if userID := e.UserID(); userID != "" && e.mirror != nil {
		e.background(ctx, func(ctx context.Context) {
			if err := e.mirror.PushBoards(ctx, []domain.Board{b}, userID); err != nil {
				e.logger.WithError(err).WithField("board_id", b.ID).Warn("mirror board failed")
			}
		})
	}
	return b, nil
}

// RemoveBoard deletes the board and everything under it: the registry entry, the
// stored task collection, the in-memory collection and its listener, and, best
// effort, the remote board and task documents.
func (e *Engine) RemoveBoard(ctx context.Context, boardID string) error {
	if err := e.boards.Remove(ctx, boardID); err != nil {
		return err
	}
	e.dropSubscription(boardID)
	e.mu.Lock()
	delete(e.tasks, boardID)
	pending := e.pendingLocked(boardID)
	delete(e.writers, boardID)
	e.mu.Unlock()
	if err := e.clear(ctx, pending); err != nil {
		e.logger.WithError(err).WithField("board_id", boardID).Warn("clear board tasks failed")
	}
	e.track(ctx, analytics.EventBoardDeleted, analytics.Params{"board_id": boardID})
	if userID := e.UserID(); userID != "" && e.mirror != nil {
		e.background(ctx, func(ctx context.Context) {
			if err := e.mirror.DeleteBoard(ctx, userID, boardID); err != nil {
				e.logger.WithError(err).WithFields(log.Fields{"board_id": boardID, "user_id": userID}).Warn("mirror board delete failed")
			}
		})
	}
	return nil
}

// clear drops the stored collection and supersedes every earlier pending save.
func (e *Engine) clear(ctx context.Context, p pendingSave) error {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	if err := e.store.Clear(ctx, p.boardID); err != nil {
		return err
	}
	p.w.saved = p.seq
	return nil
}

// LastSyncTime is the time of the last successful SyncBoards, zero if none.
func (e *Engine) LastSyncTime(ctx context.Context) (time.Time, error) {
	return e.boards.LastSyncTime(ctx)
}

// Stats summarizes one board from memory.
func (e *Engine) Stats(ctx context.Context, boardID string) analytics.Stats {
	e.loaded(ctx, boardID)
	e.mu.Lock()
	tasks := domain.CloneTasks(e.tasks[boardID])
	active := len(e.tasks)
	e.mu.Unlock()
	return analytics.Summarize(tasks, active, e.Now().Location())
}

// AllStats summarizes every board held in memory.
func (e *Engine) AllStats() analytics.Stats {
	return analytics.SummarizeAll(e.TasksByBoard(), e.Now().Location())
}
