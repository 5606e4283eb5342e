package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/analytics"
	"taskboard/internal/domain"
	"taskboard/internal/filter"
	"taskboard/internal/notify"
	"taskboard/internal/taskstore"
	"taskboard/internal/transition"
)

// OpenBoard reloads the board's collection from the local store into memory.
// A storage fault still yields the fallback collection alongside the error.
func (e *Engine) OpenBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	tasks, loadErr := e.store.Load(ctx, boardID)
	e.mu.Lock()
	e.tasks[boardID] = tasks
	out := domain.CloneTasks(tasks)
	e.mu.Unlock()

	name := ""
	if e.boards != nil {
		if b, err := e.boards.Get(ctx, boardID); err == nil {
			name = b.Name
		}
	}
	e.track(ctx, analytics.EventBoardOpened, analytics.Params{"board_id": boardID, "board_name": name})
	e.watchBoard(ctx, boardID)
	return out, loadErr
}

// loaded reads the board from the local store if it is not in memory yet.
// Callers must not hold e.mu.
func (e *Engine) loaded(ctx context.Context, boardID string) {
	e.mu.Lock()
	_, ok := e.tasks[boardID]
	e.mu.Unlock()
	if ok {
		return
	}
	tasks, err := e.store.Load(ctx, boardID)
	if err != nil {
		e.logger.WithError(err).WithField("board_id", boardID).Warn("load tasks failed, using fallback")
	}
	e.mu.Lock()
	if _, ok := e.tasks[boardID]; !ok {
		e.tasks[boardID] = tasks
	}
	e.mu.Unlock()
}

// Tasks returns a copy of the board's in-memory collection.
func (e *Engine) Tasks(boardID string) []domain.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneTasks(e.tasks[boardID])
}

// TasksByBoard returns a copy of every in-memory collection.
func (e *Engine) TasksByBoard() map[string][]domain.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]domain.Task, len(e.tasks))
	for id, tasks := range e.tasks {
		out[id] = domain.CloneTasks(tasks)
	}
	return out
}

func (e *Engine) AddTask(ctx context.Context, boardID string, in domain.TaskInput) (domain.Task, error) {
	in, err := in.Normalize()
	if err != nil {
		return domain.Task{}, err
	}
	e.loaded(ctx, boardID)

	e.mu.Lock()
	tasks := e.tasks[boardID]
	id := e.NewID()
	for domain.IndexOf(tasks, id) >= 0 {
		id = e.NewID()
	}
	task := in.Task(id, e.Now().UTC().Format(time.RFC3339Nano))
	e.tasks[boardID] = append(domain.CloneTasks(tasks), task)
	pending := e.changedLocked(boardID)
	e.mu.Unlock()

	e.persist(ctx, pending)
	e.mirrorBoard(ctx, pending)
	e.notify(ctx, notify.TaskUpdate(task, notify.MessageCreated))
	e.scheduleReminder(ctx, task)
	e.track(ctx, analytics.EventTaskCreated, analytics.Params{
		"task_status":     string(task.Status),
		"has_due_date":    task.DueDate != nil,
		"has_description": task.Description != "",
		"has_attachments": len(task.Attachments) > 0,
	})
	return task, nil
}

// mutate applies fn to one task in memory and returns the old and new record
// plus the save that records the change.
func (e *Engine) mutate(ctx context.Context, boardID, taskID string, fn func(domain.Task) domain.Task) (before, after domain.Task, pending pendingSave, err error) {
	e.loaded(ctx, boardID)
	e.mu.Lock()
	defer e.mu.Unlock()
	tasks := e.tasks[boardID]
	i := domain.IndexOf(tasks, taskID)
	if i < 0 {
		return domain.Task{}, domain.Task{}, pendingSave{}, fmt.Errorf("%w: %s", taskstore.ErrNotFound, taskID)
	}
	tasks = domain.CloneTasks(tasks)
	before = tasks[i]
	after = fn(before)
	after.ID, after.CreatedAt = before.ID, before.CreatedAt
	tasks[i] = after
	e.tasks[boardID] = tasks
	return before, after, e.changedLocked(boardID), nil
}

// UpdateTask merges patch over the task. A status change is reported as a move.
func (e *Engine) UpdateTask(ctx context.Context, boardID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	before, after, pending, err := e.mutate(ctx, boardID, taskID, patch.Apply)
	if err != nil {
		return domain.Task{}, err
	}
	e.persist(ctx, pending)
	e.mirrorBoard(ctx, pending)

	changeType := "details"
	if before.Status != after.Status {
		changeType = "status"
		e.notify(ctx, notify.TaskUpdate(after, transition.MovedMessage(after.Status)))
	} else {
		e.notify(ctx, notify.TaskUpdate(after, notify.MessageUpdated))
	}
	if dueChanged(before, after) {
		e.scheduleReminder(ctx, after)
	}
	e.track(ctx, analytics.EventTaskUpdated, analytics.Params{"task_status": string(after.Status), "change_type": changeType})
	return after, nil
}

func dueChanged(a, b domain.Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return false
	case a.DueDate == nil || b.DueDate == nil:
		return true
	}
	return *a.DueDate != *b.DueDate
}

// MoveTask shifts the task one column left or right. At either end of the board
// the move is a no-op and moved is false.
func (e *Engine) MoveTask(ctx context.Context, boardID, taskID string, dir transition.Direction) (task domain.Task, moved bool, err error) {
	var from domain.Status
	before, after, pending, err := e.mutate(ctx, boardID, taskID, func(t domain.Task) domain.Task {
		from = t.Status
		if next, ok := transition.Move(t.Status, dir); ok {
			t.Status = next
		}
		return t
	})
	if err != nil {
		return domain.Task{}, false, err
	}
	if before.Status == after.Status {
		e.release(pending)
		return after, false, nil
	}
	e.persist(ctx, pending)
	e.mirrorBoard(ctx, pending)
	e.notify(ctx, notify.TaskUpdate(after, transition.MovedMessage(after.Status)))
	e.track(ctx, analytics.EventTaskMoved, analytics.Params{"from_status": string(from), "to_status": string(after.Status), "method": "button"})
	return after, true, nil
}

// DropTasks moves the given tasks into column, whatever their current status.
// It returns the tasks whose status actually changed.
func (e *Engine) DropTasks(ctx context.Context, boardID string, column domain.Status, taskIDs []string) ([]domain.Task, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("%w: invalid column %q", domain.ErrValidation, column)
	}
	e.loaded(ctx, boardID)
	e.mu.Lock()
	res, err := transition.Drop(e.tasks[boardID], column, taskIDs)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.tasks[boardID] = res.Tasks
	pending := e.changedLocked(boardID)
	e.mu.Unlock()

	changed := make([]domain.Task, 0, len(res.Changed))
	for _, c := range res.Changed {
		changed = append(changed, c.Task)
	}
	e.persist(ctx, pending)
	e.mirrorBoard(ctx, pending)
	for _, c := range res.Changed {
		e.notify(ctx, notify.TaskUpdate(c.Task, transition.MovedMessage(c.Task.Status)))
		e.track(ctx, analytics.EventTaskMoved, analytics.Params{"from_status": string(c.From), "to_status": string(c.Task.Status), "method": "drag"})
	}
	return changed, nil
}

func (e *Engine) DeleteTask(ctx context.Context, boardID, taskID string) error {
	e.loaded(ctx, boardID)
	e.mu.Lock()
	tasks := e.tasks[boardID]
	i := domain.IndexOf(tasks, taskID)
	if i < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", taskstore.ErrNotFound, taskID)
	}
	removed := tasks[i]
	next := make([]domain.Task, 0, len(tasks)-1)
	next = append(next, tasks[:i]...)
	next = append(next, tasks[i+1:]...)
	e.tasks[boardID] = next
	pending := e.changedLocked(boardID)
	e.mu.Unlock()

	e.persist(ctx, pending)
	e.mirrorBoard(ctx, pending, taskID)
	e.track(ctx, analytics.EventTaskDeleted, analytics.Params{"task_status": string(removed.Status)})
	return nil
}

// Search filters the board's in-memory collection.
func (e *Engine) Search(ctx context.Context, boardID, query string, filters filter.Filters) []domain.Task {
	e.loaded(ctx, boardID)
	res := filter.ApplyAt(e.Tasks(boardID), query, filters, e.Now())
	if q := strings.TrimSpace(query); q != "" {
		e.track(ctx, analytics.EventSearch, analytics.Params{"search_term": q, "results_count": len(res)})
	}
	return res
}
