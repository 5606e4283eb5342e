// Package transition holds the Kanban status rules: the directional moves of the
// linear todo -> inprogress -> done pipeline and the unconstrained column drop.
package transition

import (
	"fmt"

	"taskboard/internal/domain"
)

type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

func ParseDirection(v string) (Direction, error) {
	switch Direction(v) {
	case Left, Right:
		return Direction(v), nil
	}
	return "", fmt.Errorf("%w: invalid direction %q", domain.ErrValidation, v)
}

// MoveLeft returns the previous stage. ok is false for todo, which has none.
func MoveLeft(s domain.Status) (domain.Status, bool) {
	switch s {
	case domain.StatusInProgress:
		return domain.StatusTodo, true
	case domain.StatusDone:
		return domain.StatusInProgress, true
	}
	return s, false
}

// MoveRight returns the next stage. ok is false for done.
func MoveRight(s domain.Status) (domain.Status, bool) {
	switch s {
	case domain.StatusTodo:
		return domain.StatusInProgress, true
	case domain.StatusInProgress:
		return domain.StatusDone, true
	}
	return s, false
}

func Move(s domain.Status, d Direction) (domain.Status, bool) {
	switch d {
	case Left:
		return MoveLeft(s)
	case Right:
		return MoveRight(s)
	}
	return s, false
}

// DropResult is the board after a column drop.
type DropResult struct {
	// Tasks is the full collection: the other columns first, then the dropped batch in drop order.
	Tasks []domain.Task
	// Changed holds the dropped tasks whose status actually changed, with their previous status.
	Changed []Change
}

type Change struct {
	Task domain.Task
	From domain.Status
}

// Drop moves the batch into column, setting every dropped task's status directly.
// Dropped ids that are not on the board are ignored.
func Drop(tasks []domain.Task, column domain.Status, taskIDs []string) (DropResult, error) {
	if !column.Valid() {
		return DropResult{}, fmt.Errorf("%w: invalid column %q", domain.ErrValidation, column)
	}
	dropped := make(map[string]struct{}, len(taskIDs))
	var batch []domain.Task
	for _, id := range taskIDs {
		if _, dup := dropped[id]; dup {
			continue
		}
		idx := domain.IndexOf(tasks, id)
		if idx < 0 {
			continue
		}
		dropped[id] = struct{}{}
		batch = append(batch, tasks[idx])
	}
	var res DropResult
	for _, t := range tasks {
		if _, ok := dropped[t.ID]; ok {
			continue
		}
		if t.Status == column {
			continue
		}
		res.Tasks = append(res.Tasks, t)
	}
	// tasks already in the column but not part of the batch keep their place after the batch
	var resident []domain.Task
	for _, t := range tasks {
		if _, ok := dropped[t.ID]; !ok && t.Status == column {
			resident = append(resident, t)
		}
	}
	for _, t := range batch {
		if t.Status != column {
			res.Changed = append(res.Changed, Change{Task: t, From: t.Status})
		}
		t.Status = column
		res.Tasks = append(res.Tasks, t)
	}
	res.Tasks = append(res.Tasks, resident...)
	for i := range res.Changed {
		res.Changed[i].Task.Status = column
	}
	return res, nil
}

// Label is the human-readable column name used in notifications.
func Label(s domain.Status) string {
	switch s {
	case domain.StatusTodo:
		return "To Do"
	case domain.StatusInProgress:
		return "In Progress"
	case domain.StatusDone:
		return "Completed"
	}
	return string(s)
}

// MovedMessage is the notification body suffix for a status change.
func MovedMessage(to domain.Status) string {
	return "Task moved to " + Label(to)
}
