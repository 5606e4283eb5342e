package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks caller input that was rejected before any state changed.
var ErrValidation = errors.New("validation failed")

// DefaultBoardID is the first board; it is the only one seeded with example tasks.
const DefaultBoardID = "1"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusDone       Status = "done"
)

// Statuses lists the Kanban columns in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the canonical values plus the "in_progress"/"in-progress" spellings.
func ParseStatus(v string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	s := Status(norm)
	if !s.Valid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, v)
	}
	return s, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, v)
	}
	return p, nil
}

// Task is a single card on a board. CreatedAt is RFC 3339 and never rewritten after creation.
type Task struct {
	ID          string   `json:"id" firestore:"id"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description,omitempty" firestore:"description,omitempty"`
	Status      Status   `json:"status" firestore:"status" enum:"todo,inprogress,done"`
	DueDate     *string  `json:"dueDate" firestore:"dueDate"`
	Attachments []string `json:"attachments" firestore:"attachments"`
	Tags        []string `json:"tags,omitempty" firestore:"tags,omitempty"`
	Priority    Priority `json:"priority,omitempty" firestore:"priority,omitempty" enum:"low,medium,high"`
	CreatedAt   string   `json:"createdAt" firestore:"createdAt" format:"date-time"`
}

type Board struct {
	ID   string `json:"id" firestore:"id"`
	Name string `json:"name" firestore:"name"`
}

// TaskInput carries the caller-supplied fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	Status      Status
	DueDate     *string
	Attachments []string
	Tags        []string
	Priority    Priority
}

// Normalize trims text fields, defaults the status to todo and validates the result.
func (in TaskInput) Normalize() (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("%w: invalid status %q", ErrValidation, in.Status)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return in, fmt.Errorf("%w: invalid priority %q", ErrValidation, in.Priority)
	}
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) == "" {
		in.DueDate = nil
	}
	if in.Attachments == nil {
		in.Attachments = []string{}
	}
	return in, nil
}

// Task builds the record for the input; id and creation time are assigned by the caller.
func (in TaskInput) Task(id, createdAt string) Task {
	return Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		DueDate:     in.DueDate,
		Attachments: in.Attachments,
		Tags:        in.Tags,
		Priority:    in.Priority,
		CreatedAt:   createdAt,
	}
}

// TaskPatch is a shallow update. Nil fields are left untouched; there is no way to
// patch the id or creation time.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *Status
	DueDate      *string
	ClearDueDate bool
	Attachments  *[]string
	Tags         *[]string
	Priority     *Priority
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *p.Status)
	}
	if p.Priority != nil && *p.Priority != "" && !p.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, *p.Priority)
	}
	return nil
}

// Apply merges the patch over t and returns the result.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Attachments != nil {
		t.Attachments = append([]string{}, (*p.Attachments)...)
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	return t
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.Attachments == nil && p.Tags == nil && p.Priority == nil
}

// ValidBoardName trims and checks a board name.
func ValidBoardName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: board name is required", ErrValidation)
	}
	return name, nil
}

// CloneTasks copies the slice so callers cannot alias stored collections.
func CloneTasks(in []Task) []Task {
	if in == nil {
		return nil
	}
	out := make([]Task, len(in))
	copy(out, in)
	return out
}

// IndexOf returns the position of the task with the given id, or -1.
func IndexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Event is one recorded analytics event.
type Event struct {
	ID     int64  `json:"id"`
	TS     string `json:"ts" format:"date-time"`
	Name   string `json:"name"`
	Params string `json:"params_json"`
}
