// Package taskstore persists each board's task collection under tasks:<boardId>.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/kv"
)

// ErrNotFound is returned by Update for an unknown task id.
var ErrNotFound = errors.New("task not found")

type Store struct {
	kv     kv.Store
	logger log.FieldLogger

	Now   func() time.Time
	NewID func() string
}

func New(store kv.Store, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{
		kv:     store,
		logger: logger,
		Now:    time.Now,
		NewID:  func() string { return uuid.NewString() },
	}
}

func (s *Store) timestamp() string {
	return s.Now().UTC().Format(time.RFC3339Nano)
}

// Seed returns the example tasks the default board starts with.
func Seed(createdAt string) []domain.Task {
	return []domain.Task{
		{
			ID:          "1",
			Title:       "Welcome to Project Dashboard",
			Description: "This is your first task! Edit or delete it and start managing your projects.",
			Status:      domain.StatusTodo,
			Attachments: []string{},
			CreatedAt:   createdAt,
		},
		{
			ID:          "2",
			Title:       "Learn drag and drop",
			Description: "Try dragging this task to different columns to see the Kanban board in action.",
			Status:      domain.StatusInProgress,
			Attachments: []string{},
			CreatedAt:   createdAt,
		},
		{
			ID:          "3",
			Title:       "Explore task details",
			Description: "Tap on any task to see the detailed view where you can edit information.",
			Status:      domain.StatusDone,
			Attachments: []string{},
			CreatedAt:   createdAt,
		},
	}
}

func (s *Store) initial(boardID string) []domain.Task {
	if boardID == domain.DefaultBoardID {
		return Seed(s.timestamp())
	}
	return []domain.Task{}
}

// Load returns the persisted collection for boardID, initializing and persisting it
// when the key is missing. On a storage fault it returns the initial collection for
// the board together with the error so callers can still render.
func (s *Store) Load(ctx context.Context, boardID string) ([]domain.Task, error) {
	data, err := s.kv.Get(ctx, kv.TasksKey(boardID))
	if errors.Is(err, kv.ErrNotFound) {
		tasks := s.initial(boardID)
		if err := s.Save(ctx, boardID, tasks); err != nil {
			return tasks, err
		}
		return tasks, nil
	}
	if err != nil {
		s.logger.WithError(err).WithField("board_id", boardID).Warn("load tasks failed")
		return s.initial(boardID), fmt.Errorf("load tasks %s: %w", boardID, err)
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.Unmarshal(data, &tasks); err != nil {
		s.logger.WithError(err).WithField("board_id", boardID).Warn("decode tasks failed")
		return s.initial(boardID), fmt.Errorf("decode tasks %s: %w", boardID, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Save replaces the stored collection with tasks.
func (s *Store) Save(ctx context.Context, boardID string, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.ConfigStd.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks %s: %w", boardID, err)
	}
	if err := s.kv.Set(ctx, kv.TasksKey(boardID), data); err != nil {
		s.logger.WithError(err).WithField("board_id", boardID).Error("save tasks failed")
		return fmt.Errorf("save tasks %s: %w", boardID, err)
	}
	return nil
}

// Add appends a new task with a fresh id and creation time.
func (s *Store) Add(ctx context.Context, boardID string, in domain.TaskInput) (domain.Task, error) {
	in, err := in.Normalize()
	if err != nil {
		return domain.Task{}, err
	}
	tasks, err := s.Load(ctx, boardID)
	if err != nil {
		return domain.Task{}, err
	}
	id := s.NewID()
	for domain.IndexOf(tasks, id) >= 0 {
		id = s.NewID()
	}
	task := in.Task(id, s.timestamp())
	tasks = append(tasks, task)
	if err := s.Save(ctx, boardID, tasks); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Update merges patch over the stored task. The id and createdAt never change.
func (s *Store) Update(ctx context.Context, boardID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	tasks, err := s.Load(ctx, boardID)
	if err != nil {
		return domain.Task{}, err
	}
	i := domain.IndexOf(tasks, taskID)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	tasks[i] = patch.Apply(tasks[i])
	if err := s.Save(ctx, boardID, tasks); err != nil {
		return domain.Task{}, err
	}
	return tasks[i], nil
}

// Remove filters out the task with taskID and saves the rest. An unknown id
// still rewrites the collection and is not an error.
func (s *Store) Remove(ctx context.Context, boardID, taskID string) error {
	tasks, err := s.Load(ctx, boardID)
	if err != nil {
		return err
	}
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	return s.Save(ctx, boardID, kept)
}

// Clear drops the board's stored collection. The next Load re-initializes it.
func (s *Store) Clear(ctx context.Context, boardID string) error {
	if err := s.kv.Delete(ctx, kv.TasksKey(boardID)); err != nil {
		return fmt.Errorf("clear tasks %s: %w", boardID, err)
	}
	return nil
}
