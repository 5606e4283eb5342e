// Package mirror replicates tasks and boards to a per-user remote document store
// laid out as users/{userId}/boards/{boardId}/tasks/{taskId}. Writes are full
// document overwrites; the last write wins.
package mirror

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
)

// ErrRemote wraps every backend fault.
var ErrRemote = errors.New("remote store unavailable")

const tracerName = "taskboard/internal/mirror"

type Mirror struct {
	backend Backend
	tracer  trace.Tracer
	logger  log.FieldLogger
}

type Option func(*Mirror)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Mirror) { m.tracer = tp.Tracer(tracerName) }
}

func WithLogger(logger log.FieldLogger) Option {
	return func(m *Mirror) { m.logger = logger }
}

func New(backend Backend, opts ...Option) *Mirror {
	m := &Mirror{backend: backend, tracer: otel.Tracer(tracerName), logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TaskPull is the result of PullTasks. Err is set when Success is false.
type TaskPull struct {
	Success bool
	Tasks   []domain.Task
	Err     error
}

type BoardPull struct {
	Success bool
	Boards  []domain.Board
	Err     error
}

func (m *Mirror) start(ctx context.Context, name, userID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("user_id", userID))
	return m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// end records err on span and turns backend faults into ErrRemote.
func (m *Mirror) end(span trace.Span, err error) error {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if !errors.Is(err, auth.ErrRequired) && !errors.Is(err, domain.ErrValidation) && !errors.Is(err, ErrRemote) {
		err = fmt.Errorf("%w: %w", ErrRemote, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// PushTask overwrites the task document.
func (m *Mirror) PushTask(ctx context.Context, userID, boardID string, task domain.Task) error {
	ctx, span := m.start(ctx, "mirror.PushTask", userID, attribute.String("board_id", boardID), attribute.String("task_id", task.ID))
	if err := checkSegments(userID, boardID, task.ID); err != nil {
		return m.end(span, err)
	}
	return m.end(span, m.backend.Set(ctx, TaskPath(userID, boardID, task.ID), task))
}

// PushTasks pushes each task independently and reports how many succeeded. A
// partial failure is not rolled back.
func (m *Mirror) PushTasks(ctx context.Context, userID, boardID string, tasks []domain.Task) (int, error) {
	ctx, span := m.start(ctx, "mirror.PushTasks", userID, attribute.String("board_id", boardID), attribute.Int("task_count", len(tasks)))
	if err := checkSegments(userID, boardID); err != nil {
		return 0, m.end(span, err)
	}
	pushed := 0
	var errs []error
	for _, t := range tasks {
		if err := checkSegments(userID, boardID, t.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.backend.Set(ctx, TaskPath(userID, boardID, t.ID), t); err != nil {
			m.logger.WithError(err).WithFields(log.Fields{"board_id": boardID, "task_id": t.ID}).Warn("push task failed")
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		pushed++
	}
	span.SetAttributes(attribute.Int("pushed", pushed))
	return pushed, m.end(span, errors.Join(errs...))
}

func (m *Mirror) DeleteTask(ctx context.Context, userID, boardID, taskID string) error {
	ctx, span := m.start(ctx, "mirror.DeleteTask", userID, attribute.String("board_id", boardID), attribute.String("task_id", taskID))
	if err := checkSegments(userID, boardID, taskID); err != nil {
		return m.end(span, err)
	}
	return m.end(span, m.backend.Delete(ctx, TaskPath(userID, boardID, taskID)))
}

// PullTasks fetches every task document of the board. Faults come back in the envelope.
func (m *Mirror) PullTasks(ctx context.Context, userID, boardID string) TaskPull {
	ctx, span := m.start(ctx, "mirror.PullTasks", userID, attribute.String("board_id", boardID))
	if err := checkSegments(userID, boardID); err != nil {
		return TaskPull{Err: m.end(span, err)}
	}
	docs, err := m.backend.List(ctx, TasksPath(userID, boardID))
	if err != nil {
		return TaskPull{Err: m.end(span, err)}
	}
	tasks, err := decodeTasks(docs)
	if err != nil {
		return TaskPull{Err: m.end(span, err)}
	}
	span.SetAttributes(attribute.Int("task_count", len(tasks)))
	m.end(span, nil)
	return TaskPull{Success: true, Tasks: tasks}
}

// PushBoards overwrites one document per board; each write is independent.
func (m *Mirror) PushBoards(ctx context.Context, boards []domain.Board, userID string) error {
	ctx, span := m.start(ctx, "mirror.PushBoards", userID, attribute.Int("board_count", len(boards)))
	if err := checkSegments(userID); err != nil {
		return m.end(span, err)
	}
	var errs []error
	for _, b := range boards {
		if err := checkSegments(userID, b.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.backend.Set(ctx, BoardPath(userID, b.ID), b); err != nil {
			errs = append(errs, fmt.Errorf("board %s: %w", b.ID, err))
		}
	}
	return m.end(span, errors.Join(errs...))
}

func (m *Mirror) PullBoards(ctx context.Context, userID string) BoardPull {
	ctx, span := m.start(ctx, "mirror.PullBoards", userID)
	if err := checkSegments(userID); err != nil {
		return BoardPull{Err: m.end(span, err)}
	}
	docs, err := m.backend.List(ctx, BoardsPath(userID))
	if err != nil {
		return BoardPull{Err: m.end(span, err)}
	}
	boards, err := decodeBoards(docs)
	if err != nil {
		return BoardPull{Err: m.end(span, err)}
	}
	span.SetAttributes(attribute.Int("board_count", len(boards)))
	m.end(span, nil)
	return BoardPull{Success: true, Boards: boards}
}

// DeleteBoard removes the board's task documents and then the board document.
func (m *Mirror) DeleteBoard(ctx context.Context, userID, boardID string) error {
	ctx, span := m.start(ctx, "mirror.DeleteBoard", userID, attribute.String("board_id", boardID))
	if err := checkSegments(userID, boardID); err != nil {
		return m.end(span, err)
	}
	docs, err := m.backend.List(ctx, TasksPath(userID, boardID))
	if err != nil {
		return m.end(span, err)
	}
	var errs []error
	for _, d := range docs {
		if err := m.backend.Delete(ctx, TaskPath(userID, boardID, d.ID())); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		errs = append(errs, m.backend.Delete(ctx, BoardPath(userID, boardID)))
	}
	return m.end(span, errors.Join(errs...))
}

func decodeTasks(docs []Document) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		var t domain.Task
		if err := d.DataTo(&t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", d.ID(), err)
		}
		if t.ID == "" {
			t.ID = d.ID()
		}
		if t.Attachments == nil {
			t.Attachments = []string{}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func decodeBoards(docs []Document) ([]domain.Board, error) {
	boards := make([]domain.Board, 0, len(docs))
	for _, d := range docs {
		var b domain.Board
		if err := d.DataTo(&b); err != nil {
			return nil, fmt.Errorf("decode board %s: %w", d.ID(), err)
		}
		if b.ID == "" {
			b.ID = d.ID()
		}
		boards = append(boards, b)
	}
	return boards, nil
}
