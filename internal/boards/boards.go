// Package boards persists the board registry under the boards key.
package boards

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

var ErrNotFound = errors.New("board not found")

// Defaults is the registry written on first load.
func Defaults() []domain.Board {
	return []domain.Board{
		{ID: "1", Name: "Personal"},
		{ID: "2", Name: "Work"},
		{ID: "3", Name: "Ideas"},
	}
}

type Registry struct {
	kv     kv.Store
	logger log.FieldLogger

	NewID func() string
}

func New(store kv.Store, logger log.FieldLogger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{kv: store, logger: logger, NewID: timeOrderedID}
}

func timeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load returns the persisted boards, writing the defaults when none exist. A
// storage fault yields the defaults and the error.
func (r *Registry) Load(ctx context.Context) ([]domain.Board, error) {
	data, err := r.kv.Get(ctx, kv.BoardsKey)
	if errors.Is(err, kv.ErrNotFound) {
		seed := Defaults()
		return seed, r.Save(ctx, seed)
	}
	if err != nil {
		r.logger.WithError(err).Warn("load boards failed")
		return Defaults(), fmt.Errorf("load boards: %w", err)
	}
	var boards []domain.Board
	if err := sonic.ConfigStd.Unmarshal(data, &boards); err != nil {
		r.logger.WithError(err).Warn("decode boards failed")
		return Defaults(), fmt.Errorf("decode boards: %w", err)
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	return boards, nil
}

// Save replaces the registry.
func (r *Registry) Save(ctx context.Context, boards []domain.Board) error {
	if boards == nil {
		boards = []domain.Board{}
	}
	data, err := sonic.ConfigStd.Marshal(boards)
	if err != nil {
		return fmt.Errorf("encode boards: %w", err)
	}
	if err := r.kv.Set(ctx, kv.BoardsKey, data); err != nil {
		r.logger.WithError(err).Error("save boards failed")
		return fmt.Errorf("save boards: %w", err)
	}
	return nil
}

// Add creates a board with a time-ordered id. Blank names are rejected before
// anything is read or written.
func (r *Registry) Add(ctx context.Context, name string) (domain.Board, error) {
	name, err := domain.ValidBoardName(name)
	if err != nil {
		return domain.Board{}, err
	}
	boards, err := r.Load(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	board := domain.Board{ID: r.NewID(), Name: name}
	for indexOf(boards, board.ID) >= 0 {
		board.ID = r.NewID()
	}
	if err := r.Save(ctx, append(boards, board)); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// Remove drops the board with boardID from the registry.
func (r *Registry) Remove(ctx context.Context, boardID string) error {
	boards, err := r.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(boards, boardID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, boardID)
	}
	return r.Save(ctx, append(boards[:i], boards[i+1:]...))
}

// Get returns one board by id.
func (r *Registry) Get(ctx context.Context, boardID string) (domain.Board, error) {
	boards, err := r.Load(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	i := indexOf(boards, boardID)
	if i < 0 {
		return domain.Board{}, fmt.Errorf("%w: %s", ErrNotFound, boardID)
	}
	return boards[i], nil
}

// LastSyncTime returns the time of the last successful manual sync, or the zero
// time when none was recorded.
func (r *Registry) LastSyncTime(ctx context.Context) (time.Time, error) {
	data, err := r.kv.Get(ctx, kv.LastSyncTimeKey)
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load last sync time: %w", err)
	}
	var raw string
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return time.Time{}, fmt.Errorf("decode last sync time: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync time: %w", err)
	}
	return ts, nil
}

func (r *Registry) SetLastSyncTime(ctx context.Context, ts time.Time) error {
	data, err := sonic.ConfigStd.Marshal(ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, kv.LastSyncTimeKey, data); err != nil {
		return fmt.Errorf("save last sync time: %w", err)
	}
	return nil
}

func indexOf(boards []domain.Board, id string) int {
	for i, b := range boards {
		if b.ID == id {
			return i
		}
	}
	return -1
}
