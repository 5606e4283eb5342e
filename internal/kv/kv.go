// Package kv defines the local key-value layer shared by the task store and the
// board registry, and the key names persisted in it.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

const (
	BoardsKey       = "boards"
	LastSyncTimeKey = "lastSyncTime"
	tasksKeyPrefix  = "tasks:"
)

// TasksKey is the key of a board's task collection.
func TasksKey(boardID string) string {
	return tasksKeyPrefix + boardID
}

// Store is a flat byte-valued key-value store. Get returns ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
