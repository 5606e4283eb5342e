// Package analytics emits fire-and-forget usage events and computes board statistics.
package analytics

import (
	"context"

	log "github.com/sirupsen/logrus"
)

const (
	EventBoardOpened  = "board_opened"
	EventBoardCreated = "board_created"
	EventBoardDeleted = "board_deleted"
	EventTaskCreated  = "task_created"
	EventTaskUpdated  = "task_updated"
	EventTaskMoved    = "task_moved"
	EventTaskDeleted  = "task_deleted"
	EventSearch       = "search"
	EventCloudSync    = "cloud_sync"
)

// Params are descriptive only; nothing depends on their delivery.
type Params map[string]any

// Sink receives events. Track must not block the caller for long and never fails.
type Sink interface {
	Track(ctx context.Context, name string, params Params)
}

// LogSink logs each event at debug level.
type LogSink struct {
	Logger log.FieldLogger
}

func (s LogSink) Track(_ context.Context, name string, params Params) {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithField("event", name).WithFields(log.Fields(params)).Debug("analytics event")
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Track(ctx context.Context, name string, params Params) {
	for _, s := range m {
		if s != nil {
			s.Track(ctx, name, params)
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Track(context.Context, string, Params) {}
