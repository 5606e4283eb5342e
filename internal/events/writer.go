// Package events records analytics events in the local event log.
package events

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/analytics"
	"taskboard/internal/domain"
	"taskboard/internal/repo"
)

// Writer is an analytics.Sink over the events table.
type Writer struct {
	Repo   repo.Repo
	Logger log.FieldLogger
}

var _ analytics.Sink = Writer{}

func (w Writer) logger() log.FieldLogger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.StandardLogger()
}

func (w Writer) Append(ctx context.Context, name string, params analytics.Params) (int64, error) {
	if params == nil {
		params = analytics.Params{}
	}
	data, err := sonic.ConfigStd.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("marshal event params: %w", err)
	}
	return w.Repo.AppendEvent(ctx, name, string(data))
}

// Track appends the event and logs, rather than returns, a failure.
func (w Writer) Track(ctx context.Context, name string, params analytics.Params) {
	if _, err := w.Append(ctx, name, params); err != nil {
		w.logger().WithError(err).WithField("event", name).Warn("record analytics event failed")
	}
}

func (w Writer) Tail(ctx context.Context, limit int) ([]domain.Event, error) {
	return w.Repo.TailEvents(ctx, limit)
}

// Count is the number of recorded events named name.
func (w Writer) Count(ctx context.Context, name string) (int, error) {
	return w.Repo.CountEvents(ctx, name)
}
