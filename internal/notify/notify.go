// Package notify builds task notifications and hands them to a delivery channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/filter"
)

const (
	UpdateTitle   = "Task Update"
	ReminderTitle = "Task Reminder"

	MessageCreated = "New task created"
	MessageUpdated = "Task has been updated"

	DefaultReminderHour = 9
)

// ErrNoReminder is returned by Reminder when the task has nothing to schedule.
var ErrNoReminder = errors.New("no reminder to schedule")

// Notification is a push message. A zero At means deliver immediately.
type Notification struct {
	Title  string
	Body   string
	At     time.Time
	TaskID string
}

func (n Notification) Immediate() bool { return n.At.IsZero() }

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// TaskUpdate renders "<title>: <message>", or "<title> has been updated" for an
// empty message.
func TaskUpdate(task domain.Task, message string) Notification {
	title := strings.TrimSpace(task.Title)
	if title == "" {
		title = "Task"
	}
	body := title + " has been updated"
	if m := strings.TrimSpace(message); m != "" {
		body = title + ": " + m
	}
	return Notification{Title: UpdateTitle, Body: body, TaskID: task.ID}
}

// Reminder schedules a notice at hour:00 local time on the day before the due
// date. Tasks without a due date, or whose reminder time is not after now, get
// ErrNoReminder.
func Reminder(task domain.Task, now time.Time, hour int) (Notification, error) {
	loc := now.Location()
	due, ok := filter.DueTime(task, loc)
	if !ok {
		return Notification{}, ErrNoReminder
	}
	due = due.In(loc)
	at := time.Date(due.Year(), due.Month(), due.Day()-1, hour, 0, 0, 0, loc)
	if !at.After(now) {
		return Notification{}, fmt.Errorf("%w: reminder time %s has passed", ErrNoReminder, at.Format(time.RFC3339))
	}
	return Notification{
		Title:  ReminderTitle,
		Body:   fmt.Sprintf(`"%s" is due tomorrow!`, task.Title),
		At:     at,
		TaskID: task.ID,
	}, nil
}

// LogNotifier writes notifications to the log instead of a device.
type LogNotifier struct {
	Logger log.FieldLogger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	fields := log.Fields{"title": n.Title, "body": n.Body}
	if n.TaskID != "" {
		fields["task_id"] = n.TaskID
	}
	if !n.Immediate() {
		fields["trigger_at"] = n.At.Format(time.RFC3339)
	}
	logger.WithFields(fields).Info("notification")
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
