// Package filter derives the visible subset of a board from a free-text query and
// structured filter predicates. Everything here is pure.
package filter

import (
	"strings"
	"time"

	"taskboard/internal/domain"
)

// Filter dimensions and the dueDate values they understand.
const (
	DimStatus   = "status"
	DimPriority = "priority"
	DimDueDate  = "dueDate"
	// Clear is the pseudo-dimension that resets all structured filters.
	Clear = "clear"

	DueToday   = "today"
	DueOverdue = "overdue"
)

// Filters maps a dimension to its single selected value.
type Filters map[string]string

// Set returns a copy with dim set to value. Setting Clear drops every structured filter.
func (f Filters) Set(dim, value string) Filters {
	if dim == Clear {
		return Filters{}
	}
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[dim] = value
	return out
}

// State is the transient search UI state of a board.
type State struct {
	Query   string
	Filters Filters
}

// Apply filters tasks using the current wall clock.
func Apply(tasks []domain.Task, query string, filters Filters) []domain.Task {
	return ApplyAt(tasks, query, filters, time.Now())
}

// ApplyAt filters tasks against now. The query runs first, then each filter as an AND
// predicate. With an empty query and no filters the input slice is returned as is.
func ApplyAt(tasks []domain.Task, query string, filters Filters, now time.Time) []domain.Task {
	if strings.TrimSpace(query) == "" && len(filters) == 0 {
		return tasks
	}
	out := tasks
	if strings.TrimSpace(query) != "" {
		q := strings.ToLower(query)
		out = keep(out, func(t domain.Task) bool { return matchesQuery(t, q) })
	}
	for dim, value := range filters {
		if pred := predicate(dim, value, now); pred != nil {
			out = keep(out, pred)
		}
	}
	return out
}

func matchesQuery(t domain.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// predicate returns nil for unknown dimensions and values, which are ignored.
func predicate(dim, value string, now time.Time) func(domain.Task) bool {
	switch dim {
	case DimStatus:
		return func(t domain.Task) bool { return string(t.Status) == value }
	case DimPriority:
		return func(t domain.Task) bool { return string(t.Priority) == value }
	case DimDueDate:
		switch value {
		case DueToday:
			y, m, d := now.Date()
			return func(t domain.Task) bool {
				due, ok := DueTime(t, now.Location())
				if !ok {
					return false
				}
				dy, dm, dd := due.In(now.Location()).Date()
				return dy == y && dm == m && dd == d
			}
		case DueOverdue:
			return func(t domain.Task) bool {
				due, ok := DueTime(t, now.Location())
				return ok && due.Before(now) && t.Status != domain.StatusDone
			}
		}
	}
	return nil
}

// DueTime parses the task's due date. Date-only values are read as midnight in loc.
func DueTime(t domain.Task, loc *time.Location) (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(*t.DueDate)
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", raw, loc); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func keep(in []domain.Task, pred func(domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0, len(in))
	for _, t := range in {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}
