package analytics

import (
	"time"

	"taskboard/internal/domain"
)

// Stats summarizes one board.
type Stats struct {
	Total          int            `json:"total"`
	Todo           int            `json:"todo"`
	InProgress     int            `json:"inprogress"`
	Done           int            `json:"done"`
	CompletionRate float64        `json:"completion_rate"`
	ActiveBoards   int            `json:"active_boards"`
	CreatedByDay   map[string]int `json:"created_by_day"`
	CompletedByDay map[string]int `json:"completed_by_day"`
}

// Summarize counts the board's tasks by status and by creation day in loc.
// CompletedByDay buckets done tasks by their creation day.
func Summarize(tasks []domain.Task, activeBoards int, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	st := Stats{
		Total:          len(tasks),
		ActiveBoards:   activeBoards,
		CreatedByDay:   map[string]int{},
		CompletedByDay: map[string]int{},
	}
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusTodo:
			st.Todo++
		case domain.StatusInProgress:
			st.InProgress++
		case domain.StatusDone:
			st.Done++
		}
		created, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
		if err != nil {
			continue
		}
		day := created.In(loc).Format(time.DateOnly)
		st.CreatedByDay[day]++
		if t.Status == domain.StatusDone {
			st.CompletedByDay[day]++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = float64(st.Done) / float64(st.Total)
	}
	return st
}

// SummarizeAll merges every board into one summary.
func SummarizeAll(tasksByBoard map[string][]domain.Task, loc *time.Location) Stats {
	var all []domain.Task
	for _, tasks := range tasksByBoard {
		all = append(all, tasks...)
	}
	return Summarize(all, len(tasksByBoard), loc)
}
