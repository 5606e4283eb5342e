package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard/internal/domain"
)

func TestSummarize(t *testing.T) {
	tasks := []domain.Task{
		{ID: "1", Status: domain.StatusTodo, CreatedAt: "2024-03-01T10:00:00Z"},
		{ID: "2", Status: domain.StatusDone, CreatedAt: "2024-03-01T11:00:00Z"},
		{ID: "3", Status: domain.StatusDone, CreatedAt: "2024-03-02T11:00:00Z"},
		{ID: "4", Status: domain.StatusInProgress, CreatedAt: "not a time"},
	}
	st := Summarize(tasks, 3, time.UTC)
	if st.Total != 4 || st.Todo != 1 || st.InProgress != 1 || st.Done != 2 {
		t.Fatalf("unexpected counts %+v", st)
	}
	if st.CompletionRate != 0.5 || st.ActiveBoards != 3 {
		t.Fatalf("unexpected rate/boards %+v", st)
	}
	if st.CreatedByDay["2024-03-01"] != 2 || st.CompletedByDay["2024-03-01"] != 1 || st.CompletedByDay["2024-03-02"] != 1 {
		t.Fatalf("unexpected day buckets %+v %+v", st.CreatedByDay, st.CompletedByDay)
	}
	if empty := Summarize(nil, 0, nil); empty.CompletionRate != 0 || empty.Total != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestSummarizeAll(t *testing.T) {
	st := SummarizeAll(map[string][]domain.Task{
		"1": {{ID: "a", Status: domain.StatusDone}},
		"2": {{ID: "b", Status: domain.StatusTodo}},
		"3": {},
	}, time.UTC)
	if st.Total != 2 || st.ActiveBoards != 3 || st.Done != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

type capture struct{ names []string }

func (c *capture) Track(_ context.Context, name string, _ Params) { c.names = append(c.names, name) }

func TestSinks(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := &capture{}
	Multi{LogSink{Logger: logger}, nil, c, Discard{}}.Track(context.Background(), EventSearch, Params{"search_term": "drag", "results_count": 1})
	if len(c.names) != 1 || c.names[0] != EventSearch {
		t.Fatalf("unexpected captured events %v", c.names)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != EventSearch || entry.Data["search_term"] != "drag" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}
