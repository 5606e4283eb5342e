package filter

import (
	"reflect"
	"testing"
	"time"

	"taskboard/internal/domain"
)

func strPtr(s string) *string { return &s }

var now = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func sample() []domain.Task {
	return []domain.Task{
		{ID: "1", Title: "Welcome", Description: "first task", Status: domain.StatusTodo, Priority: domain.PriorityLow},
		{ID: "2", Title: "Learn drag and drop", Status: domain.StatusInProgress, Tags: []string{"ux"}},
		{ID: "3", Title: "Explore", Description: "details", Status: domain.StatusDone, Priority: domain.PriorityHigh},
		{ID: "4", Title: "Pay rent", Status: domain.StatusTodo, DueDate: strPtr("2024-03-01T09:00:00Z"), Tags: []string{"Home"}},
		{ID: "5", Title: "Old report", Status: domain.StatusDone, DueDate: strPtr("2024-03-01T09:00:00Z")},
		{ID: "6", Title: "Standup", Status: domain.StatusTodo, DueDate: strPtr("2024-03-10")},
	}
}

func ids(tasks []domain.Task) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestIdentityWithoutQueryOrFilters(t *testing.T) {
	tasks := sample()
	got := ApplyAt(tasks, "", Filters{}, now)
	if !reflect.DeepEqual(got, tasks) {
		t.Fatalf("expected identity")
	}
	if &got[0] != &tasks[0] {
		t.Fatalf("expected the input slice back unchanged")
	}
	if got := ApplyAt(tasks, "   ", nil, now); len(got) != len(tasks) {
		t.Fatalf("blank query should not filter")
	}
}

func TestQueryMatchesTitleDescriptionAndTags(t *testing.T) {
	tasks := sample()
	if got := ids(ApplyAt(tasks, "DRAG", nil, now)); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("title match: %v", got)
	}
	if got := ids(ApplyAt(tasks, "detail", nil, now)); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("description match: %v", got)
	}
	if got := ids(ApplyAt(tasks, "home", nil, now)); !reflect.DeepEqual(got, []string{"4"}) {
		t.Fatalf("tag match: %v", got)
	}
}

func TestStructuredFilters(t *testing.T) {
	tasks := sample()
	if got := ids(ApplyAt(tasks, "", Filters{DimStatus: "done"}, now)); !reflect.DeepEqual(got, []string{"3", "5"}) {
		t.Fatalf("status: %v", got)
	}
	if got := ids(ApplyAt(tasks, "", Filters{DimPriority: "high"}, now)); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("priority: %v", got)
	}
	if got := ids(ApplyAt(tasks, "", Filters{DimDueDate: DueToday}, now)); !reflect.DeepEqual(got, []string{"6"}) {
		t.Fatalf("today: %v", got)
	}
	if got := ids(ApplyAt(tasks, "", Filters{DimStatus: "todo", DimDueDate: DueOverdue}, now)); !reflect.DeepEqual(got, []string{"4", "6"}) {
		t.Fatalf("and of filters: %v", got)
	}
}

func TestOverdueExcludesDone(t *testing.T) {
	task := domain.Task{ID: "x", Title: "late", Status: domain.StatusInProgress, DueDate: strPtr("2024-03-09T10:00:00Z")}
	if got := ApplyAt([]domain.Task{task}, "", Filters{DimDueDate: DueOverdue}, now); len(got) != 1 {
		t.Fatalf("expected overdue task included")
	}
	task.Status = domain.StatusDone
	if got := ApplyAt([]domain.Task{task}, "", Filters{DimDueDate: DueOverdue}, now); len(got) != 0 {
		t.Fatalf("done task must not be overdue")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	tasks := sample()
	f := Filters{DimStatus: "todo"}
	once := ApplyAt(tasks, "a", f, now)
	twice := ApplyAt(once, "a", f, now)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestClearResetsFilters(t *testing.T) {
	f := Filters{}.Set(DimStatus, "done").Set(DimPriority, "low")
	if len(f) != 2 {
		t.Fatalf("expected two filters, got %v", f)
	}
	cleared := f.Set(Clear, "")
	if len(cleared) != 0 {
		t.Fatalf("clear should drop filters, got %v", cleared)
	}
	if len(f) != 2 {
		t.Fatalf("Set must not mutate the receiver")
	}
}

func TestUnknownDimensionsIgnored(t *testing.T) {
	tasks := sample()
	got := ApplyAt(tasks, "", Filters{"color": "red", DimDueDate: "someday"}, now)
	if len(got) != len(tasks) {
		t.Fatalf("unknown filters should be ignored, got %v", ids(got))
	}
}
