package transition

import (
	"testing"

	"taskboard/internal/domain"
)

func TestDirectionalMoves(t *testing.T) {
	if s, ok := MoveLeft(domain.StatusInProgress); !ok || s != domain.StatusTodo {
		t.Fatalf("left from inprogress: %s %v", s, ok)
	}
	if s, ok := MoveLeft(domain.StatusDone); !ok || s != domain.StatusInProgress {
		t.Fatalf("left from done: %s %v", s, ok)
	}
	if s, ok := MoveLeft(domain.StatusTodo); ok || s != domain.StatusTodo {
		t.Fatalf("left from todo should be a no-op, got %s %v", s, ok)
	}
	if s, ok := MoveRight(domain.StatusTodo); !ok || s != domain.StatusInProgress {
		t.Fatalf("right from todo: %s %v", s, ok)
	}
	if s, ok := MoveRight(domain.StatusInProgress); !ok || s != domain.StatusDone {
		t.Fatalf("right from inprogress: %s %v", s, ok)
	}
	if s, ok := MoveRight(domain.StatusDone); ok || s != domain.StatusDone {
		t.Fatalf("right from done should be a no-op, got %s %v", s, ok)
	}
}

func TestMoveNeverSkipsStages(t *testing.T) {
	s := domain.StatusTodo
	var seen []domain.Status
	for {
		next, ok := Move(s, Right)
		if !ok {
			break
		}
		seen = append(seen, next)
		s = next
	}
	if len(seen) != 2 || seen[0] != domain.StatusInProgress || seen[1] != domain.StatusDone {
		t.Fatalf("unexpected path %v", seen)
	}
}

func TestDropSetsStatusRegardlessOfOrigin(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Title: "A", Status: domain.StatusTodo},
		{ID: "b", Title: "B", Status: domain.StatusInProgress},
		{ID: "c", Title: "C", Status: domain.StatusDone},
	}
	res, err := Drop(tasks, domain.StatusDone, []string{"a", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(res.Tasks))
	}
	if res.Tasks[0].ID != "b" || res.Tasks[1].ID != "a" || res.Tasks[2].ID != "c" {
		t.Fatalf("unexpected order %+v", res.Tasks)
	}
	for _, tk := range res.Tasks[1:] {
		if tk.Status != domain.StatusDone {
			t.Fatalf("task %s not moved: %s", tk.ID, tk.Status)
		}
	}
	if len(res.Changed) != 1 || res.Changed[0].Task.ID != "a" || res.Changed[0].From != domain.StatusTodo {
		t.Fatalf("only a changed status, got %+v", res.Changed)
	}
	if tasks[0].Status != domain.StatusTodo {
		t.Fatalf("input mutated")
	}
}

func TestDropIgnoresUnknownIDsAndRejectsBadColumn(t *testing.T) {
	tasks := []domain.Task{{ID: "a", Status: domain.StatusTodo}}
	res, err := Drop(tasks, domain.StatusInProgress, []string{"missing", "a", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].Status != domain.StatusInProgress {
		t.Fatalf("unexpected %+v", res.Tasks)
	}
	if _, err := Drop(tasks, domain.Status("archived"), []string{"a"}); err == nil {
		t.Fatalf("expected invalid column error")
	}
}

func TestLabels(t *testing.T) {
	if MovedMessage(domain.StatusDone) != "Task moved to Completed" {
		t.Fatalf("got %q", MovedMessage(domain.StatusDone))
	}
	if Label(domain.StatusInProgress) != "In Progress" || Label(domain.StatusTodo) != "To Do" {
		t.Fatalf("labels")
	}
}
