package taskstore_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/kv"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
	"taskboard/internal/taskstore"
)

var fixedNow = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func newSQLiteStore(t *testing.T) *taskstore.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger, _ := test.NewNullLogger()
	s := taskstore.New(repo.Repo{DB: conn}, logger)
	s.Now = func() time.Time { return fixedNow }
	return s
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenKV) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("disk gone") }

func TestLoadSeedsDefaultBoard(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	tasks, err := s.Load(ctx, "1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 seed tasks, got %d", len(tasks))
	}
	want := []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusDone}
	for i, task := range tasks {
		if task.Status != want[i] {
			t.Fatalf("seed %d status %s, want %s", i, task.Status, want[i])
		}
		if task.DueDate != nil || task.Attachments == nil {
			t.Fatalf("seed %d has unexpected due date or nil attachments", i)
		}
	}
	if tasks[1].Title != "Learn drag and drop" {
		t.Fatalf("unexpected seed title %q", tasks[1].Title)
	}

	again, err := s.Load(ctx, "1")
	if err != nil || !reflect.DeepEqual(again, tasks) {
		t.Fatalf("seed was not persisted: %v", err)
	}

	other, err := s.Load(ctx, "7")
	if err != nil || len(other) != 0 || other == nil {
		t.Fatalf("expected empty non-nil collection, got %v %v", other, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	due := "2024-04-01"
	in := []domain.Task{
		{ID: "b", Title: "second", Status: domain.StatusDone, DueDate: &due, Attachments: []string{"file:///a.png"}, Tags: []string{"x"}, Priority: domain.PriorityHigh, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "a", Title: "first", Status: domain.StatusTodo, Attachments: []string{}, CreatedAt: "2024-01-02T00:00:00Z"},
	}
	if err := s.Save(ctx, "2", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, in)
	}
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	n := 0
	s.NewID = func() string {
		n++
		// Collide with the first id every other call.
		if n%2 == 0 {
			return "id-1"
		}
		return fmt.Sprintf("id-%d", n)
	}
	for i := 0; i < 4; i++ {
		if _, err := s.Add(ctx, "2", domain.TaskInput{Title: fmt.Sprintf("task %d", i)}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	tasks, _ := s.Load(ctx, "2")
	seen := map[string]bool{}
	for _, task := range tasks {
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
		if task.Status != domain.StatusTodo || task.CreatedAt == "" {
			t.Fatalf("unexpected defaults %+v", task)
		}
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	s := newSQLiteStore(t)
	_, err := s.Add(context.Background(), "2", domain.TaskInput{Title: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "2", domain.TaskInput{Title: "Draft report"})
	if err != nil {
		t.Fatal(err)
	}
	s.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	status := domain.StatusDone
	title := "Final report"
	updated, err := s.Update(ctx, "2", created.ID, domain.TaskPatch{Status: &status, Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CreatedAt != created.CreatedAt || updated.ID != created.ID {
		t.Fatalf("identity fields changed: %+v vs %+v", updated, created)
	}
	if updated.Title != "Final report" || updated.Status != domain.StatusDone {
		t.Fatalf("patch not applied: %+v", updated)
	}

	if _, err := s.Update(ctx, "2", "missing", domain.TaskPatch{Title: &title}); !errors.Is(err, taskstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	if err := s.Remove(ctx, "1", "2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	tasks, _ := s.Load(ctx, "1")
	if len(tasks) != 2 || domain.IndexOf(tasks, "2") >= 0 {
		t.Fatalf("task not removed: %+v", tasks)
	}
	if err := s.Remove(ctx, "1", "2"); err != nil {
		t.Fatalf("removing an unknown id should succeed, got %v", err)
	}
	if tasks, _ = s.Load(ctx, "1"); len(tasks) != 2 {
		t.Fatalf("unknown id changed the collection: %+v", tasks)
	}
	if err := s.Clear(ctx, "1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	tasks, _ = s.Load(ctx, "1")
	if len(tasks) != 3 {
		t.Fatalf("expected reseeded board after clear, got %d", len(tasks))
	}
}

func TestLoadFaultFallsBack(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := taskstore.New(brokenKV{}, logger)

	tasks, err := s.Load(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected fault to be reported")
	}
	if len(tasks) != 3 {
		t.Fatalf("expected seed fallback for default board, got %d", len(tasks))
	}
	tasks, _ = s.Load(context.Background(), "2")
	if len(tasks) != 0 {
		t.Fatalf("expected empty fallback, got %d", len(tasks))
	}
	if len(hook.Entries) == 0 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected a warning to be logged")
	}
	if _, err := s.Add(context.Background(), "2", domain.TaskInput{Title: "x"}); err == nil {
		t.Fatalf("expected add to fail on a broken store")
	}
}

func TestMemoryBackend(t *testing.T) {
	s := taskstore.New(kv.NewMemory(), nil)
	task, err := s.Add(context.Background(), "3", domain.TaskInput{Title: "idea"})
	if err != nil {
		t.Fatal(err)
	}
	tasks, _ := s.Load(context.Background(), "3")
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}
