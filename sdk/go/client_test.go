package taskboardsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"taskboard/internal/auth"
	"taskboard/internal/boards"
	"taskboard/internal/engine"
	"taskboard/internal/kv"
	"taskboard/internal/mirror"
	"taskboard/internal/server"
	"taskboard/internal/taskstore"
)

func newClient(t *testing.T) (*Client, *auth.Session) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := kv.NewMemory()
	session := auth.NewSession("")
	e := engine.New(engine.Options{
		Store:  taskstore.New(store, logger),
		Boards: boards.New(store, logger),
		Mirror: mirror.New(mirror.NewMemory()),
		Auth:   session,
		Logger: logger,
	})
	t.Cleanup(e.Close)
	handler, err := server.New(server.Config{Engine: e, Session: session, Logger: logger})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL), session
}

func TestClientBoardsAndTasks(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	list, err := c.ListBoards(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("list boards: %v %v", list, err)
	}
	b, err := c.CreateBoard(ctx, "Garden")
	if err != nil || b.Name != "Garden" {
		t.Fatalf("create board: %+v %v", b, err)
	}

	task, err := c.CreateTask(ctx, b.ID, NewTask{Title: "Plant tulips", Tags: []string{"spring"}})
	if err != nil || task.Status != "todo" {
		t.Fatalf("create task: %+v %v", task, err)
	}
	found, err := c.ListTasks(ctx, b.ID, TaskQuery{Q: "tulip"})
	if err != nil || len(found) != 1 {
		t.Fatalf("list tasks: %v %v", found, err)
	}
	none, err := c.ListTasks(ctx, b.ID, TaskQuery{Status: "done"})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no done tasks, got %v %v", none, err)
	}

	moved, ok, err := c.MoveTask(ctx, b.ID, task.ID, "right")
	if err != nil || !ok || moved.Status != "inprogress" {
		t.Fatalf("move: %+v %v %v", moved, ok, err)
	}
	changed, err := c.DropTasks(ctx, b.ID, "done", []string{task.ID})
	if err != nil || len(changed) != 1 || changed[0].Status != "done" {
		t.Fatalf("drop: %v %v", changed, err)
	}
}

func TestClientPushRequiresUser(t *testing.T) {
	c, session := newClient(t)
	ctx := context.Background()

	_, err := c.PushBoard(ctx, "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	session.SignIn("u1")
	n, err := c.PushBoard(ctx, "1")
	if err != nil || n != 3 {
		t.Fatalf("push: %d %v", n, err)
	}
}
