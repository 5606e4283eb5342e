package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard/internal/domain"
)

func due(v string) *string { return &v }

func TestTaskUpdateBodies(t *testing.T) {
	n := TaskUpdate(domain.Task{ID: "1", Title: "Draft report"}, "Task moved to In Progress")
	if n.Title != "Task Update" || n.Body != "Draft report: Task moved to In Progress" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !n.Immediate() {
		t.Fatalf("updates are immediate")
	}
	n = TaskUpdate(domain.Task{Title: "Draft report"}, "")
	if n.Body != "Draft report has been updated" {
		t.Fatalf("unexpected body %q", n.Body)
	}
	n = TaskUpdate(domain.Task{}, MessageCreated)
	if n.Body != "Task: New task created" {
		t.Fatalf("unexpected body %q", n.Body)
	}
}

func TestReminder(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	n, err := Reminder(domain.Task{ID: "7", Title: "Pay rent", DueDate: due("2024-03-15")}, now, DefaultReminderHour)
	if err != nil {
		t.Fatalf("reminder: %v", err)
	}
	want := time.Date(2024, 3, 14, 9, 0, 0, 0, loc)
	if !n.At.Equal(want) {
		t.Fatalf("expected trigger %v, got %v", want, n.At)
	}
	if n.Title != "Task Reminder" || n.Body != `"Pay rent" is due tomorrow!` {
		t.Fatalf("unexpected notification %+v", n)
	}

	// Due tomorrow: the reminder would have fired this morning.
	if _, err := Reminder(domain.Task{Title: "x", DueDate: due("2024-03-11")}, now, 9); !errors.Is(err, ErrNoReminder) {
		t.Fatalf("expected ErrNoReminder for past trigger, got %v", err)
	}
	if _, err := Reminder(domain.Task{Title: "x"}, now, 9); !errors.Is(err, ErrNoReminder) {
		t.Fatalf("expected ErrNoReminder without due date, got %v", err)
	}
	// Month boundary.
	n, err = Reminder(domain.Task{Title: "x", DueDate: due("2024-04-01")}, now, 9)
	if err != nil || n.At.Month() != time.March || n.At.Day() != 31 {
		t.Fatalf("expected March 31, got %v %v", n.At, err)
	}
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	if err := (LogNotifier{Logger: logger}).Notify(context.Background(), Notification{Title: "Task Update", Body: "b"}); err != nil {
		t.Fatal(err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["title"] != "Task Update" || entry.Data["body"] != "b" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}

func TestWebhookDelivers(t *testing.T) {
	var got webhookPayload
	var secret, mode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &got)
		secret = r.Header.Get("X-Taskboard-Secret")
		mode = r.Header.Get("X-Taskboard-Delivery")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	at := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	hook := Webhook{URL: srv.URL, Secret: "s"}
	err := hook.Notify(context.Background(), Notification{Title: ReminderTitle, Body: "b", At: at, TaskID: "7"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Title != ReminderTitle || got.TriggerAt != "2024-03-14T09:00:00Z" || got.TaskID != "7" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if secret != "s" || mode != "scheduled" {
		t.Fatalf("unexpected headers %q %q", secret, mode)
	}
}

func TestWebhookFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()
	err := Webhook{URL: srv.URL}.Notify(context.Background(), Notification{Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected status error, got %v", err)
	}
	if err := (Webhook{}).Notify(context.Background(), Notification{}); err == nil {
		t.Fatalf("expected missing url error")
	}
}

type recorder struct{ got []Notification }

func (r *recorder) Notify(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return nil
}

func TestMulti(t *testing.T) {
	r := &recorder{}
	failing := Webhook{}
	err := Multi{r, nil, failing}.Notify(context.Background(), Notification{Title: "t"})
	if err == nil || len(r.got) != 1 {
		t.Fatalf("expected delivery plus joined error, got %v %d", err, len(r.got))
	}
}
