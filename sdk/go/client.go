package taskboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Taskboard HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task mirrors the API task model.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	DueDate     *string  `json:"dueDate"`
	Attachments []string `json:"attachments"`
	Tags        []string `json:"tags,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// NewTask is the body of CreateTask. Only Title is required.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	DueDate     *string  `json:"dueDate,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

// TaskQuery narrows ListTasks. Empty fields are ignored.
type TaskQuery struct {
	Q        string
	Status   string
	Priority string
	Due      string
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	for k, s := range map[string]string{"q": q.Q, "status": q.Status, "priority": q.Priority, "due": q.Due} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var resp []Board
	err := c.do(ctx, http.MethodGet, "v0/boards", nil, &resp)
	return resp, err
}

func (c *Client) CreateBoard(ctx context.Context, name string) (Board, error) {
	var resp Board
	err := c.do(ctx, http.MethodPost, "v0/boards", map[string]any{"name": name}, &resp)
	return resp, err
}

// ListTasks returns the board's tasks that match q.
func (c *Client) ListTasks(ctx context.Context, boardID string, q TaskQuery) ([]Task, error) {
	endpoint := c.boardPath(boardID, "tasks")
	if v := q.values(); len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, boardID string, t NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, c.boardPath(boardID, "tasks"), t, &resp)
	return resp, err
}

// MoveTask shifts a task one column; direction is "left" or "right". moved is
// false when the task already sat in the edge column.
func (c *Client) MoveTask(ctx context.Context, boardID, taskID, direction string) (task Task, moved bool, err error) {
	var resp struct {
		Task  Task `json:"task"`
		Moved bool `json:"moved"`
	}
	endpoint := c.boardPath(boardID, fmt.Sprintf("tasks/%s/move", url.PathEscape(taskID)))
	err = c.do(ctx, http.MethodPost, endpoint, map[string]any{"direction": direction}, &resp)
	return resp.Task, resp.Moved, err
}

// DropTasks moves the given tasks into column and returns the ones that changed.
func (c *Client) DropTasks(ctx context.Context, boardID, column string, taskIDs []string) ([]Task, error) {
	var resp []Task
	endpoint := c.boardPath(boardID, fmt.Sprintf("columns/%s/drop", url.PathEscape(column)))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"task_ids": taskIDs}, &resp)
	return resp, err
}

// PushBoard uploads the board's tasks to the cloud and returns how many were written.
func (c *Client) PushBoard(ctx context.Context, boardID string) (int, error) {
	var resp struct {
		Pushed int `json:"pushed"`
	}
	err := c.do(ctx, http.MethodPost, c.boardPath(boardID, "sync/push"), nil, &resp)
	return resp.Pushed, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) boardPath(boardID, p string) string {
	return fmt.Sprintf("v0/boards/%s/%s", url.PathEscape(boardID), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
