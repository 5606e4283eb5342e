package server

import (
	"strings"
	"time"

	"taskboard/internal/analytics"
	"taskboard/internal/domain"
)

// Request payloads

type CreateBoardRequest struct {
	Name string `json:"name" minLength:"1"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	DueDate     *string  `json:"dueDate,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

func (r CreateTaskRequest) input() (domain.TaskInput, error) {
	in := domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Attachments: r.Attachments,
		Tags:        r.Tags,
	}
	if r.Status != "" {
		s, err := domain.ParseStatus(r.Status)
		if err != nil {
			return in, err
		}
		in.Status = s
	}
	if r.Priority != "" {
		p, err := domain.ParsePriority(r.Priority)
		if err != nil {
			return in, err
		}
		in.Priority = p
	}
	return in, nil
}

// UpdateTaskRequest is a shallow patch. An empty dueDate clears the due date.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Attachments *[]string `json:"attachments,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
}

func (r UpdateTaskRequest) patch() (domain.TaskPatch, error) {
	p := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Attachments: r.Attachments,
		Tags:        r.Tags,
	}
	if r.Status != nil {
		s, err := domain.ParseStatus(*r.Status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if due := trimmed(r.DueDate); due != nil {
		if *due == "" {
			p.ClearDueDate = true
		} else {
			p.DueDate = due
		}
	}
	if r.Priority != nil {
		var pr domain.Priority
		if strings.TrimSpace(*r.Priority) != "" {
			parsed, err := domain.ParsePriority(*r.Priority)
			if err != nil {
				return p, err
			}
			pr = parsed
		}
		p.Priority = &pr
	}
	return p, nil
}

type MoveTaskRequest struct {
	Direction string `json:"direction" enum:"left,right"`
}

type DropTasksRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type SignInRequest struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Response payloads

type StatusResponse struct {
	Status       string     `json:"status"`
	UserID       string     `json:"user_id,omitempty"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
}

type MoveTaskResponse struct {
	Task  domain.Task `json:"task"`
	Moved bool        `json:"moved"`
}

type PushResponse struct {
	Pushed int    `json:"pushed"`
	Status string `json:"status"`
}

type SessionResponse struct {
	UserID string `json:"user_id"`
}

type sessionOutput struct {
	Body SessionResponse `json:"body"`
}

type statsOutput struct {
	Body analytics.Stats `json:"body"`
}

type EventResponse struct {
	ID     int64  `json:"id"`
	TS     string `json:"ts"`
	Name   string `json:"name"`
	Params string `json:"params_json"`
}

type EventsResponse struct {
	Items []EventResponse `json:"items"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{ID: e.ID, TS: e.TS, Name: e.Name, Params: e.Params}
}
