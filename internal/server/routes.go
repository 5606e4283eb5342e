package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/filter"
	"taskboard/internal/transition"
)

type boardPath struct {
	BoardID string `path:"board_id"`
}

type taskPath struct {
	BoardID string `path:"board_id"`
	TaskID  string `path:"task_id"`
}

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type tasksOutput struct {
	Body []domain.Task `json:"body"`
}

type boardsOutput struct {
	Body []domain.Board `json:"body"`
}

func registerBoards(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards",
	}, func(ctx context.Context, _ *struct{}) (*boardsOutput, error) {
		items, err := e.Boards(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &boardsOutput{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-board",
		Method:        http.MethodPost,
		Path:          "/boards",
		Summary:       "Create board",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateBoardRequest `json:"body"`
	}) (*struct {
		Body domain.Board `json:"body"`
	}, error) {
		b, err := e.AddBoard(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Board `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-board",
		Method:        http.MethodDelete,
		Path:          "/boards/{board_id}",
		Summary:       "Delete board and its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *boardPath) (*struct{}, error) {
		if err := e.RemoveBoard(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "open-board",
		Method:      http.MethodPost,
		Path:        "/boards/{board_id}/open",
		Summary:     "Reload a board from local storage",
	}, func(ctx context.Context, input *boardPath) (*tasksOutput, error) {
		tasks, err := e.OpenBoard(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &tasksOutput{Body: nonNil(tasks)}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/tasks",
		Summary:     "List and search tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BoardID  string `path:"board_id"`
		Query    string `query:"q"`
		Status   string `query:"status"`
		Priority string `query:"priority"`
		Due      string `query:"due"`
	}) (*tasksOutput, error) {
		filters := filter.Filters{}
		if input.Status != "" {
			filters = filters.Set(filter.DimStatus, input.Status)
		}
		if input.Priority != "" {
			filters = filters.Set(filter.DimPriority, input.Priority)
		}
		if input.Due != "" {
			filters = filters.Set(filter.DimDueDate, input.Due)
		}
		return &tasksOutput{Body: nonNil(e.Search(ctx, input.BoardID, input.Query, filters))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/boards/{board_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BoardID string            `path:"board_id"`
		Body    CreateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		in, err := input.Body.input()
		if err != nil {
			return nil, handleError(err)
		}
		t, err := e.AddTask(ctx, input.BoardID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/boards/{board_id}/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string            `path:"board_id"`
		TaskID  string            `path:"task_id"`
		Body    UpdateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		patch, err := input.Body.patch()
		if err != nil {
			return nil, handleError(err)
		}
		t, err := e.UpdateTask(ctx, input.BoardID, input.TaskID, patch)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/boards/{board_id}/tasks/{task_id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.BoardID, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/boards/{board_id}/tasks/{task_id}/move",
		Summary:     "Move a task one column left or right",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string          `path:"board_id"`
		TaskID  string          `path:"task_id"`
		Body    MoveTaskRequest `json:"body"`
	}) (*struct {
		Body MoveTaskResponse `json:"body"`
	}, error) {
		dir, err := transition.ParseDirection(input.Body.Direction)
		if err != nil {
			return nil, handleError(err)
		}
		t, moved, err := e.MoveTask(ctx, input.BoardID, input.TaskID, dir)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoveTaskResponse `json:"body"`
		}{Body: MoveTaskResponse{Task: t, Moved: moved}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "drop-tasks",
		Method:      http.MethodPost,
		Path:        "/boards/{board_id}/columns/{status}/drop",
		Summary:     "Drop tasks into a column",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BoardID string           `path:"board_id"`
		Status  string           `path:"status"`
		Body    DropTasksRequest `json:"body"`
	}) (*tasksOutput, error) {
		column, err := domain.ParseStatus(input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		changed, err := e.DropTasks(ctx, input.BoardID, column, input.Body.TaskIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &tasksOutput{Body: nonNil(changed)}, nil
	})
}

func registerSync(api huma.API, e *engine.Engine) {
	syncErrors := []int{http.StatusUnauthorized, http.StatusBadGateway, http.StatusServiceUnavailable}

	huma.Register(api, huma.Operation{
		OperationID: "push-board",
		Method:      http.MethodPost,
		Path:        "/boards/{board_id}/sync/push",
		Summary:     "Push a board's tasks to the cloud",
		Errors:      syncErrors,
	}, func(ctx context.Context, input *boardPath) (*struct {
		Body PushResponse `json:"body"`
	}, error) {
		pushed, err := e.PushBoard(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PushResponse `json:"body"`
		}{Body: PushResponse{Pushed: pushed, Status: e.SyncStatus()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pull-board",
		Method:      http.MethodPost,
		Path:        "/boards/{board_id}/sync/pull",
		Summary:     "Replace a board's tasks with the cloud copy",
		Errors:      syncErrors,
	}, func(ctx context.Context, input *boardPath) (*tasksOutput, error) {
		tasks, err := e.PullBoard(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &tasksOutput{Body: nonNil(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-boards",
		Method:      http.MethodPost,
		Path:        "/sync/boards",
		Summary:     "Push the board registry to the cloud",
		Errors:      syncErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		if err := e.SyncBoards(ctx); err != nil {
			return nil, handleError(err)
		}
		resp := StatusResponse{Status: e.SyncStatus(), UserID: e.UserID()}
		if last, err := e.LastSyncTime(ctx); err == nil && !last.IsZero() {
			resp.LastSyncTime = &last
		}
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-boards",
		Method:      http.MethodPost,
		Path:        "/sync/boards/restore",
		Summary:     "Replace the board registry with the cloud copy",
		Errors:      syncErrors,
	}, func(ctx context.Context, _ *struct{}) (*boardsOutput, error) {
		if _, err := e.RestoreBoards(ctx); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Boards(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &boardsOutput{Body: nonNil(items)}, nil
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
