package mirror

import (
	"fmt"
	"path"
	"strings"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
)

func BoardsPath(userID string) string {
	return path.Join("users", userID, "boards")
}

func BoardPath(userID, boardID string) string {
	return path.Join(BoardsPath(userID), boardID)
}

func TasksPath(userID, boardID string) string {
	return path.Join(BoardPath(userID, boardID), "tasks")
}

func TaskPath(userID, boardID, taskID string) string {
	return path.Join(TasksPath(userID, boardID), taskID)
}

func checkSegments(userID string, ids ...string) error {
	if strings.TrimSpace(userID) == "" {
		return auth.ErrRequired
	}
	for _, id := range append([]string{userID}, ids...) {
		if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
			return fmt.Errorf("%w: invalid document id %q", domain.ErrValidation, id)
		}
	}
	return nil
}
