package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

type myTasksResponse struct {
	Success bool          `json:"success"`
	Tasks   []domain.Task `json:"tasks"`
}

// MyTasks lists the tasks assigned to the user.
func (c *Client) MyTasks(ctx context.Context, user *domain.User) ([]domain.Task, error) {
	role := "employee"
	if user.Roles.Admin {
		role = "admin"
	} else if user.Roles.Manager {
		role = "manager"
	}
	path := "/my-tasks" + query(
		"user_id", user.ID,
		"user_name", user.Name,
		"user_email", user.Email,
		"role", role,
	)
	var payload myTasksResponse
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

// SetTaskStatus patches a task's workflow status.
func (c *Client) SetTaskStatus(ctx context.Context, guid string, status domain.TaskStatus) error {
	return c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(guid),
		map[string]string{"task_status": string(status)}, nil)
}

// StartTimeEntry records the upstream start marker for a task timer.
func (c *Client) StartTimeEntry(ctx context.Context, taskGUID, userID string) error {
	return c.post(ctx, "/time-entries/start",
		map[string]string{"task_guid": taskGUID, "user_id": userID}, nil)
}

// StopTimeEntry records the upstream stop marker for a task timer.
func (c *Client) StopTimeEntry(ctx context.Context, taskGUID, userID string) error {
	return c.post(ctx, "/time-entries/stop",
		map[string]string{"task_guid": taskGUID, "user_id": userID}, nil)
}
