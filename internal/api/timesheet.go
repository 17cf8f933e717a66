package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

// TaskLogUpsert is the body of the idempotent timesheet upsert. The server
// keys on (employee_id, task_guid, work_date); a re-flush after a failed
// attempt simply replaces the row.
type TaskLogUpsert struct {
	EmployeeID      string `json:"employee_id"`
	ProjectID       string `json:"project_id"`
	TaskGUID        string `json:"task_guid"`
	TaskID          string `json:"task_id"`
	TaskName        string `json:"task_name"`
	Seconds         int64  `json:"seconds"`
	WorkDate        string `json:"work_date"`
	SessionStartMS  int64  `json:"session_start_ms"`
	SessionEndMS    int64  `json:"session_end_ms"`
	TZOffsetMinutes int    `json:"tz_offset_minutes"`
	Description     string `json:"description"`
}

// UpsertTaskLog flushes one task-day of accumulated seconds.
func (c *Client) UpsertTaskLog(ctx context.Context, upsert TaskLogUpsert) error {
	return c.post(ctx, "/time-tracker/task-log", upsert, nil)
}

// ExactLogEdit is the admin correction variant of the upsert.
type ExactLogEdit struct {
	TaskLogUpsert
	Role     string `json:"role"`
	EditorID string `json:"editor_id"`
}

// CorrectTaskLog overwrites a colleague's log exactly, attributed to the
// editing admin.
func (c *Client) CorrectTaskLog(ctx context.Context, edit ExactLogEdit) error {
	return c.do(ctx, http.MethodPut, "/time-tracker/logs/exact", edit, nil)
}

type logsResponse struct {
	Logs []domain.TimesheetLog `json:"logs"`
}

// Logs fetches timesheet logs in [startDate, endDate]. Admin views may pass
// employeeID "ALL".
func (c *Client) Logs(ctx context.Context, employeeID, startDate, endDate string) ([]domain.TimesheetLog, error) {
	path := "/time-tracker/logs" + query(
		"employee_id", employeeID,
		"start_date", startDate,
		"end_date", endDate,
	)
	var payload logsResponse
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	for i := range payload.Logs {
		payload.Logs[i].EmployeeID = domain.NormalizeEmployeeID(payload.Logs[i].EmployeeID)
	}
	return payload.Logs, nil
}

// SubmitTimesheet posts a week's flattened entries for approval.
func (c *Client) SubmitTimesheet(ctx context.Context, employeeID, employeeName string, entries []domain.SubmissionEntry) error {
	return c.post(ctx, "/time-tracker/timesheet/submit", map[string]any{
		"employee_id":   employeeID,
		"employee_name": employeeName,
		"entries":       entries,
	}, nil)
}

type submissionsResponse struct {
	Submissions []domain.TimesheetSubmission `json:"submissions"`
}

// TimesheetSubmissions lists submissions, optionally filtered.
func (c *Client) TimesheetSubmissions(ctx context.Context, employeeID string, status domain.SubmissionStatus) ([]domain.TimesheetSubmission, error) {
	path := "/time-tracker/timesheet/submissions" + query(
		"employee_id", employeeID,
		"status", string(status),
	)
	var payload submissionsResponse
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Submissions, nil
}

func (c *Client) ApproveTimesheetSubmission(ctx context.Context, id, decidedBy string) error {
	return c.post(ctx, "/time-tracker/timesheet/submissions/"+url.PathEscape(id)+"/approve",
		map[string]string{"decided_by": decidedBy}, nil)
}

func (c *Client) RejectTimesheetSubmission(ctx context.Context, id, decidedBy, comment string) error {
	return c.post(ctx, "/time-tracker/timesheet/submissions/"+url.PathEscape(id)+"/reject",
		map[string]string{"decided_by": decidedBy, "comment": comment}, nil)
}
