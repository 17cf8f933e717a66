package api

import (
	"context"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

type monthlyAttendanceResponse struct {
	Days []AttendanceDay `json:"days"`
}

type AttendanceDay struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
}

// MonthlyAttendance fetches one employee-month of attendance days.
func (c *Client) MonthlyAttendance(ctx context.Context, employeeID string, year, month int) ([]AttendanceDay, error) {
	var payload monthlyAttendanceResponse
	path := "/attendance/monthly" + query(
		"employee_id", employeeID,
		"year", itoa(year),
		"month", itoa(month),
	)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Days, nil
}

type attendanceSubmissionsResponse struct {
	Submissions []domain.AttendanceReport `json:"submissions"`
}

// AttendanceSubmissions lists monthly report markers, optionally filtered by
// status.
func (c *Client) AttendanceSubmissions(ctx context.Context, status string) ([]domain.AttendanceReport, error) {
	var payload attendanceSubmissionsResponse
	if err := c.get(ctx, "/attendance/submissions"+query("status", status), &payload); err != nil {
		return nil, err
	}
	for i := range payload.Submissions {
		payload.Submissions[i].EmployeeID = domain.NormalizeEmployeeID(payload.Submissions[i].EmployeeID)
	}
	return payload.Submissions, nil
}

func (c *Client) ApproveAttendance(ctx context.Context, markerID, decidedBy string) error {
	return c.post(ctx, "/attendance/submissions/"+url.PathEscape(markerID)+"/approve",
		map[string]string{"decided_by": decidedBy}, nil)
}

func (c *Client) RejectAttendance(ctx context.Context, markerID, decidedBy string) error {
	return c.post(ctx, "/attendance/submissions/"+url.PathEscape(markerID)+"/reject",
		map[string]string{"decided_by": decidedBy}, nil)
}
