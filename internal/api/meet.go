package api

import "context"

// MeetRequest creates a video call for the listed participants. Scheduled
// calls carry ISO-UTC start/end; immediate calls leave them empty.
type MeetRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	AudienceType   string   `json:"audience_type"`
	EmployeeIDs    []string `json:"employee_ids"`
	EmployeeEmails []string `json:"employee_emails"`
	ProjectID      string   `json:"project_id,omitempty"`
	StartTime      string   `json:"start_time,omitempty"`
	EndTime        string   `json:"end_time,omitempty"`
	Timezone       string   `json:"timezone"`
	AdminID        string   `json:"admin_id"`
}

type MeetResponse struct {
	CallID   string `json:"call_id"`
	MeetURL  string `json:"meet_url"`
	HTMLLink string `json:"html_link,omitempty"`
}

// StartMeet issues the meeting-create request.
func (c *Client) StartMeet(ctx context.Context, req MeetRequest) (*MeetResponse, error) {
	var payload MeetResponse
	if err := c.post(ctx, "/meet/start", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
