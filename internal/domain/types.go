package domain

import "time"

type RoleFlags struct {
	Admin   bool `json:"admin"`
	Manager bool `json:"manager"`
	L3      bool `json:"l3"`
}

type User struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Roles RoleFlags `json:"roles"`
}

type TaskStatus string

const (
	TaskNew        TaskStatus = "New"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
	TaskCancelled  TaskStatus = "Cancelled"
	TaskInactive   TaskStatus = "Inactive"
	TaskDeleted    TaskStatus = "Deleted"
)

type Task struct {
	GUID      string     `json:"guid"`
	HumanID   string     `json:"task_id"`
	Name      string     `json:"name"`
	ProjectID string     `json:"project_id"`
	BoardID   string     `json:"board_id,omitempty"`
	Status    TaskStatus `json:"status"`
	Priority  string     `json:"priority"`
	DueDate   string     `json:"due_date"`
	Assignee  string     `json:"assignee"`
}

type Employee struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
	Department  string `json:"department"`
	DateOfJoin  string `json:"date_of_joining"`
	Intern      bool   `json:"intern"`
	PhotoURL    string `json:"photo_url"`
}

type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ClientID     string   `json:"client_id"`
	Billing      string   `json:"billing"`
	Contributors []string `json:"contributors"`
}

type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Country string `json:"country"`
}

type Holiday struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type Leave struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Type       string `json:"leave_type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	DecidedBy  string `json:"decided_by,omitempty"`
	Comment    string `json:"comment,omitempty"`
	AppliedAt  string `json:"applied_at"`
}

type AttendanceReport struct {
	MarkerID   string `json:"marker_id"`
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Status     string `json:"status"`
	SubmitTime string `json:"submitted_at"`
}

type CompOffRequest struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	WorkDate   string `json:"work_date"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	DecidedBy  string `json:"decided_by,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type TimesheetLog struct {
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`
	TaskGUID   string `json:"task_guid"`
	TaskID     string `json:"task_id"`
	TaskName   string `json:"task_name"`
	WorkDate   string `json:"work_date"`
	Seconds    int64  `json:"seconds"`
	Manual     bool   `json:"manual"`
	Note       string `json:"description"`
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "Pending"
	SubmissionApproved SubmissionStatus = "Approved"
	SubmissionRejected SubmissionStatus = "Rejected"
)

type SubmissionEntry struct {
	WorkDate  string  `json:"work_date"`
	ProjectID string  `json:"project_id"`
	TaskGUID  string  `json:"task_guid"`
	TaskID    string  `json:"task_id"`
	TaskName  string  `json:"task_name"`
	Seconds   int64   `json:"seconds"`
	Hours     float64 `json:"hours_worked"`
	Note      string  `json:"description"`
}

type TimesheetSubmission struct {
	ID           string            `json:"id"`
	EmployeeID   string            `json:"employee_id"`
	EmployeeName string            `json:"employee_name"`
	Entries      []SubmissionEntry `json:"entries"`
	Status       SubmissionStatus  `json:"status"`
	DecidedBy    string            `json:"decided_by,omitempty"`
	Comment      string            `json:"rejection_comment,omitempty"`
	SubmittedAt  string            `json:"submitted_at"`
}

type ParticipantStatus string

const (
	ParticipantRinging  ParticipantStatus = "Ringing"
	ParticipantAccepted ParticipantStatus = "Accepted"
	ParticipantDeclined ParticipantStatus = "Declined"
)

type Participant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Designation string          `json:"designation"`
	Sources     map[string]bool `json:"-"`
}

type Announcement struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// ActiveTimer is the per-user single running timer. StartedAt is nil exactly
// when the timer is paused.
type ActiveTimer struct {
	TaskGUID    string     `json:"task_guid"`
	TaskID      string     `json:"task_id"`
	TaskName    string     `json:"task_name"`
	ProjectID   string     `json:"project_id"`
	StartedAt   *time.Time `json:"started_at"`
	Accumulated int64      `json:"accumulated_seconds"`
	Paused      bool       `json:"paused"`
}

func (t *ActiveTimer) Running() bool { return t != nil && !t.Paused && t.StartedAt != nil }
