package portalapp

import (
	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/dispatch"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/inbox"
	"github.com/vtabsquare/officetool/internal/timesheet"
)

const announcementsKey = "vtab_dashboard_announcement_v1"

type deniedData struct {
	User     *domain.User
	Redirect string
}

type errorData struct {
	Message string
}

type loginData struct {
	Error string
}

type dashboardData struct {
	User          *domain.User
	Badge         int
	Announcements []domain.Announcement
	Holidays      []domain.Holiday
	ActiveTimer   *domain.ActiveTimer
}

type employeesData struct {
	User      *domain.User
	Employees []domain.Employee
	Interns   bool
}

type teamManagementData struct {
	User        *domain.User
	Departments []departmentView
}

type departmentView struct {
	Name    string
	Members []domain.Employee
}

type leaveMyData struct {
	User    *domain.User
	Leaves  []domain.Leave
	CompOff int
	Error   string
}

type leaveTeamData struct {
	User    *domain.User
	Pending []domain.Leave
}

type attendanceMyData struct {
	User        *domain.User
	Year        int
	Month       int
	Days        []api.AttendanceDay
	Submissions []domain.AttendanceReport
}

type attendanceTeamData struct {
	User    *domain.User
	Pending []domain.AttendanceReport
}

type timesheetMyData struct {
	User     *domain.User
	Grid     *timesheet.Grid
	Week     string
	PrevWeek string
	NextWeek string
	Error    string
}

type timesheetTeamData struct {
	User    *domain.User
	Pending []domain.TimesheetSubmission
}

type clientsData struct {
	User    *domain.User
	Clients []domain.Client
	Error   string
}

type projectsData struct {
	User     *domain.User
	Projects []domain.Project
	Selected *domain.Project
	Tab      string
	Board    string
	Tasks    []domain.Task
}

type myTasksData struct {
	User        *domain.User
	Tasks       []domain.Task
	ManualTasks []domain.Task
	Active      *domain.ActiveTimer
	Elapsed     int64
	Error       string
}

type meetData struct {
	User         *domain.User
	Employees    []domain.Employee
	Projects     []domain.Project
	Participants []domain.Participant
	Summary      dispatch.CallSummary
	Decisions    map[string]domain.ParticipantStatus
	Error        string
}

type inboxData struct {
	User       *domain.User
	Category   inbox.Category
	Tab        inbox.Tab
	Badge      int
	Leaves     []domain.Leave
	Timesheets []domain.TimesheetSubmission
	Attendance []domain.AttendanceReport
	CompOff    []domain.CompOffRequest
	Error      string
}

type loginSettingsData struct {
	User          *domain.User
	Holidays      []domain.Holiday
	Announcements []domain.Announcement
	Message       string
	Error         string
}

type onboardingData struct {
	User    *domain.User
	Recent  []domain.Employee
	Message string
}
