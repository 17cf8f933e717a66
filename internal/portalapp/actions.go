package portalapp

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vtabsquare/officetool/internal/dispatch"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/session"
	"github.com/vtabsquare/officetool/internal/timesheet"
)

func (s *server) loginRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "login.html", loginData{Error: r.URL.Query().Get("error")})
	case http.MethodPost:
		s.login(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+form+submission", http.StatusFound)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		http.Redirect(w, r, "/login?error=Email+and+password+are+required", http.StatusFound)
		return
	}

	user, err := s.apiClient.Authenticate(r.Context(), email, password)
	if err != nil {
		http.Redirect(w, r, "/login?error=Invalid+credentials", http.StatusFound)
		return
	}
	if err := s.sessions.Login(*user); err != nil {
		slog.Error("session persist failed", "err", err)
	}
	token, err := s.sessions.IssueToken(*user, time.Now())
	if err != nil {
		http.Redirect(w, r, "/login?error=Unable+to+start+session", http.StatusFound)
		return
	}
	session.SetCookie(w, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(); err != nil {
		slog.Warn("logout persist failed", "err", err)
	}
	s.pages.ClearAll()
	s.values.ClearAll()
	session.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// actionRoutes dispatches every POST action. Each action redirects back to
// the page it serves, carrying failures as an inline message.
func (s *server) actionRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/actions") {
	case "/timer/toggle":
		s.timerToggle(w, r)
	case "/timer/stop":
		s.timerStop(w, r)
	case "/timer/manual/add":
		s.timerManualAdd(w, r)
	case "/timer/manual/remove":
		s.timerManualRemove(w, r)
	case "/tasks/status":
		s.taskStatus(w, r)
	case "/timesheet/override":
		s.timesheetOverride(w, r)
	case "/timesheet/manual-row":
		s.timesheetManualRow(w, r)
	case "/timesheet/submit":
		s.timesheetSubmit(w, r)
	case "/timesheet/edit-day":
		s.timesheetEditDay(w, r)
	case "/inbox/leave/approve":
		s.leaveDecision(w, r, true)
	case "/inbox/leave/reject":
		s.leaveDecision(w, r, false)
	case "/inbox/timesheet/approve":
		s.timesheetDecision(w, r, true)
	case "/inbox/timesheet/reject":
		s.timesheetDecision(w, r, false)
	case "/inbox/attendance/approve":
		s.attendanceDecision(w, r, true)
	case "/inbox/attendance/reject":
		s.attendanceDecision(w, r, false)
	case "/inbox/compoff/request":
		s.compOffRequest(w, r)
	case "/inbox/compoff/grant":
		s.compOffDecision(w, r, true)
	case "/inbox/compoff/reject":
		s.compOffDecision(w, r, false)
	case "/meet/member/add":
		s.meetMemberAdd(w, r)
	case "/meet/member/remove":
		s.meetMemberRemove(w, r)
	case "/meet/project/add":
		s.meetProjectAdd(w, r)
	case "/meet/project/remove":
		s.meetProjectRemove(w, r)
	case "/meet/email/add":
		s.meetEmailAdd(w, r)
	case "/meet/start":
		s.meetStart(w, r)
	case "/meet/cancel":
		s.meetCancel(w, r)
	case "/clients/create":
		s.clientCreate(w, r)
	case "/clients/update":
		s.clientUpdate(w, r)
	case "/clients/delete":
		s.clientDelete(w, r)
	case "/announcements/add":
		s.announcementAdd(w, r)
	case "/announcements/remove":
		s.announcementRemove(w, r)
	case "/holidays/import":
		s.holidayImport(w, r)
	default:
		http.NotFound(w, r)
	}
}

func backTo(w http.ResponseWriter, r *http.Request, path string, err error) {
	if err != nil {
		path += "?error=" + url.QueryEscape(err.Error())
	}
	http.Redirect(w, r, path, http.StatusFound)
}

func (s *server) timerToggle(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	task := domain.Task{
		GUID:      r.FormValue("task_guid"),
		HumanID:   r.FormValue("task_id"),
		Name:      r.FormValue("task_name"),
		ProjectID: r.FormValue("project_id"),
	}
	_, err := s.timer.Toggle(r.Context(), user, task)
	backTo(w, r, "/my-tasks", err)
}

func (s *server) timerStop(w http.ResponseWriter, r *http.Request) {
	err := s.timer.Stop(r.Context(), userFrom(r))
	backTo(w, r, "/my-tasks", err)
}

func (s *server) timerManualAdd(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		backTo(w, r, "/my-tasks", errMissing("task name"))
		return
	}
	_, err := s.timer.AddManualTask(domain.Task{
		Name:      name,
		ProjectID: r.FormValue("project_id"),
	})
	backTo(w, r, "/my-tasks", err)
}

func (s *server) timerManualRemove(w http.ResponseWriter, r *http.Request) {
	err := s.timer.RemoveManualTask(r.FormValue("task_guid"))
	backTo(w, r, "/my-tasks", err)
}

func (s *server) taskStatus(w http.ResponseWriter, r *http.Request) {
	err := s.apiClient.SetTaskStatus(r.Context(), r.FormValue("task_guid"), domain.TaskStatus(r.FormValue("status")))
	if err == nil {
		s.values.ClearByPrefix("tasks_")
	}
	backTo(w, r, "/my-tasks", err)
}

func (s *server) timesheetOverride(w http.ResponseWriter, r *http.Request) {
	week := r.FormValue("week")
	day, err := strconv.Atoi(r.FormValue("day"))
	if err != nil {
		backTo(w, r, "/time-my-timesheet", err)
		return
	}
	var seconds *int64
	if raw := strings.TrimSpace(r.FormValue("hours")); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours < 0 {
			backTo(w, r, "/time-my-timesheet", errInvalid("hours"))
			return
		}
		v := int64(hours * 3600)
		seconds = &v
	}
	err = s.timesheets.SetOverride(week, r.FormValue("row"), day, seconds)
	backTo(w, r, "/time-my-timesheet", err)
}

func (s *server) timesheetManualRow(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("task_name"))
	if name == "" {
		backTo(w, r, "/time-my-timesheet", errMissing("task name"))
		return
	}
	_, err := s.timesheets.AddManualRow(r.FormValue("week"), timesheet.Row{
		ProjectID: r.FormValue("project_id"),
		TaskName:  name,
	})
	backTo(w, r, "/time-my-timesheet", err)
}

func (s *server) timesheetSubmit(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	// The form carries the Monday on screen; falling back to the URL query
	// would silently submit the current week.
	week := url.Values{}
	if posted := strings.TrimSpace(r.FormValue("week")); posted != "" {
		week.Set("week", posted)
	}
	grid, err := s.buildTimesheetGrid(r.Context(), user, week)
	if err != nil {
		backTo(w, r, "/time-my-timesheet", err)
		return
	}
	summary, err := s.timesheets.Submit(r.Context(), user, grid, r.FormValue("note"))
	if err != nil {
		backTo(w, r, "/time-my-timesheet", err)
		return
	}
	slog.Info("timesheet submitted", "employee", user.ID, "week", summary.Week, "entries", summary.Entries)
	backTo(w, r, "/time-my-timesheet", nil)
}

func (s *server) timesheetEditDay(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Roles.Admin {
		s.renderDenied(w, user, "/time-my-timesheet")
		return
	}
	seconds, err := strconv.ParseInt(r.FormValue("seconds"), 10, 64)
	if err != nil {
		backTo(w, r, "/time-team-timesheet", errInvalid("seconds"))
		return
	}
	row := timesheet.Row{
		ProjectID: r.FormValue("project_id"),
		TaskGUID:  r.FormValue("task_guid"),
		TaskID:    r.FormValue("task_id"),
		TaskName:  r.FormValue("task_name"),
	}
	err = s.timesheets.EditDay(r.Context(), user, domain.NormalizeEmployeeID(r.FormValue("employee_id")), row, r.FormValue("date"), seconds)
	backTo(w, r, "/time-team-timesheet", err)
}

func (s *server) leaveDecision(w http.ResponseWriter, r *http.Request, approve bool) {
	user := userFrom(r)
	leave := domain.Leave{
		ID:         r.FormValue("leave_id"),
		EmployeeID: r.FormValue("employee_id"),
		Type:       r.FormValue("leave_type"),
	}
	var err error
	if approve {
		err = s.approvals.ApproveLeave(r.Context(), user, leave)
	} else {
		err = s.approvals.RejectLeave(r.Context(), user, leave, r.FormValue("reason"))
	}
	backTo(w, r, "/inbox?category=leaves&tab=awaiting", err)
}

func (s *server) timesheetDecision(w http.ResponseWriter, r *http.Request, approve bool) {
	user := userFrom(r)
	id := r.FormValue("submission_id")
	var err error
	if approve {
		err = s.approvals.ApproveTimesheet(r.Context(), user, id)
	} else {
		err = s.approvals.RejectTimesheet(r.Context(), user, id, r.FormValue("comment"))
	}
	backTo(w, r, "/inbox?category=timesheet&tab=awaiting", err)
}

func (s *server) attendanceDecision(w http.ResponseWriter, r *http.Request, approve bool) {
	user := userFrom(r)
	id := r.FormValue("marker_id")
	var err error
	if approve {
		err = s.approvals.ApproveAttendance(r.Context(), user, id)
	} else {
		err = s.approvals.RejectAttendance(r.Context(), user, id)
	}
	backTo(w, r, "/inbox?category=attendance&tab=awaiting", err)
}

func (s *server) compOffRequest(w http.ResponseWriter, r *http.Request) {
	_, err := s.approvals.RequestCompOff(userFrom(r), r.FormValue("work_date"), r.FormValue("reason"))
	backTo(w, r, "/inbox?category=compoff&tab=mine", err)
}

func (s *server) compOffDecision(w http.ResponseWriter, r *http.Request, grant bool) {
	user := userFrom(r)
	id := r.FormValue("request_id")
	var err error
	if grant {
		err = s.approvals.GrantCompOff(r.Context(), user, id)
	} else {
		err = s.approvals.RejectCompOff(user, id)
	}
	backTo(w, r, "/inbox?category=compoff&tab=awaiting", err)
}

func (s *server) meetMemberAdd(w http.ResponseWriter, r *http.Request) {
	id := domain.NormalizeEmployeeID(r.FormValue("employee_id"))
	employees, err := s.allEmployees(r.Context())
	if err != nil {
		backTo(w, r, "/meet", err)
		return
	}
	for _, e := range employees {
		if e.ID == id {
			s.dispatcher.AddMember(e)
			backTo(w, r, "/meet", nil)
			return
		}
	}
	backTo(w, r, "/meet", errInvalid("employee"))
}

func (s *server) meetMemberRemove(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.RemoveMember(r.FormValue("participant_id"))
	backTo(w, r, "/meet", nil)
}

func (s *server) meetProjectAdd(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	projectID := r.FormValue("project_id")
	projects, err := s.apiClient.EmployeeProjects(r.Context(), user.ID)
	if err != nil {
		backTo(w, r, "/meet", err)
		return
	}
	var contributors []string
	for _, p := range projects {
		if p.ID == projectID {
			contributors = p.Contributors
			break
		}
	}
	employees, err := s.allEmployees(r.Context())
	if err != nil {
		backTo(w, r, "/meet", err)
		return
	}
	byID := make(map[string]domain.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	var roster []domain.Employee
	for _, id := range contributors {
		if e, ok := byID[domain.NormalizeEmployeeID(id)]; ok {
			roster = append(roster, e)
		}
	}
	s.dispatcher.AddProject(projectID, roster)
	backTo(w, r, "/meet", nil)
}

func (s *server) meetProjectRemove(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.RemoveProject(r.FormValue("project_id"))
	backTo(w, r, "/meet", nil)
}

func (s *server) meetEmailAdd(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.AddEmailInvitee(r.FormValue("email"))
	backTo(w, r, "/meet", nil)
}

func (s *server) meetStart(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	opts := dispatchOptions(r)
	_, err := s.dispatcher.StartCall(r.Context(), user, opts)
	backTo(w, r, "/meet", err)
}

func (s *server) meetCancel(w http.ResponseWriter, r *http.Request) {
	err := s.dispatcher.Cancel()
	backTo(w, r, "/meet", err)
}

func (s *server) clientCreate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Roles.Admin && !user.Roles.Manager {
		s.renderDenied(w, user, "/time-my-timesheet")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		backTo(w, r, "/time-clients", errMissing("client name"))
		return
	}
	id, err := s.apiClient.NextClientID(r.Context())
	if err != nil {
		backTo(w, r, "/time-clients", err)
		return
	}
	err = s.apiClient.CreateClient(r.Context(), domain.Client{
		ID:      id,
		Name:    name,
		Email:   strings.TrimSpace(r.FormValue("email")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Country: strings.TrimSpace(r.FormValue("country")),
	})
	if err == nil {
		s.values.Clear("clients")
		s.pages.ClearPage("/time-clients")
	}
	backTo(w, r, "/time-clients", err)
}

func (s *server) clientUpdate(w http.ResponseWriter, r *http.Request) {
	err := s.apiClient.UpdateClient(r.Context(), domain.Client{
		ID:      r.FormValue("client_id"),
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Country: strings.TrimSpace(r.FormValue("country")),
	})
	if err == nil {
		s.values.Clear("clients")
		s.pages.ClearPage("/time-clients")
	}
	backTo(w, r, "/time-clients", err)
}

func (s *server) clientDelete(w http.ResponseWriter, r *http.Request) {
	err := s.apiClient.DeleteClient(r.Context(), r.FormValue("client_id"))
	if err == nil {
		s.values.Clear("clients")
		s.pages.ClearPage("/time-clients")
	}
	backTo(w, r, "/time-clients", err)
}

func (s *server) announcementAdd(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Roles.Admin {
		s.renderDenied(w, user, "/")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		backTo(w, r, "/login-settings", errMissing("title"))
		return
	}
	items := s.announcements()
	items = append(items, domain.Announcement{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      strings.TrimSpace(r.FormValue("body")),
		CreatedBy: user.ID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	err := s.durable.Set(announcementsKey, items)
	if err == nil {
		s.pages.ClearPage("/")
	}
	backTo(w, r, "/login-settings", err)
}

func (s *server) announcementRemove(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Roles.Admin {
		s.renderDenied(w, user, "/")
		return
	}
	id := r.FormValue("announcement_id")
	items := s.announcements()
	kept := items[:0]
	for _, a := range items {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	err := s.durable.Set(announcementsKey, kept)
	if err == nil {
		s.pages.ClearPage("/")
	}
	backTo(w, r, "/login-settings", err)
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

func errMissing(field string) error { return fieldError(field + " is required") }

func errInvalid(field string) error { return fieldError("invalid " + field) }

func dispatchOptions(r *http.Request) (opts dispatch.CallOptions) {
	opts.Title = strings.TrimSpace(r.FormValue("title"))
	opts.Description = strings.TrimSpace(r.FormValue("description"))
	opts.AudienceType = r.FormValue("audience_type")
	opts.ProjectID = r.FormValue("project_id")
	opts.Timezone = r.FormValue("timezone")
	if raw := r.FormValue("start_time"); raw != "" {
		if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
			opts.Start = &t
		}
	}
	if raw := r.FormValue("end_time"); raw != "" {
		if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
			opts.End = &t
		}
	}
	return opts
}
