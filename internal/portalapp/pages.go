package portalapp

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/vtabsquare/officetool/internal/cache"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/inbox"
	"github.com/vtabsquare/officetool/internal/router"
	"github.com/vtabsquare/officetool/internal/timesheet"
)

// portalPage is one routed page. build assembles the template data from live
// (or value-cached) upstream state; rendered markup is kept in the page cache
// and served stale-while-revalidate within maxAge.
type portalPage struct {
	s        *server
	name     string
	template string
	maxAge   time.Duration
	volatile bool
	build    func(ctx context.Context, user *domain.User, query url.Values) (any, error)
	leave    func()
}

func (p *portalPage) Name() string { return p.name }

func (p *portalPage) OnLeave() {
	if p.leave != nil {
		p.leave()
	}
}

func (p *portalPage) serve(w http.ResponseWriter, r *http.Request, user *domain.User) {
	// Rendered markup embeds the viewer's own data, so cache entries are
	// scoped per user.
	key := user.ID + "|" + p.name
	if q := r.URL.RawQuery; q != "" {
		key += "?" + q
	}

	if !p.volatile {
		if entry, ok := p.s.pages.Get(key, p.maxAge); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(entry.Markup))
			go p.rehydrate(key, user, r.URL.Query())
			return
		}
	}

	data, err := p.build(r.Context(), user, r.URL.Query())
	if err != nil {
		p.s.collector.RecordUpstreamError()
		p.s.renderErrorCard(w, "This view is temporarily unavailable.")
		return
	}
	markup, err := p.s.renderToString(p.template, data)
	if err != nil {
		p.s.renderErrorCard(w, "The page failed to render.")
		return
	}
	if !p.volatile {
		p.s.pages.Set(key, markup, nil)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(markup))
}

// rehydrate rebuilds a served-stale page in the background so the next
// navigation gets fresh markup.
func (p *portalPage) rehydrate(key string, user *domain.User, query url.Values) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	data, err := p.build(ctx, user, query)
	if err != nil {
		return
	}
	markup, err := p.s.renderToString(p.template, data)
	if err != nil {
		return
	}
	p.s.pages.Set(key, markup, nil)
	p.s.collector.RecordPageRehydration()
}

func (s *server) renderToString(name string, data any) (string, error) {
	var buf strings.Builder
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *server) page(name, tmpl string, build func(ctx context.Context, user *domain.User, query url.Values) (any, error)) func() router.Page {
	return func() router.Page {
		return &portalPage{s: s, name: name, template: tmpl, maxAge: cache.DefaultPageMaxAge, build: build}
	}
}

func (s *server) volatilePage(name, tmpl string, build func(ctx context.Context, user *domain.User, query url.Values) (any, error)) func() router.Page {
	return func() router.Page {
		return &portalPage{s: s, name: name, template: tmpl, volatile: true, build: build}
	}
}

func (s *server) buildRouter() *router.Router {
	rt := router.New("/")

	rt.Handle("/", s.page("/", "dashboard.html", s.buildDashboard))
	rt.Handle("/employees", s.page("/employees", "employees.html", s.buildEmployees))
	rt.Handle("/interns", s.page("/interns", "employees.html", s.buildInterns))
	rt.Handle("/team-management", s.page("/team-management", "team_management.html", s.buildTeamManagement))
	rt.Handle("/leave-my", s.volatilePage("/leave-my", "leave_my.html", s.buildLeaveMy))
	rt.Handle("/leave-team", s.volatilePage("/leave-team", "leave_team.html", s.buildLeaveTeam))
	rt.Handle("/attendance-my", s.page("/attendance-my", "attendance_my.html", s.buildAttendanceMy))
	rt.Handle("/attendance-team", s.volatilePage("/attendance-team", "attendance_team.html", s.buildAttendanceTeam))
	rt.Handle("/time-my-timesheet", s.volatilePage("/time-my-timesheet", "timesheet_my.html", s.buildTimesheetMy))
	rt.Handle("/time-team-timesheet", s.volatilePage("/time-team-timesheet", "timesheet_team.html", s.buildTimesheetTeam))
	rt.Handle("/time-clients", s.page("/time-clients", "clients.html", s.buildClients))
	rt.Handle("/time-projects", s.page("/time-projects", "projects.html", s.buildProjects))
	rt.Handle("/my-tasks", s.volatilePage("/my-tasks", "my_tasks.html", s.buildMyTasks))
	rt.Handle("/inbox", s.volatilePage("/inbox", "inbox.html", s.buildInbox))
	rt.Handle("/login-settings", s.volatilePage("/login-settings", "login_settings.html", s.buildLoginSettings))
	rt.Handle("/onboarding", s.page("/onboarding", "onboarding.html", s.buildOnboarding))
	rt.Handle("/meet", func() router.Page {
		return &portalPage{
			s:        s,
			name:     "/meet",
			template: "meet.html",
			volatile: true,
			build:    s.buildMeet,
			leave:    s.dispatcher.Cleanup,
		}
	})

	return rt
}

func (s *server) buildDashboard(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	holidays, err := cache.Fetch(s.values, "holidays", cache.TTLVeryLong, func() ([]domain.Holiday, error) {
		return s.apiClient.Holidays(ctx)
	})
	if err != nil {
		// The dashboard degrades widget by widget; a missing holiday list
		// never blanks the page.
		holidays = nil
	}
	badge, err := s.approvals.Badge(ctx, user)
	if err != nil {
		badge = 0
	}
	active, _ := s.timer.Active(user.ID)
	return dashboardData{
		User:          user,
		Badge:         badge,
		Announcements: s.announcements(),
		Holidays:      upcomingHolidays(holidays, time.Now(), 5),
		ActiveTimer:   active,
	}, nil
}

func (s *server) announcements() []domain.Announcement {
	var items []domain.Announcement
	if _, err := s.durable.Get(announcementsKey, &items); err != nil {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items
}

func upcomingHolidays(holidays []domain.Holiday, now time.Time, limit int) []domain.Holiday {
	today := domain.LocalDate(now)
	var out []domain.Holiday
	for _, h := range holidays {
		if h.Date >= today {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *server) allEmployees(ctx context.Context) ([]domain.Employee, error) {
	return cache.Fetch(s.values, "employees_all", cache.TTLLong, func() ([]domain.Employee, error) {
		return s.apiClient.AllEmployees(ctx)
	})
}

func (s *server) buildEmployees(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	employees, err := s.allEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return employeesData{User: user, Employees: employees}, nil
}

func (s *server) buildInterns(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	employees, err := s.allEmployees(ctx)
	if err != nil {
		return nil, err
	}
	var interns []domain.Employee
	for _, e := range employees {
		if e.Intern {
			interns = append(interns, e)
		}
	}
	return employeesData{User: user, Employees: interns, Interns: true}, nil
}

func (s *server) buildTeamManagement(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	employees, err := s.allEmployees(ctx)
	if err != nil {
		return nil, err
	}
	byDept := make(map[string][]domain.Employee)
	for _, e := range employees {
		dept := e.Department
		if dept == "" {
			dept = "Unassigned"
		}
		byDept[dept] = append(byDept[dept], e)
	}
	names := make([]string, 0, len(byDept))
	for name := range byDept {
		names = append(names, name)
	}
	sort.Strings(names)
	departments := make([]departmentView, 0, len(names))
	for _, name := range names {
		members := byDept[name]
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		departments = append(departments, departmentView{Name: name, Members: members})
	}
	return teamManagementData{User: user, Departments: departments}, nil
}

func (s *server) buildLeaveMy(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	leaves, err := s.apiClient.Leaves(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].AppliedAt > leaves[j].AppliedAt })
	balance, err := s.apiClient.CompOffBalance(ctx, user.ID)
	if err != nil {
		balance = 0
	}
	return leaveMyData{User: user, Leaves: leaves, CompOff: balance, Error: query.Get("error")}, nil
}

func (s *server) buildLeaveTeam(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	pending, err := s.apiClient.PendingLeaves(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].AppliedAt > pending[j].AppliedAt })
	return leaveTeamData{User: user, Pending: pending}, nil
}

func (s *server) buildAttendanceMy(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if q := query.Get("month"); q != "" {
		if t, err := time.Parse("2006-01", q); err == nil {
			year, month = t.Year(), int(t.Month())
		}
	}
	days, err := s.apiClient.MonthlyAttendance(ctx, user.ID, year, month)
	if err != nil {
		return nil, err
	}
	submissions, err := s.apiClient.AttendanceSubmissions(ctx, "")
	if err != nil {
		submissions = nil
	}
	mine := submissions[:0]
	for _, sub := range submissions {
		if sub.EmployeeID == user.ID {
			mine = append(mine, sub)
		}
	}
	return attendanceMyData{User: user, Year: year, Month: month, Days: days, Submissions: mine}, nil
}

func (s *server) buildAttendanceTeam(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	pending, err := s.approvals.LoadAttendance(ctx, user, inbox.TabAwaitingApproval)
	if err != nil {
		return nil, err
	}
	return attendanceTeamData{User: user, Pending: pending}, nil
}

// weekStart resolves the ?week= query to a Monday, defaulting to the current
// week.
func weekStart(query url.Values, now time.Time) time.Time {
	if q := query.Get("week"); q != "" {
		if t, err := domain.ParseFlexibleDate(q); err == nil {
			return t
		}
	}
	return now
}

func (s *server) buildTimesheetGrid(ctx context.Context, user *domain.User, query url.Values) (*timesheet.Grid, error) {
	tasks, err := cache.Fetch(s.values, "tasks_"+user.ID, cache.TTLMedium, func() ([]domain.Task, error) {
		return s.apiClient.MyTasks(ctx, user)
	})
	if err != nil {
		tasks = nil
	}
	billing := map[string]string{}
	projects, err := cache.Fetch(s.values, "projects_"+user.ID, cache.TTLLong, func() ([]domain.Project, error) {
		return s.apiClient.EmployeeProjects(ctx, user.ID)
	})
	if err == nil {
		for _, p := range projects {
			billing[p.ID] = p.Billing
		}
	}
	return s.timesheets.Build(ctx, user, weekStart(query, time.Now()), tasks, billing)
}

func (s *server) buildTimesheetMy(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	grid, err := s.buildTimesheetGrid(ctx, user, query)
	if err != nil {
		return nil, err
	}
	return timesheetMyData{
		User:     user,
		Grid:     grid,
		Week:     domain.WeekKey(grid.Monday, grid.Sunday),
		PrevWeek: domain.LocalDate(grid.Monday.AddDate(0, 0, -7)),
		NextWeek: domain.LocalDate(grid.Monday.AddDate(0, 0, 7)),
		Error:    query.Get("error"),
	}, nil
}

func (s *server) buildTimesheetTeam(ctx context.Context, user *domain.User, _ url.Values) (any, error) {
	pending, err := s.approvals.LoadTimesheets(ctx, user, inbox.TabAwaitingApproval)
	if err != nil {
		return nil, err
	}
	return timesheetTeamData{User: user, Pending: pending}, nil
}

func (s *server) buildClients(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	clients, err := cache.Fetch(s.values, "clients", cache.TTLLong, func() ([]domain.Client, error) {
		return s.apiClient.Clients(ctx)
	})
	if err != nil {
		return nil, err
	}
	return clientsData{User: user, Clients: clients, Error: query.Get("error")}, nil
}

func (s *server) buildProjects(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	projects, err := cache.Fetch(s.values, "projects_"+user.ID, cache.TTLLong, func() ([]domain.Project, error) {
		return s.apiClient.EmployeeProjects(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	data := projectsData{
		User:     user,
		Projects: projects,
		Tab:      query.Get("tab"),
		Board:    query.Get("board"),
	}
	if id := query.Get("id"); id != "" {
		for i := range projects {
			if projects[i].ID == id {
				data.Selected = &projects[i]
				break
			}
		}
		if data.Selected != nil {
			tasks, err := cache.Fetch(s.values, "tasks_"+user.ID, cache.TTLMedium, func() ([]domain.Task, error) {
				return s.apiClient.MyTasks(ctx, user)
			})
			if err == nil {
				for _, t := range tasks {
					if t.ProjectID != id {
						continue
					}
					if data.Board != "" && t.BoardID != data.Board {
						continue
					}
					data.Tasks = append(data.Tasks, t)
				}
			}
		}
	}
	return data, nil
}

func (s *server) buildMyTasks(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	tasks, err := cache.Fetch(s.values, "tasks_"+user.ID, cache.TTLMedium, func() ([]domain.Task, error) {
		return s.apiClient.MyTasks(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	active, _ := s.timer.Active(user.ID)
	return myTasksData{
		User:        user,
		Tasks:       tasks,
		ManualTasks: s.timer.ManualTasks(),
		Active:      active,
		Elapsed:     s.timer.Elapsed(active),
		Error:       query.Get("error"),
	}, nil
}

func (s *server) buildMeet(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	employees, err := s.allEmployees(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := cache.Fetch(s.values, "projects_"+user.ID, cache.TTLLong, func() ([]domain.Project, error) {
		return s.apiClient.EmployeeProjects(ctx, user.ID)
	})
	if err != nil {
		projects = nil
	}
	return meetData{
		User:         user,
		Employees:    employees,
		Projects:     projects,
		Participants: s.dispatcher.Participants(),
		Summary:      s.dispatcher.Summary(),
		Decisions:    s.dispatcher.Decisions(),
		Error:        query.Get("error"),
	}, nil
}

func parseInboxQuery(query url.Values, user *domain.User) (inbox.Category, inbox.Tab) {
	category := inbox.Category(query.Get("category"))
	switch category {
	case inbox.CategoryLeaves, inbox.CategoryTimesheet, inbox.CategoryAttendance, inbox.CategoryCompOff:
	default:
		category = inbox.CategoryLeaves
	}
	tab := inbox.Tab(query.Get("tab"))
	switch tab {
	case inbox.TabAwaitingApproval, inbox.TabMyRequests, inbox.TabCompleted:
	default:
		if user.Roles.Admin {
			tab = inbox.TabAwaitingApproval
		} else {
			tab = inbox.TabMyRequests
		}
	}
	return category, tab
}

func (s *server) buildInbox(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	category, tab := parseInboxQuery(query, user)
	data := inboxData{User: user, Category: category, Tab: tab, Error: query.Get("error")}
	if badge, err := s.approvals.Badge(ctx, user); err == nil {
		data.Badge = badge
	}

	var err error
	switch category {
	case inbox.CategoryTimesheet:
		data.Timesheets, err = s.approvals.LoadTimesheets(ctx, user, tab)
	case inbox.CategoryAttendance:
		data.Attendance, err = s.approvals.LoadAttendance(ctx, user, tab)
	case inbox.CategoryCompOff:
		data.CompOff, err = s.approvals.LoadCompOff(user, tab)
	default:
		data.Leaves, err = s.approvals.LoadLeaves(ctx, user, tab)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *server) buildLoginSettings(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	holidays, err := s.apiClient.Holidays(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date < holidays[j].Date })
	return loginSettingsData{
		User:          user,
		Holidays:      holidays,
		Announcements: s.announcements(),
		Message:       query.Get("message"),
		Error:         query.Get("error"),
	}, nil
}

func (s *server) buildOnboarding(ctx context.Context, user *domain.User, query url.Values) (any, error) {
	employees, err := s.allEmployees(ctx)
	if err != nil {
		return nil, err
	}
	recent := append([]domain.Employee(nil), employees...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].DateOfJoin > recent[j].DateOfJoin })
	if len(recent) > 10 {
		recent = recent[:10]
	}
	return onboardingData{User: user, Recent: recent, Message: query.Get("message")}, nil
}
