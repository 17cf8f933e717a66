package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vtabsquare/officetool/internal/cache"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/store"
)

type Category string

const (
	CategoryLeaves     Category = "leaves"
	CategoryTimesheet  Category = "timesheet"
	CategoryAttendance Category = "attendance"
	CategoryCompOff    Category = "compoff"
)

type Tab string

const (
	TabAwaitingApproval Tab = "awaiting"
	TabMyRequests       Tab = "mine"
	TabCompleted        Tab = "completed"
)

const compOffQueueKey = "compoff_requests"

var (
	ErrNotAdmin        = errors.New("approvals require the admin role")
	ErrUnknownRequest  = errors.New("unknown request")
	ErrAlreadyDecided  = errors.New("request already decided")
	ErrMissingWorkDate = errors.New("comp-off requests need a work date")
)

// Upstream is the slice of the HR API the inbox drives.
type Upstream interface {
	Leaves(ctx context.Context, employeeID string) ([]domain.Leave, error)
	PendingLeaves(ctx context.Context) ([]domain.Leave, error)
	ApproveLeave(ctx context.Context, leaveID, decidedBy string) error
	RejectLeave(ctx context.Context, leaveID, decidedBy, reason string) error
	NotifyLeaveApproval(ctx context.Context, leaveID, employeeID, leaveType string) error
	NotifyLeaveRejection(ctx context.Context, leaveID, employeeID, leaveType, reason string) error
	PendingBadge(ctx context.Context, employeeID string) (int, error)
	CompOffBalance(ctx context.Context, employeeID string) (int, error)
	SetCompOffBalance(ctx context.Context, employeeID string, balance int) error
	TimesheetSubmissions(ctx context.Context, employeeID string, status domain.SubmissionStatus) ([]domain.TimesheetSubmission, error)
	ApproveTimesheetSubmission(ctx context.Context, id, decidedBy string) error
	RejectTimesheetSubmission(ctx context.Context, id, decidedBy, comment string) error
	AttendanceSubmissions(ctx context.Context, status string) ([]domain.AttendanceReport, error)
	ApproveAttendance(ctx context.Context, markerID, decidedBy string) error
	RejectAttendance(ctx context.Context, markerID, decidedBy string) error
}

// Controller serves the approval inbox: per-category queues split into
// awaiting / my-requests / completed tabs, plus the admin decisions that move
// items between them. Comp-off requests live in the durable store; the
// upstream only tracks balances.
type Controller struct {
	upstream Upstream
	durable  *store.Durable
	cache    *cache.Cache
	now      func() time.Time
}

func NewController(upstream Upstream, durable *store.Durable, c *cache.Cache) *Controller {
	return &Controller{upstream: upstream, durable: durable, cache: c, now: time.Now}
}

// Badge counts items awaiting the user's action, cached briefly so the header
// does not hammer the upstream on every render.
func (ctl *Controller) Badge(ctx context.Context, user *domain.User) (int, error) {
	if user == nil {
		return 0, nil
	}
	key := "inbox_badge_" + user.ID
	return cache.Fetch(ctl.cache, key, cache.TTLShort, func() (int, error) {
		count, err := ctl.upstream.PendingBadge(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		if user.Roles.Admin {
			for _, req := range ctl.compOffQueue() {
				if req.Status == "Pending" {
					count++
				}
			}
		}
		return count, nil
	})
}

func (ctl *Controller) invalidate() {
	ctl.cache.ClearByPrefix("inbox_")
}

// LoadLeaves resolves the leaves queue for a tab. AwaitingApproval is the
// admin's pending queue; the other tabs are scoped to the caller.
func (ctl *Controller) LoadLeaves(ctx context.Context, user *domain.User, tab Tab) ([]domain.Leave, error) {
	var (
		items []domain.Leave
		err   error
	)
	switch tab {
	case TabAwaitingApproval:
		if !user.Roles.Admin {
			return nil, ErrNotAdmin
		}
		items, err = ctl.upstream.PendingLeaves(ctx)
	default:
		items, err = ctl.upstream.Leaves(ctx, user.ID)
		if err == nil {
			items = filterLeaves(items, tab)
		}
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].AppliedAt > items[j].AppliedAt })
	return items, nil
}

func filterLeaves(items []domain.Leave, tab Tab) []domain.Leave {
	out := items[:0]
	for _, l := range items {
		decided := l.Status == "Approved" || l.Status == "Rejected"
		if (tab == TabCompleted) == decided {
			out = append(out, l)
		}
	}
	return out
}

// LoadTimesheets resolves the timesheet-submission queue for a tab.
func (ctl *Controller) LoadTimesheets(ctx context.Context, user *domain.User, tab Tab) ([]domain.TimesheetSubmission, error) {
	var (
		items []domain.TimesheetSubmission
		err   error
	)
	switch tab {
	case TabAwaitingApproval:
		if !user.Roles.Admin {
			return nil, ErrNotAdmin
		}
		items, err = ctl.upstream.TimesheetSubmissions(ctx, "", domain.SubmissionPending)
	case TabCompleted:
		items, err = ctl.upstream.TimesheetSubmissions(ctx, user.ID, "")
		if err == nil {
			items = filterSubmissions(items, true)
		}
	default:
		items, err = ctl.upstream.TimesheetSubmissions(ctx, user.ID, "")
		if err == nil {
			items = filterSubmissions(items, false)
		}
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SubmittedAt > items[j].SubmittedAt })
	return items, nil
}

func filterSubmissions(items []domain.TimesheetSubmission, decided bool) []domain.TimesheetSubmission {
	out := items[:0]
	for _, s := range items {
		if (s.Status != domain.SubmissionPending) == decided {
			out = append(out, s)
		}
	}
	return out
}

// LoadAttendance resolves the attendance-marker queue for a tab.
func (ctl *Controller) LoadAttendance(ctx context.Context, user *domain.User, tab Tab) ([]domain.AttendanceReport, error) {
	status := "Pending"
	if tab == TabCompleted {
		status = ""
	}
	if tab == TabAwaitingApproval && !user.Roles.Admin {
		return nil, ErrNotAdmin
	}
	items, err := ctl.upstream.AttendanceSubmissions(ctx, status)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, r := range items {
		switch tab {
		case TabAwaitingApproval:
			if r.Status == "Pending" {
				out = append(out, r)
			}
		case TabCompleted:
			if r.EmployeeID == user.ID && r.Status != "Pending" {
				out = append(out, r)
			}
		default:
			if r.EmployeeID == user.ID {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmitTime > out[j].SubmitTime })
	return out, nil
}

// ApproveLeave records the decision under the admin's id and notifies the
// employee. The notification is best-effort; a failed send never rolls back
// the approval.
func (ctl *Controller) ApproveLeave(ctx context.Context, admin *domain.User, leave domain.Leave) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	decidedBy := domain.NormalizeEmployeeID(admin.ID)
	if err := ctl.upstream.ApproveLeave(ctx, leave.ID, decidedBy); err != nil {
		return fmt.Errorf("approve leave %s: %w", leave.ID, err)
	}
	if err := ctl.upstream.NotifyLeaveApproval(ctx, leave.ID, leave.EmployeeID, leave.Type); err != nil {
		slog.Warn("leave approval notification failed", "leave", leave.ID, "err", err)
	}
	ctl.invalidate()
	return nil
}

// RejectLeave records the rejection with its reason and notifies the
// employee, best-effort.
func (ctl *Controller) RejectLeave(ctx context.Context, admin *domain.User, leave domain.Leave, reason string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	decidedBy := domain.NormalizeEmployeeID(admin.ID)
	if err := ctl.upstream.RejectLeave(ctx, leave.ID, decidedBy, reason); err != nil {
		return fmt.Errorf("reject leave %s: %w", leave.ID, err)
	}
	if err := ctl.upstream.NotifyLeaveRejection(ctx, leave.ID, leave.EmployeeID, leave.Type, reason); err != nil {
		slog.Warn("leave rejection notification failed", "leave", leave.ID, "err", err)
	}
	ctl.invalidate()
	return nil
}

// ApproveTimesheet attributes the decision to the admin's normalised id.
func (ctl *Controller) ApproveTimesheet(ctx context.Context, admin *domain.User, submissionID string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	if err := ctl.upstream.ApproveTimesheetSubmission(ctx, submissionID, domain.NormalizeEmployeeID(admin.ID)); err != nil {
		return fmt.Errorf("approve timesheet %s: %w", submissionID, err)
	}
	ctl.invalidate()
	return nil
}

func (ctl *Controller) RejectTimesheet(ctx context.Context, admin *domain.User, submissionID, comment string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	if err := ctl.upstream.RejectTimesheetSubmission(ctx, submissionID, domain.NormalizeEmployeeID(admin.ID), comment); err != nil {
		return fmt.Errorf("reject timesheet %s: %w", submissionID, err)
	}
	ctl.invalidate()
	return nil
}

func (ctl *Controller) ApproveAttendance(ctx context.Context, admin *domain.User, markerID string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	if err := ctl.upstream.ApproveAttendance(ctx, markerID, domain.NormalizeEmployeeID(admin.ID)); err != nil {
		return fmt.Errorf("approve attendance %s: %w", markerID, err)
	}
	ctl.invalidate()
	return nil
}

func (ctl *Controller) RejectAttendance(ctx context.Context, admin *domain.User, markerID string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	if err := ctl.upstream.RejectAttendance(ctx, markerID, domain.NormalizeEmployeeID(admin.ID)); err != nil {
		return fmt.Errorf("reject attendance %s: %w", markerID, err)
	}
	ctl.invalidate()
	return nil
}

func (ctl *Controller) compOffQueue() []domain.CompOffRequest {
	var queue []domain.CompOffRequest
	if _, err := ctl.durable.Get(compOffQueueKey, &queue); err != nil {
		slog.Warn("comp-off queue unreadable", "err", err)
		return nil
	}
	return queue
}

// RequestCompOff queues a comp-off request for the calling employee.
func (ctl *Controller) RequestCompOff(user *domain.User, workDate, reason string) (domain.CompOffRequest, error) {
	if workDate == "" {
		return domain.CompOffRequest{}, ErrMissingWorkDate
	}
	req := domain.CompOffRequest{
		ID:         uuid.NewString(),
		EmployeeID: domain.NormalizeEmployeeID(user.ID),
		WorkDate:   workDate,
		Reason:     reason,
		Status:     "Pending",
		CreatedAt:  ctl.now().UTC().Format(time.RFC3339),
	}
	queue := append(ctl.compOffQueue(), req)
	if err := ctl.durable.Set(compOffQueueKey, queue); err != nil {
		return domain.CompOffRequest{}, err
	}
	ctl.invalidate()
	return req, nil
}

// LoadCompOff resolves the comp-off queue for a tab.
func (ctl *Controller) LoadCompOff(user *domain.User, tab Tab) ([]domain.CompOffRequest, error) {
	if tab == TabAwaitingApproval && !user.Roles.Admin {
		return nil, ErrNotAdmin
	}
	var out []domain.CompOffRequest
	for _, req := range ctl.compOffQueue() {
		switch tab {
		case TabAwaitingApproval:
			if req.Status == "Pending" {
				out = append(out, req)
			}
		case TabCompleted:
			if req.EmployeeID == user.ID && req.Status != "Pending" {
				out = append(out, req)
			}
		default:
			if req.EmployeeID == user.ID && req.Status == "Pending" {
				out = append(out, req)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// GrantCompOff approves the request and credits one day to the employee's
// balance. The read-increment-write against the upstream is not atomic; two
// admins granting at once can lose a credit.
func (ctl *Controller) GrantCompOff(ctx context.Context, admin *domain.User, requestID string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	queue := ctl.compOffQueue()
	idx := -1
	for i, req := range queue {
		if req.ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownRequest
	}
	if queue[idx].Status != "Pending" {
		return ErrAlreadyDecided
	}

	balance, err := ctl.upstream.CompOffBalance(ctx, queue[idx].EmployeeID)
	if err != nil {
		return fmt.Errorf("read comp-off balance: %w", err)
	}
	if err := ctl.upstream.SetCompOffBalance(ctx, queue[idx].EmployeeID, balance+1); err != nil {
		return fmt.Errorf("credit comp-off balance: %w", err)
	}

	queue[idx].Status = "Approved"
	queue[idx].DecidedBy = domain.NormalizeEmployeeID(admin.ID)
	if err := ctl.durable.Set(compOffQueueKey, queue); err != nil {
		return err
	}
	ctl.invalidate()
	return nil
}

// RejectCompOff marks the request rejected without touching the balance.
func (ctl *Controller) RejectCompOff(admin *domain.User, requestID string) error {
	if !admin.Roles.Admin {
		return ErrNotAdmin
	}
	queue := ctl.compOffQueue()
	for i, req := range queue {
		if req.ID != requestID {
			continue
		}
		if req.Status != "Pending" {
			return ErrAlreadyDecided
		}
		queue[i].Status = "Rejected"
		queue[i].DecidedBy = domain.NormalizeEmployeeID(admin.ID)
		if err := ctl.durable.Set(compOffQueueKey, queue); err != nil {
			return err
		}
		ctl.invalidate()
		return nil
	}
	return ErrUnknownRequest
}
