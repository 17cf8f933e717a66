package inbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtabsquare/officetool/internal/cache"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/store"
)

type fakeUpstream struct {
	leaves      []domain.Leave
	pending     []domain.Leave
	submissions []domain.TimesheetSubmission
	attendance  []domain.AttendanceReport
	balances    map[string]int
	badge       int

	approvedLeaves  []string
	rejectedLeaves  []string
	notifyApprovals []string
	notifyRejects   []string
	notifyErr       error
	decidedBy       []string
	tsApproved      []string
	tsRejected      []string
	attApproved     []string
	attRejected     []string
	balanceSets     map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{balances: map[string]int{}, balanceSets: map[string]int{}}
}

func (f *fakeUpstream) Leaves(_ context.Context, _ string) ([]domain.Leave, error) {
	return f.leaves, nil
}

func (f *fakeUpstream) PendingLeaves(_ context.Context) ([]domain.Leave, error) {
	return f.pending, nil
}

func (f *fakeUpstream) ApproveLeave(_ context.Context, id, decidedBy string) error {
	f.approvedLeaves = append(f.approvedLeaves, id)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func (f *fakeUpstream) RejectLeave(_ context.Context, id, decidedBy, _ string) error {
	f.rejectedLeaves = append(f.rejectedLeaves, id)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func (f *fakeUpstream) NotifyLeaveApproval(_ context.Context, id, _, _ string) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifyApprovals = append(f.notifyApprovals, id)
	return nil
}

func (f *fakeUpstream) NotifyLeaveRejection(_ context.Context, id, _, _, _ string) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifyRejects = append(f.notifyRejects, id)
	return nil
}

func (f *fakeUpstream) PendingBadge(_ context.Context, _ string) (int, error) {
	return f.badge, nil
}

func (f *fakeUpstream) CompOffBalance(_ context.Context, employeeID string) (int, error) {
	return f.balances[employeeID], nil
}

func (f *fakeUpstream) SetCompOffBalance(_ context.Context, employeeID string, balance int) error {
	f.balances[employeeID] = balance
	f.balanceSets[employeeID] = balance
	return nil
}

func (f *fakeUpstream) TimesheetSubmissions(_ context.Context, employeeID string, status domain.SubmissionStatus) ([]domain.TimesheetSubmission, error) {
	var out []domain.TimesheetSubmission
	for _, s := range f.submissions {
		if employeeID != "" && s.EmployeeID != employeeID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeUpstream) ApproveTimesheetSubmission(_ context.Context, id, decidedBy string) error {
	f.tsApproved = append(f.tsApproved, id)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func (f *fakeUpstream) RejectTimesheetSubmission(_ context.Context, id, decidedBy, _ string) error {
	f.tsRejected = append(f.tsRejected, id)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func (f *fakeUpstream) AttendanceSubmissions(_ context.Context, status string) ([]domain.AttendanceReport, error) {
	var out []domain.AttendanceReport
	for _, r := range f.attendance {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeUpstream) ApproveAttendance(_ context.Context, markerID, decidedBy string) error {
	f.attApproved = append(f.attApproved, markerID)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func (f *fakeUpstream) RejectAttendance(_ context.Context, markerID, decidedBy string) error {
	f.attRejected = append(f.attRejected, markerID)
	f.decidedBy = append(f.decidedBy, decidedBy)
	return nil
}

func newController(t *testing.T, upstream Upstream) *Controller {
	t.Helper()
	durable, err := store.OpenDurable(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return NewController(upstream, durable, cache.New(nil))
}

func adminUser() *domain.User {
	return &domain.User{ID: "EMP001", Name: "Asha", Roles: domain.RoleFlags{Admin: true}}
}

func plainUser() *domain.User {
	return &domain.User{ID: "EMP010", Name: "Ravi"}
}

func TestLoadLeavesTabs(t *testing.T) {
	up := newFakeUpstream()
	up.pending = []domain.Leave{
		{ID: "l1", AppliedAt: "2025-01-02T10:00:00Z", Status: "Pending"},
		{ID: "l2", AppliedAt: "2025-01-05T10:00:00Z", Status: "Pending"},
	}
	up.leaves = []domain.Leave{
		{ID: "l3", AppliedAt: "2025-01-01T10:00:00Z", Status: "Approved"},
		{ID: "l4", AppliedAt: "2025-01-03T10:00:00Z", Status: "Pending"},
	}
	ctl := newController(t, up)

	awaiting, err := ctl.LoadLeaves(context.Background(), adminUser(), TabAwaitingApproval)
	require.NoError(t, err)
	require.Len(t, awaiting, 2)
	assert.Equal(t, "l2", awaiting[0].ID)

	_, err = ctl.LoadLeaves(context.Background(), plainUser(), TabAwaitingApproval)
	assert.ErrorIs(t, err, ErrNotAdmin)

	mine, err := ctl.LoadLeaves(context.Background(), plainUser(), TabMyRequests)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "l4", mine[0].ID)

	done, err := ctl.LoadLeaves(context.Background(), plainUser(), TabCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "l3", done[0].ID)
}

func TestApproveLeaveAttributesAndNotifies(t *testing.T) {
	up := newFakeUpstream()
	ctl := newController(t, up)
	leave := domain.Leave{ID: "l1", EmployeeID: "EMP010", Type: "Casual"}

	require.NoError(t, ctl.ApproveLeave(context.Background(), adminUser(), leave))
	assert.Equal(t, []string{"l1"}, up.approvedLeaves)
	assert.Equal(t, []string{"EMP001"}, up.decidedBy)
	assert.Equal(t, []string{"l1"}, up.notifyApprovals)

	assert.ErrorIs(t, ctl.ApproveLeave(context.Background(), plainUser(), leave), ErrNotAdmin)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	up := newFakeUpstream()
	up.notifyErr = errors.New("smtp down")
	ctl := newController(t, up)

	err := ctl.RejectLeave(context.Background(), adminUser(), domain.Leave{ID: "l1", EmployeeID: "EMP010"}, "overlap")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, up.rejectedLeaves)
	assert.Empty(t, up.notifyRejects)
}

func TestLoadTimesheetsTabs(t *testing.T) {
	up := newFakeUpstream()
	up.submissions = []domain.TimesheetSubmission{
		{ID: "s1", EmployeeID: "EMP010", Status: domain.SubmissionPending, SubmittedAt: "2025-01-02T08:00:00Z"},
		{ID: "s2", EmployeeID: "EMP010", Status: domain.SubmissionApproved, SubmittedAt: "2025-01-04T08:00:00Z"},
		{ID: "s3", EmployeeID: "EMP011", Status: domain.SubmissionPending, SubmittedAt: "2025-01-05T08:00:00Z"},
	}
	ctl := newController(t, up)

	awaiting, err := ctl.LoadTimesheets(context.Background(), adminUser(), TabAwaitingApproval)
	require.NoError(t, err)
	require.Len(t, awaiting, 2)
	assert.Equal(t, "s3", awaiting[0].ID)

	mine, err := ctl.LoadTimesheets(context.Background(), plainUser(), TabMyRequests)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s1", mine[0].ID)

	done, err := ctl.LoadTimesheets(context.Background(), plainUser(), TabCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "s2", done[0].ID)
}

func TestAttendanceDecisions(t *testing.T) {
	up := newFakeUpstream()
	up.attendance = []domain.AttendanceReport{
		{MarkerID: "m1", EmployeeID: "EMP010", Status: "Pending", SubmitTime: "2025-01-02T08:00:00Z"},
		{MarkerID: "m2", EmployeeID: "EMP011", Status: "Pending", SubmitTime: "2025-01-03T08:00:00Z"},
	}
	ctl := newController(t, up)

	awaiting, err := ctl.LoadAttendance(context.Background(), adminUser(), TabAwaitingApproval)
	require.NoError(t, err)
	require.Len(t, awaiting, 2)
	assert.Equal(t, "m2", awaiting[0].MarkerID)

	require.NoError(t, ctl.ApproveAttendance(context.Background(), adminUser(), "m1"))
	require.NoError(t, ctl.RejectAttendance(context.Background(), adminUser(), "m2"))
	assert.Equal(t, []string{"m1"}, up.attApproved)
	assert.Equal(t, []string{"m2"}, up.attRejected)
}

func TestCompOffLifecycle(t *testing.T) {
	up := newFakeUpstream()
	up.balances["EMP010"] = 2
	ctl := newController(t, up)

	req, err := ctl.RequestCompOff(plainUser(), "2025-01-04", "weekend release")
	require.NoError(t, err)
	assert.Equal(t, "EMP010", req.EmployeeID)
	assert.Equal(t, "Pending", req.Status)

	_, err = ctl.RequestCompOff(plainUser(), "", "no date")
	assert.ErrorIs(t, err, ErrMissingWorkDate)

	mine, err := ctl.LoadCompOff(plainUser(), TabMyRequests)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, ctl.GrantCompOff(context.Background(), adminUser(), req.ID))
	assert.Equal(t, 3, up.balances["EMP010"])

	done, err := ctl.LoadCompOff(plainUser(), TabCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Approved", done[0].Status)
	assert.Equal(t, "EMP001", done[0].DecidedBy)

	assert.ErrorIs(t, ctl.GrantCompOff(context.Background(), adminUser(), req.ID), ErrAlreadyDecided)
	assert.Equal(t, 3, up.balances["EMP010"])
	assert.ErrorIs(t, ctl.GrantCompOff(context.Background(), adminUser(), "nope"), ErrUnknownRequest)
	assert.ErrorIs(t, ctl.GrantCompOff(context.Background(), plainUser(), req.ID), ErrNotAdmin)
}

func TestRejectCompOffLeavesBalanceAlone(t *testing.T) {
	up := newFakeUpstream()
	up.balances["EMP010"] = 2
	ctl := newController(t, up)

	req, err := ctl.RequestCompOff(plainUser(), "2025-01-04", "weekend release")
	require.NoError(t, err)
	require.NoError(t, ctl.RejectCompOff(adminUser(), req.ID))
	assert.Equal(t, 2, up.balances["EMP010"])
	assert.Empty(t, up.balanceSets)

	done, err := ctl.LoadCompOff(plainUser(), TabCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Rejected", done[0].Status)
}

func TestBadgeCountsAdminCompOff(t *testing.T) {
	up := newFakeUpstream()
	up.badge = 2
	ctl := newController(t, up)
	_, err := ctl.RequestCompOff(plainUser(), "2025-01-04", "release")
	require.NoError(t, err)

	count, err := ctl.Badge(context.Background(), adminUser())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = ctl.Badge(context.Background(), plainUser())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
