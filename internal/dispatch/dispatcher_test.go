package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/domain"
)

type fakeMeeter struct {
	req  *api.MeetRequest
	err  error
	resp api.MeetResponse
}

func (f *fakeMeeter) StartMeet(_ context.Context, req api.MeetRequest) (*api.MeetResponse, error) {
	f.req = &req
	if f.err != nil {
		return nil, f.err
	}
	resp := f.resp
	return &resp, nil
}

type fakePush struct {
	mu        sync.Mutex
	handler   func(ParticipantUpdate)
	detaches  int
	cancels   []cancelPayload
	failEmit  bool
	subscribe int
}

func (f *fakePush) Subscribe(_ context.Context, _ string, handler func(ParticipantUpdate)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.subscribe++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.detaches++
	}, nil
}

func (f *fakePush) EmitCancel(callID, adminID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEmit {
		return errors.New("gone")
	}
	f.cancels = append(f.cancels, cancelPayload{CallID: callID, AdminID: adminID})
	return nil
}

type fakeTone struct {
	mu    sync.Mutex
	plays int
	stops int
}

func (f *fakeTone) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
}

func (f *fakeTone) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func admin() *domain.User {
	return &domain.User{ID: "EMP001", Name: "Asha", Roles: domain.RoleFlags{Admin: true}}
}

func emp(id, name string) domain.Employee {
	return domain.Employee{ID: id, Name: name, Email: id + "@example.com"}
}

func TestParticipantSourceSets(t *testing.T) {
	d := NewDispatcher(&fakeMeeter{}, nil, nil, nil)

	d.AddMember(emp("EMP010", "Ravi"))
	d.AddProject("P1", []domain.Employee{emp("EMP010", "Ravi"), emp("EMP011", "Mina")})

	got := d.Participants()
	require.Len(t, got, 2)
	assert.Equal(t, "EMP010", got[0].ID)
	assert.True(t, got[0].Sources["manual:EMP010"])
	assert.True(t, got[0].Sources["project:P1"])

	d.RemoveProject("P1")
	got = d.Participants()
	require.Len(t, got, 1)
	assert.Equal(t, "EMP010", got[0].ID)
	assert.False(t, got[0].Sources["project:P1"])

	d.RemoveMember("EMP010")
	assert.Empty(t, d.Participants())

	// removals with no matching source are no-ops
	d.RemoveMember("EMP010")
	d.RemoveProject("P1")
	assert.Empty(t, d.Participants())
}

func TestRemoveProjectKeepsOtherProjectSource(t *testing.T) {
	d := NewDispatcher(&fakeMeeter{}, nil, nil, nil)
	d.AddProject("P1", []domain.Employee{emp("EMP010", "Ravi")})
	d.AddProject("P2", []domain.Employee{emp("EMP010", "Ravi")})

	d.RemoveProject("P1")
	got := d.Participants()
	require.Len(t, got, 1)
	assert.True(t, got[0].Sources["project:P2"])
}

func TestEmailInviteePlaceholder(t *testing.T) {
	d := NewDispatcher(&fakeMeeter{}, nil, nil, nil)
	d.AddEmailInvitee("Guest@Example.com")
	d.AddEmailInvitee("  ")

	got := d.Participants()
	require.Len(t, got, 1)
	assert.Equal(t, "email:guest@example.com", got[0].ID)
	assert.Equal(t, "Guest@Example.com", got[0].Email)
}

func TestStartCallRejectsEmptySelection(t *testing.T) {
	d := NewDispatcher(&fakeMeeter{}, nil, nil, nil)
	_, err := d.StartCall(context.Background(), admin(), CallOptions{Title: "standup"})
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestStartCallRingsEveryone(t *testing.T) {
	meeter := &fakeMeeter{resp: api.MeetResponse{CallID: "c1", MeetURL: "https://meet/x"}}
	push := &fakePush{}
	tone := &fakeTone{}
	d := NewDispatcher(meeter, push, tone, nil)
	d.AddMember(emp("EMP010", "Ravi"))
	d.AddMember(emp("EMP011", "Mina"))

	call, err := d.StartCall(context.Background(), admin(), CallOptions{Title: "standup", Timezone: "Asia/Kolkata"})
	require.NoError(t, err)
	assert.Equal(t, "c1", call.ID)
	assert.Equal(t, "https://meet/x", call.MeetURL)
	assert.Equal(t, []string{"EMP010", "EMP011"}, meeter.req.EmployeeIDs)
	assert.Equal(t, "EMP001", meeter.req.AdminID)
	assert.Equal(t, 1, push.subscribe)
	assert.Equal(t, 1, tone.plays)

	assert.Equal(t, SummaryRinging, d.Summary())
	decisions := d.Decisions()
	assert.Equal(t, domain.ParticipantRinging, decisions["EMP010"])
	assert.Equal(t, domain.ParticipantRinging, decisions["EMP011"])
}

func TestStartCallUpstreamFailureClearsGuard(t *testing.T) {
	meeter := &fakeMeeter{err: errors.New("502")}
	d := NewDispatcher(meeter, nil, nil, nil)
	d.AddMember(emp("EMP010", "Ravi"))

	_, err := d.StartCall(context.Background(), admin(), CallOptions{})
	require.Error(t, err)
	assert.Equal(t, SummaryIdle, d.Summary())

	meeter.err = nil
	meeter.resp = api.MeetResponse{CallID: "c2", MeetURL: "https://meet/y"}
	_, err = d.StartCall(context.Background(), admin(), CallOptions{})
	assert.NoError(t, err)
}

func TestUpdatesAreTerminal(t *testing.T) {
	meeter := &fakeMeeter{resp: api.MeetResponse{CallID: "c1"}}
	push := &fakePush{}
	d := NewDispatcher(meeter, push, nil, nil)
	d.AddMember(emp("EMP010", "Ravi"))
	d.AddMember(emp("EMP011", "Mina"))
	_, err := d.StartCall(context.Background(), admin(), CallOptions{})
	require.NoError(t, err)

	push.handler(ParticipantUpdate{CallID: "c1", Participants: []ParticipantState{
		{EmployeeID: "EMP010", Status: "Accepted"},
	}})
	assert.Equal(t, domain.ParticipantAccepted, d.Decisions()["EMP010"])
	assert.Equal(t, SummaryRinging, d.Summary())

	// a later Ringing cannot demote a terminal decision
	push.handler(ParticipantUpdate{CallID: "c1", Participants: []ParticipantState{
		{EmployeeID: "EMP010", Status: "Ringing"},
		{EmployeeID: "EMP011", Status: "Declined"},
	}})
	assert.Equal(t, domain.ParticipantAccepted, d.Decisions()["EMP010"])
	assert.Equal(t, domain.ParticipantDeclined, d.Decisions()["EMP011"])
	assert.Equal(t, SummaryComplete, d.Summary())

	// updates for some other call are ignored
	push.handler(ParticipantUpdate{CallID: "other", Participants: []ParticipantState{
		{EmployeeID: "EMP010", Status: "Declined"},
	}})
	assert.Equal(t, domain.ParticipantAccepted, d.Decisions()["EMP010"])
}

func TestCancelEmitsAndCleansUp(t *testing.T) {
	meeter := &fakeMeeter{resp: api.MeetResponse{CallID: "c1"}}
	push := &fakePush{}
	tone := &fakeTone{}
	d := NewDispatcher(meeter, push, tone, nil)
	d.AddMember(emp("EMP010", "Ravi"))
	d.AddMember(emp("EMP011", "Mina"))
	_, err := d.StartCall(context.Background(), admin(), CallOptions{})
	require.NoError(t, err)

	push.handler(ParticipantUpdate{CallID: "c1", Participants: []ParticipantState{
		{EmployeeID: "EMP010", Status: "Accepted"},
	}})

	require.NoError(t, d.Cancel())
	require.Len(t, push.cancels, 1)
	assert.Equal(t, "c1", push.cancels[0].CallID)
	assert.Equal(t, "EMP001", push.cancels[0].AdminID)
	assert.Equal(t, 1, push.detaches)
	assert.GreaterOrEqual(t, tone.stops, 1)
	assert.Equal(t, SummaryIdle, d.Summary())

	// cancel with no live call is a no-op
	require.NoError(t, d.Cancel())
	assert.Len(t, push.cancels, 1)
}

func TestCleanupIsIdempotent(t *testing.T) {
	meeter := &fakeMeeter{resp: api.MeetResponse{CallID: "c1"}}
	push := &fakePush{}
	tone := &fakeTone{}
	d := NewDispatcher(meeter, push, tone, nil)
	d.AddMember(emp("EMP010", "Ravi"))
	_, err := d.StartCall(context.Background(), admin(), CallOptions{})
	require.NoError(t, err)

	d.Cleanup()
	d.Cleanup()
	assert.Equal(t, 1, push.detaches)
	assert.Nil(t, d.Decisions())
}

func TestCancelSurvivesEmitFailure(t *testing.T) {
	meeter := &fakeMeeter{resp: api.MeetResponse{CallID: "c1"}}
	push := &fakePush{failEmit: true}
	d := NewDispatcher(meeter, push, nil, nil)
	d.AddMember(emp("EMP010", "Ravi"))
	_, err := d.StartCall(context.Background(), admin(), CallOptions{})
	require.NoError(t, err)

	require.NoError(t, d.Cancel())
	assert.Equal(t, SummaryIdle, d.Summary())
	assert.Equal(t, 1, push.detaches)
}
