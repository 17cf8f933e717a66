package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/metrics"
)

var (
	ErrNoParticipants = errors.New("no participants selected")
	ErrCallInFlight   = errors.New("a call is already being started")
)

// ParticipantState is one participant's status inside a push update.
type ParticipantState struct {
	EmployeeID string `json:"employeeId"`
	Email      string `json:"email"`
	Status     string `json:"status"`
}

// ParticipantUpdate is the server-push payload for a live call.
type ParticipantUpdate struct {
	CallID       string             `json:"callId"`
	Participants []ParticipantState `json:"participants"`
}

// PushChannel delivers participant updates and carries the cancel emit.
type PushChannel interface {
	Subscribe(ctx context.Context, callID string, handler func(ParticipantUpdate)) (detach func(), err error)
	EmitCancel(callID, adminID string) error
}

// RingTone is whatever plays while participants are ringing. Stop must be
// safe to call repeatedly.
type RingTone interface {
	Play()
	Stop()
}

type noTone struct{}

func (noTone) Play() {}
func (noTone) Stop() {}

// Meeter is the slice of the HR API the dispatcher calls.
type Meeter interface {
	StartMeet(ctx context.Context, req api.MeetRequest) (*api.MeetResponse, error)
}

// CallSummary is the modal's headline state.
type CallSummary string

const (
	SummaryIdle     CallSummary = "Idle"
	SummaryRinging  CallSummary = "Ringing"
	SummaryComplete CallSummary = "Complete"
)

// Call is the client-local view of a live call.
type Call struct {
	ID        string
	MeetURL   string
	AdminID   string
	Decisions map[string]domain.ParticipantStatus
}

// CallOptions shape the meeting-create request.
type CallOptions struct {
	Title        string
	Description  string
	AudienceType string
	ProjectID    string
	Start        *time.Time
	End          *time.Time
	Timezone     string
}

// Dispatcher assembles the participant set and drives a call from create
// through ring/accept/decline to resolution or cancel. A participant stays in
// the directory exactly as long as its source set is non-empty.
type Dispatcher struct {
	upstream Meeter
	push     PushChannel
	tone     RingTone
	metrics  *metrics.Collector

	mu        sync.Mutex
	directory map[string]*domain.Participant
	projects  map[string][]string
	call      *Call
	detach    func()
	starting  bool
}

func NewDispatcher(upstream Meeter, push PushChannel, tone RingTone, collector *metrics.Collector) *Dispatcher {
	if tone == nil {
		tone = noTone{}
	}
	return &Dispatcher{
		upstream:  upstream,
		push:      push,
		tone:      tone,
		metrics:   collector,
		directory: make(map[string]*domain.Participant),
		projects:  make(map[string][]string),
	}
}

func manualSource(id string) string { return "manual:" + id }

func projectSource(pid string) string { return "project:" + pid }

func emailKey(email string) string { return "email:" + strings.ToLower(email) }

// AddMember adds a hand-picked participant.
func (d *Dispatcher) AddMember(emp domain.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(emp, manualSource(emp.ID))
}

// RemoveMember drops the manual source; the participant survives only if a
// project still references them.
func (d *Dispatcher) RemoveMember(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeSourceLocked(id, manualSource(id))
}

// AddEmailInvitee registers a participant known only by email, keyed on a
// synthesised placeholder id.
func (d *Dispatcher) AddEmailInvitee(email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := emailKey(email)
	d.addLocked(domain.Employee{ID: key, Name: email, Email: email}, manualSource(key))
}

// AddProject adds every contributor of a project roster under the project's
// source key.
func (d *Dispatcher) AddProject(projectID string, contributors []domain.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(contributors))
	for _, emp := range contributors {
		d.addLocked(emp, projectSource(projectID))
		ids = append(ids, emp.ID)
	}
	d.projects[projectID] = ids
}

// RemoveProject removes exactly the project's source from every contributor;
// participants whose source sets empty out are dropped.
func (d *Dispatcher) RemoveProject(projectID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.projects[projectID] {
		d.removeSourceLocked(id, projectSource(projectID))
	}
	delete(d.projects, projectID)
}

func (d *Dispatcher) addLocked(emp domain.Employee, source string) {
	p, ok := d.directory[emp.ID]
	if !ok {
		p = &domain.Participant{
			ID:          emp.ID,
			Name:        emp.Name,
			Email:       emp.Email,
			Designation: emp.Designation,
			Sources:     make(map[string]bool),
		}
		d.directory[emp.ID] = p
	}
	p.Sources[source] = true
}

func (d *Dispatcher) removeSourceLocked(id, source string) {
	p, ok := d.directory[id]
	if !ok {
		return
	}
	delete(p.Sources, source)
	if len(p.Sources) == 0 {
		delete(d.directory, id)
	}
}

// Participants lists the live directory, sorted by id.
func (d *Dispatcher) Participants() []domain.Participant {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Participant, 0, len(d.directory))
	for _, p := range d.directory {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StartCall creates the meeting and subscribes to participant updates. The
// returned call starts with every participant Ringing.
func (d *Dispatcher) StartCall(ctx context.Context, admin *domain.User, opts CallOptions) (*Call, error) {
	d.mu.Lock()
	if d.starting {
		d.mu.Unlock()
		return nil, ErrCallInFlight
	}
	if len(d.directory) == 0 {
		d.mu.Unlock()
		return nil, ErrNoParticipants
	}
	d.starting = true
	ids := make([]string, 0, len(d.directory))
	emails := make([]string, 0, len(d.directory))
	for _, p := range d.directory {
		ids = append(ids, p.ID)
		if p.Email != "" {
			emails = append(emails, p.Email)
		}
	}
	sort.Strings(ids)
	sort.Strings(emails)
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.starting = false
		d.mu.Unlock()
	}()

	req := api.MeetRequest{
		Title:          opts.Title,
		Description:    opts.Description,
		AudienceType:   opts.AudienceType,
		EmployeeIDs:    ids,
		EmployeeEmails: emails,
		ProjectID:      opts.ProjectID,
		Timezone:       opts.Timezone,
		AdminID:        admin.ID,
	}
	if opts.Start != nil {
		req.StartTime = opts.Start.UTC().Format(time.RFC3339)
	}
	if opts.End != nil {
		req.EndTime = opts.End.UTC().Format(time.RFC3339)
	}

	resp, err := d.upstream.StartMeet(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start meet: %w", err)
	}

	call := &Call{
		ID:        resp.CallID,
		MeetURL:   resp.MeetURL,
		AdminID:   admin.ID,
		Decisions: make(map[string]domain.ParticipantStatus, len(ids)),
	}
	for _, id := range ids {
		call.Decisions[id] = domain.ParticipantRinging
	}

	detach := func() {}
	if d.push != nil {
		detach, err = d.push.Subscribe(ctx, call.ID, d.HandleUpdate)
		if err != nil {
			slog.Warn("participant update subscription failed", "call", call.ID, "err", err)
			detach = func() {}
		}
	}

	d.mu.Lock()
	d.call = call
	d.detach = detach
	d.mu.Unlock()

	d.tone.Play()
	d.metrics.RecordCallStarted()
	return call, nil
}

// HandleUpdate folds a push update into the decision map. Accepted and
// Declined are terminal; a later Ringing for the same participant is ignored.
func (d *Dispatcher) HandleUpdate(update ParticipantUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.call == nil || update.CallID != d.call.ID {
		return
	}
	for _, state := range update.Participants {
		id := state.EmployeeID
		switch {
		case strings.HasPrefix(strings.ToLower(id), "email:"):
			id = strings.ToLower(id)
		case id != "":
			id = domain.NormalizeEmployeeID(id)
		case state.Email != "":
			id = emailKey(state.Email)
		}
		current := d.call.Decisions[id]
		if current == domain.ParticipantAccepted || current == domain.ParticipantDeclined {
			continue
		}
		switch domain.ParticipantStatus(state.Status) {
		case domain.ParticipantAccepted:
			d.call.Decisions[id] = domain.ParticipantAccepted
		case domain.ParticipantDeclined:
			d.call.Decisions[id] = domain.ParticipantDeclined
		default:
			d.call.Decisions[id] = domain.ParticipantRinging
		}
	}
	if d.summaryLocked() == SummaryComplete {
		d.tone.Stop()
	}
}

// Summary reports the modal's state.
func (d *Dispatcher) Summary() CallSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summaryLocked()
}

func (d *Dispatcher) summaryLocked() CallSummary {
	if d.call == nil {
		return SummaryIdle
	}
	for _, status := range d.call.Decisions {
		if status == domain.ParticipantRinging {
			return SummaryRinging
		}
	}
	return SummaryComplete
}

// Decisions copies the current decision map.
func (d *Dispatcher) Decisions() map[string]domain.ParticipantStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.call == nil {
		return nil
	}
	out := make(map[string]domain.ParticipantStatus, len(d.call.Decisions))
	for id, status := range d.call.Decisions {
		out[id] = status
	}
	return out
}

// Cancel emits call:cancel and closes the modal state. Cancelling with no
// live call is a no-op.
func (d *Dispatcher) Cancel() error {
	d.mu.Lock()
	call := d.call
	d.mu.Unlock()
	if call == nil {
		return nil
	}
	if d.push != nil {
		if err := d.push.EmitCancel(call.ID, call.AdminID); err != nil {
			// The server tolerates cancels for unknown calls; so do we.
			slog.Warn("call cancel emit failed", "call", call.ID, "err", err)
		}
	}
	d.metrics.RecordCallCancelled()
	d.Cleanup()
	return nil
}

// Cleanup stops the ring tone, detaches the push handler, and clears the
// call. The router invokes it on every navigation away; repeated calls are
// no-ops.
func (d *Dispatcher) Cleanup() {
	d.mu.Lock()
	detach := d.detach
	d.detach = nil
	d.call = nil
	d.mu.Unlock()

	d.tone.Stop()
	if detach != nil {
		detach()
	}
}
