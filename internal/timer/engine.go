package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/metrics"
	"github.com/vtabsquare/officetool/internal/store"
)

const (
	activeKeyPrefix = "tt_active_"
	accumKeyPrefix  = "tt_accum_"
	manualTasksKey  = "tt_manual_tasks_v1"
	lastLogKey      = "tt_last_log"
)

// Upstream is the slice of the HR API the engine flushes through.
type Upstream interface {
	UpsertTaskLog(ctx context.Context, upsert api.TaskLogUpsert) error
	SetTaskStatus(ctx context.Context, guid string, status domain.TaskStatus) error
	StartTimeEntry(ctx context.Context, taskGUID, userID string) error
	StopTimeEntry(ctx context.Context, taskGUID, userID string) error
}

// Engine manages the single active task timer per user. Every transition
// writes the durable accumulator and active-timer record before any network
// call, so a crash or failed flush never loses locally-committed seconds.
type Engine struct {
	durable  *store.Durable
	scratch  *store.Scratch
	upstream Upstream
	metrics  *metrics.Collector
	now      func() time.Time
	sleep    func(time.Duration)
	retries  int
}

func NewEngine(durable *store.Durable, scratch *store.Scratch, upstream Upstream, collector *metrics.Collector) *Engine {
	return &Engine{
		durable:  durable,
		scratch:  scratch,
		upstream: upstream,
		metrics:  collector,
		now:      time.Now,
		sleep:    time.Sleep,
		retries:  3,
	}
}

func activeKey(userID string) string {
	return activeKeyPrefix + userID
}

func accumKey(userID, taskGUID, date string) string {
	return fmt.Sprintf("%s%s_%s_%s", accumKeyPrefix, userID, taskGUID, date)
}

// Active returns the user's current timer, nil when idle.
func (e *Engine) Active(userID string) (*domain.ActiveTimer, error) {
	var timer domain.ActiveTimer
	ok, err := e.durable.Get(activeKey(userID), &timer)
	if err != nil || !ok {
		return nil, err
	}
	return &timer, nil
}

// Accumulated returns the durable per-task seconds for one local date.
func (e *Engine) Accumulated(userID, taskGUID, date string) int64 {
	var seconds int64
	if ok, err := e.durable.Get(accumKey(userID, taskGUID, date), &seconds); err != nil || !ok {
		return 0
	}
	return seconds
}

// Elapsed is the display value for a timer: committed seconds plus the live
// session. The 1 Hz tick reads this; it never mutates engine state.
func (e *Engine) Elapsed(timer *domain.ActiveTimer) int64 {
	if timer == nil {
		return 0
	}
	if timer.Running() {
		return timer.Accumulated + int64(e.now().Sub(*timer.StartedAt).Seconds())
	}
	return timer.Accumulated
}

// Toggle drives the state machine for task:
//
//	idle            -> running(task), seeded from today's accumulator
//	running(task)   -> paused(task), committed and flushed
//	paused(task)    -> running(task)
//	running(other)  -> other stopped and flushed, then running(task)
func (e *Engine) Toggle(ctx context.Context, user *domain.User, task domain.Task) (*domain.ActiveTimer, error) {
	current, err := e.Active(user.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case current == nil:
		return e.start(ctx, user, task)
	case current.TaskGUID == task.GUID && current.Running():
		return e.pause(ctx, user, current)
	case current.TaskGUID == task.GUID:
		return e.resume(ctx, user, current)
	default:
		if _, err := e.stopTimer(ctx, user, current); err != nil {
			return nil, err
		}
		return e.start(ctx, user, task)
	}
}

// Stop pauses with flush and clears the active timer.
func (e *Engine) Stop(ctx context.Context, user *domain.User) error {
	current, err := e.Active(user.ID)
	if err != nil || current == nil {
		return err
	}
	_, err = e.stopTimer(ctx, user, current)
	return err
}

func (e *Engine) start(ctx context.Context, user *domain.User, task domain.Task) (*domain.ActiveTimer, error) {
	now := e.now()
	timer := &domain.ActiveTimer{
		TaskGUID:    task.GUID,
		TaskID:      task.HumanID,
		TaskName:    task.Name,
		ProjectID:   task.ProjectID,
		StartedAt:   &now,
		Accumulated: e.Accumulated(user.ID, task.GUID, domain.LocalDate(now)),
	}
	if err := e.durable.Set(activeKey(user.ID), timer); err != nil {
		return nil, err
	}
	e.setTimerGauge()

	// Best-effort status and start markers; local state already committed.
	if err := e.upstream.SetTaskStatus(ctx, task.GUID, domain.TaskInProgress); err != nil {
		slog.Warn("task status update failed", "task", task.GUID, "err", err)
	}
	if err := e.upstream.StartTimeEntry(ctx, task.GUID, user.ID); err != nil {
		slog.Warn("time entry start failed", "task", task.GUID, "err", err)
	}
	return timer, nil
}

func (e *Engine) resume(ctx context.Context, user *domain.User, timer *domain.ActiveTimer) (*domain.ActiveTimer, error) {
	now := e.now()
	timer.StartedAt = &now
	timer.Paused = false
	if err := e.durable.Set(activeKey(user.ID), timer); err != nil {
		return nil, err
	}
	e.setTimerGauge()
	if err := e.upstream.SetTaskStatus(ctx, timer.TaskGUID, domain.TaskInProgress); err != nil {
		slog.Warn("task status update failed", "task", timer.TaskGUID, "err", err)
	}
	return timer, nil
}

func (e *Engine) pause(ctx context.Context, user *domain.User, timer *domain.ActiveTimer) (*domain.ActiveTimer, error) {
	sessionStart, workDate := e.commit(user, timer)
	timer.Paused = true
	timer.StartedAt = nil
	if err := e.durable.Set(activeKey(user.ID), timer); err != nil {
		return nil, err
	}
	e.setTimerGauge()
	e.flush(ctx, user, timer, sessionStart, workDate)
	return timer, nil
}

func (e *Engine) stopTimer(ctx context.Context, user *domain.User, timer *domain.ActiveTimer) (*domain.ActiveTimer, error) {
	var sessionStart time.Time
	workDate := domain.LocalDate(e.now())
	if timer.Running() {
		sessionStart, workDate = e.commit(user, timer)
	}
	if err := e.durable.Delete(activeKey(user.ID)); err != nil {
		return nil, err
	}
	e.setTimerGauge()
	if timer.Accumulated > 0 || !sessionStart.IsZero() {
		e.flush(ctx, user, timer, sessionStart, workDate)
	}
	if err := e.upstream.StopTimeEntry(ctx, timer.TaskGUID, user.ID); err != nil {
		slog.Warn("time entry stop failed", "task", timer.TaskGUID, "err", err)
	}
	return nil, nil
}

// commit folds the live session into the timer and the durable accumulator.
// It returns the session start and the local work date of the commit.
func (e *Engine) commit(user *domain.User, timer *domain.ActiveTimer) (time.Time, string) {
	now := e.now()
	sessionStart := now
	if timer.StartedAt != nil {
		sessionStart = *timer.StartedAt
	}
	delta := int64(now.Sub(sessionStart).Seconds())
	if delta < 0 {
		delta = 0
	}
	timer.Accumulated += delta

	workDate := domain.LocalDate(now)
	if err := e.durable.Set(accumKey(user.ID, timer.TaskGUID, workDate), timer.Accumulated); err != nil {
		slog.Error("accumulator write failed", "task", timer.TaskGUID, "err", err)
	}
	return sessionStart, workDate
}

// flush upserts the day's cumulative seconds, retrying with exponential
// backoff. A final failure leaves the accumulator intact; the next
// transition re-flushes the same key.
func (e *Engine) flush(ctx context.Context, user *domain.User, timer *domain.ActiveTimer, sessionStart time.Time, workDate string) {
	seconds := timer.Accumulated
	if seconds <= 0 {
		// No accumulated work: nothing worth upserting.
		return
	}
	now := e.now()
	if sessionStart.IsZero() {
		sessionStart = now
	}

	upsert := api.TaskLogUpsert{
		EmployeeID:      user.ID,
		ProjectID:       timer.ProjectID,
		TaskGUID:        timer.TaskGUID,
		TaskID:          timer.TaskID,
		TaskName:        timer.TaskName,
		Seconds:         seconds,
		WorkDate:        workDate,
		SessionStartMS:  sessionStart.UnixMilli(),
		SessionEndMS:    now.UnixMilli(),
		TZOffsetMinutes: domain.TZOffsetMinutes(now),
	}

	delay := 250 * time.Millisecond
	var err error
	for attempt := 0; attempt < e.retries; attempt++ {
		e.metrics.RecordFlushAttempt()
		if err = e.upstream.UpsertTaskLog(ctx, upsert); err == nil {
			e.scratch.Set(lastLogKey, upsert)
			return
		}
		if attempt < e.retries-1 {
			e.sleep(delay)
			delay *= 2
		}
	}
	e.metrics.RecordFlushFailure()
	slog.Warn("task log flush failed, accumulator retained",
		"task", timer.TaskGUID, "work_date", workDate, "seconds", seconds, "err", err)
}

func (e *Engine) setTimerGauge() {
	running := 0
	for _, key := range e.durable.Keys(activeKeyPrefix) {
		var timer domain.ActiveTimer
		if ok, _ := e.durable.Get(key, &timer); ok && timer.Running() {
			running++
		}
	}
	e.metrics.SetActiveTimers(running)
}

// ManualTasks lists the user-authored tasks kept alongside assigned ones.
func (e *Engine) ManualTasks() []domain.Task {
	var tasks []domain.Task
	if ok, err := e.durable.Get(manualTasksKey, &tasks); err != nil || !ok {
		return nil
	}
	return tasks
}

// AddManualTask persists a user-authored task, assigning it a guid.
func (e *Engine) AddManualTask(task domain.Task) (domain.Task, error) {
	if task.GUID == "" {
		task.GUID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.TaskNew
	}
	tasks := append(e.ManualTasks(), task)
	return task, e.durable.Set(manualTasksKey, tasks)
}

// RemoveManualTask drops a user-authored task by guid.
func (e *Engine) RemoveManualTask(guid string) error {
	tasks := e.ManualTasks()
	kept := tasks[:0]
	for _, task := range tasks {
		if task.GUID != guid {
			kept = append(kept, task)
		}
	}
	return e.durable.Set(manualTasksKey, kept)
}
