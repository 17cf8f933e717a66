package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vtabsquare/officetool/internal/api"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/store"
)

// Upstream is the slice of the HR API the aggregator reads and submits
// through.
type Upstream interface {
	Logs(ctx context.Context, employeeID, startDate, endDate string) ([]domain.TimesheetLog, error)
	SubmitTimesheet(ctx context.Context, employeeID, employeeName string, entries []domain.SubmissionEntry) error
	CorrectTaskLog(ctx context.Context, edit api.ExactLogEdit) error
}

// Row is one grid line: a (project, task) pair with seven daily cells.
type Row struct {
	ProjectID  string   `json:"project_id"`
	TaskGUID   string   `json:"task_guid"`
	TaskID     string   `json:"task_id"`
	TaskName   string   `json:"task_name"`
	Billing    string   `json:"billing"`
	Daily      [7]int64 `json:"daily_seconds"`
	ManualFlag [7]bool  `json:"manual_flag"`
	Manual     bool     `json:"manual"`
}

// Key identifies a row across logs, manual rows, and overrides.
func (r *Row) Key() string {
	return r.ProjectID + "|" + r.TaskGUID
}

// Grid is the assembled week.
type Grid struct {
	Monday    time.Time
	Sunday    time.Time
	Dates     [7]string
	Rows      []Row
	RowTotals []int64
	DayTotals [7]int64
	Total     int64
}

// Override is seven nullable per-day second counts layered over one row.
type Override [7]*int64

// Aggregator builds the weekly grid and drives the submit-for-approval
// workflow. Manual rows and overrides live in the session-scoped store, keyed
// by week.
type Aggregator struct {
	upstream Upstream
	scratch  *store.Scratch
	now      func() time.Time
}

func NewAggregator(upstream Upstream, scratch *store.Scratch) *Aggregator {
	return &Aggregator{upstream: upstream, scratch: scratch, now: time.Now}
}

func manualRowsKey(week string) string {
	return "ts_manual_" + week
}

func overridesKey(week string) string {
	return "ts_manual_" + week + "_overrides"
}

// Build assembles the grid for the week starting at monday. assigned lists
// the user's tasks so unlogged work stays discoverable; billingByProject maps
// project ids to their billing mode.
func (a *Aggregator) Build(ctx context.Context, user *domain.User, monday time.Time, assigned []domain.Task, billingByProject map[string]string) (*Grid, error) {
	monday, sunday := domain.WeekOf(monday)
	grid := &Grid{Monday: monday, Sunday: sunday, Dates: domain.WeekDates(monday)}
	week := domain.WeekKey(monday, sunday)
	now := a.now()

	logs, err := a.upstream.Logs(ctx, user.ID, grid.Dates[0], grid.Dates[6])
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}

	column := make(map[string]int, 7)
	for i, date := range grid.Dates {
		column[date] = i
	}

	rowsByKey := make(map[string]*Row)
	var order []string
	for _, log := range logs {
		// Future-dated logs never reach the grid.
		if domain.FutureLocalDate(log.WorkDate, now) {
			continue
		}
		day, ok := column[log.WorkDate]
		if !ok {
			continue
		}
		key := log.ProjectID + "|" + log.TaskGUID
		row, ok := rowsByKey[key]
		if !ok {
			row = &Row{
				ProjectID: log.ProjectID,
				TaskGUID:  log.TaskGUID,
				TaskID:    log.TaskID,
				TaskName:  log.TaskName,
				Billing:   billingByProject[log.ProjectID],
			}
			rowsByKey[key] = row
			order = append(order, key)
		}
		row.Daily[day] += log.Seconds
		if log.Manual {
			row.ManualFlag[day] = true
		}
	}

	// Assigned tasks with no logs yet appear as zero rows.
	for _, task := range assigned {
		key := task.ProjectID + "|" + task.GUID
		if _, ok := rowsByKey[key]; ok {
			continue
		}
		rowsByKey[key] = &Row{
			ProjectID: task.ProjectID,
			TaskGUID:  task.GUID,
			TaskID:    task.HumanID,
			TaskName:  task.Name,
			Billing:   billingByProject[task.ProjectID],
		}
		order = append(order, key)
	}

	// User-added manual rows, unless the key already exists.
	for _, manual := range a.ManualRows(week) {
		key := manual.Key()
		if _, ok := rowsByKey[key]; ok {
			continue
		}
		row := manual
		row.Manual = true
		rowsByKey[key] = &row
		order = append(order, key)
	}

	// Overrides replace the derived value cell by cell.
	overrides := a.Overrides(week)
	for key, override := range overrides {
		row, ok := rowsByKey[key]
		if !ok {
			continue
		}
		for day, value := range override {
			if value != nil {
				row.Daily[day] = *value
				row.ManualFlag[day] = true
			}
		}
	}

	sort.Strings(order)
	grid.Rows = make([]Row, 0, len(order))
	grid.RowTotals = make([]int64, 0, len(order))
	for _, key := range order {
		row := *rowsByKey[key]
		var rowTotal int64
		for day := range row.Daily {
			if domain.FutureLocalDate(grid.Dates[day], now) {
				row.Daily[day] = 0
				continue
			}
			rowTotal += row.Daily[day]
			grid.DayTotals[day] += row.Daily[day]
		}
		grid.Rows = append(grid.Rows, row)
		grid.RowTotals = append(grid.RowTotals, rowTotal)
		grid.Total += rowTotal
	}
	return grid, nil
}

// ManualRows lists the user-added rows stored for a week.
func (a *Aggregator) ManualRows(week string) []Row {
	var rows []Row
	if ok, err := a.scratch.Get(manualRowsKey(week), &rows); err != nil || !ok {
		return nil
	}
	return rows
}

// AddManualRow stores a user-added row for a week, minting a guid when the
// row has none.
func (a *Aggregator) AddManualRow(week string, row Row) (Row, error) {
	if row.TaskGUID == "" {
		row.TaskGUID = uuid.NewString()
	}
	row.Manual = true
	rows := append(a.ManualRows(week), row)
	return row, a.scratch.Set(manualRowsKey(week), rows)
}

// Overrides returns the per-row cell overrides stored for a week.
func (a *Aggregator) Overrides(week string) map[string]Override {
	overrides := make(map[string]Override)
	if ok, err := a.scratch.Get(overridesKey(week), &overrides); err != nil || !ok {
		return map[string]Override{}
	}
	return overrides
}

// SetOverride records one cell override; a nil value clears it.
func (a *Aggregator) SetOverride(week, rowKey string, day int, seconds *int64) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("day %d out of range", day)
	}
	overrides := a.Overrides(week)
	override := overrides[rowKey]
	override[day] = seconds
	overrides[rowKey] = override
	return a.scratch.Set(overridesKey(week), overrides)
}

// Summary is what the confirmation dialog shows after a submit.
type Summary struct {
	Entries      int
	TotalSeconds int64
	Week         string
}

// Submit flattens the grid's non-zero cells and posts them for approval. On
// success the week's manual rows and overrides are cleared.
func (a *Aggregator) Submit(ctx context.Context, user *domain.User, grid *Grid, note string) (*Summary, error) {
	week := domain.WeekKey(grid.Monday, grid.Sunday)
	now := a.now()

	var entries []domain.SubmissionEntry
	var total int64
	for _, row := range grid.Rows {
		for day, seconds := range row.Daily {
			if seconds <= 0 || domain.FutureLocalDate(grid.Dates[day], now) {
				continue
			}
			entries = append(entries, domain.SubmissionEntry{
				WorkDate:  grid.Dates[day],
				ProjectID: row.ProjectID,
				TaskGUID:  row.TaskGUID,
				TaskID:    row.TaskID,
				TaskName:  row.TaskName,
				Seconds:   seconds,
				Hours:     roundHours(seconds),
				Note:      note,
			})
			total += seconds
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("nothing to submit for week %s", week)
	}

	if err := a.upstream.SubmitTimesheet(ctx, user.ID, user.Name, entries); err != nil {
		return nil, fmt.Errorf("submit timesheet: %w", err)
	}

	a.scratch.Delete(manualRowsKey(week))
	a.scratch.Delete(overridesKey(week))
	return &Summary{Entries: len(entries), TotalSeconds: total, Week: week}, nil
}

// EditDay is the admin correction path: it overwrites one colleague's
// task-day exactly, attributed to the editing admin.
func (a *Aggregator) EditDay(ctx context.Context, admin *domain.User, employeeID string, row Row, date string, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("seconds must be non-negative")
	}
	now := a.now()
	if domain.FutureLocalDate(date, now) {
		return fmt.Errorf("cannot edit a future date")
	}
	edit := api.ExactLogEdit{
		TaskLogUpsert: api.TaskLogUpsert{
			EmployeeID:      employeeID,
			ProjectID:       row.ProjectID,
			TaskGUID:        row.TaskGUID,
			TaskID:          row.TaskID,
			TaskName:        row.TaskName,
			Seconds:         seconds,
			WorkDate:        date,
			SessionStartMS:  now.UnixMilli(),
			SessionEndMS:    now.UnixMilli(),
			TZOffsetMinutes: domain.TZOffsetMinutes(now),
		},
		Role:     "admin",
		EditorID: admin.ID,
	}
	if err := a.upstream.CorrectTaskLog(ctx, edit); err != nil {
		return fmt.Errorf("correct log: %w", err)
	}
	slog.Info("timesheet day corrected",
		"employee", employeeID, "task", row.TaskGUID, "date", date, "editor", admin.ID)
	return nil
}

func roundHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}
