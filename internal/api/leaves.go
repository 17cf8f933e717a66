package api

import (
	"context"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

type leavesResponse struct {
	Leaves []map[string]any `json:"leaves"`
}

// Leaves lists leave requests, optionally scoped to one employee.
func (c *Client) Leaves(ctx context.Context, employeeID string) ([]domain.Leave, error) {
	var payload leavesResponse
	if err := c.get(ctx, "/leaves"+query("employee_id", employeeID), &payload); err != nil {
		return nil, err
	}
	leaves := make([]domain.Leave, 0, len(payload.Leaves))
	for _, record := range payload.Leaves {
		leaves = append(leaves, domain.LeaveFromRecord(record))
	}
	return leaves, nil
}

// PendingLeaves lists leaves awaiting an admin decision.
func (c *Client) PendingLeaves(ctx context.Context) ([]domain.Leave, error) {
	var payload leavesResponse
	if err := c.get(ctx, "/leaves/pending", &payload); err != nil {
		return nil, err
	}
	leaves := make([]domain.Leave, 0, len(payload.Leaves))
	for _, record := range payload.Leaves {
		leaves = append(leaves, domain.LeaveFromRecord(record))
	}
	return leaves, nil
}

func (c *Client) ApproveLeave(ctx context.Context, leaveID, decidedBy string) error {
	return c.post(ctx, "/leaves/"+url.PathEscape(leaveID)+"/approve",
		map[string]string{"decided_by": decidedBy}, nil)
}

func (c *Client) RejectLeave(ctx context.Context, leaveID, decidedBy, reason string) error {
	return c.post(ctx, "/leaves/"+url.PathEscape(leaveID)+"/reject",
		map[string]string{"decided_by": decidedBy, "reason": reason}, nil)
}

// NotifyLeaveApproval tells the employee their leave was approved. Callers
// treat failures as non-fatal.
func (c *Client) NotifyLeaveApproval(ctx context.Context, leaveID, employeeID, leaveType string) error {
	return c.post(ctx, "/notifications/leave-approval", map[string]string{
		"leave_id":    leaveID,
		"employee_id": employeeID,
		"leave_type":  leaveType,
	}, nil)
}

// NotifyLeaveRejection tells the employee their leave was rejected.
func (c *Client) NotifyLeaveRejection(ctx context.Context, leaveID, employeeID, leaveType, reason string) error {
	return c.post(ctx, "/notifications/leave-rejection", map[string]string{
		"leave_id":    leaveID,
		"employee_id": employeeID,
		"leave_type":  leaveType,
		"reason":      reason,
	}, nil)
}

type badgeResponse struct {
	Pending int `json:"pending"`
}

// PendingBadge returns the count behind the notification badge.
func (c *Client) PendingBadge(ctx context.Context, employeeID string) (int, error) {
	var payload badgeResponse
	if err := c.get(ctx, "/notifications/badge"+query("employee_id", employeeID), &payload); err != nil {
		return 0, err
	}
	return payload.Pending, nil
}

type compOffBalanceResponse struct {
	Balance int `json:"balance"`
}

// CompOffBalance reads an employee's comp-off balance.
func (c *Client) CompOffBalance(ctx context.Context, employeeID string) (int, error) {
	var payload compOffBalanceResponse
	if err := c.get(ctx, "/compoff/balance"+query("employee_id", employeeID), &payload); err != nil {
		return 0, err
	}
	return payload.Balance, nil
}

// SetCompOffBalance writes an employee's comp-off balance. Read-then-write is
// not atomic; concurrent grants can double-count.
func (c *Client) SetCompOffBalance(ctx context.Context, employeeID string, balance int) error {
	return c.do(ctx, "PUT", "/compoff/balance", map[string]any{
		"employee_id": employeeID,
		"balance":     balance,
	}, nil)
}
