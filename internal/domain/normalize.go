package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeEmployeeID coerces upstream employee id shapes to the canonical
// "EMP" + zero-padded form. Bare digits become EMP007; anything else is
// uppercased and kept as-is.
func NormalizeEmployeeID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return fmt.Sprintf("EMP%03d", n)
	}
	return strings.ToUpper(trimmed)
}

func firstNonEmpty(record map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func boolField(record map[string]any, keys ...string) bool {
	for _, key := range keys {
		switch v := record[key].(type) {
		case bool:
			return v
		case string:
			lower := strings.ToLower(strings.TrimSpace(v))
			if lower != "" {
				return lower == "true" || lower == "yes" || lower == "1"
			}
		case float64:
			return v != 0
		}
	}
	return false
}

// EmployeeFromRecord adapts the upstream employee payload, which arrives with
// inconsistent field names depending on the backing system of record.
func EmployeeFromRecord(record map[string]any) Employee {
	joined := firstNonEmpty(record, "doj", "date_of_joining", "crc6f_doj", "joining_date")
	if parsed, err := ParseFlexibleDate(joined); err == nil {
		joined = parsed.Format("2006-01-02")
	}
	return Employee{
		ID:          NormalizeEmployeeID(firstNonEmpty(record, "employee_id", "emp_id", "id", "crc6f_empid")),
		Name:        firstNonEmpty(record, "name", "employee_name", "full_name", "crc6f_name"),
		Email:       strings.ToLower(firstNonEmpty(record, "email", "email_id", "work_email", "crc6f_email")),
		Designation: firstNonEmpty(record, "designation", "role", "job_title"),
		Department:  firstNonEmpty(record, "department", "dept", "team"),
		DateOfJoin:  joined,
		Intern:      boolField(record, "intern", "is_intern"),
		PhotoURL:    firstNonEmpty(record, "photo_url", "photo", "avatar"),
	}
}

// LeaveFromRecord adapts the upstream leave payload.
func LeaveFromRecord(record map[string]any) Leave {
	return Leave{
		ID:         firstNonEmpty(record, "id", "leave_id", "_id"),
		EmployeeID: NormalizeEmployeeID(firstNonEmpty(record, "employee_id", "emp_id", "employee")),
		Type:       firstNonEmpty(record, "leave_type", "type", "category"),
		StartDate:  firstNonEmpty(record, "start_date", "from_date", "from"),
		EndDate:    firstNonEmpty(record, "end_date", "to_date", "to"),
		Reason:     firstNonEmpty(record, "reason", "description"),
		Status:     firstNonEmpty(record, "status", "state"),
		DecidedBy:  firstNonEmpty(record, "decided_by", "approved_by", "rejected_by"),
		Comment:    firstNonEmpty(record, "comment", "rejection_reason"),
		AppliedAt:  firstNonEmpty(record, "applied_at", "created_at", "requested_at"),
	}
}

// HolidayFromRecord adapts the upstream holiday payload.
func HolidayFromRecord(record map[string]any) Holiday {
	date := firstNonEmpty(record, "date", "holiday_date", "crc6f_date")
	if parsed, err := ParseFlexibleDate(date); err == nil {
		date = parsed.Format("2006-01-02")
	}
	return Holiday{
		Name: firstNonEmpty(record, "name", "holiday_name", "title"),
		Date: date,
	}
}
