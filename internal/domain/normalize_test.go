package domain

import "testing"

func TestNormalizeEmployeeID(t *testing.T) {
	cases := map[string]string{
		"7":      "EMP007",
		"42":     "EMP042",
		"123":    "EMP123",
		"emp7":   "EMP7",
		"EMP001": "EMP001",
		" 9 ":    "EMP009",
		"":       "",
	}
	for raw, want := range cases {
		if got := NormalizeEmployeeID(raw); got != want {
			t.Errorf("NormalizeEmployeeID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestEmployeeFromRecordFieldCandidates(t *testing.T) {
	emp := EmployeeFromRecord(map[string]any{
		"crc6f_empid": "12",
		"full_name":   "Asha Rao",
		"work_email":  "Asha@Example.com",
		"crc6f_doj":   "3/1/2024",
		"is_intern":   "yes",
	})
	if emp.ID != "EMP012" {
		t.Errorf("ID = %q, want EMP012", emp.ID)
	}
	if emp.Name != "Asha Rao" {
		t.Errorf("Name = %q", emp.Name)
	}
	if emp.Email != "asha@example.com" {
		t.Errorf("Email = %q", emp.Email)
	}
	if emp.DateOfJoin != "2024-01-03" {
		t.Errorf("DateOfJoin = %q, want 2024-01-03", emp.DateOfJoin)
	}
	if !emp.Intern {
		t.Error("expected intern flag")
	}
}

func TestEmployeeFromRecordNumericID(t *testing.T) {
	emp := EmployeeFromRecord(map[string]any{"employee_id": float64(5), "name": "B"})
	if emp.ID != "EMP005" {
		t.Errorf("ID = %q, want EMP005", emp.ID)
	}
}

func TestLeaveFromRecordPrefersPrimaryKeys(t *testing.T) {
	leave := LeaveFromRecord(map[string]any{
		"leave_id":    "L9",
		"employee_id": "emp7",
		"type":        "Casual",
		"from_date":   "2025-02-10",
		"to":          "2025-02-11",
		"state":       "Pending",
	})
	if leave.ID != "L9" || leave.EmployeeID != "EMP7" || leave.Type != "Casual" {
		t.Errorf("unexpected leave: %+v", leave)
	}
	if leave.StartDate != "2025-02-10" || leave.EndDate != "2025-02-11" {
		t.Errorf("unexpected dates: %+v", leave)
	}
}
