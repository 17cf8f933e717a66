package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vtabsquare/officetool/internal/domain"
)

func TestAllEmployeesAdaptsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/employees/all" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"employees": []map[string]any{
				{"employee_id": "3", "full_name": "C", "work_email": "c@x.com"},
				{"crc6f_empid": "EMP010", "crc6f_name": "D"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	employees, err := c.AllEmployees(context.Background())
	if err != nil {
		t.Fatalf("all employees: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("got %d employees", len(employees))
	}
	if employees[0].ID != "EMP003" || employees[1].ID != "EMP010" {
		t.Fatalf("ids = %s, %s", employees[0].ID, employees[1].ID)
	}
}

func TestUpsertTaskLogBody(t *testing.T) {
	var got TaskLogUpsert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/time-tracker/task-log" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	err := c.UpsertTaskLog(context.Background(), TaskLogUpsert{
		EmployeeID: "EMP001",
		TaskGUID:   "g1",
		Seconds:    600,
		WorkDate:   "2025-01-08",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.EmployeeID != "EMP001" || got.Seconds != 600 || got.WorkDate != "2025-01-08" {
		t.Fatalf("body = %+v", got)
	}
}

func TestNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	if _, err := c.Holidays(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestLogsQueryIncludesAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("employee_id") != "ALL" || q.Get("start_date") != "2025-01-06" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{"logs": []domain.TimesheetLog{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	if _, err := c.Logs(context.Background(), "ALL", "2025-01-06", "2025-01-12"); err != nil {
		t.Fatalf("logs: %v", err)
	}
}
