package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

type employeePageResponse struct {
	Items []map[string]any `json:"items"`
}

type allEmployeesResponse struct {
	Success   bool             `json:"success"`
	Employees []map[string]any `json:"employees"`
}

type employeeProjectsResponse struct {
	Success  bool             `json:"success"`
	Projects []domain.Project `json:"projects"`
}

// Employees fetches one directory page.
func (c *Client) Employees(ctx context.Context, page, pageSize int) ([]domain.Employee, error) {
	var payload employeePageResponse
	if err := c.get(ctx, "/employees"+query("page", itoa(page), "pageSize", itoa(pageSize)), &payload); err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(payload.Items))
	for _, record := range payload.Items {
		employees = append(employees, domain.EmployeeFromRecord(record))
	}
	return employees, nil
}

// AllEmployees fetches the full directory. This is the one call with a hard
// 15-second timeout; a slow upstream surfaces as an error instead of hanging
// the page.
func (c *Client) AllEmployees(ctx context.Context) ([]domain.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()

	var payload allEmployeesResponse
	if err := c.get(ctx, "/employees/all", &payload); err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(payload.Employees))
	for _, record := range payload.Employees {
		employees = append(employees, domain.EmployeeFromRecord(record))
	}
	return employees, nil
}

// EmployeeProjects lists the projects an employee contributes to.
func (c *Client) EmployeeProjects(ctx context.Context, employeeID string) ([]domain.Project, error) {
	var payload employeeProjectsResponse
	if err := c.get(ctx, "/employees/"+url.PathEscape(employeeID)+"/projects", &payload); err != nil {
		return nil, err
	}
	return payload.Projects, nil
}

// EmployeePhoto streams an employee's raw photo bytes and content type.
func (c *Client) EmployeePhoto(ctx context.Context, employeeID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/employees/"+url.PathEscape(employeeID)+"/photo", nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamError()
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", &apiError{Status: resp.StatusCode, Path: "/employees/photo"}
	}
	raw, err := readAllLimited(resp.Body, 8<<20)
	if err != nil {
		return nil, "", err
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

// Holidays fetches the holiday calendar.
func (c *Client) Holidays(ctx context.Context) ([]domain.Holiday, error) {
	var records []map[string]any
	if err := c.get(ctx, "/holidays", &records); err != nil {
		return nil, err
	}
	holidays := make([]domain.Holiday, 0, len(records))
	for _, record := range records {
		holidays = append(holidays, domain.HolidayFromRecord(record))
	}
	return holidays, nil
}

// AddHolidays posts imported holiday records upstream.
func (c *Client) AddHolidays(ctx context.Context, holidays []domain.Holiday) error {
	return c.post(ctx, "/holidays", map[string]any{"holidays": holidays}, nil)
}
