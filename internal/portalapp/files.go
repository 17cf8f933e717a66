package portalapp

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
	_ "image/jpeg"

	"github.com/vtabsquare/officetool/internal/cache"
	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/timesheet"
)

func (s *server) downloadTimesheetXLSX(w http.ResponseWriter, r *http.Request) {
	s.downloadTimesheet(w, r, "xlsx")
}

func (s *server) downloadTimesheetPDF(w http.ResponseWriter, r *http.Request) {
	s.downloadTimesheet(w, r, "pdf")
}

func (s *server) downloadTimesheet(w http.ResponseWriter, r *http.Request, format string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := userFrom(r)
	grid, err := s.buildTimesheetGrid(r.Context(), user, r.URL.Query())
	if err != nil {
		http.Error(w, "unable to build timesheet", http.StatusBadGateway)
		return
	}

	var payload []byte
	var contentType string
	switch format {
	case "pdf":
		payload, err = timesheet.ExportPDF(grid, user.Name)
		contentType = "application/pdf"
	default:
		payload, err = timesheet.ExportXLSX(grid, user.Name)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("timesheet_%s_%s.%s", user.ID, grid.Dates[0], format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(payload)
}

const avatarSize = 128

// avatarThumbnail serves a square thumbnail of the employee's upstream photo.
// Thumbnails are value-cached; a photo the upstream cannot serve becomes 404
// rather than an error page.
func (s *server) avatarThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := domain.NormalizeEmployeeID(strings.TrimPrefix(r.URL.Path, "/avatars/"))
	if id == "" {
		http.NotFound(w, r)
		return
	}

	thumb, err := cache.Fetch(s.values, "avatar_"+id, cache.TTLVeryLong, func() ([]byte, error) {
		raw, _, err := s.apiClient.EmployeePhoto(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return renderThumbnail(raw, avatarSize)
	})
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=900")
	_, _ = w.Write(thumb)
}

func renderThumbnail(raw []byte, size int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			return nil, fmt.Errorf("decode photo: %w", err)
		}
		img = decoded
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty image")
	}
	crop := width
	if height < crop {
		crop = height
	}
	srcRect := image.Rect(
		bounds.Min.X+(width-crop)/2,
		bounds.Min.Y+(height-crop)/2,
		bounds.Min.X+(width-crop)/2+crop,
		bounds.Min.Y+(height-crop)/2+crop,
	)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, srcRect, xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// holidayImport ingests an admin-uploaded holiday calendar, legacy .xls or
// modern .xlsx, and pushes the parsed rows upstream.
func (s *server) holidayImport(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if !user.Roles.Admin {
		s.renderDenied(w, user, "/")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		backTo(w, r, "/login-settings", errInvalid("upload"))
		return
	}
	file, header, err := r.FormFile("calendar")
	if err != nil {
		backTo(w, r, "/login-settings", errMissing("calendar file"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, 10<<20))
	if err != nil {
		backTo(w, r, "/login-settings", errInvalid("calendar file"))
		return
	}

	holidays, err := parseHolidaySheet(raw, header.Filename)
	if err != nil {
		backTo(w, r, "/login-settings", err)
		return
	}
	if len(holidays) == 0 {
		backTo(w, r, "/login-settings", fieldError("no holiday rows found"))
		return
	}
	if err := s.apiClient.AddHolidays(r.Context(), holidays); err != nil {
		backTo(w, r, "/login-settings", err)
		return
	}
	s.values.Clear("holidays")
	s.pages.ClearPage("/")
	http.Redirect(w, r, "/login-settings?message="+fmt.Sprintf("%d+holidays+imported", len(holidays)), http.StatusFound)
}

func parseHolidaySheet(raw []byte, filename string) ([]domain.Holiday, error) {
	rows, err := sheetRows(raw, filename)
	if err != nil {
		return nil, err
	}

	nameCol, dateCol := 0, 1
	start := 0
	if len(rows) > 0 && looksLikeHeader(rows[0]) {
		for i, cell := range rows[0] {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "name", "holiday", "holiday name", "title":
				nameCol = i
			case "date", "holiday date":
				dateCol = i
			}
		}
		start = 1
	}

	var holidays []domain.Holiday
	for _, row := range rows[start:] {
		name := cellAt(row, nameCol)
		rawDate := cellAt(row, dateCol)
		if name == "" || rawDate == "" {
			continue
		}
		parsed, err := domain.ParseFlexibleDate(rawDate)
		if err != nil {
			continue
		}
		holidays = append(holidays, domain.Holiday{
			Name: name,
			Date: parsed.Format("2006-01-02"),
		})
	}
	return holidays, nil
}

func sheetRows(raw []byte, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = file.Close() }()
		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}
}

func looksLikeHeader(row []string) bool {
	for _, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "name", "holiday", "holiday name", "date", "holiday date", "title":
			return true
		}
	}
	return false
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
