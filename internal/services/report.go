package services

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const maxSheetNameLen = 31

// ProfileStore resolves a user's registered name; Get returns nil when the
// user never registered.
type ProfileStore interface {
	Get(userID string) (*models.UserProfile, error)
}

// ReportService compiles archived polls into a monthly attendance workbook:
// one sheet per calendar date, one column per session, one row per student.
type ReportService struct {
	profiles ProfileStore
	collator *collate.Collator
}

func NewReportService(profiles ProfileStore) *ReportService {
	return &ReportService{
		profiles: profiles,
		collator: collate.New(language.Russian),
	}
}

// FileName names the artifact for a report period.
func (s *ReportService) FileName(year, month int) string {
	return fmt.Sprintf("attendance_%04d-%02d.xlsx", year, month)
}

// BuildReport produces the workbook bytes. An empty input yields a valid
// empty workbook; a malformed row fails the whole build, since a report
// with silently dropped columns is worse than no report.
func (s *ReportService) BuildReport(rows []models.PastPoll) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	byDate := make(map[string][]models.PastPoll)
	var dates []string
	for _, row := range rows {
		if _, ok := byDate[row.Date]; !ok {
			dates = append(dates, row.Date)
		}
		byDate[row.Date] = append(byDate[row.Date], row)
	}
	sort.Strings(dates)

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, date := range dates {
		sheet := sheetName(date)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		if err := s.writeSheet(f, sheet, byDate[date], centered); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type reportColumn struct {
	label string
	start time.Time
}

func (s *ReportService) writeSheet(f *excelize.File, sheet string, polls []models.PastPoll, style int) error {
	seen := make(map[string]bool)
	var columns []reportColumn
	marks := make(map[string]map[string]models.Mark) // display name -> label -> mark

	for _, p := range polls {
		if p.ClassName == "" || p.StartTime == "" || p.EndTime == "" {
			return fmt.Errorf("poll %s: incomplete session fields", p.PollID)
		}
		start, err := time.Parse("15:04", p.StartTime)
		if err != nil {
			return fmt.Errorf("poll %s: bad start time %q: %w", p.PollID, p.StartTime, err)
		}

		// Two sessions can share a date and a base label (same discipline
		// twice in one day). The first occurrence keeps the bare label, later
		// ones get the instructor's family name appended.
		label := fmt.Sprintf("%s (%s-%s)", p.ClassName, p.StartTime, p.EndTime)
		if seen[label] {
			surname, err := instructorSurname(p.Prof)
			if err != nil {
				return fmt.Errorf("poll %s: %w", p.PollID, err)
			}
			label = fmt.Sprintf("%s (%s)", label, surname)
		}
		if !seen[label] {
			columns = append(columns, reportColumn{label: label, start: start})
		}
		seen[label] = true

		entries, err := models.DecodeResponses(p.Responses)
		if err != nil {
			return fmt.Errorf("poll %s: corrupt responses log: %w", p.PollID, err)
		}
		for _, e := range entries {
			name := s.displayName(e)
			if marks[name] == nil {
				marks[name] = make(map[string]models.Mark)
			}
			marks[name][label] = models.MarkFromOptions(e.OptionIDs)
		}
	}

	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].start.Before(columns[j].start)
	})

	names := make([]string, 0, len(marks))
	for name := range marks {
		names = append(names, name)
	}
	s.collator.SortStrings(names)

	headers := []string{"Имя"}
	for _, c := range columns {
		headers = append(headers, c.label)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, name := range names {
		values := []string{escapeName(name)}
		for _, c := range columns {
			values = append(values, string(marks[name][c.label]))
		}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(widths[i]+3)); err != nil {
			return err
		}
	}

	lastCell, err := excelize.CoordinatesToCellName(len(headers), len(names)+1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", lastCell, style)
}

// displayName prefers the registered profile name over the name Telegram
// captured on the answer.
func (s *ReportService) displayName(e models.ResponseEntry) string {
	last, first := e.LastName, e.FirstName
	if profile, err := s.profiles.Get(e.UserID); err == nil && profile != nil {
		last, first = profile.LastName, profile.FirstName
	}
	return strings.TrimSpace(last + " " + first)
}

// escapeName neutralizes spreadsheet formula injection: a leading apostrophe
// forces a text cell, and stripping it restores the name exactly.
func escapeName(name string) string {
	if name == "" {
		return name
	}
	switch name[0] {
	case '=', '+', '-', '@':
		return "'" + name
	}
	return name
}

func instructorSurname(fullName string) (string, error) {
	fields := strings.Fields(fullName)
	if len(fields) < 2 {
		return "", fmt.Errorf("instructor name %q too short to disambiguate", fullName)
	}
	return fields[1], nil
}

func sheetName(date string) string {
	name := strings.ReplaceAll(date, ".", "-")
	if runes := []rune(name); len(runes) > maxSheetNameLen {
		name = string(runes[:maxSheetNameLen])
	}
	return name
}
