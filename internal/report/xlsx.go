package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SessionsSheet   = "Sessions"
	ActivitiesSheet = "Activities"
)

var sessionsHeader = []string{
	"Center", "Session ID", "Start", "End", "Status", "Duration (min)", "Activities", "Ended By",
}

var activitiesHeader = []string{
	"Time", "Center", "Category", "Action", "Description", "User", "Target",
}

// RenderXLSX writes sessions and activities into a two-sheet workbook
func RenderXLSX(sessions []SessionWithStats, activities []ActivityWithCenter, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SessionsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ActivitiesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sessionRows := make([][]interface{}, 0, len(sessions))
	for _, s := range sessions {
		end, status := "", "active"
		if s.SessionEnd != nil {
			end = s.SessionEnd.In(loc).Format(time.DateTime)
			status = "ended"
		}
		sessionRows = append(sessionRows, []interface{}{
			s.CenterName, s.ID, s.SessionStart.In(loc).Format(time.DateTime), end, status,
			s.DurationMinutes, s.ActivitiesCount, s.EndedBy,
		})
	}
	if err := writeSheet(f, SessionsSheet, sessionsHeader, sessionRows, headerStyle); err != nil {
		return nil, err
	}

	activityRows := make([][]interface{}, 0, len(activities))
	for _, a := range activities {
		activityRows = append(activityRows, []interface{}{
			a.Timestamp.In(loc).Format(time.DateTime), a.CenterName, string(a.Category),
			a.Action, a.Description, a.ActorName, a.TargetName,
		})
	}
	if err := writeSheet(f, ActivitiesSheet, activitiesHeader, activityRows, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := r
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", lastCol, 20)
}
