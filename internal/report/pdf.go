package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Meta describes a rendered report
type Meta struct {
	ReportID    string
	Title       string
	Range       TimeRange
	GeneratedAt time.Time
	Location    *time.Location
}

// maxPDFActivities caps the activity table; the XLSX export carries the full list
const maxPDFActivities = 200

// RenderPDF writes the summary, session table and activity table as an A4 report.
// A QR code of the report id sits in the header.
func RenderPDF(sum Summary, sessions []SessionWithStats, activities []ActivityWithCenter, meta Meta) ([]byte, error) {
	loc := meta.Location
	if loc == nil {
		loc = time.Local
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	qrPng, err := qrcode.Encode("centerhub:report:"+meta.ReportID, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("report_qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("report_qr", 170, 8, 28, 28, false, imgOptions, 0, "")

	title := meta.Title
	if title == "" {
		title = "Center activity report"
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(150, 9, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(150, 5, fmt.Sprintf("Report %s", meta.ReportID), "", 1, "L", false, 0, "")
	pdf.CellFormat(150, 5, fmt.Sprintf("Generated %s, range: %s", meta.GeneratedAt.In(loc).Format(time.DateTime), meta.Range), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	// summary
	sectionTitle(pdf, "Summary")
	pdf.SetFont("Arial", "", 10)
	for _, line := range [][2]string{
		{"Sessions", fmt.Sprintf("%d (%d active, %d ended)", sum.TotalSessions, sum.ActiveSessions, sum.EndedSessions)},
		{"Activities", fmt.Sprintf("%d", sum.TotalActivities)},
	} {
		pdf.CellFormat(40, 6, line[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, line[1], "", 1, "L", false, 0, "")
	}
	for _, k := range sortedKeys(sum.ByCenter) {
		pdf.CellFormat(40, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %d", k, sum.ByCenter[k])), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	sectionTitle(pdf, "Sessions")
	widths := []float64{50, 35, 35, 20, 25, 25}
	tableHeader(pdf, widths, []string{"Center", "Start", "End", "Status", "Minutes", "Activities"})
	pdf.SetFont("Arial", "", 8)
	for _, s := range sessions {
		end, status := "-", "active"
		if s.SessionEnd != nil {
			end = s.SessionEnd.In(loc).Format("2006-01-02 15:04")
			status = "ended"
		}
		cells := []string{
			s.CenterName,
			s.SessionStart.In(loc).Format("2006-01-02 15:04"),
			end,
			status,
			fmt.Sprintf("%d", s.DurationMinutes),
			fmt.Sprintf("%d", s.ActivitiesCount),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	sectionTitle(pdf, "Activities")
	widths = []float64{32, 35, 25, 68, 30}
	tableHeader(pdf, widths, []string{"Time", "Center", "Category", "Description", "User"})
	pdf.SetFont("Arial", "", 8)
	for i, a := range activities {
		if i == maxPDFActivities {
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d more in the spreadsheet export", len(activities)-i), "", 1, "L", false, 0, "")
			break
		}
		cells := []string{
			a.Timestamp.In(loc).Format("2006-01-02 15:04"),
			a.CenterName,
			string(a.Category),
			truncate(a.Description, 48),
			a.ActorName,
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 6, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, cols []string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 243, 255)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
