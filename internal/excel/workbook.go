// Package excel renders attendance data as .xlsx workbooks.
package excel

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	colorHeaderBlue = "#4472C4"
	colorHeaderRed  = "#E74C3C"
	colorIn         = "#00B050"
	colorOut        = "#E74C3C"
	colorLink       = "#0563C1"
	colorAnomaly    = "#FDE9E7"
)

// ContentType of every workbook produced here
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column describes one header cell
type Column struct {
	Title string
	Width float64
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

// styles shared by the sheets of one workbook
type styles struct {
	cell    int
	inType  int
	outType int
	link    int
	anomaly int
	bold    int
}

type book struct {
	f      *excelize.File
	styles styles
	first  bool
}

func newBook() (*book, error) {
	f := excelize.NewFile()
	b := &book{f: f, first: true}

	var err error
	mk := func(s *excelize.Style) int {
		if err != nil {
			return 0
		}
		var id int
		id, err = f.NewStyle(s)
		return id
	}
	b.styles = styles{
		cell:    mk(&excelize.Style{Border: thinBorder}),
		inType:  mk(&excelize.Style{Border: thinBorder, Font: &excelize.Font{Bold: true, Color: colorIn}}),
		outType: mk(&excelize.Style{Border: thinBorder, Font: &excelize.Font{Bold: true, Color: colorOut}}),
		link:    mk(&excelize.Style{Border: thinBorder, Font: &excelize.Font{Color: colorLink, Underline: "single"}}),
		anomaly: mk(&excelize.Style{Border: thinBorder, Fill: excelize.Fill{Type: "pattern", Color: []string{colorAnomaly}, Pattern: 1}}),
		bold:    mk(&excelize.Style{Font: &excelize.Font{Bold: true}}),
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}
	return b, nil
}

// addSheet creates a sheet with a styled, frozen header row. The first
// sheet replaces the default "Sheet1".
func (b *book) addSheet(name, headerColor string, columns []Column) (string, error) {
	name = SheetName(name)
	if b.first {
		if err := b.f.SetSheetName("Sheet1", name); err != nil {
			return "", fmt.Errorf("failed to rename sheet: %w", err)
		}
		b.first = false
	} else if _, err := b.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Border:    thinBorder,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return "", err
		}
		if err := b.f.SetCellValue(name, cell, c.Title); err != nil {
			return "", fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return "", err
		}
		if c.Width > 0 {
			if err := b.f.SetColWidth(name, col, col, c.Width); err != nil {
				return "", fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := b.f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return "", fmt.Errorf("failed to set header style: %w", err)
	}

	if err := b.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return "", fmt.Errorf("failed to freeze panes: %w", err)
	}
	return name, nil
}

// setRow writes values from column A and applies style to the written range
func (b *book) setRow(sheet string, row int, style int, values ...any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	if style == 0 || len(values) == 0 {
		return nil
	}
	end, _ := excelize.CoordinatesToCellName(len(values), row)
	return b.f.SetCellStyle(sheet, start, end, style)
}

func coordinatesToCell(col, row int) (string, error) {
	return excelize.CoordinatesToCellName(col, row)
}

func (b *book) setStyle(sheet string, col, row, style int) error {
	cell, err := coordinatesToCell(col, row)
	if err != nil {
		return err
	}
	return b.f.SetCellStyle(sheet, cell, cell, style)
}

func (b *book) autoFilter(sheet string, columns, rows int) error {
	if rows < 1 {
		rows = 1
	}
	end, err := excelize.CoordinatesToCellName(columns, rows)
	if err != nil {
		return err
	}
	return b.f.AutoFilter(sheet, "A1:"+end, nil)
}

// bytes serializes and closes the workbook
func (b *book) bytes() ([]byte, error) {
	b.f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := b.f.WriteTo(&buf); err != nil {
		b.f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := b.f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *book) close() { _ = b.f.Close() }

var invalidSheetChars = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// SheetName strips characters Excel rejects and truncates to 31 runes
func SheetName(name string) string {
	name = strings.TrimSpace(invalidSheetChars.Replace(name))
	if name == "" {
		name = "Sheet"
	}
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// ArchiveFileName is the backup name of a deleted work site
func ArchiveFileName(siteName string, at time.Time) string {
	return fmt.Sprintf("BACKUP_%s_%s.xlsx", unsafeFileChars.ReplaceAllString(siteName, "_"), at.Format("2006-01-02"))
}

// displayTime is the Italian-style local timestamp shown in cells
func displayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04:05")
}

func typeLabel(t string) string {
	if t == "in" {
		return "Ingresso"
	}
	return "Uscita"
}

func coordinate(v float64) any {
	if v == 0 {
		return "N/D"
	}
	return fmt.Sprintf("%.6f", v)
}
