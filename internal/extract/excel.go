package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel returns one part per sheet, in workbook order. Cells are tab separated
// and rows newline separated. Legacy .xls files are only readable when they are OOXML
// underneath; BIFF workbooks fail to open.
func extractExcel(content []byte) ([]part, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var parts []part
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("rows of sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		parts = append(parts, part{text: strings.TrimSpace(buf.String()), sheet: sheet})
	}
	return parts, nil
}
