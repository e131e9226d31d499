package e2e

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/extract/extracttest"
)

// Formats lists the upload extensions the e2e tests cover. The .xls case carries
// OOXML bytes, as spreadsheet tools often save under the legacy extension.
var Formats = []string{".pdf", ".docx", ".xlsx", ".xls"}

// BuildDocument renders passages as a file of the given extension: one PDF page or
// Word paragraph per passage, or one row per passage on a single sheet.
func BuildDocument(ext string, passages []string) ([]byte, error) {
	switch ext {
	case ".pdf":
		return extracttest.PDF(passages...), nil
	case ".docx":
		return extracttest.DOCX(passages...), nil
	case ".xlsx", ".xls":
		rows := make([][]string, len(passages))
		for i, p := range passages {
			rows[i] = []string{fmt.Sprintf("%d", i+1), p}
		}
		return extracttest.XLSX(extracttest.Sheet{Name: "Topics", Rows: rows}), nil
	default:
		return nil, fmt.Errorf("no fixture for %q", ext)
	}
}
