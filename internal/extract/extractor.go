// Package extract loads uploaded files into Documents, one per PDF page, Word file, or Excel sheet.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
)

// Kinds of supported files.
const (
	KindPDF   = "pdf"
	KindDOCX  = "docx"
	KindExcel = "excel"
)

var kindByExt = map[string]string{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".xlsx": KindExcel,
	".xls":  KindExcel,
}

// SupportedExtensions returns the accepted file extensions in display order.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".xlsx", ".xls"}
}

// Supported reports whether name has an accepted extension (case-insensitive).
func Supported(name string) bool {
	_, ok := kindByExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Loader turns a file into Documents.
type Loader struct{}

// NewLoader returns a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the file at path and returns its Documents. The extension decides the
// strategy; anything else fails with models.ErrUnsupportedFormat. Unreadable or corrupt
// files fail with models.ErrLoad.
func (l *Loader) Load(path string) ([]*models.Document, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%q: %w", filepath.Ext(path), models.ErrUnsupportedFormat)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %v: %w", err, models.ErrLoad)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return l.load(abs, filepath.Base(path), content)
}

// LoadBytes is Load for content already in memory. name supplies the extension and the
// display name used in Sources.
func (l *Loader) LoadBytes(name string, content []byte) ([]*models.Document, error) {
	if !Supported(name) {
		return nil, fmt.Errorf("%q: %w", filepath.Ext(name), models.ErrUnsupportedFormat)
	}
	return l.load("", filepath.Base(name), content)
}

func (l *Loader) load(path, name string, content []byte) (docs []*models.Document, err error) {
	kind := kindByExt[strings.ToLower(filepath.Ext(name))]
	base := models.Source{Path: path, Name: name, Kind: kind}

	// The PDF and spreadsheet parsers panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("parse %s: %v: %w", name, r, models.ErrLoad)
		}
	}()

	var parts []part
	switch kind {
	case KindPDF:
		parts, err = extractPDF(content)
	case KindDOCX:
		parts, err = extractDOCX(content)
	case KindExcel:
		parts, err = extractExcel(content)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", name, err, models.ErrLoad)
	}

	idBase := fileid.ContentDocID(name, content)
	docs = make([]*models.Document, 0, len(parts))
	for i, p := range parts {
		src := base
		src.Page = p.page
		src.Sheet = p.sheet
		docs = append(docs, &models.Document{
			ID:      fmt.Sprintf("%s:%d", idBase, i),
			Content: p.text,
			Source:  src,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s has no pages or sheets: %w", name, models.ErrLoad)
	}
	return docs, nil
}

// part is one extracted unit before it becomes a Document.
type part struct {
	text  string
	page  int
	sheet string
}
