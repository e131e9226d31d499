package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/extract/extracttest"
	"github.com/hyperjump/kotae/internal/models"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"notes.docx", true},
		{"budget.xlsx", true},
		{"legacy.xls", true},
		{"readme.txt", false},
		{"slides.pptx", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.name); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoadBytes_pdfOneDocumentPerPage(t *testing.T) {
	data := extracttest.PDF("First page text.", "Second page text.", "Third page text.")
	docs, err := NewLoader().LoadBytes("guide.pdf", data)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	for i, d := range docs {
		if d.Source.Page != i+1 {
			t.Errorf("doc %d page = %d", i, d.Source.Page)
		}
		if d.Source.Name != "guide.pdf" || d.Source.Kind != KindPDF {
			t.Errorf("doc %d source = %+v", i, d.Source)
		}
	}
	if !strings.Contains(docs[1].Content, "Second page text.") {
		t.Errorf("page 2 content = %q", docs[1].Content)
	}
	if docs[0].ID == docs[1].ID {
		t.Error("page documents should have distinct IDs")
	}
}

func TestLoadBytes_docxSingleDocument(t *testing.T) {
	data := extracttest.DOCX("Kotae answers questions.", "Fish & chips <3")
	docs, err := NewLoader().LoadBytes("notes.docx", data)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	want := "Kotae answers questions.\nFish & chips <3"
	if docs[0].Content != want {
		t.Errorf("content = %q, want %q", docs[0].Content, want)
	}
	if docs[0].Source.Page != 0 || docs[0].Source.Sheet != "" {
		t.Errorf("docx source should carry no page or sheet: %+v", docs[0].Source)
	}
}

func TestLoadBytes_docxContentTypesReversed(t *testing.T) {
	types := `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/main.xml"/></Types>`
	body := `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>Custom part</w:t></w:r></w:p></w:body></w:document>`
	data := extracttest.Zip(map[string]string{
		"[Content_Types].xml": types,
		"word/main.xml":       body,
	})
	docs, err := NewLoader().LoadBytes("custom.docx", data)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if docs[0].Content != "Custom part" {
		t.Errorf("content = %q", docs[0].Content)
	}
}

func TestLoadBytes_excelOneDocumentPerSheet(t *testing.T) {
	data := extracttest.XLSX(
		extracttest.Sheet{Name: "Budget", Rows: [][]string{{"Item", "Cost"}, {"Rent", "1200"}}},
		extracttest.Sheet{Name: "Notes", Rows: [][]string{{"Paid monthly."}}},
	)
	docs, err := NewLoader().LoadBytes("money.xlsx", data)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].Source.Sheet != "Budget" || docs[1].Source.Sheet != "Notes" {
		t.Errorf("sheets = %q, %q", docs[0].Source.Sheet, docs[1].Source.Sheet)
	}
	if docs[0].Content != "Item\tCost\nRent\t1200" {
		t.Errorf("sheet content = %q", docs[0].Content)
	}
	if docs[1].Source.Label() != "money.xlsx [Notes]" {
		t.Errorf("label = %q", docs[1].Source.Label())
	}
}

func TestLoadBytes_xlsWithOOXMLContent(t *testing.T) {
	data := extracttest.XLSX(extracttest.Sheet{Name: "Sheet1", Rows: [][]string{{"legacy"}}})
	docs, err := NewLoader().LoadBytes("old.xls", data)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if docs[0].Content != "legacy" {
		t.Errorf("content = %q", docs[0].Content)
	}
}

func TestLoadBytes_unsupported(t *testing.T) {
	_, err := NewLoader().LoadBytes("readme.txt", []byte("hello"))
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadBytes_corrupt(t *testing.T) {
	for _, name := range []string{"bad.pdf", "bad.docx", "bad.xlsx"} {
		_, err := NewLoader().LoadBytes(name, []byte("this is not a real file"))
		if !errors.Is(err, models.ErrLoad) {
			t.Errorf("%s: err = %v, want ErrLoad", name, err)
		}
	}
}

func TestLoad_fromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.pdf")
	if err := os.WriteFile(path, extracttest.PDF("On disk."), 0600); err != nil {
		t.Fatal(err)
	}
	docs, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if docs[0].Source.Path != path {
		t.Errorf("path = %q, want %q", docs[0].Source.Path, path)
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "gone.pdf"))
	if !errors.Is(err, models.ErrLoad) {
		t.Errorf("err = %v, want ErrLoad", err)
	}
}
