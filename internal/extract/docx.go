package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/lu4p/cat"
)

const (
	docxBodyPath     = "word/document.xml"
	contentTypesPath = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// Text runs, with or without attributes such as xml:space.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// Paragraph ends and explicit breaks become newlines.
	paraEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)

	// The main part may be declared with its attributes in either order.
	partNameFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)
	typeFirst     = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"[^>]+PartName="([^"]+)"`)
)

// extractDOCX returns the whole Word file as a single part. Paragraphs are kept on
// separate lines so sentence splitting sees them. When the package has no readable
// text runs, lu4p/cat gets a second try.
func extractDOCX(content []byte) ([]part, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}

	docPath := mainDocumentPath(zr)
	if docPath == "" {
		docPath = docxBodyPath
	}
	body, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, err
	}

	text := docxText(body)
	if strings.TrimSpace(text) == "" {
		if alt, err := cat.FromBytes(content); err == nil {
			text = alt
		}
	}
	return []part{{text: text}}, nil
}

func docxText(body []byte) string {
	var b strings.Builder
	for _, para := range paraEnd.Split(string(body), -1) {
		runs := wtTag.FindAllStringSubmatch(para, -1)
		if len(runs) == 0 {
			continue
		}
		for _, r := range runs {
			b.WriteString(html.UnescapeString(r[1]))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// mainDocumentPath reads [Content_Types].xml and returns the main part name without
// its leading slash, or "" when none is declared.
func mainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil {
		return ""
	}
	for _, re := range []*regexp.Regexp{partNameFirst, typeFirst} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
