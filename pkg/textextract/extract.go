// Package textextract turns uploaded file bytes into plain text.
//
// PDF and DOCX are parsed with their real readers; every other input is
// treated as text and decoded as UTF-8, falling back to Latin-1, which
// cannot fail. ErrUnsupportedFormat is therefore only returned for a
// structured format whose parser rejects the bytes.
package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extract returns the plain text of the named file.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return decodeText(data), nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open PDF: %v", ErrUnsupportedFormat, err)
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open DOCX: %v", ErrUnsupportedFormat, err)
	}

	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", ErrUnsupportedFormat, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", ErrUnsupportedFormat, err)
		}
		return stripXMLTags(string(content)), nil
	}
	return "", fmt.Errorf("%w: DOCX has no document.xml", ErrUnsupportedFormat)
}

// decodeText decodes as UTF-8 when valid, Latin-1 otherwise. The Latin-1
// path maps every byte to a rune, so this never fails.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var buf strings.Builder
	buf.Grow(len(data))
	for _, b := range data {
		buf.WriteRune(rune(b))
	}
	return buf.String()
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
