// Package extractor turns email attachments into plain text for the
// extraction oracle. PDF and Word documents are parsed in process; plain
// text and CSV are decoded directly; spreadsheets get a degraded raw read.
package extractor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dslipak/pdf"
	"github.com/fumiama/go-docx"
	"github.com/gabriel-vasile/mimetype"

	"github.com/procureflow/procureflow/pkg/textx"
)

// spreadsheetPeekBytes bounds the raw read of binary spreadsheet formats.
const spreadsheetPeekBytes = 10 * 1024

// Extractor implements domain.ContentExtractor with per-format dispatch.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns plain text for a single attachment. An empty string with a
// nil error means the attachment carries no extractable content; a non-nil
// error means this format should have worked and the payload is unreadable.
func (e *Extractor) Extract(contentType, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ct := strings.ToLower(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = strings.ToLower(mimetype.Detect(data).String())
	}
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)
	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		text, err = extractPDF(data)
	case strings.Contains(ct, "word") || strings.Contains(ct, "msword") ||
		strings.Contains(ct, "officedocument.wordprocessingml") ||
		ext == ".doc" || ext == ".docx":
		text, err = extractWord(data)
	case strings.HasPrefix(ct, "text/") || ext == ".txt" || ext == ".csv":
		text = decodeUTF8(data)
	case strings.Contains(ct, "spreadsheet") || strings.Contains(ct, "excel") ||
		ext == ".xlsx" || ext == ".xls":
		// No structured spreadsheet parsing; a bounded raw read still lets
		// the oracle pick up embedded strings such as totals.
		peek := data
		if len(peek) > spreadsheetPeekBytes {
			peek = peek[:spreadsheetPeekBytes]
		}
		text = decodeUTF8(peek)
	default:
		return "", nil
	}
	if err != nil {
		return "", err
	}

	cleaned := strings.Join(strings.Fields(textx.SanitizeText(text)), " ")
	return cleaned, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("op=extract.pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("op=extract.pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("op=extract.pdf read: %w", err)
	}
	return string(b), nil
}

func extractWord(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("op=extract.docx: %w", err)
	}
	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch item.(type) {
		case *docx.Paragraph, *docx.Table:
			fmt.Fprintln(&sb, item)
		}
	}
	return sb.String(), nil
}

// decodeUTF8 keeps valid UTF-8 and drops anything else byte by byte.
func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var sb strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		data = data[size:]
	}
	return sb.String()
}
