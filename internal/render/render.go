// Package render turns the plain-text artifacts of a session into
// downloadable PDF and DOCX documents. Content is treated as a sequence of
// paragraphs separated by blank lines; short upper-cased or colon-prefixed
// paragraphs are styled as headings.
package render

import (
	"bytes"
	"strings"
	"unicode"

	liftErrors "resumelift/internal/errors"
	"resumelift/internal/types"

	"github.com/go-pdf/fpdf"
)

// Format identifies a download file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat validates a format path segment.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF, FormatDOCX:
		return Format(s), nil
	default:
		return "", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Invalid file type: must be pdf or docx", nil).
			WithContext("file_type", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// Filename returns the attachment filename for a document kind.
func (f Format) Filename(kind types.DocumentKind) string {
	name := "cover_letter"
	if kind == types.DocumentResume {
		name = "optimized_resume"
	}
	return name + "." + string(f)
}

// Document renders content into the requested format.
func Document(content string, format Format) ([]byte, error) {
	switch format {
	case FormatPDF:
		return PDF(content)
	case FormatDOCX:
		return DOCX(content)
	default:
		return nil, liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest,
			"Invalid file type: must be pdf or docx", nil).
			WithContext("file_type", string(format))
	}
}

// PDF renders content as a US Letter PDF.
func PDF(content string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	for _, section := range splitSections(content) {
		if isHeading(section) {
			doc.SetFont("Helvetica", "B", 13)
			doc.MultiCell(0, 7, section, "", "L", false)
		} else {
			doc.SetFont("Helvetica", "", 11)
			doc.MultiCell(0, 5, section, "", "L", false)
		}
		doc.Ln(3)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, liftErrors.NewInternalError(liftErrors.ErrCodeRenderFailed,
			"Failed to render PDF document", err)
	}
	return buf.Bytes(), nil
}

func splitSections(content string) []string {
	raw := strings.Split(content, "\n\n")
	sections := make([]string, 0, len(raw))
	for _, section := range raw {
		section = strings.TrimRight(section, "\n ")
		if strings.TrimSpace(section) == "" {
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

// isHeading reports whether a section reads like a section heading: short
// and fully upper-cased, or led by a short colon-terminated label.
func isHeading(section string) bool {
	if len(section) < 50 && isUpper(section) {
		return true
	}
	if idx := strings.Index(section, ":"); idx >= 0 && idx < 20 {
		return true
	}
	return false
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
