package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"resumelift/internal/errors"
)

// Format is the declared container format of an uploaded document.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatUnsupported Format = "unsupported"
)

// minTextLength is the smallest extracted-text size accepted as a usable
// resume. Multi-column layouts and image-only PDFs can extract to nothing;
// that has to surface as a client-visible extraction failure.
const minTextLength = 30

// FormatFromFilename maps a file extension to a Format tag.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDOCX
	default:
		return FormatUnsupported
	}
}

// Extractor converts uploaded document bytes into plain text.
type Extractor struct {
	logger *errors.Logger
}

// New creates an Extractor.
func New(logger *errors.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract pulls plain text out of the given document bytes. The output is
// potentially lossy and is never revalidated beyond the near-empty check.
func (e *Extractor) Extract(ctx context.Context, data []byte, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var text string
	var err error
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		return "", errors.NewExtractionError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported document format: %s", format), nil)
	}
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("Could not extract text from %s document", format), err)
	}

	if len(strings.TrimSpace(text)) < minTextLength {
		return "", errors.NewExtractionError(errors.ErrCodeExtractionFailed,
			"Extracted text is empty or too short to be a resume", nil).
			WithContext("extracted_chars", len(text))
	}

	if e.logger != nil {
		e.logger.Debug("Document text extracted",
			"format", string(format),
			"chars", len(text))
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

// stripDocxXML collapses document.xml to its character data, inserting
// newlines at paragraph and line-break boundaries.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
