package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"resumelift/internal/errors"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Experienced backend engineer with eight years of Go.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Built distributed systems and gRPC services.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDOCX(t *testing.T) {
	e := New(nil)
	data := buildDOCX(t, sampleDocumentXML)

	text, err := e.Extract(context.Background(), data, FormatDOCX)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !strings.Contains(text, "Experienced backend engineer") {
		t.Errorf("extracted text missing first paragraph: %q", text)
	}
	if !strings.Contains(text, "gRPC services") {
		t.Errorf("extracted text missing second paragraph: %q", text)
	}
	if !strings.Contains(text, "\n") {
		t.Errorf("expected newline between paragraphs, got %q", text)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), []byte("plain text"), FormatUnsupported)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !errors.IsCode(err, errors.ErrCodeUnsupportedFormat) {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %v", err)
	}
}

func TestExtractNearEmptyShortCircuits(t *testing.T) {
	e := New(nil)
	data := buildDOCX(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>x</w:t></w:r></w:p></w:body></w:document>`)

	_, err := e.Extract(context.Background(), data, FormatDOCX)
	if err == nil {
		t.Fatal("expected error for near-empty extraction")
	}
	if !errors.IsCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("expected EXTRACTION_FAILED, got %v", err)
	}
}

func TestExtractCorruptDOCX(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), []byte("definitely not a zip"), FormatDOCX)
	if err == nil {
		t.Fatal("expected error for corrupt document")
	}
	if !errors.IsCode(err, errors.ErrCodeExtractionFailed) {
		t.Errorf("expected EXTRACTION_FAILED, got %v", err)
	}
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		expected Format
	}{
		{"resume.pdf", FormatPDF},
		{"Resume.PDF", FormatPDF},
		{"resume.docx", FormatDOCX},
		{"resume.doc", FormatDOCX},
		{"resume.txt", FormatUnsupported},
		{"resume", FormatUnsupported},
	}

	for _, tt := range tests {
		if got := FormatFromFilename(tt.name); got != tt.expected {
			t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.name, got, tt.expected)
		}
	}
}
