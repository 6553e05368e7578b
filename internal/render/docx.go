package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"

	liftErrors "resumelift/internal/errors"
)

const wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DOCX renders content as a minimal WordprocessingML package: one part per
// the OOXML spec's minimum viable document, one <w:p> per paragraph.
func DOCX(content string) ([]byte, error) {
	var output bytes.Buffer
	writer := zip.NewWriter(&output)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML(content)},
	}

	for _, part := range parts {
		dst, err := writer.Create(part.name)
		if err != nil {
			return nil, liftErrors.NewInternalError(liftErrors.ErrCodeRenderFailed,
				"Failed to render DOCX document", err).
				WithContext("part", part.name)
		}
		if _, err := dst.Write([]byte(part.body)); err != nil {
			return nil, liftErrors.NewInternalError(liftErrors.ErrCodeRenderFailed,
				"Failed to render DOCX document", err).
				WithContext("part", part.name)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, liftErrors.NewInternalError(liftErrors.ErrCodeRenderFailed,
			"Failed to render DOCX document", err)
	}

	return output.Bytes(), nil
}

func documentXML(content string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="` + wmlNamespace + `"><w:body>`)

	for _, section := range splitSections(content) {
		b.WriteString("<w:p>")
		if isHeading(section) {
			b.WriteString("<w:pPr><w:rPr><w:b/></w:rPr></w:pPr>")
		}
		b.WriteString("<w:r>")
		if isHeading(section) {
			b.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		// Lines inside one paragraph become explicit breaks.
		for i, line := range strings.Split(section, "\n") {
			if i > 0 {
				b.WriteString("<w:br/>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			b.WriteString(escapeXML(line))
			b.WriteString("</w:t>")
		}
		b.WriteString("</w:r></w:p>")
	}

	b.WriteString("</w:body></w:document>")
	return b.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
