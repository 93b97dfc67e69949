package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	wordDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	wordMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t>text</w:t> including attributed forms such as
// <w:t xml:space="preserve">.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

var (
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(wordMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(wordMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// extractWord extracts text from a .docx (OOXML zip). All <w:t> text nodes
// are collected so content survives regardless of paragraph/run attributes.
func (e *Extractor) extractWord(content []byte) Result {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return e.placeholder(fmt.Sprintf("[Word decode error: %v]", err),
			map[string]interface{}{MetaType: "word", MetaError: "decode_error"})
	}

	docPath := findWordMainDocumentPath(zr)
	if docPath == "" {
		docPath = wordDocumentXMLPath
	}

	docXML := readZipFile(zr, docPath)
	if docXML == nil {
		return e.placeholder(fmt.Sprintf("[Word document body %s not found]", docPath),
			map[string]interface{}{MetaType: "word", MetaError: "missing_body"})
	}

	parts := wtTag.FindAllSubmatch(docXML, -1)
	if len(parts) == 0 {
		return e.placeholder("[Word document contains no extractable text]",
			map[string]interface{}{MetaType: "word", MetaError: "empty_result"})
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(bytes.TrimSpace(p[1]))
	}
	text := strings.TrimSpace(b.String())
	return Result{
		Text:   text,
		Chunks: e.chunker.Split(text, map[string]interface{}{MetaType: "word"}),
	}
}

// findWordMainDocumentPath resolves the main document part from
// [Content_Types].xml; returns "" when it cannot be determined.
func findWordMainDocumentPath(zr *zip.Reader) string {
	data := readZipFile(zr, contentTypesPath)
	if data == nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil
		}
		_ = rc.Close()
		return buf.Bytes()
	}
	return nil
}
