package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/hyperjump/kotae/internal/chunk"
)

// extractPDF extracts text page by page and chunks each page separately so
// every chunk carries its page number. A page that fails to decode becomes a
// placeholder chunk; a document that fails to open becomes a placeholder
// result.
func (e *Extractor) extractPDF(content []byte) Result {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return e.placeholder(fmt.Sprintf("[PDF decode error: %v]", err),
			map[string]interface{}{MetaType: "pdf", MetaError: "decode_error"})
	}

	var fullText strings.Builder
	var chunks []chunk.Piece
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			chunks = append(chunks, e.chunker.Split(
				fmt.Sprintf("[Page %d extraction error: %v]", i, err),
				map[string]interface{}{MetaType: "pdf", MetaPageNum: i, MetaError: "page_error"},
			)...)
			continue
		}
		fullText.WriteString(pageText)
		fullText.WriteByte('\n')
		chunks = append(chunks, e.chunker.Split(pageText,
			map[string]interface{}{MetaType: "pdf", MetaPageNum: i})...)
	}

	text := fullText.String()
	if strings.TrimSpace(text) == "" && len(chunks) == 0 {
		return e.placeholder("[PDF contains no extractable text]",
			map[string]interface{}{MetaType: "pdf", MetaError: "empty_result"})
	}
	return Result{Text: text, Chunks: reindex(chunks)}
}

// reindex rewrites chunk_index to be contiguous across all pages. Per-page
// chunking restarts the counter, but document-wide ordinals must be 0..N-1.
func reindex(chunks []chunk.Piece) []chunk.Piece {
	for i := range chunks {
		chunks[i].Metadata[chunk.MetaChunkIndex] = i
	}
	return chunks
}
