package extract

// extractImage returns a fixed placeholder until an OCR backend is wired in.
// TODO: integrate Clova OCR once the endpoint and secret are provisioned.
func (e *Extractor) extractImage() Result {
	text := "[Image OCR not yet implemented]"
	return Result{
		Text:   text,
		Chunks: e.chunker.Split(text, map[string]interface{}{MetaType: "image"}),
	}
}
