package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// browserHeaders makes the fetch look like a regular browser; some sites
// serve bot requests an empty shell.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// extractWeb fetches a page, strips script/style/navigation chrome, and
// normalizes the remaining text into lines.
func (e *Extractor) extractWeb(ctx context.Context, pageURL string) Result {
	failMeta := func(reason string) map[string]interface{} {
		return map[string]interface{}{MetaType: "web", MetaURL: pageURL, MetaError: reason}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return e.placeholder(fmt.Sprintf("[Invalid URL: %v]", err), failMeta("invalid_url"))
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return e.placeholder(fmt.Sprintf("[Web fetch error: %v]", err), failMeta("fetch_error"))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return e.placeholder(fmt.Sprintf("[Web fetch failed: HTTP %d]", resp.StatusCode), failMeta("http_error"))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return e.placeholder(fmt.Sprintf("[HTML parse error: %v]", err), failMeta("parse_error"))
	}
	doc.Find("script, style, nav, footer, header").Remove()

	text := normalizeLines(doc.Find("body").Text())
	if text == "" {
		return e.placeholder("[Web page contains no extractable text]", failMeta("empty_result"))
	}
	return Result{
		Text:   text,
		Chunks: e.chunker.Split(text, map[string]interface{}{MetaType: "web", MetaURL: pageURL}),
	}
}

// normalizeLines collapses runs of whitespace within lines and drops blank
// lines, joining the remainder with newlines.
func normalizeLines(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}
