// Package reader implements the text side of the immersive reader:
// pagination of a book's content into fixed-size word-safe pages,
// segmentation of a page into playable paragraphs, and the mapping from
// reader position back to the whole-book page scale.
package reader

import "strings"

// DefaultPageSize is the page window used by the reader, in characters.
const DefaultPageSize = 1800

// Paginate splits text into pages of at most pageSize characters without
// splitting words. The window's right edge is pulled back to the last space
// inside the window; if a run of pageSize characters has no space at all the
// full window is kept and the word is split. Pages are trimmed of
// surrounding whitespace. Pure function: same (text, pageSize) always yields
// the same pages, and pagination is recomputed from scratch whenever content
// changes.
func Paginate(text string, pageSize int) []string {
	if text == "" || pageSize <= 0 {
		return nil
	}

	var pages []string
	pos := 0
	for pos < len(text) {
		end := pos + pageSize
		if end >= len(text) {
			end = len(text)
		} else {
			// Pull the cut back to a word boundary when one exists
			// inside the current window.
			if cut := strings.LastIndexByte(text[pos:end], ' '); cut > 0 {
				end = pos + cut
			}
		}
		pages = append(pages, strings.TrimSpace(text[pos:end]))
		pos = end
	}
	return pages
}

// SegmentParagraphs splits a page into its playable paragraph units: one per
// line, blank lines discarded. Re-run whenever the displayed page changes.
func SegmentParagraphs(page string) []string {
	if page == "" {
		return nil
	}
	var paragraphs []string
	for line := range strings.Lines(page) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
