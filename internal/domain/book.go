// Package domain contains the core business entities for the reading tracker.
package domain

import (
	"fmt"
	"time"
)

// ReadingStatus describes where a book sits in the reader's life.
type ReadingStatus string

const (
	// StatusToRead means the book has not been started.
	StatusToRead ReadingStatus = "to-read"
	// StatusReading means the book is in progress.
	StatusReading ReadingStatus = "reading"
	// StatusFinished means the book has been read cover to cover.
	StatusFinished ReadingStatus = "finished"
)

// StatusForPage derives the reading status from a page position.
// This is the single source of truth for the status field: finished iff
// currentPage == totalPages, to-read iff currentPage == 0, reading otherwise.
func StatusForPage(currentPage, totalPages int) ReadingStatus {
	switch {
	case totalPages > 0 && currentPage >= totalPages:
		return StatusFinished
	case currentPage <= 0:
		return StatusToRead
	default:
		return StatusReading
	}
}

// Book represents a book in the personal library.
//
// CurrentPage is on the whole-book page scale (0..TotalPages), not an index
// into the reader's internal pagination. Content is the optional full text
// blob used by the immersive reader.
type Book struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	CoverImage  string        `json:"cover_image"`
	Summary     string        `json:"summary"`
	TotalPages  int           `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	Status      ReadingStatus `json:"status"`
	Quotes      []string      `json:"quotes"`
	Content     string        `json:"content,omitempty"`
	AddedAt     time.Time     `json:"added_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SetCurrentPage moves the whole-book page position and recomputes the
// status. Status must never be written independently of this method;
// keeping the pair consistent here eliminates the drift between the
// reader's scaled mapping and the manual slider.
func (b *Book) SetCurrentPage(page int) error {
	if page < 0 || page > b.TotalPages {
		return fmt.Errorf("page %d out of range 0..%d", page, b.TotalPages)
	}
	b.CurrentPage = page
	b.Status = StatusForPage(page, b.TotalPages)
	return nil
}

// MarkFinished jumps the book to its last page.
func (b *Book) MarkFinished() {
	b.CurrentPage = b.TotalPages
	b.Status = StatusFinished
}

// Touch updates the modification timestamp.
func (b *Book) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// ProgressPercent reports completion as 0..100 for the detail view.
func (b *Book) ProgressPercent() float64 {
	if b.TotalPages <= 0 {
		return 0
	}
	return float64(b.CurrentPage) / float64(b.TotalPages) * 100
}

// HasContent reports whether the immersive reader can open this book.
func (b *Book) HasContent() bool {
	return b.Content != ""
}

// Normalize repairs a book loaded from storage: clamps the page position
// into range and rederives the status. Records written by older builds may
// carry an inconsistent stored status.
func (b *Book) Normalize() {
	if b.CurrentPage < 0 {
		b.CurrentPage = 0
	}
	if b.TotalPages > 0 && b.CurrentPage > b.TotalPages {
		b.CurrentPage = b.TotalPages
	}
	if b.Quotes == nil {
		b.Quotes = []string{}
	}
	b.Status = StatusForPage(b.CurrentPage, b.TotalPages)
}
