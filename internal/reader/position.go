package reader

import (
	"math"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// Position is a committed reader position translated to the whole-book scale.
type Position struct {
	WholeBookPage int                  `json:"whole_book_page"`
	Status        domain.ReadingStatus `json:"status"`
}

// MapPosition converts an internal pagination index into the user-facing
// whole-book page count and the reading status it implies. pageIndex is
// zero-based within pageCount generated pages; totalPages is the book's
// published page count. Status comes from the same derivation the manual
// progress slider uses, so the two paths can never disagree.
func MapPosition(pageIndex, pageCount, totalPages int) Position {
	if pageCount <= 0 || totalPages <= 0 {
		return Position{WholeBookPage: 0, Status: domain.StatusToRead}
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageIndex >= pageCount {
		pageIndex = pageCount - 1
	}

	page := int(math.Round(float64(pageIndex+1) / float64(pageCount) * float64(totalPages)))
	if page > totalPages {
		page = totalPages
	}
	return Position{
		WholeBookPage: page,
		Status:        domain.StatusForPage(page, totalPages),
	}
}
