package docimport

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text     string
	textErr  error
	pages    int
	pagesErr error
	cover    []byte
	coverErr error
}

func (f *fakeExtractor) PageCount(_ context.Context, _ string) (int, error) {
	return f.pages, f.pagesErr
}

func (f *fakeExtractor) Text(_ context.Context, _ string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeExtractor) CoverImage(_ context.Context, _ string) ([]byte, error) {
	return f.cover, f.coverErr
}

func newTestImporter(extractor Extractor) *Importer {
	return NewImporter(extractor, slog.New(slog.DiscardHandler))
}

func TestImporter_Import(t *testing.T) {
	extractor := &fakeExtractor{
		text:  "Chapter one.\n\nIt begins.",
		pages: 42,
		cover: []byte{0xFF, 0xD8, 0xFF},
	}
	importer := newTestImporter(extractor)

	result, err := importer.Import(t.Context(), "/inbox/the_wind_in-the-willows.pdf")
	require.NoError(t, err)

	assert.Equal(t, "The Wind In The Willows", result.Title)
	assert.Equal(t, "Chapter one.\n\nIt begins.", result.Content)
	assert.Equal(t, 42, result.TotalPages)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, result.CoverImage)
}

func TestImporter_Import_UnsupportedExtension(t *testing.T) {
	importer := newTestImporter(&fakeExtractor{})

	_, err := importer.Import(t.Context(), "/inbox/notes.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestImporter_Import_EmptyText(t *testing.T) {
	importer := newTestImporter(&fakeExtractor{text: "   \n\t  ", pages: 3})

	_, err := importer.Import(t.Context(), "/inbox/scanned.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractable text")
}

func TestImporter_Import_TextError(t *testing.T) {
	importer := newTestImporter(&fakeExtractor{textErr: errors.New("corrupt xref")})

	_, err := importer.Import(t.Context(), "/inbox/broken.pdf")
	require.Error(t, err)
}

func TestImporter_Import_CoverFailureIsNonFatal(t *testing.T) {
	extractor := &fakeExtractor{
		text:     "Some text.",
		pages:    5,
		coverErr: errors.New("raster failed"),
	}
	importer := newTestImporter(extractor)

	result, err := importer.Import(t.Context(), "/inbox/plain.pdf")
	require.NoError(t, err)
	assert.Nil(t, result.CoverImage)
	assert.Equal(t, 5, result.TotalPages)
}

func TestImporter_Import_PageCountFloor(t *testing.T) {
	importer := newTestImporter(&fakeExtractor{text: "x", pages: 0})

	result, err := importer.Import(t.Context(), "/inbox/one-pager.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalPages)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("/a/b/book.pdf"))
	assert.True(t, Supported("BOOK.PDF"))
	assert.False(t, Supported("book.epub"))
	assert.False(t, Supported("book"))
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"moby_dick.pdf", "Moby Dick"},
		{"/inbox/a-tale-of-two-cities.pdf", "A Tale Of Two Cities"},
		{"Already Spaced.pdf", "Already Spaced"},
		{"__-.pdf", "Untitled Document"},
		{"dune  messiah.pdf", "Dune Messiah"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromFilename(tt.path))
		})
	}
}

func TestParsePageCount(t *testing.T) {
	output := "Title:          Dune\nAuthor:         Frank Herbert\nPages:          412\nEncrypted:      no\n"
	count, err := parsePageCount(output)
	require.NoError(t, err)
	assert.Equal(t, 412, count)
}

func TestParsePageCount_Missing(t *testing.T) {
	_, err := parsePageCount("Title: Dune\n")
	require.Error(t, err)
}
