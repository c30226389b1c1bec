package docimport

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file extensions the importer will pick up.
var SupportedExtensions = []string{".pdf"}

// Result holds everything extracted from a document, ready to become a
// library entry.
type Result struct {
	Title      string
	Content    string
	TotalPages int
	CoverImage []byte
}

// Importer runs an Extractor over a file and assembles the Result.
type Importer struct {
	extractor Extractor
	logger    *slog.Logger
}

func NewImporter(extractor Extractor, logger *slog.Logger) *Importer {
	return &Importer{
		extractor: extractor,
		logger:    logger,
	}
}

// Supported reports whether the file looks importable by extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Import extracts a document. Text and page count are required; a missing
// cover only degrades the result.
func (i *Importer) Import(ctx context.Context, path string) (*Result, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}

	text, err := i.extractor.Text(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	pages, err := i.extractor.PageCount(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("count pages in %s: %w", filepath.Base(path), err)
	}
	if pages < 1 {
		pages = 1
	}

	result := &Result{
		Title:      TitleFromFilename(path),
		Content:    text,
		TotalPages: pages,
	}

	cover, err := i.extractor.CoverImage(ctx, path)
	if err != nil {
		i.logger.Warn("cover extraction failed, importing without cover",
			"file", filepath.Base(path), "error", err)
	} else {
		result.CoverImage = cover
	}

	return result, nil
}

// TitleFromFilename derives a human title from a file path: extension
// dropped, separators spaced out, words capitalized.
func TitleFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.Join(strings.Fields(name), " ")

	words := strings.Fields(name)
	for idx, word := range words {
		runes := []rune(word)
		words[idx] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = "Untitled Document"
	}
	return title
}
