// Package docimport extracts text and cover art from documents dropped into
// the import inbox. Extraction shells out to poppler's command line tools,
// behind an interface so tests and alternative backends can substitute it.
package docimport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Extractor pulls importable pieces out of a document file.
type Extractor interface {
	// PageCount returns the document's printed page count.
	PageCount(ctx context.Context, path string) (int, error)
	// Text extracts the full plain text.
	Text(ctx context.Context, path string) (string, error)
	// CoverImage rasterizes the first page to JPEG bytes.
	CoverImage(ctx context.Context, path string) ([]byte, error)
}

// PopplerExtractor implements Extractor with pdfinfo, pdftotext, and
// pdftoppm.
type PopplerExtractor struct {
	pdfinfoPath   string
	pdftotextPath string
	pdftoppmPath  string
	logger        *slog.Logger
}

// PopplerOptions overrides tool auto-detection. Empty fields fall back to
// PATH lookup.
type PopplerOptions struct {
	PdftotextPath string
	PdftoppmPath  string
}

// NewPopplerExtractor locates the poppler tools on PATH, honoring any
// configured overrides.
func NewPopplerExtractor(opts PopplerOptions, logger *slog.Logger) (*PopplerExtractor, error) {
	pdfinfo, err := exec.LookPath("pdfinfo")
	if err != nil {
		return nil, fmt.Errorf("pdfinfo not found in PATH: %w", err)
	}
	pdftotext := opts.PdftotextPath
	if pdftotext == "" {
		if pdftotext, err = exec.LookPath("pdftotext"); err != nil {
			return nil, fmt.Errorf("pdftotext not found in PATH: %w", err)
		}
	}
	pdftoppm := opts.PdftoppmPath
	if pdftoppm == "" {
		if pdftoppm, err = exec.LookPath("pdftoppm"); err != nil {
			return nil, fmt.Errorf("pdftoppm not found in PATH: %w", err)
		}
	}

	return &PopplerExtractor{
		pdfinfoPath:   pdfinfo,
		pdftotextPath: pdftotext,
		pdftoppmPath:  pdftoppm,
		logger:        logger,
	}, nil
}

// PageCount implements Extractor.
func (p *PopplerExtractor) PageCount(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, p.pdfinfoPath, path) //nolint:gosec // pdfinfoPath is from exec.LookPath

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w", err)
	}

	count, err := parsePageCount(string(output))
	if err != nil {
		return 0, fmt.Errorf("parse pdfinfo output: %w", err)
	}
	return count, nil
}

// parsePageCount extracts the Pages field from pdfinfo output.
func parsePageCount(output string) (int, error) {
	for line := range strings.Lines(output) {
		name, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(name) != "Pages" {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("bad page count %q: %w", strings.TrimSpace(value), err)
		}
		return count, nil
	}
	return 0, fmt.Errorf("no Pages field in pdfinfo output")
}

// Text implements Extractor. Output goes through stdout to avoid temp files.
func (p *PopplerExtractor) Text(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, p.pdftotextPath, //nolint:gosec // pdftotextPath is from exec.LookPath
		"-enc", "UTF-8",
		path,
		"-", // stdout
	)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(output), nil
}

// CoverImage implements Extractor. pdftoppm only writes to files, so the
// raster goes through a temp directory.
func (p *PopplerExtractor) CoverImage(ctx context.Context, path string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "docimport-cover-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPrefix := filepath.Join(tmpDir, "cover")
	cmd := exec.CommandContext(ctx, p.pdftoppmPath, //nolint:gosec // pdftoppmPath is from exec.LookPath
		"-jpeg",
		"-f", "1",
		"-l", "1",
		"-singlefile",
		"-scale-to", "600",
		path,
		outPrefix,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(outPrefix + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("read rasterized cover: %w", err)
	}

	if p.logger != nil {
		p.logger.Debug("rasterized document cover", "path", path, "bytes", len(data))
	}
	return data, nil
}
