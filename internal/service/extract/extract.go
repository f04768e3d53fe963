package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format tags a supported document encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatDOCX     Format = "docx"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned when neither the MIME type nor the file
// extension selects a handler.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError reports a local read or parse failure for a recognised format.
type ExtractionError struct {
	Format Format
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Format, filepath.Base(e.Path), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type handler func(ctx context.Context, path string) (string, error)

type rule struct {
	format Format
	match  func(mimeType, ext string) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{FormatCSV, func(mt, ext string) bool {
		return mt == "text/csv" || (mt == "text/plain" && ext == ".csv")
	}},
	{FormatDOCX, func(mt, ext string) bool {
		return strings.Contains(mt, "wordprocessingml") || ext == ".docx"
	}},
	{FormatText, func(mt, ext string) bool {
		return mt == "text/plain" || ext == ".txt"
	}},
	{FormatHTML, func(mt, ext string) bool {
		return mt == "text/html" || ext == ".html" || ext == ".htm"
	}},
	{FormatMarkdown, func(mt, ext string) bool {
		return mt == "text/markdown" || ext == ".md" || ext == ".markdown"
	}},
}

// Detect picks the format for a stored file from its declared MIME type and
// path suffix.
func Detect(path, mimeType string) (Format, error) {
	mt := normalizeMIME(mimeType)
	ext := strings.ToLower(filepath.Ext(path))
	for _, r := range rules {
		if r.match(mt, ext) {
			return r.format, nil
		}
	}
	return "", fmt.Errorf("%w: mime %q, extension %q", ErrUnsupportedFormat, mimeType, ext)
}

func normalizeMIME(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Extractor converts stored files into plain text. It never modifies the source file.
type Extractor struct {
	handlers map[Format]handler
}

// New builds an Extractor with every supported format registered.
func New(ctx context.Context) (*Extractor, error) {
	text, err := newTextHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("init text loader: %w", err)
	}
	return &Extractor{
		handlers: map[Format]handler{
			FormatCSV:      extractCSV,
			FormatDOCX:     extractDOCX,
			FormatText:     text,
			FormatHTML:     extractHTML,
			FormatMarkdown: text,
		},
	}, nil
}

// Extract returns the plain-text rendering of the file at path.
func (e *Extractor) Extract(ctx context.Context, path, mimeType string) (string, error) {
	format, err := Detect(path, mimeType)
	if err != nil {
		return "", err
	}
	h, ok := e.handlers[format]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	text, err := h(ctx, path)
	if err != nil {
		return "", &ExtractionError{Format: format, Path: path, Err: err}
	}
	return text, nil
}
