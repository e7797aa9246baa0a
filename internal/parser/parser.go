package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Page is the flat text extracted from one uploaded file: a title plus the
// page body with paragraphs separated by blank lines. Grammar analysis does
// not care about document structure, so headings are folded into the body in
// reading order.
type Page struct {
	Title string
	Text  string
}

// Parser converts raw document bytes into a Page.
type Parser interface {
	Parse(r io.Reader, filename string) (*Page, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// Options adjusts parser construction.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when library
	// extraction fails.
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}
