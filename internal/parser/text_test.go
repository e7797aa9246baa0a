package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	page, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", page.Title)
	}

	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if page.Text != want {
		t.Errorf("expected text %q, got %q", want, page.Text)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	page, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", page.Title)
	}
	if page.Text != "" {
		t.Errorf("expected empty text, got %q", page.Text)
	}
}

func TestTextParser_SingleLine(t *testing.T) {
	p := &TextParser{}
	page, err := p.Parse(strings.NewReader("Hello world"), "single.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "single" {
		t.Errorf("expected title %q, got %q", "single", page.Title)
	}
	if page.Text != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", page.Text)
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	input := "Para one.\n\n\n\nPara two."
	p := &TextParser{}
	page, err := p.Parse(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Text != "Para one.\n\nPara two." {
		t.Errorf("expected collapsed blank lines, got %q", page.Text)
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	page, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Text != "Para one.\n\nPara two." {
		t.Errorf("expected 2 paragraphs, got %q", page.Text)
	}
}
