package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"compliance-backend/internal/segment"
	"compliance-backend/internal/shared/telemetry"
)

// MaxSegmentChars caps a paragraph before it is split at line breaks.
const MaxSegmentChars = 2000

// ErrNoText is returned when no page yields readable text.
var ErrNoText = errors.New("no extractable text in document")

var blankLine = regexp.MustCompile(`\n[ \t\r\f]*\n`)

// Page is the plain text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// ExtractFile reads a PDF from disk and extracts its pages.
func ExtractFile(ctx context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return ExtractPages(ctx, data)
}

// ExtractPages returns the text of every readable page. Pages that fail to
// decode are skipped with a warning.
func ExtractPages(ctx context.Context, data []byte) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty pdf data")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			telemetry.Warn("pdf page skipped", map[string]any{"page": i, "error": err})
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if !hasText(pages) {
		return nil, ErrNoText
	}
	return pages, nil
}

// pageText guards against panics inside the content stream decoder.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page content: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}

func hasText(pages []Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// PlainText joins page text with newlines.
func PlainText(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// BuildSegments splits each page into paragraph segments tagged with the page
// number. The first segment of every page starts with the page marker line.
func BuildSegments(pages []Page) []segment.Segment {
	var out []segment.Segment
	for _, p := range pages {
		first := true
		for _, para := range splitParagraphs(p.Text) {
			if first {
				para = segment.PageMarker(p.Number) + "\n" + para
				first = false
			}
			out = append(out, segment.Segment{Page: p.Number, Text: para})
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range blankLine.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= MaxSegmentChars {
			out = append(out, para)
			continue
		}
		out = append(out, splitLines(para, MaxSegmentChars)...)
	}
	return out
}

// splitLines groups whole lines into blocks of at most limit runes. A single
// longer line becomes its own block.
func splitLines(para string, limit int) []string {
	var out []string
	var b strings.Builder
	size := 0
	for _, line := range strings.Split(para, "\n") {
		n := utf8.RuneCountInString(line)
		if size > 0 && size+1+n > limit {
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteByte('\n')
			size++
		}
		b.WriteString(line)
		size += n
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
