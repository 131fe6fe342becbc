// Package segment splits page-tagged document text into bounded, overlapping
// chunks for independent LLM analysis.
package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Defaults for Segmenter.
const (
	DefaultMaxChars     = 8000
	DefaultOverlapChars = 1000
)

// Separator joins consecutive segments inside a chunk.
const Separator = "\n\n"

var pageMarker = regexp.MustCompile(`--- Page (\d+) ---`)

// PageMarker returns the marker line that opens page n.
func PageMarker(n int) string {
	return "--- Page " + strconv.Itoa(n) + " ---"
}

// Segment is an atomic paragraph or block of text and the page it came from.
// Page is 0 when unknown.
type Segment struct {
	Page int
	Text string
}

// Chunk is a bounded slice of document text ready for extraction.
type Chunk struct {
	ID              string `json:"chunk_id"`
	Content         string `json:"content"`
	SourcePageStart string `json:"source_page_start"`
}

// Segmenter accumulates segments into chunks of roughly MaxChars characters,
// carrying the trailing OverlapChars of each chunk into the next. Lengths
// count runes.
type Segmenter struct {
	MaxChars     int
	OverlapChars int
	// NewID mints chunk ids. Nil uses random UUIDs.
	NewID func() string
}

// New returns a Segmenter with the given budgets; non-positive values use defaults.
func New(maxChars, overlapChars int) Segmenter {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlapChars < 0 {
		overlapChars = DefaultOverlapChars
	}
	return Segmenter{MaxChars: maxChars, OverlapChars: overlapChars}
}

type buffer struct {
	b         strings.Builder
	runes     int
	firstPage int
	// seeded is set when the buffer opens with the previous chunk's tail,
	// which must survive finalize untrimmed.
	seeded bool
}

func (buf *buffer) empty() bool { return buf.runes == 0 }

func (buf *buffer) append(text string, page int) {
	if buf.empty() {
		buf.firstPage = page
	} else {
		buf.b.WriteString(Separator)
		buf.runes += utf8.RuneCountInString(Separator)
	}
	buf.b.WriteString(text)
	buf.runes += utf8.RuneCountInString(text)
}

func (buf *buffer) reset() {
	buf.b.Reset()
	buf.runes = 0
	buf.firstPage = 0
	buf.seeded = false
}

// Segment runs the chunking pass. Whitespace-only segments are skipped. A
// single segment longer than MaxChars is kept whole.
func (s Segmenter) Segment(segments []Segment) []Chunk {
	maxChars := s.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	overlap := s.OverlapChars
	if overlap < 0 {
		overlap = 0
	}
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var chunks []Chunk
	var buf buffer
	lastPage := 0

	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segLen := utf8.RuneCountInString(seg.Text)
		if !buf.empty() && buf.runes+segLen > maxChars {
			chunk := finalize(&buf, newID)
			chunks = append(chunks, chunk)
			buf.reset()
			if tail := lastRunes(chunk.Content, overlap); tail != "" {
				buf.append(tail, lastPage)
				buf.seeded = true
			}
		}
		buf.append(seg.Text, seg.Page)
		lastPage = seg.Page
	}
	if !buf.empty() {
		chunks = append(chunks, finalize(&buf, newID))
	}
	return chunks
}

func finalize(buf *buffer, newID func() string) Chunk {
	content := buf.b.String()
	trimmed := strings.TrimRightFunc(content, unicode.IsSpace)
	if !buf.seeded {
		trimmed = strings.TrimLeftFunc(trimmed, unicode.IsSpace)
	}
	return Chunk{
		ID:              newID(),
		Content:         trimmed,
		SourcePageStart: sourcePage(content, buf.firstPage),
	}
}

// sourcePage returns the first page marker number in content, else the
// fallback page tag, else "1".
func sourcePage(content string, fallback int) string {
	if m := pageMarker.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if fallback > 0 {
		return strconv.Itoa(fallback)
	}
	return "1"
}

// lastRunes returns the trailing n runes of s.
func lastRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := len(s); i > 0; {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		count++
		if count == n {
			return s[i:]
		}
	}
	return s
}
