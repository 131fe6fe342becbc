package segment

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("chunk-%d", n)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	s := New(0, -1)
	assert.Empty(t, s.Segment(nil))
	assert.Empty(t, s.Segment([]Segment{{Page: 1, Text: "   "}, {Page: 2, Text: "\n\t"}}))
}

func TestSegmentShortTextYieldsOneChunk(t *testing.T) {
	s := Segmenter{MaxChars: DefaultMaxChars, OverlapChars: DefaultOverlapChars, NewID: sequentialIDs()}
	chunks := s.Segment([]Segment{
		{Page: 1, Text: "  --- Page 1 ---\nThe controller shall keep records.  "},
		{Page: 1, Text: "   "},
		{Page: 1, Text: "Records are retained for five years."},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, "chunk-1", chunks[0].ID)
	assert.Equal(t, "--- Page 1 ---\nThe controller shall keep records.  \n\nRecords are retained for five years.", chunks[0].Content)
	assert.Equal(t, "1", chunks[0].SourcePageStart)
}

func TestSegmentSplitsWithOverlap(t *testing.T) {
	s := Segmenter{MaxChars: 20, OverlapChars: 5, NewID: sequentialIDs()}
	a := strings.Repeat("a", 12)
	b := strings.Repeat("b", 12)
	c := strings.Repeat("c", 12)

	chunks := s.Segment([]Segment{{Page: 1, Text: a}, {Page: 1, Text: b}, {Page: 2, Text: c}})

	require.Len(t, chunks, 3)
	assert.Equal(t, a, chunks[0].Content)
	assert.Equal(t, "aaaaa\n\n"+b, chunks[1].Content)
	assert.Equal(t, "bbbbb\n\n"+c, chunks[2].Content)
	for i := 0; i+1 < len(chunks); i++ {
		tail := lastRunes(chunks[i].Content, s.OverlapChars)
		assert.True(t, strings.HasPrefix(chunks[i+1].Content, tail), "chunk %d does not start with tail of chunk %d", i+1, i)
	}
}

func TestSegmentOverlapStartingInSeparatorIsKept(t *testing.T) {
	s := Segmenter{MaxChars: 20, OverlapChars: 5, NewID: sequentialIDs()}
	a := strings.Repeat("a", 11)
	c := strings.Repeat("c", 12)

	chunks := s.Segment([]Segment{{Page: 1, Text: a}, {Page: 1, Text: "bbb"}, {Page: 2, Text: c}})

	require.Len(t, chunks, 2)
	assert.Equal(t, a+"\n\nbbb", chunks[0].Content)
	tail := lastRunes(chunks[0].Content, s.OverlapChars)
	require.Equal(t, "\n\nbbb", tail)
	assert.Equal(t, tail+"\n\n"+c, chunks[1].Content)
}

func TestSegmentWithoutOverlapReconstructsText(t *testing.T) {
	s := Segmenter{MaxChars: 40, OverlapChars: 0}
	var segs []Segment
	var parts []string
	for i := 0; i < 25; i++ {
		text := fmt.Sprintf("Obligation %02d applies.", i)
		segs = append(segs, Segment{Page: i/5 + 1, Text: text})
		parts = append(parts, text)
	}

	chunks := s.Segment(segs)
	require.Greater(t, len(chunks), 1)

	var joined []string
	for _, c := range chunks {
		joined = append(joined, c.Content)
	}
	assert.Equal(t, strings.Join(parts, Separator), strings.Join(joined, Separator))
}

func TestSegmentOversizeSegmentKeptWhole(t *testing.T) {
	s := Segmenter{MaxChars: 10, OverlapChars: 2}
	long := strings.Repeat("x", 50)

	chunks := s.Segment([]Segment{{Page: 1, Text: long}})
	require.Len(t, chunks, 1)
	assert.Equal(t, long, chunks[0].Content)

	chunks = s.Segment([]Segment{{Page: 1, Text: "short"}, {Page: 1, Text: long}})
	require.Len(t, chunks, 2)
	assert.Equal(t, "short", chunks[0].Content)
	assert.Equal(t, "rt\n\n"+long, chunks[1].Content)
}

func TestSegmentCountsRunesNotBytes(t *testing.T) {
	s := Segmenter{MaxChars: 10, OverlapChars: 3}
	word := strings.Repeat("é", 5)

	chunks := s.Segment([]Segment{{Page: 1, Text: word}, {Page: 1, Text: word}})
	require.Len(t, chunks, 1, "five plus five runes fits a ten rune budget")

	chunks = s.Segment([]Segment{{Page: 1, Text: "日本語のテキスト"}, {Page: 1, Text: "規則を守ること"}})
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content))
	}
	assert.True(t, strings.HasPrefix(chunks[1].Content, "キスト"))
}

func TestSegmentSourcePage(t *testing.T) {
	s := Segmenter{MaxChars: 30, OverlapChars: 0}

	chunks := s.Segment([]Segment{
		{Page: 1, Text: PageMarker(1) + "\nfirst page body"},
		{Page: 2, Text: PageMarker(2) + "\nsecond page body"},
		{Page: 3, Text: "no marker on this block"},
	})
	require.Len(t, chunks, 3)
	assert.Equal(t, "1", chunks[0].SourcePageStart)
	assert.Equal(t, "2", chunks[1].SourcePageStart)
	assert.Equal(t, "3", chunks[2].SourcePageStart, "falls back to the segment page tag")

	chunks = s.Segment([]Segment{{Page: 0, Text: "untagged text"}})
	require.Len(t, chunks, 1)
	assert.Equal(t, "1", chunks[0].SourcePageStart)
}

func TestSegmentDefaultIDsAreUUIDs(t *testing.T) {
	s := Segmenter{MaxChars: 5, OverlapChars: 0}
	chunks := s.Segment([]Segment{{Page: 1, Text: "alpha"}, {Page: 1, Text: "beta"}})
	require.Len(t, chunks, 2)
	seen := map[string]bool{}
	for _, c := range chunks {
		_, err := uuid.Parse(c.ID)
		require.NoError(t, err)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestLastRunes(t *testing.T) {
	assert.Equal(t, "", lastRunes("abc", 0))
	assert.Equal(t, "abc", lastRunes("abc", 10))
	assert.Equal(t, "bc", lastRunes("abc", 2))
	assert.Equal(t, "ü!", lastRunes("grüß dich ü!", 2))
}
