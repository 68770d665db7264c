package chunker

import (
	"log/slog"
	"strings"
	"testing"
)

func Test_Split_ShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()

	c := New(100, 20, slog.Default())

	tests := []struct {
		name string
		text string
	}{
		{name: "plain sentence", text: "The parallax of 61 Cygni was measured in 1838."},
		{name: "exactly chunk size", text: strings.Repeat("x", 100)},
		{name: "empty input", text: ""},
		{name: "whitespace only", text: "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Split(tt.text)
			if len(got) != 1 {
				t.Fatalf("want 1 chunk, got %d", len(got))
			}
			if got[0] != tt.text {
				t.Fatalf("short text must be returned unchanged, got %q", got[0])
			}
		})
	}
}

func Test_Split_PrefersSentenceBoundary(t *testing.T) {
	t.Parallel()

	c := New(20, 0, slog.Default())

	// The period at index 16 sits inside the sentence floor window
	// (0.7*20 = 14), so the cut lands right after it.
	got := c.Split("Alpha beta gamma. Delta epsilon zeta.")
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d: %q", len(got), got)
	}
	if got[0] != "Alpha beta gamma." {
		t.Fatalf("want cut after sentence terminal, got %q", got[0])
	}
	if got[1] != "Delta epsilon zeta." {
		t.Fatalf("want trimmed remainder, got %q", got[1])
	}
}

func Test_Split_FallsBackToWhitespace(t *testing.T) {
	t.Parallel()

	c := New(20, 0, slog.Default())

	// No sentence terminals anywhere; the space at index 17 clears the
	// whitespace floor (0.8*20 = 16), so the first chunk keeps the token whole.
	text := strings.Repeat("a", 17) + " bbbb cccc"
	got := c.Split(text)
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d: %q", len(got), got)
	}
	if got[0] != strings.Repeat("a", 17) {
		t.Fatalf("want cut at whitespace, got %q", got[0])
	}
	if got[1] != "bbbb cccc" {
		t.Fatalf("want trimmed remainder, got %q", got[1])
	}
}

func Test_Split_HardCutWhenNoBoundaryQualifies(t *testing.T) {
	t.Parallel()

	c := New(10, 2, slog.Default())

	got := c.Split(strings.Repeat("a", 25))
	if len(got) != 3 {
		t.Fatalf("want 3 chunks, got %d: %q", len(got), got)
	}
	for i, piece := range got {
		if len(piece) > 10 {
			t.Fatalf("chunk %d exceeds size: %d chars", i, len(piece))
		}
	}
	// With a hard cut the window slides back by exactly the overlap.
	if got[0][10-2:] != got[1][:2] {
		t.Fatalf("want 2-char overlap between chunks, got %q / %q", got[0], got[1])
	}
}

func Test_Split_BoundariesEarlierThanFloorsAreIgnored(t *testing.T) {
	t.Parallel()

	c := New(20, 5, slog.Default())

	// Every terminal and space in this text falls before the floors, so
	// each cut is a hard cut at start+size.
	got := c.Split("Sentence one. Sentence two. Sentence three.")
	if len(got) < 2 {
		t.Fatalf("want at least 2 chunks, got %d: %q", len(got), got)
	}
	for i, piece := range got {
		if len(piece) > 20 {
			t.Fatalf("chunk %d exceeds size: %q", i, piece)
		}
	}
}

func Test_Split_ChunksAreSubstringsOfInput(t *testing.T) {
	t.Parallel()

	c := New(50, 10, slog.Default())

	text := strings.Repeat("Proxima Centauri is the nearest star to the Sun. ", 8)
	for i, piece := range c.Split(text) {
		if !strings.Contains(text, piece) {
			t.Fatalf("chunk %d is not a substring of the input: %q", i, piece)
		}
	}
}

func Test_Split_IdempotentOnOwnOutput(t *testing.T) {
	t.Parallel()

	c := New(40, 8, slog.Default())

	text := strings.Repeat("Stellar spectra encode temperature and composition. ", 6)
	for i, piece := range c.Split(text) {
		again := c.Split(piece)
		if len(again) != 1 || again[0] != piece {
			t.Fatalf("re-splitting chunk %d changed it: %q -> %q", i, piece, again)
		}
	}
}

func Test_New_ClampsOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSize    int
		wantOverlap int
	}{
		{name: "overlap equal to size", size: 100, overlap: 100, wantSize: 100, wantOverlap: 10},
		{name: "overlap above size", size: 50, overlap: 500, wantSize: 50, wantOverlap: 5},
		{name: "negative overlap", size: 100, overlap: -1, wantSize: 100, wantOverlap: 0},
		{name: "non-positive size", size: 0, overlap: 200, wantSize: DefaultChunkSize, wantOverlap: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(tt.size, tt.overlap, slog.Default())
			if c.Size() != tt.wantSize {
				t.Fatalf("want size %d, got %d", tt.wantSize, c.Size())
			}
			if c.Overlap() != tt.wantOverlap {
				t.Fatalf("want overlap %d, got %d", tt.wantOverlap, c.Overlap())
			}
		})
	}
}

func Test_ChunkDocument_DecoratesChunks(t *testing.T) {
	t.Parallel()

	c := New(20, 0, slog.Default())

	text := "Alpha beta gamma. Delta epsilon zeta."
	got := c.ChunkDocument("doc-1", "notes.txt", text)
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	for i, ch := range got {
		if ch.ID != "" {
			t.Fatalf("chunk %d: id must be left for the store to assign, got %q", i, ch.ID)
		}
		if ch.DocumentID != "doc-1" || ch.Source != "notes.txt" {
			t.Fatalf("chunk %d: wrong provenance: %+v", i, ch)
		}
		if ch.SequenceIndex != i {
			t.Fatalf("chunk %d: want sequence %d, got %d", i, i, ch.SequenceIndex)
		}
		if ch.TotalChunks != 2 {
			t.Fatalf("chunk %d: want total 2, got %d", i, ch.TotalChunks)
		}
		if ch.CharLength != len(ch.Text) {
			t.Fatalf("chunk %d: char length %d does not match text %d", i, ch.CharLength, len(ch.Text))
		}
		if ch.Metadata["original_text_length"] != "37" {
			t.Fatalf("chunk %d: want original_text_length 37, got %q", i, ch.Metadata["original_text_length"])
		}
	}
}

func Test_ChunkDocument_WhitespaceOnlyYieldsNothing(t *testing.T) {
	t.Parallel()

	c := New(100, 20, slog.Default())

	if got := c.ChunkDocument("doc-1", "empty.txt", "  \n\t "); len(got) != 0 {
		t.Fatalf("want no chunks for whitespace-only input, got %d", len(got))
	}
}
