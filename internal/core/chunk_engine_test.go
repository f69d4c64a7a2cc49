// ABOUTME: Tests for ChunkEngine recursive splitting with overlap
// ABOUTME: Verifies separator hierarchy, bounds, overlap, and reconstruction

package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/harper/sitechat/internal/models"
)

func mustChunkEngine(t *testing.T, size, overlap int, seps ...string) *ChunkEngine {
	t.Helper()
	ce, err := NewChunkEngine(models.ChunkConfig{ChunkSize: size, Overlap: overlap, Separators: seps})
	if err != nil {
		t.Fatalf("NewChunkEngine() error = %v", err)
	}
	return ce
}

func TestNewChunkEngine_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ChunkConfig
	}{
		{"overlap equals size", models.ChunkConfig{ChunkSize: 10, Overlap: 10}},
		{"overlap exceeds size", models.ChunkConfig{ChunkSize: 10, Overlap: 11}},
		{"zero size", models.ChunkConfig{ChunkSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := NewChunkEngine(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if ce != nil {
				t.Error("expected nil engine on error")
			}
			var cfgErr *models.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %T", err)
			}
		})
	}
}

func TestSplit_WordOverlapExample(t *testing.T) {
	ce := mustChunkEngine(t, 9, 4, " ", "")

	got := ce.Split("AAAA BBBB CCCC DDDD")
	want := []string{"AAAA BBBB", "BBBB CCCC", "CCCC DDDD"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	ce := mustChunkEngine(t, 100, 10, models.DefaultSeparators...)

	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
		{"tabs and newlines", "\t\n\r\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if chunks := ce.Split(tt.text); len(chunks) != 0 {
				t.Errorf("expected no chunks, got %q", chunks)
			}
		})
	}
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	ce := mustChunkEngine(t, 500, 50, models.DefaultSeparators...)

	text := "Hello, I build distributed systems.\n\nI also write Go."
	chunks := ce.Split(text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want %q", chunks[0], text)
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	ce := mustChunkEngine(t, 30, 0, models.DefaultSeparators...)

	text := "First paragraph is here.\n\nSecond paragraph too.\n\nThird one."
	chunks := ce.Split(text)

	want := []string{"First paragraph is here.", "Second paragraph too.", "Third one."}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("Split() = %q, want %q", chunks, want)
	}
}

func TestSplit_RecursesIntoLongParagraph(t *testing.T) {
	ce := mustChunkEngine(t, 20, 0, models.DefaultSeparators...)

	text := "short\n\nthis paragraph is definitely longer than twenty"
	chunks := ce.Split(text)

	if len(chunks) < 3 {
		t.Fatalf("expected the long paragraph to be split, got %q", chunks)
	}
	if chunks[0] != "short" {
		t.Errorf("first chunk = %q, want %q", chunks[0], "short")
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 20 {
			t.Errorf("chunk %d exceeds size: %q", i, c)
		}
	}
}

func TestSplit_CharacterFallbackReconstructs(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"no overlap", "abcdefghijklmnopqrstuvwxyz", 5, 0},
		{"overlap two", "abcdefghij", 4, 2},
		{"overlap one", "0123456789abcdef", 6, 1},
		{"multibyte runes", "ääääööööüüüüßßßß", 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := mustChunkEngine(t, tt.size, tt.overlap, "")
			chunks := ce.Split(tt.text)
			if len(chunks) == 0 {
				t.Fatal("expected chunks")
			}

			var rebuilt strings.Builder
			for i, c := range chunks {
				n := utf8.RuneCountInString(c)
				if i < len(chunks)-1 && n > tt.size {
					t.Errorf("chunk %d length %d exceeds %d", i, n, tt.size)
				}
				if i == 0 {
					rebuilt.WriteString(c)
					continue
				}
				// Consecutive chunks share exactly the overlap
				prev := []rune(chunks[i-1])
				cur := []rune(c)
				shared := string(prev[len(prev)-tt.overlap:])
				if !strings.HasPrefix(c, shared) {
					t.Errorf("chunk %d %q does not start with overlap %q", i, c, shared)
				}
				rebuilt.WriteString(string(cur[tt.overlap:]))
			}

			if rebuilt.String() != tt.text {
				t.Errorf("reconstructed %q, want %q", rebuilt.String(), tt.text)
			}
		})
	}
}

func TestSplit_ImplicitCharacterFallback(t *testing.T) {
	// No empty separator configured: an unsplittable word is still cut to size
	ce := mustChunkEngine(t, 4, 0, " ")

	chunks := ce.Split("abcdefghij")
	want := []string{"abcd", "efgh", "ij"}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("Split() = %q, want %q", chunks, want)
	}
}

func TestSplit_DropsWhitespaceChunks(t *testing.T) {
	ce := mustChunkEngine(t, 5, 0, "\n", "")

	chunks := ce.Split("abc\n   \n\ndef")
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("unexpected whitespace chunk in %q", chunks)
		}
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %q", chunks)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	ce := mustChunkEngine(t, 40, 10, models.DefaultSeparators...)
	text := strings.Repeat("Go is expressive, concise, clean, and efficient. ", 20)

	first := ce.Split(text)
	second := ce.Split(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("Split() is not deterministic")
	}
}

func TestChunkPage_AssignsIndexes(t *testing.T) {
	ce := mustChunkEngine(t, 9, 4, " ", "")

	chunks := ce.ChunkPage("https://example.com/about", "AAAA BBBB CCCC DDDD")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.SourceURL != "https://example.com/about" {
			t.Errorf("chunk %d SourceURL = %q", i, c.SourceURL)
		}
		if c.Length != utf8.RuneCountInString(c.Text) {
			t.Errorf("chunk %d Length = %d, want %d", i, c.Length, utf8.RuneCountInString(c.Text))
		}
	}
}
