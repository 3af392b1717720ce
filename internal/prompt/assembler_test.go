package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/kiku/internal/models"
)

func docs(contents ...string) []models.Document {
	out := make([]models.Document, len(contents))
	for i, c := range contents {
		out[i] = models.Document{Content: c, Kind: models.KindText}
	}
	return out
}

func TestAssemble_LabelsInRankOrder(t *testing.T) {
	got := Assemble(docs("first hit", "second hit", "third hit"))
	assert.Equal(t, "Chunk 1:\nfirst hit\n\nChunk 2:\nsecond hit\n\nChunk 3:\nthird hit", got)
}

func TestAssemble_EachContentExactlyOnce(t *testing.T) {
	in := docs("alpha", "beta", "gamma", "delta")
	got := Assemble(in)
	last := -1
	for i, d := range in {
		assert.Equal(t, 1, strings.Count(got, d.Content), "content %q", d.Content)
		label := "Chunk " + string(rune('1'+i)) + ":\n" + d.Content
		pos := strings.Index(got, label)
		assert.Greater(t, pos, last, "label %d out of order", i+1)
		last = pos
	}
}

func TestAssemble_Empty(t *testing.T) {
	assert.Equal(t, "", Assemble(nil))
	assert.Equal(t, "", Assembler{MaxChars: 10}.Assemble([]models.Document{}))
}

func TestAssemble_NoDedup(t *testing.T) {
	got := Assemble(docs("same", "same"))
	assert.Equal(t, "Chunk 1:\nsame\n\nChunk 2:\nsame", got)
}

func TestAssembler_BudgetDropsWholeTrailingChunks(t *testing.T) {
	in := docs("aaaa", "bbbb", "cccc")
	// "Chunk 1:\naaaa" is 13 runes; each further block adds 2 + 13.
	tests := []struct {
		max  int
		want string
		n    int
	}{
		{0, "Chunk 1:\naaaa\n\nChunk 2:\nbbbb\n\nChunk 3:\ncccc", 3},
		{43, "Chunk 1:\naaaa\n\nChunk 2:\nbbbb\n\nChunk 3:\ncccc", 3},
		{42, "Chunk 1:\naaaa\n\nChunk 2:\nbbbb", 2},
		{28, "Chunk 1:\naaaa\n\nChunk 2:\nbbbb", 2},
		{27, "Chunk 1:\naaaa", 1},
		{12, "", 0},
	}
	for _, tt := range tests {
		got, n := Assembler{MaxChars: tt.max}.AssembleCount(in)
		assert.Equal(t, tt.want, got, "max=%d", tt.max)
		assert.Equal(t, tt.n, n, "max=%d", tt.max)
	}
}

func TestAssembler_BudgetCountsRunes(t *testing.T) {
	in := docs("ção", "ção")
	// "Chunk 1:\nção" is 12 runes but 14 bytes.
	got, n := Assembler{MaxChars: 12}.AssembleCount(in)
	assert.Equal(t, "Chunk 1:\nção", got)
	assert.Equal(t, 1, n)
}
