// Package prompt renders retrieved chunks into the grounding context sent to the generator.
package prompt

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kiku/internal/models"
)

// DefaultMaxChars is the context budget used when none is configured.
const DefaultMaxChars = 16000

const blockSeparator = "\n\n"

// Assembler labels ranked documents "Chunk 1", "Chunk 2", ... and joins them with a blank line.
// When MaxChars > 0, blocks are kept in rank order only while the total rune length stays within
// MaxChars; the first block that would overflow and every block after it are dropped whole.
type Assembler struct {
	MaxChars int
}

// Assemble renders ranked into a context string. An empty list yields "".
func (a Assembler) Assemble(ranked []models.Document) string {
	context, _ := a.assemble(ranked)
	return context
}

// AssembleCount is Assemble that also reports how many documents made it into the context.
func (a Assembler) AssembleCount(ranked []models.Document) (string, int) {
	return a.assemble(ranked)
}

func (a Assembler) assemble(ranked []models.Document) (string, int) {
	var (
		b     strings.Builder
		total int
	)
	for i, doc := range ranked {
		block := "Chunk " + strconv.Itoa(i+1) + ":\n" + doc.Content
		n := utf8.RuneCountInString(block)
		if i > 0 {
			n += len(blockSeparator)
		}
		if a.MaxChars > 0 && total+n > a.MaxChars {
			return b.String(), i
		}
		if i > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		total += n
	}
	return b.String(), len(ranked)
}

// Assemble renders ranked without a budget.
func Assemble(ranked []models.Document) string {
	return Assembler{}.Assemble(ranked)
}
