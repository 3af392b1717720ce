package indexer

import "strings"

// SplitTableRows returns one chunk per non-blank line of pre-linearized table text.
// Rows are trimmed; their content is otherwise kept as is.
func SplitTableRows(text string) []string {
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		if row := strings.TrimSpace(line); row != "" {
			rows = append(rows, row)
		}
	}
	return rows
}
