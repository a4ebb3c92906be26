// Package processor removes excluded contacts from a table, drops duplicate
// contacts and splits the survivors into bounded chunks.
package processor

import (
	"strconv"
	"strings"

	"contact-splitter/internal/models"
	"contact-splitter/internal/phone"
)

// Process filters table by contactColumn and returns the survivors split into
// chunks of at most maxRows rows. Rows keep their original order. The input
// table is not modified.
func Process(table *models.Table, contactColumn string, numbers []string, maxRows int) ([]models.Chunk, error) {
	if maxRows <= 0 {
		return nil, models.NewValidationError(models.MsgInvalidMax)
	}
	col := -1
	if table != nil {
		col = table.ColumnIndex(contactColumn)
	}
	if col < 0 {
		return nil, models.NewValidationError(models.MsgColumnAbsent, contactColumn)
	}

	excluded := phone.ExclusionSet(numbers)
	rows := filterRows(table.Rows, col, excluded)

	return paginate(table.Columns, rows, maxRows), nil
}

// filterRows keeps the first row for each contact value, then drops rows
// whose contact is excluded.
func filterRows(rows []models.Row, col int, excluded map[string]struct{}) []models.Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		contact := models.CellText(row.Cell(col))
		if _, dup := seen[contact]; dup {
			continue
		}
		seen[contact] = struct{}{}
		if _, drop := excluded[contact]; drop {
			continue
		}
		out = append(out, row)
	}
	return out
}

func paginate(columns []string, rows []models.Row, maxRows int) []models.Chunk {
	var chunks []models.Chunk
	for start := 0; start < len(rows); start += maxRows {
		end := min(start+maxRows, len(rows))
		chunks = append(chunks, models.Chunk{
			Index: start/maxRows + 1,
			Table: &models.Table{Columns: columns, Rows: rows[start:end]},
		})
	}
	return chunks
}

// ParseNumbers splits a free-text list into one number per line, trimming
// whitespace and skipping blank lines.
func ParseNumbers(text string) []string {
	var numbers []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		if n := strings.TrimSpace(line); n != "" {
			numbers = append(numbers, n)
		}
	}
	return numbers
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// ParseMaxRows parses the rows-per-file field.
func ParseMaxRows(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, models.NewValidationError(models.MsgInvalidMax)
	}
	return n, nil
}
