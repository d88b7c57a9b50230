// Package csvcodec parses and re-emits delimited credential exports while
// preserving the structural dialect of the original file.
package csvcodec

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// headerKeywords are the lowercased cell values that mark a first row as a header.
var headerKeywords = map[string]struct{}{
	"profile":  {},
	"site":     {},
	"username": {},
	"user":     {},
	"login":    {},
	"password": {},
	"pass":     {},
	"usage":    {},
	"count":    {},
}

// quotedFieldPattern matches a line containing at least one field that opens with a quote.
var quotedFieldPattern = regexp.MustCompile(`(^|,)\s*"`)

// Parse scans raw into rows of cells and captures the file's dialect. The
// returned rows exclude a detected header row and all blank rows. Parse never
// fails: malformed quoting is absorbed into the current field.
func Parse(raw string) ([][]string, model.Dialect) {
	rows := scan(raw)

	var dialect model.Dialect
	if len(rows) > 0 && isHeader(rows[0]) {
		dialect.Header = rows[0]
		rows = rows[1:]
	}

	for _, row := range rows {
		if len(row) > dialect.ColumnCount {
			dialect.ColumnCount = len(row)
		}
	}
	if len(rows) == 0 && dialect.Header != nil {
		dialect.ColumnCount = len(dialect.Header)
	}

	dialect.RawRows = cloneRows(rows)
	dialect.UsesQuoting = detectQuoting(raw)

	return rows, dialect
}

// scan is a single pass over raw tracking whether the cursor is inside quotes.
func scan(raw string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		if !isBlank(row) {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(raw) && raw[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			endField()
		case '\n':
			endRow()
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
				endRow()
				continue
			}
			field.WriteByte(c)
		default:
			field.WriteByte(c)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}

// isBlank reports a row whose cells are all empty. Whitespace counts as
// content since a secret may consist of spaces.
func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func isHeader(row []string) bool {
	for _, cell := range row {
		if _, ok := headerKeywords[strings.ToLower(strings.TrimSpace(cell))]; ok {
			return true
		}
	}
	return false
}

// detectQuoting inspects the first non-blank physical line of raw.
func detectQuoting(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return quotedFieldPattern.MatchString(line)
	}
	return false
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
