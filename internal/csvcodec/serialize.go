package csvcodec

import (
	"strconv"
	"strings"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// Export is the serialized form of a record collection.
type Export struct {
	Text string
	// HeaderLine is the first line of Text when a header was emitted, else "".
	HeaderLine string
	// Diverged reports that the emitted data rows no longer match the original
	// rows position-wise. It is advisory: sorting or deleting records diverges.
	Diverged bool

	rows []string
}

// Serialize renders records back to delimited text. When dialect is non-nil
// the original column count, header, and quoting style are reproduced; cells
// without a semantic field (index 5 and beyond, or an empty field) are copied
// from the record's original row.
//
// Column semantics beyond the first five are positional only. A source file
// that reorders or duplicates the canonical columns round-trips on a
// best-effort basis.
func Serialize(records []model.Record, dialect *model.Dialect) Export {
	columns := semanticColumns
	quoteAll := true
	header := canonicalHeader
	if dialect != nil {
		columns = max(dialect.ColumnCount, semanticColumns)
		quoteAll = dialect.UsesQuoting
		header = dialect.Header
	}

	var lines []string
	var export Export
	if header != nil {
		export.HeaderLine = joinCells(header, true)
		lines = append(lines, export.HeaderLine)
	}

	generated := make([][]string, 0, len(records))
	for _, rec := range records {
		cells := make([]string, columns)
		for col := range columns {
			cells[col] = cellValue(rec, col, dialect)
		}
		generated = append(generated, cells)
		export.rows = append(export.rows, joinCells(cells, quoteAll))
	}
	lines = append(lines, export.rows...)

	export.Text = strings.Join(lines, "\n")
	if dialect != nil {
		export.Diverged = !sameRows(generated, dialect.RawRows)
	}

	return export
}

// cellValue prefers the semantic field for the canonical columns and falls
// back to the original cell otherwise.
func cellValue(rec model.Record, col int, dialect *model.Dialect) string {
	var v string
	switch col {
	case colProfile:
		v = rec.Profile
	case colSite:
		v = rec.Site
	case colUsername:
		v = rec.Username
	case colSecret:
		v = rec.Secret
	case colUsage:
		// Zero usage from an imported row defers to the raw cell so that an
		// originally blank column stays blank.
		if rec.UsageCount != 0 || dialect == nil {
			v = strconv.Itoa(rec.UsageCount)
		}
	}

	if v == "" && dialect != nil {
		return dialect.RawCell(rec.OriginalRowIndex, col)
	}
	return v
}

func joinCells(cells []string, quoteAll bool) string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		if quoteAll || needsQuoting(cell) {
			out[i] = quote(cell)
			continue
		}
		out[i] = cell
	}
	return strings.Join(out, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// needsQuoting reports cells that cannot be emitted bare without changing the
// parse, even in a dialect that does not quote.
func needsQuoting(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}

// sameRows compares rows after normalization. Trailing empty cells are
// ignored so that short source rows match padded output rows.
func sameRows(generated, original [][]string) bool {
	if len(generated) != len(original) {
		return false
	}
	for i := range generated {
		if normalizeRow(generated[i]) != normalizeRow(original[i]) {
			return false
		}
	}
	return true
}

func normalizeRow(cells []string) string {
	trimmed := make([]string, len(cells))
	for i, cell := range cells {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return strings.TrimRight(strings.Join(trimmed, ","), ",")
}
