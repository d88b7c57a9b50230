package model

// Dialect captures the structural conventions of an imported delimited file
// so that an export can reproduce them. It is immutable after import.
type Dialect struct {
	// Header is nil when the file had no recognisable header row.
	Header      []string
	ColumnCount int
	// RawRows are the parsed data rows, excluding the header.
	RawRows     [][]string
	UsesQuoting bool
}

// HasHeader reports whether the original file carried a header row.
func (d *Dialect) HasHeader() bool {
	return d != nil && d.Header != nil
}

// RawCell returns the original cell at row/col, or "" when out of range.
func (d *Dialect) RawCell(row, col int) string {
	if d == nil || row < 0 || row >= len(d.RawRows) {
		return ""
	}
	cells := d.RawRows[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}
