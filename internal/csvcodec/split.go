package csvcodec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultPartLimit is the byte size above which an export is split.
const DefaultPartLimit = 150 * 1024

// Split breaks text into parts no larger than limit bytes where possible.
// Every part re-issues headerLine when it is non-empty, and every part holds
// at least one data line even if that line alone exceeds the limit.
func Split(text, headerLine string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	lines := strings.Split(text, "\n")
	if headerLine != "" && len(lines) > 0 && lines[0] == headerLine {
		lines = lines[1:]
	}

	return packLines(lines, headerLine, limit)
}

// packLines greedily fills parts with whole lines.
func packLines(lines []string, headerLine string, limit int) []string {
	var (
		parts     []string
		b         strings.Builder
		dataLines int
	)

	reset := func() {
		b.Reset()
		dataLines = 0
		if headerLine != "" {
			b.WriteString(headerLine)
		}
	}
	reset()

	for _, line := range lines {
		grow := len(line)
		if b.Len() > 0 {
			grow++
		}
		if dataLines > 0 && b.Len()+grow > limit {
			parts = append(parts, b.String())
			reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		dataLines++
	}

	if dataLines > 0 {
		parts = append(parts, b.String())
	}

	return parts
}

// Parts splits the export using limit. Records whose cells contain line
// breaks are never cut across parts.
func (e Export) Parts(limit int) []string {
	if limit <= 0 || len(e.Text) <= limit || e.rows == nil {
		return Split(e.Text, e.HeaderLine, limit)
	}
	return packLines(e.rows, e.HeaderLine, limit)
}

// PartNames returns the file names for n parts derived from base. A single
// part keeps base unchanged; otherwise parts are numbered from 1.
func PartNames(base string, n int) []string {
	if n <= 1 {
		return []string{base}
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	names := make([]string, n)
	for i := range n {
		names[i] = fmt.Sprintf("%s-part-%d%s", stem, i+1, ext)
	}
	return names
}
