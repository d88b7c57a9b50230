package csvcodec

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// Canonical column positions of the semantic fields.
const (
	colProfile = iota
	colSite
	colUsername
	colSecret
	colUsage
	semanticColumns
)

// canonicalHeader is emitted when exporting records that have no source dialect.
var canonicalHeader = []string{"profile", "site", "username", "password", "usage"}

// RecordsFromRows maps parsed rows onto records using the canonical column
// order. Each record gets a fresh opaque ID and remembers its source row.
func RecordsFromRows(rows [][]string) []model.Record {
	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, model.Record{
			ID:               uuid.NewString(),
			Profile:          cellAt(row, colProfile),
			Site:             cellAt(row, colSite),
			Username:         cellAt(row, colUsername),
			Secret:           cellAt(row, colSecret),
			UsageCount:       parseUsage(cellAt(row, colUsage)),
			Breach:           model.UnknownBreachCount(),
			SiteStatus:       model.SiteStatusUnknown,
			OriginalRowIndex: i,
		})
	}
	return records
}

// Import parses raw and returns the resulting records alongside the dialect.
func Import(raw string) ([]model.Record, model.Dialect) {
	rows, dialect := Parse(raw)
	return RecordsFromRows(rows), dialect
}

// cellAt returns the trimmed cell, or "" when the row is too short. Secrets
// are not trimmed because surrounding whitespace may be significant.
func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	if col == colSecret {
		return row[col]
	}
	return strings.TrimSpace(row[col])
}

func parseUsage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
