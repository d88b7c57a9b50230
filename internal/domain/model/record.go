package model

import (
	"encoding/json"
	"strconv"
)

// BreachCount is the number of times a secret appears in the breach corpus.
// An unknown count (lookup never ran or failed) is distinct from a known zero.
type BreachCount struct {
	Count int
	Known bool
}

// UnknownBreachCount returns the explicit unknown outcome.
func UnknownBreachCount() BreachCount {
	return BreachCount{}
}

// KnownBreachCount returns an authoritative count. Negative values clamp to zero.
func KnownBreachCount(n int) BreachCount {
	if n < 0 {
		n = 0
	}
	return BreachCount{Count: n, Known: true}
}

// Breached reports whether the count is known and non-zero.
func (b BreachCount) Breached() bool {
	return b.Known && b.Count > 0
}

// String renders the count, or "unknown".
func (b BreachCount) String() string {
	if !b.Known {
		return "unknown"
	}
	return strconv.Itoa(b.Count)
}

// MarshalJSON encodes an unknown count as null.
func (b BreachCount) MarshalJSON() ([]byte, error) {
	if !b.Known {
		return []byte("null"), nil
	}
	return json.Marshal(b.Count)
}

// UnmarshalJSON decodes null as unknown.
func (b *BreachCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = UnknownBreachCount()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = KnownBreachCount(n)
	return nil
}

// MarshalYAML encodes an unknown count as null.
func (b BreachCount) MarshalYAML() (any, error) {
	if !b.Known {
		return nil, nil
	}
	return b.Count, nil
}

// Record is one imported credential row. ID is opaque and stable across
// sorts and filters; OriginalRowIndex points into Dialect.RawRows.
type Record struct {
	ID               string      `json:"id" yaml:"id"`
	Profile          string      `json:"profile" yaml:"profile"`
	Site             string      `json:"site" yaml:"site"`
	Username         string      `json:"username" yaml:"username"`
	Secret           string      `json:"-" yaml:"-"`
	UsageCount       int         `json:"usage_count" yaml:"usage_count"`
	Breach           BreachCount `json:"breach_count" yaml:"breach_count"`
	SiteStatus       SiteStatus  `json:"site_status" yaml:"site_status"`
	HTTPStatus       *int        `json:"http_status" yaml:"http_status"`
	ResponseTimeMs   *int        `json:"response_time_ms" yaml:"response_time_ms"`
	OriginalRowIndex int         `json:"-" yaml:"-"`
}
