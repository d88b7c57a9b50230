// Package driven defines the ports implemented by outbound adapters.
package driven

import (
	"context"
	"errors"
)

// ErrInvalidPrefix is returned when a range prefix is not five hex characters.
var ErrInvalidPrefix = errors.New("range prefix must be 5 hexadecimal characters")

// RangeLookup fetches every (suffix, occurrence count) pair published under
// a digest prefix. Suffixes are 35 uppercase hex characters.
type RangeLookup interface {
	FetchRange(ctx context.Context, prefix string) (map[string]int, error)
}
