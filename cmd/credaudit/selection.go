package main

import (
	"fmt"
	"strconv"
	"strings"
)

// selectRows maps a 1-based row list such as "1,3,7-9" onto ids. Duplicates
// are dropped and the first occurrence wins.
func selectRows(ids []string, list string) ([]string, error) {
	seen := make(map[int]bool)
	var selected []string

	for part := range strings.SplitSeq(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRowRange(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > len(ids) {
			return nil, fmt.Errorf("row %q out of range 1-%d", part, len(ids))
		}
		for n := lo; n <= hi; n++ {
			if seen[n] {
				continue
			}
			seen[n] = true
			selected = append(selected, ids[n-1])
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no rows in %q", list)
	}
	return selected, nil
}

func parseRowRange(part string) (int, int, error) {
	first, last, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row %q", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil || hi < lo {
		return 0, 0, fmt.Errorf("invalid row range %q", part)
	}
	return lo, hi, nil
}
