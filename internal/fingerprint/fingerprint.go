// Package fingerprint computes the k-anonymity split of a credential digest.
package fingerprint

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is what the range lookup service indexes by.
	"encoding/hex"
	"strings"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

const (
	// PrefixLen is the number of hex characters sent to the range service.
	PrefixLen = 5
	// DigestLen is the full hex length of a 160-bit digest.
	DigestLen = 40
)

// Full returns the 40-character uppercase hex SHA-1 digest of secret's bytes.
func Full(secret string) string {
	sum := sha1.Sum([]byte(secret)) //nolint:gosec
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Digest splits the digest of secret into its public prefix and private suffix.
func Digest(secret string) (prefix, suffix string) {
	full := Full(secret)
	return full[:PrefixLen], full[PrefixLen:]
}

// Of builds the Fingerprint for a record.
func Of(recordID, secret string) model.Fingerprint {
	prefix, suffix := Digest(secret)
	return model.Fingerprint{RecordID: recordID, Prefix: prefix, Suffix: suffix}
}

// Group partitions fingerprints by prefix, preserving first-seen order of
// prefixes and submission order of members within a group.
func Group(fps []model.Fingerprint) []model.PrefixGroup {
	index := make(map[string]int)
	var groups []model.PrefixGroup

	for _, fp := range fps {
		i, ok := index[fp.Prefix]
		if !ok {
			i = len(groups)
			index[fp.Prefix] = i
			groups = append(groups, model.PrefixGroup{Prefix: fp.Prefix})
		}
		groups[i].Members = append(groups[i].Members, model.GroupMember{
			RecordID: fp.RecordID,
			Suffix:   fp.Suffix,
		})
	}

	return groups
}

// IsPrefix reports whether s is a valid 5-character hex prefix.
func IsPrefix(s string) bool {
	if len(s) != PrefixLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
