package model

// Fingerprint is the k-anonymity split of a secret's digest. Only Prefix is
// ever sent to the range lookup service.
type Fingerprint struct {
	RecordID string
	Prefix   string
	Suffix   string
}

// GroupMember is one record waiting on a prefix lookup.
type GroupMember struct {
	RecordID string
	Suffix   string
}

// PrefixGroup is the unit of work dispatched to the lookup pool: every record
// whose digest shares Prefix.
type PrefixGroup struct {
	Prefix  string
	Members []GroupMember
}
