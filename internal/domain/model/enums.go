package model

// SiteStatus represents the liveness classification of a record's site.
type SiteStatus string

const (
	SiteStatusUnknown  SiteStatus = "unknown"
	SiteStatusChecking SiteStatus = "checking"
	SiteStatusAlive    SiteStatus = "alive"
	SiteStatusDead     SiteStatus = "dead"
)

// VerificationState is the lifecycle of a single breach verification run.
type VerificationState string

const (
	VerificationIdle      VerificationState = "idle"
	VerificationRunning   VerificationState = "running"
	VerificationCompleted VerificationState = "completed"
	VerificationFailed    VerificationState = "failed"
)

// SortKey selects the ordering applied to a record collection.
type SortKey string

const (
	SortByBreach  SortKey = "breach"  // Highest breach count first, unknown last.
	SortByUsage   SortKey = "usage"   // Highest usage count first.
	SortByProfile SortKey = "profile" // Profile name, ascending.
)
