package application

import "errors"

var (
	// ErrRecordNotFound is returned when an update targets a deleted or unknown record.
	ErrRecordNotFound = errors.New("record not found")

	// ErrEmptyBatch is returned when a breach check is requested with no secrets.
	ErrEmptyBatch = errors.New("no passwords")

	// ErrBatchTooLarge is returned when a breach check exceeds the batch limit.
	ErrBatchTooLarge = errors.New("too_many_passwords")

	// ErrNoRecordsSelected is returned when a run is started without a selection.
	ErrNoRecordsSelected = errors.New("no records selected")

	// ErrVerificationInProgress is returned when Verify is called while a run is active.
	ErrVerificationInProgress = errors.New("verification already running")

	// ErrVerificationFailed is the user-facing failure for an aborted verification run.
	ErrVerificationFailed = errors.New("verification failed, please retry")

	// ErrProbeInProgress is returned when a probe batch is started while another is active.
	ErrProbeInProgress = errors.New("probe batch already running")
)
