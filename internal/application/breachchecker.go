package application

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
	"github.com/ericfisherdev/credreview/internal/fingerprint"
)

const (
	// DefaultLookupConcurrency bounds in-flight range lookups per run.
	DefaultLookupConcurrency = 6

	// DefaultMaxBatch is the largest batch the positional entry point accepts.
	DefaultMaxBatch = 500

	// fingerprintChunk is the number of secrets hashed per errgroup task.
	fingerprintChunk = 256
)

// Compile-time interface satisfaction check.
var _ driven.BreachFallback = (*BreachChecker)(nil)

// BreachChecker is the single k-anonymity lookup core: it fingerprints
// secrets, partitions them by prefix, and drives one range lookup per prefix
// through a bounded pool. The transport that performs the lookup is the only
// thing that differs between call sites.
type BreachChecker struct {
	lookup      driven.RangeLookup
	concurrency int
	maxBatch    int
	logger      *slog.Logger
}

// NewBreachChecker creates a BreachChecker. Non-positive concurrency or
// maxBatch fall back to the defaults.
func NewBreachChecker(lookup driven.RangeLookup, concurrency, maxBatch int, logger *slog.Logger) *BreachChecker {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &BreachChecker{
		lookup:      lookup,
		concurrency: concurrency,
		maxBatch:    maxBatch,
		logger:      logger,
	}
}

// MaxBatch returns the positional batch limit.
func (c *BreachChecker) MaxBatch() int {
	return c.maxBatch
}

// CheckRecords looks up every record's secret and returns the outcome keyed
// by record ID. A prefix whose lookup failed yields unknown counts for all
// of its members. The error is non-nil only when ctx ends during hashing.
func (c *BreachChecker) CheckRecords(ctx context.Context, records []model.Record) (map[string]model.BreachCount, error) {
	ids := make([]string, len(records))
	secrets := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		secrets[i] = rec.Secret
	}

	fps, err := Fingerprints(ctx, ids, secrets)
	if err != nil {
		return nil, err
	}

	return c.CheckGroups(ctx, fingerprint.Group(fps)), nil
}

// CountSecrets returns breach counts aligned with secrets. It enforces the
// batch limits of the public fallback endpoint.
func (c *BreachChecker) CountSecrets(ctx context.Context, secrets []string) ([]model.BreachCount, error) {
	if len(secrets) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(secrets) > c.maxBatch {
		return nil, ErrBatchTooLarge
	}

	ids := make([]string, len(secrets))
	for i := range secrets {
		ids[i] = strconv.Itoa(i)
	}

	fps, err := Fingerprints(ctx, ids, secrets)
	if err != nil {
		return nil, err
	}

	byID := c.CheckGroups(ctx, fingerprint.Group(fps))

	counts := make([]model.BreachCount, len(secrets))
	for i, id := range ids {
		counts[i] = byID[id]
	}
	return counts, nil
}

// CheckGroups runs one range lookup per group. Members whose suffix is
// absent from the published range have a known count of zero.
func (c *BreachChecker) CheckGroups(ctx context.Context, groups []model.PrefixGroup) map[string]model.BreachCount {
	outcomes := RunPool(ctx, groups, c.concurrency, func(ctx context.Context, g model.PrefixGroup) (map[string]model.BreachCount, error) {
		suffixes, err := c.lookup.FetchRange(ctx, g.Prefix)
		if err != nil {
			return nil, err
		}
		counts := make(map[string]model.BreachCount, len(g.Members))
		for _, m := range g.Members {
			counts[m.RecordID] = model.KnownBreachCount(suffixes[m.Suffix])
		}
		return counts, nil
	})

	results := make(map[string]model.BreachCount)
	var failed int
	for i, g := range groups {
		out := outcomes[i]
		if out.Err != nil {
			failed++
			c.logger.Warn("range lookup failed", "prefix", g.Prefix, "members", len(g.Members), "error", out.Err)
			for _, m := range g.Members {
				results[m.RecordID] = model.UnknownBreachCount()
			}
			continue
		}
		for id, count := range out.Value {
			results[id] = count
		}
	}

	c.logger.Debug("range lookups complete", "groups", len(groups), "failed", failed)
	return results
}

// Fingerprints hashes secrets in chunks across CPUs. ids and secrets must
// have equal length; output order matches input order.
func Fingerprints(ctx context.Context, ids, secrets []string) ([]model.Fingerprint, error) {
	fps := make([]model.Fingerprint, len(secrets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for start := 0; start < len(secrets); start += fingerprintChunk {
		end := min(start+fingerprintChunk, len(secrets))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				fps[i] = fingerprint.Of(ids[i], secrets[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fps, nil
}
