package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// VerifyReport summarises a completed verification run.
type VerifyReport struct {
	Checked      int
	Breached     int
	Unknown      int
	UsedFallback bool
	Duration     time.Duration
}

// VerifyService runs breach verification over selected records. It looks
// prefixes up directly and, when any outcome is unknown, resubmits the whole
// selection to a trusted fallback whose positional results take precedence.
type VerifyService struct {
	records  *RecordCollection
	checker  *BreachChecker
	fallback driven.BreachFallback
	logger   *slog.Logger

	mu    sync.Mutex
	state model.VerificationState
}

// NewVerifyService creates a VerifyService. fallback may be nil, in which
// case unknown direct outcomes are final.
func NewVerifyService(
	records *RecordCollection,
	checker *BreachChecker,
	fallback driven.BreachFallback,
	logger *slog.Logger,
) *VerifyService {
	return &VerifyService{
		records:  records,
		checker:  checker,
		fallback: fallback,
		logger:   logger,
		state:    model.VerificationIdle,
	}
}

// State returns the lifecycle state of the most recent run.
func (s *VerifyService) State() model.VerificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Verify checks the records named by ids and merges the final counts into
// the collection. On failure nothing is merged and ErrVerificationFailed is
// returned; the underlying cause is logged only.
func (s *VerifyService) Verify(ctx context.Context, ids []string) (report VerifyReport, err error) {
	selected := s.records.Selected(ids)
	if len(selected) == 0 {
		return VerifyReport{}, ErrNoRecordsSelected
	}

	if err := s.begin(); err != nil {
		return VerifyReport{}, err
	}

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("verification panicked", "panic", v)
			err = ErrVerificationFailed
		}
		if err != nil {
			s.finish(model.VerificationFailed)
			report = VerifyReport{}
			return
		}
		s.finish(model.VerificationCompleted)
	}()

	results, runErr := s.run(ctx, selected, &report)
	if runErr != nil {
		s.logger.Error("verification run failed", "records", len(selected), "error", runErr)
		return VerifyReport{}, ErrVerificationFailed
	}

	for _, rec := range selected {
		count := results[rec.ID]
		if err := s.records.SetBreachCount(rec.ID, count); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				// Deleted while the run was in flight.
				continue
			}
			return VerifyReport{}, err
		}
		report.Checked++
		switch {
		case !count.Known:
			report.Unknown++
		case count.Count > 0:
			report.Breached++
		}
	}

	report.Duration = time.Since(start)
	s.logger.Info("verification complete",
		"checked", report.Checked,
		"breached", report.Breached,
		"unknown", report.Unknown,
		"fallback", report.UsedFallback,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

func (s *VerifyService) run(ctx context.Context, selected []model.Record, report *VerifyReport) (map[string]model.BreachCount, error) {
	results, err := s.checker.CheckRecords(ctx, selected)
	if err != nil {
		return nil, fmt.Errorf("direct lookup: %w", err)
	}
	// Lookups cut short by cancellation read as unknown; never merge them.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("direct lookup: %w", err)
	}

	if s.fallback == nil || !anyUnknown(selected, results) {
		return results, nil
	}

	counts, err := s.viaFallback(ctx, selected)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("fallback lookup: %w", ctxErr)
	}
	if err != nil {
		s.logger.Warn("fallback lookup failed, keeping direct results", "records", len(selected), "error", err)
		return results, nil
	}

	for i, rec := range selected {
		results[rec.ID] = counts[i]
	}
	report.UsedFallback = true
	return results, nil
}

// viaFallback submits secrets in selection order, chunked to the fallback's
// batch limit, and returns counts in the same order.
func (s *VerifyService) viaFallback(ctx context.Context, selected []model.Record) ([]model.BreachCount, error) {
	chunk := s.checker.MaxBatch()
	counts := make([]model.BreachCount, 0, len(selected))

	for start := 0; start < len(selected); start += chunk {
		end := min(start+chunk, len(selected))
		secrets := make([]string, 0, end-start)
		for _, rec := range selected[start:end] {
			secrets = append(secrets, rec.Secret)
		}

		got, err := s.fallback.CountSecrets(ctx, secrets)
		if err != nil {
			return nil, err
		}
		if len(got) != len(secrets) {
			return nil, fmt.Errorf("fallback returned %d counts for %d secrets", len(got), len(secrets))
		}
		counts = append(counts, got...)
	}

	return counts, nil
}

func (s *VerifyService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.VerificationRunning {
		return ErrVerificationInProgress
	}
	s.state = model.VerificationRunning
	return nil
}

func (s *VerifyService) finish(state model.VerificationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func anyUnknown(selected []model.Record, results map[string]model.BreachCount) bool {
	for _, rec := range selected {
		if count, ok := results[rec.ID]; !ok || !count.Known {
			return true
		}
	}
	return false
}
