package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// DefaultProbeConcurrency bounds in-flight liveness probes per batch.
const DefaultProbeConcurrency = 6

// ProbeReport summarises a probe batch.
type ProbeReport struct {
	Alive    int
	Dead     int
	Unknown  int
	Skipped  int
	Stopped  bool
	Duration time.Duration
}

// probeScope is the cancellation scope of one batch. Cancelling the scope
// stops dispatch and aborts every in-flight unit; each unit also owns a
// child cancel so it can be revoked on its own.
type probeScope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	units map[string]context.CancelFunc
}

func newProbeScope(parent context.Context) *probeScope {
	ctx, cancel := context.WithCancel(parent)
	return &probeScope{ctx: ctx, cancel: cancel, units: make(map[string]context.CancelFunc)}
}

// child derives the per-unit context for id. The returned release must be
// called when the unit finishes.
func (p *probeScope) child(parent context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	p.mu.Lock()
	p.units[id] = cancel
	p.mu.Unlock()

	return ctx, func() {
		p.mu.Lock()
		delete(p.units, id)
		p.mu.Unlock()
		cancel()
	}
}

func (p *probeScope) revoke(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel, ok := p.units[id]
	if ok {
		cancel()
	}
	return ok
}

// ProbeService checks site liveness for single URLs and for batches of
// records. Batch results are merged into the record collection as each probe
// completes; stopping a batch keeps results already merged.
type ProbeService struct {
	prober      driven.SiteProber
	records     *RecordCollection
	history     driven.ProbeHistoryStore
	concurrency int
	logger      *slog.Logger

	mu    sync.Mutex
	scope *probeScope
}

// NewProbeService creates a ProbeService. records is required only for
// batches and history may be nil.
func NewProbeService(
	prober driven.SiteProber,
	records *RecordCollection,
	history driven.ProbeHistoryStore,
	concurrency int,
	logger *slog.Logger,
) *ProbeService {
	if concurrency <= 0 {
		concurrency = DefaultProbeConcurrency
	}
	return &ProbeService{
		prober:      prober,
		records:     records,
		history:     history,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProbeSite probes a single URL and records the outcome in history.
func (s *ProbeService) ProbeSite(ctx context.Context, rawURL string) model.ProbeResult {
	result := s.prober.Probe(ctx, rawURL)
	s.remember(rawURL, result)
	return result
}

// ProbeBatch probes the sites of the records named by ids. Records without a
// site are skipped. It blocks until every dispatched probe has finished or
// the batch is stopped.
func (s *ProbeService) ProbeBatch(ctx context.Context, ids []string) (ProbeReport, error) {
	selected := s.records.Selected(ids)
	if len(selected) == 0 {
		return ProbeReport{}, ErrNoRecordsSelected
	}

	scope, err := s.open(ctx)
	if err != nil {
		return ProbeReport{}, err
	}
	defer s.close(scope)

	start := time.Now()
	var report ProbeReport

	units := make([]model.Record, 0, len(selected))
	for _, rec := range selected {
		if strings.TrimSpace(rec.Site) == "" {
			report.Skipped++
			continue
		}
		if err := s.records.MarkChecking(rec.ID); err != nil {
			continue
		}
		units = append(units, rec)
	}

	outcomes := RunPool(scope.ctx, units, s.concurrency, func(ctx context.Context, rec model.Record) (model.ProbeResult, error) {
		unitCtx, release := scope.child(ctx, rec.ID)
		defer release()

		result := s.prober.Probe(unitCtx, rec.Site)
		if err := s.records.SetProbeResult(rec.ID, result); err != nil {
			s.logger.Debug("probe result dropped", "id", rec.ID, "error", err)
		}
		s.remember(rec.Site, result)
		return result, nil
	})

	for i, out := range outcomes {
		if out.Err != nil {
			// Never dispatched because the batch was stopped.
			_ = s.records.SetProbeResult(units[i].ID, model.UnknownProbeResult())
			report.Unknown++
			continue
		}
		switch out.Value.Status {
		case model.SiteStatusAlive:
			report.Alive++
		case model.SiteStatusDead:
			report.Dead++
		default:
			report.Unknown++
		}
	}

	report.Stopped = scope.ctx.Err() != nil && ctx.Err() == nil
	report.Duration = time.Since(start)
	s.logger.Info("probe batch complete",
		"alive", report.Alive,
		"dead", report.Dead,
		"unknown", report.Unknown,
		"skipped", report.Skipped,
		"stopped", report.Stopped,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// Stop cancels the running batch, if any. In-flight probes are aborted and
// report unknown; no further probes are dispatched.
func (s *ProbeService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope != nil {
		s.scope.cancel()
	}
}

// Cancel aborts the in-flight probe for a single record. It reports whether
// a probe for id was running.
func (s *ProbeService) Cancel(id string) bool {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()

	if scope == nil {
		return false
	}
	return scope.revoke(id)
}

func (s *ProbeService) open(ctx context.Context) (*probeScope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope != nil {
		return nil, ErrProbeInProgress
	}
	s.scope = newProbeScope(ctx)
	return s.scope, nil
}

func (s *ProbeService) close(scope *probeScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope.cancel()
	if s.scope == scope {
		s.scope = nil
	}
}

func (s *ProbeService) remember(site string, result model.ProbeResult) {
	if s.history == nil {
		return
	}
	// History outlives the request that produced it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, site, result); err != nil {
		s.logger.Warn("failed to record probe history", "site", site, "error", err)
	}
}
