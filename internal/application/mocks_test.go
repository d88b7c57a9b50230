package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// --- Mock implementations ---

var errLookupBlocked = errors.New("lookup blocked")

type mockRangeLookup struct {
	mu     sync.Mutex
	ranges map[string]map[string]int
	fail   map[string]error
	calls  map[string]int
}

func newMockRangeLookup() *mockRangeLookup {
	return &mockRangeLookup{
		ranges: make(map[string]map[string]int),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (m *mockRangeLookup) FetchRange(_ context.Context, prefix string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[prefix]++
	if err := m.fail[prefix]; err != nil {
		return nil, err
	}
	if r, ok := m.ranges[prefix]; ok {
		return r, nil
	}
	return map[string]int{}, nil
}

func (m *mockRangeLookup) publish(prefix, suffix string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ranges[prefix] == nil {
		m.ranges[prefix] = make(map[string]int)
	}
	m.ranges[prefix][suffix] = count
}

func (m *mockRangeLookup) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

type mockFallback struct {
	mu       sync.Mutex
	counts   func(secrets []string) []model.BreachCount
	err      error
	requests [][]string
}

func (m *mockFallback) CountSecrets(_ context.Context, secrets []string) ([]model.BreachCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, append([]string(nil), secrets...))
	if m.err != nil {
		return nil, m.err
	}
	return m.counts(secrets), nil
}

type mockProber struct {
	results map[string]model.ProbeResult
	// block, when set, makes probes of these sites wait for ctx cancellation.
	block   map[string]bool
	started chan string
}

func (m *mockProber) Probe(ctx context.Context, rawURL string) model.ProbeResult {
	if m.started != nil {
		m.started <- rawURL
	}
	if m.block[rawURL] {
		<-ctx.Done()
		return model.UnknownProbeResult()
	}
	if r, ok := m.results[rawURL]; ok {
		return r
	}
	return model.UnknownProbeResult()
}

type mockHistoryStore struct {
	mu      sync.Mutex
	entries []model.ProbeHistoryEntry
}

func (m *mockHistoryStore) Record(_ context.Context, site string, result model.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, model.ProbeHistoryEntry{Site: site, Result: result})
	return nil
}

func (m *mockHistoryStore) ListRecent(_ context.Context, _ string, _ int) ([]model.ProbeHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ProbeHistoryEntry(nil), m.entries...), nil
}

// --- Test helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }
