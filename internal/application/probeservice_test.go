package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

func alive() model.ProbeResult {
	return model.ProbeResult{Status: model.SiteStatusAlive, HTTPStatus: intPtr(200), TimeMs: intPtr(35)}
}

func dead() model.ProbeResult {
	return model.ProbeResult{Status: model.SiteStatusDead, HTTPStatus: intPtr(404), TimeMs: intPtr(12)}
}

func waitStarted(t *testing.T, started <-chan string, site string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-started:
			if s == site {
				return
			}
		case <-deadline:
			t.Fatalf("probe of %s never started", site)
		}
	}
}

func TestProbeSite_RecordsHistory(t *testing.T) {
	prober := &mockProber{results: map[string]model.ProbeResult{"https://a.example": alive()}}
	history := &mockHistoryStore{}
	svc := NewProbeService(prober, nil, history, 0, discardLogger())

	result := svc.ProbeSite(context.Background(), "https://a.example")

	assert.Equal(t, model.SiteStatusAlive, result.Status)
	require.Len(t, history.entries, 1)
	assert.Equal(t, "https://a.example", history.entries[0].Site)
}

func TestProbeBatch_MergesResultsAndSkipsEmptySites(t *testing.T) {
	prober := &mockProber{results: map[string]model.ProbeResult{
		"https://a.example": alive(),
		"https://b.example": dead(),
	}}
	records := NewRecordCollection(
		model.Record{ID: "a", Site: "https://a.example"},
		model.Record{ID: "b", Site: "https://b.example"},
		model.Record{ID: "c", Site: "https://c.example"},
		model.Record{ID: "d", Site: "   "},
	)
	history := &mockHistoryStore{}
	svc := NewProbeService(prober, records, history, 2, discardLogger())

	report, err := svc.ProbeBatch(context.Background(), records.IDs())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Alive)
	assert.Equal(t, 1, report.Dead)
	assert.Equal(t, 1, report.Unknown)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Stopped)
	assert.Len(t, history.entries, 3)

	a, _ := records.Get("a")
	assert.Equal(t, model.SiteStatusAlive, a.SiteStatus)
	assert.Equal(t, 200, *a.HTTPStatus)
	assert.Equal(t, 35, *a.ResponseTimeMs)

	b, _ := records.Get("b")
	assert.Equal(t, model.SiteStatusDead, b.SiteStatus)

	d, _ := records.Get("d")
	assert.Equal(t, model.SiteStatusUnknown, d.SiteStatus, "skipped records are never marked checking")
}

func TestProbeBatch_DoesNotClobberBreachCount(t *testing.T) {
	prober := &mockProber{results: map[string]model.ProbeResult{"https://a.example": alive()}}
	records := NewRecordCollection(model.Record{ID: "a", Site: "https://a.example"})
	require.NoError(t, records.SetBreachCount("a", model.KnownBreachCount(9)))
	svc := NewProbeService(prober, records, nil, 1, discardLogger())

	_, err := svc.ProbeBatch(context.Background(), []string{"a"})

	require.NoError(t, err)
	a, _ := records.Get("a")
	assert.Equal(t, model.KnownBreachCount(9), a.Breach)
	assert.Equal(t, model.SiteStatusAlive, a.SiteStatus)
}

func TestProbeBatch_StopAbortsInFlightAndPending(t *testing.T) {
	prober := &mockProber{
		results: map[string]model.ProbeResult{"https://fast.example": alive()},
		block:   map[string]bool{"https://slow.example": true},
		started: make(chan string, 8),
	}
	records := NewRecordCollection(
		model.Record{ID: "slow", Site: "https://slow.example"},
		model.Record{ID: "fast", Site: "https://fast.example"},
	)
	svc := NewProbeService(prober, records, nil, 1, discardLogger())

	done := make(chan ProbeReport, 1)
	go func() {
		report, _ := svc.ProbeBatch(context.Background(), []string{"slow", "fast"})
		done <- report
	}()

	waitStarted(t, prober.started, "https://slow.example")
	svc.Stop()

	var report ProbeReport
	select {
	case report = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not stop")
	}

	assert.True(t, report.Stopped)
	assert.Equal(t, 2, report.Unknown)
	for _, rec := range records.List() {
		assert.Equal(t, model.SiteStatusUnknown, rec.SiteStatus, rec.ID)
	}
}

func TestProbeBatch_CancelSingleUnit(t *testing.T) {
	prober := &mockProber{
		results: map[string]model.ProbeResult{"https://fast.example": alive()},
		block:   map[string]bool{"https://slow.example": true},
		started: make(chan string, 8),
	}
	records := NewRecordCollection(
		model.Record{ID: "slow", Site: "https://slow.example"},
		model.Record{ID: "fast", Site: "https://fast.example"},
	)
	svc := NewProbeService(prober, records, nil, 2, discardLogger())

	done := make(chan ProbeReport, 1)
	go func() {
		report, _ := svc.ProbeBatch(context.Background(), []string{"slow", "fast"})
		done <- report
	}()

	waitStarted(t, prober.started, "https://slow.example")
	assert.True(t, svc.Cancel("slow"))

	var report ProbeReport
	select {
	case report = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not finish")
	}

	assert.False(t, report.Stopped)
	assert.Equal(t, 1, report.Alive)
	assert.Equal(t, 1, report.Unknown)

	slow, _ := records.Get("slow")
	fast, _ := records.Get("fast")
	assert.Equal(t, model.SiteStatusUnknown, slow.SiteStatus)
	assert.Equal(t, model.SiteStatusAlive, fast.SiteStatus)
	assert.False(t, svc.Cancel("slow"), "no batch is running any more")
}

func TestProbeBatch_RejectsOverlappingBatch(t *testing.T) {
	prober := &mockProber{
		block:   map[string]bool{"https://slow.example": true},
		started: make(chan string, 8),
	}
	records := NewRecordCollection(model.Record{ID: "slow", Site: "https://slow.example"})
	svc := NewProbeService(prober, records, nil, 1, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.ProbeBatch(context.Background(), []string{"slow"})
	}()
	waitStarted(t, prober.started, "https://slow.example")

	_, err := svc.ProbeBatch(context.Background(), []string{"slow"})
	assert.ErrorIs(t, err, ErrProbeInProgress)

	svc.Stop()
	<-done
}

func TestProbeBatch_NothingSelected(t *testing.T) {
	svc := NewProbeService(&mockProber{}, NewRecordCollection(), nil, 1, discardLogger())

	_, err := svc.ProbeBatch(context.Background(), []string{"missing"})

	assert.ErrorIs(t, err, ErrNoRecordsSelected)
}
