package application

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// RecordCollection is the in-memory set of imported records. Pipelines
// update records by ID through field-scoped setters so that a probe result
// never clobbers a breach count written concurrently, and vice versa.
type RecordCollection struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*model.Record
}

// NewRecordCollection creates a collection seeded with records.
func NewRecordCollection(records ...model.Record) *RecordCollection {
	c := &RecordCollection{byID: make(map[string]*model.Record)}
	c.Add(records...)
	return c
}

// Add appends records. A record whose ID is already present is ignored.
func (c *RecordCollection) Add(records ...model.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		if _, ok := c.byID[rec.ID]; ok {
			continue
		}
		r := rec
		c.byID[rec.ID] = &r
		c.order = append(c.order, rec.ID)
	}
}

// Len returns the number of records.
func (c *RecordCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Get returns a copy of the record with the given ID.
func (c *RecordCollection) Get(id string) (model.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.byID[id]
	if !ok {
		return model.Record{}, false
	}
	return *rec, true
}

// List returns copies of all records in display order.
func (c *RecordCollection) List() []model.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

// IDs returns all record IDs in display order.
func (c *RecordCollection) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Selected returns copies of the records named by ids, in ids order.
// Unknown and duplicate IDs are skipped.
func (c *RecordCollection) Selected(ids []string) []model.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	out := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := c.byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, *rec)
	}
	return out
}

// Filter returns copies of the records matching keep, in display order.
func (c *RecordCollection) Filter(keep func(model.Record) bool) []model.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Record
	for _, id := range c.order {
		if rec := *c.byID[id]; keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// SetBreachCount updates only the breach count of a record.
func (c *RecordCollection) SetBreachCount(id string, count model.BreachCount) error {
	return c.update(id, func(r *model.Record) {
		r.Breach = count
	})
}

// MarkChecking flags a record's site as being probed.
func (c *RecordCollection) MarkChecking(id string) error {
	return c.update(id, func(r *model.Record) {
		r.SiteStatus = model.SiteStatusChecking
	})
}

// SetProbeResult updates only the site liveness fields of a record.
func (c *RecordCollection) SetProbeResult(id string, result model.ProbeResult) error {
	return c.update(id, func(r *model.Record) {
		r.SiteStatus = result.Status
		r.HTTPStatus = result.HTTPStatus
		r.ResponseTimeMs = result.TimeMs
	})
}

func (c *RecordCollection) update(id string, apply func(*model.Record)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.byID[id]
	if !ok {
		return ErrRecordNotFound
	}
	apply(rec)
	return nil
}

// Delete removes the records named by ids and returns how many were removed.
func (c *RecordCollection) Delete(ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := c.byID[id]; ok {
			delete(c.byID, id)
			removed++
		}
	}
	if removed > 0 {
		c.order = slices.DeleteFunc(c.order, func(id string) bool {
			_, ok := c.byID[id]
			return !ok
		})
	}
	return removed
}

// Sort reorders the collection. The sort is stable so ties keep their
// relative order.
func (c *RecordCollection) Sort(key model.SortKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slices.SortStableFunc(c.order, func(a, b string) int {
		ra, rb := c.byID[a], c.byID[b]
		switch key {
		case model.SortByBreach:
			return compareBreach(ra.Breach, rb.Breach)
		case model.SortByUsage:
			return cmp.Compare(rb.UsageCount, ra.UsageCount)
		case model.SortByProfile:
			return strings.Compare(strings.ToLower(ra.Profile), strings.ToLower(rb.Profile))
		default:
			return 0
		}
	})
}

// compareBreach orders known counts descending with unknown counts last.
func compareBreach(a, b model.BreachCount) int {
	switch {
	case a.Known && !b.Known:
		return -1
	case !a.Known && b.Known:
		return 1
	case !a.Known && !b.Known:
		return 0
	default:
		return cmp.Compare(b.Count, a.Count)
	}
}
