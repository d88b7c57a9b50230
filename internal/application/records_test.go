package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRecordCollection_AddIgnoresDuplicateIDs(t *testing.T) {
	c := NewRecordCollection(model.Record{ID: "a", Profile: "first"})
	c.Add(model.Record{ID: "a", Profile: "second"}, model.Record{ID: "b"})

	assert.Equal(t, 2, c.Len())
	a, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", a.Profile)
}

func TestRecordCollection_Sort(t *testing.T) {
	tests := []struct {
		name string
		key  model.SortKey
		want []string
	}{
		{name: "breach descending, unknown last", key: model.SortByBreach, want: []string{"c", "a", "d", "b"}},
		{name: "usage descending", key: model.SortByUsage, want: []string{"b", "d", "a", "c"}},
		{name: "profile case-insensitive", key: model.SortByProfile, want: []string{"a", "c", "b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRecordCollection(
				model.Record{ID: "a", Profile: "alpha", UsageCount: 2, Breach: model.KnownBreachCount(5)},
				model.Record{ID: "b", Profile: "Charlie", UsageCount: 9, Breach: model.UnknownBreachCount()},
				model.Record{ID: "c", Profile: "Bravo", UsageCount: 1, Breach: model.KnownBreachCount(40)},
				model.Record{ID: "d", Profile: "delta", UsageCount: 3, Breach: model.KnownBreachCount(0)},
			)

			c.Sort(tt.key)

			assert.Equal(t, tt.want, c.IDs())
		})
	}
}

func TestRecordCollection_SortIsStable(t *testing.T) {
	c := NewRecordCollection(
		model.Record{ID: "a", UsageCount: 1},
		model.Record{ID: "b", UsageCount: 1},
		model.Record{ID: "c", UsageCount: 1},
	)

	c.Sort(model.SortByUsage)

	assert.Equal(t, []string{"a", "b", "c"}, c.IDs())
}

func TestRecordCollection_SelectedKeepsRequestOrder(t *testing.T) {
	c := NewRecordCollection(model.Record{ID: "a"}, model.Record{ID: "b"}, model.Record{ID: "c"})

	got := c.Selected([]string{"c", "missing", "a", "c"})

	assert.Equal(t, []string{"c", "a"}, ids(got))
}

func TestRecordCollection_Filter(t *testing.T) {
	c := NewRecordCollection(
		model.Record{ID: "a", Breach: model.KnownBreachCount(3)},
		model.Record{ID: "b", Breach: model.KnownBreachCount(0)},
		model.Record{ID: "c", Breach: model.UnknownBreachCount()},
	)

	got := c.Filter(func(r model.Record) bool { return r.Breach.Breached() })

	assert.Equal(t, []string{"a"}, ids(got))
}

func TestRecordCollection_Delete(t *testing.T) {
	c := NewRecordCollection(model.Record{ID: "a"}, model.Record{ID: "b"}, model.Record{ID: "c"})

	removed := c.Delete("b", "missing")

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"a", "c"}, c.IDs())
	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.ErrorIs(t, c.SetBreachCount("b", model.KnownBreachCount(1)), ErrRecordNotFound)
}

func TestRecordCollection_PartialUpdates(t *testing.T) {
	c := NewRecordCollection(model.Record{ID: "a", Secret: "s"})

	require.NoError(t, c.MarkChecking("a"))
	rec, _ := c.Get("a")
	assert.Equal(t, model.SiteStatusChecking, rec.SiteStatus)

	require.NoError(t, c.SetBreachCount("a", model.KnownBreachCount(7)))
	require.NoError(t, c.SetProbeResult("a", model.ProbeResult{Status: model.SiteStatusDead, HTTPStatus: intPtr(410)}))

	rec, _ = c.Get("a")
	assert.Equal(t, model.KnownBreachCount(7), rec.Breach)
	assert.Equal(t, model.SiteStatusDead, rec.SiteStatus)
	assert.Equal(t, 410, *rec.HTTPStatus)
	assert.Nil(t, rec.ResponseTimeMs)
	assert.Equal(t, "s", rec.Secret)
}

func TestRecordCollection_GetReturnsCopy(t *testing.T) {
	c := NewRecordCollection(model.Record{ID: "a", Profile: "p"})

	rec, _ := c.Get("a")
	rec.Profile = "changed"

	again, _ := c.Get("a")
	assert.Equal(t, "p", again.Profile)
}
