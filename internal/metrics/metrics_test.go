package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painelpib/internal/loader"
)

func TestLoadFinished(t *testing.T) {
	m := New()
	m.LoadFinished(nil, time.Second, loader.RowStats{Rows: 10, Kept: 7, Dropped: map[loader.DropReason]int{
		loader.DropValue: 2, loader.DropYear: 1,
	}})
	m.LoadFinished(errors.New("boom"), time.Millisecond, loader.RowStats{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadTotal.WithLabelValues("error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.rowsKept), "a load failing before the table keeps the row gauges")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("value")))

	n, err := testutil.GatherAndCount(m.Registry, "painel_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/ranking", 200, time.Millisecond)
	m.ObserveRequest("/api/ranking", 200, time.Millisecond)
	m.ObserveRequest("/api/ranking", 400, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpTotal.WithLabelValues("/api/ranking", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpTotal.WithLabelValues("/api/ranking", "400")))
}
