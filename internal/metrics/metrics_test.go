package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounts(t *testing.T) {
	c := NewCollector(10)

	c.Record(10*time.Millisecond, 200)
	c.Record(20*time.Millisecond, 200)
	c.Record(30*time.Millisecond, 429)
	c.Record(40*time.Millisecond, 503)

	stats := c.Snapshot()

	assert.Equal(t, uint64(4), stats.TotalRequests)
	assert.Equal(t, uint64(2), stats.TotalErrors)
	assert.InDelta(t, 0.5, stats.ErrorRate, 1e-9)
	assert.Equal(t, uint64(2), stats.StatusCounts[200])
	assert.Equal(t, uint64(1), stats.StatusCounts[429])
}

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector(10)

	stats := c.Snapshot()

	assert.Equal(t, uint64(0), stats.TotalRequests)
	assert.Equal(t, "0s", stats.P50Latency)
}

func TestSampleWindowBounded(t *testing.T) {
	c := NewCollector(5)

	for i := 0; i < 100; i++ {
		c.Record(time.Duration(i)*time.Millisecond, 200)
	}

	// Only the most recent 5 samples remain; p50 reflects them.
	stats := c.Snapshot()
	assert.Equal(t, uint64(100), stats.TotalRequests)
	assert.Equal(t, (96 * time.Millisecond).String(), stats.P50Latency)
}
