package dashboard

import (
	"testing"
	"time"

	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestRecordFirstMaxWins(t *testing.T) {
	records := []types.MeasurementRecord{
		{Timestamp: at(1), Branch: "old"},
		{Timestamp: at(5), Branch: "first"},
		{Timestamp: at(5), Branch: "second"},
		{Timestamp: at(2), Branch: "mid"},
	}
	latest, ok := LatestRecord(records)
	require.True(t, ok)
	assert.Equal(t, "first", latest.Branch)
}

func TestLatestRecordEmpty(t *testing.T) {
	_, ok := LatestRecord(nil)
	assert.False(t, ok)
}

func TestBuildStats(t *testing.T) {
	records := []types.MeasurementRecord{
		{Timestamp: now.Add(-3 * time.Hour), AndroidSize: size(1024)},
		{Timestamp: now.Add(-5 * time.Minute), AndroidSize: size(1536), IOSError: true},
		{Timestamp: now.Add(-time.Hour), IOSSize: size(2048)},
	}
	stats, ok := BuildStats(records, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, Stats{
		TotalEntries:  3,
		LatestAndroid: "1.5 KB",
		LatestIOS:     "Error",
		LastUpdated:   "5 mins ago",
	}, stats)
}

func TestBuildStatsZeroSizeIsUnmeasured(t *testing.T) {
	stats, ok := BuildStats([]types.MeasurementRecord{{Timestamp: now, AndroidSize: size(0)}}, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "N/A", stats.LatestAndroid)
	assert.Equal(t, "N/A", stats.LatestIOS)
}

func TestBuildStatsEmpty(t *testing.T) {
	_, ok := BuildStats([]types.MeasurementRecord{}, now, time.UTC)
	assert.False(t, ok)
}
