package dashboard

import (
	"time"

	"github.com/dickeyy/bundle-dashboard/types"
)

// Output field ids written by UpdateStats.
const (
	FieldTotalEntries  = "total-entries"
	FieldLatestAndroid = "latest-android"
	FieldLatestIOS     = "latest-ios"
	FieldLastUpdated   = "last-updated"
)

// Stats summarises a dataset for the header fields.
type Stats struct {
	TotalEntries  int    `json:"total_entries"`
	LatestAndroid string `json:"latest_android"`
	LatestIOS     string `json:"latest_ios"`
	LastUpdated   string `json:"last_updated"`
}

// LatestRecord returns the record with the greatest timestamp. Ties go to the
// record that appears first.
func LatestRecord(records []types.MeasurementRecord) (types.MeasurementRecord, bool) {
	if len(records) == 0 {
		return types.MeasurementRecord{}, false
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if rec.Timestamp.After(latest.Timestamp) {
			latest = rec
		}
	}
	return latest, true
}

// BuildStats derives the header values. It reports false for an empty dataset.
func BuildStats(records []types.MeasurementRecord, now time.Time, loc *time.Location) (Stats, bool) {
	latest, ok := LatestRecord(records)
	if !ok {
		return Stats{}, false
	}
	return Stats{
		TotalEntries:  len(records),
		LatestAndroid: latest.Android().String(),
		LatestIOS:     latest.IOS().String(),
		LastUpdated:   FormatRelativeTime(latest.Timestamp, now, loc),
	}, true
}
