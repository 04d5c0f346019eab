package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 9, 7, 0, 0, time.UTC)
	assert.Equal(t, "Mar 5, 2024, 09:07 AM", FormatDate(ts, nil))

	riyadh := time.FixedZone("AST", 3*60*60)
	assert.Equal(t, "Mar 5, 2024, 12:07 PM", FormatDate(ts, riyadh))
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"just now", 30 * time.Second, "0 mins ago"},
		{"one minute", time.Minute, "1 min ago"},
		{"59 minutes", 59 * time.Minute, "59 mins ago"},
		{"60 minutes", 60 * time.Minute, "1 hour ago"},
		{"two hours", 2*time.Hour + 59*time.Minute, "2 hours ago"},
		{"23 hours", 23 * time.Hour, "23 hours ago"},
		{"24 hours", 24 * time.Hour, "1 day ago"},
		{"6 days", 6 * 24 * time.Hour, "6 days ago"},
		{"7 days", 7 * 24 * time.Hour, "May 13, 2024, 12:00 PM"},
		{"future", -30 * time.Second, "-1 mins ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRelativeTime(now.Add(-tt.elapsed), now, time.UTC))
		})
	}
}
