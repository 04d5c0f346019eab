package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLSurfaceInitialState(t *testing.T) {
	s := NewHTMLSurface()
	snap := s.Snapshot()

	assert.Contains(t, string(snap.TBody), LoadingMessage)
	for _, id := range FieldIDs {
		assert.Equal(t, EmptyField, snap.Fields[id])
	}
}

func TestHTMLSurfaceRendersRows(t *testing.T) {
	rec := types.MeasurementRecord{
		Timestamp:   at(9),
		Repo:        "mobile-app",
		PRNumber:    42,
		PRURL:       "https://github.com/jisr-hr/mobile-app/pull/42",
		CommitSHA:   "abc123",
		AndroidSize: size(1536),
	}
	s := NewHTMLSurface()
	s.ReplaceRows(BuildRows([]types.MeasurementRecord{rec}, DefaultCommitOrg, time.UTC))
	html := string(s.Snapshot().TBody)

	assert.Contains(t, html, `<td class="date-cell">May 20, 2024, 09:00 AM</td>`)
	assert.Contains(t, html, `<a href="https://github.com/jisr-hr/mobile-app/pull/42" target="_blank" rel="noopener" class="pr-link">PR #42</a>`)
	assert.Contains(t, html, `<span class="size-android">1.5 KB</span>`)
	assert.Contains(t, html, `<span class="size-error">N/A</span>`)
	assert.Contains(t, html, `class="action-link">View PR</a> <a href="https://github.com/jisr-hr/mobile-app/commit/abc123"`)
	assert.Equal(t, 1, strings.Count(html, "<tr>"))
}

func TestHTMLSurfaceEscapesValues(t *testing.T) {
	s := NewHTMLSurface()
	s.ReplaceRows(BuildRows([]types.MeasurementRecord{{
		Timestamp: at(1),
		Branch:    `<script>alert(1)</script>`,
		PRURL:     "javascript:alert(1)",
	}}, DefaultCommitOrg, time.UTC))
	html := string(s.Snapshot().TBody)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, `href="javascript:`)
}

func TestHTMLSurfaceMessageRowAndReset(t *testing.T) {
	s := NewHTMLSurface()
	s.ReplaceRows([]Row{MessageRow(LoadErrorMessage)})
	s.SetField(FieldTotalEntries, "3")

	snap := s.Snapshot()
	assert.Contains(t, string(snap.TBody), `<td class="error" colspan="6">`+
		`Failed to load data. Please check if data/bundle-sizes.json exists.</td>`)
	assert.Equal(t, "3", snap.Fields[FieldTotalEntries])

	s.Reset()
	snap = s.Snapshot()
	assert.Contains(t, string(snap.TBody), LoadingMessage)
	assert.Equal(t, EmptyField, snap.Fields[FieldTotalEntries])
}

func TestTextSurfaceRender(t *testing.T) {
	s := NewTextSurface()
	c := newTestController(&stubLoader{records: []types.MeasurementRecord{
		{Timestamp: now.Add(-time.Minute), Repo: "web", Branch: "main", CommitSHA: "abc", IOSSize: size(1024)},
	}}, s, WithCommitOrg("acme"))
	require.NoError(t, c.LoadData(t.Context()))

	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "Total entries:  1")
	assert.Contains(t, out, "Last updated:   1 min ago")
	assert.Contains(t, out, "DATE")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "1 KB")
	assert.Contains(t, out, "https://github.com/acme/web/commit/abc")
}
