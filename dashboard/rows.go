package dashboard

import (
	"fmt"
	"slices"
	"time"

	"github.com/dickeyy/bundle-dashboard/types"
)

const (
	// Columns is the number of cells in a measurement row.
	Columns = 6

	DefaultCommitOrg = "jisr-hr"

	NoDataMessage    = "No data available"
	LoadErrorMessage = "Failed to load data. Please check if data/bundle-sizes.json exists."

	commitURLTemplate = "https://github.com/%s/%s/commit/%s"
)

// Link is an anchor rendered inside a cell. Links always open in a new
// browsing context.
type Link struct {
	Text  string `json:"text"`
	URL   string `json:"url"`
	Class string `json:"class"`
}

// Cell is one table cell. Links, when present, replace Text. Badge is the
// class of the span wrapping Text, if any.
type Cell struct {
	Class   string `json:"class,omitempty"`
	Text    string `json:"text,omitempty"`
	Badge   string `json:"badge,omitempty"`
	Links   []Link `json:"links,omitempty"`
	ColSpan int    `json:"colspan,omitempty"`
}

// Row is one table row of the dashboard.
type Row struct {
	Cells []Cell `json:"cells"`
}

// MessageRow is a single error-styled cell spanning the whole table.
func MessageRow(message string) Row {
	return Row{Cells: []Cell{{Class: "error", Text: message, ColSpan: Columns}}}
}

// BuildRows maps records to table rows, newest first. records is not
// modified; equal timestamps keep their dataset order. An empty dataset
// yields the "No data available" placeholder.
func BuildRows(records []types.MeasurementRecord, org string, loc *time.Location) []Row {
	if len(records) == 0 {
		return []Row{MessageRow(NoDataMessage)}
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b types.MeasurementRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	rows := make([]Row, 0, len(sorted))
	for _, rec := range sorted {
		rows = append(rows, buildRow(rec, org, loc))
	}
	return rows
}

func buildRow(rec types.MeasurementRecord, org string, loc *time.Location) Row {
	repo := rec.Repo
	if repo == "" {
		repo = "Unknown"
	}
	return Row{Cells: []Cell{
		{Class: "date-cell", Text: FormatDate(rec.Timestamp, loc)},
		versionCell(rec),
		{Class: "repo-cell", Text: repo},
		sizeCell(rec.Android(), "android"),
		sizeCell(rec.IOS(), "ios"),
		actionCell(rec, org),
	}}
}

func sizeCell(size types.Size, platform string) Cell {
	badge := "size-" + platform
	if size.State != types.SizeMeasured {
		badge = "size-error"
	}
	return Cell{Class: "size-cell", Text: size.String(), Badge: badge}
}

// VersionLabel is the identifier shown for a record: PR, then branch, then
// commit, then "Unknown".
func VersionLabel(rec types.MeasurementRecord) string {
	switch {
	case rec.PRNumber != 0:
		return types.PRRef(rec.PRNumber)
	case rec.Branch != "":
		return rec.Branch
	case rec.CommitSHA != "":
		return rec.CommitSHA
	default:
		return "Unknown"
	}
}

func versionCell(rec types.MeasurementRecord) Cell {
	cell := Cell{Class: "version-cell", Text: VersionLabel(rec)}
	if rec.PRNumber != 0 && rec.PRURL != "" {
		cell.Links = []Link{{Text: cell.Text, URL: rec.PRURL, Class: "pr-link"}}
	}
	return cell
}

// CommitURL links a commit in the organisation's GitHub repository.
func CommitURL(org, repo, sha string) string {
	return fmt.Sprintf(commitURLTemplate, org, repo, sha)
}

func actionCell(rec types.MeasurementRecord, org string) Cell {
	var links []Link
	if rec.PRURL != "" {
		links = append(links, Link{Text: "View PR", URL: rec.PRURL, Class: "action-link"})
	}
	if rec.CommitSHA != "" && rec.Repo != "" {
		links = append(links, Link{Text: "Commit", URL: CommitURL(org, rec.Repo, rec.CommitSHA), Class: "action-link"})
	}
	return Cell{Links: links}
}
