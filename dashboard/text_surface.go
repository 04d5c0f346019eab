package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var textHeader = []string{"DATE", "VERSION", "REPO", "ANDROID", "IOS", "LINKS"}

var fieldLabels = map[string]string{
	FieldTotalEntries:  "Total entries",
	FieldLatestAndroid: "Latest Android",
	FieldLatestIOS:     "Latest iOS",
	FieldLastUpdated:   "Last updated",
}

// TextSurface collects the dashboard for terminal output.
type TextSurface struct {
	surfaceState
}

func NewTextSurface() *TextSurface {
	s := &TextSurface{}
	s.reset()
	return s
}

func (s *TextSurface) ReplaceRows(rows []Row) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func (s *TextSurface) SetField(id, text string) {
	s.mu.Lock()
	s.fields[id] = text
	s.mu.Unlock()
}

func (s *TextSurface) Reset() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

// Render writes the stat fields followed by an aligned table.
func (s *TextSurface) Render(w io.Writer) error {
	s.mu.RLock()
	rows, fields := s.snapshot()
	s.mu.RUnlock()

	for _, id := range FieldIDs {
		if _, err := fmt.Fprintf(w, "%-15s %s\n", fieldLabels[id]+":", fields[id]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(textHeader, "\t"))
	for _, row := range rows {
		cols := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cols = append(cols, cellText(c))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func cellText(c Cell) string {
	if len(c.Links) == 0 {
		return c.Text
	}
	// The version cell's single link repeats its label; show the label.
	if c.Text != "" {
		return c.Text
	}
	urls := make([]string, 0, len(c.Links))
	for _, l := range c.Links {
		urls = append(urls, l.URL)
	}
	return strings.Join(urls, " ")
}
