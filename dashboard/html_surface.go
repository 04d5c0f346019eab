package dashboard

import (
	"bytes"
	"html/template"

	"github.com/rs/zerolog/log"
)

var tbodyTemplate = template.Must(template.New("tbody").Parse(
	`{{range .}}<tr>{{range .Cells}}<td{{with .Class}} class="{{.}}"{{end}}{{with .ColSpan}} colspan="{{.}}"{{end}}>` +
		`{{if .Links}}{{range $i, $l := .Links}}{{if $i}} {{end}}<a href="{{$l.URL}}" target="_blank" rel="noopener" class="{{$l.Class}}">{{$l.Text}}</a>{{end}}` +
		`{{else if .Badge}}<span class="{{.Badge}}">{{.Text}}</span>` +
		`{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{end}}`))

// HTMLSurface keeps the rendered table body and stat fields in memory for the
// HTTP page. It is safe for concurrent use.
type HTMLSurface struct {
	surfaceState
	tbody template.HTML
}

// HTMLSnapshot is a consistent view of an HTMLSurface.
type HTMLSnapshot struct {
	Rows   []Row
	Fields map[string]string
	TBody  template.HTML
}

func NewHTMLSurface() *HTMLSurface {
	s := &HTMLSurface{}
	s.reset()
	s.tbody = renderTBody(s.rows)
	return s
}

func (s *HTMLSurface) ReplaceRows(rows []Row) {
	html := renderTBody(rows)
	s.mu.Lock()
	s.rows = rows
	s.tbody = html
	s.mu.Unlock()
}

func (s *HTMLSurface) SetField(id, text string) {
	s.mu.Lock()
	s.fields[id] = text
	s.mu.Unlock()
}

func (s *HTMLSurface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.tbody = renderTBody(s.rows)
}

func (s *HTMLSurface) Snapshot() HTMLSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, fields := s.snapshot()
	return HTMLSnapshot{Rows: rows, Fields: fields, TBody: s.tbody}
}

func renderTBody(rows []Row) template.HTML {
	var buf bytes.Buffer
	if err := tbodyTemplate.Execute(&buf, rows); err != nil {
		log.Error().Err(err).Msg("failed to render table body")
		return ""
	}
	return template.HTML(buf.String())
}
