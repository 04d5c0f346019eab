package server

import "html/template"

type pageData struct {
	Title   string
	Refresh int
	TBodyID string
	TBody   template.HTML
	Fields  map[string]string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  {{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; margin: 0; background: #f5f6f8; color: #1f2933; }
    header { padding: 24px 32px; background: #fff; border-bottom: 1px solid #e4e7eb; }
    h1 { margin: 0; font-size: 22px; }
    .stats { display: grid; grid-template-columns: repeat(4, minmax(0, 1fr)); gap: 16px; padding: 24px 32px 0; }
    .stat { background: #fff; border: 1px solid #e4e7eb; border-radius: 8px; padding: 16px; }
    .stat-label { font-size: 12px; color: #7b8794; text-transform: uppercase; }
    .stat-value { font-size: 22px; font-weight: 600; margin-top: 6px; }
    main { padding: 24px 32px 40px; }
    table { width: 100%; border-collapse: collapse; background: #fff; border: 1px solid #e4e7eb; }
    th, td { padding: 10px 12px; text-align: left; border-bottom: 1px solid #e4e7eb; font-size: 14px; }
    th { background: #f9fafb; font-size: 12px; text-transform: uppercase; color: #52606d; }
    .size-android { color: #2f855a; font-weight: 600; }
    .size-ios { color: #2b6cb0; font-weight: 600; }
    .size-error, .error { color: #c53030; }
    .loading { color: #7b8794; }
    .pr-link, .action-link { color: #2b6cb0; text-decoration: none; }
  </style>
</head>
<body>
  <header><h1>{{.Title}}</h1></header>
  <section class="stats">
    <div class="stat"><div class="stat-label">Total entries</div><div class="stat-value" id="total-entries">{{index .Fields "total-entries"}}</div></div>
    <div class="stat"><div class="stat-label">Latest Android</div><div class="stat-value" id="latest-android">{{index .Fields "latest-android"}}</div></div>
    <div class="stat"><div class="stat-label">Latest iOS</div><div class="stat-value" id="latest-ios">{{index .Fields "latest-ios"}}</div></div>
    <div class="stat"><div class="stat-label">Last updated</div><div class="stat-value" id="last-updated">{{index .Fields "last-updated"}}</div></div>
  </section>
  <main>
    <table>
      <thead>
        <tr><th>Date</th><th>Version</th><th>Repository</th><th>Android</th><th>iOS</th><th>Actions</th></tr>
      </thead>
      <tbody id="{{.TBodyID}}">
{{.TBody}}      </tbody>
    </table>
  </main>
</body>
</html>
`))
