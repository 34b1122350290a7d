// profile_html.go - HTML rendering of dataset profile reports
package api

import "html/template"

var profileTemplate = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Profile: {{.Title}}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2937; }
  h1 { font-size: 1.4rem; }
  h2 { font-size: 1.1rem; margin-top: 2rem; }
  table { border-collapse: collapse; margin-top: 0.5rem; }
  th, td { border: 1px solid #d1d5db; padding: 0.35rem 0.7rem; text-align: left; font-size: 0.9rem; }
  th { background: #f3f4f6; }
  .meta { color: #6b7280; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>Dataset profile: {{.Title}}</h1>
<p class="meta">Generated {{.GeneratedAt}} &middot; {{.RowCount}} rows &times; {{.ColumnCount}} columns &middot; {{.DuplicateRows}} duplicate rows &middot; ~{{.EstimatedBytes}} bytes in memory</p>

<h2>Columns</h2>
<table>
<tr><th>Name</th><th>Type</th><th>Non-null</th><th>Nulls</th><th>Distinct</th></tr>
{{range .Columns}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td>{{.Count}}</td><td>{{.NullCount}}</td><td>{{.DistinctCount}}</td></tr>
{{end}}</table>

{{range .Columns}}{{if .Numeric}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Min</th><th>Max</th><th>Mean</th><th>Stddev</th><th>Sum</th></tr>
<tr><td>{{printf "%.4g" .Numeric.Min}}</td><td>{{printf "%.4g" .Numeric.Max}}</td><td>{{printf "%.4g" .Numeric.Mean}}</td><td>{{printf "%.4g" .Numeric.Stddev}}</td><td>{{printf "%.4g" .Numeric.Sum}}</td></tr>
</table>
{{else if .TopValues}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Value</th><th>Count</th></tr>
{{range .TopValues}}<tr><td>{{.Value}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
{{end}}{{end}}
</body>
</html>
`))
