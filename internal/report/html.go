package report

import (
	"html/template"
	"io"
	"math"
	"strconv"
	"time"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"num":  formatFloat,
	"date": func(t time.Time) string { return t.Format(time.DateOnly) },
	"ts":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Relatorio de Incidentes</title></head><body>
<h1>Relatorio de Incidentes</h1>
<p>Execucao {{.RunID}} em {{ts .GeneratedAt}}: {{.Records}} registos, {{.DatedRecords}} com data, {{.LongRows}} linhas longas.</p>
{{- if .Provinces}}
<h2>Numero total de incidentes por provincia</h2>
<table border="1"><thead><tr><th>province</th><th>total_incidentes</th><th>registered_cases</th></tr></thead><tbody>
{{- range .Provinces}}
<tr><td>{{.Province}}</td><td>{{.Incidents}}</td><td>{{.RegisteredCases}}</td></tr>
{{- end}}
</tbody></table>
{{- end}}
{{- if .Weekly}}
<h2>Tendencia semanal</h2>
{{template "periods" .Weekly}}
<h2>Tendencia mensal</h2>
{{template "periods" .Monthly}}
{{- end}}
<h2>Distribuicao dos tipos de incidente</h2>
<table border="1"><thead><tr><th>types</th><th>contagem</th></tr></thead><tbody>
{{- range .Types}}
<tr><td>{{.Type}}</td><td>{{.Count}}</td></tr>
{{- end}}
</tbody></table>
<h2>Analise descritiva dos casos registados</h2>
<table border="1"><thead><tr><th>index</th><th>registered_cases</th></tr></thead><tbody>
<tr><td>count</td><td>{{.Cases.Count}}</td></tr>
<tr><td>mean</td><td>{{num .Cases.Mean}}</td></tr>
<tr><td>std</td><td>{{num .Cases.Std}}</td></tr>
<tr><td>min</td><td>{{num .Cases.Min}}</td></tr>
<tr><td>25%</td><td>{{num .Cases.P25}}</td></tr>
<tr><td>50%</td><td>{{num .Cases.P50}}</td></tr>
<tr><td>75%</td><td>{{num .Cases.P75}}</td></tr>
<tr><td>max</td><td>{{num .Cases.Max}}</td></tr>
</tbody></table>
{{- range .Figures}}
<h3>Figura: {{.}}</h3><img src="{{.}}" style="max-width:100%;height:auto;"/>
{{- end}}
<h2>Validacao</h2>
{{- if .Flags}}
<ul>
{{- range .Flags}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- else}}
<p>Sem inconsistencias encontradas.</p>
{{- end}}
</body></html>
{{define "periods"}}<table border="1"><thead><tr><th>start_date</th><th>total_eventos</th><th>registered_cases</th></tr></thead><tbody>
{{- range .}}
<tr><td>{{date .End}}</td><td>{{.Events}}</td><td>{{.RegisteredCases}}</td></tr>
{{- end}}
</tbody></table>{{end}}`))

// WriteHTML renders s as a standalone HTML document. Figure names are
// linked relative to the report.
func WriteHTML(w io.Writer, s *Summary) error {
	return htmlTemplate.Execute(w, s)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
