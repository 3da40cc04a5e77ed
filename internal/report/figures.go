package report

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Figure file names, written next to the HTML report.
const (
	FigWeeklyTrend  = "fig_tendencia_semanal.png"
	FigMonthlyTrend = "fig_tendencia_mensal.png"
	FigProvinces    = "fig_incidentes_por_provincia.png"
	FigTypes        = "fig_distribuicao_tipos.png"
)

type figure struct {
	name   string
	width  vg.Length
	height vg.Length
	build  func(*Summary) (*plot.Plot, error)
}

var figures = []figure{
	{FigWeeklyTrend, 10 * vg.Inch, 4 * vg.Inch, func(s *Summary) (*plot.Plot, error) {
		return trendPlot(s.Weekly, "Tendencia semanal", "Semana")
	}},
	{FigMonthlyTrend, 10 * vg.Inch, 4 * vg.Inch, func(s *Summary) (*plot.Plot, error) {
		return trendPlot(s.Monthly, "Tendencia mensal", "Mes")
	}},
	{FigProvinces, 10 * vg.Inch, 5 * vg.Inch, provincePlot},
	{FigTypes, 8 * vg.Inch, 4 * vg.Inch, typePlot},
}

// FigureNames lists every figure file the report may write.
func FigureNames() []string {
	names := make([]string, len(figures))
	for i, f := range figures {
		names[i] = f.name
	}
	return names
}

// errNoData marks a figure with nothing to draw; it is skipped silently.
var errNoData = errors.New("no data")

// renderFigures writes every figure it can into dir and returns the file
// names written. A failing figure is logged and skipped.
func renderFigures(dir string, s *Summary, logger *slog.Logger) []string {
	var written []string
	for _, f := range figures {
		p, err := f.build(s)
		if errors.Is(err, errNoData) {
			continue
		}
		if err == nil {
			err = p.Save(f.width, f.height, filepath.Join(dir, f.name))
		}
		if err != nil {
			logger.Warn("figure skipped", "figure", f.name, "error", err)
			continue
		}
		written = append(written, f.name)
	}
	return written
}

func trendPlot(periods []PeriodTotal, title, xLabel string) (*plot.Plot, error) {
	if len(periods) == 0 {
		return nil, errNoData
	}
	pts := make(plotter.XYs, len(periods))
	for i, p := range periods {
		pts[i].X = float64(p.End.Unix())
		pts[i].Y = float64(p.RegisteredCases)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Casos registados"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	p.Add(line)
	return p, nil
}

func provincePlot(s *Summary) (*plot.Plot, error) {
	if len(s.Provinces) == 0 {
		return nil, errNoData
	}
	values := make(plotter.Values, len(s.Provinces))
	labels := make([]string, len(s.Provinces))
	for i, p := range s.Provinces {
		values[i] = float64(p.Incidents)
		labels[i] = p.Province
	}
	return barPlot("Incidentes por provincia", "total_incidentes", values, labels)
}

func typePlot(s *Summary) (*plot.Plot, error) {
	if len(s.Types) == 0 {
		return nil, errNoData
	}
	values := make(plotter.Values, len(s.Types))
	labels := make([]string, len(s.Types))
	for i, t := range s.Types {
		values[i] = float64(t.Count)
		labels[i] = t.Type
	}
	return barPlot("Distribuicao dos tipos de incidente", "contagem", values, labels)
}

func barPlot(title, yLabel string, values plotter.Values, labels []string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("build bars: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1
	return p, nil
}
