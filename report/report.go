// Package report draws charts of model inspection and evaluation results.
package report

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
	"github.com/ezoic/sciforest/tree"
)

// Default chart size.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// ImportanceChart draws one bar per field, in the order of imp. Bars are
// labelled with the field names found in t, or the field ids.
func ImportanceChart(title string, imp []tree.Importance, t fields.Table) (*plot.Plot, error) {
	if len(imp) == 0 {
		return nil, scigoErrors.NewValueError("report.ImportanceChart", "no field importance")
	}
	values := make(plotter.Values, len(imp))
	names := make([]string, len(imp))
	for i, fi := range imp {
		values[i] = fi.Score
		names[i] = t.Name(fi.Field)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, scigoErrors.Wrap(err, "building importance bars")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// PredictionScatter plots predicted against actual values, with the
// identity line for reference.
func PredictionScatter(title string, actual, predicted []float64) (*plot.Plot, error) {
	if len(actual) == 0 {
		return nil, scigoErrors.NewValueError("report.PredictionScatter", "no points")
	}
	if len(predicted) != len(actual) {
		return nil, scigoErrors.NewDimensionError("report.PredictionScatter", len(actual), len(predicted))
	}
	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, scigoErrors.Wrap(err, "building prediction scatter")
	}
	scatter.Color = plotter.DefaultLineStyle.Color
	p.Add(scatter)
	p.Legend.Add("Predictions", scatter)

	line, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, scigoErrors.Wrap(err, "building identity line")
	}
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("Actual = predicted", line)
	return p, nil
}

// Save writes p to path at the default size. The format follows the file
// extension (png, svg, pdf...).
func Save(p *plot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return scigoErrors.Wrapf(err, "saving chart to %s", path)
	}
	return nil
}
