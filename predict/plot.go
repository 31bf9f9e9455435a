package predict

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/metrics"
	"github.com/tournox/tournox/pkg/errors"
)

// PerformancePlot draws per-era correlation with the target for every
// model column and writes the figure to path (format by extension,
// typically .png). Eras are placed on the x axis in store order.
func (p *Prediction) PerformancePlot(d *data.Data, path string) error {
	if len(p.names) == 0 {
		return errors.NewEmptyOperationError("Prediction.PerformancePlot")
	}
	fig := plot.New()
	fig.Title.Text = "per-era correlation"
	fig.X.Label.Text = "era"
	fig.Y.Label.Text = "corr"

	var args []interface{}
	for j, name := range p.names {
		jr := p.join(d, j)
		corrs := jr.perEra(metrics.Corr)
		var order []data.Era
		seen := make(map[data.Era]struct{})
		for _, e := range jr.eras {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			order = append(order, e)
		}
		pts := make(plotter.XYs, 0, len(order))
		for i, e := range order {
			pts = append(pts, plotter.XY{X: e.Float(), Y: corrs[i]})
		}
		args = append(args, name, pts)
	}
	if err := plotutil.AddLinePoints(fig, args...); err != nil {
		return errors.Wrap(err, "add plot lines")
	}
	if err := fig.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save plot")
	}
	return nil
}
