package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/odonata-labs/aatorus/internal/validate"
)

// SaveOrbitPlot writes the sampled orbit in the meridional plane (R, z)
// to file; the format follows the extension (svg, png, pdf).
func (w *Writer) SaveOrbitPlot(res *validate.Result, file string) error {
	p := plot.New()
	p.Title.Text = "sampled torus, meridional plane"
	p.X.Label.Text = "R [kpc]"
	p.Y.Label.Text = "z [kpc]"

	pts := make(plotter.XYs, 0, len(res.Samples))
	for _, s := range res.Samples {
		pts = append(pts, plotter.XY{
			X: w.units.ToKpc(s.Point.R),
			Y: w.units.ToKpc(s.Point.Z),
		})
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("report: orbit scatter: %w", err)
	}
	sc.GlyphStyle.Radius = vg.Points(2)
	sc.GlyphStyle.Color = color.RGBA{R: 30, G: 120, B: 200, A: 255}
	p.Add(sc)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, file); err != nil {
		return fmt.Errorf("report: save orbit plot: %w", err)
	}
	return nil
}

// SaveActionPlot writes the recovered actions against the sample index.
func (w *Writer) SaveActionPlot(res *validate.Result, file string) error {
	p := plot.New()
	p.Title.Text = "recovered actions along the orbit"
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "J [kpc²/Myr]"

	jr := make(plotter.XYs, 0, len(res.Samples))
	jz := make(plotter.XYs, 0, len(res.Samples))
	for _, s := range res.Samples {
		x := float64(s.Index)
		jr = append(jr, plotter.XY{X: x, Y: w.units.ToAction(s.Recovered.Jr)})
		jz = append(jz, plotter.XY{X: x, Y: w.units.ToAction(s.Recovered.Jz)})
	}

	jrLine, err := plotter.NewLine(jr)
	if err != nil {
		return fmt.Errorf("report: Jr line: %w", err)
	}
	jrLine.Width = vg.Points(1)
	jrLine.Color = color.RGBA{R: 30, G: 120, B: 200, A: 255}

	jzLine, err := plotter.NewLine(jz)
	if err != nil {
		return fmt.Errorf("report: Jz line: %w", err)
	}
	jzLine.Width = vg.Points(1)
	jzLine.Color = color.RGBA{R: 220, G: 140, B: 30, A: 255}

	p.Add(jrLine, jzLine)
	p.Legend.Add("Jr", jrLine)
	p.Legend.Add("Jz", jzLine)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
		return fmt.Errorf("report: save action plot: %w", err)
	}
	return nil
}
