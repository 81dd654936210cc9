// Package report renders validation results for terminals and files.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/odonata-labs/aatorus/internal/units"
	"github.com/odonata-labs/aatorus/internal/validate"
)

// Writer renders validation results in physical units.
type Writer struct {
	out   io.Writer
	units units.Units
	// Verbose adds the per-sample trace table.
	Verbose bool
	// Plot adds an inline chart of the recovered actions.
	Plot bool
}

// NewWriter creates a renderer targeting out; u scales internal values
// back to kpc and Myr.
func NewWriter(out io.Writer, u units.Units) *Writer {
	return &Writer{out: out, units: u}
}

// Render writes a full report of one validation run.
func (w *Writer) Render(res *validate.Result) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("action-angle consistency check"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-22s", label)), valueStyle.Render(value)))
	}
	act := func(v float64) string {
		return fmt.Sprintf("%.5f kpc²/Myr", w.units.ToAction(v))
	}
	frq := func(v float64) string {
		return fmt.Sprintf("%.5f /Myr", w.units.ToFrequency(v))
	}

	row("target actions", fmt.Sprintf("Jr=%s  Jz=%s  Jphi=%s",
		act(res.Target.Jr), act(res.Target.Jz), act(res.Target.Jphi)))
	row("torus frequencies", fmt.Sprintf("Ωr=%s  Ωz=%s  Ωφ=%s",
		frq(res.Freq.Omegar), frq(res.Freq.Omegaz), frq(res.Freq.Omegaphi)))
	row("recovered actions", fmt.Sprintf("Jr=%s  Jz=%s  Jphi=%s",
		act(res.AvgActions.Jr), act(res.AvgActions.Jz), act(res.AvgActions.Jphi)))
	row("action dispersions", fmt.Sprintf("Jr=%s  Jz=%s  Jphi=%s",
		act(res.DispActions.Jr), act(res.DispActions.Jz), act(res.DispActions.Jphi)))
	row("regressed frequencies", fmt.Sprintf("Ωr=%s  Ωz=%s  Ωφ=%s",
		frq(res.FittedFreq.Omegar), frq(res.FittedFreq.Omegaz), frq(res.FittedFreq.Omegaphi)))
	row("action scatter", fmt.Sprintf("%.4g (threshold %.4g)", res.Scatter, res.ScatterNorm))
	row("angle residuals", fmt.Sprintf("θr=%.4g  θz=%.4g  θφ=%.4g rad", res.DispR, res.DispZ, res.DispPhi))
	row("samples", fmt.Sprintf("%d in %s", len(res.Samples), res.Elapsed.Round(time.Millisecond)))

	b.WriteString("\n  ")
	if res.Pass {
		b.WriteString(passStyle.Render("PASS"))
	} else {
		b.WriteString(failStyle.Render("FAIL"))
	}
	b.WriteString("\n")

	if w.Plot && len(res.Samples) > 1 {
		b.WriteString("\n")
		b.WriteString(w.actionChart(res))
		b.WriteString("\n")
	}
	if w.Verbose {
		b.WriteString("\n")
		w.trace(&b, res)
	}

	_, err := io.WriteString(w.out, panelStyle.Render(b.String())+"\n")
	return err
}

// actionChart plots the recovered radial and vertical actions along the
// sampled orbit.
func (w *Writer) actionChart(res *validate.Result) string {
	jr := make([]float64, len(res.Samples))
	jz := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		jr[i] = w.units.ToAction(s.Recovered.Jr)
		jz[i] = w.units.ToAction(s.Recovered.Jz)
	}
	return asciigraph.PlotMany([][]float64{jr, jz},
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("recovered Jr, Jz per sample [kpc²/Myr]"),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
	)
}

func (w *Writer) trace(b *strings.Builder, res *validate.Result) {
	b.WriteString(subtleStyle.Render("    #        R         z      Jr(rec)     Jz(rec)     energy"))
	b.WriteString("\n")
	for _, s := range res.Samples {
		b.WriteString(fmt.Sprintf("  %4d  %8.4f  %8.4f  %10.6f  %10.6f  %10.6f\n",
			s.Index,
			w.units.ToKpc(s.Point.R),
			w.units.ToKpc(s.Point.Z),
			w.units.ToAction(s.Recovered.Jr),
			w.units.ToAction(s.Recovered.Jz),
			s.Energy,
		))
	}
}
