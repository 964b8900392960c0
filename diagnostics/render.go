// SPDX-License-Identifier: MIT

package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/katalvlaran/lvmcmc/autocorr"
	"github.com/katalvlaran/lvmcmc/chain"
)

// ErrLabels indicates a label list whose length differs from the chain's dimensions.
var ErrLabels = errors.New("diagnostics: one label per dimension required")

// Renderer produces the periodic diagnostics for a chain and returns τ.
type Renderer interface {
	Render(c *chain.Chain, labels []string) ([]float64, error)
}

// Estimator computes τ on the full chain without the reliability check and
// writes nothing.
type Estimator struct {
	C float64 // window constant; 0 ⇒ autocorr.DefaultC
}

func (e Estimator) Render(c *chain.Chain, labels []string) ([]float64, error) {
	if err := checkLabels(c, labels); err != nil {
		return nil, err
	}

	return autocorr.IntegratedTime(c, autocorr.Options{C: e.C, Quiet: true})
}

// Trajectory estimates τ on prefixes of length step, 2·step, … up to and
// including the full chain, with step = ⌈N/100⌉. It returns the prefix lengths
// and one τ vector per prefix.
func Trajectory(c *chain.Chain) ([]int, [][]float64, error) {
	n := c.Steps()
	if n == 0 {
		return nil, nil, fmt.Errorf("Trajectory: %w", chain.ErrEmpty)
	}
	step := (n + 99) / 100

	var (
		lengths []int
		taus    [][]float64
	)
	for i := step; ; i += step {
		if i > n {
			i = n
		}
		prefix, err := c.Prefix(i)
		if err != nil {
			return nil, nil, fmt.Errorf("Trajectory: %w", err)
		}
		tau, err := autocorr.IntegratedTime(prefix, autocorr.Options{Quiet: true})
		if err != nil {
			return nil, nil, fmt.Errorf("Trajectory: %w", err)
		}
		lengths = append(lengths, i)
		taus = append(taus, tau)
		if i == n {
			break
		}
	}

	return lengths, taus, nil
}

// AutocorrPath returns <figDir>/autocorrelation/<id>_AUTOCORR_<date>.svg.
func AutocorrPath(figDir, id, date string) string {
	return filepath.Join(figDir, "autocorrelation", id+"_AUTOCORR_"+date+".svg")
}

// TracePath returns <figDir>/traceplots/<id>_TRACE_<date>.svg.
func TracePath(figDir, id, date string) string {
	return filepath.Join(figDir, "traceplots", id+"_TRACE_"+date+".svg")
}

// SVG writes the autocorrelation plot and the traceplot on every Render,
// overwriting the previous period's files.
type SVG struct {
	FigDir     string
	Identifier string
	Date       string
	Config     *PlotConfig // nil ⇒ DefaultPlotConfig()
}

// NewSVG returns a renderer writing under figDir.
func NewSVG(figDir, id, date string) *SVG {
	return &SVG{FigDir: figDir, Identifier: id, Date: date}
}

var palette = []string{"#2563eb", "#dc2626", "#16a34a", "#9333ea", "#ea580c", "#0891b2", "#4b5563", "#ca8a04"}

func (s *SVG) Render(c *chain.Chain, labels []string) ([]float64, error) {
	if err := checkLabels(c, labels); err != nil {
		return nil, err
	}
	lengths, taus, err := Trajectory(c)
	if err != nil {
		return nil, err
	}

	if err = s.write(AutocorrPath(s.FigDir, s.Identifier, s.Date), s.autocorrFigure(lengths, taus, labels)); err != nil {
		return nil, err
	}
	if err = s.write(TracePath(s.FigDir, s.Identifier, s.Date), s.traceFigure(c, labels)); err != nil {
		return nil, err
	}

	return taus[len(taus)-1], nil
}

func (s *SVG) config(title, xlabel string, panelHeight int) *PlotConfig {
	cfg := DefaultPlotConfig()
	if s.Config != nil {
		c := *s.Config
		cfg = &c
	}
	cfg.Title, cfg.XAxisLabel = title, xlabel
	if panelHeight > 0 {
		cfg.PanelHeight = panelHeight
	}

	return cfg
}

func (s *SVG) autocorrFigure(lengths []int, taus [][]float64, labels []string) *Figure {
	x := make([]float64, len(lengths))
	ref := make([]float64, len(lengths))
	for i, n := range lengths {
		x[i] = float64(n)
		ref[i] = float64(n) / 50
	}
	p := Panel{YAxisLabel: "autocorrelation time τ"}
	p.Series = append(p.Series, Series{X: x, Y: ref, Color: "#000000", Dashed: true, Label: "n/50"})
	for d, label := range labels {
		y := make([]float64, len(taus))
		for i := range taus {
			y[i] = taus[i][d]
		}
		p.Series = append(p.Series, Series{X: x, Y: y, Color: palette[d%len(palette)], Label: label})
	}

	return NewFigure(s.config("Autocorrelation time", "iteration", 400)).AddPanel(p)
}

func (s *SVG) traceFigure(c *chain.Chain, labels []string) *Figure {
	fig := NewFigure(s.config("Traceplot", "iteration", 0))
	x := make([]float64, c.Steps())
	for i := range x {
		x[i] = float64(i)
	}
	for d, label := range labels {
		p := Panel{YAxisLabel: label}
		for w := 0; w < c.Walkers(); w++ {
			y, _ := c.Series(w, d) // indices are in range
			p.Series = append(p.Series, Series{X: x, Y: y, Color: "#dc2626", Opacity: 0.15})
		}
		fig.AddPanel(p)
	}

	return fig
}

func (s *SVG) write(path string, fig *Figure) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("diagnostics: create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(fig.Build()), 0o644); err != nil {
		return fmt.Errorf("diagnostics: write %s: %w", path, err)
	}

	return nil
}

func checkLabels(c *chain.Chain, labels []string) error {
	if c == nil {
		return fmt.Errorf("Render: %w", chain.ErrEmpty)
	}
	if len(labels) != c.Dims() {
		return fmt.Errorf("Render: %d labels for %d dims: %w", len(labels), c.Dims(), ErrLabels)
	}

	return nil
}
