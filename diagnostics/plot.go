// SPDX-License-Identifier: MIT

package diagnostics

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// SVG constants for plot generation.
const (
	svgVersion   = "1.1"
	svgNamespace = "http://www.w3.org/2000/svg"
)

// PlotConfig specifies layout options for a Figure.
type PlotConfig struct {
	// Width is the SVG width in pixels.
	// Default: 800
	Width int

	// PanelHeight is the height of one panel in pixels.
	// Default: 220
	PanelHeight int

	// Padding is the margin around each panel's plot area.
	// Default: 60
	Padding int

	// Title is displayed at the top of the figure.
	Title string

	// XAxisLabel labels the x-axis of the bottom panel.
	XAxisLabel string

	FontFamily      string
	LineWidth       float64
	GridColor       string
	AxisColor       string
	BackgroundColor string
}

// DefaultPlotConfig returns a PlotConfig with sensible defaults.
func DefaultPlotConfig() *PlotConfig {
	return &PlotConfig{
		Width:           800,
		PanelHeight:     220,
		Padding:         60,
		FontFamily:      "Arial, sans-serif",
		LineWidth:       1.5,
		GridColor:       "#e5e7eb",
		AxisColor:       "#374151",
		BackgroundColor: "#ffffff",
	}
}

// Series is one polyline. Non-finite Y values break the line.
type Series struct {
	X       []float64
	Y       []float64
	Color   string
	Opacity float64 // 0 ⇒ opaque
	Dashed  bool
	Label   string
}

// Panel is one set of axes.
type Panel struct {
	YAxisLabel string
	Series     []Series
}

// Figure stacks panels vertically and renders them as SVG.
type Figure struct {
	config *PlotConfig
	panels []Panel
}

// NewFigure creates an empty figure. A nil config means DefaultPlotConfig().
func NewFigure(config *PlotConfig) *Figure {
	if config == nil {
		config = DefaultPlotConfig()
	}

	return &Figure{config: config}
}

// AddPanel appends a panel.
func (f *Figure) AddPanel(p Panel) *Figure {
	f.panels = append(f.panels, p)
	return f
}

// Build generates the SVG document. An empty figure yields an empty string.
func (f *Figure) Build() string {
	if len(f.panels) == 0 {
		return ""
	}
	cfg := f.config
	top := 0
	if cfg.Title != "" {
		top = 30
	}
	height := top + len(f.panels)*cfg.PanelHeight
	plotWidth := cfg.Width - 2*cfg.Padding
	plotHeight := cfg.PanelHeight - cfg.Padding

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString(fmt.Sprintf("<svg version=\"%s\" xmlns=\"%s\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		svgVersion, svgNamespace, cfg.Width, height, cfg.Width, height))
	sb.WriteString("  <defs>\n    <style type=\"text/css\">\n")
	sb.WriteString(fmt.Sprintf("      .axis-label { font-family: %s; font-size: 12px; fill: %s; }\n", cfg.FontFamily, cfg.AxisColor))
	sb.WriteString(fmt.Sprintf("      .title { font-family: %s; font-size: 16px; font-weight: bold; fill: %s; }\n", cfg.FontFamily, cfg.AxisColor))
	sb.WriteString(fmt.Sprintf("      .tick-label { font-family: %s; font-size: 10px; fill: %s; }\n", cfg.FontFamily, cfg.AxisColor))
	sb.WriteString("    </style>\n  </defs>\n")
	sb.WriteString(fmt.Sprintf("  <rect width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", cfg.Width, height, cfg.BackgroundColor))
	if cfg.Title != "" {
		sb.WriteString(fmt.Sprintf("  <text x=\"%d\" y=\"22\" class=\"title\" text-anchor=\"middle\">%s</text>\n",
			cfg.Width/2, escapeXML(cfg.Title)))
	}

	for i, p := range f.panels {
		oy := top + i*cfg.PanelHeight + cfg.Padding/2
		sb.WriteString(fmt.Sprintf("  <g transform=\"translate(%d,%d)\">\n", cfg.Padding, oy))
		f.writePanel(&sb, p, plotWidth, plotHeight)
		sb.WriteString("  </g>\n")
	}
	if cfg.XAxisLabel != "" {
		sb.WriteString(fmt.Sprintf("  <text x=\"%d\" y=\"%d\" class=\"axis-label\" text-anchor=\"middle\">%s</text>\n",
			cfg.Width/2, height-6, escapeXML(cfg.XAxisLabel)))
	}
	sb.WriteString("</svg>\n")

	return sb.String()
}

// WriteTo writes the SVG to w.
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.Build())
	return int64(n), err
}

func (f *Figure) writePanel(sb *strings.Builder, p Panel, w, h int) {
	minX, maxX, minY, maxY := bounds(p.Series)
	xTicks := niceTicks(minX, maxX, 8)
	yTicks := niceTicks(minY, maxY, 5)
	cfg := f.config

	sb.WriteString("    <g class=\"grid\">\n")
	for _, t := range yTicks {
		y := scaleValue(t, minY, maxY, float64(h), 0)
		sb.WriteString(fmt.Sprintf("      <line x1=\"0\" y1=\"%.1f\" x2=\"%d\" y2=\"%.1f\" stroke=\"%s\" stroke-dasharray=\"3,3\"/>\n",
			y, w, y, cfg.GridColor))
	}
	sb.WriteString("    </g>\n")

	sb.WriteString("    <g class=\"axes\">\n")
	sb.WriteString(fmt.Sprintf("      <line x1=\"0\" y1=\"%d\" x2=\"%d\" y2=\"%d\" stroke=\"%s\"/>\n", h, w, h, cfg.AxisColor))
	sb.WriteString(fmt.Sprintf("      <line x1=\"0\" y1=\"0\" x2=\"0\" y2=\"%d\" stroke=\"%s\"/>\n", h, cfg.AxisColor))
	for _, t := range xTicks {
		x := scaleValue(t, minX, maxX, 0, float64(w))
		sb.WriteString(fmt.Sprintf("      <text x=\"%.1f\" y=\"%d\" class=\"tick-label\" text-anchor=\"middle\">%g</text>\n", x, h+14, t))
	}
	for _, t := range yTicks {
		y := scaleValue(t, minY, maxY, float64(h), 0)
		sb.WriteString(fmt.Sprintf("      <text x=\"-6\" y=\"%.1f\" class=\"tick-label\" text-anchor=\"end\" dominant-baseline=\"middle\">%.3g</text>\n", y, t))
	}
	if p.YAxisLabel != "" {
		sb.WriteString(fmt.Sprintf("      <text transform=\"translate(-44,%d) rotate(-90)\" class=\"axis-label\" text-anchor=\"middle\">%s</text>\n",
			h/2, escapeXML(p.YAxisLabel)))
	}
	sb.WriteString("    </g>\n")

	for _, s := range p.Series {
		d := path(s, w, h, minX, maxX, minY, maxY)
		if d == "" {
			continue
		}
		extra := ""
		if s.Dashed {
			extra += " stroke-dasharray=\"6,4\""
		}
		if s.Opacity > 0 && s.Opacity < 1 {
			extra += fmt.Sprintf(" stroke-opacity=\"%.2f\"", s.Opacity)
		}
		color := s.Color
		if color == "" {
			color = "#2563eb"
		}
		sb.WriteString(fmt.Sprintf("    <path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%.1f\"%s>",
			d, color, cfg.LineWidth, extra))
		if s.Label != "" {
			sb.WriteString("<title>" + escapeXML(s.Label) + "</title>")
		}
		sb.WriteString("</path>\n")
	}
}

func path(s Series, w, h int, minX, maxX, minY, maxY float64) string {
	var b strings.Builder
	pen := false
	for i := range s.Y {
		if i >= len(s.X) || !finite(s.Y[i]) || !finite(s.X[i]) {
			pen = false
			continue
		}
		x := scaleValue(s.X[i], minX, maxX, 0, float64(w))
		y := scaleValue(s.Y[i], minY, maxY, float64(h), 0)
		if pen {
			b.WriteString(fmt.Sprintf(" L %.1f %.1f", x, y))
		} else {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(fmt.Sprintf("M %.1f %.1f", x, y))
			pen = true
		}
	}

	return b.String()
}

// bounds returns the finite data range of all series, padded on Y by 10%.
func bounds(series []Series) (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for i := range s.Y {
			if i >= len(s.X) || !finite(s.Y[i]) || !finite(s.X[i]) {
				continue
			}
			minX, maxX = math.Min(minX, s.X[i]), math.Max(maxX, s.X[i])
			minY, maxY = math.Min(minY, s.Y[i]), math.Max(maxY, s.Y[i])
		}
	}
	if math.IsInf(minX, 1) {
		return 0, 1, 0, 1
	}
	if minX == maxX {
		minX--
		maxX++
	}
	if minY == maxY {
		minY--
		maxY++
	}
	pad := (maxY - minY) * 0.1

	return minX, maxX, minY - pad, maxY + pad
}

// scaleValue maps v from [inMin, inMax] to [outMin, outMax].
func scaleValue(v, inMin, inMax, outMin, outMax float64) float64 {
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

// niceTicks returns round tick values covering [lo, hi] with about n intervals.
func niceTicks(lo, hi float64, n int) []float64 {
	span := hi - lo
	if !(span > 0) || n < 1 {
		return []float64{lo}
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}
	var ticks []float64
	for t := math.Ceil(lo/step) * step; t <= hi+step*1e-9; t += step {
		ticks = append(ticks, t)
	}

	return ticks
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")
	return r.Replace(s)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
