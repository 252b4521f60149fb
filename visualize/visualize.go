// Package visualize renders simple charts from labels/values datasets and
// persists them through an artifact store. Rendering is a pure function of
// its inputs; failures degrade the calling turn to a text-only answer and
// never fail it.
package visualize

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/tobhei/docuchat/artifact"
	"github.com/tobhei/docuchat/logging"
)

// Kind selects the chart shape.
type Kind string

const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
	KindPie  Kind = "pie"
)

// ParseKind maps free-form model suggestions onto a supported Kind.
// Unknown values (including "histogram") fall back to bar.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLine:
		return KindLine
	case KindPie:
		return KindPie
	default:
		return KindBar
	}
}

// Dataset is a set of parallel label/value pairs.
type Dataset struct {
	Labels []string
	Values []float64
}

// Validate rejects empty or mismatched datasets.
func (d Dataset) Validate() error {
	if len(d.Labels) == 0 || len(d.Values) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if len(d.Labels) != len(d.Values) {
		return fmt.Errorf("labels and values must have the same length (got %d and %d)", len(d.Labels), len(d.Values))
	}
	return nil
}

// RendererOptions configures chart geometry.
type RendererOptions struct {
	Width  int
	Height int
	Color  string
	Logger logging.Logger
}

// Renderer draws SVG charts and saves them as artifacts.
type Renderer struct {
	store artifact.Store
	opts  RendererOptions
}

// NewRenderer constructs a Renderer writing to the given artifact store.
func NewRenderer(store artifact.Store, optFns ...func(o *RendererOptions)) *Renderer {
	opts := RendererOptions{
		Width:  800,
		Height: 500,
		Color:  "#36A2EB",
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Renderer{store: store, opts: opts}
}

// Render draws the dataset as kind and returns the stored artifact
// reference.
func (r *Renderer) Render(userID string, ds Dataset, kind Kind) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}

	var svg string
	switch kind {
	case KindLine:
		svg = r.renderLine(ds)
	case KindPie:
		svg = r.renderPie(ds)
	default:
		svg = r.renderBar(ds)
	}

	name := fmt.Sprintf("chart_%s.svg", uuid.New().String())
	ref, err := r.store.Save(userID, name, []byte(svg))
	if err != nil {
		return "", fmt.Errorf("save chart: %w", err)
	}
	r.opts.Logger.Info("visualize.render.saved", "kind", string(kind), "points", len(ds.Values), "ref", ref)
	return ref, nil
}

const chartMargin = 50.0

func (r *Renderer) open() string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="white"/>`,
		r.opts.Width, r.opts.Height, r.opts.Width, r.opts.Height)
}

func (r *Renderer) plotArea() (w, h float64) {
	return float64(r.opts.Width) - 2*chartMargin, float64(r.opts.Height) - 2*chartMargin
}

func (r *Renderer) renderBar(ds Dataset) string {
	var b strings.Builder
	b.WriteString(r.open())
	plotW, plotH := r.plotArea()
	maxV := maxValue(ds.Values)

	slot := plotW / float64(len(ds.Values))
	barW := slot * 0.8
	for i, v := range ds.Values {
		h := 0.0
		if maxV > 0 {
			h = (v / maxV) * plotH
		}
		x := chartMargin + float64(i)*slot + slot*0.1
		y := chartMargin + plotH - h
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`, x, y, barW, h, r.opts.Color)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle">%s</text>`,
			x+barW/2, chartMargin+plotH+16, escape(ds.Labels[i]))
	}
	b.WriteString(axes(plotW, plotH))
	b.WriteString("</svg>")
	return b.String()
}

func (r *Renderer) renderLine(ds Dataset) string {
	var b strings.Builder
	b.WriteString(r.open())
	plotW, plotH := r.plotArea()
	maxV := maxValue(ds.Values)

	step := plotW
	if len(ds.Values) > 1 {
		step = plotW / float64(len(ds.Values)-1)
	}
	points := make([]string, 0, len(ds.Values))
	for i, v := range ds.Values {
		y := chartMargin + plotH
		if maxV > 0 {
			y -= (v / maxV) * plotH
		}
		x := chartMargin + float64(i)*step
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, x, y, r.opts.Color)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle">%s</text>`,
			x, chartMargin+plotH+16, escape(ds.Labels[i]))
	}
	fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`,
		strings.Join(points, " "), r.opts.Color)
	b.WriteString(axes(plotW, plotH))
	b.WriteString("</svg>")
	return b.String()
}

func (r *Renderer) renderPie(ds Dataset) string {
	var b strings.Builder
	b.WriteString(r.open())

	cx := float64(r.opts.Width) / 2
	cy := float64(r.opts.Height) / 2
	radius := math.Min(cx, cy) - chartMargin

	total := 0.0
	for _, v := range ds.Values {
		total += math.Abs(v)
	}
	if total == 0 {
		total = 1
	}

	angle := -math.Pi / 2
	for i, v := range ds.Values {
		frac := math.Abs(v) / total
		end := angle + frac*2*math.Pi
		x1, y1 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
		x2, y2 := cx+radius*math.Cos(end), cy+radius*math.Sin(end)
		large := 0
		if frac > 0.5 {
			large = 1
		}
		fmt.Fprintf(&b, `<path d="M%.1f,%.1f L%.1f,%.1f A%.1f,%.1f 0 %d 1 %.1f,%.1f Z" fill="%s" fill-opacity="%.2f" stroke="white"/>`,
			cx, cy, x1, y1, radius, radius, large, x2, y2, r.opts.Color, 1.0-0.6*float64(i)/float64(len(ds.Values)))
		mid := (angle + end) / 2
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle">%s</text>`,
			cx+(radius+18)*math.Cos(mid), cy+(radius+18)*math.Sin(mid), escape(ds.Labels[i]))
		angle = end
	}
	b.WriteString("</svg>")
	return b.String()
}

func axes(plotW, plotH float64) string {
	return fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+
		`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`,
		chartMargin, chartMargin+plotH, chartMargin+plotW, chartMargin+plotH,
		chartMargin, chartMargin, chartMargin, chartMargin+plotH)
}

func maxValue(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
