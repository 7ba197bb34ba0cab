package views

import (
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"math"
	"strings"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// Chart geometry in SVG user units.
const (
	chartWidth    = 800
	chartHeight   = 240
	padLeft       = 64
	padRight      = 16
	padTop        = 16
	padBottom     = 32
	tickCount     = 4
	maxXLabels    = 12
	chartStroke   = "#2563eb"
	chartPoint    = "#1d4ed8"
	chartFill     = "rgba(37,99,235,0.08)"
	chartGrid     = "#eef2f7"
	chartLabel    = "#4b5563"
	chartFontSize = 11
)

// Tick is one y-axis gridline.
type Tick struct {
	Value float64
	Label string
}

// TrendChart is the workdays-over-time line chart. Labels and values
// keep the input order.
type TrendChart struct {
	Labels []string
	Values []float64
}

// NewTrendChart builds a chart from trend points.
func NewTrendChart(points []models.TrendPoint) *TrendChart {
	c := &TrendChart{
		Labels: make([]string, len(points)),
		Values: make([]float64, len(points)),
	}
	for i, p := range points {
		c.Labels[i] = p.Month
		c.Values[i] = p.Value
	}
	return c
}

// Empty reports whether the chart has nothing to plot.
func (c *TrendChart) Empty() bool {
	return c == nil || len(c.Values) == 0
}

// Ticks returns the y-axis gridlines from the axis minimum to maximum.
func (c *TrendChart) Ticks() []Tick {
	lo, hi, step := c.axis()
	ticks := make([]Tick, 0, tickCount+1)
	for v := lo; v <= hi+step/2; v += step {
		ticks = append(ticks, Tick{Value: v, Label: common.FormatNumber(v)})
	}
	return ticks
}

// axis returns a rounded y range covering all values, including zero.
func (c *TrendChart) axis() (lo, hi, step float64) {
	lo, hi = 0, 0
	for _, v := range c.Values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	step = niceStep((hi - lo) / tickCount)
	lo = math.Floor(lo/step) * step
	hi = math.Ceil(hi/step) * step
	return lo, hi, step
}

// niceStep rounds raw up to 1, 2, 2.5 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

// SVG renders the chart as an inline SVG element.
func (c *TrendChart) SVG() template.HTML {
	return template.HTML(c.render())
}

// ImageDataURL returns the rendered chart as an image data URL, the
// form used when the report is exported. ok is false when the chart
// has no data.
func (c *TrendChart) ImageDataURL() (url string, ok bool) {
	if c.Empty() {
		return "", false
	}
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(c.render())), true
}

func (c *TrendChart) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="trend-chart" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="Workdays over time">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)

	if c.Empty() {
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-family="Arial, sans-serif" font-size="%d" fill="%s">No trend data</text></svg>`,
			chartWidth/2, chartHeight/2, chartFontSize+2, chartLabel)
		return b.String()
	}

	lo, hi, _ := c.axis()
	plotW := float64(chartWidth - padLeft - padRight)
	plotH := float64(chartHeight - padTop - padBottom)
	yOf := func(v float64) float64 {
		return padTop + plotH - (v-lo)/(hi-lo)*plotH
	}
	xOf := func(i int) float64 {
		if len(c.Values) == 1 {
			return padLeft + plotW/2
		}
		return padLeft + float64(i)*plotW/float64(len(c.Values)-1)
	}

	for _, t := range c.Ticks() {
		y := yOf(t.Value)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			padLeft, y, chartWidth-padRight, y, chartGrid)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end" dominant-baseline="middle" font-family="Arial, sans-serif" font-size="%d" fill="%s">%s</text>`,
			padLeft-8, y, chartFontSize, chartLabel, html.EscapeString(t.Label))
	}

	pts := make([]string, len(c.Values))
	for i, v := range c.Values {
		pts[i] = fmt.Sprintf("%.1f,%.1f", xOf(i), yOf(v))
	}
	base := yOf(math.Max(lo, 0))
	fmt.Fprintf(&b, `<polygon points="%.1f,%.1f %s %.1f,%.1f" fill="%s" stroke="none"/>`,
		xOf(0), base, strings.Join(pts, " "), xOf(len(c.Values)-1), base, chartFill)
	fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"/>`,
		strings.Join(pts, " "), chartStroke)

	every := 1
	if len(c.Labels) > maxXLabels {
		every = int(math.Ceil(float64(len(c.Labels)) / maxXLabels))
	}
	for i, v := range c.Values {
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"><title>%s: %s</title></circle>`,
			xOf(i), yOf(v), chartPoint, html.EscapeString(c.Labels[i]), html.EscapeString(common.FormatNumber(v)))
		if i%every == 0 {
			fmt.Fprintf(&b, `<text x="%.1f" y="%d" text-anchor="middle" font-family="Arial, sans-serif" font-size="%d" fill="%s">%s</text>`,
				xOf(i), chartHeight-10, chartFontSize, chartLabel, html.EscapeString(c.Labels[i]))
		}
	}

	b.WriteString(`</svg>`)
	return b.String()
}
