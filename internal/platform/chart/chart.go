// Package chart dibuja gráficos de línea simples como SVG embebible.
// Un punto sin valor corta la línea: nunca se interpola ni se rellena con cero.
package chart

import (
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
)

var ErrNoData = errors.New("chart: no data points")

var colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-z]{3,20})$`)

// Point es una posición del eje X; Value nil = sin muestra.
type Point struct {
	Label string
	Value *float64
}

type LineChart struct {
	Title  string
	XLabel string
	YLabel string
	Color  string

	Width  int
	Height int

	Points []Point
}

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
	yTicks       = 5
)

// Render devuelve el SVG. ErrNoData si ningún punto tiene valor.
func Render(c LineChart) (string, error) {
	lo, hi, n := bounds(c.Points)
	if n == 0 {
		return "", ErrNoData
	}

	w, h := c.Width, c.Height
	if w <= 0 {
		w = 720
	}
	if h <= 0 {
		h = 360
	}
	color := c.Color
	if !colorRe.MatchString(color) {
		color = "green"
	}

	if lo == hi {
		lo, hi = lo-1, hi+1
	} else {
		pad := (hi - lo) * 0.1
		lo, hi = lo-pad, hi+pad
	}

	plotW := float64(w - marginLeft - marginRight)
	plotH := float64(h - marginTop - marginBottom)

	xAt := func(i int) float64 {
		if len(c.Points) == 1 {
			return marginLeft + plotW/2
		}
		return marginLeft + plotW*float64(i)/float64(len(c.Points)-1)
	}
	yAt := func(v float64) float64 {
		return marginTop + plotH*(1-(v-lo)/(hi-lo))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, w, h, w, h)
	fmt.Fprintf(&b, `<title>%s</title>`, html.EscapeString(c.Title))
	fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-size="16">%s</text>`, w/2, marginTop/2+6, html.EscapeString(c.Title))

	// ejes
	x0, y0 := float64(marginLeft), marginTop+plotH
	fmt.Fprintf(&b, `<line class="axis" x1="%s" y1="%s" x2="%s" y2="%s" stroke="black"/>`, f(x0), f(y0), f(x0+plotW), f(y0))
	fmt.Fprintf(&b, `<line class="axis" x1="%s" y1="%s" x2="%s" y2="%s" stroke="black"/>`, f(x0), f(marginTop), f(x0), f(y0))

	for i, p := range c.Points {
		x := xAt(i)
		fmt.Fprintf(&b, `<text class="xtick" x="%s" y="%s" text-anchor="middle" font-size="10">%s</text>`, f(x), f(y0+14), html.EscapeString(p.Label))
	}
	for i := 0; i <= yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/yTicks
		y := yAt(v)
		fmt.Fprintf(&b, `<text class="ytick" x="%s" y="%s" text-anchor="end" font-size="10">%.1f</text>`, f(x0-6), f(y+3), v)
	}
	if c.XLabel != "" {
		fmt.Fprintf(&b, `<text x="%s" y="%d" text-anchor="middle" font-size="12">%s</text>`, f(x0+plotW/2), h-10, html.EscapeString(c.XLabel))
	}
	if c.YLabel != "" {
		fmt.Fprintf(&b, `<text x="14" y="%s" text-anchor="middle" font-size="12" transform="rotate(-90 14 %s)">%s</text>`, f(marginTop+plotH/2), f(marginTop+plotH/2), html.EscapeString(c.YLabel))
	}

	for _, run := range runs(c.Points) {
		if len(run) < 2 {
			continue
		}
		coords := make([]string, 0, len(run))
		for _, i := range run {
			coords = append(coords, f(xAt(i))+","+f(yAt(*c.Points[i].Value)))
		}
		fmt.Fprintf(&b, `<polyline class="series" fill="none" stroke="%s" stroke-width="2" points="%s"/>`, color, strings.Join(coords, " "))
	}
	for i, p := range c.Points {
		if p.Value == nil {
			continue
		}
		fmt.Fprintf(&b, `<circle class="point" cx="%s" cy="%s" r="3" fill="%s"><title>%s: %.2f</title></circle>`, f(xAt(i)), f(yAt(*p.Value)), color, html.EscapeString(p.Label), *p.Value)
	}

	b.WriteString(`</svg>`)
	return b.String(), nil
}

// runs agrupa índices consecutivos con valor.
func runs(points []Point) [][]int {
	var out [][]int
	var cur []int
	for i, p := range points {
		if p.Value == nil {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func bounds(points []Point) (lo, hi float64, n int) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.Value == nil {
			continue
		}
		n++
		lo = math.Min(lo, *p.Value)
		hi = math.Max(hi, *p.Value)
	}
	return lo, hi, n
}

func f(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
