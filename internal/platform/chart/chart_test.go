package chart

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func days(n int, vals map[int]float64) []Point {
	out := make([]Point, 0, n)
	for d := 1; d <= n; d++ {
		p := Point{Label: strconv.Itoa(d)}
		if v, ok := vals[d]; ok {
			v := v
			p.Value = &v
		}
		out = append(out, p)
	}
	return out
}

func TestRender_NoDataReturnsSentinel(t *testing.T) {
	_, err := Render(LineChart{Points: days(30, nil)})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Render(LineChart{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRender_SinglePointHasNoLine(t *testing.T) {
	svg, err := Render(LineChart{Title: "Weight", Points: days(31, map[int]float64{12: 4.2})})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(svg, `<circle class="point"`))
	assert.Equal(t, 0, strings.Count(svg, "<polyline"))
	assert.Equal(t, 31, strings.Count(svg, `class="xtick"`))
}

func TestRender_GapsBreakTheLine(t *testing.T) {
	// 1-2-3 contiguos, 10 aislado, 20-21 contiguos
	svg, err := Render(LineChart{Points: days(30, map[int]float64{
		1: 4.0, 2: 4.1, 3: 4.2, 10: 4.4, 20: 4.3, 21: 4.5,
	})})
	require.NoError(t, err)

	assert.Equal(t, 6, strings.Count(svg, `<circle class="point"`))
	assert.Equal(t, 2, strings.Count(svg, "<polyline"))
}

func TestRender_EscapesTitleAndRejectsBadColor(t *testing.T) {
	svg, err := Render(LineChart{
		Title:  `<script>alert(1)</script>`,
		Color:  `red" onload="x`,
		Points: days(2, map[int]float64{1: 1, 2: 2}),
	})
	require.NoError(t, err)

	assert.NotContains(t, svg, "<script>")
	assert.NotContains(t, svg, "onload")
	assert.Contains(t, svg, `stroke="green"`)
}

func TestRuns(t *testing.T) {
	got := runs(days(6, map[int]float64{1: 1, 2: 1, 4: 1, 6: 1}))
	assert.Equal(t, [][]int{{0, 1}, {3}, {5}}, got)
}
