package history

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named sequence of values, one per run.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var seriesColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
}

// PlotSeries renders a braille plot of each series on a shared value axis.
// A width <= 0 fits the plot to the terminal.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, color bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth(), axisLabelWidth(series))
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	lo, hi := valueRange(series)
	layers := make([]*canvas, len(series))
	for i, s := range series {
		c := newCanvas(width, height)
		prevX, prevY := -1, -1
		for x, v := range resample(s.Values, width) {
			px, py := x*2, c.row(v, lo, hi)
			if prevX < 0 {
				c.set(px, py)
			} else {
				c.line(prevX, prevY, px, py)
			}
			prevX, prevY = px, py
		}
		layers[i] = c
	}

	labels := axisLabels(lo, hi, height)
	labelWidth := 0
	for _, l := range labels {
		if n := utf8.RuneCountInString(l); n > labelWidth {
			labelWidth = n
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for y := 0; y < height; y++ {
		fmt.Fprintf(&b, "%*s%s", labelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for i, c := range layers {
				if m := c.cells[y][x]; m != 0 {
					if owner < 0 {
						owner = i
					}
					mask |= m
				}
			}
			ch := rune(0x2800 + int(mask))
			if color && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
			} else {
				b.WriteRune(ch)
			}
		}
		b.WriteByte('\n')
	}
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Name
		if color {
			names[i] = seriesColors[i%len(seriesColors)] + s.Name + colorReset
		}
	}
	fmt.Fprintf(&b, "%*s%s%s\n", labelWidth, "", axisSeparator, strings.Join(names, "  "))
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor returns the number of plot columns that fit in totalWidth
// next to an axis label of labelWidth runes.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	width := totalWidth - labelWidth - utf8.RuneCountInString(axisSeparator)
	if width < minPlotWidth {
		return minPlotWidth
	}
	return width
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether w is a terminal and NO_COLOR is unset.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func valueRange(series []Series) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	return lo, hi
}

func axisLabels(lo, hi float64, height int) []string {
	labels := make([]string, height)
	labels[0] = fmt.Sprintf("%.2f", hi)
	if height > 2 {
		labels[height/2] = fmt.Sprintf("%.2f", (lo+hi)/2)
	}
	if height > 1 {
		labels[height-1] = fmt.Sprintf("%.2f", lo)
	}
	return labels
}

func axisLabelWidth(series []Series) int {
	lo, hi := valueRange(series)
	width := 0
	for _, l := range axisLabels(lo, hi, 3) {
		if n := utf8.RuneCountInString(l); n > width {
			width = n
		}
	}
	return width
}

// resample stretches or averages values into exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// canvas is a grid of braille cells, each holding 2x4 dots.
type canvas struct {
	cells  [][]uint8
	height int
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells, height: height}
}

// row maps v onto a dot row, with hi at the top.
func (c *canvas) row(v, lo, hi float64) int {
	dots := c.height * 4
	r := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(dots-1)))
	return min(max(r, 0), dots-1)
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (c *canvas) set(x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(c.cells) || cx >= len(c.cells[cy]) {
		return
	}
	c.cells[cy][cx] |= dotBits[x%2][y%4]
}

// line draws from (x0,y0) to (x1,y1) with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
