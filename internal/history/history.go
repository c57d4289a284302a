// Package history renders stored benchmark runs.
package history

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/ttcp/internal/model"
	"github.com/verte-zerg/ttcp/internal/units"
)

// Options controls history rendering.
type Options struct {
	Format units.Format
	// Color enables styled titles and a colored plot.
	Color bool
	// PlotWidth <= 0 fits the plot to the terminal.
	PlotWidth int
}

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))

func title(s string, color bool) string {
	if !color {
		return s
	}
	return titleStyle.Render(s)
}

// Render prints the summary, the run table and a throughput plot.
func Render(w io.Writer, sum model.RunSummary, runs []model.Run, opts Options) error {
	if err := RenderSummary(w, sum, opts); err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := RenderTable(w, runs, opts); err != nil {
		return err
	}
	if len(runs) < 2 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	rates := make([]float64, len(runs))
	for i, run := range runs {
		rates[i] = units.Value(run.BytesPerSec, opts.Format)
	}
	_, label := opts.Format.Scale()
	plotTitle := title(fmt.Sprintf("Throughput per run (%s/s)", label), opts.Color)
	return PlotSeries(w, plotTitle, []Series{{Name: "rate", Values: rates}}, opts.PlotWidth, 0, opts.Color)
}

// RenderSummary prints run count, total volume and rates.
func RenderSummary(w io.Writer, sum model.RunSummary, opts Options) error {
	var b strings.Builder
	b.WriteString(title("Summary", opts.Color))
	b.WriteByte('\n')
	if sum.Runs == 0 {
		b.WriteString("No runs recorded.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "Runs: %d\n", sum.Runs)
	fmt.Fprintf(&b, "Total: %s\n", humanize.IBytes(uint64(max(sum.TotalBytes, 0))))
	fmt.Fprintf(&b, "Average: %s/s\n", units.FormatRate(sum.AvgRate, opts.Format))
	fmt.Fprintf(&b, "Best: %s/s\n", units.FormatRate(sum.BestRate, opts.Format))
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderTable prints one row per run.
func RenderTable(w io.Writer, runs []model.Run, opts Options) error {
	headers := []string{"#", "Ended", "Role", "Proto", "Peer", "Bytes", "Real s", "CPU s", "Rate"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		role := run.Role
		if run.Interrupted {
			role += "*"
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.EndedAt.Local().Format("2006-01-02 15:04:05"),
			role,
			run.Proto,
			run.Peer,
			humanize.IBytes(uint64(max(run.Bytes, 0))),
			fmt.Sprintf("%.2f", run.RealSeconds),
			fmt.Sprintf("%.2f", run.CPUSeconds),
			units.FormatRate(run.BytesPerSec, opts.Format) + "/s",
		})
	}
	lines := formatTable(headers, rows, map[int]bool{0: true, 5: true, 6: true, 7: true, 8: true})
	var b strings.Builder
	b.WriteString(title("Runs", opts.Color))
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Summarize aggregates runs already loaded in memory.
func Summarize(runs []model.Run) model.RunSummary {
	var sum model.RunSummary
	var rateTotal float64
	for _, run := range runs {
		sum.Runs++
		sum.TotalBytes += run.Bytes
		rateTotal += run.BytesPerSec
		sum.BestRate = max(sum.BestRate, run.BytesPerSec)
	}
	if sum.Runs > 0 {
		sum.AvgRate = rateTotal / float64(sum.Runs)
	}
	return sum
}
