// Package render writes schedules and restaurant results for terminals.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"planline/internal/chart"
	"planline/internal/dine"
	"planline/internal/domain"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

// Status is the one-line outcome of a solve.
func Status(run domain.Run) string {
	if !run.Feasible {
		return fmt.Sprintf("%s: %s", bold(run.Scenario), red("infeasible"))
	}
	return fmt.Sprintf("%s: %s, %s hours", bold(run.Scenario), green("solved"), hours(run.TotalDuration))
}

// Schedule writes the status line, the task table and the cost summary.
// An infeasible run prints the status line only.
func Schedule(w io.Writer, run domain.Run) {
	fmt.Fprintln(w, Status(run))
	if !run.Feasible {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Task", "Description", "Start", "End", "Cost", "Slack"})
	for _, e := range run.Schedule {
		slack := ""
		if e.Slack != nil {
			slack = hours(*e.Slack)
		}
		id := e.TaskID
		if e.Critical {
			id += " *"
		}
		tw.AppendRow(table.Row{id, e.Description, hours(e.Start), hours(e.End), money(e.Cost), slack})
	}
	tw.Render()
	Summary(w, run)
}

// Summary writes the totals. The average is reported as undefined when the
// total duration is zero.
func Summary(w io.Writer, run domain.Run) {
	fmt.Fprintf(w, "Total duration: %s hours\n", hours(run.TotalDuration))
	fmt.Fprintf(w, "Total cost: %s\n", money(run.TotalCost))
	if run.AverageCostPerHour == nil {
		fmt.Fprintf(w, "Average cost per hour: %s\n", dim("undefined"))
	} else {
		fmt.Fprintf(w, "Average cost per hour: %s\n", money(*run.AverageCostPerHour))
	}
	if len(run.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical path: %s\n", strings.Join(run.CriticalPath, " -> "))
	}
}

// Gantt draws bars as text, scaled to Width columns.
type Gantt struct {
	Width int
}

func (g Gantt) Render(w io.Writer, title string, bars []chart.Bar) error {
	width := g.Width
	if width <= 0 {
		width = 60
	}
	var end float64
	labelWidth := 0
	for _, b := range bars {
		end = math.Max(end, b.Start+b.Duration)
		if n := len([]rune(b.Label)); n > labelWidth {
			labelWidth = n
		}
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	scale := 0.0
	if end > 0 {
		scale = float64(width) / end
	}
	for _, b := range bars {
		offset := min(max(int(math.Round(b.Start*scale)), 0), width)
		length := int(math.Round((b.Start+b.Duration)*scale)) - offset
		if b.Duration > 0 && length <= 0 {
			length = 1
		}
		length = min(max(length, 0), width-offset)
		label := b.Label + strings.Repeat(" ", labelWidth-len([]rune(b.Label)))
		line := fmt.Sprintf("%s |%s%s%s| %s-%s\n", label,
			strings.Repeat(" ", offset),
			strings.Repeat("#", length),
			strings.Repeat(" ", max(width-offset-length, 0)),
			hours(b.Start), hours(b.Start+b.Duration))
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Restaurants writes a search result; an empty result prints its message.
func Restaurants(w io.Writer, res dine.Result) {
	if res.Empty {
		fmt.Fprintln(w, res.Message)
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Company", "Category", "Address", "Price", "Rating", "Reviews"})
	for _, m := range res.Restaurants {
		rating := "-"
		if m.YelpData.Rating != nil {
			rating = fmt.Sprintf("%.1f", *m.YelpData.Rating)
		}
		tw.AppendRow(table.Row{m.Company, m.Category, m.Address, m.YelpData.Price, rating, m.YelpData.ReviewCount})
	}
	tw.Render()
}

func hours(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*100)/100)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
