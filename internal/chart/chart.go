package chart

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"planline/internal/domain"
)

// Bar is one row of a Gantt chart.
type Bar struct {
	Label    string
	Start    float64
	Duration float64
	Cost     float64
}

// FromSchedule turns solved entries into bars, keeping their order.
func FromSchedule(entries []domain.ScheduleEntry) []Bar {
	bars := make([]Bar, 0, len(entries))
	for _, e := range entries {
		bars = append(bars, Bar{
			Label:    fmt.Sprintf("%s: %s", e.TaskID, e.Description),
			Start:    e.Start,
			Duration: e.Duration(),
			Cost:     e.Cost,
		})
	}
	return bars
}

// Renderer draws a titled set of bars to w.
type Renderer interface {
	Render(w io.Writer, title string, bars []Bar) error
}

const (
	offsetSeries   = "Start Offset"
	durationSeries = "Task Duration"
	stackName      = "gantt"
)

// HTML renders a standalone echarts page: a horizontal stacked bar chart
// whose first series is an invisible start offset.
type HTML struct {
	Width  string
	Height string
}

func (h HTML) Build(title string, bars []Bar) *charts.Bar {
	width, height := h.Width, h.Height
	if width == "" {
		width = "1200px"
	}
	if height == "" {
		height = fmt.Sprintf("%dpx", 120+32*len(bars))
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     width,
			Height:    height,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (hours)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Tasks", Type: "category"}),
	)

	labels := make([]string, 0, len(bars))
	offsets := make([]opts.BarData, 0, len(bars))
	durations := make([]opts.BarData, 0, len(bars))
	for _, b := range bars {
		labels = append(labels, b.Label)
		offsets = append(offsets, opts.BarData{Name: b.Label, Value: b.Start})
		durations = append(durations, opts.BarData{Name: b.Label, Value: b.Duration})
	}
	bar.SetXAxis(labels).
		AddSeries(offsetSeries, offsets,
			charts.WithBarChartOpts(opts.BarChart{Stack: stackName}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "transparent"}),
		).
		AddSeries(durationSeries, durations,
			charts.WithBarChartOpts(opts.BarChart{Stack: stackName}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#5470c6"}),
		).
		XYReversal()
	return bar
}

func (h HTML) Render(w io.Writer, title string, bars []Bar) error {
	if err := h.Build(title, bars).Render(w); err != nil {
		return fmt.Errorf("render gantt: %w", err)
	}
	return nil
}

// Handle owns the chart currently on display. Each Render disposes the
// previous chart before the replacement is drawn, so at most one is alive.
type Handle struct {
	HTML HTML

	mu       sync.Mutex
	current  *charts.Bar
	disposed int
}

func (h *Handle) Render(w io.Writer, title string, bars []Bar) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposeLocked()
	h.current = h.HTML.Build(title, bars)
	if err := h.current.Render(w); err != nil {
		return fmt.Errorf("render gantt: %w", err)
	}
	return nil
}

// Current returns the live chart, nil before the first render or after
// Dispose.
func (h *Handle) Current() *charts.Bar {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Disposed reports how many charts have been torn down.
func (h *Handle) Disposed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

func (h *Handle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposeLocked()
}

func (h *Handle) disposeLocked() {
	if h.current == nil {
		return
	}
	h.current = nil
	h.disposed++
}
