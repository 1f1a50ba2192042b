package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"planline/internal/domain"
)

func sampleBars() []Bar {
	return FromSchedule([]domain.ScheduleEntry{
		{TaskID: "A", Description: "Design", Start: 0, End: 3, Cost: 150},
		{TaskID: "B", Description: "Build", Start: 3, End: 5, Cost: 250},
	})
}

func TestFromSchedule(t *testing.T) {
	bars := sampleBars()
	require.Equal(t, []Bar{
		{Label: "A: Design", Start: 0, Duration: 3, Cost: 150},
		{Label: "B: Build", Start: 3, Duration: 2, Cost: 250},
	}, bars)
	require.Empty(t, FromSchedule(nil))
}

func TestHTMLRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML{}.Render(&buf, "Gantt Chart - expected", sampleBars()))

	page := buf.String()
	require.True(t, strings.Contains(page, "Gantt Chart - expected"))
	require.True(t, strings.Contains(page, "Start Offset"))
	require.True(t, strings.Contains(page, "Task Duration"))
	require.True(t, strings.Contains(page, "A: Design"))
	require.True(t, strings.Contains(page, "Time (hours)"))
}

func TestHandleReplacesChart(t *testing.T) {
	var h Handle
	require.Nil(t, h.Current())

	t.Run("1. first render creates", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, h.Render(&buf, "first", sampleBars()))
		require.NotNil(t, h.Current())
		require.Equal(t, 0, h.Disposed())
	})

	t.Run("2. second render disposes previous", func(t *testing.T) {
		first := h.Current()
		var buf bytes.Buffer
		require.NoError(t, h.Render(&buf, "second", sampleBars()[:1]))
		require.NotSame(t, first, h.Current())
		require.Equal(t, 1, h.Disposed())
	})

	t.Run("3. dispose clears", func(t *testing.T) {
		h.Dispose()
		require.Nil(t, h.Current())
		require.Equal(t, 2, h.Disposed())
		h.Dispose()
		require.Equal(t, 2, h.Disposed())
	})
}
