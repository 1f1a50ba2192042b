package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	raw := `{
		"tasks": [
			{"id": 1, "description": "first", "best": 2, "expected": "4.5", "projectManager": 3, "note": "n/a"},
			{"id": "2", "description": "second", "durations": {"best": 1}, "hours": {"cloudDevops": 2}},
			"not a task"
		],
		"predecessors": {"2": [1], "1": []}
	}`

	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 2)

	first := doc.Tasks[0]
	require.Equal(t, "1", first.ID)
	require.Equal(t, "first", first.Description)
	require.Equal(t, float64(2), first.Duration("best"))
	require.Equal(t, 4.5, first.Duration("expected"))
	require.Equal(t, float64(3), first.Hours("projectManager"))
	require.Zero(t, first.Duration("worst"))
	require.NotContains(t, first.Metrics, "note")

	second := doc.Tasks[1]
	require.Equal(t, float64(1), second.Duration("best"))
	require.Equal(t, float64(2), second.Hours("cloudDevops"))

	require.Equal(t, []string{"1"}, doc.Predecessors["2"])
	require.Empty(t, doc.Predecessors["1"])
	require.Equal(t, []string{"best", "cloudDevops", "expected", "projectManager"}, doc.Metrics())
}

func TestParseDocumentDefaults(t *testing.T) {
	doc, err := ParseDocument([]byte(`{}`))
	require.NoError(t, err)
	require.Empty(t, doc.Tasks)
	require.NotNil(t, doc.Predecessors)

	_, err = ParseDocument([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = ParseDocument([]byte(`{"tasks": [`))
	require.Error(t, err)
}

func TestParseDocumentNonFiniteStrings(t *testing.T) {
	raw := `{"tasks": [{"id": "A", "best": "NaN", "likely": "Infinity", "worst": "-Inf", "expected": " 2 ", "projectManager": "inf"}]}`

	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 1)

	task := doc.Tasks[0]
	require.Zero(t, task.Duration("best"))
	require.Zero(t, task.Duration("likely"))
	require.Zero(t, task.Duration("worst"))
	require.Zero(t, task.Hours("projectManager"))
	require.Equal(t, float64(2), task.Duration("expected"))
	require.NotContains(t, task.Metrics, "best")
	require.NotContains(t, task.Metrics, "likely")
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := Document{
		Tasks: []Task{{ID: "A", Description: "alpha", Metrics: map[string]float64{"best": 3, "dataEngineer": 1}}},
		Predecessors: map[string][]string{"A": {}},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, `{"tasks":[{"id":"A","description":"alpha","best":3,"dataEngineer":1}],"predecessors":{"A":[]}}`, string(data))

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, doc.Tasks, back.Tasks)
}
