package domain

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Task is one row of a task document. Scenario durations and worker hours
// share the Metrics map because the document keeps them as flat sibling
// fields; which keys are scenarios and which are roles is decided by the
// caller.
type Task struct {
	ID          string
	Description string
	Metrics     map[string]float64
}

// Duration returns the task duration under scenario, 0 when absent.
func (t Task) Duration(scenario string) float64 {
	return t.Metrics[scenario]
}

// Hours returns the hours allocated to role, 0 when absent.
func (t Task) Hours(role string) float64 {
	return t.Metrics[role]
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Metrics)+2)
	for k, v := range t.Metrics {
		out[k] = v
	}
	out["id"] = t.ID
	out["description"] = t.Description
	return json.Marshal(out)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid task json")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return errors.New("task must be a json object")
	}
	*t = parseTask(res)
	return nil
}

func parseTask(obj gjson.Result) Task {
	t := Task{Metrics: map[string]float64{}}
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		switch {
		case name == "id":
			t.ID = value.String()
		case name == "description":
			t.Description = value.String()
		case (name == "durations" || name == "hours") && value.IsObject():
			value.ForEach(func(k, v gjson.Result) bool {
				if f, ok := number(v); ok {
					t.Metrics[k.String()] = f
				}
				return true
			})
		default:
			if f, ok := number(value); ok {
				t.Metrics[name] = f
			}
		}
		return true
	})
	return t
}

// number accepts JSON numbers and finite numeric strings; anything else is
// treated as absent.
func number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Document is the fetched task input: the task list plus the predecessor
// map (task id -> ids that must finish first).
type Document struct {
	Tasks        []Task              `json:"tasks"`
	Predecessors map[string][]string `json:"predecessors"`
}

// ParseDocument reads a task document. Missing sections default to empty;
// only a body that is not a JSON object is rejected.
func ParseDocument(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, errors.New("invalid task document: malformed json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Document{}, errors.New("invalid task document: expected an object")
	}
	doc := Document{Predecessors: map[string][]string{}}
	root.Get("tasks").ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			doc.Tasks = append(doc.Tasks, parseTask(value))
		}
		return true
	})
	root.Get("predecessors").ForEach(func(key, value gjson.Result) bool {
		var preds []string
		value.ForEach(func(_, p gjson.Result) bool {
			preds = append(preds, p.String())
			return true
		})
		doc.Predecessors[key.String()] = preds
		return true
	})
	return doc, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Metrics lists every metric key seen on any task, sorted. Worker roles
// show up here too; callers filter with the rate table.
func (d Document) Metrics() []string {
	seen := map[string]struct{}{}
	for _, t := range d.Tasks {
		for k := range t.Metrics {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
