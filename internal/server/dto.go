package server

import (
	"encoding/json"

	"planline/internal/domain"
)

// Response payloads

type PlanResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TaskCount int    `json:"task_count"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	Document  any    `json:"document,omitempty"`
	// Metrics lists the duration scenarios and role hours found on the
	// plan's tasks.
	Metrics []string `json:"metrics,omitempty"`
}

type RunResponse = domain.Run

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	PlanID     string         `json:"plan_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type ScenariosResponse struct {
	Scenarios []string `json:"scenarios"`
	Default   string   `json:"default"`
}

type RatesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	PriceTiers []string `json:"price_tiers"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Conversion helpers

func planResponse(p domain.Plan, withDocument bool) PlanResponse {
	out := PlanResponse{
		ID:        p.ID,
		Name:      p.Name,
		TaskCount: p.TaskCount,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if withDocument {
		out.Document = p.Document
		out.Metrics = p.Document.Metrics()
	}
	return out
}

func mapPlans(items []domain.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(items))
	for _, p := range items {
		out = append(out, planResponse(p, false))
	}
	return out
}

func mapRuns(items []domain.Run) []RunResponse {
	if items == nil {
		return []RunResponse{}
	}
	return items
}

func eventResponse(e domain.Event) EventResponse {
	payload := map[string]any{}
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		PlanID:     e.PlanID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    payload,
	}
}
