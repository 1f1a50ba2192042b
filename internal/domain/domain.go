package domain

type Plan struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TaskCount int      `json:"task_count"`
	Document  Document `json:"document"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

// ScheduleEntry is one solved task. Slack and Critical come from the
// critical path pass and are empty when it could not run.
type ScheduleEntry struct {
	TaskID      string   `json:"id"`
	Description string   `json:"description"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Cost        float64  `json:"cost"`
	Slack       *float64 `json:"slack,omitempty"`
	Critical    bool     `json:"critical,omitempty"`
}

func (e ScheduleEntry) Duration() float64 {
	return e.End - e.Start
}

type Run struct {
	ID                 string          `json:"id"`
	PlanID             string          `json:"plan_id,omitempty"`
	Scenario           string          `json:"scenario"`
	Feasible           bool            `json:"feasible"`
	TotalDuration      float64         `json:"total_duration"`
	TotalCost          float64         `json:"total_cost"`
	AverageCostPerHour *float64        `json:"average_cost_per_hour,omitempty"`
	Schedule           []ScheduleEntry `json:"schedule"`
	CriticalPath       []string        `json:"critical_path,omitempty"`
	CreatedAt          string          `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	PlanID     string `json:"plan_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
