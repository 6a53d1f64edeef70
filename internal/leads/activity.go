package leads

import "time"

// ActivityType tags an entry of the activity log.
type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityImported      ActivityType = "imported"
	ActivityScore         ActivityType = "ai_score"
	ActivityQualification ActivityType = "grok_qualification"
	ActivityOutreach      ActivityType = "grok_outreach"
	ActivityStageChange   ActivityType = "stage_change"
	ActivityQualified     ActivityType = "qualified"
	ActivityContacted     ActivityType = "contacted"
)

// Activity is an append-only audit record.
type Activity struct {
	ID          int64          `json:"id" db:"id"`
	LeadID      *int64         `json:"lead_id" db:"lead_id"`
	Type        ActivityType   `json:"activity_type" db:"activity_type"`
	Description string         `json:"description" db:"description"`
	Data        map[string]any `json:"data,omitempty" db:"-"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// NewActivity builds an activity bound to the given lead.
func NewActivity(leadID int64, typ ActivityType, description string, data map[string]any) Activity {
	id := leadID
	return Activity{LeadID: &id, Type: typ, Description: description, Data: data}
}

// RunStatus is the lifecycle state of an evaluation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)
