package transfer

type PostCreation struct {
	Content      string
	ScheduledFor string
	Status       string
}

type PostUpdate struct {
	Content      string
	ScheduledFor string
	Status       string
}

// PostOutcome is the per-post entry of a publish run summary.
type PostOutcome struct {
	PostID int64  `json:"post_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PublishRunSummary aggregates one pass of the publish orchestrator over its
// candidate set. It is returned to the trigger surface and logged as a unit.
type PublishRunSummary struct {
	Total     int           `json:"total"`
	Published int           `json:"published"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Outcomes  []PostOutcome `json:"outcomes"`
}
