package importrun

// Status is the state of one run: idle, then running, then cancelled or
// completed. A run never leaves a terminal state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Progress is the aggregate state of a run. Imported + Failed never
// exceeds Total, and equals it once the run completes.
type Progress struct {
	Status   Status `json:"status"`
	Total    int    `json:"total"`
	Imported int    `json:"imported"`
	Failed   int    `json:"failed"`
}

func (p Progress) Terminal() bool {
	return p.Status == StatusCancelled || p.Status == StatusCompleted
}

// ProgressFunc observes a run. It is called synchronously from the loop.
type ProgressFunc func(Progress)
