package booking

import (
	"fmt"

	"github.com/garnizeh/rentops/pkg/models"
)

// next lists the statuses reachable from each non-terminal status.
var next = map[models.JobStatus][]models.JobStatus{
	models.StatusScheduled:  {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusFinished, models.StatusCancelled},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to models.JobStatus) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError rejects a status or payment change the state machine does
// not allow from the job's current state.
type TransitionError struct {
	JobID int64
	From  string
	To    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %d: cannot move from %q to %q", e.JobID, e.From, e.To)
}
