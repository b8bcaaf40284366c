package workflow

import (
	"time"

	"github.com/BaSui01/agentorch/types"
)

// TaskResult is the outcome of one task invocation. Error is set iff
// Success is false.
type TaskResult struct {
	TaskID     string                 `json:"taskId"`
	AgentName  string                 `json:"agentName"`
	Success    bool                   `json:"success"`
	Output     string                 `json:"output"`
	ToolUses   []types.ToolInvocation `json:"toolUses,omitempty"`
	Usage      types.TokenUsage       `json:"usage"`
	DurationMs int64                  `json:"durationMs"`
	Attempts   int                    `json:"attempts"`
	Cached     bool                   `json:"cached,omitempty"`
	StopReason string                 `json:"stopReason,omitempty"`
	StartedAt  time.Time              `json:"startTime"`
	FinishedAt time.Time              `json:"endTime"`
	Error      *types.Error           `json:"error,omitempty"`
}

// ErrorKind returns the error code of a failed result, or "".
func (r TaskResult) ErrorKind() types.ErrorCode {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// Skipped reports whether the task never ran because a dependency failed.
func (r TaskResult) Skipped() bool {
	return r.ErrorKind() == types.ErrSkippedDueToDependencyFailure
}

// State is a workflow's lifecycle state.
type State string

const (
	StatePending         State = "pending"
	StateRunning         State = "running"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePartiallyFailed, StateFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateRunning
	case StateRunning:
		return to.Terminal()
	}
	return false
}

// Result is the outcome of one workflow run. TaskResults follow template
// order.
type Result struct {
	ExecutionID     string       `json:"executionId"`
	WorkflowName    string       `json:"workflowName"`
	Success         bool         `json:"success"`
	State           State        `json:"state"`
	TaskResults     []TaskResult `json:"results"`
	TotalDurationMs int64        `json:"totalDurationMs"`
	StartedAt       time.Time    `json:"startTime"`
	FinishedAt      time.Time    `json:"endTime"`
}

// Task returns the result for taskID.
func (r *Result) Task(taskID string) (TaskResult, bool) {
	for _, tr := range r.TaskResults {
		if tr.TaskID == taskID {
			return tr, true
		}
	}
	return TaskResult{}, false
}

// Counts returns how many tasks succeeded, failed, and were skipped.
func (r *Result) Counts() (succeeded, failed, skipped int) {
	for _, tr := range r.TaskResults {
		switch {
		case tr.Success:
			succeeded++
		case tr.Skipped():
			skipped++
		default:
			failed++
		}
	}
	return
}

// terminalState derives the final state from task outcomes.
func terminalState(results []TaskResult) State {
	succeeded := 0
	for _, tr := range results {
		if tr.Success {
			succeeded++
		}
	}
	switch {
	case succeeded == len(results):
		return StateSucceeded
	case succeeded > 0:
		return StatePartiallyFailed
	default:
		return StateFailed
	}
}
