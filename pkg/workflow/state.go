package workflow

// RunState is the lifecycle state of a workflow run.
type RunState string

const (
	// StatePending means the run is created but not started.
	StatePending RunState = "pending"

	// StateRunning means the run has started and not yet finished.
	StateRunning RunState = "running"

	// StateCompleted means every stage succeeded.
	StateCompleted RunState = "completed"

	// StateFailed means the run aborted.
	StateFailed RunState = "failed"
)

// IsTerminal reports whether the state is final.
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// String implements fmt.Stringer.
func (s RunState) String() string {
	return string(s)
}
