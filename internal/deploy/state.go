package deploy

import "fmt"

// State is the orchestrator's position in a deployment cycle.
type State string

const (
	StateIdle                State = "idle"
	StateCheckingVersion     State = "checking_version"
	StateMaintenanceStarting State = "maintenance_starting"
	StateStoppingService     State = "stopping_service"
	StateUpdating            State = "updating"
	StateRestarting          State = "restarting"
	StateFinalizing          State = "finalizing"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
)

// stateUpdating renders the Updating state with the index of the running step.
func stateUpdating(step int) State {
	return State(fmt.Sprintf("%s(%d)", StateUpdating, step))
}

// Terminal reports whether s ends a cycle.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
