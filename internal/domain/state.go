package domain

// Phase is the lifecycle phase of an asynchronous operation.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseInFlight  Phase = "IN_FLIGHT"
	PhaseSucceeded Phase = "SUCCEEDED"
	PhaseFailed    Phase = "FAILED"
)

// OperationState is the single tagged value the UI reads to render an
// operation's progress. Reason is set only for PhaseFailed.
type OperationState struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func Idle() OperationState      { return OperationState{Phase: PhaseIdle} }
func InFlight() OperationState  { return OperationState{Phase: PhaseInFlight} }
func Succeeded() OperationState { return OperationState{Phase: PhaseSucceeded} }

func Failed(reason string) OperationState {
	return OperationState{Phase: PhaseFailed, Reason: reason}
}
