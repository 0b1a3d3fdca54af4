package session

// State is the repair loop's position. The loop is an explicit machine
// rather than nested conditionals so each transition can be tested in
// isolation.
type State int

const (
	StateCompose State = iota
	StateSynthesize
	StateExecute
	StateEvaluate

	// Terminal states.
	StateSucceeded
	StatePreviewed
	StateExhausted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateCompose:
		return "compose"
	case StateSynthesize:
		return "synthesize"
	case StateExecute:
		return "execute"
	case StateEvaluate:
		return "evaluate"
	case StateSucceeded:
		return "succeeded"
	case StatePreviewed:
		return "previewed"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePreviewed, StateExhausted, StateAborted:
		return true
	default:
		return false
	}
}
