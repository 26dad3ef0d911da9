package sim

// Phase is the position of the simulator in its tick cycle.
type Phase int32

const (
	Running Phase = iota
	Tick
	Planning
	Applying
	Done
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Tick:
		return "tick"
	case Planning:
		return "planning"
	case Applying:
		return "applying"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
