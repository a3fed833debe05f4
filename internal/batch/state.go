package batch

import "fmt"

// State: этап партии.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateGenerating
	StateCollected
	StatePackaging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateGenerating:
		return "generating"
	case StateCollected:
		return "collected"
	case StatePackaging:
		return "packaging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal сообщает, завершена ли партия.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return !from.IsTerminal() && from != StateIdle
	}
	switch from {
	case StateIdle:
		return to == StateValidating
	case StateValidating:
		return to == StateGenerating
	case StateGenerating:
		return to == StateGenerating || to == StateCollected
	case StateCollected:
		return to == StatePackaging
	case StatePackaging:
		return to == StateDone
	default:
		return false
	}
}

// machine проверяет переходы и сообщает о них наблюдателю.
type machine struct {
	state    State
	observer func(State)
}

func (m *machine) to(next State) error {
	if !isAllowedTransition(m.state, next) {
		return fmt.Errorf("недопустимый переход %s -> %s", m.state, next)
	}
	m.state = next
	if m.observer != nil {
		m.observer(next)
	}
	return nil
}
