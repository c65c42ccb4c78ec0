package capture

// State is the recognition lifecycle seen by the controller.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

// Input is what drives the state machine.
type Input string

const (
	InputStart    Input = "start"
	InputStop     Input = "stop"
	InputResult   Input = "result"
	InputError    Input = "error"
	InputEnd      Input = "end"
	InputLanguage Input = "language"
	InputTeardown Input = "teardown"
)

// Trigger is one machine input. Stale marks session events coming from a
// session that has been superseded.
type Trigger struct {
	Input Input
	Stale bool
}

// Effect is an action the controller performs after a transition.
type Effect string

const (
	EffectBeginSession   Effect = "begin-session"
	EffectEndSession     Effect = "end-session"
	EffectAppendInput    Effect = "append-input"
	EffectNotify         Effect = "notify"
	EffectRebindLanguage Effect = "rebind-language"
	EffectHoldLanguage   Effect = "hold-language"
)

// Transition is the whole capture state machine. It has no side effects.
func Transition(state State, t Trigger) (State, []Effect) {
	if t.Stale {
		return state, nil
	}

	switch t.Input {
	case InputStart:
		if state == StateIdle {
			return StateListening, []Effect{EffectBeginSession}
		}
		return state, nil

	case InputStop:
		if state == StateListening {
			return StateIdle, []Effect{EffectEndSession}
		}
		return state, nil

	case InputResult:
		// a result that lands after Stop still belongs to the user
		return StateIdle, []Effect{EffectAppendInput}

	case InputError:
		if state == StateListening {
			return StateIdle, []Effect{EffectNotify}
		}
		return StateIdle, nil

	case InputEnd:
		return StateIdle, nil

	case InputLanguage:
		if state == StateListening {
			return state, []Effect{EffectHoldLanguage}
		}
		return state, []Effect{EffectRebindLanguage}

	case InputTeardown:
		if state == StateListening {
			return StateIdle, []Effect{EffectEndSession}
		}
		return StateIdle, nil
	}

	return state, nil
}
