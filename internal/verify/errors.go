package verify

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by Runner.Run wraps exactly one of them.
var (
	ErrNavigation      = errors.New("document could not be loaded")
	ErrElementNotFound = errors.New("element not found")
	ErrIO              = errors.New("screenshot could not be written")
	ErrBrowserLaunch   = errors.New("browser failed to launch")
)

// Step names one stage of a run.
type Step string

const (
	StepResolve  Step = "resolve"
	StepLaunch   Step = "launch"
	StepNavigate Step = "navigate"
	StepFill     Step = "fill"
	StepAction   Step = "action"
	StepWait     Step = "wait"
	StepCapture  Step = "capture"
)

// StepError records which step of a run failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("verification step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepError(step Step, class error, err error) error {
	if errors.Is(err, class) {
		return &StepError{Step: step, Err: err}
	}
	return &StepError{Step: step, Err: fmt.Errorf("%w: %w", class, err)}
}

// State is the furthest point a run reached.
type State int

const (
	StateNotStarted State = iota
	StateNavigated
	StateInputFilled
	StateActionTriggered
	StateCaptured
	StateClosed
)

var stateNames = [...]string{"not-started", "navigated", "input-filled", "action-triggered", "captured", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
