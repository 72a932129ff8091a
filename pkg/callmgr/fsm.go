package callmgr

import (
	"context"

	"github.com/looplab/fsm"
)

// CallState is the coarse call lifecycle.
type CallState int

const (
	StateInit CallState = iota
	StateTrying
	StateRinging
	StateEstablished
	StateTerminated
)

func (s CallState) String() string {
	switch s {
		case StateInit:
		return "init"
		case StateTrying:
		return "trying"
		case StateRinging:
		return "ringing"
		case StateEstablished:
		return "established"
		case StateTerminated:
		return "terminated"
		default:
		return "unknown"
	}
}

func parseCallState(s string) CallState {
	switch s {
		case StateInit.String():
		return StateInit
		case StateTrying.String():
		return StateTrying
		case StateRinging.String():
		return StateRinging
		case StateEstablished.String():
		return StateEstablished
		case StateTerminated.String():
		return StateTerminated
		default:
		return StateInit
	}
}

// initFSM builds the call's lifecycle state machine, in the idiom of
// dialog.go's own initFSM: named events with explicit source/
// destination sets, and an after_event callback that folds the FSM's
// string state back onto the typed CallState and fires logging/
// metrics hooks.
func (c *Call) initFSM() {
	c.fsm = fsm.NewFSM(
		StateInit.String(),
		fsm.Events{
			{Name: "invite", Src: []string{StateInit.String()}, Dst: StateTrying.String()},
			{Name: "ringing", Src: []string{StateTrying.String()}, Dst: StateRinging.String()},
			{Name: "answered", Src: []string{StateTrying.String(), StateRinging.String()}, Dst: StateEstablished.String()},
			{Name: "rejected", Src: []string{StateTrying.String(), StateRinging.String()}, Dst: StateTerminated.String()},

			{Name: "incoming", Src: []string{StateInit.String()}, Dst: StateRinging.String()},
			{Name: "accept", Src: []string{StateRinging.String(), StateInit.String()}, Dst: StateEstablished.String()},
			{Name: "reject", Src: []string{StateRinging.String(), StateInit.String()}, Dst: StateTerminated.String()},

			{Name: "bye", Src: []string{StateEstablished.String()}, Dst: StateTerminated.String()},
			{Name: "terminate", Src: []string{StateInit.String(), StateTrying.String(), StateRinging.String(), StateEstablished.String()}, Dst: StateTerminated.String()},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				c.state = parseCallState(e.Dst)
				if c.manager != nil {
					c.manager.onStateChanged(c, c.state)
				}
			},
		},
	)
}

// fire drives the FSM and reports whether the event was legal from
// the current state.
func (c *Call) fire(event string) error {
	return c.fsm.Event(context.Background(), event)
}
