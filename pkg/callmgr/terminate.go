package callmgr

// Hangup closes the SIP session locally.
func (m *Manager) Hangup(call *Call) error {
	if err := m.transport.SendBye(call); err != nil {
		return err
	}
	return call.fire("terminate")
}

// Reject declines an inbound call with 603 Decline.
func (m *Manager) Reject(call *Call) error {
	if err := m.transport.Respond(call, 603, "Decline", "", "", nil); err != nil {
		return err
	}
	err := call.fire("reject")
	call.runRejectHook()
	return err
}

// CancelInvitation handles an inbound CANCEL against a call we have
// not yet answered, routed here to cancel any in-progress invitation.
// It tears the call down exactly like a peer rejection, including the
// reject-hook chain the file-transfer state machine installs on its
// data sessions.
func (m *Manager) CancelInvitation(call *Call) error {
	m.unregister(call.CallID)
	call.mu.Lock()
	for name, stream := range call.Streams {
		m.endStream(call, name, stream)
	}
	call.mu.Unlock()
	err := call.fire("terminate")
	call.runRejectHook()
	return err
}

// HandleIncomingBye tears a call down on a peer-initiated BYE, per the
// handleIncomingBye: unlike Hangup, no BYE is sent back, only
// a 200 OK (left to the dispatch layer, which owns the server
// transaction). Streams end and the dialog moves to terminated exactly
// as a locally-initiated hangup would.
func (m *Manager) HandleIncomingBye(call *Call) error {
	m.unregister(call.CallID)
	call.mu.Lock()
	for name, stream := range call.Streams {
		m.endStream(call, name, stream)
	}
	call.mu.Unlock()
	if err := call.fire("bye"); err != nil {
		return call.fire("terminate")
	}
	return nil
}

// SetRejectHook installs hook to run whenever this call is rejected or
// cancelled, returning whatever hook was previously installed so the
// caller can chain to it instead of clobbering it — the reimplemented
// form of chained call_reject_cb.
func (m *Manager) SetRejectHook(call *Call, hook func(*Call)) (previous func(*Call)) {
	call.mu.Lock()
	defer call.mu.Unlock()
	previous = call.rejectHook
	call.rejectHook = hook
	return previous
}

func (c *Call) runRejectHook() {
	c.mu.Lock()
	hook := c.rejectHook
	c.mu.Unlock()
	if hook != nil {
		hook(c)
	}
}

// OnMediaEnd is invoked when the backend reports media has ended: the
// call is removed from the Call-ID map before streams are torn down,
// preserving the cleanup-ordering invariant, then the session is
// closed and phone-state publication is attempted.
func (m *Manager) OnMediaEnd(call *Call, publish func(*Call)) {
	m.unregister(call.CallID)

	call.mu.Lock()
	for name, stream := range call.Streams {
		m.endStream(call, name, stream)
	}
	call.mu.Unlock()

	_ = call.fire("terminate")

	if publish != nil && m.cfg.OCS2007 {
		publish(call)
	}
}
