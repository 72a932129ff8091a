package callmgr

import "github.com/lyncmedia/mediacore/pkg/sdpmodel"

// Hold toggles the held flag on a stream and emits a re-INVITE
// carrying the current SDP (which now reflects the stream's
// "inactive" attribute). No additional state is tracked beyond the
// per-stream flag.
func (m *Manager) Hold(call *Call, streamName string, held bool) error {
	call.mu.Lock()
	stream, ok := call.Streams[streamName]
	if ok {
		stream.Held = held
		if m.backend != nil {
			_ = m.backend.SetHeld(stream.BackendHandle, held)
		}
	}
	call.CSeq++
	sd := call.buildLocalSDP()
	call.mu.Unlock()

	if !ok {
		return nil
	}

	body, err := sdpmodel.Serialize(sd)
	if err != nil {
		return err
	}
	tx, err := m.transport.SendReInvite(call, body, "application/sdp")
	if err != nil {
		return err
	}
	call.inviteTx = tx
	m.watchInviteResponses(call, tx)
	return nil
}
