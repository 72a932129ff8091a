package callmgr

import "github.com/lyncmedia/mediacore/pkg/sdpmodel"

// emitAnswer sends the 200 OK for an inbound INVITE: a
// freshly computed SDP reflecting current local state plus the
// failed-media echo, or an encryption-incompatibility rejection.
func (m *Manager) emitAnswer(call *Call) error {
	if call.EncryptionIncompatible {
		return m.transport.Respond(call, 488, "Encryption Levels not compatible", "", "",
			map[string]string{"Warning": `308 lcs.microsoft.com "Encryption Levels not compatible"`})
	}

	sd := call.buildLocalSDP()
	body, err := sdpmodel.Serialize(sd)
	if err != nil {
		return err
	}
	if err := m.transport.Respond(call, 200, "OK", body, "application/sdp", nil); err != nil {
		return err
	}
	return call.fire("accept")
}

// Accept marks the inbound call as accepted by the local user. If
// every stream is already initialized the answer is emitted
// immediately; otherwise it fires from the barrier once they are.
func (m *Manager) Accept(call *Call) error {
	call.mu.Lock()
	call.UserAccepted = true
	ready := call.allInitialized()
	call.mu.Unlock()

	if ready {
		return m.emitAnswer(call)
	}
	return nil
}
