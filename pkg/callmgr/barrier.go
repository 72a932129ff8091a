package callmgr

import (
	"github.com/lyncmedia/mediacore/pkg/multipart"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// OnStreamInitialized records the backend's readiness signal for one
// stream and, once every stream on the call has reported ready, fires
// the initialization barrier.
func (m *Manager) OnStreamInitialized(call *Call, streamName, connectionIP string, candidates []sdpmodel.Candidate, codecs []sdpmodel.Codec) error {
	call.mu.Lock()
	stream, ok := call.Streams[streamName]
	if !ok {
		call.mu.Unlock()
		return nil
	}
	stream.MarkInitialized(connectionIP, candidates, codecs)
	ready := call.allInitialized()
	call.mu.Unlock()

	if !ready {
		return nil
	}

	if call.IsOfferer {
		return m.emitInvite(call)
	}
	if call.PendingRemoteSDP != nil {
		if err := m.applyRemoteSDP(call, call.PendingRemoteSDP); err != nil {
			return err
		}
		if call.UserAccepted {
			return m.emitAnswer(call)
		}
	}
	return nil
}

// emitInvite composes and sends the outbound INVITE, consuming any
// extra section, and begins tracking the response.
func (m *Manager) emitInvite(call *Call) error {
	call.CSeq++
	sd := call.buildLocalSDP()
	body, err := sdpmodel.Serialize(sd)
	if err != nil {
		return err
	}

	contentType := "application/sdp"
	if call.ExtraSection != "" {
		envelope := call.ExtraSectionContentType
		if envelope == "" {
			envelope = "multipart/mixed"
		}
		body, contentType = multipart.Compose(envelope, call.ExtraSection, multipart.SDPPart(body))
		call.ExtraSection = ""
		call.ExtraSectionContentType = ""
	}

	tx, err := m.transport.SendInvite(call, body, contentType)
	if err != nil {
		return err
	}
	call.inviteTx = tx
	m.watchInviteResponses(call, tx)
	return call.fire("invite")
}
