package callmgr

import (
	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/lyncmedia/mediacore/pkg/streammgr"
)

// applyRemoteSDP walks each remote media section through the
// seven-step algorithm.
func (m *Manager) applyRemoteSDP(call *Call, remote *sdpmodel.SessionDescription) error {
	call.mu.Lock()
	defer call.mu.Unlock()

	for _, section := range remote.Sections {
		// Step 1: encryption-rejected vs our Required policy.
		if v, ok := section.AttributeValue("encryption"); ok && v == "rejected" && call.EncryptionPolicy == config.EncryptionRequired {
			call.EncryptionIncompatible = true
		}

		stream, ok := call.Streams[section.Name]

		// Step 2: port=0 ends the corresponding local stream.
		if section.Port == 0 {
			if ok {
				m.endStream(call, section.Name, stream)
			}
			continue
		}

		if !ok {
			// No local stream could be created for this section; it
			// is echoed back as failed media by buildLocalSDP.
			call.FailedMedia = append(call.FailedMedia, section)
			continue
		}

		// Step 3: idempotence — skip a section already applied.
		if stream.RemoteApplied {
			continue
		}

		// Step 4: held state toggles on the presence of "inactive".
		if _, inactive := section.AttributeValue("inactive"); inactive {
			stream.Held = true
		} else {
			stream.Held = false
		}

		// Step 5: submit codecs; end the stream if none survive.
		if m.backend != nil {
			if err := m.backend.SubmitCodecs(stream.BackendHandle, section.Codecs); err != nil {
				m.endStream(call, section.Name, stream)
				continue
			}
		}

		// Step 6: encryption keys, when both sides provided one.
		if section.EncryptionActive && len(stream.SRTPKey) > 0 && m.backend != nil {
			if err := m.backend.SubmitEncryption(stream.BackendHandle, stream.SRTPKey, []byte(section.Key), section.KeyID); err != nil {
				m.endStream(call, section.Name, stream)
				continue
			}
		}

		// Step 7: candidates.
		if m.backend != nil {
			if err := m.backend.SubmitCandidates(stream.BackendHandle, section.Candidates); err != nil {
				m.endStream(call, section.Name, stream)
				continue
			}
		}

		stream.RemoteApplied = true
	}
	return nil
}

// endStream tears down a local stream that remote negotiation ended
// or rejected: it notifies the backend, releases the port, and drops
// the stream from the call's map.
func (m *Manager) endStream(call *Call, name string, stream *streammgr.Stream) {
	if m.backend != nil && stream.BackendHandle != nil {
		_ = m.backend.EndStream(stream.BackendHandle)
	}
	m.streams.ReleaseStream(name, stream.Type, stream.Port, stream)
	delete(call.Streams, name)
}
