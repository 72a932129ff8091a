package callmgr

import (
	"github.com/lyncmedia/mediacore/pkg/coreerr"
	"github.com/lyncmedia/mediacore/pkg/multipart"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// InitiateCall begins an outbound call. It rejects if any
// existing call already carries an audio stream. The INVITE itself is
// not emitted here: it fires once every stream reports initialized,
// from the barrier in barrier.go.
func (m *Manager) InitiateCall(callID, peerURI string, iceVersion sdpmodel.ICEVersion, withVideo bool) (*Call, error) {
	if m.hasAudioCall("") {
		return nil, coreerr.ErrAudioCallExists
	}

	call := newCall(m, callID, peerURI, iceVersion)
	call.IsOfferer = true
	call.WithVideo = withVideo
	call.EncryptionPolicy = m.cfg.EncryptionPolicy
	m.register(call)

	if _, err := m.addStream(call, "audio", sdpmodel.MediaAudio, true); err != nil {
		m.unregister(callID)
		return nil, err
	}
	if withVideo {
		if _, err := m.addStream(call, "video", sdpmodel.MediaVideo, true); err != nil {
			m.unregister(callID)
			return nil, err
		}
	}

	// Proxy-fallback alternative INVITE section: only on the dialog's
	// very first INVITE (CSeq==0), only for Rfc5245, and never to the
	// test-call bot.
	if call.CSeq == 0 && iceVersion == sdpmodel.Rfc5245 && peerURI != m.cfg.TestCallBotURI {
		call.ExtraSection = buildProxyFallbackSection(call)
		call.ExtraSectionContentType = "multipart/alternative"
	}

	if m.metrics != nil {
		m.metrics.CallInitiated(iceVersion.String())
	}
	return call, nil
}

// buildProxyFallbackSection renders a minimal single-audio-section SDP
// as the legacy "extra" part of the multipart/alternative envelope:
// older provisioning proxies that cannot parse the multi-stream SDP
// still see a plain audio offer. Composed with pkg/multipart's raw
// SDPPart helper so the header ordering matches the wire format.
func buildProxyFallbackSection(call *Call) string {
	audio, ok := call.Streams["audio"]
	if !ok {
		return ""
	}
	section := sdpmodel.MediaSection{
		Name: "audio",
		Type: sdpmodel.MediaAudio,
		ConnectionIP: audio.ConnectionIP,
		Port: audio.Port,
		Candidates: audio.LocalCandidates,
		Codecs: audio.LocalCodecs,
	}
	sd := &sdpmodel.SessionDescription{
		OriginUsername: "-",
		ConnectionIP: audio.ConnectionIP,
		Sections: []sdpmodel.MediaSection{section},
	}
	text, err := sdpmodel.Serialize(sd)
	if err != nil {
		return ""
	}
	return multipart.SDPPart(text)
}

// hasDataOrAppSharingSection reports whether the offer carries an
// m=data or m=applicationsharing section, the condition
// HandleIncomingInvite's busy check is waived for: a data session
// (file transfer / app sharing) is never user-visible and so never
// competes with an existing audio call the way a second voice call
// would.
func hasDataOrAppSharingSection(sd *sdpmodel.SessionDescription) bool {
	for _, section := range sd.Sections {
		if section.Name == "data" || section.Name == "applicationsharing" {
			return true
		}
	}
	return false
}

// HandleIncomingInvite implements the inbound half of call setup. body
// is the full (possibly multipart-stripped) SDP payload already routed
// here by the dispatch layer. Whether the resulting Call is hidden
// from the UI (a data/app-sharing session) is derived from the offer
// itself — an m=data or m=applicationsharing section — rather than
// trusted from the caller.
func (m *Manager) HandleIncomingInvite(callID, peerURI, body string) (*Call, int, error) {
	if peerURI == m.SelfURI() {
		return nil, 488, coreerr.ErrSelfCall
	}

	remote, err := sdpmodel.Parse(body)
	if err != nil {
		return nil, 488, coreerr.ErrSDPParse.WithCause(err)
	}
	hidden := hasDataOrAppSharingSection(remote)

	if !hidden && m.hasAudioCall(callID) {
		return nil, 486, coreerr.New(coreerr.CategoryPeer, coreerr.SeverityWarning, "busy")
	}

	call := newCall(m, callID, peerURI, sdpmodel.Rfc5245)
	call.Hidden = hidden
	call.EncryptionPolicy = m.cfg.EncryptionPolicy
	call.PendingRemoteSDP = remote
	m.register(call)

	created := false
	for _, section := range remote.Sections {
		if section.Port == 0 {
			continue
		}
		if _, exists := call.Streams[section.Name]; exists {
			continue
		}
		if _, err := m.addStream(call, section.Name, section.Type, false); err != nil {
			call.FailedMedia = append(call.FailedMedia, section)
			continue
		}
		created = true
	}

	if err := call.fire("incoming"); err != nil {
		m.unregister(callID)
		return nil, 500, err
	}

	if created {
		return call, 180, nil
	}
	return call, 0, nil
}

func (m *Manager) SelfURI() string { return m.selfURI }

// InitiateDataCall begins an outbound hidden data session carrying a
// single "data" stream — the upload half of the File-Transfer State
// Machine's outgoing_init. Unlike InitiateCall it never
// competes with the one-audio-call rule and is never eligible for the
// proxy-fallback section, since nothing about it is user-visible.
// extraSection, when non-empty, becomes the multipart/mixed INVITE
// section carrying the publishFile control message; extraAttrs are
// appended to the data stream's SDP attributes (sendonly, mid:1).
func (m *Manager) InitiateDataCall(callID, peerURI string, extraAttrs []sdpmodel.Attribute, extraSection, extraSectionContentType string) (*Call, error) {
	call := newCall(m, callID, peerURI, sdpmodel.Rfc5245)
	call.IsOfferer = true
	call.Hidden = true
	call.EncryptionPolicy = m.cfg.EncryptionPolicy
	m.register(call)

	stream, err := m.addStream(call, "data", sdpmodel.MediaApplication, true)
	if err != nil {
		m.unregister(callID)
		return nil, err
	}
	for _, a := range extraAttrs {
		stream.AddExtraAttribute(a.Name, a.Value)
	}

	call.ExtraSection = extraSection
	call.ExtraSectionContentType = extraSectionContentType

	if m.metrics != nil {
		m.metrics.CallInitiated(sdpmodel.Rfc5245.String())
	}
	return call, nil
}
