package callmgr

import "github.com/lyncmedia/mediacore/pkg/sdpmodel"

// SipResponse is the transport-agnostic shape of a SIP response this
// package reacts to, grounded in the headers/body the WaitAnswer path
// inspects.
type SipResponse struct {
	StatusCode int
	ReasonPhrase string
	Body string
	ContentType string
	Headers map[string]string
}

// ClientTransaction mirrors the narrow slice of sipgo's
// sip.ClientTransaction this package needs: a channel of responses and
// a completion signal, exactly the shape pkg/dialog/dialog.go's
// WaitAnswer selects over.
type ClientTransaction interface {
	Responses() <-chan SipResponse
	Done() <-chan struct{}
	Err() error
}

// SipTransport is the narrow capability this package depends on
// instead of importing github.com/emiago/sipgo directly, so the call
// orchestration logic stays testable against a fake. The production
// binding lives in the dispatch layer and is built directly on
// sipgo's *sip.Request/*sip.Response/ClientTransaction types.
type SipTransport interface {
	SendInvite(call *Call, body, contentType string) (ClientTransaction, error)
	SendReInvite(call *Call, body, contentType string) (ClientTransaction, error)
	SendAck(call *Call) error
	Respond(call *Call, statusCode int, reason string, body, contentType string, headers map[string]string) error
	SendBye(call *Call) error
}

// StreamHandle is an opaque reference the MediaBackend capability
// hands back for a created stream.
type StreamHandle interface{}

// MediaBackend is the narrow capability covering ICE/RTP negotiation,
// deliberately out of this core's scope but named here so the Call Manager has
// something concrete to drive.
type MediaBackend interface {
	CreateStream(callID, name string, mediaType sdpmodel.MediaType) (StreamHandle, error)
	SubmitCodecs(handle StreamHandle, codecs []sdpmodel.Codec) error
	SubmitCandidates(handle StreamHandle, candidates []sdpmodel.Candidate) error
	SubmitEncryption(handle StreamHandle, localKey, remoteKey []byte, remoteKeyID int) error
	SetHeld(handle StreamHandle, held bool) error
	EndStream(handle StreamHandle) error
}
