package callmgr

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/lyncmedia/mediacore/pkg/streammgr"
)

// NewCallID generates a fresh Call-ID for an outbound call whose
// caller has no SIP dialog layer of its own to mint one from.
func NewCallID() string {
	return uuid.New().String()
}

// InboundInvite is a stashed incoming INVITE, kept around so the call
// can be answered once every newly created stream reports ready.
type InboundInvite struct {
	Body string
	ContentType string
	FromTag string
	ToTag string
}

// streamOrder fixes a deterministic ordering for the four named
// streams when building an SDP body, matching the order the reference
// client's media sections appear in.
var streamOrder = []string{"audio", "video", "data", "applicationsharing"}

// Call is the per-dialog state named in the data model: peer
// URI, ordered streams, pending remote SDP, stashed invite, and the
// bookkeeping the retry and hold logic need.
type Call struct {
	mu sync.Mutex

	CallID string
	PeerURI string
	SelfURI string

	// Hidden distinguishes a file-transfer/app-sharing data session
	// from a user-visible voice call.
	Hidden bool

	IsOfferer bool
	ICEVersion sdpmodel.ICEVersion
	WithVideo bool

	Streams map[string]*streammgr.Stream

	PendingRemoteSDP *sdpmodel.SessionDescription
	PendingInvite *InboundInvite
	FailedMedia []sdpmodel.MediaSection

	EncryptionPolicy config.EncryptionPolicy
	EncryptionIncompatible bool

	ExtraSection string
	ExtraSectionContentType string

	// UserAccepted records whether the local user has accepted an
	// inbound call; the 200 OK is only emitted once this is true and
	// every stream is initialized.
	UserAccepted bool

	CSeq uint32

	retriedICE bool

	state CallState
	fsm *fsm.FSM

	manager *Manager

	inviteTx ClientTransaction

	// rejectHook fires whenever the call is rejected, locally or by
	// the peer (Reject, a CANCEL, or a terminal INVITE failure). The
	// File-Transfer State Machine installs one of these to learn of a
	// remote cancel, chaining to whatever hook (if any) was already
	// installed — callback-chaining idiom rather than a fixed observer list.
	rejectHook func(*Call)
}

func newCall(manager *Manager, callID, peerURI string, iceVersion sdpmodel.ICEVersion) *Call {
	c := &Call{
		CallID: callID,
		PeerURI: peerURI,
		SelfURI: manager.selfURI,
		ICEVersion: iceVersion,
		Streams: make(map[string]*streammgr.Stream),
		manager: manager,
	}
	c.initFSM()
	return c
}

// State returns the call's current coarse lifecycle state.
func (c *Call) State() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// allInitialized reports whether every stream currently attached to
// the call has reported initialized = true, the barrier.
func (c *Call) allInitialized() bool {
	if len(c.Streams) == 0 {
		return false
	}
	for _, s := range c.Streams {
		if !s.Initialized {
			return false
		}
	}
	return true
}

// orderedStreamNames returns the call's stream names in the fixed
// audio/video/data/applicationsharing order, with any stream outside
// that set appended afterward in sorted order (stable for tests).
func (c *Call) orderedStreamNames() []string {
	seen := make(map[string]bool, len(c.Streams))
	ordered := make([]string, 0, len(c.Streams))
	for _, name := range streamOrder {
		if _, ok := c.Streams[name]; ok {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range c.Streams {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// buildLocalSDP renders the call's current stream state plus any
// failed-media echo into a SessionDescription.
func (c *Call) buildLocalSDP() *sdpmodel.SessionDescription {
	sd := &sdpmodel.SessionDescription{
		OriginUsername: "-",
		SessionID: uint64(1),
		SessionVersion: uint64(c.CSeq + 1),
	}
	for _, name := range c.orderedStreamNames() {
		s := c.Streams[name]
		section := sdpmodel.MediaSection{
			Name: s.Name,
			Type: s.Type,
			ConnectionIP: s.ConnectionIP,
			Port: s.Port,
			Candidates: s.LocalCandidates,
			Attributes: append([]sdpmodel.Attribute{}, s.ExtraAttributes()...),
		}
		for _, codec := range s.LocalCodecs {
			section.Codecs = sdpmodel.AddCodec(section.Codecs, codec)
		}
		if s.Held {
			section.AddAttribute("inactive", "")
		}
		if len(s.SRTPKey) > 0 {
			section.EncryptionActive = true
			section.KeyID = s.SRTPKeyID
		}
		if sd.ConnectionIP == "" {
			sd.ConnectionIP = s.ConnectionIP
		}
		sd.Sections = append(sd.Sections, section)
	}
	for _, fm := range c.FailedMedia {
		fm.Port = 0
		sd.Sections = append(sd.Sections, fm)
	}
	return sd
}
