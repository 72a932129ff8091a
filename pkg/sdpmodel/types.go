// Package sdpmodel defines the strongly typed candidate/codec/media
// section model the rest of the core operates on, plus its wire
// serialization via github.com/pion/sdp/v3 — the same codec the
// pkg/media_sdp package builds on.
package sdpmodel

// ICEVersion distinguishes the two ICE protocol revisions this core
// negotiates between.
type ICEVersion int

const (
	Draft6 ICEVersion = iota
	Rfc5245
)

func (v ICEVersion) String() string {
	if v == Draft6 {
		return "draft6"
	}
	return "rfc5245"
}

// MediaType tags a media section / stream.
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaVideo
	MediaApplication
)

func (t MediaType) String() string {
	switch t {
		case MediaAudio:
		return "audio"
		case MediaVideo:
		return "video"
		case MediaApplication:
		return "application"
		default:
		return "unknown"
	}
}

// CandidateType is the ICE candidate type.
type CandidateType int

const (
	CandidateHost CandidateType = iota
	CandidateServerReflexive
	CandidatePeerReflexive
	CandidateRelay
	CandidateAny
)

func (t CandidateType) String() string {
	switch t {
		case CandidateHost:
		return "host"
		case CandidateServerReflexive:
		return "srflx"
		case CandidatePeerReflexive:
		return "prflx"
		case CandidateRelay:
		return "relay"
		default:
		return "any"
	}
}

// Component is the RTP/RTCP component id.
type Component int

const (
	ComponentRTP Component = 1
	ComponentRTCP Component = 2
)

// Protocol is the candidate transport.
type Protocol int

const (
	ProtoUDP Protocol = iota
	ProtoTCPActive
	ProtoTCPPassive
)

func (p Protocol) String() string {
	switch p {
		case ProtoUDP:
		return "UDP"
		case ProtoTCPActive:
		return "TCP-ACT"
		case ProtoTCPPassive:
		return "TCP-PASS"
		default:
		return "UNKNOWN"
	}
}

// Candidate is the backend-agnostic ICE candidate tuple.
type Candidate struct {
	Foundation string
	Component Component
	Type CandidateType
	Protocol Protocol
	IP string
	Port int
	BaseIP string
	BasePort int
	Priority uint32
	Username string
	Password string
}

// Equal reports whether two candidates compare equal per the sort key
// this core defines: (foundation, username, component).
func (c Candidate) Equal(o Candidate) bool {
	return c.Foundation == o.Foundation &&
	c.Username == o.Username &&
	c.Component == o.Component
}

// CodecParam is an ordered fmtp-style parameter.
type CodecParam struct {
	Name string
	Value string
}

// Codec is a payload-type/name/clock-rate tuple with ordered params.
type Codec struct {
	ID int
	Name string
	ClockRate int
	Type MediaType
	Params []CodecParam
}

// Attribute is a name/value SDP attribute. Order is preserved and
// duplicates are allowed, matching the data-model invariant.
type Attribute struct {
	Name string
	Value string
}

// MediaSection is one m= block plus everything the core needs to
// negotiate it.
type MediaSection struct {
	Name string
	Type MediaType
	ConnectionIP string
	Port int
	Candidates []Candidate
	Codecs []Codec
	RemoteCandidates []Candidate
	Attributes []Attribute
	EncryptionActive bool
	Key string
	KeyID int
}

// AddCodec inserts codec into list, ordered by first insertion,
// rejecting a payload id already present.
func AddCodec(list []Codec, codec Codec) []Codec {
	for _, existing := range list {
		if existing.ID == codec.ID {
			return list
		}
	}
	return append(list, codec)
}

// AddAttribute appends a name/value pair without dedup, preserving
// insertion order (the Stream Manager's extra-attribute contract).
func (m *MediaSection) AddAttribute(name, value string) {
	m.Attributes = append(m.Attributes, Attribute{Name: name, Value: value})
}

// AttributeValue returns the first attribute value matching name, and
// whether it was found.
func (m *MediaSection) AttributeValue(name string) (string, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SessionDescription is the whole offer/answer body.
type SessionDescription struct {
	OriginUsername string
	SessionID uint64
	SessionVersion uint64
	ConnectionIP string
	Sections []MediaSection
}
