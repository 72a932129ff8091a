package streammgr

import (
	"crypto/rand"
	"fmt"

	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// Stream is the per-stream state named in the data model: a media
// type tag, a backend handle, an optional SRTP key, the "remote
// applied" flag, ordered extra attributes, and an opaque user-data
// slot with its own destructor.
type Stream struct {
	Name string
	Type sdpmodel.MediaType
	BackendHandle interface{}

	SRTPKey []byte
	SRTPKeyID int

	RemoteApplied bool
	Held bool

	// Port is the locally allocated RTP port for this stream.
	Port int

	// Initialized, LocalCandidates and LocalCodecs track the backend's
	// readiness signal: once Initialized is true, LocalCandidates and
	// LocalCodecs hold what the offer/answer for this stream should
	// advertise.
	Initialized bool
	ConnectionIP string
	LocalCandidates []sdpmodel.Candidate
	LocalCodecs []sdpmodel.Codec

	attributes []sdpmodel.Attribute

	userData interface{}
	userDataFin func(interface{})
}

// AddExtraAttribute appends a name/value pair without dedup,
// preserving insertion order.
func (s *Stream) AddExtraAttribute(name, value string) {
	s.attributes = append(s.attributes, sdpmodel.Attribute{Name: name, Value: value})
}

func (s *Stream) ExtraAttributes() []sdpmodel.Attribute {
	return s.attributes
}

// SetData replaces any previous opaque payload, running the previous
// destructor first.
func (s *Stream) SetData(data interface{}, fin func(interface{})) {
	if s.userDataFin != nil {
		s.userDataFin(s.userData)
	}
	s.userData = data
	s.userDataFin = fin
}

func (s *Stream) Data() interface{} { return s.userData }

// MarkInitialized records the backend's readiness signal for this
// stream: its connection IP and the candidates/codecs an offer or
// answer should advertise.
func (s *Stream) MarkInitialized(connectionIP string, candidates []sdpmodel.Candidate, codecs []sdpmodel.Codec) {
	s.Initialized = true
	s.ConnectionIP = connectionIP
	s.LocalCandidates = candidates
	s.LocalCodecs = codecs
}

// Close runs the user-data destructor, if any.
func (s *Stream) Close() {
	if s.userDataFin != nil {
		s.userDataFin(s.userData)
		s.userDataFin = nil
		s.userData = nil
	}
}

const srtpKeyLength = 16

func newSRTPKey() ([]byte, error) {
	key := make([]byte, srtpKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("streammgr: generate SRTP key: %w", err)
	}
	return key, nil
}
