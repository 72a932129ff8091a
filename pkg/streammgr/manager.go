package streammgr

import (
	"fmt"

	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// Manager owns the five named port allocators and the SRTP-enablement
// policy, and exposes stream creation.
type Manager struct {
	audio *PortAllocator
	video *PortAllocator
	data *PortAllocator
	appsharing *PortAllocator
	media *PortAllocator

	srtpEnabled bool
}

func NewManager(cfg *config.Config, srtpEnabled bool) (*Manager, error) {
	audio, err := NewPortAllocator(cfg.AudioPortRange())
	if err != nil {
		return nil, err
	}
	// NOTE: VideoPortRange deliberately reuses MaxAudioPort as its
	// upper bound — a copy-paste bug in the original, reproduced
	// verbatim per the Stream Manager open question.
	video, err := NewPortAllocator(cfg.VideoPortRange())
	if err != nil {
		return nil, err
	}
	data, err := NewPortAllocator(cfg.DataPortRange())
	if err != nil {
		return nil, err
	}
	appsharing, err := NewPortAllocator(cfg.AppSharingPortRange())
	if err != nil {
		return nil, err
	}
	media, err := NewPortAllocator(cfg.MediaPortRange())
	if err != nil {
		return nil, err
	}
	return &Manager{
		audio: audio, video: video, data: data, appsharing: appsharing, media: media,
		srtpEnabled: srtpEnabled,
	}, nil
}

// allocatorFor selects the port range by (type, id).
func (m *Manager) allocatorFor(id string, mediaType sdpmodel.MediaType) *PortAllocator {
	switch {
		case id == "audio":
		return m.audio
		case id == "video":
		return m.video
		case id == "data":
		return m.data
		case id == "applicationsharing":
		return m.appsharing
		default:
		return m.media
	}
}

// AddStream selects the appropriate port range, allocates a port, and
// returns a new Stream ready to be handed to the media backend. The
// ICE version and initiator flag are accepted for interface symmetry
// with the original `stream_add(call, id, type, ice_version,
// initiator)` signature; this layer does not itself branch on them —
// the backend capability (out of scope) does.
func (m *Manager) AddStream(id string, mediaType sdpmodel.MediaType, _ sdpmodel.ICEVersion, _ bool) (*Stream, int, error) {
	allocator := m.allocatorFor(id, mediaType)
	port, err := allocator.Allocate()
	if err != nil {
		return nil, 0, fmt.Errorf("streammgr: add stream %q: %w", id, err)
	}

	stream := &Stream{Name: id, Type: mediaType, Port: port}
	if m.srtpEnabled {
		key, err := newSRTPKey()
		if err != nil {
			allocator.Release(port)
			return nil, 0, err
		}
		stream.SRTPKey = key
		stream.SRTPKeyID = 1
	}
	return stream, port, nil
}

// ReleaseStream returns a stream's port to its pool and runs its
// destructor.
func (m *Manager) ReleaseStream(id string, mediaType sdpmodel.MediaType, port int, stream *Stream) {
	m.allocatorFor(id, mediaType).Release(port)
	if stream != nil {
		stream.Close()
	}
}
