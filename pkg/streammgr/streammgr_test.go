package streammgr

import (
	"testing"

	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestPortAllocatorRoundRobinWithWraparound(t *testing.T) {
	alloc, err := NewPortAllocator(config.PortRange{Min: 5000, Max: 5001})
	require.NoError(t, err)

	p1, err := alloc.Allocate()
	require.NoError(t, err)
	p2, err := alloc.Allocate()
	require.NoError(t, err)
	require.ElementsMatch(t, []int{5000, 5001}, []int{p1, p2})

	_, err = alloc.Allocate()
	require.Error(t, err)

	alloc.Release(p1)
	p3, err := alloc.Allocate()
	require.NoError(t, err)
	require.Equal(t, p1, p3)
}

func TestVideoPortRangeReusesMaxAudioPort(t *testing.T) {
	cfg := config.Default()
	cfg.MinVideoPort = 51000
	cfg.MinAudioPort = 50000
	cfg.MaxAudioPort = 50099

	rng := cfg.VideoPortRange()
	require.Equal(t, 51000, rng.Min)
	require.Equal(t, 50099, rng.Max)
}

func TestAddStreamAllocatesFromCorrectRange(t *testing.T) {
	cfg := config.Default()
	mgr, err := NewManager(cfg, true)
	require.NoError(t, err)

	stream, port, err := mgr.AddStream("audio", sdpmodel.MediaAudio, sdpmodel.Rfc5245, true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, port, cfg.MinAudioPort)
	require.LessOrEqual(t, port, cfg.MaxAudioPort)
	require.Len(t, stream.SRTPKey, srtpKeyLength)
	require.Equal(t, 1, stream.SRTPKeyID)
}

func TestAddStreamWithoutSRTPHasNoKey(t *testing.T) {
	cfg := config.Default()
	mgr, err := NewManager(cfg, false)
	require.NoError(t, err)

	stream, _, err := mgr.AddStream("audio", sdpmodel.MediaAudio, sdpmodel.Rfc5245, true)
	require.NoError(t, err)
	require.Nil(t, stream.SRTPKey)
}

func TestExtraAttributesPreserveInsertionOrderAndDuplicates(t *testing.T) {
	s := &Stream{Name: "data"}
	s.AddExtraAttribute("sendonly", "")
	s.AddExtraAttribute("mid", "1")
	s.AddExtraAttribute("mid", "1")

	attrs := s.ExtraAttributes()
	require.Len(t, attrs, 3)
	require.Equal(t, "sendonly", attrs[0].Name)
	require.Equal(t, "mid", attrs[1].Name)
	require.Equal(t, "mid", attrs[2].Name)
}

func TestMarkInitializedRecordsBackendState(t *testing.T) {
	s := &Stream{Name: "audio"}
	codecs := []sdpmodel.Codec{{ID: 0, Name: "PCMU", ClockRate: 8000}}
	candidates := []sdpmodel.Candidate{{Foundation: "1", Component: sdpmodel.ComponentRTP}}
	s.MarkInitialized("10.0.0.1", candidates, codecs)

	require.True(t, s.Initialized)
	require.Equal(t, "10.0.0.1", s.ConnectionIP)
	require.Len(t, s.LocalCodecs, 1)
	require.Len(t, s.LocalCandidates, 1)
}

func TestSetDataRunsPreviousDestructor(t *testing.T) {
	s := &Stream{Name: "data"}
	var freedValue interface{}
	s.SetData("first", func(v interface{}) { freedValue = v })
	s.SetData("second", nil)

	require.Equal(t, "first", freedValue)
	require.Equal(t, "second", s.Data())
}

// TestBackendHandleCarriesArbitraryBackendState confirms the opaque
// BackendHandle slot can hold whatever a concrete MediaBackend hands
// back, down to a real rtp.Packet, without this package needing to
// know its shape.
func TestBackendHandleCarriesArbitraryBackendState(t *testing.T) {
	s := &Stream{Name: "audio"}
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    0,
			SequenceNumber: 1,
			Timestamp:      160,
			SSRC:           0xdeadbeef,
		},
		Payload: []byte{0xff, 0x00, 0xab},
	}
	s.BackendHandle = pkt

	got, ok := s.BackendHandle.(*rtp.Packet)
	require.True(t, ok)
	require.Equal(t, uint32(0xdeadbeef), got.SSRC)
	require.Equal(t, uint16(1), got.SequenceNumber)
}
