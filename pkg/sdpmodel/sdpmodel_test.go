package sdpmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddCodecDedupFirstSeenWins(t *testing.T) {
	var codecs []Codec
	codecs = AddCodec(codecs, Codec{ID: 0, Name: "PCMU", ClockRate: 8000})
	codecs = AddCodec(codecs, Codec{ID: 8, Name: "PCMA", ClockRate: 8000})
	codecs = AddCodec(codecs, Codec{ID: 0, Name: "should-be-dropped", ClockRate: 16000})

	require.Len(t, codecs, 2)
	require.Equal(t, "PCMU", codecs[0].Name)
	require.Equal(t, 0, codecs[0].ID)
	require.Equal(t, "PCMA", codecs[1].Name)
}

func TestSortCandidatesIsIdempotent(t *testing.T) {
	candidates := []Candidate{
		{Foundation: "2", Username: "u", Component: ComponentRTCP},
		{Foundation: "1", Username: "z", Component: ComponentRTP},
		{Foundation: "1", Username: "a", Component: ComponentRTP},
	}

	SortCandidates(candidates)
	first := append([]Candidate{}, candidates...)
	SortCandidates(candidates)

	require.Equal(t, first, candidates)
	require.Equal(t, "1", candidates[0].Foundation)
	require.Equal(t, "a", candidates[0].Username)
}

func TestCandidateEqualityIgnoresTransportDetails(t *testing.T) {
	a := Candidate{Foundation: "1", Username: "u", Component: ComponentRTP, IP: "10.0.0.1", Port: 5000}
	b := Candidate{Foundation: "1", Username: "u", Component: ComponentRTP, IP: "10.0.0.2", Port: 6000}
	require.True(t, a.Equal(b))

	c := Candidate{Foundation: "1", Username: "u", Component: ComponentRTCP}
	require.False(t, a.Equal(c))
}

func TestSerializeParseRoundTrip(t *testing.T) {
	session := &SessionDescription{
		OriginUsername: "-",
		SessionID:      12345,
		SessionVersion: 1,
		ConnectionIP:   "192.0.2.10",
		Sections: []MediaSection{
			{
				Name:         "audio",
				Type:         MediaAudio,
				ConnectionIP: "192.0.2.10",
				Port:         5004,
				Codecs: []Codec{
					{ID: 0, Name: "PCMU", ClockRate: 8000, Type: MediaAudio},
					{ID: 8, Name: "PCMA", ClockRate: 8000, Type: MediaAudio},
				},
				Candidates: []Candidate{
					{Foundation: "1", Component: ComponentRTP, Type: CandidateHost,
						Protocol: ProtoUDP, IP: "192.0.2.10", Port: 5004, Priority: 2130706431,
						Username: "ufrag", Password: "pwd"},
				},
				Attributes: []Attribute{{Name: "sendrecv"}},
			},
		},
	}

	wire, err := Serialize(session)
	require.NoError(t, err)
	require.Contains(t, wire, "m=audio 5004")
	require.Contains(t, wire, "a=rtpmap:0 PCMU/8000")
	require.Contains(t, wire, "a=candidate:1 1 UDP 2130706431 192.0.2.10 5004 typ host")

	parsed, err := Parse(wire)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)

	section := parsed.Sections[0]
	require.Equal(t, 5004, section.Port)
	require.Len(t, section.Codecs, 2)
	require.Equal(t, "PCMU", section.Codecs[0].Name)
	require.Equal(t, "PCMA", section.Codecs[1].Name)
	require.Len(t, section.Candidates, 1)
	require.Equal(t, "192.0.2.10", section.Candidates[0].IP)
	require.Equal(t, CandidateHost, section.Candidates[0].Type)
}

func TestZeroPortSectionStillSerializes(t *testing.T) {
	session := &SessionDescription{
		ConnectionIP: "192.0.2.10",
		Sections: []MediaSection{
			{Name: "audio", Type: MediaAudio, Port: 0},
		},
	}
	wire, err := Serialize(session)
	require.NoError(t, err)
	require.Contains(t, wire, "m=audio 0")
}
