package sdpbridge

import (
	"testing"

	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/stretchr/testify/require"
)

func TestToSdpCandidatesDropsIPv6(t *testing.T) {
	in := []sdpmodel.Candidate{
		{Foundation: "1", IP: "2001:db8::1", Port: 5000, Protocol: sdpmodel.ProtoUDP},
		{Foundation: "2", IP: "192.0.2.1", Port: 5000, Protocol: sdpmodel.ProtoUDP},
	}
	out := ToSdpCandidates(in)
	require.Len(t, out, 1)
	require.Equal(t, "192.0.2.1", out[0].IP)
}

func TestFilterSpuriousUDPSamePortDropsBoth(t *testing.T) {
	in := []sdpmodel.Candidate{
		{Foundation: "1", IP: "192.0.2.1", Port: 5000, Protocol: sdpmodel.ProtoUDP, Type: sdpmodel.CandidateHost},
		{Foundation: "1", IP: "192.0.2.2", Port: 5000, Protocol: sdpmodel.ProtoUDP, Type: sdpmodel.CandidateHost},
		{Foundation: "9", IP: "192.0.2.3", Port: 5001, Protocol: sdpmodel.ProtoUDP, Type: sdpmodel.CandidateHost},
	}
	out := filterSpuriousUDP(in)
	require.Len(t, out, 1)
	require.Equal(t, "9", out[0].Foundation)
}

func TestFilterSpuriousUDPNonHostSharedBasePort(t *testing.T) {
	in := []sdpmodel.Candidate{
		{Foundation: "5", IP: "192.0.2.1", Port: 6000, BasePort: 5000, Protocol: sdpmodel.ProtoUDP, Type: sdpmodel.CandidateServerReflexive},
		{Foundation: "5", IP: "192.0.2.1", Port: 7000, BasePort: 5000, Protocol: sdpmodel.ProtoUDP, Type: sdpmodel.CandidateHost},
	}
	out := filterSpuriousUDP(in)
	require.Empty(t, out)
}

func TestBackfillTCPActivePorts(t *testing.T) {
	in := []sdpmodel.Candidate{
		{Foundation: "1", Type: sdpmodel.CandidateHost, Protocol: sdpmodel.ProtoTCPActive, IP: "192.0.2.1", BaseIP: "192.0.2.1", Port: 0, BasePort: 0},
		{Foundation: "1", Type: sdpmodel.CandidateHost, Protocol: sdpmodel.ProtoTCPPassive, IP: "192.0.2.1", BaseIP: "192.0.2.1", Port: 9000, BasePort: 9000},
	}
	out := backfillTCPActivePorts(in)
	require.Equal(t, 9000, out[0].Port)
	require.Equal(t, 9000, out[0].BasePort)
}

// TestBackfillRelayBasePortFromHost uses a relay whose IP (the relay
// server's own address) differs from the TCP-passive host candidate's
// base-ip, so the lookup must key on base-ip, not ip: a fix that
// looked up by ip (the relay's own address) would never find this
// host candidate and the test would fail.
func TestBackfillRelayBasePortFromHost(t *testing.T) {
	in := []sdpmodel.Candidate{
		{Foundation: "1", Type: sdpmodel.CandidateHost, Protocol: sdpmodel.ProtoTCPPassive, IP: "192.0.2.1", BaseIP: "192.0.2.1", Port: 5000},
		{Foundation: "2", Type: sdpmodel.CandidateRelay, Protocol: sdpmodel.ProtoTCPActive, IP: "203.0.113.5", BaseIP: "192.0.2.1", Port: 0, BasePort: 0},
	}
	out := backfillTCPActivePorts(in)
	require.Equal(t, 5000, out[1].BasePort)
}

func TestSelectStreamAddressPrefersHost(t *testing.T) {
	candidates := []sdpmodel.Candidate{
		{IP: "198.51.100.1", Component: sdpmodel.ComponentRTP, Port: 20000, Type: sdpmodel.CandidateRelay},
		{IP: "198.51.100.1", Component: sdpmodel.ComponentRTCP, Port: 20001, Type: sdpmodel.CandidateRelay},
		{IP: "192.0.2.1", Component: sdpmodel.ComponentRTP, Port: 5000, Type: sdpmodel.CandidateHost},
		{IP: "192.0.2.1", Component: sdpmodel.ComponentRTCP, Port: 5001, Type: sdpmodel.CandidateHost},
	}
	ip, rtp, rtcp, ok := SelectStreamAddress(candidates)
	require.True(t, ok)
	require.Equal(t, "192.0.2.1", ip)
	require.Equal(t, 5000, rtp)
	require.Equal(t, 5001, rtcp)
}

func TestSelectStreamAddressFallsBackToAnyType(t *testing.T) {
	candidates := []sdpmodel.Candidate{
		{IP: "198.51.100.1", Component: sdpmodel.ComponentRTP, Port: 20000, Type: sdpmodel.CandidateRelay},
		{IP: "198.51.100.1", Component: sdpmodel.ComponentRTCP, Port: 20001, Type: sdpmodel.CandidateRelay},
	}
	ip, rtp, rtcp, ok := SelectStreamAddress(candidates)
	require.True(t, ok)
	require.Equal(t, "198.51.100.1", ip)
	require.Equal(t, 20000, rtp)
	require.Equal(t, 20001, rtcp)
}
