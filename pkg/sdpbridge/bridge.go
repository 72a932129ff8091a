// Package sdpbridge converts backend candidate/codec objects to and
// from the sdpmodel representation, applying the Lync-specific
// workarounds the original sipe-media.c accumulated: dropping IPv6
// candidates, dropping mis-tagged spurious-UDP candidate pairs, and
// back-filling zero ports on TCP-active candidates from their
// TCP-passive peer.
package sdpbridge

import (
	"strings"

	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// BackendCandidate is what the MediaBackend capability hands us per candidate. It is intentionally a
// plain struct rather than an interface: the bridge only reshapes
// data, it never calls back into the backend.
type BackendCandidate = sdpmodel.Candidate

// ToSdpCandidates converts backend candidates into the sorted,
// workaround-applied candidate list the SDP model expects.
func ToSdpCandidates(in []BackendCandidate) []sdpmodel.Candidate {
	filtered := dropIPv6(in)
	filtered = filterSpuriousUDP(filtered)
	filtered = backfillTCPActivePorts(filtered)
	sdpmodel.SortCandidates(filtered)
	return filtered
}

func isIPv6(ip string) bool {
	return strings.Contains(ip, ":")
}

// dropIPv6 removes any candidate whose IP or base-IP is IPv6.
func dropIPv6(in []sdpmodel.Candidate) []sdpmodel.Candidate {
	out := make([]sdpmodel.Candidate, 0, len(in))
	for _, c := range in {
		if isIPv6(c.IP) || isIPv6(c.BaseIP) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// filterSpuriousUDP drops pairs of UDP candidates sharing a
// foundation when either their ports are equal, or at least one is
// non-host and their base ports are equal. These are mis-tagged TCP
// candidates surfaced by older stacks.
func filterSpuriousUDP(in []sdpmodel.Candidate) []sdpmodel.Candidate {
	drop := make(map[int]bool)
	for i := 0; i < len(in); i++ {
		if in[i].Protocol != sdpmodel.ProtoUDP {
			continue
		}
		for j := i + 1; j < len(in); j++ {
			if in[j].Protocol != sdpmodel.ProtoUDP {
				continue
			}
			if in[i].Foundation != in[j].Foundation {
				continue
			}
			samePort := in[i].Port == in[j].Port
			nonHost := in[i].Type != sdpmodel.CandidateHost || in[j].Type != sdpmodel.CandidateHost
			sameBasePort := in[i].BasePort == in[j].BasePort
			if samePort || (nonHost && sameBasePort) {
				drop[i] = true
				drop[j] = true
			}
		}
	}

	out := make([]sdpmodel.Candidate, 0, len(in))
	for i, c := range in {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

// backfillTCPActivePorts fills zero ports/base-ports on TCP-active
// candidates from a matching TCP-passive peer (same type, ip, base-ip).
// Relay candidates with a zero base-port instead look up the base-port
// from a TCP-passive host candidate's base-ip -> port map.
func backfillTCPActivePorts(in []sdpmodel.Candidate) []sdpmodel.Candidate {
	hostPortByBaseIP := make(map[string]int)
	for _, c := range in {
		if c.Protocol == sdpmodel.ProtoTCPPassive && c.Type == sdpmodel.CandidateHost {
			hostPortByBaseIP[c.BaseIP] = c.Port
		}
	}

	out := make([]sdpmodel.Candidate, len(in))
	copy(out, in)

	for i := range out {
		if out[i].Protocol != sdpmodel.ProtoTCPActive {
			continue
		}
		for _, peer := range in {
			if peer.Protocol != sdpmodel.ProtoTCPPassive {
				continue
			}
			if peer.Type != out[i].Type || peer.IP != out[i].IP || peer.BaseIP != out[i].BaseIP {
				continue
			}
			if out[i].Port == 0 {
				out[i].Port = peer.Port
			}
			if out[i].BasePort == 0 {
				out[i].BasePort = peer.BasePort
			}
			break
		}
		if out[i].Type == sdpmodel.CandidateRelay && out[i].BasePort == 0 {
			if port, ok := hostPortByBaseIP[out[i].BaseIP]; ok {
				out[i].BasePort = port
			}
		}
	}
	return out
}

// SelectStreamAddress scans candidates for the first (ip, rtpPort,
// rtcpPort) triple where ip is consistent across both components. It
// tries HOST-only candidates first, falling back to any type.
func SelectStreamAddress(candidates []sdpmodel.Candidate) (ip string, rtpPort, rtcpPort int, ok bool) {
	if ip, rtp, rtcp, ok := selectByType(candidates, true); ok {
		return ip, rtp, rtcp, true
	}
	return selectByType(candidates, false)
}

func selectByType(candidates []sdpmodel.Candidate, hostOnly bool) (string, int, int, bool) {
	byIP := make(map[string]map[sdpmodel.Component]int)
	order := make([]string, 0)
	for _, c := range candidates {
		if hostOnly && c.Type != sdpmodel.CandidateHost {
			continue
		}
		if byIP[c.IP] == nil {
			byIP[c.IP] = make(map[sdpmodel.Component]int)
			order = append(order, c.IP)
		}
		byIP[c.IP][c.Component] = c.Port
	}
	for _, ip := range order {
		ports := byIP[ip]
		rtp, hasRTP := ports[sdpmodel.ComponentRTP]
		if !hasRTP {
			continue
		}
		rtcp := ports[sdpmodel.ComponentRTCP]
		return ip, rtp, rtcp, true
	}
	return "", 0, 0, false
}
