package sdpmodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// candidateAttrName is the SDP attribute ICE candidates are carried
// under, per RFC 5245 (and reused, informally, by the Draft6
// predecessor this stack also speaks).
const candidateAttrName = "candidate"

// Serialize renders a SessionDescription to wire-format SDP text using
// github.com/pion/sdp/v3 as the line-level codec, the same library
// pkg/media_sdp builder uses.
func Serialize(s *SessionDescription) (string, error) {
	sd := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username: orDefault(s.OriginUsername, "-"),
			SessionID: s.SessionID,
			SessionVersion: s.SessionVersion,
			NetworkType: "IN",
			AddressType: "IP4",
			UnicastAddress: orDefault(s.ConnectionIP, "0.0.0.0"),
		},
		SessionName: "-",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address: &sdp.Address{Address: orDefault(s.ConnectionIP, "0.0.0.0")},
		},
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}

	for _, section := range s.Sections {
		md, err := marshalSection(section)
		if err != nil {
			return "", err
		}
		sd.MediaDescriptions = append(sd.MediaDescriptions, md)
	}

	raw, err := sd.Marshal()
	if err != nil {
		return "", fmt.Errorf("sdpmodel: marshal session: %w", err)
	}
	return string(raw), nil
}

func marshalSection(section MediaSection) (*sdp.MediaDescription, error) {
	formats := make([]string, 0, len(section.Codecs))
	for _, c := range section.Codecs {
		formats = append(formats, strconv.Itoa(c.ID))
	}
	if section.Port == 0 {
		// Declined media still needs at least one format token.
		formats = []string{"0"}
	}

	md := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media: section.Type.String(),
			Port: sdp.RangedPort{Value: section.Port},
			Protos: protosFor(section.Type),
			Formats: formats,
		},
	}

	if section.ConnectionIP != "" {
		md.ConnectionInformation = &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address: &sdp.Address{Address: section.ConnectionIP},
		}
	}

	for _, c := range section.Codecs {
		value := fmt.Sprintf("%d %s/%d", c.ID, c.Name, c.ClockRate)
		md.Attributes = append(md.Attributes, sdp.NewAttribute("rtpmap", value))
		if len(c.Params) > 0 {
			var params []string
			for _, p := range c.Params {
				if p.Value == "" {
					params = append(params, p.Name)
				} else {
					params = append(params, p.Name+"="+p.Value)
				}
			}
			md.Attributes = append(md.Attributes, sdp.NewAttribute("fmtp",
					fmt.Sprintf("%d %s", c.ID, strings.Join(params, ";"))))
		}
	}

	for _, cand := range section.Candidates {
		md.Attributes = append(md.Attributes, sdp.NewAttribute(candidateAttrName, marshalCandidate(cand)))
	}

	if section.EncryptionActive && section.Key != "" {
		md.Attributes = append(md.Attributes, sdp.NewAttribute("crypto-key",
				fmt.Sprintf("%d %s", section.KeyID, section.Key)))
	}

	for _, attr := range section.Attributes {
		if attr.Value == "" {
			md.Attributes = append(md.Attributes, sdp.NewPropertyAttribute(attr.Name))
		} else {
			md.Attributes = append(md.Attributes, sdp.NewAttribute(attr.Name, attr.Value))
		}
	}

	return md, nil
}

func protosFor(t MediaType) []string {
	if t == MediaApplication {
		return []string{"UDP"}
	}
	return []string{"RTP", "AVP"}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// marshalCandidate renders a Candidate in the RFC 5245 candidate-
// attribute grammar:
//
//	foundation component transport priority ip port typ type
func marshalCandidate(c Candidate) string {
	return fmt.Sprintf("%s %d %s %d %s %d typ %s",
		c.Foundation, int(c.Component), transportToken(c.Protocol), c.Priority,
		c.IP, c.Port, c.Type)
}

func transportToken(p Protocol) string {
	switch p {
		case ProtoUDP:
		return "UDP"
		case ProtoTCPActive:
		return "TCP-ACT"
		case ProtoTCPPassive:
		return "TCP-PASS"
		default:
		return "UDP"
	}
}
