package sdpmodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// Parse turns wire-format SDP text back into a SessionDescription.
func Parse(text string) (*SessionDescription, error) {
	sd := &sdp.SessionDescription{}
	if err := sd.Unmarshal([]byte(text)); err != nil {
		return nil, fmt.Errorf("sdpmodel: unmarshal session: %w", err)
	}

	out := &SessionDescription{
		OriginUsername: sd.Origin.Username,
		SessionID: sd.Origin.SessionID,
		SessionVersion: sd.Origin.SessionVersion,
	}
	if sd.ConnectionInformation != nil && sd.ConnectionInformation.Address != nil {
		out.ConnectionIP = sd.ConnectionInformation.Address.Address
	}

	for _, md := range sd.MediaDescriptions {
		section, err := parseSection(md, out.ConnectionIP)
		if err != nil {
			return nil, err
		}
		out.Sections = append(out.Sections, section)
	}
	return out, nil
}

func parseSection(md *sdp.MediaDescription, sessionIP string) (MediaSection, error) {
	section := MediaSection{
		Name: md.MediaName.Media,
		Type: parseMediaType(md.MediaName.Media),
		Port: md.MediaName.Port.Value,
		ConnectionIP: sessionIP,
	}
	if md.ConnectionInformation != nil && md.ConnectionInformation.Address != nil {
		section.ConnectionIP = md.ConnectionInformation.Address.Address
	}

	rtpmaps := map[int]Codec{}
	fmtps := map[int][]CodecParam{}

	for _, attr := range md.Attributes {
		switch attr.Key {
			case "rtpmap":
			id, codec, err := parseRtpmap(attr.Value)
			if err != nil {
				return MediaSection{}, err
			}
			codec.Type = section.Type
			rtpmaps[id] = codec
			case "fmtp":
			id, params, err := parseFmtp(attr.Value)
			if err != nil {
				return MediaSection{}, err
			}
			fmtps[id] = params
			case candidateAttrName:
			c, err := parseCandidate(attr.Value)
			if err != nil {
				return MediaSection{}, err
			}
			section.Candidates = append(section.Candidates, c)
			case "crypto-key":
			id, key, err := parseCryptoKey(attr.Value)
			if err == nil {
				section.EncryptionActive = true
				section.KeyID = id
				section.Key = key
			}
			default:
			section.Attributes = append(section.Attributes, Attribute{Name: attr.Key, Value: attr.Value})
		}
	}

	for _, format := range md.MediaName.Formats {
		id, err := strconv.Atoi(format)
		if err != nil {
			continue
		}
		codec, ok := rtpmaps[id]
		if !ok {
			codec, ok = StaticCodec(id)
			if !ok {
				continue
			}
		}
		codec.ID = id
		codec.Params = fmtps[id]
		section.Codecs = AddCodec(section.Codecs, codec)
	}

	return section, nil
}

func parseMediaType(media string) MediaType {
	switch media {
		case "audio":
		return MediaAudio
		case "video":
		return MediaVideo
		default:
		return MediaApplication
	}
}

func parseRtpmap(value string) (int, Codec, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return 0, Codec{}, fmt.Errorf("sdpmodel: malformed rtpmap %q", value)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, Codec{}, fmt.Errorf("sdpmodel: malformed rtpmap payload type %q", fields[0])
	}
	nameRate := strings.SplitN(fields[1], "/", 2)
	codec := Codec{ID: id, Name: nameRate[0]}
	if len(nameRate) == 2 {
		rate, err := strconv.Atoi(strings.SplitN(nameRate[1], "/", 2)[0])
		if err == nil {
			codec.ClockRate = rate
		}
	}
	return id, codec, nil
}

func parseFmtp(value string) (int, []CodecParam, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return 0, nil, fmt.Errorf("sdpmodel: malformed fmtp %q", value)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, nil, fmt.Errorf("sdpmodel: malformed fmtp payload type %q", fields[0])
	}
	var params []CodecParam
	for _, kv := range strings.Split(fields[1], ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			params = append(params, CodecParam{Name: parts[0], Value: parts[1]})
		} else {
			params = append(params, CodecParam{Name: parts[0]})
		}
	}
	return id, params, nil
}

// parseCandidate parses the RFC 5245 candidate-attribute grammar this
// core emits: "foundation component transport priority ip port typ type".
func parseCandidate(value string) (Candidate, error) {
	fields := strings.Fields(value)
	if len(fields) < 8 {
		return Candidate{}, fmt.Errorf("sdpmodel: malformed candidate %q", value)
	}
	component, err := strconv.Atoi(fields[1])
	if err != nil {
		return Candidate{}, fmt.Errorf("sdpmodel: malformed candidate component %q", fields[1])
	}
	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Candidate{}, fmt.Errorf("sdpmodel: malformed candidate priority %q", fields[3])
	}
	port, err := strconv.Atoi(fields[5])
	if err != nil {
		return Candidate{}, fmt.Errorf("sdpmodel: malformed candidate port %q", fields[5])
	}

	c := Candidate{
		Foundation: fields[0],
		Component: Component(component),
		Protocol: parseTransportToken(fields[2]),
		Priority: uint32(priority),
		IP: fields[4],
		Port: port,
	}
	if fields[6] == "typ" {
		c.Type = parseCandidateType(fields[7])
	}
	return c, nil
}

func parseTransportToken(tok string) Protocol {
	switch strings.ToUpper(tok) {
		case "TCP-ACT":
		return ProtoTCPActive
		case "TCP-PASS":
		return ProtoTCPPassive
		default:
		return ProtoUDP
	}
}

func parseCandidateType(tok string) CandidateType {
	switch tok {
		case "host":
		return CandidateHost
		case "srflx":
		return CandidateServerReflexive
		case "prflx":
		return CandidatePeerReflexive
		case "relay":
		return CandidateRelay
		default:
		return CandidateAny
	}
}

func parseCryptoKey(value string) (int, string, error) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("sdpmodel: malformed crypto-key %q", value)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("sdpmodel: malformed crypto-key id %q", fields[0])
	}
	return id, fields[1], nil
}
