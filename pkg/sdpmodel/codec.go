package sdpmodel

// staticPayloadTypes is the RFC 3551 static payload-type table. Only
// the handful of codecs this vendor stack actually offers are named;
// the rest fall back to dynamic negotiation via rtpmap.
var staticPayloadTypes = map[int]Codec{
	0: {ID: 0, Name: "PCMU", ClockRate: 8000, Type: MediaAudio},
	3: {ID: 3, Name: "GSM", ClockRate: 8000, Type: MediaAudio},
	4: {ID: 4, Name: "G723", ClockRate: 8000, Type: MediaAudio},
	8: {ID: 8, Name: "PCMA", ClockRate: 8000, Type: MediaAudio},
	9: {ID: 9, Name: "G722", ClockRate: 8000, Type: MediaAudio},
	18: {ID: 18, Name: "G729", ClockRate: 8000, Type: MediaAudio},
}

// StaticCodec returns the well-known codec for a static payload type,
// and whether one is defined.
func StaticCodec(payloadType int) (Codec, bool) {
	c, ok := staticPayloadTypes[payloadType]
	return c, ok
}

// codecName looks up the display name used when building rtpmap
// attributes for statically-typed codecs.
func codecName(payloadType int) string {
	if c, ok := staticPayloadTypes[payloadType]; ok {
		return c.Name
	}
	return "unknown"
}
