// Package multipart assembles the multipart/mixed INVITE envelopes
// this core needs. It writes parts by hand rather than through the
// stdlib mime/multipart.Writer: that writer always generates its own
// random boundary and gives the caller no way to pin the exact legacy
// boundary token the wire format requires byte-for-byte, so matching
// the vendor's literal boundary means composing the envelope directly.
package multipart

import (
	"fmt"
	"strings"
)

// Boundary is the fixed legacy boundary token this stack has always
// used for its multipart INVITE envelopes.
const Boundary = "----=_NextPart_000_001E_01CB4397.0B5EB570"

// SDPPart renders the application/sdp part used by both the Call
// Manager's proxy-fallback alternative section and the file-transfer
// INVITE: its own headers followed by a blank line and the SDP body.
func SDPPart(sdpBody string) string {
	var b strings.Builder
	b.WriteString("Content-Type: application/sdp\r\n")
	b.WriteString("Content-Transfer-Encoding: 7bit\r\n")
	b.WriteString("Content-Disposition: session; handling=optional\r\n")
	b.WriteString("\r\n")
	b.WriteString(sdpBody)
	return b.String()
}

// Compose assembles a multipart envelope of the given envelope type
// (multipart/mixed, multipart/alternative) from a sequence of
// fully-formatted MIME parts (each already its own headers, blank
// line, and body — see SDPPart). The caller-supplied "extra" section
// for the Call Manager's proxy fallback and the file-transfer
// publishFile INVITE arrive this way: as a complete part the caller
// already rendered. Returns the full body and the Content-Type header
// value the caller must set on the outer message.
func Compose(envelopeType string, parts...string) (body string, contentType string) {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("--")
		b.WriteString(Boundary)
		b.WriteString("\r\n")
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	b.WriteString("--")
	b.WriteString(Boundary)
	b.WriteString("--\r\n")

	contentType = fmt.Sprintf(`%s;boundary="%s"`, envelopeType, Boundary)
	return b.String(), contentType
}

// ComposeMixed builds a multipart/mixed envelope containing extra
// (a caller-rendered full MIME part) followed by the SDP part.
func ComposeMixed(extra string, sdpBody string) (body string, contentType string) {
	return Compose("multipart/mixed", extra, SDPPart(sdpBody))
}

// ComposeAlternative is identical to ComposeMixed but for the
// multipart/alternative envelope the proxy-fallback INVITE section
// uses.
func ComposeAlternative(extra string, sdpBody string) (body string, contentType string) {
	return Compose("multipart/alternative", extra, SDPPart(sdpBody))
}
