package multipart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSDPPartHeadersPrecedeBody(t *testing.T) {
	part := SDPPart("v=0\r\no=- 0 0 IN IP4 0.0.0.0\r\ns=-\r\n")

	require.True(t, strings.HasPrefix(part, "Content-Type: application/sdp\r\n"))
	require.Contains(t, part, "Content-Disposition: session; handling=optional\r\n")
	headerEnd := strings.Index(part, "\r\n\r\n")
	require.Greater(t, headerEnd, 0)
	require.Contains(t, part[headerEnd:], "v=0\r\n")
}

func TestComposeMixedContentType(t *testing.T) {
	extra := "Content-Type: application/ms-filetransfer+xml\r\n\r\n<request/>\r\n"
	_, contentType := ComposeMixed(extra, "v=0\r\n")

	require.Equal(t, `multipart/mixed;boundary="`+Boundary+`"`, contentType)
}

func TestComposeAlternativeContentType(t *testing.T) {
	extra := "Content-Type: application/x-ms-ref-sdp\r\n\r\nv=0\r\n"
	_, contentType := ComposeAlternative(extra, "v=0\r\n")

	require.Equal(t, `multipart/alternative;boundary="`+Boundary+`"`, contentType)
}

func TestComposeMixedBodyOrderingAndTermination(t *testing.T) {
	extra := "Content-Type: application/ms-filetransfer+xml\r\n\r\n<request/>\r\n"
	sdpBody := "v=0\r\no=- 0 0 IN IP4 0.0.0.0\r\ns=-\r\n"
	body, _ := ComposeMixed(extra, sdpBody)

	extraIdx := strings.Index(body, extra)
	sdpIdx := strings.Index(body, "Content-Type: application/sdp")
	require.Greater(t, extraIdx, -1)
	require.Greater(t, sdpIdx, extraIdx)

	boundaryCount := strings.Count(body, "--"+Boundary)
	require.Equal(t, 3, boundaryCount)
	require.True(t, strings.HasSuffix(body, "--"+Boundary+"--\r\n"))
	require.True(t, strings.HasPrefix(body, "--"+Boundary+"\r\n"))
}

func TestComposeSinglePart(t *testing.T) {
	body, contentType := Compose("multipart/mixed", SDPPart("v=0\r\n"))

	require.Contains(t, contentType, Boundary)
	require.Equal(t, 2, strings.Count(body, "--"+Boundary))
}
