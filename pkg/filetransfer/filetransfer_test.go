package filetransfer

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/lyncmedia/mediacore/pkg/streammgr"
	"github.com/stretchr/testify/require"
)

func TestFrameDecoderReentrantHeaderOnly(t *testing.T) {
	var d Decoder

	// Only the 3-byte header arrives first; no frame yet.
	frames := d.Feed([]byte{byte(FrameStreamStart), 0x00, 0x01})
	require.Empty(t, frames)

	// The rest of the payload arrives on the next readable notification.
	frames = d.Feed([]byte("1"))
	require.Len(t, frames, 1)
	require.Equal(t, FrameStreamStart, frames[0].Type)
	require.Equal(t, "1", string(frames[0].Payload))
}

func TestFrameDecoderMultipleFramesInOneFeed(t *testing.T) {
	var d Decoder
	var buf bytes.Buffer
	buf.Write(EncodeFrame(FrameStreamStart, []byte("1")))
	buf.Write(EncodeFrame(FrameData, []byte("hello")))
	buf.Write(EncodeFrame(FrameStreamEnd, []byte("1")))

	frames := d.Feed(buf.Bytes())
	require.Len(t, frames, 3)
	require.Equal(t, FrameStreamStart, frames[0].Type)
	require.Equal(t, FrameData, frames[1].Type)
	require.Equal(t, "hello", string(frames[1].Payload))
	require.Equal(t, FrameStreamEnd, frames[2].Type)
}

func TestRootNameSniffsElement(t *testing.T) {
	name, err := rootName([]byte(`<request requestId="1"/>`))
	require.NoError(t, err)
	require.Equal(t, "request", name)
}

// --- fakes for the integration-shaped tests below ---

type fakeBackend struct{}

func (fakeBackend) CreateStream(callID, name string, mediaType sdpmodel.MediaType) (callmgr.StreamHandle, error) {
	return name, nil
}
func (fakeBackend) SubmitCodecs(callmgr.StreamHandle, []sdpmodel.Codec) error         { return nil }
func (fakeBackend) SubmitCandidates(callmgr.StreamHandle, []sdpmodel.Candidate) error { return nil }
func (fakeBackend) SubmitEncryption(callmgr.StreamHandle, []byte, []byte, int) error  { return nil }
func (fakeBackend) SetHeld(callmgr.StreamHandle, bool) error                         { return nil }
func (fakeBackend) EndStream(callmgr.StreamHandle) error                             { return nil }

type fakeTransport struct {
	responses []int
	byes      int
}

func (f *fakeTransport) SendInvite(call *callmgr.Call, body, contentType string) (callmgr.ClientTransaction, error) {
	return nil, nil
}
func (f *fakeTransport) SendReInvite(call *callmgr.Call, body, contentType string) (callmgr.ClientTransaction, error) {
	return nil, nil
}
func (f *fakeTransport) SendAck(call *callmgr.Call) error { return nil }
func (f *fakeTransport) Respond(call *callmgr.Call, statusCode int, reason string, body, contentType string, headers map[string]string) error {
	f.responses = append(f.responses, statusCode)
	return nil
}
func (f *fakeTransport) SendBye(call *callmgr.Call) error { f.byes++; return nil }

type fakeInfo struct {
	sent []string
}

func (f *fakeInfo) SendInfo(call *callmgr.Call, body, contentType string) error {
	f.sent = append(f.sent, body)
	return nil
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

type fakeStore struct {
	incoming *bytes.Buffer
}

func (f *fakeStore) OpenIncoming(fileID, name string, size int64) (io.WriteCloser, error) {
	f.incoming = &bytes.Buffer{}
	return nopCloser{f.incoming}, nil
}
func (f *fakeStore) OpenOutgoing(fileID, name string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte("hello"))), nil
}

type fakeStreamIO struct {
	written [][]byte
}

func (f *fakeStreamIO) WriteStream(handle callmgr.StreamHandle, data []byte) error {
	f.written = append(f.written, append([]byte{}, data...))
	return nil
}

func newHarness(t *testing.T) (*callmgr.Manager, *Manager, *fakeTransport, *fakeInfo, *fakeStore, *fakeStreamIO) {
	cfg := config.Default()
	streams, err := streammgr.NewManager(cfg, false)
	require.NoError(t, err)
	transport := &fakeTransport{}
	calls := callmgr.NewManager(cfg, "sip:me@example.com", streams, fakeBackend{}, transport, nil, nil)

	info := &fakeInfo{}
	store := &fakeStore{}
	sio := &fakeStreamIO{}
	ft := NewManager(calls, store, sio, info, nil, nil)
	return calls, ft, transport, info, store, sio
}

func samplePublishInvite(requestID, fileID, name string, size int64) (contentType, body string) {
	sdp := "v=0\r\no=- 1 1 IN IP4 203.0.113.9\r\ns=-\r\nc=IN IP4 203.0.113.9\r\nt=0 0\r\nm=data 7000 RTP/AVP 0\r\n"
	xmlBody := fmt.Sprintf(`<request requestId="%s"><publishFile><fileInfo><id>%s</id><name>%s</name><size>%d</size></fileInfo></publishFile></request>`,
		requestID, fileID, name, size)

	const boundary = "----=_NextPart_000_001E_01CB4397.0B5EB570"
	var b bytes.Buffer
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: application/ms-filetransfer+xml\r\n\r\n")
	b.WriteString(xmlBody)
	b.WriteString("\r\n--" + boundary + "\r\n")
	b.WriteString("Content-Type: application/sdp\r\n\r\n")
	b.WriteString(sdp)
	b.WriteString("\r\n--" + boundary + "--\r\n")

	return fmt.Sprintf(`multipart/mixed;boundary="%s"`, boundary), b.String()
}

func TestDetectPublishFileInvite(t *testing.T) {
	ct, body := samplePublishInvite("0", "{GUID}", "a.txt", 5)
	sdpBody, req, ok := DetectPublishFileInvite(ct, body)
	require.True(t, ok)
	require.Contains(t, sdpBody, "m=data")
	require.Equal(t, "0", req.RequestID)
	require.Equal(t, "a.txt", req.PublishFile.FileInfo.Name)
}

func TestDetectPublishFileInviteRejectsPlainSDP(t *testing.T) {
	_, _, ok := DetectPublishFileInvite("application/sdp", "v=0\r\n")
	require.False(t, ok)
}

// TestIncomingTransferHappyPath accepts a publishFile INVITE, observes
// the candidate pair establishing, then feeds a three-frame byte
// stream and confirms the written file content and the final progress
// notify.
func TestIncomingTransferHappyPath(t *testing.T) {
	calls, ft, _, info, store, _ := newHarness(t)

	ct, body := samplePublishInvite("0", "{GUID}", "a.txt", 5)
	sdpBody, req, ok := DetectPublishFileInvite(ct, body)
	require.True(t, ok)

	call, status, transfer, err := ft.OnIncomingInvite("call-1", "sip:peer@example.com", sdpBody, req)
	require.NoError(t, err)
	require.Equal(t, 180, status)
	require.True(t, transfer.Incoming)

	require.NoError(t, calls.OnStreamInitialized(call, "data", "203.0.113.9",
		[]sdpmodel.Candidate{{Foundation: "1", Component: sdpmodel.ComponentRTP, IP: "203.0.113.9", Port: 7000}},
		nil))

	require.NoError(t, ft.OnCandidatePairEstablished(call))
	require.Len(t, info.sent, 2)
	require.Contains(t, info.sent[0], `code="success"`)
	require.Contains(t, info.sent[0], `requestId="0"`)
	require.Contains(t, info.sent[1], `<downloadFile>`)
	require.Contains(t, info.sent[1], `requestId="1"`)

	require.NoError(t, ft.OnDataReadable(call, EncodeFrame(FrameStreamStart, []byte("1"))))
	require.NoError(t, ft.OnDataReadable(call, EncodeFrame(FrameData, []byte("hello"))))
	require.NoError(t, ft.OnDataReadable(call, EncodeFrame(FrameStreamEnd, []byte("1"))))

	require.Equal(t, "hello", store.incoming.String())
	require.Len(t, info.sent, 3)
	require.Contains(t, info.sent[2], "<to>4</to>")

	// The peer's ack to our notify completes the transfer.
	require.NoError(t, ft.OnIncomingInfo(call, `<response requestId="1" code="success"/>`))
}

// TestOutgoingCancelEmitsFailureAndTearsDownDialog has the peer send a
// cancelTransfer request against an in-flight outgoing transfer and
// confirms the failure/requestCancelled response and dialog teardown.
func TestOutgoingCancelEmitsFailureAndTearsDownDialog(t *testing.T) {
	calls, ft, transport, info, _, sio := newHarness(t)

	call, transfer, err := ft.OutgoingInit("call-2", "sip:peer@example.com", "a.txt", 5)
	require.NoError(t, err)
	require.False(t, transfer.Incoming)

	require.NoError(t, calls.OnStreamInitialized(call, "data", "203.0.113.9",
		[]sdpmodel.Candidate{{Foundation: "1", Component: sdpmodel.ComponentRTP, IP: "203.0.113.9", Port: 7000}},
		nil))

	require.NoError(t, ft.OnIncomingInfo(call, `<request requestId="1"><downloadFile><fileInfo><id>{GUID}</id><name>a.txt</name></fileInfo></downloadFile></request>`))
	require.Contains(t, info.sent[len(info.sent)-1], `code="pending"`)
	require.NotEmpty(t, sio.written)
	require.Equal(t, byte(FrameStreamStart), sio.written[0][0])

	require.NoError(t, ft.OnIncomingInfo(call, `<request requestId="2"><cancelTransfer><transferId>1</transferId></cancelTransfer></request>`))

	last := info.sent[len(info.sent)-1]
	require.Contains(t, last, `code="failure"`)
	require.Contains(t, last, `reason="requestCancelled"`)

	// The peer-initiated cancel also tears down the dialog.
	require.Equal(t, 1, transport.byes)
}

// TestOutgoingNotifyCompletionHangsUpDialog feeds the sender-side
// <notify><fileTransferProgress> the receiver emits once it has the
// full byte range, confirming the sender both acknowledges it and
// hangs up the dialog (ft_lync_deallocate unconditionally hangs up
// and sends BYE before freeing the transfer).
func TestOutgoingNotifyCompletionHangsUpDialog(t *testing.T) {
	calls, ft, transport, info, _, sio := newHarness(t)

	call, transfer, err := ft.OutgoingInit("call-3", "sip:peer@example.com", "a.txt", 5)
	require.NoError(t, err)
	require.False(t, transfer.Incoming)

	require.NoError(t, calls.OnStreamInitialized(call, "data", "203.0.113.9",
		[]sdpmodel.Candidate{{Foundation: "1", Component: sdpmodel.ComponentRTP, IP: "203.0.113.9", Port: 7000}},
		nil))

	require.NoError(t, ft.OnIncomingInfo(call, `<request requestId="1"><downloadFile><fileInfo><id>{GUID}</id><name>a.txt</name></fileInfo></downloadFile></request>`))
	require.NotEmpty(t, sio.written)

	require.NoError(t, ft.OnIncomingInfo(call, `<notify notifyId="1"><fileTransferProgress><transferId>1</transferId><bytesReceived><from>0</from><to>4</to></bytesReceived></fileTransferProgress></notify>`))

	last := info.sent[len(info.sent)-1]
	require.Contains(t, last, `code="success"`)
	require.Equal(t, 1, transport.byes, "successful outgoing transfer must hang up the dialog")
}
