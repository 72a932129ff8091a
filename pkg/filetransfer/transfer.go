package filetransfer

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/coremetrics"
)

// streamName is the single stream name the file-transfer protocol
// ever attaches to, its data-model note that the owning call's
// "data" stream always carries the transfer as its opaque user-data.
const streamName = "data"

// FileStore is the narrow capability this package depends on for
// local file content, deliberately out of scope: something
// else owns where bytes actually land or come from on disk.
type FileStore interface {
	// OpenIncoming prepares local storage for an inbound transfer of
	// size bytes and returns a writer for the payload as it arrives.
	OpenIncoming(fileID, name string, size int64) (io.WriteCloser, error)
	// OpenOutgoing opens the local file backing an outgoing transfer
	// for sequential reading.
	OpenOutgoing(fileID, name string) (io.ReadCloser, error)
}

// StreamIO is the narrow capability for writing raw bytes onto an
// already-negotiated data stream — distinct from callmgr.MediaBackend,
// which only ever shuttles RTP-shaped codecs/candidates/keys and has
// no notion of arbitrary byte payloads.
type StreamIO interface {
	WriteStream(handle callmgr.StreamHandle, data []byte) error
}

// InfoTransport is the narrow SIP capability this package needs: send
// an INFO request with a body and content type within an established
// dialog. Responses to control-plane messages are correlated through
// requestId in the XML body, not at the SIP transaction
// layer, so SendInfo is fire-and-forget from this package's point of
// view — same posture as callmgr.SipTransport.SendAck.
type InfoTransport interface {
	SendInfo(call *callmgr.Call, body, contentType string) error
}

// Transfer is the per-transfer state: file
// identity, the last requestId used, the owning call, cancellation,
// and the binary-framing decode state needed across reentrant reads.
type Transfer struct {
	mu sync.Mutex

	Incoming bool
	Call *callmgr.Call

	FileID string
	FileName string
	FileSize int64

	lastRequestID int
	cancelled bool

	decoder Decoder
	currentStreamID string
	bytesReceived int64

	store FileStore
	writer io.WriteCloser
	reader io.ReadCloser

	// outgoing send-loop plumbing.
	sendCancel context.CancelFunc
	sendDone chan struct{}

	// parentReject is whatever reject hook was already installed on
	// the call before this transfer attached its own, chained so
	// both still run.
	parentReject func(*callmgr.Call)
}

func (t *Transfer) nextRequestID() int {
	t.lastRequestID++
	return t.lastRequestID
}

// matches reports whether an inbound requestId/transferId string
// equals the transfer's current expectation, its silent-
// ignore-on-mismatch correlation rule.
func (t *Transfer) matches(requestID string) bool {
	n, err := strconv.Atoi(requestID)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return n == t.lastRequestID
}

// Manager coordinates every in-flight Transfer, wiring the ms-
// filetransfer control plane (XML over INFO) to the binary data plane
// (framed bytes over the negotiated "data" stream) and to calls
// created through callmgr.Manager.
type Manager struct {
	calls *callmgr.Manager
	store FileStore
	io StreamIO
	info InfoTransport

	logger corelog.Logger
	metrics *coremetrics.Collector

	outgoingSeq uint64
}

// NewManager builds a file-transfer Manager. logger and metrics may
// be nil, matching every other component's nil-safe posture.
func NewManager(calls *callmgr.Manager, store FileStore, streamIO StreamIO, info InfoTransport, logger corelog.Logger, metrics *coremetrics.Collector) *Manager {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	return &Manager{
		calls: calls,
		store: store,
		io: streamIO,
		info: info,
		logger: logger.WithComponent("filetransfer"),
		metrics: metrics,
	}
}

// nextOutgoingRequestID is the per-account monotonically increasing
// counter assigns each outgoing publishFile, guarded with
// sync/atomic its "accessed only from the event loop but still a
// shared counter" posture.
func (m *Manager) nextOutgoingRequestID() int {
	return int(atomic.AddUint64(&m.outgoingSeq, 1))
}

func transferOf(call *callmgr.Call) (*Transfer, bool) {
	stream, ok := call.Streams[streamName]
	if !ok {
		return nil, false
	}
	t, ok := stream.Data().(*Transfer)
	return t, ok
}

// randomNotifyID mirrors the reference client's weak PRNG for
// protocol-identifier (not security-sensitive) notifyId values, per
// the note on rand.
func randomNotifyID() string {
	return fmt.Sprintf("%d", rand.Int31())
}

func sendErr(err error) error {
	if err == nil {
		return nil
	}
	return coreerr.ErrTransportFailure.WithCause(err)
}
