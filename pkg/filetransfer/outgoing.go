package filetransfer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

const outgoingChunkSize = 1024

// xmlPart renders a fully-headered MIME part for a ms-filetransfer+xml
// body, in the same hand-rolled style as pkg/multipart's SDPPart: the
// publishFile INVITE section this package contributes to callmgr's
// multipart/mixed envelope.
func xmlPart(body []byte) string {
	return "Content-Type: application/ms-filetransfer+xml\r\n" +
	"Content-Transfer-Encoding: 7bit\r\n\r\n" +
	string(body)
}

// OutgoingInit begins the upload half of the file-transfer protocol,
//: creates an outgoing hidden data session advertising
// sendonly/mid:1 on its data stream and appends a multipart/mixed
// publishFile INVITE section. The INVITE itself is not emitted here —
// as with any other call, it fires once the data stream reports
// initialized, via callmgr's barrier.
func (m *Manager) OutgoingInit(callID, peerURI, fileName string, fileSize int64) (*callmgr.Call, *Transfer, error) {
	requestID := m.nextOutgoingRequestID()
	fileID := uuid.New().String()
	size := fileSize

	req := Request{
		RequestID: fmt.Sprintf("%d", requestID),
		PublishFile: &PublishFile{
			FileInfo: FileInfo{ID: fileID, Name: fileName, Size: &size},
		},
	}
	body, err := xml.Marshal(req)
	if err != nil {
		return nil, nil, err
	}

	attrs := []sdpmodel.Attribute{{Name: "sendonly"}, {Name: "mid", Value: "1"}}
	call, err := m.calls.InitiateDataCall(callID, peerURI, attrs, xmlPart(body), "multipart/mixed")
	if err != nil {
		return nil, nil, err
	}

	transfer := &Transfer{
		Incoming: false,
		Call: call,
		FileID: fileID,
		FileName: fileName,
		FileSize: fileSize,
		lastRequestID: requestID,
		store: m.store,
	}
	if stream, ok := call.Streams[streamName]; ok {
		stream.SetData(transfer, func(interface{}) {
				transfer.stopSendLoop()
				if transfer.reader != nil {
					_ = transfer.reader.Close()
				}
			})
	}
	transfer.parentReject = m.calls.SetRejectHook(call, func(c *callmgr.Call) { m.onCallRejected(c) })

	return call, transfer, nil
}

// onDownloadFileRequest handles an inbound <request><downloadFile>,
//: acknowledge pending, write the stream-start header, then
// begin the idle write loop.
func (m *Manager) onDownloadFileRequest(call *callmgr.Call, transfer *Transfer, req Request) error {
	resp := Response{RequestID: req.RequestID, Code: CodePending}
	if err := m.sendXML(call, resp); err != nil {
		return err
	}

	transfer.mu.Lock()
	transfer.currentStreamID = req.RequestID
	transfer.mu.Unlock()

	if err := m.writeStream(call, EncodeFrame(FrameStreamStart, []byte(req.RequestID))); err != nil {
		return err
	}

	m.startSendLoop(call, transfer)
	return nil
}

func (m *Manager) writeStream(call *callmgr.Call, data []byte) error {
	stream, ok := call.Streams[streamName]
	if !ok || m.io == nil {
		return nil
	}
	return m.io.WriteStream(stream.BackendHandle, data)
}

// startSendLoop launches the per-transfer write goroutine modeling the
// reference client's g_idle_add-driven sender: it
// reads the local file in 1024-byte chunks and yields back to the
// scheduler (a channel-free select on ctx.Done) between each one,
// rather than blocking the whole process on disk I/O.
func (m *Manager) startSendLoop(call *callmgr.Call, transfer *Transfer) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	transfer.mu.Lock()
	transfer.sendCancel = cancel
	transfer.sendDone = done
	transfer.mu.Unlock()

	go func() {
		defer close(done)
		m.runSendLoop(ctx, call, transfer)
	}()
}

func (m *Manager) runSendLoop(ctx context.Context, call *callmgr.Call, transfer *Transfer) {
	var reader io.ReadCloser
	if transfer.store != nil {
		r, err := transfer.store.OpenOutgoing(transfer.FileID, transfer.FileName)
		if err != nil {
			m.logger.Error("open outgoing file failed", corelog.Err(err))
			return
		}
		reader = r
		defer reader.Close()
	}

	buf := make([]byte, outgoingChunkSize)
	for reader != nil {
		select {
			case <-ctx.Done():
			return
			default:
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if err := m.writeStream(call, EncodeFrame(FrameData, buf[:n])); err != nil {
				m.logger.Error("write data frame failed", corelog.Err(err))
				return
			}
			if m.metrics != nil {
				m.metrics.BytesSent(n)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			m.logger.Error("read outgoing file failed", corelog.Err(readErr))
			return
		}
	}

	transfer.mu.Lock()
	streamID := transfer.currentStreamID
	transfer.mu.Unlock()
	_ = m.writeStream(call, EncodeFrame(FrameStreamEnd, []byte(streamID)))
}

func (t *Transfer) stopSendLoop() {
	t.mu.Lock()
	cancel := t.sendCancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// onNotify handles an inbound <notify><fileTransferProgress>, per the
// closing step of: once the receiver reports the full byte
// range, respond success and deallocate.
func (m *Manager) onNotify(call *callmgr.Call, transfer *Transfer, n Notify) error {
	if n.FileTransferProgress == nil {
		return nil
	}
	if !transfer.matches(n.FileTransferProgress.TransferID) {
		return nil
	}
	if n.FileTransferProgress.BytesReceived.To != transfer.FileSize-1 {
		return nil
	}
	resp := Response{RequestID: n.FileTransferProgress.TransferID, Code: CodeSuccess}
	if err := m.sendXML(call, resp); err != nil {
		return err
	}
	m.deallocate(call, transfer)
	return m.calls.Hangup(call)
}
