package filetransfer

import (
	"encoding/xml"
	"fmt"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
)

// OnCandidatePairEstablished begins the download flow, step 1, once
// the data stream's ICE candidate pair is up. It is the backend-level
// event this core's candidate_pair_established_cb names; wiring it to
// the concrete MediaBackend's own readiness signal is left to the
// caller, same as OnStreamInitialized's barrier for ordinary calls.
func (m *Manager) OnCandidatePairEstablished(call *callmgr.Call) error {
	transfer, ok := transferOf(call)
	if !ok || !transfer.Incoming {
		return nil
	}

	transfer.mu.Lock()
	ackID := transfer.lastRequestID
	downloadID := transfer.nextRequestID()
	transfer.mu.Unlock()

	ack := Response{RequestID: fmt.Sprintf("%d", ackID), Code: CodeSuccess}
	if err := m.sendXML(call, ack); err != nil {
		return err
	}

	download := Request{
		RequestID: fmt.Sprintf("%d", downloadID),
		DownloadFile: &DownloadFile{
			FileInfo: FileInfo{ID: transfer.FileID, Name: transfer.FileName},
		},
	}
	return m.sendXML(call, download)
}

// OnDataReadable feeds newly arrived bytes off the data stream through
// the transfer's frame decoder, step 2. It is re-entrant:
// called again with more bytes whenever the backend reports more data
// is readable, picking up exactly where the previous call left off.
func (m *Manager) OnDataReadable(call *callmgr.Call, data []byte) error {
	transfer, ok := transferOf(call)
	if !ok {
		return coreerr.ErrTransferNotFound
	}

	transfer.mu.Lock()
	frames := transfer.decoder.Feed(data)
	cancelled := transfer.cancelled
	transfer.mu.Unlock()

	for _, frame := range frames {
		if cancelled {
			// Local cancel: keep draining bytes but discard them.
			continue
		}
		if err := m.handleFrame(call, transfer, frame); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) handleFrame(call *callmgr.Call, transfer *Transfer, frame Frame) error {
	switch frame.Type {
		case FrameStreamStart:
		transfer.mu.Lock()
		transfer.currentStreamID = string(frame.Payload)
		transfer.bytesReceived = 0
		transfer.mu.Unlock()

		if transfer.store != nil {
			w, err := transfer.store.OpenIncoming(transfer.FileID, transfer.FileName, transfer.FileSize)
			if err != nil {
				return err
			}
			transfer.mu.Lock()
			transfer.writer = w
			transfer.mu.Unlock()
		}
		return nil

		case FrameData:
		transfer.mu.Lock()
		w := transfer.writer
		transfer.mu.Unlock()
		if w != nil {
			if _, err := w.Write(frame.Payload); err != nil {
				return err
			}
		}
		transfer.mu.Lock()
		transfer.bytesReceived += int64(len(frame.Payload))
		received := transfer.bytesReceived
		transfer.mu.Unlock()
		if m.metrics != nil {
			m.metrics.BytesReceived(len(frame.Payload))
		}
		if received >= transfer.FileSize {
			return m.emitProgressNotify(call, transfer)
		}
		return nil

		case FrameStreamEnd:
		transfer.mu.Lock()
		w := transfer.writer
		transfer.writer = nil
		transfer.mu.Unlock()
		if w != nil {
			_ = w.Close()
		}
		return nil

		default:
		return coreerr.ErrFramingViolation.WithField("type", int(frame.Type))
	}
}

// emitProgressNotify sends the fileTransferProgress notify once the
// full byte count has arrived, step 3. The transfer struct
// is kept alive: final cleanup happens when the peer's own
// <response code="success"> for this notify arrives, via OnIncomingInfo.
func (m *Manager) emitProgressNotify(call *callmgr.Call, transfer *Transfer) error {
	transfer.mu.Lock()
	transferID := transfer.lastRequestID
	size := transfer.FileSize
	transfer.mu.Unlock()

	notify := Notify{
		NotifyID: randomNotifyID(),
		FileTransferProgress: &FileTransferProgress{
			TransferID: fmt.Sprintf("%d", transferID),
			BytesReceived: BytesReceived{From: 0, To: size - 1},
		},
	}
	return m.sendXML(call, notify)
}

func (m *Manager) sendXML(call *callmgr.Call, v interface{}) error {
	body, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	if m.info == nil {
		return nil
	}
	return sendErr(m.info.SendInfo(call, string(body), "application/ms-filetransfer+xml"))
}
