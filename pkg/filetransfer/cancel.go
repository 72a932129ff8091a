package filetransfer

import (
	"fmt"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
)

// CancelLocal is the receiver-side local cancel of: emit a
// cancelTransfer request against the transfer's current requestId and
// wait for its response to deallocate. A transfer already cancelled
// (locally or by the peer) emits nothing a second time.
func (m *Manager) CancelLocal(call *callmgr.Call) error {
	transfer, ok := transferOf(call)
	if !ok {
		return nil
	}

	transfer.mu.Lock()
	if transfer.cancelled {
		transfer.mu.Unlock()
		return nil
	}
	transferID := transfer.lastRequestID
	transfer.cancelled = true
	newID := transfer.nextRequestID()
	transfer.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TransferCancelled("local")
	}

	req := Request{
		RequestID: fmt.Sprintf("%d", newID),
		CancelTransfer: &CancelTransfer{
			TransferID: fmt.Sprintf("%d", transferID),
			FileInfo: &FileInfo{ID: transfer.FileID, Name: transfer.FileName},
		},
	}
	return m.sendXML(call, req)
}

// onCancelTransferRequest handles an inbound <request><cancelTransfer>
// — the peer telling us to stop, per scenario 5 of: reply failure
// with reason requestCancelled, stop any in-flight send loop, free the
// transfer and tear the dialog down.
func (m *Manager) onCancelTransferRequest(call *callmgr.Call, transfer *Transfer, req Request) error {
	transfer.mu.Lock()
	already := transfer.cancelled
	transfer.cancelled = true
	transfer.mu.Unlock()

	resp := Response{RequestID: req.RequestID, Code: CodeFailure, Reason: ReasonRequestCancelled}
	if err := m.sendXML(call, resp); err != nil {
		return err
	}

	if !already && m.metrics != nil {
		m.metrics.TransferCancelled("remote")
	}
	m.deallocate(call, transfer)
	return m.calls.Hangup(call)
}

// deallocate releases whatever local resources the transfer holds
// (its file handle, its send loop) by clearing the data stream's
// opaque user-data, which runs the destructor installed at transfer
// creation — the reimplemented free-by-value operation from the
// design notes rather than a call_private_equals-style predicate
// search.
func (m *Manager) deallocate(call *callmgr.Call, transfer *Transfer) {
	if stream, ok := call.Streams[streamName]; ok {
		stream.SetData(nil, nil)
	}
}
