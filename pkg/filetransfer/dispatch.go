package filetransfer

import (
	"encoding/xml"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
)

// OnIncomingInfo is the dispatcher's entry point for an INFO body
// already routed to a call carrying an active Transfer. It sniffs the
// XML root element and dispatches to the matching sub-handler based
// on whether the transfer is incoming or outgoing and the root
// element name.
func (m *Manager) OnIncomingInfo(call *callmgr.Call, body string) error {
	transfer, ok := transferOf(call)
	if !ok {
		return coreerr.ErrTransferNotFound
	}

	root, err := rootName([]byte(body))
	if err != nil {
		return coreerr.ErrXMLParse.WithCause(err)
	}

	switch root {
		case "request":
		var req Request
		if err := xml.Unmarshal([]byte(body), &req); err != nil {
			return coreerr.ErrXMLParse.WithCause(err)
		}
		switch {
			case req.CancelTransfer != nil:
			return m.onCancelTransferRequest(call, transfer, req)
			case req.DownloadFile != nil && !transfer.Incoming:
			return m.onDownloadFileRequest(call, transfer, req)
		}
		return nil

		case "response":
		var resp Response
		if err := xml.Unmarshal([]byte(body), &resp); err != nil {
			return coreerr.ErrXMLParse.WithCause(err)
		}
		return m.onResponse(call, transfer, resp)

		case "notify":
		var n Notify
		if err := xml.Unmarshal([]byte(body), &n); err != nil {
			return coreerr.ErrXMLParse.WithCause(err)
		}
		return m.onNotify(call, transfer, n)
	}
	return nil
}

// onResponse handles a <response> against whichever control message
// this transfer is currently waiting on — our progress notify (if we
// are the receiver) or our cancel request — deallocating once it
// matches. A requestId mismatch is silently ignored per the
// correlation rule.
func (m *Manager) onResponse(call *callmgr.Call, transfer *Transfer, resp Response) error {
	if !transfer.matches(resp.RequestID) {
		return nil
	}
	m.deallocate(call, transfer)
	return nil
}
