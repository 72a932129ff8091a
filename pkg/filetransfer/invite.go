package filetransfer

import (
	"bytes"
	"encoding/xml"
	"io"
	"mime"
	"mime/multipart"
	"strconv"

	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
)

// part is one decoded MIME body part: its own Content-Type and raw
// body, stripped of the envelope's boundary markers.
type part struct {
	contentType string
	body string
}

// splitParts decodes a multipart body using the standard library's
// mime/multipart reader — the same facility transport
// layer uses for any multipart SIP body — given the outer message's
// Content-Type header value.
func splitParts(contentType, body string) ([]part, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	if mediaType != "multipart/mixed" && mediaType != "multipart/alternative" {
		return nil, coreerr.ErrXMLParse.WithField("reason", "not multipart")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, coreerr.ErrXMLParse.WithField("reason", "missing boundary")
	}

	reader := multipart.NewReader(bytes.NewReader([]byte(body)), boundary)
	var parts []part
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{contentType: p.Header.Get("Content-Type"), body: string(raw)})
	}
	return parts, nil
}

// DetectPublishFileInvite inspects an inbound INVITE's Content-Type
// and body and reports whether it carries a file-transfer publishFile
// offer: a multipart/mixed (or multipart/alternative) body containing an
// application/ms-filetransfer+xml publishFile routes here, everything
// else routes straight to callmgr. A false return means the
// dispatcher should route the INVITE to callmgr directly; it is not
// an error for an ordinary audio/video INVITE to fail this check.
func DetectPublishFileInvite(contentType, body string) (sdpBody string, req Request, ok bool) {
	parts, err := splitParts(contentType, body)
	if err != nil {
		return "", Request{}, false
	}

	var xmlPart, sdpPart *part
	for i := range parts {
		mt, _, _ := mime.ParseMediaType(parts[i].contentType)
		switch mt {
			case "application/ms-filetransfer+xml":
			xmlPart = &parts[i]
			case "application/sdp":
			sdpPart = &parts[i]
		}
	}
	if xmlPart == nil || sdpPart == nil {
		return "", Request{}, false
	}

	var r Request
	if err := xml.Unmarshal([]byte(xmlPart.body), &r); err != nil || r.PublishFile == nil {
		return "", Request{}, false
	}
	return sdpPart.body, r, true
}

// OnIncomingInvite is the dispatcher's entry point for an INVITE
// already identified (via DetectPublishFileInvite) as a file-transfer
// offer.
// It hands the staged SDP to callmgr to create a hidden data session,
// attaches a new incoming Transfer to the "data" stream, and — since a
// file-transfer data session is never presented to a user for
// accept/decline — immediately marks it accepted so the 200 OK fires
// as soon as the stream initializes.
func (m *Manager) OnIncomingInvite(callID, peerURI, sdpBody string, req Request) (call *callmgr.Call, status int, transfer *Transfer, err error) {
	call, status, err = m.calls.HandleIncomingInvite(callID, peerURI, sdpBody)
	if err != nil {
		return call, status, nil, err
	}

	requestID, convErr := strconv.Atoi(req.RequestID)
	if convErr != nil {
		requestID = 0
	}

	var size int64
	if req.PublishFile.FileInfo.Size != nil {
		size = *req.PublishFile.FileInfo.Size
	}

	transfer = &Transfer{
		Incoming: true,
		Call: call,
		FileID: req.PublishFile.FileInfo.ID,
		FileName: req.PublishFile.FileInfo.Name,
		FileSize: size,
		lastRequestID: requestID,
		store: m.store,
	}
	transfer.parentReject = m.calls.SetRejectHook(call, func(c *callmgr.Call) { m.onCallRejected(c) })

	if stream, ok := call.Streams[streamName]; ok {
		stream.SetData(transfer, func(interface{}) {
				if transfer.writer != nil {
					_ = transfer.writer.Close()
				}
			})
	}

	if err := m.calls.Accept(call); err != nil {
		return call, status, transfer, err
	}
	return call, status, transfer, nil
}

func (m *Manager) onCallRejected(call *callmgr.Call) {
	transfer, ok := transferOf(call)
	if !ok {
		return
	}
	transfer.mu.Lock()
	already := transfer.cancelled
	transfer.cancelled = true
	parent := transfer.parentReject
	transfer.mu.Unlock()

	if !already && m.metrics != nil {
		m.metrics.TransferCancelled("remote")
	}
	if parent != nil {
		parent(call)
	}
}
