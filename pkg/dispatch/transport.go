package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/emiago/sipgo/sip"
	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
)

// generateTag produces a random dialog tag, in the same shape as the
// id_generator.go fallback path (crypto/rand, 8 bytes, hex).
func generateTag() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", []byte(fmt.Sprintf("%d", len(b))))
	}
	return hex.EncodeToString(b)
}

// clientTransaction adapts sip.ClientTransaction to callmgr's narrower
// ClientTransaction capability, translating *sip.Response into the
// transport-agnostic callmgr.SipResponse as they arrive.
type clientTransaction struct {
	responses chan callmgr.SipResponse
	done      chan struct{}
}

func (c *clientTransaction) Responses() <-chan callmgr.SipResponse { return c.responses }
func (c *clientTransaction) Done() <-chan struct{}                 { return c.done }
func (c *clientTransaction) Err() error                            { return nil }

func wrapClientTransaction(tx sip.ClientTransaction) *clientTransaction {
	w := &clientTransaction{
		responses: make(chan callmgr.SipResponse, 4),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		defer close(w.responses)
		for {
			select {
				case resp, ok := <-tx.Responses():
				if !ok {
					return
				}
				w.responses <- toSipResponse(resp)
				case <-tx.Done():
				return
			}
		}
	}()
	return w
}

func toSipResponse(resp *sip.Response) callmgr.SipResponse {
	headers := map[string]string{}
	if w := resp.GetHeader("Warning"); w != nil {
		headers["Warning"] = w.Value()
	}
	if d := resp.GetHeader("ms-diagnostics"); d != nil {
		headers["ms-diagnostics"] = d.Value()
	}
	if cd := resp.GetHeader("ms-client-diagnostics"); cd != nil {
		headers["ms-client-diagnostics"] = cd.Value()
	}
	contentType := ""
	if ct := resp.GetHeader("Content-Type"); ct != nil {
		contentType = ct.Value()
	}
	return callmgr.SipResponse{
		StatusCode:   int(resp.StatusCode),
		ReasonPhrase: resp.Reason,
		Body:         string(resp.Body()),
		ContentType:  contentType,
		Headers:      headers,
	}
}

// buildDialogRequest renders an in-dialog request, the same header
// set buildRequest assembles: Call-ID, From/To (with role-dependent
// tags), CSeq, Max-Forwards, Contact, Route.
func (d *Dispatcher) buildDialogRequest(ds *dialogState, method sip.RequestMethod) *sip.Request {
	reqURI := ds.remoteTarget
	req := sip.NewRequest(method, reqURI)
	req.AppendHeader(sip.NewHeader("Call-ID", ds.callID))

	fromURI, toURI := ds.fromURI, ds.toURI
	fromTag, toTag := ds.localTag, ds.remoteTag
	if !ds.isUAC {
		fromURI, toURI = ds.toURI, ds.fromURI
		fromTag, toTag = ds.remoteTag, ds.localTag
	}

	req.AppendHeader(&sip.FromHeader{Address: fromURI, Params: sip.HeaderParams{"tag": fromTag}})
	toParams := sip.HeaderParams{}
	if toTag != "" {
		toParams["tag"] = toTag
	}
	req.AppendHeader(&sip.ToHeader{Address: toURI, Params: toParams})
	req.AppendHeader(&sip.CSeqHeader{SeqNo: ds.incrementCSeq(), MethodName: method})
	req.AppendHeader(sip.NewHeader("Max-Forwards", "70"))
	req.AppendHeader(&d.contact)
	req.AppendHeader(sip.NewHeader("ms-keep-alive", "UAC;hop-hop=yes"))
	for _, route := range ds.routeSet {
		req.AppendHeader(&sip.RouteHeader{Address: route})
	}
	return req
}

// --- callmgr.SipTransport ---

func (d *Dispatcher) SendInvite(call *callmgr.Call, body, contentType string) (callmgr.ClientTransaction, error) {
	toURI, err := parseURI(call.PeerURI)
	if err != nil {
		return nil, coreerr.ErrSDPParse.WithCause(err)
	}
	fromURI, err := parseURI(call.SelfURI)
	if err != nil {
		return nil, coreerr.ErrSDPParse.WithCause(err)
	}

	ds := &dialogState{
		callID:       call.CallID,
		isUAC:        true,
		localTag:     generateTag(),
		fromURI:      fromURI,
		toURI:        toURI,
		remoteTarget: toURI,
	}
	d.dialogs.put(ds)

	req := d.buildDialogRequest(ds, sip.INVITE)
	req.AppendHeader(sip.NewHeader("Content-Type", contentType))
	req.SetBody([]byte(body))
	ds.lastInviteReq = req

	tx, err := d.client.TransactionRequest(context.Background(), req)
	if err != nil {
		return nil, coreerr.New(coreerr.CategoryNetwork, coreerr.SeverityError, "invite failed").WithCause(err)
	}
	return wrapClientTransaction(tx), nil
}

func (d *Dispatcher) SendReInvite(call *callmgr.Call, body, contentType string) (callmgr.ClientTransaction, error) {
	ds, ok := d.dialogs.get(call.CallID)
	if !ok {
		return nil, coreerr.ErrCallNotFound
	}
	req := d.buildDialogRequest(ds, sip.INVITE)
	req.AppendHeader(sip.NewHeader("Content-Type", contentType))
	req.SetBody([]byte(body))
	ds.lastInviteReq = req

	tx, err := d.client.TransactionRequest(context.Background(), req)
	if err != nil {
		return nil, coreerr.New(coreerr.CategoryNetwork, coreerr.SeverityError, "re-invite failed").WithCause(err)
	}
	return wrapClientTransaction(tx), nil
}

func (d *Dispatcher) SendAck(call *callmgr.Call) error {
	ds, ok := d.dialogs.get(call.CallID)
	if !ok {
		return coreerr.ErrCallNotFound
	}
	ack := sip.NewRequest(sip.ACK, ds.remoteTarget)
	ack.AppendHeader(sip.NewHeader("Call-ID", ds.callID))
	ack.AppendHeader(&sip.FromHeader{Address: ds.fromURI, Params: sip.HeaderParams{"tag": ds.localTag}})
	ack.AppendHeader(&sip.ToHeader{Address: ds.toURI, Params: sip.HeaderParams{"tag": ds.remoteTag}})
	ack.AppendHeader(&sip.CSeqHeader{SeqNo: ds.localSeq, MethodName: sip.ACK})
	ack.AppendHeader(sip.NewHeader("Max-Forwards", "70"))
	return d.client.WriteRequest(ack)
}

// Respond answers an inbound request we are still holding the server
// transaction for (stashed on the dialogState at INVITE time).
func (d *Dispatcher) Respond(call *callmgr.Call, statusCode int, reason string, body, contentType string, headers map[string]string) error {
	ds, ok := d.dialogs.get(call.CallID)
	if !ok || ds.serverTx == nil || ds.lastInviteReq == nil {
		return coreerr.ErrCallNotFound
	}
	if ds.remoteTag == "" {
		ds.remoteTag = generateTag()
	}

	resp := sip.NewResponseFromRequest(ds.lastInviteReq, sip.StatusCode(statusCode), reason, []byte(body))
	if statusCode >= 200 {
		resp.AppendHeader(&sip.ToHeader{Address: ds.toURI, Params: sip.HeaderParams{"tag": ds.localTag}})
	}
	if contentType != "" {
		resp.AppendHeader(sip.NewHeader("Content-Type", contentType))
	}
	for k, v := range headers {
		resp.AppendHeader(sip.NewHeader(k, v))
	}
	resp.AppendHeader(&d.contact)

	return ds.serverTx.Respond(resp)
}

func (d *Dispatcher) SendBye(call *callmgr.Call) error {
	ds, ok := d.dialogs.get(call.CallID)
	if !ok {
		return coreerr.ErrCallNotFound
	}
	req := d.buildDialogRequest(ds, sip.BYE)
	tx, err := d.client.TransactionRequest(context.Background(), req)
	if err != nil {
		return coreerr.New(coreerr.CategoryNetwork, coreerr.SeverityError, "bye failed").WithCause(err)
	}
	select {
		case <-tx.Done():
		case <-tx.Responses():
	}
	d.dialogs.remove(call.CallID)
	return nil
}

// --- filetransfer.InfoTransport ---

func (d *Dispatcher) SendInfo(call *callmgr.Call, body, contentType string) error {
	ds, ok := d.dialogs.get(call.CallID)
	if !ok {
		return coreerr.ErrCallNotFound
	}
	req := d.buildDialogRequest(ds, sip.INFO)
	req.AppendHeader(sip.NewHeader("Content-Type", contentType))
	req.SetBody([]byte(body))

	tx, err := d.client.TransactionRequest(context.Background(), req)
	if err != nil {
		return coreerr.ErrTransportFailure.WithCause(err)
	}
	go func() {
		select {
			case <-tx.Done():
			case <-tx.Responses():
		}
	}()
	return nil
}

func parseURI(s string) (sip.Uri, error) {
	var u sip.Uri
	if err := sip.ParseUri(s, &u); err != nil {
		return sip.Uri{}, err
	}
	return u, nil
}
