package dispatch

import (
	"context"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
	"github.com/lyncmedia/mediacore/pkg/callmgr"
	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/coremetrics"
	"github.com/lyncmedia/mediacore/pkg/filetransfer"
	"github.com/pkg/errors"
)

// Config is the transport-level configuration taken as TransportConfig:
// the local listen address, the user-visible contact identity and an
// optional public address/port for NAT-exposed deployments.
type Config struct {
	UserAgent     string
	ListenNetwork string // "udp" or "tcp"
	ListenAddr    string
	ContactUser   string
	ContactHost   string
	ContactPort   int
	PublicHost    string
	PublicPort    int
}

// Dispatcher owns the sipgo UserAgent/Server/Client triple, the
// Call-ID-keyed dialog table, and routes every inbound request into
// either callmgr.Manager or filetransfer.Manager. It also
// implements callmgr.SipTransport and filetransfer.InfoTransport
// (transport.go) so those packages never import sipgo themselves.
type Dispatcher struct {
	cfg Config

	ua     *sipgo.UserAgent
	server *sipgo.Server
	client *sipgo.Client

	contact sip.ContactHeader

	dialogs *dialogTable

	calls     *callmgr.Manager
	transfers *filetransfer.Manager

	logger  corelog.Logger
	metrics *coremetrics.Collector
}

// NewDispatcher builds the sipgo UA/Server/Client triple and a
// Dispatcher ready to implement callmgr.SipTransport and
// filetransfer.InfoTransport, in the idiom of Stack.Start
// (pkg/dialog/stack.go): NewUA, NewServer, NewClient, a Contact header
// computed from the configured (or public) address. callmgr.Manager
// and filetransfer.Manager are wired in afterward via Attach, since
// they in turn depend on this Dispatcher as their transport.
func NewDispatcher(cfg Config, logger corelog.Logger, metrics *coremetrics.Collector) (*Dispatcher, error) {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}

	ua, err := sipgo.NewUA(sipgo.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return nil, errors.Wrap(err, "create UA")
	}
	server, err := sipgo.NewServer(ua)
	if err != nil {
		return nil, errors.Wrap(err, "create server")
	}
	client, err := sipgo.NewClient(ua)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}

	host, port := cfg.ContactHost, cfg.ContactPort
	if cfg.PublicHost != "" {
		host = cfg.PublicHost
	}
	if cfg.PublicPort != 0 {
		port = cfg.PublicPort
	}
	contact := sip.ContactHeader{
		Address: sip.Uri{Scheme: "sip", User: cfg.ContactUser, Host: host, Port: port},
	}

	d := &Dispatcher{
		cfg:     cfg,
		ua:      ua,
		server:  server,
		client:  client,
		contact: contact,
		dialogs: newDialogTable(),
		logger:  logger.WithComponent("dispatch"),
		metrics: metrics,
	}
	d.registerHandlers()
	return d, nil
}

// Attach wires the call and file-transfer managers in once they have
// been constructed against this Dispatcher as their transport.
func (d *Dispatcher) Attach(calls *callmgr.Manager, transfers *filetransfer.Manager) {
	d.calls = calls
	d.transfers = transfers
}

// ListenAndServe starts the SIP server, blocking until ctx is
// cancelled, same as Stack.Start's goroutine here.
func (d *Dispatcher) ListenAndServe(ctx context.Context) error {
	return d.server.ListenAndServe(ctx, d.cfg.ListenNetwork, d.cfg.ListenAddr)
}

func (d *Dispatcher) registerHandlers() {
	d.server.OnInvite(d.handleInvite)
	d.server.OnAck(d.handleAck)
	d.server.OnBye(d.handleBye)
	d.server.OnCancel(d.handleCancel)
	// INFO is not part of the reference stack's own call flows; this
	// package is the first consumer, so the handler name follows the
	// same On<Method> convention OnInvite/OnAck/OnBye/OnCancel/OnRefer
	// already establish.
	d.server.OnInfo(d.handleInfo)
}

func headerValue(req *sip.Request, name string) string {
	if h := req.GetHeader(name); h != nil {
		return h.Value()
	}
	return ""
}

// handleInvite is the routing point for a fresh dialog, grounded in
// handleIncomingInvite: send a provisional response, then decide
// whether this is a file-transfer publishFile offer (route to the
// filetransfer manager) or an ordinary call (route to callmgr).
func (d *Dispatcher) handleInvite(req *sip.Request, tx sip.ServerTransaction) {
	toTag := req.To().Params["tag"]
	if toTag != "" {
		// re-INVITE within an existing dialog: not handled by this
		// entry point; the request is dropped without a response.
		return
	}

	callID := req.CallID().Value()
	peerURI := req.From().Address.String()
	contentType := headerValue(req, "Content-Type")
	body := string(req.Body())

	trying := sip.NewResponseFromRequest(req, 100, "Trying", nil)
	_ = tx.Respond(trying)

	ds := &dialogState{
		callID:        callID,
		isUAC:         false,
		localTag:      generateTag(),
		remoteTag:     req.From().Params["tag"],
		fromURI:       req.To().Address,
		toURI:         req.From().Address,
		remoteTarget:  req.From().Address,
		serverTx:      tx,
		lastInviteReq: req,
	}
	if contact := req.GetHeader("Contact"); contact != nil {
		var contactURI sip.Uri
		if err := sip.ParseUri(contact.Value(), &contactURI); err == nil {
			ds.remoteTarget = contactURI
		}
	}
	d.dialogs.put(ds)

	if sdpBody, ftReq, ok := filetransfer.DetectPublishFileInvite(contentType, body); ok {
		_, status, _, err := d.transfers.OnIncomingInvite(callID, peerURI, sdpBody, ftReq)
		d.respondStatus(ds, req, status, err)
		return
	}

	_, status, err := d.calls.HandleIncomingInvite(callID, peerURI, body)
	d.respondStatus(ds, req, status, err)
}

func (d *Dispatcher) respondStatus(ds *dialogState, req *sip.Request, status int, err error) {
	if err != nil {
		code, reason := 500, "Server Error"
		if status != 0 {
			code, reason = status, "Error"
		}
		resp := sip.NewResponseFromRequest(req, sip.StatusCode(code), reason, nil)
		resp.AppendHeader(&sip.ToHeader{Address: ds.toURI, Params: sip.HeaderParams{"tag": ds.localTag}})
		_ = ds.serverTx.Respond(resp)
		d.dialogs.remove(ds.callID)
		return
	}
	if status == 180 {
		ringing := sip.NewResponseFromRequest(req, 180, "Ringing", nil)
		ringing.AppendHeader(&sip.ToHeader{Address: ds.toURI, Params: sip.HeaderParams{"tag": ds.localTag}})
		_ = ds.serverTx.Respond(ringing)
	}
	// A final 200 OK is emitted later by callmgr/filetransfer through
	// Dispatcher.Respond, once every stream reports initialized.
}

func (d *Dispatcher) handleAck(req *sip.Request, tx sip.ServerTransaction) {
	ds, ok := d.dialogs.get(req.CallID().Value())
	if !ok {
		return
	}
	ds.remoteTag = req.From().Params["tag"]
}

func (d *Dispatcher) handleBye(req *sip.Request, tx sip.ServerTransaction) {
	ok200 := sip.NewResponseFromRequest(req, 200, "OK", nil)
	_ = tx.Respond(ok200)

	callID := req.CallID().Value()
	d.dialogs.remove(callID)

	if call, found := d.calls.Lookup(callID); found {
		_ = d.calls.HandleIncomingBye(call)
	}
}

func (d *Dispatcher) handleCancel(req *sip.Request, tx sip.ServerTransaction) {
	ok200 := sip.NewResponseFromRequest(req, 200, "OK", nil)
	_ = tx.Respond(ok200)

	callID := req.CallID().Value()
	if call, found := d.calls.Lookup(callID); found {
		_ = d.calls.CancelInvitation(call)
	}
	d.dialogs.remove(callID)
}

// handleInfo routes an in-dialog INFO into the file-transfer control
// plane: parse the XML element and dispatch into the filetransfer
// manager's sub-handlers. A call carrying no active transfer is
// answered 200 OK and otherwise ignored — not every INFO is
// file-transfer traffic.
func (d *Dispatcher) handleInfo(req *sip.Request, tx sip.ServerTransaction) {
	ok200 := sip.NewResponseFromRequest(req, 200, "OK", nil)
	_ = tx.Respond(ok200)

	callID := req.CallID().Value()
	call, found := d.calls.Lookup(callID)
	if !found {
		return
	}
	if err := d.transfers.OnIncomingInfo(call, string(req.Body())); err != nil {
		d.logger.Warn("info dispatch failed", corelog.Err(err), corelog.String("call_id", callID))
	}
}
