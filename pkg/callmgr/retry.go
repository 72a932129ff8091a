package callmgr

import (
	"strings"

	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
)

// retryDecision is the outcome of inspecting a non-2xx response to our
// own INVITE.
type retryDecision int

const (
	retryNone retryDecision = iota
	retryDraft6
	retryRfc5245
	retryIncompatible
)

// classifyInviteError inspects a failure response and decides whether
// it calls for an ICE-version retry, an encryption-incompatibility
// report, or plain surfacing.
func classifyInviteError(resp SipResponse) retryDecision {
	if resp.StatusCode == 415 && strings.Contains(resp.ReasonPhrase+resp.Body, "Mutipart mime in content type not supported by Archiving CDR service") {
		return retryDraft6
	}
	if resp.StatusCode == 488 {
		diag := resp.Headers["ms-client-diagnostics"]
		if strings.Contains(diag, "52017") && strings.Contains(diag, "Encryption levels dont match") {
			return retryIncompatible
		}
		if strings.Contains(resp.ReasonPhrase+resp.Body, "Encryption Levels not compatible") {
			return retryIncompatible
		}
		if strings.Contains(resp.Headers["ms-diagnostics"], "7008") {
			return retryRfc5245
		}
	}
	return retryNone
}

// HandleInviteResponse processes a response to the call's outbound
// INVITE transaction. The returned retry is non-nil only when a retry
// was triggered, giving the caller the parameters for the follow-up
// InitiateCall.
func (m *Manager) HandleInviteResponse(call *Call, resp SipResponse) (retry *RetryParams, err error) {
	switch {
		case resp.StatusCode == 180:
		return nil, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil, m.acceptInviteResponse(call, resp)
		case resp.StatusCode >= 400:
		return m.handleInviteFailure(call, resp)
		default:
		return nil, nil
	}
}

// RetryParams carries what's needed to re-initiate a call with a
// different ICE version after a protocol-level rejection.
type RetryParams struct {
	PeerURI string
	ICEVersion sdpmodel.ICEVersion
	WithVideo bool
}

func (m *Manager) handleInviteFailure(call *Call, resp SipResponse) (*RetryParams, error) {
	decision := classifyInviteError(resp)

	// Retries are only attempted on the dialog's very first INVITE.
	if decision != retryNone && decision != retryIncompatible && call.CSeq != 1 {
		decision = retryNone
	}

	switch decision {
		case retryDraft6:
		m.teardownForRetry(call)
		return &RetryParams{PeerURI: call.PeerURI, ICEVersion: sdpmodel.Draft6, WithVideo: call.WithVideo}, nil
		case retryRfc5245:
		m.teardownForRetry(call)
		return &RetryParams{PeerURI: call.PeerURI, ICEVersion: sdpmodel.Rfc5245, WithVideo: call.WithVideo}, nil
		case retryIncompatible:
		call.EncryptionIncompatible = true
		err := call.fire("rejected")
		call.runRejectHook()
		return nil, err
		default:
		err := call.fire("rejected")
		call.runRejectHook()
		return nil, err
	}
}

func (m *Manager) teardownForRetry(call *Call) {
	m.unregister(call.CallID)
	for name, stream := range call.Streams {
		m.endStream(call, name, stream)
	}
}

// watchInviteResponses drains the client transaction for an
// outstanding INVITE (initial or re-INVITE) and feeds every response
// through HandleInviteResponse as it arrives, the Go-level rendering
// of the cooperative single-threaded event loop: a goroutine per
// outstanding transaction, reporting back into the Manager exactly
// the way a TransCallback would. A retry decision re-initiates the
// call with the new ICE version and stops watching this transaction.
func (m *Manager) watchInviteResponses(call *Call, tx ClientTransaction) {
	if tx == nil {
		return
	}
	go func() {
		for {
			select {
			case resp, ok := <-tx.Responses():
				if !ok {
					return
				}
				retry, err := m.HandleInviteResponse(call, resp)
				if err != nil {
					m.logger.Warn("invite response handling failed", corelog.Err(err), corelog.String("call_id", call.CallID))
				}
				if retry != nil {
					newCallID := NewCallID()
					if _, err := m.InitiateCall(newCallID, retry.PeerURI, retry.ICEVersion, retry.WithVideo); err != nil {
						m.logger.Warn("ice-version retry failed", corelog.Err(err), corelog.String("call_id", newCallID))
					}
					return
				}
				if resp.StatusCode >= 200 {
					return
				}
			case <-tx.Done():
				return
			}
		}
	}()
}

func (m *Manager) acceptInviteResponse(call *Call, resp SipResponse) error {
	remote, err := sdpmodel.Parse(resp.Body)
	if err != nil {
		return err
	}
	if err := m.applyRemoteSDP(call, remote); err != nil {
		return err
	}
	if err := m.transport.SendAck(call); err != nil {
		return err
	}
	return call.fire("answered")
}
