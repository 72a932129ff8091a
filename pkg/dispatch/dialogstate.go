package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/emiago/sipgo/sip"
)

// dialogState is the per-Call-ID SIP bookkeeping callmgr deliberately
// knows nothing about: tags, route set and remote target needed to
// build well-formed in-dialog requests (ACK, re-INVITE, BYE, INFO),
// grounded in pkg/dialog.Dialog's fields and its buildRequest helper
// (pkg/dialog/dialog_internal.go).
type dialogState struct {
	callID string

	isUAC bool

	localTag string
	remoteTag string

	fromURI sip.Uri
	toURI sip.Uri

	remoteTarget sip.Uri
	routeSet []sip.Uri

	localSeq uint32

	// serverTx is the transaction for an inbound INVITE this call is
	// still ringing on; the final response is sent on it once the
	// backend barrier fires, per callmgr's "accept once initialized"
	// posture.
	serverTx sip.ServerTransaction

	// lastInviteReq is kept so an ACK's Request-URI / Route set can be
	// derived without re-deriving it from scratch.
	lastInviteReq *sip.Request
}

func (d *dialogState) incrementCSeq() uint32 {
	return atomic.AddUint32(&d.localSeq, 1)
}

// dialogTable is the Call-ID keyed store of dialogState, guarded the
// same way callmgr.Manager guards its own Call-ID map: mutated only
// from request-processing code, but boundary-locked because sipgo
// delivers callbacks on its own goroutines.
type dialogTable struct {
	mu sync.RWMutex
	byID map[string]*dialogState
}

func newDialogTable() *dialogTable {
	return &dialogTable{byID: make(map[string]*dialogState)}
}

func (t *dialogTable) put(s *dialogState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[s.callID] = s
}

func (t *dialogTable) get(callID string) (*dialogState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[callID]
	return s, ok
}

func (t *dialogTable) remove(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, callID)
}
