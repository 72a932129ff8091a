// Package callmgr implements the per-call state machine: dialog
// lifecycle, stream orchestration, ICE retry, multipart composition
// and hold, grounded throughout in the pkg/dialog package (dialog.go's
// initFSM, manager.go's DialogManager, handlers.go's incoming-INVITE
// flow).
package callmgr

import (
	"fmt"
	"sync"

	"github.com/lyncmedia/mediacore/pkg/config"
	"github.com/lyncmedia/mediacore/pkg/coreerr"
	"github.com/lyncmedia/mediacore/pkg/corelog"
	"github.com/lyncmedia/mediacore/pkg/coremetrics"
	"github.com/lyncmedia/mediacore/pkg/sdpmodel"
	"github.com/lyncmedia/mediacore/pkg/streammgr"
)

// Manager owns the Call-ID map and the capabilities every Call drives.
// The map is mutated only from call-processing code but is still
// guarded by a RWMutex at this API boundary, mirroring 
// DialogManager: sipgo's own goroutines deliver callbacks here and
// must not race whatever is iterating the map.
type Manager struct {
	mu sync.RWMutex
	calls map[string]*Call

	streams *streammgr.Manager
	backend MediaBackend
	transport SipTransport
	cfg *config.Config

	logger corelog.Logger
	metrics *coremetrics.Collector

	selfURI string
}

// NewManager builds a Call Manager. logger and metrics may be nil;
// every call site is nil-safe (matching own optional
// collector posture).
func NewManager(cfg *config.Config, selfURI string, streams *streammgr.Manager, backend MediaBackend, transport SipTransport, logger corelog.Logger, metrics *coremetrics.Collector) *Manager {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	return &Manager{
		calls: make(map[string]*Call),
		streams: streams,
		backend: backend,
		transport: transport,
		cfg: cfg,
		logger: logger.WithComponent("callmgr"),
		metrics: metrics,
		selfURI: selfURI,
	}
}

func (m *Manager) register(c *Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c.CallID] = c
}

// unregister removes the call from the map before any stream teardown
// runs, its cleanup-ordering invariant: re-entrant notifications
// must not be able to rediscover a call mid-teardown.
func (m *Manager) unregister(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.calls, callID)
}

// Lookup finds a call by Call-ID.
func (m *Manager) Lookup(callID string) (*Call, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.calls[callID]
	return c, ok
}

// hasAudioCall reports whether any registered call other than
// excludeCallID (hidden or not) already carries an audio stream — the check initiate_call and
// incoming-INVITE handling both perform.
func (m *Manager) hasAudioCall(excludeCallID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, c := range m.calls {
		if id == excludeCallID {
			continue
		}
		if _, ok := c.Streams["audio"]; ok {
			return true
		}
	}
	return false
}

func (m *Manager) onStateChanged(c *Call, state CallState) {
	m.logger.Debug("call state changed", corelog.String("call_id", c.CallID), corelog.String("state", state.String()))
	if m.metrics == nil {
		return
	}
	switch state {
		case StateEstablished:
		m.metrics.CallEstablished(0)
		case StateTerminated:
		m.metrics.CallTerminated("state_machine")
	}
}

// addStream allocates a stream through the Stream Manager and creates
// the matching backend handle, wiring the two together on the
// returned streammgr.Stream.
func (m *Manager) addStream(c *Call, name string, mediaType sdpmodel.MediaType, initiator bool) (*streammgr.Stream, error) {
	stream, _, err := m.streams.AddStream(name, mediaType, c.ICEVersion, initiator)
	if err != nil {
		return nil, coreerr.ErrStreamPortsExhausted.WithCause(err).WithField("stream", name)
	}
	if m.backend != nil {
		handle, err := m.backend.CreateStream(c.CallID, name, mediaType)
		if err != nil {
			m.streams.ReleaseStream(name, mediaType, stream.Port, stream)
			return nil, fmt.Errorf("callmgr: create backend stream %q: %w", name, err)
		}
		stream.BackendHandle = handle
	}
	c.Streams[name] = stream
	return stream, nil
}
