package socket

import (
	"sync"

	"github.com/causeless8t/SocketBase/neterr"
)

// eventHooks holds the registered callbacks.  Registration appends
// under the lock; firing snapshots the list and invokes outside it, so
// a callback may register further callbacks without deadlocking, and
// registration is safe while the workers are delivering.
type eventHooks struct {
	mu           sync.RWMutex
	connected    []func()
	disconnected []func()
	packet       []func(Packet)
	socketErr    []func(*neterr.SocketError)
}

func (h *eventHooks) addConnected(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.connected = append(h.connected, fn)
	h.mu.Unlock()
}

func (h *eventHooks) addDisconnected(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.disconnected = append(h.disconnected, fn)
	h.mu.Unlock()
}

func (h *eventHooks) addPacket(fn func(Packet)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.packet = append(h.packet, fn)
	h.mu.Unlock()
}

func (h *eventHooks) addSocketError(fn func(*neterr.SocketError)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.socketErr = append(h.socketErr, fn)
	h.mu.Unlock()
}

func (h *eventHooks) fireConnected() {
	h.mu.RLock()
	fns := append([]func(){}, h.connected...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *eventHooks) fireDisconnected() {
	h.mu.RLock()
	fns := append([]func(){}, h.disconnected...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *eventHooks) firePacket(p Packet) {
	h.mu.RLock()
	fns := append([]func(Packet){}, h.packet...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (h *eventHooks) fireSocketError(se *neterr.SocketError) {
	h.mu.RLock()
	fns := append([]func(*neterr.SocketError){}, h.socketErr...)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(se)
	}
}

// ── Registration surface ─────────────────────────────────────────────

// OnConnected registers fn to run after a connect completes and the
// workers are up.  Fired exactly once per successful lifecycle.
func (s *CommandSocket) OnConnected(fn func()) { s.hooks.addConnected(fn) }

// OnDisconnected registers fn to run when an established connection
// ends, whether by Stop, remote close, or a fatal socket error.  Fired
// exactly once per established lifecycle, as the receive loop's final
// act.
func (s *CommandSocket) OnDisconnected(fn func()) { s.hooks.addDisconnected(fn) }

// OnPacket registers fn for every decoded inbound frame.  The packet's
// payload is only valid for the duration of the call.
func (s *CommandSocket) OnPacket(fn func(Packet)) { s.hooks.addPacket(fn) }

// OnSocketError registers fn for transport-level errors encountered by
// the worker loops.  Shutdown races and idle read timeouts are not
// reported here.
func (s *CommandSocket) OnSocketError(fn func(*neterr.SocketError)) { s.hooks.addSocketError(fn) }
