package socket

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/causeless8t/SocketBase/config"
	"github.com/causeless8t/SocketBase/internal/metrics"
	"github.com/causeless8t/SocketBase/internal/session"
	"github.com/causeless8t/SocketBase/internal/transport"
	"github.com/causeless8t/SocketBase/neterr"
	"github.com/causeless8t/SocketBase/util"
)

// CommandSocket is the framed-protocol implementation of [Socket].
// The zero value is not usable; construct with [New].
//
// One lifecycle runs from a successful Connect to the disconnect
// notification.  The tuneables are snapshotted from the Config when
// Connect is called and stay fixed for that lifecycle; only the I/O
// timeout can be changed mid-flight, through SetTimeout.
type CommandSocket struct {
	cfg   *config.Config
	log   Diagnostics
	stats *metrics.Collector

	hooks eventHooks
	queue outQueue

	state      atomic.Int32
	ioTimeout  atomic.Int64 // nanoseconds; 0 disables deadlines
	timeoutSet atomic.Bool  // SetTimeout overrides the config seed

	mu     sync.Mutex // guards the lifecycle fields below
	conn   net.Conn
	sess   *session.Info
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

var _ Socket = (*CommandSocket)(nil)

// New returns a disconnected socket that reads its tuneables from cfg
// at each Connect.  A nil cfg uses the compiled defaults; a nil diag
// falls back to a quiet logger.
func New(cfg *config.Config, diag Diagnostics) *CommandSocket {
	if cfg == nil {
		cfg = config.New()
	}
	if diag == nil {
		diag = util.NewLogger(0)
	}
	s := &CommandSocket{
		cfg:   cfg,
		log:   diag,
		stats: metrics.New(),
	}
	s.ioTimeout.Store(int64(cfg.IOTimeout))
	return s
}

// ── Caller operations ────────────────────────────────────────────────

// Connect begins a connection attempt to host:port over proto.  The
// call never blocks on the network: the protocol, port and tuneables
// are validated synchronously, then resolution and dialing proceed on
// a background goroutine.  Failures after Connect returns are reported
// through the diagnostics sink and leave the socket disconnected; no
// events fire for them.
//
// A socket whose previous lifecycle is still connecting or connected
// rejects the call with [neterr.ErrAlreadyActive].  Stop first.
func (s *CommandSocket) Connect(host string, port int, proto Protocol) error {
	if !proto.supported() {
		err := fmt.Errorf("connect: %q: %w (only tcp and udp are supported)", string(proto), neterr.ErrUnsupportedProtocol)
		s.log.Error("%v", err)
		return err
	}
	if host == "" {
		err := &neterr.ConfigError{Field: "host", Message: "hostname is required"}
		s.log.Error("connect rejected: %v", err)
		return err
	}
	if port < 1 || port > 65535 {
		err := &neterr.ConfigError{Field: "port", Value: port, Message: "out of range 1-65535"}
		s.log.Error("connect rejected: %v", err)
		return err
	}

	// Snapshot the tuneables for this lifecycle.
	cfg := *s.cfg
	if err := cfg.Validate(); err != nil {
		s.log.Error("connect rejected: %v", err)
		return err
	}

	if !s.state.CompareAndSwap(stateDisconnected, stateConnecting) {
		err := fmt.Errorf("connect %s: %w", util.FormatAddr(host, port), neterr.ErrAlreadyActive)
		s.log.Warn("%v", err)
		return err
	}

	// Each lifecycle starts with an empty queue; anything left over
	// from a connection that ended without Stop is stale.
	if n := s.queue.clear(); n > 0 {
		s.stats.QueueDiscarded(int64(n))
		s.log.Debug("discarded %d stale queued frames", n)
	}

	if !s.timeoutSet.Load() {
		s.ioTimeout.Store(int64(cfg.IOTimeout))
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1) // the counter must be held before Stop can see this wg

	s.mu.Lock()
	s.cancel = cancel
	s.wg = wg
	s.mu.Unlock()

	s.log.Debug("connecting to %s over %s", util.FormatAddr(host, port), proto.Network())

	go s.dialAndRun(ctx, cancel, wg, host, port, proto, cfg)
	return nil
}

// Stop tears down the active lifecycle: pending frames are discarded,
// the dial and both workers are signalled and joined, then the socket
// is closed and released.  Safe to call repeatedly and on a socket
// that never connected.
func (s *CommandSocket) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	wg := s.wg
	s.mu.Unlock()

	// Discard pending frames first so the send loop cannot pick them
	// up while the shutdown proceeds.
	if n := s.queue.clear(); n > 0 {
		s.stats.QueueDiscarded(int64(n))
		s.log.Debug("discarded %d queued frames", n)
	}

	if cancel == nil {
		return // never connected
	}

	// Cancelling wakes the deadline watchdog, which in turn unblocks
	// any read or write parked in the kernel.
	cancel()
	if wg != nil {
		wg.Wait()
	}

	s.mu.Lock()
	conn := s.conn
	sess := s.sess
	s.conn = nil
	s.sess = nil
	s.cancel = nil
	s.wg = nil
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil && !neterr.IsClosing(err) {
			s.log.Debug("close: %v", err)
		}
	}
	s.state.Store(stateDisconnected)

	if sess != nil {
		s.log.Info("stopped: session %s after %s", sess.ID, sess.Uptime().Truncate(time.Millisecond))
	}
}

// IsConnected reports whether traffic can currently flow.
func (s *CommandSocket) IsConnected() bool {
	return s.state.Load() == stateConnected
}

// Connecting reports whether a Connect call is still in flight.  Once
// it returns false the attempt has settled, either into a connection
// or back to disconnected.  Dial failures fire no events, so callers
// running their own retry policy poll this instead of waiting out the
// full dial budget.
func (s *CommandSocket) Connecting() bool {
	return s.state.Load() == stateConnecting
}

// CanSend reports whether frame could be handed to the send loop right
// now: it must be non-empty and the socket must be connected.
func (s *CommandSocket) CanSend(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	if !s.IsConnected() {
		s.log.Debug("send rejected: %v", neterr.ErrNotConnected)
		return false
	}
	return true
}

// SetTimeout replaces the per-operation I/O deadline used by both
// loops and by future dials.  Zero disables deadlines.  Unlike the
// other tuneables, the value may change mid-connection, and an
// explicit call here outlives reconnect lifecycles: the config's
// IOTimeout only seeds sockets that never had SetTimeout called.
func (s *CommandSocket) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeoutSet.Store(true)
	s.ioTimeout.Store(int64(d))
	s.log.Debug("i/o timeout set to %v", d)
}

// timeout returns the current per-operation deadline budget.
func (s *CommandSocket) timeout() time.Duration {
	return time.Duration(s.ioTimeout.Load())
}

// ── Stats ────────────────────────────────────────────────────────────

// Stats is a point-in-time view of the socket's activity.  Session
// fields are zero when no connection is established.
type Stats struct {
	SessionID  string
	Protocol   string
	LocalAddr  string
	RemoteAddr string
	Uptime     time.Duration

	Connects     int64
	Disconnects  int64
	FramesIn     int64
	FramesOut    int64
	BytesIn      int64
	BytesOut     int64
	SocketErrors int64
	QueueDepth   int
}

// Stats returns the current counters and session details.
func (s *CommandSocket) Stats() Stats {
	snap := s.stats.Snapshot()
	st := Stats{
		Connects:     snap.Connects,
		Disconnects:  snap.Disconnects,
		FramesIn:     snap.FramesIn,
		FramesOut:    snap.FramesOut,
		BytesIn:      snap.BytesIn,
		BytesOut:     snap.BytesOut,
		SocketErrors: snap.SocketErrors,
		QueueDepth:   s.queue.depth(),
	}

	s.mu.Lock()
	if s.sess != nil && s.IsConnected() {
		st.SessionID = s.sess.ID
		st.Protocol = s.sess.Protocol
		st.LocalAddr = s.sess.LocalAddr
		st.RemoteAddr = s.sess.RemoteAddr
		st.Uptime = s.sess.Uptime()
	}
	s.mu.Unlock()
	return st
}

// MetricsJSON renders the full counter set as indented JSON, for tools
// that dump stats on exit.
func (s *CommandSocket) MetricsJSON() string {
	return s.stats.JSON()
}

// ── Dial goroutine ───────────────────────────────────────────────────

// dialAndRun performs the blocking half of Connect: resolve, dial,
// tune the socket, then hand off to the worker loops and announce the
// connection.  Every failure path returns the state to Disconnected.
func (s *CommandSocket) dialAndRun(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, host string, port int, proto Protocol, cfg config.Config) {
	defer wg.Done()

	addr, err := transport.ResolveEndpoint(ctx, host, port)
	if err != nil {
		s.connectFailed("resolve", util.FormatAddr(host, port), err, cancel)
		return
	}
	s.log.Debug("resolved %s to %s", host, addr)

	conn, err := s.dialerFor(proto, cfg).Dial(ctx, proto.Network(), addr)
	if err != nil {
		if ctx.Err() != nil {
			s.log.Debug("connect to %s cancelled during dial", addr)
			cancel()
			s.state.Store(stateDisconnected)
			return
		}
		s.connectFailed("dial", addr, err, cancel)
		return
	}
	if ctx.Err() != nil {
		// Stop arrived between the dial completing and now.
		conn.Close()
		s.log.Debug("connect to %s cancelled after dial", addr)
		s.state.Store(stateDisconnected)
		return
	}

	s.tuneConn(conn, cfg)
	sess := session.Begin(proto.Network(), conn)
	pool := util.NewBytePool(cfg.ReadChunkSize)

	s.mu.Lock()
	s.conn = conn
	s.sess = sess
	s.mu.Unlock()

	s.state.Store(stateConnected)
	s.stats.ConnectionOpened()
	s.log.Info("connected: %s", sess)

	wg.Add(3)
	// Deadline watchdog: a read or write may be parked inside the
	// kernel when the lifecycle is cancelled.  Forcing the deadline
	// forward makes the blocked call return immediately, so Stop never
	// waits out a full I/O timeout.
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = conn.SetDeadline(time.Now())
	}()
	go s.sendLoop(ctx, wg, conn, cfg)
	go s.recvLoop(ctx, cancel, wg, conn, cfg, pool)

	s.hooks.fireConnected()
}

// connectFailed reports a failed connection attempt.  Connect failures
// are configuration-level problems: they go to the diagnostics sink
// only, and the socket returns to Disconnected without firing events.
func (s *CommandSocket) connectFailed(op, addr string, err error, cancel context.CancelFunc) {
	se := neterr.Wrap(op, addr, err)
	s.stats.RecordError(se.Error())
	s.log.Error("connect failed: %v", se)
	cancel()
	s.state.Store(stateDisconnected)
}

// dialerFor builds the dialer for one lifecycle.  The dial shares the
// I/O timeout budget; a zero timeout leaves the dial bounded only by
// the lifecycle context.
func (s *CommandSocket) dialerFor(proto Protocol, cfg config.Config) transport.Dialer {
	if proto == ProtoUDP {
		return &transport.UDPDialer{Timeout: s.timeout(), LocalPort: cfg.LocalPort}
	}
	return &transport.TCPDialer{Timeout: s.timeout(), LocalPort: cfg.LocalPort}
}

// tuneConn applies the configured kernel buffer sizes.  TCP
// additionally gets NoDelay: the protocol exchanges small frames, so
// Nagle coalescing would only add latency.  Failures here are logged
// and tolerated; the connection still works with default buffers.
func (s *CommandSocket) tuneConn(conn net.Conn, cfg config.Config) {
	switch c := conn.(type) {
	case *net.TCPConn:
		if err := c.SetReadBuffer(cfg.RecvBufferSize); err != nil {
			s.log.Warn("set receive buffer: %v", err)
		}
		if err := c.SetWriteBuffer(cfg.SendBufferSize); err != nil {
			s.log.Warn("set send buffer: %v", err)
		}
		if err := c.SetNoDelay(true); err != nil {
			s.log.Warn("set nodelay: %v", err)
		}
	case *net.UDPConn:
		if err := c.SetReadBuffer(cfg.RecvBufferSize); err != nil {
			s.log.Warn("set receive buffer: %v", err)
		}
		if err := c.SetWriteBuffer(cfg.SendBufferSize); err != nil {
			s.log.Warn("set send buffer: %v", err)
		}
	}
}
