package socket

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/causeless8t/SocketBase/neterr"
	"github.com/causeless8t/SocketBase/util"
)

// ── Test servers ─────────────────────────────────────────────────────

// tcpEcho accepts a single connection and echoes everything it reads.
type tcpEcho struct {
	ln   net.Listener
	done chan struct{}

	mu   sync.Mutex
	conn net.Conn
}

func startTCPEcho(t *testing.T) *tcpEcho {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	e := &tcpEcho{ln: ln, done: make(chan struct{})}
	go func() {
		defer close(e.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		e.mu.Lock()
		e.conn = conn
		e.mu.Unlock()
		_, _ = io.Copy(conn, conn)
		conn.Close()
	}()
	return e
}

func (e *tcpEcho) port() int { return e.ln.Addr().(*net.TCPAddr).Port }

// closeConn hangs up on the connected client.
func (e *tcpEcho) closeConn() {
	e.mu.Lock()
	if e.conn != nil {
		e.conn.Close()
	}
	e.mu.Unlock()
}

func (e *tcpEcho) stop() {
	e.ln.Close()
	e.closeConn()
	<-e.done
}

// udpEcho echoes every datagram back to its sender.  With leadEmpty
// set, each datagram is answered by an empty datagram first.
type udpEcho struct {
	pc        *net.UDPConn
	done      chan struct{}
	leadEmpty bool
}

func startUDPEcho(t *testing.T, leadEmpty bool) *udpEcho {
	t.Helper()
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	e := &udpEcho{pc: pc, done: make(chan struct{}), leadEmpty: leadEmpty}
	go func() {
		defer close(e.done)
		buf := make([]byte, 2048)
		for {
			n, addr, err := pc.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if e.leadEmpty {
				_, _ = pc.WriteToUDP(nil, addr)
			}
			_, _ = pc.WriteToUDP(buf[:n], addr)
		}
	}()
	return e
}

func (e *udpEcho) port() int { return e.pc.LocalAddr().(*net.UDPAddr).Port }

func (e *udpEcho) stop() {
	e.pc.Close()
	<-e.done
}

// tcpCapture accepts a single connection and records every byte it
// receives without replying.
type tcpCapture struct {
	ln   net.Listener
	done chan struct{}

	mu   sync.Mutex
	conn net.Conn
	data []byte
}

func startTCPCapture(t *testing.T) *tcpCapture {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := &tcpCapture{ln: ln, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				c.mu.Lock()
				c.data = append(c.data, buf[:n]...)
				c.mu.Unlock()
			}
			if err != nil {
				conn.Close()
				return
			}
		}
	}()
	return c
}

func (c *tcpCapture) port() int { return c.ln.Addr().(*net.TCPAddr).Port }

func (c *tcpCapture) captured() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

func (c *tcpCapture) stop() {
	c.ln.Close()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	<-c.done
}

// ── Event recording ──────────────────────────────────────────────────

type recorder struct {
	connected    chan struct{}
	disconnected chan struct{}
	packets      chan Packet
	errs         chan *neterr.SocketError
}

func record(s *CommandSocket) *recorder {
	r := &recorder{
		connected:    make(chan struct{}, 4),
		disconnected: make(chan struct{}, 4),
		packets:      make(chan Packet, 64),
		errs:         make(chan *neterr.SocketError, 16),
	}
	s.OnConnected(func() { r.connected <- struct{}{} })
	s.OnDisconnected(func() { r.disconnected <- struct{}{} })
	s.OnPacket(func(p Packet) {
		r.packets <- Packet{Command: p.Command, Payload: append([]byte(nil), p.Payload...)}
	})
	s.OnSocketError(func(se *neterr.SocketError) { r.errs <- se })
	return r
}

func awaitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func awaitPacket(t *testing.T, r *recorder) Packet {
	t.Helper()
	select {
	case p := <-r.packets:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a packet")
		return Packet{}
	}
}

func expectSilence(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(150 * time.Millisecond):
	}
}

func awaitDisconnectedState(t *testing.T, s *CommandSocket) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.state.Load() != stateDisconnected {
		if time.Now().After(deadline) {
			t.Fatal("socket did not return to the disconnected state")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ── Lifecycle tests ──────────────────────────────────────────────────

func TestSocket_TCPRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	echo := startTCPEcho(t)
	defer echo.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")
	require.True(t, s.IsConnected())

	require.True(t, s.SendMessage(42, []byte{0x01, 0x02}))
	p := awaitPacket(t, r)
	require.Equal(t, int32(42), p.Command)
	require.Equal(t, []byte{0x01, 0x02}, p.Payload)

	st := s.Stats()
	require.EqualValues(t, 1, st.Connects)
	require.EqualValues(t, 1, st.FramesOut)
	require.EqualValues(t, 6, st.BytesOut)
	require.EqualValues(t, 6, st.BytesIn)
	require.Equal(t, "tcp", st.Protocol)
	require.NotEmpty(t, st.SessionID)
	require.NotEmpty(t, st.RemoteAddr)

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
	require.False(t, s.IsConnected())

	st = s.Stats()
	require.EqualValues(t, 1, st.Disconnects)
	require.Empty(t, st.SessionID, "session details should clear on stop")
	require.Contains(t, s.MetricsJSON(), `"frames_out": 1`)
}

func TestSocket_UDPRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	echo := startUDPEcho(t, false)
	defer echo.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoUDP))
	awaitSignal(t, r.connected, "connected event")

	require.True(t, s.SendMessage(-7, []byte("ping")))
	p := awaitPacket(t, r)
	require.Equal(t, int32(-7), p.Command)
	require.Equal(t, []byte("ping"), p.Payload)

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}

func TestSocket_UDPEmptyDatagramKeepsListening(t *testing.T) {
	defer goleak.VerifyNone(t)

	echo := startUDPEcho(t, true)
	defer echo.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoUDP))
	awaitSignal(t, r.connected, "connected event")

	// The empty datagram preceding each echo must be skipped without
	// ending the lifecycle or surfacing an error.
	require.True(t, s.SendMessage(1, []byte("a")))
	p := awaitPacket(t, r)
	require.Equal(t, int32(1), p.Command)

	require.True(t, s.SendMessage(2, []byte("b")))
	p = awaitPacket(t, r)
	require.Equal(t, int32(2), p.Command)

	require.Empty(t, r.errs)
	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}

func TestConnect_RejectsUnsupportedProtocols(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, proto := range []Protocol{"icmp", "sctp", "", "TCP"} {
		s := New(nil, nil)
		err := s.Connect("127.0.0.1", 9, proto)

		require.ErrorIs(t, err, neterr.ErrUnsupportedProtocol, "protocol %q", proto)
		require.False(t, s.IsConnected())
		require.Equal(t, stateDisconnected, s.state.Load())
	}
}

func TestConnect_RejectsBadEndpoints(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name  string
		host  string
		port  int
		field string
	}{
		{"empty host", "", 9, "host"},
		{"port zero", "127.0.0.1", 0, "port"},
		{"port too large", "127.0.0.1", 70000, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil)
			err := s.Connect(tt.host, tt.port, ProtoTCP)

			var ce *neterr.ConfigError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tt.field, ce.Field)
			require.False(t, s.IsConnected())

			// Rejected arguments must not burn the lifecycle.
			require.Equal(t, stateDisconnected, s.state.Load())
		})
	}
}

func TestConnect_WhileActive(t *testing.T) {
	defer goleak.VerifyNone(t)

	echo := startTCPEcho(t)
	defer echo.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")

	err := s.Connect("127.0.0.1", echo.port(), ProtoTCP)
	require.ErrorIs(t, err, neterr.ErrAlreadyActive)
	require.True(t, s.IsConnected(), "rejected connect must not disturb the active session")

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}

func TestConnect_DialFailureLeavesSocketReusable(t *testing.T) {
	defer goleak.VerifyNone(t)

	port, err := util.FindFreePort()
	require.NoError(t, err)

	s := New(nil, nil)
	r := record(s)

	// Nothing listens on port, so the dial is refused.  The failure is
	// diagnostics-only: no events, state back to disconnected.
	require.NoError(t, s.Connect("127.0.0.1", port, ProtoTCP))
	awaitDisconnectedState(t, s)
	require.False(t, s.Connecting(), "a failed dial settles the attempt")
	expectSilence(t, r.connected, "connected event after failed dial")
	require.Empty(t, r.errs, "dial failures must not surface as socket errors")
	require.EqualValues(t, 0, s.Stats().Connects)

	// The same socket can try again.
	echo := startTCPEcho(t)
	defer echo.stop()

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")
	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}

func TestStop_Idempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(nil, nil)
	s.Stop() // never connected
	s.Stop()
	require.False(t, s.IsConnected())

	echo := startTCPEcho(t)
	defer echo.stop()

	r := record(s)
	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")

	s.Stop()
	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
	expectSilence(t, r.disconnected, "second disconnected event")
}

func TestRemoteClose_FiresDisconnectedOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	echo := startTCPEcho(t)
	defer echo.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")

	echo.closeConn()
	awaitSignal(t, r.disconnected, "disconnected event")
	expectSilence(t, r.disconnected, "second disconnected event")
	require.Empty(t, r.errs, "an orderly remote close is not a socket error")
	require.False(t, s.IsConnected())

	s.Stop() // cleanup after the fact stays quiet
	expectSilence(t, r.disconnected, "disconnected event from post-close stop")
}

func TestSendMessage_FIFO(t *testing.T) {
	defer goleak.VerifyNone(t)

	capture := startTCPCapture(t)
	defer capture.stop()

	s := New(nil, nil)
	r := record(s)

	require.NoError(t, s.Connect("127.0.0.1", capture.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")

	const frames = 20
	for i := 1; i <= frames; i++ {
		require.True(t, s.SendMessage(int32(i), []byte{byte(i)}))
	}

	const frameLen = headerSize + 1
	want := frames * frameLen
	deadline := time.Now().Add(3 * time.Second)
	for len(capture.captured()) < want {
		if time.Now().After(deadline) {
			t.Fatalf("captured %d bytes, want %d", len(capture.captured()), want)
		}
		time.Sleep(5 * time.Millisecond)
	}

	data := capture.captured()
	require.Len(t, data, want)
	for i := 0; i < frames; i++ {
		command, payload := decodeFrame(data[i*frameLen : (i+1)*frameLen])
		require.Equal(t, int32(i+1), command, "frame %d out of order", i)
		require.Equal(t, []byte{byte(i + 1)}, payload)
	}

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}

func TestCanSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(nil, nil)
	require.False(t, s.CanSend([]byte{1}), "disconnected socket cannot send")
	require.False(t, s.CanSend(nil))
	require.False(t, s.SendMessage(1, []byte("x")), "disconnected socket rejects frames")
	require.Zero(t, s.queue.depth())

	echo := startTCPEcho(t)
	defer echo.stop()

	r := record(s)
	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")

	require.True(t, s.CanSend([]byte{1}))
	require.False(t, s.CanSend(nil), "empty frames are never sendable")

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
	require.False(t, s.CanSend([]byte{1}))
}

func TestSetTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(nil, nil)
	require.Equal(t, 30*time.Second, s.timeout(), "config default should seed the timeout")

	s.SetTimeout(5 * time.Second)
	require.Equal(t, 5*time.Second, s.timeout())

	s.SetTimeout(-time.Second)
	require.Equal(t, time.Duration(0), s.timeout(), "negative timeouts clamp to zero")

	// An explicit SetTimeout survives reconnect lifecycles instead of
	// being reset from the config.
	s.SetTimeout(time.Second)
	echo := startTCPEcho(t)
	defer echo.stop()

	r := record(s)
	require.NoError(t, s.Connect("127.0.0.1", echo.port(), ProtoTCP))
	awaitSignal(t, r.connected, "connected event")
	require.Equal(t, time.Second, s.timeout())

	s.Stop()
	awaitSignal(t, r.disconnected, "disconnected event")
}
