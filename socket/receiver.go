package socket

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/causeless8t/SocketBase/config"
	"github.com/causeless8t/SocketBase/neterr"
	"github.com/causeless8t/SocketBase/util"
)

// recvLoop reads from conn and forwards every delivery to the packet
// handlers.  It owns the end of the lifecycle: whatever terminates the
// loop, its exit path cancels the peer send loop, closes the socket
// and fires the disconnect notification, exactly once per connection.
//
// The teardown is split across three defers so they run in a precise
// order: release the lifecycle, then leave the wait group, then fire
// the notification.  Firing after wg.Done lets a disconnect handler
// call Stop (or Connect) without deadlocking against wg.Wait.
func (s *CommandSocket) recvLoop(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, conn net.Conn, cfg config.Config, pool *util.BytePool) {
	fired := false
	defer func() {
		if fired {
			s.hooks.fireDisconnected()
		}
	}()
	defer wg.Done()
	defer func() {
		cancel()
		if err := conn.Close(); err != nil && !neterr.IsClosing(err) {
			s.log.Debug("close: %v", err)
		}
		if s.state.CompareAndSwap(stateConnected, stateDisconnected) {
			s.stats.ConnectionClosed()
			s.mu.Lock()
			sess := s.sess
			s.mu.Unlock()
			s.log.Info("disconnected: session %s after %s", sess.ID, sess.Uptime().Truncate(time.Millisecond))
			fired = true
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		if !s.IsConnected() {
			return
		}

		buf := pool.Get()
		if d := s.timeout(); d > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
				pool.Put(buf)
				if ctx.Err() == nil && !neterr.IsClosing(err) {
					se := neterr.Wrap("read", conn.RemoteAddr().String(), err)
					s.stats.RecordError(se.Error())
					s.log.Error("%v", se)
					s.hooks.fireSocketError(se)
				}
				return
			}
		}

		n, err := conn.Read(*buf)
		if n > 0 {
			s.stats.FrameReceived(int64(n))
			s.dispatchRaw((*buf)[:n])
		}
		pool.Put(buf)

		if err != nil {
			switch {
			case ctx.Err() != nil || neterr.IsClosing(err):
				s.log.Debug("receive loop exiting: %v", err)
				return
			case errors.Is(err, io.EOF):
				// Orderly shutdown by the remote is not an error.
				s.log.Info("remote closed the connection")
				return
			default:
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					s.log.Debug("no traffic for %v, still listening", s.timeout())
					continue
				}
				se := neterr.Wrap("read", conn.RemoteAddr().String(), err)
				s.stats.RecordError(se.Error())
				s.log.Error("%v", se)
				s.hooks.fireSocketError(se)
				if se.Unusable {
					return
				}
				continue
			}
		}

		if n == 0 {
			// Zero bytes with a nil error means nothing was waiting.
			if !sleepCtx(ctx, cfg.ReadPollInterval) {
				return
			}
		}
	}
}
