package socket

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/causeless8t/SocketBase/config"
	"github.com/causeless8t/SocketBase/neterr"
)

// sendLoop drains the outgoing queue and writes every frame it finds,
// oldest first, then sleeps for the poll interval.  It owns the write
// half of conn for the lifetime of one connection.
//
// Write errors fall into two classes.  A timeout loses the frame in
// flight but leaves the socket usable, so the loop reports it and
// moves on.  Anything unusable ends the lifecycle: the loop returns
// and lets the receive loop's exit path produce the disconnect
// notification.
func (s *CommandSocket) sendLoop(ctx context.Context, wg *sync.WaitGroup, conn net.Conn, cfg config.Config) {
	defer wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		if !s.IsConnected() {
			return
		}

		backlog := s.queue.drain()
		for i, frame := range backlog {
			if ctx.Err() != nil {
				releaseAll(backlog[i:])
				return
			}

			err := s.writeFrame(ctx, conn, frame)
			if err == nil {
				frame.release()
				continue
			}
			if ctx.Err() != nil || neterr.IsClosing(err) {
				s.log.Debug("send loop exiting: %v", err)
				releaseAll(backlog[i:])
				return
			}

			se := neterr.Wrap("write", conn.RemoteAddr().String(), err)
			if !se.Unusable && frame.cursor > 0 {
				// A partial frame already hit the wire, so the stream
				// can no longer carry aligned frames.  What would be a
				// recoverable error becomes fatal here.
				se.Unusable = true
			}
			s.stats.RecordError(se.Error())
			s.log.Error("%v", se)
			s.hooks.fireSocketError(se)

			if se.Unusable {
				releaseAll(backlog[i:])
				return
			}
			// Recoverable with nothing on the wire, typically a write
			// timeout.  Drop this frame and carry on with the next.
			s.stats.FrameDropped()
			frame.release()
		}

		if !sleepCtx(ctx, cfg.SendPollInterval) {
			return
		}
	}
}

// writeFrame pushes one frame out, advancing its cursor across partial
// writes until nothing remains.  The kernel accepting fewer bytes than
// offered is not an error; only a failed Write call ends the attempt.
func (s *CommandSocket) writeFrame(ctx context.Context, conn net.Conn, frame *sendBuffer) error {
	for !frame.done() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d := s.timeout(); d > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
				return err
			}
		}
		n, err := conn.Write(frame.remaining())
		if n > 0 {
			frame.advance(n)
			s.stats.BytesSent(int64(n))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes
// first.  It reports false when the context ended the wait.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
