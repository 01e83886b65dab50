package socket

import (
	"github.com/lithdew/bytesutil"

	"github.com/causeless8t/SocketBase/util"
)

// headerSize is the wire overhead of every frame: a 4-byte big-endian
// signed command identifier.  No length field exists; the payload runs
// to the end of the delivery.
const headerSize = 4

// appendFrame encodes command and payload onto dst.
func appendFrame(dst []byte, command int32, payload []byte) []byte {
	dst = bytesutil.AppendUint32BE(dst, uint32(command))
	return append(dst, payload...)
}

// decodeFrame splits a delivery into command and payload.  The payload
// aliases raw; callers decide how long it stays valid.
func decodeFrame(raw []byte) (int32, []byte) {
	return int32(bytesutil.Uint32BE(raw[:headerSize])), raw[headerSize:]
}

// SendMessage frames payload under command and hands the result to the
// send loop's queue.  The payload is copied during encoding, so the
// caller may reuse its slice immediately.  Reports whether the frame
// was accepted; a disconnected socket rejects frames.
func (s *CommandSocket) SendMessage(command int32, payload []byte) bool {
	frame := newSendBuffer(command, payload)
	if !s.CanSend(frame.bb.B) {
		frame.release()
		return false
	}
	s.queue.push(frame)
	s.stats.FrameQueued()
	s.log.Trace("queued frame cmd=%d len=%d", command, frame.size())
	return true
}

// dispatchRaw decodes one delivery and fans it out to the packet
// callbacks.  An empty delivery is ignored entirely.  A delivery
// shorter than the header cannot carry a command and is dropped with a
// diagnostic.  Each delivery produces a fresh Packet whose payload
// aliases raw.
func (s *CommandSocket) dispatchRaw(raw []byte) {
	if len(raw) == 0 {
		return
	}
	if len(raw) < headerSize {
		s.log.Warn("dropping %d-byte delivery, shorter than the %d-byte frame header", len(raw), headerSize)
		s.stats.FrameDropped()
		return
	}
	command, payload := decodeFrame(raw)
	s.log.Trace("frame cmd=%d payload=[%s]", command, util.HexPreview(payload, 16))
	s.hooks.firePacket(Packet{Command: command, Payload: payload})
}
