package filetransfer

import "encoding/binary"

// FrameType tags a binary data-plane chunk, its data-plane
// framing: type(u8) || size(u16 big-endian) || payload(size bytes).
type FrameType byte

const (
	FrameData FrameType = 0x00
	FrameStreamStart FrameType = 0x01
	FrameStreamEnd FrameType = 0x02
)

const frameHeaderLen = 3

// Frame is one decoded chunk off the data stream.
type Frame struct {
	Type FrameType
	Payload []byte
}

// EncodeFrame renders a single frame for writing to the data stream.
func EncodeFrame(t FrameType, payload []byte) []byte {
	buf := make([]byte, frameHeaderLen+len(payload))
	buf[0] = byte(t)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[3:], payload)
	return buf
}

// Decoder reassembles frames from however the data stream happens to
// deliver bytes. It is the re-entrant reader described: a
// readable notification may hand over only a frame's header, or only
// part of its payload; Decoder stashes what it has parsed so far
// (expecting_len in the this core's terms) and continues on the
// next Feed call instead of blocking.
type Decoder struct {
	buf []byte
	haveHeader bool
	pendingType FrameType
	pendingLen int
}

// Feed appends newly read bytes and returns every frame that is now
// fully assembled. Bytes belonging to a still-incomplete frame remain
// buffered for the next call.
func (d *Decoder) Feed(p []byte) []Frame {
	d.buf = append(d.buf, p...)

	var frames []Frame
	for {
		if !d.haveHeader {
			if len(d.buf) < frameHeaderLen {
				break
			}
			d.pendingType = FrameType(d.buf[0])
			d.pendingLen = int(binary.BigEndian.Uint16(d.buf[1:3]))
			d.buf = d.buf[frameHeaderLen:]
			d.haveHeader = true
		}
		if len(d.buf) < d.pendingLen {
			break
		}
		payload := make([]byte, d.pendingLen)
		copy(payload, d.buf[:d.pendingLen])
		d.buf = d.buf[d.pendingLen:]
		frames = append(frames, Frame{Type: d.pendingType, Payload: payload})
		d.haveHeader = false
	}
	return frames
}
