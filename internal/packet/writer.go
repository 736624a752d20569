package packet

import "encoding/binary"

var networkOrder = binary.BigEndian

// Writer serializes RTP/RTCP header fields into a caller-supplied buffer in
// network byte order, the encoding half of the packet package.
type Writer struct {
	buffer []byte
	offset int
}

func NewWriter(buffer []byte) *Writer {
	return &Writer{buffer, 0}
}

func (w *Writer) WriteByte(v byte) {
	w.buffer[w.offset] = v
	w.offset++
}

func (w *Writer) WriteUint16(v uint16) {
	networkOrder.PutUint16(w.buffer[w.offset:], v)
	w.offset += 2
}

func (w *Writer) WriteUint32(v uint32) {
	networkOrder.PutUint32(w.buffer[w.offset:], v)
	w.offset += 4
}

// Length returns the number of bytes written so far.
func (w *Writer) Length() int {
	return w.offset
}
