package srtp

import (
	"golang.org/x/xerrors"

	"github.com/kailua-labs/srtp/internal/packet"
)

// RTP version this package understands (RFC 3550 section 5.1).
const rtpVersion = 2

const (
	rtpHeaderSize  = 12
	rtcpHeaderSize = 8
)

var errBadVersion = xerrors.New("srtp: unsupported RTP version")
var errShortHeader = xerrors.New("srtp: buffer shorter than header")

// RtpHeader is the fixed 12-byte RTP header plus any CSRC identifiers
// (RFC 3550 section 5.1). Only the fields the SRTP transforms need are
// exposed; extension headers are left in the payload untouched, since SRTP
// encrypts and authenticates them opaquely.
type RtpHeader struct {
	Marker      bool
	PayloadType uint8
	Sequence    uint16
	Timestamp   uint32
	SSRC        uint32
	CSRC        []uint32
}

// Length returns the header's size on the wire, including CSRC identifiers.
func (h *RtpHeader) Length() int {
	return rtpHeaderSize + 4*len(h.CSRC)
}

func (h *RtpHeader) writeTo(w *packet.Writer) {
	w.WriteByte(byte(rtpVersion<<6) | byte(len(h.CSRC)&0x0f))
	pt := h.PayloadType & 0x7f
	if h.Marker {
		pt |= 0x80
	}
	w.WriteByte(pt)
	w.WriteUint16(h.Sequence)
	w.WriteUint32(h.Timestamp)
	w.WriteUint32(h.SSRC)
	for _, csrc := range h.CSRC {
		w.WriteUint32(csrc)
	}
}

// readRtpHeader parses the fixed header and any CSRC identifiers from buf,
// returning the header and the byte offset of the payload.
func readRtpHeader(buf []byte) (RtpHeader, int, error) {
	if len(buf) < rtpHeaderSize {
		return RtpHeader{}, 0, errShortHeader
	}

	r := packet.NewReader(buf)
	first := r.ReadByte()
	version := first >> 6
	if version != rtpVersion {
		return RtpHeader{}, 0, errBadVersion
	}
	csrcCount := int(first & 0x0f)
	if err := r.CheckRemaining(1 + 2 + 4 + 4 + 4*csrcCount); err != nil {
		return RtpHeader{}, 0, errShortHeader
	}

	second := r.ReadByte()
	var h RtpHeader
	h.Marker = second&0x80 != 0
	h.PayloadType = second & 0x7f
	h.Sequence = r.ReadUint16()
	h.Timestamp = r.ReadUint32()
	h.SSRC = r.ReadUint32()
	if csrcCount > 0 {
		h.CSRC = make([]uint32, csrcCount)
		for i := range h.CSRC {
			h.CSRC[i] = r.ReadUint32()
		}
	}

	return h, h.Length(), nil
}

// marshalRtpHeader serializes h into a fresh buffer sized for header+payload,
// writes the header, and returns the buffer along with the payload offset.
func marshalRtpHeader(h *RtpHeader, payloadLen int) ([]byte, int) {
	offset := h.Length()
	buf := make([]byte, offset+payloadLen)
	w := packet.NewWriter(buf)
	h.writeTo(w)
	return buf, offset
}

// rtcpSSRC extracts the sender SSRC from an RTCP compound packet's first
// 8-byte header (RFC 3550 section 6.4.1, byte layout shared by every RTCP
// packet type this package treats opaquely).
func rtcpSSRC(buf []byte) (uint32, error) {
	if len(buf) < rtcpHeaderSize {
		return 0, errShortHeader
	}
	r := packet.NewReader(buf)
	r.Skip(4)
	return r.ReadUint32(), nil
}
