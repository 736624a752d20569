package srtp

import "encoding/binary"

// eFlagMask marks an SRTCP index as carrying an encrypted payload
// (RFC 3711 section 3.4).
const eFlagMask = 1 << 31

// maxSRTCPIndex is the largest 31-bit SRTCP index; the sender must re-key
// rather than wrap past it.
const maxSRTCPIndex = 1<<31 - 1

// RtcpContext is the per-SSRC SRTCP state machine for control packets
// (RFC 3711 section 3.4). Unlike RtpContext, the packet index is an
// explicit 31-bit counter carried on the wire rather than reconstructed
// from a 16-bit sequence number.
type RtcpContext struct {
	base BaseContext

	ssrc     uint32
	isSender bool

	index        uint32 // next index to send, or highest index accepted
	indexStarted bool

	replayWindow  ReplayWindow
	replayEnabled bool
}

// NewRtcpContext constructs an RtcpContext for one SSRC.
func NewRtcpContext(ssrc uint32, isSender bool, policy Policy, master MasterKeyMaterial, replayEnabled bool) (*RtcpContext, error) {
	base, err := newBaseContext(policy, master, true)
	if err != nil {
		return nil, err
	}
	return &RtcpContext{
		base:          *base,
		ssrc:          ssrc,
		isSender:      isSender,
		replayEnabled: replayEnabled,
	}, nil
}

// Transform protects an outgoing RTCP compound packet: encrypts everything
// after the fixed 8-byte header, appends the E-flag/index word and the
// authentication tag (RFC 3711 section 3.4).
func (c *RtcpContext) Transform(packet []byte) ([]byte, error) {
	if len(packet) < rtcpHeaderSize {
		return nil, &ContextError{Kind: ErrKindPacketTooShort, SSRC: c.ssrc}
	}
	if c.index > maxSRTCPIndex {
		return nil, &ContextError{Kind: ErrKindIndexOverflow, SSRC: c.ssrc, Index: uint64(c.index)}
	}

	index := uint64(c.index)
	if c.base.needsDerivation(index, 0) {
		if err := c.base.deriveKeys(index, 0, true); err != nil {
			return nil, err
		}
	}

	buf := append([]byte(nil), packet...)
	encryptedMask := uint32(0)
	switch c.base.policy.Encryption {
	case EncryptionNone:
	case EncryptionAESCM, EncryptionTwofishCM:
		iv := cmIV(c.base.keys.SaltKey, c.ssrc, index)
		processCM(c.base.block, iv, buf[rtcpHeaderSize:])
		encryptedMask = eFlagMask
	case EncryptionAESF8, EncryptionTwofishF8:
		iv := rtcpF8IV(buf, eFlagMask|c.index)
		processF8(c.base.block, c.base.f8Block, iv, buf[rtcpHeaderSize:])
		encryptedMask = eFlagMask
	default:
		return nil, unsupportedCipherError(c.base.policy.Encryption)
	}

	indexWord := make([]byte, 4)
	binary.BigEndian.PutUint32(indexWord, encryptedMask|c.index)
	buf = append(buf, indexWord...)

	if c.base.policy.Auth != AuthNone {
		tag := c.base.authTag(buf)
		buf = append(buf, tag...)
	}

	c.index++
	return buf, nil
}

// ReverseTransform unprotects a received SRTCP packet: verifies the
// authentication tag, decrypts if the E-flag is set, and returns the
// plaintext RTCP compound packet.
func (c *RtcpContext) ReverseTransform(buf []byte) ([]byte, error) {
	tagLen := c.base.policy.RTCPAuthTagLen
	if len(buf) < rtcpHeaderSize+4+tagLen {
		return nil, &ContextError{Kind: ErrKindPacketTooShort, SSRC: c.ssrc}
	}

	tagStart := len(buf) - tagLen
	indexStart := tagStart - 4
	authenticated := buf[:tagStart]
	receivedTag := buf[tagStart:]

	indexWord := binary.BigEndian.Uint32(buf[indexStart:tagStart])
	index := indexWord &^ eFlagMask
	encrypted := indexWord&eFlagMask != 0

	if c.replayEnabled {
		delta := int64(index) - int64(c.index)
		switch c.replayWindow.Check(delta) {
		case replayDuplicate:
			return nil, &ContextError{Kind: ErrKindReplayed, SSRC: c.ssrc, Index: uint64(index)}
		case replayTooOld:
			return nil, &ContextError{Kind: ErrKindTooOld, SSRC: c.ssrc, Index: uint64(index)}
		}
	}

	if c.base.needsDerivation(uint64(index), 0) {
		if err := c.base.deriveKeys(uint64(index), 0, true); err != nil {
			return nil, err
		}
	}

	if c.base.policy.Auth != AuthNone {
		expectedTag := c.base.authTag(authenticated)
		if !constantTimeEqual(expectedTag, receivedTag) {
			return nil, &ContextError{Kind: ErrKindAuthFailed, SSRC: c.ssrc, Index: uint64(index)}
		}
	}

	plaintext := append([]byte(nil), buf[:indexStart]...)
	if encrypted {
		if _, err := rtcpSSRC(plaintext); err != nil {
			return nil, &ContextError{Kind: ErrKindPacketTooShort, SSRC: c.ssrc}
		}
		switch c.base.policy.Encryption {
		case EncryptionAESCM, EncryptionTwofishCM:
			iv := cmIV(c.base.keys.SaltKey, c.ssrc, uint64(index))
			processCM(c.base.block, iv, plaintext[rtcpHeaderSize:])
		case EncryptionAESF8, EncryptionTwofishF8:
			iv := rtcpF8IV(plaintext, indexWord)
			processF8(c.base.block, c.base.f8Block, iv, plaintext[rtcpHeaderSize:])
		}
	}

	if c.replayEnabled {
		delta := int64(index) - int64(c.index)
		c.replayWindow.Accept(delta)
	}
	if index > c.index || !c.indexStarted {
		c.index = index
		c.indexStarted = true
	}

	return plaintext, nil
}

// Close zeroizes the context's key material.
func (c *RtcpContext) Close() {
	c.base.close()
}
