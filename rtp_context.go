package srtp

import (
	"encoding/binary"
)

// RtpContext is the per-SSRC SRTP state machine for media packets
// (RFC 3711 section 3.3). A single RtpContext must never be entered
// concurrently; distinct SSRCs are independent.
type RtpContext struct {
	base BaseContext

	ssrc     uint32
	isSender bool

	roc uint32
	sL  uint16

	seqInitialized bool
	replayWindow   ReplayWindow
	replayEnabled  bool

	keyDerivationRate uint64

	// guessedROC is set by guessIndex as a side effect and consumed later
	// in the same Transform/ReverseTransform call.
	guessedROC uint32
}

// NewRtpContext constructs an RtpContext for one SSRC. isSender selects the
// transform (send) or reverseTransform (receive) role; a context is never
// used for both.
func NewRtpContext(ssrc uint32, isSender bool, policy Policy, master MasterKeyMaterial, keyDerivationRate uint64, replayEnabled bool) (*RtpContext, error) {
	base, err := newBaseContext(policy, master, false)
	if err != nil {
		return nil, err
	}
	return &RtpContext{
		base:              *base,
		ssrc:              ssrc,
		isSender:          isSender,
		keyDerivationRate: keyDerivationRate,
		replayEnabled:     replayEnabled,
	}, nil
}

// localIndex returns the 48-bit index corresponding to the committed
// (roc, sL) pair.
func (c *RtpContext) localIndex() uint64 {
	return uint64(c.roc)<<16 | uint64(c.sL)
}

// guessIndex estimates the 48-bit packet index for seq given the current
// roc/sL, per RFC 3711 section 3.3.1. It sets guessedROC as a side effect
// and returns the full index.
func (c *RtpContext) guessIndex(seq uint16) uint64 {
	var guessedROC uint32

	switch {
	case c.sL < 32768:
		if int32(seq)-int32(c.sL) > 32768 {
			guessedROC = c.roc - 1
		} else {
			guessedROC = c.roc
		}
	default:
		if int32(c.sL)-32768 > int32(seq) {
			guessedROC = c.roc + 1
		} else {
			guessedROC = c.roc
		}
	}

	c.guessedROC = guessedROC
	return uint64(guessedROC)<<16 | uint64(seq)
}

// replayCheck reports whether the packet at guessedIndex would be accepted
// against the current window, without mutating any state. If replay
// protection is disabled it always accepts.
func (c *RtpContext) replayCheck(guessedIndex uint64) error {
	if !c.replayEnabled {
		return nil
	}

	delta := int64(guessedIndex) - int64(c.localIndex())
	switch c.replayWindow.Check(delta) {
	case replayDuplicate:
		return &ContextError{Kind: ErrKindReplayed, SSRC: c.ssrc, Index: guessedIndex}
	case replayTooOld:
		return &ContextError{Kind: ErrKindTooOld, SSRC: c.ssrc, Index: guessedIndex}
	default:
		return nil
	}
}

// update commits seq/guessedIndex into the context: advancing the replay
// window, and rolling roc/sL forward according to the relationship between
// guessedROC and roc (RFC 3711 section 3.3.1, step 4).
func (c *RtpContext) update(seq uint16, guessedIndex uint64) {
	delta := int64(guessedIndex) - int64(c.localIndex())
	c.replayWindow.Accept(delta)

	switch {
	case c.guessedROC == c.roc:
		if seq > c.sL {
			c.sL = seq
		}
	case c.guessedROC == c.roc+1:
		c.sL = seq
		c.roc = c.guessedROC
	}
	// guessedROC == roc-1: late packet from a previous wrap; no change.
}

// processPayload dispatches the packet's payload through the configured
// encryption kind in place.
func (c *RtpContext) processPayload(header *RtpHeader, index uint64, payload []byte) error {
	switch c.base.policy.Encryption {
	case EncryptionNone:
		return nil
	case EncryptionAESCM, EncryptionTwofishCM:
		iv := cmIV(c.base.keys.SaltKey, c.ssrc, index)
		processCM(c.base.block, iv, payload)
		return nil
	case EncryptionAESF8, EncryptionTwofishF8:
		hdrBuf, _ := marshalRtpHeader(header, 0)
		iv := f8IV(hdrBuf, c.guessedROC)
		processF8(c.base.block, c.base.f8Block, iv, payload)
		return nil
	default:
		return unsupportedCipherError(c.base.policy.Encryption)
	}
}

// Transform protects an outgoing RTP packet: encrypts the payload,
// appends the authentication tag, and returns the full SRTP wire packet
// (RFC 3711 section 3.3).
func (c *RtpContext) Transform(header RtpHeader, payload []byte) ([]byte, error) {
	seq := header.Sequence
	if !c.seqInitialized {
		c.sL = seq
		c.seqInitialized = true
	}

	guessedIndex := c.guessIndex(seq)
	if c.guessedROC == 0 && c.roc == ^uint32(0) {
		// The 48-bit packet index is exhausted; the stream must be
		// re-keyed, not wrapped.
		return nil, &ContextError{Kind: ErrKindIndexOverflow, SSRC: c.ssrc, Index: guessedIndex}
	}
	header.SSRC = c.ssrc

	if c.base.needsDerivation(guessedIndex, c.keyDerivationRate) {
		if err := c.base.deriveKeys(guessedIndex, c.keyDerivationRate, false); err != nil {
			return nil, err
		}
	}

	if err := c.replayCheck(guessedIndex); err != nil {
		// A sender failing its own replay check means the caller is
		// reusing a sequence number it already sent.
		return nil, err
	}

	buf, payloadStart := marshalRtpHeader(&header, len(payload))
	copy(buf[payloadStart:], payload)

	if err := c.processPayload(&header, guessedIndex, buf[payloadStart:]); err != nil {
		return nil, err
	}

	if c.base.policy.Auth != AuthNone {
		// The tag covers the ROC of this packet's index, which at a wrap
		// boundary is guessedROC (roc itself is not committed until
		// update runs below).
		m := make([]byte, len(buf)+4)
		copy(m, buf)
		binary.BigEndian.PutUint32(m[len(buf):], c.guessedROC)
		tag := c.base.authTag(m)
		buf = append(buf, tag...)
	}

	c.update(seq, guessedIndex)
	return buf, nil
}

// ReverseTransform unprotects a received SRTP packet: verifies the
// authentication tag in constant time, decrypts the payload, and returns
// the recovered RTP header and payload (RFC 3711 section 3.3). It mutates
// no committed state on any rejection path.
func (c *RtpContext) ReverseTransform(buf []byte) (RtpHeader, []byte, error) {
	header, payloadStart, err := readRtpHeader(buf)
	if err != nil {
		return RtpHeader{}, nil, &ContextError{Kind: ErrKindPacketTooShort, SSRC: c.ssrc}
	}

	tagLen := c.base.policy.AuthTagLen
	if len(buf) < payloadStart+tagLen {
		return RtpHeader{}, nil, &ContextError{Kind: ErrKindPacketTooShort, SSRC: c.ssrc}
	}

	seq := header.Sequence
	wasJustInitialized := false
	savedSL := c.sL
	savedInitialized := c.seqInitialized
	if !c.seqInitialized {
		c.sL = seq
		c.seqInitialized = true
		wasJustInitialized = true
	}

	guessedIndex := c.guessIndex(seq)

	if err := c.replayCheck(guessedIndex); err != nil {
		c.sL = savedSL
		c.seqInitialized = savedInitialized
		return RtpHeader{}, nil, err
	}

	if c.base.needsDerivation(guessedIndex, c.keyDerivationRate) {
		if err := c.base.deriveKeys(guessedIndex, c.keyDerivationRate, false); err != nil {
			c.sL = savedSL
			c.seqInitialized = savedInitialized
			return RtpHeader{}, nil, err
		}
	}

	tagStart := len(buf) - tagLen
	authenticated := buf[:tagStart]
	receivedTag := buf[tagStart:]

	if c.base.policy.Auth != AuthNone {
		m := make([]byte, tagStart+4)
		copy(m, authenticated)
		binary.BigEndian.PutUint32(m[tagStart:], c.guessedROC)
		expectedTag := c.base.authTag(m)

		if !constantTimeEqual(expectedTag, receivedTag) {
			if wasJustInitialized {
				c.seqInitialized = false
				c.sL = 0
			} else {
				c.sL = savedSL
				c.seqInitialized = savedInitialized
			}
			return RtpHeader{}, nil, &ContextError{Kind: ErrKindAuthFailed, SSRC: c.ssrc, Index: guessedIndex}
		}
	}

	payload := append([]byte(nil), buf[payloadStart:tagStart]...)
	if err := c.processPayload(&header, guessedIndex, payload); err != nil {
		c.sL = savedSL
		c.seqInitialized = savedInitialized
		return RtpHeader{}, nil, err
	}

	c.update(seq, guessedIndex)
	return header, payload, nil
}

// Close zeroizes the context's key material.
func (c *RtpContext) Close() {
	c.base.close()
}
