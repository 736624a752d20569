package srtp

import (
	"bytes"
	"testing"
)

func testPolicy() Policy {
	return Policy{
		Encryption: EncryptionAESCM,
		Auth:       AuthHMACSHA1,
		EncKeyLen:  16, AuthKeyLen: 20, SaltKeyLen: 14,
		AuthTagLen: 10, RTCPAuthTagLen: 10,
	}
}

func testMaster(t *testing.T) MasterKeyMaterial {
	t.Helper()
	return MasterKeyMaterial{
		Key:  mustHex(t, "E1F97A0D3E018BE0D64FA32C06DE4139"),
		Salt: mustHex(t, "0EC675AD498AFEEBB6960B3AABE6"),
	}
}

// Known-answer test using the RFC 3711 Appendix B master key and salt
// against a fixed ssrc/seq/payload combination.
func TestTransformKnownAnswer(t *testing.T) {
	ctx, err := NewRtpContext(12345678, true, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}

	header := RtpHeader{PayloadType: 1, Timestamp: 2, Sequence: 1}
	plaintext := []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	}
	wantCiphertext := mustHex(t, "7c640603e81d440df23ddbe5b07f887a")

	packet, err := ctx.Transform(header, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	got := packet[header.Length() : header.Length()+16]
	if !bytes.Equal(got, wantCiphertext) {
		t.Errorf("ciphertext mismatch: got %x want %x", got, wantCiphertext)
	}
}

func newRtpPair(t *testing.T) (*RtpContext, *RtpContext) {
	t.Helper()
	sender, err := NewRtpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewRtpContext(0xCAFEBABE, false, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	return sender, receiver
}

// Regression test: BaseContext.deriveKeys used to wipe the master key
// after every derivation, including the first, so the second derivation
// at the next key_derivation_rate boundary ran AES-CM keystream
// generation against a nil key and every packet past that point failed.
func TestKeyDerivationRateReDerivation(t *testing.T) {
	const kdr = 4
	sender, err := NewRtpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), kdr, true)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewRtpContext(0xCAFEBABE, false, testPolicy(), testMaster(t), kdr, true)
	if err != nil {
		t.Fatal(err)
	}

	// Drive the stream across two KDR boundaries (index 4 and index 8),
	// so deriveKeys must run a third time using the same master key.
	for seq := uint16(0); seq < 10; seq++ {
		header := RtpHeader{PayloadType: 96, Timestamp: uint32(seq), Sequence: seq}
		payload := []byte("payload")
		packet, err := sender.Transform(header, payload)
		if err != nil {
			t.Fatalf("seq %d: transform failed: %v", seq, err)
		}
		_, gotPayload, err := receiver.ReverseTransform(packet)
		if err != nil {
			t.Fatalf("seq %d: reverse transform failed (past a KDR boundary?): %v", seq, err)
		}
		if !bytes.Equal(gotPayload, payload) {
			t.Fatalf("seq %d: payload mismatch: got %q want %q", seq, gotPayload, payload)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	sender, receiver := newRtpPair(t)

	header := RtpHeader{PayloadType: 96, Timestamp: 1000, Sequence: 42, Marker: true}
	payload := []byte("a sample media payload")

	packet, err := sender.Transform(header, append([]byte(nil), payload...))
	if err != nil {
		t.Fatal(err)
	}

	gotHeader, gotPayload, err := receiver.ReverseTransform(packet)
	if err != nil {
		t.Fatal(err)
	}
	if gotHeader.Sequence != header.Sequence || gotHeader.Timestamp != header.Timestamp || gotHeader.Marker != header.Marker {
		t.Errorf("header mismatch: got %+v want %+v", gotHeader, header)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload mismatch: got %q want %q", gotPayload, payload)
	}
}

// Round-trip every negotiable cipher suite beyond the AES-CM/HMAC default:
// both F8 modes, both Twofish modes, and the Skein MAC. Each profile's
// sender and receiver share master material, so any asymmetry between the
// forward and reverse transforms (IV construction, key masking, tag input)
// shows up as a decrypt mismatch or an auth failure.
func TestRoundTripCipherSuites(t *testing.T) {
	profiles := map[string]ProtectionProfile{
		"aes128-f8-hmac-sha1-80":     protectionProfileAES128F8HMACSHA1_80,
		"twofish128-cm-hmac-sha1-80": protectionProfileTwofish128CMHMACSHA1_80,
		"twofish128-f8-hmac-sha1-80": protectionProfileTwofish128F8HMACSHA1_80,
		"aes128-cm-skein-80":         protectionProfileAES128CMSkein_80,
	}

	for name, profile := range profiles {
		t.Run(name, func(t *testing.T) {
			policy, err := PolicyForProfile(profile)
			if err != nil {
				t.Fatal(err)
			}

			sender, err := NewRtpContext(0xCAFEBABE, true, policy, testMaster(t), 0, true)
			if err != nil {
				t.Fatal(err)
			}
			receiver, err := NewRtpContext(0xCAFEBABE, false, policy, testMaster(t), 0, true)
			if err != nil {
				t.Fatal(err)
			}

			payload := []byte("a sample media payload")
			for _, seq := range []uint16{65534, 65535, 0, 1} {
				header := RtpHeader{PayloadType: 96, Timestamp: uint32(seq), Sequence: seq}
				packet, err := sender.Transform(header, append([]byte(nil), payload...))
				if err != nil {
					t.Fatalf("seq %d: transform failed: %v", seq, err)
				}
				_, gotPayload, err := receiver.ReverseTransform(packet)
				if err != nil {
					t.Fatalf("seq %d: reverse transform failed: %v", seq, err)
				}
				if !bytes.Equal(gotPayload, payload) {
					t.Fatalf("seq %d: payload mismatch: got %x want %x", seq, gotPayload, payload)
				}
			}

			// A tampered tag must still be rejected under this suite.
			header := RtpHeader{PayloadType: 96, Timestamp: 2, Sequence: 2}
			forged, err := sender.Transform(header, append([]byte(nil), payload...))
			if err != nil {
				t.Fatal(err)
			}
			forged[len(forged)-1] ^= 0xff
			if _, _, err := receiver.ReverseTransform(forged); err == nil {
				t.Fatal("expected tampered packet to be rejected")
			}
		})
	}
}

// Scenario 1: sequence wrap. Sender transmits 65534, 65535, 0, 1; receiver
// must accept all four and end with roc=1, sL=1.
func TestSequenceWrap(t *testing.T) {
	sender, receiver := newRtpPair(t)

	for _, seq := range []uint16{65534, 65535, 0, 1} {
		header := RtpHeader{PayloadType: 96, Timestamp: uint32(seq), Sequence: seq}
		packet, err := sender.Transform(header, []byte("payload"))
		if err != nil {
			t.Fatalf("seq %d: transform failed: %v", seq, err)
		}
		if _, _, err := receiver.ReverseTransform(packet); err != nil {
			t.Fatalf("seq %d: reverse transform rejected: %v", seq, err)
		}
	}

	if receiver.roc != 1 {
		t.Errorf("expected roc=1 after wrap, got %d", receiver.roc)
	}
	if receiver.sL != 1 {
		t.Errorf("expected sL=1 after wrap, got %d", receiver.sL)
	}
}

// Scenario 2: late-after-wrap. After the wrap in scenario 1, a packet from
// the pre-wrap ROC arrives late; it authenticates but does not move roc or
// sL backwards.
func TestLateAfterWrap(t *testing.T) {
	sender, receiver := newRtpPair(t)

	for _, seq := range []uint16{65534, 65535, 0, 1} {
		header := RtpHeader{PayloadType: 96, Timestamp: uint32(seq), Sequence: seq}
		packet, err := sender.Transform(header, []byte("payload"))
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := receiver.ReverseTransform(packet); err != nil {
			t.Fatal(err)
		}
	}

	// Re-derive the same ciphertext the original sender would have produced
	// for seq=65533 back when its own roc was still 0, by rolling back a
	// fresh sender context to that point in the stream.
	lateSender, err := NewRtpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	lateHeader := RtpHeader{PayloadType: 96, Timestamp: 65533, Sequence: 65533}
	latePacket, err := lateSender.Transform(lateHeader, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := receiver.ReverseTransform(latePacket); err != nil {
		t.Fatalf("expected late packet to authenticate, got %v", err)
	}
	if receiver.roc != 1 {
		t.Errorf("roc must stay at 1 after a late pre-wrap packet, got %d", receiver.roc)
	}
	if receiver.sL != 1 {
		t.Errorf("sL must stay at 1 after a late pre-wrap packet, got %d", receiver.sL)
	}
}

// Scenario 3: replay.
func TestReplayRejected(t *testing.T) {
	sender, receiver := newRtpPair(t)

	header := RtpHeader{PayloadType: 96, Timestamp: 1, Sequence: 1}
	packet, err := sender.Transform(header, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := receiver.ReverseTransform(packet); err != nil {
		t.Fatal(err)
	}

	_, _, err = receiver.ReverseTransform(packet)
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindReplayed {
		t.Fatalf("expected Replayed, got %v", err)
	}
}

// Scenario 4: forged tag on first packet rolls back init state, then the
// legitimate first packet is accepted normally.
func TestForgedTagOnFirstPacketRollsBack(t *testing.T) {
	sender, receiver := newRtpPair(t)

	header := RtpHeader{PayloadType: 96, Timestamp: 1, Sequence: 7}
	forged, err := sender.Transform(header, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	forged[len(forged)-1] ^= 0xff // corrupt the tag

	_, _, err = receiver.ReverseTransform(forged)
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindAuthFailed {
		t.Fatalf("expected AuthFailed, got %v", err)
	}
	if receiver.seqInitialized {
		t.Error("expected seqInitialized to roll back to false")
	}
	if receiver.sL != 0 {
		t.Errorf("expected sL to roll back to 0, got %d", receiver.sL)
	}

	freshSender, freshReceiver := newRtpPair(t)
	freshForged, err := freshSender.Transform(RtpHeader{PayloadType: 96, Timestamp: 7, Sequence: 7}, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	freshForged[len(freshForged)-1] ^= 0xff
	if _, _, err := freshReceiver.ReverseTransform(freshForged); err == nil {
		t.Fatal("expected forged first packet to fail")
	}

	freshSender2, err := NewRtpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	good, err := freshSender2.Transform(RtpHeader{PayloadType: 96, Timestamp: 7, Sequence: 7}, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := freshReceiver.ReverseTransform(good); err != nil {
		t.Fatalf("expected legitimate first packet to be accepted after rollback, got %v", err)
	}
	if !freshReceiver.seqInitialized {
		t.Error("expected seqInitialized to be true after accepting the legitimate first packet")
	}
}

// Scenario 6: out-of-window.
func TestOutOfWindowRejected(t *testing.T) {
	receiver, err := NewRtpContext(0xCAFEBABE, false, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	receiver.seqInitialized = true
	receiver.roc = 0
	receiver.sL = 1000
	receiver.replayWindow.Accept(0)

	// index = 900, local index = 1000, delta = -100, beyond the 64-wide window.
	guessedIndex := receiver.guessIndex(900)
	if err := receiver.replayCheck(guessedIndex); err == nil {
		t.Fatal("expected rejection")
	} else if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindTooOld {
		t.Fatalf("expected TooOld, got %v", err)
	}
}

func TestSenderIndexOverflowIsFatal(t *testing.T) {
	sender, err := NewRtpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	sender.seqInitialized = true
	sender.roc = ^uint32(0)
	sender.sL = 65535
	sender.replayWindow.Accept(0)

	// The next sequence number wraps, which would carry the 48-bit index
	// past its maximum.
	header := RtpHeader{PayloadType: 96, Sequence: 0}
	_, err = sender.Transform(header, []byte("payload"))
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindIndexOverflow {
		t.Fatalf("expected IndexOverflow, got %v", err)
	}
}

func TestIdempotentRejectionLeavesStateUnchanged(t *testing.T) {
	sender, receiver := newRtpPair(t)

	header := RtpHeader{PayloadType: 96, Timestamp: 1, Sequence: 3}
	forged, err := sender.Transform(header, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	forged[len(forged)-1] ^= 0xff

	_, _, err1 := receiver.ReverseTransform(forged)
	stateAfterFirst := *receiver
	_, _, err2 := receiver.ReverseTransform(forged)

	if err1 == nil || err2 == nil {
		t.Fatal("expected both rejections to fail")
	}
	if receiver.seqInitialized != stateAfterFirst.seqInitialized || receiver.sL != stateAfterFirst.sL || receiver.roc != stateAfterFirst.roc {
		t.Error("expected identical state across both rejections")
	}
}
