package srtp

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func sampleRTCP(ssrc uint32) []byte {
	buf := make([]byte, 16)
	buf[0] = 0x80
	buf[1] = 200 // sender report
	binary.BigEndian.PutUint16(buf[2:4], 3)
	binary.BigEndian.PutUint32(buf[4:8], ssrc)
	copy(buf[8:], []byte("12345678"))
	return buf
}

func newRtcpPair(t *testing.T) (*RtcpContext, *RtcpContext) {
	t.Helper()
	sender, err := NewRtcpContext(0xCAFEBABE, true, testPolicy(), testMaster(t), true)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewRtcpContext(0xCAFEBABE, false, testPolicy(), testMaster(t), true)
	if err != nil {
		t.Fatal(err)
	}
	return sender, receiver
}

func TestRtcpRoundTrip(t *testing.T) {
	sender, receiver := newRtcpPair(t)

	plaintext := sampleRTCP(0xCAFEBABE)
	packet, err := sender.Transform(plaintext)
	if err != nil {
		t.Fatal(err)
	}

	got, err := receiver.ReverseTransform(packet)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("rtcp round trip mismatch: got %x want %x", got, plaintext)
	}
}

// SRTCP must honor the policy's encryption kind: an F8 suite routes the
// compound packet through the F8 transform, not counter mode.
func TestRtcpRoundTripF8(t *testing.T) {
	policy, err := PolicyForProfile(protectionProfileAES128F8HMACSHA1_80)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := NewRtcpContext(0xCAFEBABE, true, policy, testMaster(t), true)
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := NewRtcpContext(0xCAFEBABE, false, policy, testMaster(t), true)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := sampleRTCP(0xCAFEBABE)
	for i := 0; i < 3; i++ {
		packet, err := sender.Transform(append([]byte(nil), plaintext...))
		if err != nil {
			t.Fatalf("packet %d: transform failed: %v", i, err)
		}
		got, err := receiver.ReverseTransform(packet)
		if err != nil {
			t.Fatalf("packet %d: reverse transform failed: %v", i, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("packet %d: round trip mismatch: got %x want %x", i, got, plaintext)
		}
	}
}

func TestRtcpIndexIncrements(t *testing.T) {
	sender, receiver := newRtcpPair(t)

	for i := 0; i < 3; i++ {
		packet, err := sender.Transform(sampleRTCP(0xCAFEBABE))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := receiver.ReverseTransform(packet); err != nil {
			t.Fatal(err)
		}
	}

	if sender.index != 3 {
		t.Errorf("expected sender index 3, got %d", sender.index)
	}
}

func TestRtcpReplayRejected(t *testing.T) {
	sender, receiver := newRtcpPair(t)

	packet, err := sender.Transform(sampleRTCP(0xCAFEBABE))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := receiver.ReverseTransform(packet); err != nil {
		t.Fatal(err)
	}

	_, err = receiver.ReverseTransform(packet)
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindReplayed {
		t.Fatalf("expected Replayed, got %v", err)
	}
}

func TestRtcpAuthFailureRejected(t *testing.T) {
	sender, receiver := newRtcpPair(t)

	packet, err := sender.Transform(sampleRTCP(0xCAFEBABE))
	if err != nil {
		t.Fatal(err)
	}
	packet[len(packet)-1] ^= 0xff

	_, err = receiver.ReverseTransform(packet)
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindAuthFailed {
		t.Fatalf("expected AuthFailed, got %v", err)
	}
}

func TestRtcpIndexOverflowIsFatal(t *testing.T) {
	sender, _ := newRtcpPair(t)
	sender.index = maxSRTCPIndex + 1

	_, err := sender.Transform(sampleRTCP(0xCAFEBABE))
	if ce, ok := err.(*ContextError); !ok || ce.Kind != ErrKindIndexOverflow {
		t.Fatalf("expected IndexOverflow, got %v", err)
	}
}
