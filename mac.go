package srtp

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 3711 mandates HMAC-SHA1, not raw SHA1.
	"crypto/subtle"
	"hash"

	"github.com/aead/skein"
)

// newMAC builds the keyed hash.Hash backing an AuthKind, so RtpContext and
// RtcpContext can authenticate generically over "init(key), write(bytes),
// sum(tag)". Skein uses the native MAC construction (a keyed Skein-512)
// rather than HMAC, per the Skein specification.
func newMAC(kind AuthKind, key []byte) (hash.Hash, error) {
	switch kind {
	case AuthHMACSHA1:
		return hmac.New(sha1.New, key), nil
	case AuthSkein:
		return skein.New512(key), nil
	default:
		return nil, unsupportedAuthError(kind)
	}
}

type unsupportedAuthError AuthKind

func (e unsupportedAuthError) Error() string { return "srtp: unsupported auth kind" }

// computeTag resets mac, writes M into it, sums it, and truncates the sum
// to tagLen, so the same hash can be reused for every packet.
func computeTag(mac hash.Hash, m []byte, tagLen int) []byte {
	mac.Reset()
	mac.Write(m)
	full := mac.Sum(nil)
	return full[:tagLen]
}

// constantTimeEqual reports whether a and b are equal, in time independent
// of where they first differ. Tag comparison must not leak the position of
// the first mismatched byte.
func constantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
