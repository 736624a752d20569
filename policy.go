package srtp

// EncryptionKind selects the block-cipher mode used to protect RTP/RTCP
// payloads (RFC 3711 section 4.1).
type EncryptionKind int

const (
	EncryptionNone EncryptionKind = iota
	EncryptionAESCM
	EncryptionAESF8
	EncryptionTwofishCM
	EncryptionTwofishF8
)

// AuthKind selects the keyed MAC used to authenticate RTP/RTCP packets.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthHMACSHA1
	AuthSkein
)

// Policy is an immutable description of a negotiated SRTP cipher suite. It
// carries no mutable state and may be shared freely across contexts.
type Policy struct {
	Encryption EncryptionKind
	Auth       AuthKind

	EncKeyLen      int
	AuthKeyLen     int
	SaltKeyLen     int
	AuthTagLen     int
	RTCPAuthTagLen int
}

// Validate checks that the length fields are consistent with the chosen
// algorithms: an auth kind of None must carry zero tag lengths.
func (p Policy) Validate() error {
	if p.Auth == AuthNone && (p.AuthTagLen != 0 || p.RTCPAuthTagLen != 0) {
		return errInvalidPolicy("auth kind None requires zero tag lengths")
	}
	if p.Auth != AuthNone && (p.AuthTagLen == 0 || p.RTCPAuthTagLen == 0) {
		return errInvalidPolicy("non-None auth kind requires non-zero tag lengths")
	}
	if p.Encryption != EncryptionNone && p.EncKeyLen == 0 {
		return errInvalidPolicy("non-None encryption kind requires non-zero key length")
	}
	return nil
}

type policyError string

func (e policyError) Error() string { return "srtp: invalid policy: " + string(e) }

func errInvalidPolicy(reason string) error { return policyError(reason) }
