package srtp

// ProtectionProfile is the 16-bit SRTP protection profile identifier
// negotiated in the DTLS-SRTP "use_srtp" extension (RFC 5764 section 4.1.1).
// This package only consumes the identifier to select a Policy; it performs
// no DTLS negotiation of its own.
type ProtectionProfile uint16

// IANA-assigned protection profiles. The first two are the mandatory set
// from RFC 5764 section 4.1.2; the rest round out Policy's full
// encryption/auth space so every cipher suite combination has a concrete
// profile to drive it end to end.
const (
	ProtectionProfileAES128CMHMACSHA1_80 ProtectionProfile = 0x0001
	ProtectionProfileAES128CMHMACSHA1_32 ProtectionProfile = 0x0002
	ProtectionProfileNullHMACSHA1_80     ProtectionProfile = 0x0005
	ProtectionProfileNullHMACSHA1_32     ProtectionProfile = 0x0006

	// Non-IANA profiles for the F8/Twofish/Skein cipher suites RFC 5764
	// never assigned an identifier to. Negotiated out-of-band by callers
	// that know both ends support them (e.g. a private signaling
	// extension).
	protectionProfileAES128F8HMACSHA1_80     ProtectionProfile = 0xff01
	protectionProfileTwofish128CMHMACSHA1_80 ProtectionProfile = 0xff02
	protectionProfileTwofish128F8HMACSHA1_80 ProtectionProfile = 0xff03
	protectionProfileAES128CMSkein_80        ProtectionProfile = 0xff04
)

// PolicyForProfile maps a negotiated protection profile to the Policy that
// implements it.
func PolicyForProfile(p ProtectionProfile) (Policy, error) {
	switch p {
	case ProtectionProfileAES128CMHMACSHA1_80:
		return Policy{Encryption: EncryptionAESCM, Auth: AuthHMACSHA1, EncKeyLen: 16, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	case ProtectionProfileAES128CMHMACSHA1_32:
		return Policy{Encryption: EncryptionAESCM, Auth: AuthHMACSHA1, EncKeyLen: 16, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 4, RTCPAuthTagLen: 10}, nil
	case ProtectionProfileNullHMACSHA1_80:
		return Policy{Encryption: EncryptionNone, Auth: AuthHMACSHA1, EncKeyLen: 0, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	case ProtectionProfileNullHMACSHA1_32:
		return Policy{Encryption: EncryptionNone, Auth: AuthHMACSHA1, EncKeyLen: 0, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 4, RTCPAuthTagLen: 10}, nil
	case protectionProfileAES128F8HMACSHA1_80:
		return Policy{Encryption: EncryptionAESF8, Auth: AuthHMACSHA1, EncKeyLen: 16, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	case protectionProfileTwofish128CMHMACSHA1_80:
		return Policy{Encryption: EncryptionTwofishCM, Auth: AuthHMACSHA1, EncKeyLen: 16, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	case protectionProfileTwofish128F8HMACSHA1_80:
		return Policy{Encryption: EncryptionTwofishF8, Auth: AuthHMACSHA1, EncKeyLen: 16, AuthKeyLen: 20, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	case protectionProfileAES128CMSkein_80:
		return Policy{Encryption: EncryptionAESCM, Auth: AuthSkein, EncKeyLen: 16, AuthKeyLen: 32, SaltKeyLen: 14, AuthTagLen: 10, RTCPAuthTagLen: 10}, nil
	default:
		return Policy{}, unknownProfileError(p)
	}
}

type unknownProfileError ProtectionProfile

func (e unknownProfileError) Error() string {
	return "srtp: unknown protection profile"
}

// ExportKeys partitions the keying-material blob produced by a DTLS-SRTP
// exporter (RFC 5705 labeled PRF, RFC 5764 section 4.2) into the four
// pieces SRTP needs:
//
//	client_write_key || server_write_key || client_write_salt || server_write_salt
//
// The caller (an external DTLS collaborator) supplies the exported bytes;
// this function only knows how to slice them according to policy. isClient
// selects which side's write/read pair becomes local/remote.
func ExportKeys(material []byte, policy Policy, isClient bool) (localKey, localSalt, remoteKey, remoteSalt []byte, err error) {
	want := 2 * (policy.EncKeyLen + policy.SaltKeyLen)
	if len(material) != want {
		return nil, nil, nil, nil, keyingMaterialLengthError{want: want, got: len(material)}
	}

	clientKey := material[0:policy.EncKeyLen]
	serverKey := material[policy.EncKeyLen : 2*policy.EncKeyLen]
	clientSalt := material[2*policy.EncKeyLen : 2*policy.EncKeyLen+policy.SaltKeyLen]
	serverSalt := material[2*policy.EncKeyLen+policy.SaltKeyLen : want]

	if isClient {
		return clientKey, clientSalt, serverKey, serverSalt, nil
	}
	return serverKey, serverSalt, clientKey, clientSalt, nil
}

type keyingMaterialLengthError struct{ want, got int }

func (e keyingMaterialLengthError) Error() string {
	return "srtp: keying material wrong length"
}
