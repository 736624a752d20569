package srtp

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/twofish"
)

// newBlockCipher builds the cipher.Block backing an EncryptionKind's
// session key, so the CM and F8 stream constructions in this package stay
// cipher-agnostic.
func newBlockCipher(kind EncryptionKind, key []byte) (cipher.Block, error) {
	switch kind {
	case EncryptionAESCM, EncryptionAESF8:
		return aes.NewCipher(key)
	case EncryptionTwofishCM, EncryptionTwofishF8:
		return twofish.NewCipher(key)
	default:
		return nil, unsupportedCipherError(kind)
	}
}

type unsupportedCipherError EncryptionKind

func (e unsupportedCipherError) Error() string { return "srtp: unsupported encryption kind" }

// processCM runs block in counter mode over buf in place, using iv as the
// initial counter value. iv must be exactly block.BlockSize() bytes.
func processCM(block cipher.Block, iv, buf []byte) {
	cipher.NewCTR(block, iv).XORKeyStream(buf, buf)
}

// cmIV builds the 16-byte SRTP/SRTCP counter-mode IV from the session salt,
// SSRC, and packet index (RFC 3711 section 4.1.1):
//
//	iv[0..3]  = salt[0..3]
//	iv[4..7]  = salt[4..7]  XOR ssrc
//	iv[8..13] = salt[8..13] XOR index (48 or 31 bits, big-endian)
//	iv[14..15] = 0
func cmIV(salt []byte, ssrc uint32, index uint64) []byte {
	iv := make([]byte, 16)
	copy(iv, salt)

	iv[4] ^= byte(ssrc >> 24)
	iv[5] ^= byte(ssrc >> 16)
	iv[6] ^= byte(ssrc >> 8)
	iv[7] ^= byte(ssrc)

	iv[8] ^= byte(index >> 40)
	iv[9] ^= byte(index >> 32)
	iv[10] ^= byte(index >> 24)
	iv[11] ^= byte(index >> 16)
	iv[12] ^= byte(index >> 8)
	iv[13] ^= byte(index)

	return iv
}
