package srtp

import (
	"crypto/cipher"
	"encoding/binary"
)

// f8MaskedBlock builds the masked-key cipher F8 mode encrypts the IV under
// (RFC 3711 section 4.1.2): m = k_s || 0x55..55 padded to the key length,
// IV' = E(k_e XOR m, IV). The masked key is wiped once the cipher is
// constructed.
func f8MaskedBlock(kind EncryptionKind, key, saltKey []byte) (cipher.Block, error) {
	maskedKey := make([]byte, len(key))
	n := copy(maskedKey, saltKey)
	for i := n; i < len(maskedKey); i++ {
		maskedKey[i] = 0x55
	}
	for i := range maskedKey {
		maskedKey[i] ^= key[i]
	}

	block, err := newBlockCipher(kind, maskedKey)
	zeroize(maskedKey)
	return block, err
}

// processF8 runs block in F8 mode over buf in place, chaining each block's
// keystream into the next (RFC 3711 section 4.1.2): S(-1) = 0,
// S(j) = E(k_e, IV' xor j xor S(j-1)). maskedBlock is the k_e-XOR-m cipher
// from f8MaskedBlock, used only to turn the header-derived iv into IV';
// the chaining itself runs under the unmasked session key.
func processF8(block, maskedBlock cipher.Block, iv, buf []byte) {
	bs := block.BlockSize()

	ivPrime := make([]byte, bs)
	maskedBlock.Encrypt(ivPrime, iv)

	state := make([]byte, bs) // S(-1) = 0
	counter := make([]byte, bs)
	input := make([]byte, bs)

	for offset := 0; offset < len(buf); offset += bs {
		for i := 0; i < bs; i++ {
			input[i] = ivPrime[i] ^ state[i] ^ counter[i]
		}
		block.Encrypt(state, input)

		chunk := bs
		if offset+bs > len(buf) {
			chunk = len(buf) - offset
		}
		for i := 0; i < chunk; i++ {
			buf[offset+i] ^= state[i]
		}

		incrementBigEndian(counter)
	}
}

// incrementBigEndian treats b as a big-endian unsigned integer and adds 1,
// carrying from the least-significant byte.
func incrementBigEndian(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// f8IV builds the F8-mode IV for SRTP from an RTP header buffer (its first
// 12 bytes, with byte 0 zeroed) and the rollover counter (RFC 3711 section
// 4.1.2.1). header must have at least 12 bytes.
func f8IV(header []byte, guessedROC uint32) []byte {
	iv := make([]byte, 16)
	copy(iv, header[0:12])
	iv[0] = 0
	iv[12] = byte(guessedROC >> 24)
	iv[13] = byte(guessedROC >> 16)
	iv[14] = byte(guessedROC >> 8)
	iv[15] = byte(guessedROC)
	return iv
}

// rtcpF8IV builds the F8-mode IV for SRTCP (RFC 3711 section 4.1.2.2):
// four zero bytes, the E-flag/index word, then the first eight bytes of
// the RTCP packet. packet must have at least 8 bytes.
func rtcpF8IV(packet []byte, indexWord uint32) []byte {
	iv := make([]byte, 16)
	binary.BigEndian.PutUint32(iv[4:8], indexWord)
	copy(iv[8:16], packet[0:8])
	return iv
}
