package srtp

// Key Derivation Function (KDF) described in RFC 3711 section 4.3. Session
// encryption, authentication, and salting keys are derived from a master
// key and master salt by running AES in counter mode as a PRF, keyed
// per-purpose by a one-byte label.

import (
	"crypto/aes"
	"crypto/cipher"
)

// Labels for the six key-derivation purposes RFC 3711 defines.
const (
	labelSRTPEncryption  byte = 0x00
	labelSRTPAuth        byte = 0x01
	labelSRTPSalt        byte = 0x02
	labelSRTCPEncryption byte = 0x03
	labelSRTCPAuth       byte = 0x04
	labelSRTCPSalt       byte = 0x05
)

// deriveSessionKey runs the AES-CM PRF for a single label, returning the
// first n bytes of keystream. index is the current 48-bit SRTP packet
// index (or 31-bit SRTCP index); rate is the key_derivation_rate (0
// disables re-derivation).
func deriveSessionKey(masterKey, masterSalt []byte, label byte, index, rate uint64, n int) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}

	var r uint64
	if rate != 0 {
		r = index / rate
	}

	// key_id = (label << 48) | r, packed into the low 7 bytes.
	var keyID [7]byte
	keyID[0] = label
	keyID[1] = byte(r >> 40)
	keyID[2] = byte(r >> 32)
	keyID[3] = byte(r >> 24)
	keyID[4] = byte(r >> 16)
	keyID[5] = byte(r >> 8)
	keyID[6] = byte(r)

	// iv = master_salt XOR key_id, left-aligned, then padded with two zero
	// bytes to a 16-byte AES block (the "multiply by 2^16" of RFC 3711
	// section 4.3.1).
	iv := make([]byte, aes.BlockSize)
	copy(iv, masterSalt)
	for i := 0; i < len(keyID); i++ {
		iv[7+i] ^= keyID[i]
	}

	out := make([]byte, n)
	cipher.NewCTR(block, iv).XORKeyStream(out, out)
	return out, nil
}

// KeyDerivation derives the full set of session keys (SRTP or SRTCP) for a
// Policy from a master key and master salt. A KeyDerivation value is
// stateless and may be reused across contexts that share a Policy.
type KeyDerivation struct {
	Policy Policy
}

// DeriveRTPKeys derives the SRTP session encryption/auth/salt keys at the
// given packet index and key-derivation rate.
func (kd KeyDerivation) DeriveRTPKeys(master MasterKeyMaterial, index, rate uint64) (*SessionKeys, error) {
	return kd.derive(master, index, rate, labelSRTPEncryption, labelSRTPAuth, labelSRTPSalt)
}

// DeriveRTCPKeys derives the SRTCP session encryption/auth/salt keys at the
// given packet index and key-derivation rate.
func (kd KeyDerivation) DeriveRTCPKeys(master MasterKeyMaterial, index, rate uint64) (*SessionKeys, error) {
	return kd.derive(master, index, rate, labelSRTCPEncryption, labelSRTCPAuth, labelSRTCPSalt)
}

func (kd KeyDerivation) derive(master MasterKeyMaterial, index, rate uint64, encLabel, authLabel, saltLabel byte) (*SessionKeys, error) {
	p := kd.Policy

	saltKey, err := deriveSessionKey(master.Key, master.Salt, saltLabel, index, rate, p.SaltKeyLen)
	if err != nil {
		return nil, err
	}

	keys := &SessionKeys{SaltKey: saltKey}

	if p.Encryption != EncryptionNone {
		encKey, err := deriveSessionKey(master.Key, master.Salt, encLabel, index, rate, p.EncKeyLen)
		if err != nil {
			return nil, err
		}
		keys.EncKey = encKey
	}

	if p.Auth != AuthNone {
		authKey, err := deriveSessionKey(master.Key, master.Salt, authLabel, index, rate, p.AuthKeyLen)
		if err != nil {
			return nil, err
		}
		keys.AuthKey = authKey
	}

	return keys, nil
}
