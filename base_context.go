package srtp

import (
	"crypto/cipher"
	"hash"
)

// BaseContext holds the state RtpContext and RtcpContext share: the master
// key material, the derived session keys, and the cipher/MAC handles built
// from them. Keys are derived lazily on first use and re-derived every
// keyDerivationRate packets (RFC 3711 section 4.3.1).
type BaseContext struct {
	policy Policy
	master MasterKeyMaterial
	kdf    KeyDerivation

	keys *SessionKeys

	block cipher.Block
	// f8Block is the masked-key cipher F8 mode derives IV' with; nil
	// unless the policy selects an F8 encryption kind.
	f8Block cipher.Block
	mac     hash.Hash

	// tagScratch is reused across packets to hold the truncated tag; the
	// MAC computation itself still allocates its full-length sum. Safe
	// because a context is never entered concurrently.
	tagScratch []byte
}

// newBaseContext builds an underived context for a single SSRC. Keys are
// not computed until deriveKeys is first called.
func newBaseContext(policy Policy, master MasterKeyMaterial, isRTCP bool) (*BaseContext, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	tagLen := policy.AuthTagLen
	if isRTCP {
		tagLen = policy.RTCPAuthTagLen
	}

	return &BaseContext{
		policy:     policy,
		master:     master,
		kdf:        KeyDerivation{Policy: policy},
		tagScratch: make([]byte, tagLen),
	}, nil
}

// deriveKeys (re)derives the session keys at the given packet index and
// installs fresh cipher/MAC handles, wiping any keys they replace. rtcp
// selects the RTCP label set. Called on first use, and again whenever
// keyDerivationRate is nonzero and index is a multiple of it.
func (c *BaseContext) deriveKeys(index uint64, keyDerivationRate uint64, rtcp bool) error {
	var keys *SessionKeys
	var err error
	if rtcp {
		keys, err = c.kdf.DeriveRTCPKeys(c.master, index, keyDerivationRate)
	} else {
		keys, err = c.kdf.DeriveRTPKeys(c.master, index, keyDerivationRate)
	}
	if err != nil {
		return err
	}

	var block, f8Block cipher.Block
	if c.policy.Encryption != EncryptionNone {
		block, err = newBlockCipher(c.policy.Encryption, keys.EncKey)
		if err != nil {
			keys.Close()
			return err
		}
	}
	if c.policy.Encryption == EncryptionAESF8 || c.policy.Encryption == EncryptionTwofishF8 {
		f8Block, err = f8MaskedBlock(c.policy.Encryption, keys.EncKey, keys.SaltKey)
		if err != nil {
			keys.Close()
			return err
		}
	}

	var mac hash.Hash
	if c.policy.Auth != AuthNone {
		mac, err = newMAC(c.policy.Auth, keys.AuthKey)
		if err != nil {
			keys.Close()
			return err
		}
	}

	if c.keys != nil {
		c.keys.Close()
	}
	c.keys = keys
	c.block = block
	c.f8Block = f8Block
	c.mac = mac

	// The master key is wiped only once no further derivation will ever
	// need it again: keyDerivationRate == 0 means this was the one and
	// only derivation. Otherwise deriveKeys runs again at the next rate
	// boundary and still needs master.Key for that call's AES-CM PRF; it
	// is wiped for good in close() instead.
	if keyDerivationRate == 0 {
		c.master.Wipe()
	}

	return nil
}

// needsDerivation reports whether deriveKeys must run before processing
// the packet at index, either because no keys exist yet or because the
// key-derivation rate boundary has been crossed.
func (c *BaseContext) needsDerivation(index uint64, keyDerivationRate uint64) bool {
	if c.keys == nil {
		return true
	}
	return keyDerivationRate != 0 && index%keyDerivationRate == 0
}

// authTag computes the truncated MAC over m using the current auth key and
// copies it into tagScratch, which it returns; the next call overwrites it.
func (c *BaseContext) authTag(m []byte) []byte {
	full := computeTag(c.mac, m, len(c.tagScratch))
	copy(c.tagScratch, full)
	return c.tagScratch
}

// close zeroizes all key material owned by the context. Safe to call more
// than once.
func (c *BaseContext) close() {
	if c.keys != nil {
		c.keys.Close()
		c.keys = nil
	}
	c.master.Wipe()
	zeroize(c.tagScratch)
}
