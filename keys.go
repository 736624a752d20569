package srtp

// zeroize overwrites b with zeros in place. Used for key material that must
// not linger in memory past its useful lifetime.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MasterKeyMaterial holds the master encryption key and master salt for a
// stream, as delivered by the DTLS-SRTP exporter. Wipe() is called right
// after the first session-key derivation when the key-derivation rate is 0,
// and otherwise when the owning context is closed; the zero value is safe
// to keep around afterwards.
type MasterKeyMaterial struct {
	Key  []byte
	Salt []byte
}

// Wipe overwrites the master key, retaining only the salt (session-key
// derivation for counter-mode IVs needs the salt shape, but not the master
// secret, once session keys exist).
func (m *MasterKeyMaterial) Wipe() {
	zeroize(m.Key)
	m.Key = nil
}

// SessionKeys holds the keys derived from a MasterKeyMaterial by
// KeyDerivation. Close wipes all three on context teardown or re-derivation.
type SessionKeys struct {
	EncKey  []byte
	AuthKey []byte // nil when Policy.Auth == AuthNone
	SaltKey []byte
}

// Close zeroizes every key slice held by SessionKeys.
func (k *SessionKeys) Close() {
	zeroize(k.EncKey)
	zeroize(k.AuthKey)
	zeroize(k.SaltKey)
}
