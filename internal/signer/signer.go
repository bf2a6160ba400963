package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Signer holds the process-lifetime Ed25519 keypair used to sign receipt
// hashes. The keypair is generated once at startup and never rotates; every
// receipt this process issues is signed by the same key.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// New generates a fresh keypair. The private key lives in memory only.
func New() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// FromKey wraps an existing private key. Used by tests that need a stable key.
func FromKey(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// Sign signs the ASCII bytes of the hex-encoded hash and returns the
// signature hex-encoded.
func (s *Signer) Sign(hash string) string {
	return hex.EncodeToString(ed25519.Sign(s.priv, []byte(hash)))
}

// Verify reports whether sigHex is a valid signature over hash by this
// signer's key. Malformed signature input yields false, never an error;
// the keypair is read-only after construction so concurrent calls are safe.
func (s *Signer) Verify(hash, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(s.pub, []byte(hash), sig)
}

// PublicKey returns the hex-encoded public key for external verifiers.
func (s *Signer) PublicKey() string {
	return hex.EncodeToString(s.pub)
}

// PublicKeyBytes returns the raw public key.
func (s *Signer) PublicKeyBytes() []byte {
	return s.pub
}
