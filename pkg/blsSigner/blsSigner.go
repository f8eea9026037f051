// Package blsSigner provides BLS12-381 signature functionality for validator keys.
// This package defines the signing capability used for deposit messages and voluntary
// exits, and implementations backed by in-memory keys or EIP-2335 keystores.
package blsSigner

import (
	e2types "github.com/wealdtech/go-eth2-types/v2"
)

const (
	PublicKeyLength = 48
	SignatureLength = 96
)

func init() {
	if err := e2types.InitBLS(); err != nil {
		panic(err)
	}
}

// IBLSSigner defines the interface for BLS signature operations on validator keys.
// Implementations of this interface sign 32-byte signing roots and expose the
// compressed public key used to verify them.
type IBLSSigner interface {
	// SignRoot signs a domain-separated signing root with the validator key.
	// Signatures follow the proof-of-possession scheme of the consensus layer
	// and are deterministic for a given key and root.
	SignRoot(root [32]byte) ([SignatureLength]byte, error)

	// GetPublicKey returns the compressed public key of the validator.
	GetPublicKey() [PublicKeyLength]byte
}

// Verify reports whether sig is a valid signature of root under pubKey.
func Verify(pubKey [PublicKeyLength]byte, root [32]byte, sig [SignatureLength]byte) bool {
	pk, err := e2types.BLSPublicKeyFromBytes(pubKey[:])
	if err != nil {
		return false
	}
	s, err := e2types.BLSSignatureFromBytes(sig[:])
	if err != nil {
		return false
	}
	return s.Verify(root[:], pk)
}
