package blsSigner

import (
	"fmt"
	"math/big"

	"github.com/stakewise/relayer-example/pkg/keyDerivation"
	e2types "github.com/wealdtech/go-eth2-types/v2"
)

// InMemoryBLSSigner implements IBLSSigner using an in-memory BLS private key.
// The key lives for as long as the signer does; callers that must not retain key
// material should drop the signer once their request completes.
type InMemoryBLSSigner struct {
	privateKey *e2types.BLSPrivateKey
	publicKey  [PublicKeyLength]byte
}

// NewInMemoryBLSSigner creates a new InMemoryBLSSigner from a BLS private key.
// The corresponding public key is derived and cached.
//
// Parameters:
//   - privateKey: A BLS12-381 private key
//
// Returns:
//   - *InMemoryBLSSigner: A new signer instance
//   - error: An error if the private key is nil
func NewInMemoryBLSSigner(privateKey *e2types.BLSPrivateKey) (*InMemoryBLSSigner, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}

	var publicKey [PublicKeyLength]byte
	copy(publicKey[:], privateKey.PublicKey().Marshal())

	return &InMemoryBLSSigner{
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// NewInMemoryBLSSignerFromBytes creates a signer from a 32-byte big-endian scalar.
func NewInMemoryBLSSignerFromBytes(secret []byte) (*InMemoryBLSSigner, error) {
	privateKey, err := e2types.BLSPrivateKeyFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse BLS private key: %w", err)
	}
	return NewInMemoryBLSSigner(privateKey)
}

// NewInMemoryBLSSignerFromScalar creates a signer from a derived secret scalar.
func NewInMemoryBLSSignerFromScalar(sk *big.Int) (*InMemoryBLSSigner, error) {
	if sk == nil || sk.Sign() <= 0 {
		return nil, fmt.Errorf("secret scalar must be positive")
	}
	return NewInMemoryBLSSignerFromBytes(keyDerivation.ScalarBytes(sk))
}

// SignRoot signs the given signing root using the BLS private key.
//
// Parameters:
//   - root: The 32-byte signing root to be signed
//
// Returns:
//   - [96]byte: The compressed BLS signature of the root
//   - error: An error if the private key is unset
func (s *InMemoryBLSSigner) SignRoot(root [32]byte) ([SignatureLength]byte, error) {
	var out [SignatureLength]byte
	if s.privateKey == nil {
		return out, fmt.Errorf("private key is nil")
	}
	copy(out[:], s.privateKey.Sign(root[:]).Marshal())
	return out, nil
}

// GetPublicKey returns the public key associated with this signer.
func (s *InMemoryBLSSigner) GetPublicKey() [PublicKeyLength]byte {
	return s.publicKey
}

// SecretBytes returns the 32-byte private key. It exists for keystore export and
// must never be logged.
func (s *InMemoryBLSSigner) SecretBytes() []byte {
	return s.privateKey.Marshal()
}
