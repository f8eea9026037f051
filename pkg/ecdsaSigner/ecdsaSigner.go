// Package ecdsaSigner provides the validators manager signing key.
// The key signs 32-byte digests, such as EIP-712 typed data hashes, and is backed
// either by a local private key (raw or from a V3 keystore file) or by AWS KMS.
package ecdsaSigner

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SignatureLength is the length of an r || s || v signature.
const SignatureLength = 65

// secp256k1N is the order of the secp256k1 curve.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// IHashSigner defines the interface for signing digests with the manager key.
// Implementations are loaded once at startup and are safe for concurrent use.
type IHashSigner interface {
	// SignHash signs a 32-byte digest.
	//
	// Parameters:
	//   - hash: The digest to sign
	//
	// Returns:
	//   - []byte: A 65-byte r || s || v signature with low s and v in {27, 28}
	//   - error: An error if the digest cannot be signed
	SignHash(hash []byte) ([]byte, error)

	// GetAddress returns the Ethereum address of the signing key.
	//
	// Returns:
	//   - common.Address: The address recovered from signatures of this signer
	//   - error: An error if the address cannot be determined
	GetAddress() (common.Address, error)
}
