// Package credentialSource supplies validator signing keys to the relayer.
//
// A source is either ephemeral, deriving fresh keys from a new master secret for
// every request, or keystore backed, resolving keys by public key from keystores
// decrypted at startup. The variant is chosen once at startup and injected, so the
// request handlers are written against ICredentialSource only.
package credentialSource

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
)

// Kind identifies the variant of a credential source.
type Kind string

const (
	KindEphemeral Kind = "ephemeral"
	KindKeystore  Kind = "keystore"
)

// PublicKey is a compressed BLS12-381 public key.
type PublicKey = [blsSigner.PublicKeyLength]byte

// ICredentialSource supplies validator credentials and signs with them.
type ICredentialSource interface {
	// Kind reports which variant this source is.
	Kind() Kind

	// GenerateCredentials returns count credentials bound to vault. Ephemeral
	// sources derive them at indices [startIndex, startIndex+count) of a fresh
	// master secret; keystore sources hand out the first count available keys.
	GenerateCredentials(startIndex uint64, count int, vault common.Address, validatorType credentials.ValidatorType) ([]*credentials.Credential, error)

	// ValidateRange reports whether GenerateCredentials can serve count
	// credentials from startIndex, without touching any key.
	ValidateRange(startIndex uint64, count int) error

	// AvailablePublicKeys lists the held public keys in a stable order.
	AvailablePublicKeys() []PublicKey

	// Contains reports whether the key for pubKey is held.
	Contains(pubKey PublicKey) bool

	// SignDeposit signs a deposit of amount gwei for the held key pubKey.
	SignDeposit(pubKey PublicKey, amount uint64, vault common.Address, validatorType credentials.ValidatorType) (*credentials.Validator, *depositData.DepositDatum, error)

	// SignExit signs a voluntary exit of validatorIndex with the held key pubKey.
	SignExit(validatorIndex uint64, pubKey PublicKey) ([blsSigner.SignatureLength]byte, error)
}
