// Package credentials models validator credentials: the signing capability of a
// validator key bound to the vault that owns it and the withdrawal credential type
// the validator is created with.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/signing"
)

// ValidatorType selects the withdrawal credential version of a validator.
type ValidatorType string

const (
	// V1 validators use 0x01 execution-address withdrawal credentials.
	V1 ValidatorType = "0x01"
	// V2 validators use 0x02 compounding withdrawal credentials routed to the vault.
	V2 ValidatorType = "0x02"
)

var (
	// ErrUnsupportedValidatorType is returned for anything but V1 and V2
	ErrUnsupportedValidatorType = errors.New("unsupported validator type")
)

// ParseValidatorType accepts "0x01"/"0x02" as well as the names "V1"/"V2".
func ParseValidatorType(s string) (ValidatorType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0X01", "V1":
		return V1, nil
	case "0X02", "V2":
		return V2, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedValidatorType, s)
}

// Validate rejects unknown validator types.
func (t ValidatorType) Validate() error {
	if t != V1 && t != V2 {
		return fmt.Errorf("%w: %q", ErrUnsupportedValidatorType, string(t))
	}
	return nil
}

func (t ValidatorType) versionByte() byte {
	if t == V1 {
		return 0x01
	}
	return 0x02
}

func (t *ValidatorType) UnmarshalText(text []byte) error {
	parsed, err := ParseValidatorType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// WithdrawalCredentials returns versionByte || 11 zero bytes || vault.
func WithdrawalCredentials(validatorType ValidatorType, vault common.Address) ([32]byte, error) {
	var out [32]byte
	if err := validatorType.Validate(); err != nil {
		return out, err
	}
	out[0] = validatorType.versionByte()
	copy(out[12:], vault.Bytes())
	return out, nil
}

// Credential is a validator signing capability bound to a vault and network.
// It only lives for the duration of a request unless it comes from a keystore.
type Credential struct {
	Signer        blsSigner.IBLSSigner
	Path          string
	Vault         common.Address
	Network       string
	ValidatorType ValidatorType
}

// PublicKey is the compressed public key of the signing key.
func (c *Credential) PublicKey() [blsSigner.PublicKeyLength]byte {
	return c.Signer.GetPublicKey()
}

// PublicKeyHex is the 0x-prefixed public key.
func (c *Credential) PublicKeyHex() string {
	pubKey := c.PublicKey()
	return hexutil.Encode(pubKey[:])
}

// WithdrawalCredentials are the vault withdrawal credentials for the validator type.
func (c *Credential) WithdrawalCredentials() ([32]byte, error) {
	return WithdrawalCredentials(c.ValidatorType, c.Vault)
}

// DepositMessage is the unsigned deposit of amount gwei for this credential.
func (c *Credential) DepositMessage(amount uint64) (*signing.DepositMessage, error) {
	withdrawalCredentials, err := c.WithdrawalCredentials()
	if err != nil {
		return nil, err
	}
	return &signing.DepositMessage{
		Pubkey:                c.PublicKey(),
		WithdrawalCredentials: withdrawalCredentials,
		Amount:                amount,
	}, nil
}

// String never includes key material.
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{pubkey: %s, path: %q, vault: %s, type: %s}",
		c.PublicKeyHex(), c.Path, c.Vault.Hex(), c.ValidatorType)
}
