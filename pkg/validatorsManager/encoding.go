package validatorsManager

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/util"
)

// Item widths of the per-operation payload encodings.
const (
	RegisterItemWidthV1    = blsSigner.PublicKeyLength + blsSigner.SignatureLength + 32
	RegisterItemWidthV2    = RegisterItemWidthV1 + 8
	WithdrawalItemWidth    = blsSigner.PublicKeyLength + 8
	ConsolidationItemWidth = 2 * blsSigner.PublicKeyLength
)

// RootOrNonce fills the validatorsRegistryRoot slot of the typed data. The slot is
// shared on the wire, but registration binds it to the registry root while every
// other operation binds it to the vault's manager nonce.
type RootOrNonce interface {
	Slot() [32]byte
	rootOrNonce()
}

// RegistryRoot is the validators registry root a registration is bound to.
type RegistryRoot [32]byte

func (r RegistryRoot) Slot() [32]byte { return r }

func (RegistryRoot) rootOrNonce() {}

// ManagerNonce is the validators manager nonce of a vault.
type ManagerNonce struct {
	Value *big.Int
}

// NewManagerNonce validates that nonce fits the 32-byte slot.
func NewManagerNonce(nonce *big.Int) (ManagerNonce, error) {
	if nonce == nil || nonce.Sign() < 0 || nonce.BitLen() > 256 {
		return ManagerNonce{}, fmt.Errorf("nonce out of range: %v", nonce)
	}
	return ManagerNonce{Value: new(big.Int).Set(nonce)}, nil
}

// Slot is the nonce as a 32-byte big-endian word.
func (n ManagerNonce) Slot() [32]byte {
	if n.Value == nil {
		return [32]byte{}
	}
	return common.BigToHash(n.Value)
}

func (ManagerNonce) rootOrNonce() {}

// RegisterItemWidth is the encoded width of one validator record of validatorType.
func RegisterItemWidth(validatorType credentials.ValidatorType) int {
	if validatorType == credentials.V1 {
		return RegisterItemWidthV1
	}
	return RegisterItemWidthV2
}

// EncodeValidators concatenates pubkey || deposit signature || deposit data root of
// every validator, followed by the big-endian amount for V2 validators.
func EncodeValidators(validators []*credentials.Validator) ([]byte, error) {
	const op = "encodeValidators"
	size := 0
	for i, v := range validators {
		if err := v.ValidatorType.Validate(); err != nil {
			return nil, relayerErrors.Validation(op, "validator %d: %v", i, err)
		}
		if v.Amount == 0 {
			return nil, relayerErrors.Validation(op, "validator %d: amount must be positive", i)
		}
		size += RegisterItemWidth(v.ValidatorType)
	}
	out := make([]byte, 0, size)
	for _, v := range validators {
		out = append(out, v.PublicKey[:]...)
		out = append(out, v.DepositSignature[:]...)
		out = append(out, v.DepositDataRoot[:]...)
		if v.ValidatorType == credentials.V2 {
			out = binary.BigEndian.AppendUint64(out, v.Amount)
		}
	}
	return out, nil
}

// EncodeWithdrawals concatenates pubkey || big-endian amount pairs.
func EncodeWithdrawals(publicKeys [][blsSigner.PublicKeyLength]byte, amounts []uint64) ([]byte, error) {
	const op = "encodeWithdrawals"
	pairs, err := util.Zip(publicKeys, amounts)
	if err != nil {
		return nil, relayerErrors.Validation(op, "public keys and amounts: %v", err)
	}
	out := make([]byte, 0, len(pairs)*WithdrawalItemWidth)
	for i, p := range pairs {
		if p.Second == 0 {
			return nil, relayerErrors.Validation(op, "withdrawal %d: amount must be positive", i)
		}
		out = append(out, p.First[:]...)
		out = binary.BigEndian.AppendUint64(out, p.Second)
	}
	return out, nil
}

// EncodeConsolidations concatenates source || target public key pairs.
func EncodeConsolidations(sourcePublicKeys, targetPublicKeys [][blsSigner.PublicKeyLength]byte) ([]byte, error) {
	pairs, err := util.Zip(sourcePublicKeys, targetPublicKeys)
	if err != nil {
		return nil, relayerErrors.Validation("encodeConsolidations", "source and target public keys: %v", err)
	}
	out := make([]byte, 0, len(pairs)*ConsolidationItemWidth)
	for _, p := range pairs {
		out = append(out, p.First[:]...)
		out = append(out, p.Second[:]...)
	}
	return out, nil
}
