package relayer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
)

// PublicKey is a compressed BLS12-381 public key.
type PublicKey = [blsSigner.PublicKeyLength]byte

// RegisterRequest asks for len(Amounts) new validators of ValidatorType for Vault.
// StartIndex is the beacon chain index the first validator will receive; the exit
// of the i-th validator is pre-signed for StartIndex+i.
type RegisterRequest struct {
	Vault         common.Address
	StartIndex    uint64
	Amounts       []uint64
	ValidatorType credentials.ValidatorType
}

type RegisterResponse struct {
	// Validators carry their exit signatures
	Validators                 []*credentials.Validator
	DepositData                []*depositData.DepositDatum
	ValidatorsManagerSignature []byte
}

// FundRequest tops up existing validators held by the keystore.
type FundRequest struct {
	Vault      common.Address
	PublicKeys []PublicKey
	Amounts    []uint64
}

type FundResponse struct {
	Validators                 []*credentials.Validator
	ValidatorsManagerSignature []byte
}

// WithdrawRequest asks for partial withdrawals of Amounts from PublicKeys.
type WithdrawRequest struct {
	Vault      common.Address
	PublicKeys []PublicKey
	Amounts    []uint64
}

// ConsolidateRequest asks to consolidate each source validator into its target.
type ConsolidateRequest struct {
	Vault            common.Address
	SourcePublicKeys []PublicKey
	TargetPublicKeys []PublicKey
}

// SignatureResponse carries a bare validators manager signature.
type SignatureResponse struct {
	ValidatorsManagerSignature []byte
}
