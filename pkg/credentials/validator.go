package credentials

import (
	"github.com/stakewise/relayer-example/pkg/blsSigner"
)

// Validator is one fully-formed validator record, ready for deposit-data publication
// or for inclusion in a validators manager authorization payload.
type Validator struct {
	PublicKey        [blsSigner.PublicKeyLength]byte
	DepositSignature [blsSigner.SignatureLength]byte
	DepositDataRoot  [32]byte
	// Amount in gwei
	Amount        uint64
	ValidatorType ValidatorType
	// ExitSignature is nil unless a pre-signed exit was produced.
	ExitSignature *[blsSigner.SignatureLength]byte
}
