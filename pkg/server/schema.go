package server

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/relayer"
	"github.com/stakewise/relayer-example/pkg/util"
)

type registerRequestJSON struct {
	Vault                string                    `json:"vault"`
	ValidatorsStartIndex uint64                    `json:"validators_start_index"`
	Amounts              []uint64                  `json:"amounts"`
	ValidatorType        credentials.ValidatorType `json:"validator_type"`
}

type fundRequestJSON struct {
	Vault      string   `json:"vault"`
	PublicKeys []string `json:"public_keys"`
	Amounts    []uint64 `json:"amounts"`
}

type withdrawRequestJSON struct {
	Vault      string   `json:"vault"`
	PublicKeys []string `json:"public_keys"`
	Amounts    []uint64 `json:"amounts"`
}

type consolidateRequestJSON struct {
	Vault            string   `json:"vault"`
	SourcePublicKeys []string `json:"source_public_keys"`
	TargetPublicKeys []string `json:"target_public_keys"`
}

type validatorJSON struct {
	PublicKey        string `json:"public_key"`
	DepositSignature string `json:"deposit_signature"`
	Amount           uint64 `json:"amount"`
	ExitSignature    string `json:"exit_signature,omitempty"`
}

type validatorsResponseJSON struct {
	Validators                 []*validatorJSON `json:"validators"`
	ValidatorsManagerSignature string           `json:"validators_manager_signature"`
}

type signatureResponseJSON struct {
	ValidatorsManagerSignature string `json:"validators_manager_signature"`
}

type infoResponseJSON struct {
	Network string `json:"network"`
}

type errorJSON struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func parseVault(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid vault address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parsePublicKey(s string) (relayer.PublicKey, error) {
	var pk relayer.PublicKey
	b, err := hexutil.Decode("0x" + strings.TrimPrefix(s, "0x"))
	if err != nil {
		return pk, fmt.Errorf("invalid public key %q: %w", s, err)
	}
	if len(b) != blsSigner.PublicKeyLength {
		return pk, fmt.Errorf("invalid public key %q: expected %d bytes, got %d", s, blsSigner.PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func parsePublicKeys(keys []string) ([]relayer.PublicKey, error) {
	return util.MapErr(keys, func(s string, _ uint64) (relayer.PublicKey, error) {
		return parsePublicKey(s)
	})
}

func toValidatorJSON(v *credentials.Validator, _ uint64) *validatorJSON {
	out := &validatorJSON{
		PublicKey:        hexutil.Encode(v.PublicKey[:]),
		DepositSignature: hexutil.Encode(v.DepositSignature[:]),
		Amount:           v.Amount,
	}
	if v.ExitSignature != nil {
		out.ExitSignature = hexutil.Encode(v.ExitSignature[:])
	}
	return out
}
