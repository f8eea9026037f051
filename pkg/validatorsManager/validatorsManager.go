// Package validatorsManager produces the validators manager authorizations a vault
// checks before registering, funding, withdrawing or consolidating validators.
//
// Every operation signs the same EIP-712 envelope: a VaultValidators struct whose
// validatorsRegistryRoot slot carries either the registry root (register) or the
// vault's manager nonce (all other operations), and whose validators field carries
// the operation specific payload built by the Encode* functions.
package validatorsManager

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/ecdsaSigner"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"go.uber.org/zap"
)

const (
	DomainName    = "VaultValidators"
	DomainVersion = "1"
	PrimaryType   = "VaultValidators"
)

// Operation is one of the four authorized validator lifecycle operations.
type Operation string

const (
	OperationRegister    Operation = "register"
	OperationFund        Operation = "fund"
	OperationWithdraw    Operation = "withdraw"
	OperationConsolidate Operation = "consolidate"
)

// TypedData builds the VaultValidators typed data for vault on chainID.
func TypedData(chainID uint64, vault common.Address, slot RootOrNonce, payload []byte) apitypes.TypedData {
	root := slot.Slot()
	if payload == nil {
		payload = []byte{}
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			PrimaryType: []apitypes.Type{
				{Name: "validatorsRegistryRoot", Type: "bytes32"},
				{Name: "validators", Type: "bytes"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(chainID)),
			VerifyingContract: vault.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"validatorsRegistryRoot": root[:],
			"validators":             payload,
		},
	}
}

// Authorizer signs validators manager authorizations with the manager key.
// It holds no mutable state and is safe for concurrent use.
type Authorizer struct {
	chainID uint64
	signer  ecdsaSigner.IHashSigner
	logger  *zap.Logger
}

func NewAuthorizer(chainID uint64, signer ecdsaSigner.IHashSigner, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		chainID: chainID,
		signer:  signer,
		logger:  logger,
	}
}

// Address is the manager address signatures recover to.
func (a *Authorizer) Address() (common.Address, error) {
	if a.signer == nil {
		return common.Address{}, relayerErrors.Configuration("managerAddress", "validators manager key is not loaded")
	}
	return a.signer.GetAddress()
}

// SignRegister authorizes the registration of validators against registry root.
func (a *Authorizer) SignRegister(vault common.Address, root RegistryRoot, validators []*credentials.Validator) ([]byte, error) {
	payload, err := EncodeValidators(validators)
	if err != nil {
		return nil, err
	}
	return a.sign(OperationRegister, vault, root, payload, len(validators))
}

// SignFund authorizes top-up deposits to existing validators.
func (a *Authorizer) SignFund(vault common.Address, nonce ManagerNonce, validators []*credentials.Validator) ([]byte, error) {
	payload, err := EncodeValidators(validators)
	if err != nil {
		return nil, err
	}
	return a.sign(OperationFund, vault, nonce, payload, len(validators))
}

// SignWithdraw authorizes partial withdrawals of amounts from publicKeys.
func (a *Authorizer) SignWithdraw(vault common.Address, nonce ManagerNonce, publicKeys [][blsSigner.PublicKeyLength]byte, amounts []uint64) ([]byte, error) {
	payload, err := EncodeWithdrawals(publicKeys, amounts)
	if err != nil {
		return nil, err
	}
	return a.sign(OperationWithdraw, vault, nonce, payload, len(publicKeys))
}

// SignConsolidate authorizes consolidating each source validator into its target.
func (a *Authorizer) SignConsolidate(vault common.Address, nonce ManagerNonce, sourcePublicKeys, targetPublicKeys [][blsSigner.PublicKeyLength]byte) ([]byte, error) {
	payload, err := EncodeConsolidations(sourcePublicKeys, targetPublicKeys)
	if err != nil {
		return nil, err
	}
	return a.sign(OperationConsolidate, vault, nonce, payload, len(sourcePublicKeys))
}

func (a *Authorizer) sign(op Operation, vault common.Address, slot RootOrNonce, payload []byte, count int) ([]byte, error) {
	if a.signer == nil {
		return nil, relayerErrors.Configuration(string(op), "validators manager key is not loaded")
	}
	hash, _, err := apitypes.TypedDataAndHash(TypedData(a.chainID, vault, slot, payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash typed data: %w", op, err)
	}
	sig, err := a.signer.SignHash(hash)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to sign typed data: %w", op, err)
	}
	a.logger.Sugar().Debugw("Signed validators manager authorization",
		zap.String("operation", string(op)),
		zap.String("vault", vault.Hex()),
		zap.Int("count", count),
		zap.Int("payloadLength", len(payload)),
		zap.String("digest", hexutil.Encode(hash)),
	)
	return sig, nil
}
