// Package depositData builds and BLS-signs validator deposits. Besides the core
// validator record it emits deposit-cli compatible metadata so the deposits can be
// published as a deposit data file.
package depositData

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/signing"
	"go.uber.org/zap"
)

// DepositCliVersion is reported in deposit data files for tooling compatibility.
const DepositCliVersion = "2.7.0"

// DepositDatum is a signed deposit together with its roots and network metadata.
type DepositDatum struct {
	Pubkey                [blsSigner.PublicKeyLength]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [blsSigner.SignatureLength]byte
	DepositMessageRoot    [32]byte
	DepositDataRoot       [32]byte
	ForkVersion           [4]byte
	NetworkName           string
	DepositCliVersion     string
}

// Builder signs deposits for one network.
type Builder struct {
	network *networkConfig.NetworkConfig
	domain  [32]byte
	logger  *zap.Logger
}

// NewBuilder precomputes the deposit domain of network.
func NewBuilder(network *networkConfig.NetworkConfig, logger *zap.Logger) (*Builder, error) {
	domain, err := signing.ComputeDepositDomain(network.GenesisForkVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to compute deposit domain: %w", err)
	}
	return &Builder{
		network: network,
		domain:  domain,
		logger:  logger,
	}, nil
}

// Build signs a deposit of amount gwei for credential.
// Enforcing the full-deposit amount of V1 validators is left to the caller.
func (b *Builder) Build(credential *credentials.Credential, amount uint64) (*credentials.Validator, *DepositDatum, error) {
	if amount == 0 {
		return nil, nil, relayerErrors.Validation("buildDeposit", "amount must be positive")
	}
	if err := credential.ValidatorType.Validate(); err != nil {
		return nil, nil, relayerErrors.Validation("buildDeposit", "%v", err)
	}
	if credential.Network != "" && credential.Network != b.network.Name {
		return nil, nil, relayerErrors.Validation("buildDeposit",
			"credential network %s does not match %s", credential.Network, b.network.Name)
	}

	message, err := credential.DepositMessage(amount)
	if err != nil {
		return nil, nil, err
	}
	signingRoot, err := signing.ComputeSigningRoot(message, b.domain)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute deposit signing root: %w", err)
	}
	signature, err := credential.Signer.SignRoot(signingRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign deposit for %s: %w", credential.PublicKeyHex(), err)
	}

	data := &signing.DepositData{
		Pubkey:                message.Pubkey,
		WithdrawalCredentials: message.WithdrawalCredentials,
		Amount:                message.Amount,
		Signature:             signature,
	}
	messageRoot, err := message.HashTreeRoot()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute deposit message root: %w", err)
	}
	dataRoot, err := data.HashTreeRoot()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute deposit data root: %w", err)
	}

	b.logger.Debug("Signed deposit",
		zap.String("pubkey", credential.PublicKeyHex()),
		zap.Uint64("amount", amount),
		zap.String("depositDataRoot", hexutil.Encode(dataRoot[:])),
	)

	validator := &credentials.Validator{
		PublicKey:        message.Pubkey,
		DepositSignature: signature,
		DepositDataRoot:  dataRoot,
		Amount:           amount,
		ValidatorType:    credential.ValidatorType,
	}
	datum := &DepositDatum{
		Pubkey:                message.Pubkey,
		WithdrawalCredentials: message.WithdrawalCredentials,
		Amount:                amount,
		Signature:             signature,
		DepositMessageRoot:    messageRoot,
		DepositDataRoot:       dataRoot,
		ForkVersion:           b.network.GenesisForkVersion,
		NetworkName:           b.network.Name,
		DepositCliVersion:     DepositCliVersion,
	}
	return validator, datum, nil
}

// Verify checks the datum signature against its public key under the builder's
// deposit domain and recomputes its data root.
func (b *Builder) Verify(datum *DepositDatum) error {
	data := &signing.DepositData{
		Pubkey:                datum.Pubkey,
		WithdrawalCredentials: datum.WithdrawalCredentials,
		Amount:                datum.Amount,
		Signature:             datum.Signature,
	}
	signingRoot, err := signing.ComputeSigningRoot(data.Message(), b.domain)
	if err != nil {
		return err
	}
	if !blsSigner.Verify(datum.Pubkey, signingRoot, datum.Signature) {
		return fmt.Errorf("invalid deposit signature for %s", hexutil.Encode(datum.Pubkey[:]))
	}
	root, err := data.HashTreeRoot()
	if err != nil {
		return err
	}
	if root != datum.DepositDataRoot {
		return fmt.Errorf("deposit data root mismatch for %s", hexutil.Encode(datum.Pubkey[:]))
	}
	return nil
}
