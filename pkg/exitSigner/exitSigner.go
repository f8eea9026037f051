// Package exitSigner produces pre-signed voluntary exits. An exit signed at
// credential creation time stays usable after the key is gone.
package exitSigner

import (
	"fmt"

	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/signing"
	"go.uber.org/zap"
)

// Signer signs voluntary exits for one network.
type Signer struct {
	network *networkConfig.NetworkConfig
	logger  *zap.Logger
}

func NewSigner(network *networkConfig.NetworkConfig, logger *zap.Logger) *Signer {
	return &Signer{
		network: network,
		logger:  logger,
	}
}

// Domain is the voluntary exit domain of fork under the network's genesis validators root.
func (s *Signer) Domain(fork networkConfig.Fork) ([32]byte, error) {
	return signing.ComputeDomain(signing.DomainVoluntaryExit, fork.Version, s.network.GenesisValidatorsRoot)
}

// SigningRoot is the root signed for an exit of validatorIndex at fork.
func (s *Signer) SigningRoot(validatorIndex uint64, fork networkConfig.Fork) ([32]byte, error) {
	domain, err := s.Domain(fork)
	if err != nil {
		return [32]byte{}, err
	}
	exit := &signing.VoluntaryExit{
		Epoch:          fork.Epoch,
		ValidatorIndex: validatorIndex,
	}
	return signing.ComputeSigningRoot(exit, domain)
}

// Sign signs an exit of validatorIndex with signer. A nil fork selects the
// network's exit fork.
func (s *Signer) Sign(signer blsSigner.IBLSSigner, validatorIndex uint64, fork *networkConfig.Fork) ([blsSigner.SignatureLength]byte, error) {
	if fork == nil {
		fork = &s.network.ExitFork
	}
	root, err := s.SigningRoot(validatorIndex, *fork)
	if err != nil {
		return [blsSigner.SignatureLength]byte{}, fmt.Errorf("failed to compute exit signing root for validator %d: %w", validatorIndex, err)
	}
	sig, err := signer.SignRoot(root)
	if err != nil {
		return sig, fmt.Errorf("failed to sign exit for validator %d: %w", validatorIndex, err)
	}
	s.logger.Debug("Signed voluntary exit",
		zap.Uint64("validatorIndex", validatorIndex),
		zap.Uint64("epoch", fork.Epoch),
	)
	return sig, nil
}

// Verify checks an exit signature of validatorIndex under pubKey.
func (s *Signer) Verify(pubKey [blsSigner.PublicKeyLength]byte, validatorIndex uint64, fork networkConfig.Fork, sig [blsSigner.SignatureLength]byte) error {
	root, err := s.SigningRoot(validatorIndex, fork)
	if err != nil {
		return err
	}
	if !blsSigner.Verify(pubKey, root, sig) {
		return fmt.Errorf("invalid exit signature for validator %d", validatorIndex)
	}
	return nil
}
