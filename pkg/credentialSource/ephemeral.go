package credentialSource

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
	"github.com/stakewise/relayer-example/pkg/keyDerivation"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"go.uber.org/zap"
)

// EphemeralSource derives a fresh batch of keys for every request and keeps none.
type EphemeralSource struct {
	network *networkConfig.NetworkConfig
	logger  *zap.Logger
}

// NewEphemeralSource creates an ephemeral source for network.
func NewEphemeralSource(network *networkConfig.NetworkConfig, logger *zap.Logger) *EphemeralSource {
	logger.Sugar().Warnw("No keystores configured, validator keys are generated per request and discarded. "+
		"Exit signatures cannot be regenerated by this relayer later.",
		zap.String("network", network.Name),
	)
	return &EphemeralSource{
		network: network,
		logger:  logger,
	}
}

func (s *EphemeralSource) Kind() Kind {
	return KindEphemeral
}

// GenerateCredentials draws one master secret and derives the keys at
// [startIndex, startIndex+count) from it.
func (s *EphemeralSource) GenerateCredentials(
	startIndex uint64,
	count int,
	vault common.Address,
	validatorType credentials.ValidatorType,
) ([]*credentials.Credential, error) {
	const op = "generateCredentials"
	if err := s.ValidateRange(startIndex, count); err != nil {
		return nil, err
	}
	if err := validatorType.Validate(); err != nil {
		return nil, relayerErrors.Validation(op, "%v", err)
	}

	master, err := keyDerivation.NewMasterSecret()
	if err != nil {
		return nil, relayerErrors.Configuration(op, "%v", err)
	}
	out := make([]*credentials.Credential, 0, count)
	for i := 0; i < count; i++ {
		index := uint32(startIndex + uint64(i))
		sk, err := keyDerivation.DeriveValidatorKey(master, index)
		if err != nil {
			return nil, relayerErrors.Configuration(op, "index %d: %v", index, err)
		}
		signer, err := blsSigner.NewInMemoryBLSSignerFromScalar(sk)
		if err != nil {
			return nil, relayerErrors.Configuration(op, "index %d: %v", index, err)
		}
		out = append(out, &credentials.Credential{
			Signer:        signer,
			Path:          keyDerivation.ValidatorPath(index),
			Vault:         vault,
			Network:       s.network.Name,
			ValidatorType: validatorType,
		})
	}
	s.logger.Debug("Derived ephemeral credentials",
		zap.Uint64("startIndex", startIndex),
		zap.Int("count", count),
	)
	return out, nil
}

// ValidateRange requires every index of [startIndex, startIndex+count) to fit a
// derivation path node.
func (s *EphemeralSource) ValidateRange(startIndex uint64, count int) error {
	const op = "generateCredentials"
	if count < 0 {
		return relayerErrors.Validation(op, "negative count %d", count)
	}
	if count > 0 && (startIndex > math.MaxUint32 || uint64(count)-1 > math.MaxUint32-startIndex) {
		return relayerErrors.Validation(op, "index range [%d, %d) exceeds the derivation path range", startIndex, startIndex+uint64(count))
	}
	return nil
}

// AvailablePublicKeys is always empty: nothing outlives a request.
func (s *EphemeralSource) AvailablePublicKeys() []PublicKey {
	return nil
}

func (s *EphemeralSource) Contains(PublicKey) bool {
	return false
}

func (s *EphemeralSource) SignDeposit(PublicKey, uint64, common.Address, credentials.ValidatorType) (*credentials.Validator, *depositData.DepositDatum, error) {
	return nil, nil, relayerErrors.Precondition("signDeposit", "no keystore configured")
}

func (s *EphemeralSource) SignExit(uint64, PublicKey) ([blsSigner.SignatureLength]byte, error) {
	return [blsSigner.SignatureLength]byte{}, relayerErrors.Precondition("signExit", "no keystore configured")
}
