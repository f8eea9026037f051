package credentialSource

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
	"github.com/stakewise/relayer-example/pkg/exitSigner"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"go.uber.org/zap"
)

// KeystoreKey is one decrypted validator key.
type KeystoreKey struct {
	Signer blsSigner.IBLSSigner
	// Path is the derivation path recorded in the keystore, if any
	Path string
}

// KeystoreSource resolves validator keys by public key. Its key set is fixed at
// construction and only read afterwards.
type KeystoreSource struct {
	network *networkConfig.NetworkConfig
	deposit *depositData.Builder
	exit    *exitSigner.Signer
	logger  *zap.Logger

	order []PublicKey
	keys  map[PublicKey]*KeystoreKey
}

// NewKeystoreSource creates a source holding keys. The order of keys is the order
// in which AvailablePublicKeys reports them; duplicates are rejected.
func NewKeystoreSource(network *networkConfig.NetworkConfig, keys []*KeystoreKey, logger *zap.Logger) (*KeystoreSource, error) {
	builder, err := depositData.NewBuilder(network, logger)
	if err != nil {
		return nil, err
	}
	s := &KeystoreSource{
		network: network,
		deposit: builder,
		exit:    exitSigner.NewSigner(network, logger),
		logger:  logger,
		order:   make([]PublicKey, 0, len(keys)),
		keys:    make(map[PublicKey]*KeystoreKey, len(keys)),
	}
	for _, key := range keys {
		pubKey := key.Signer.GetPublicKey()
		if _, ok := s.keys[pubKey]; ok {
			return nil, relayerErrors.Configuration("loadKeystores", "duplicate keystore for %s", hexutil.Encode(pubKey[:]))
		}
		s.keys[pubKey] = key
		s.order = append(s.order, pubKey)
	}
	logger.Sugar().Infow("Loaded validator keystores",
		zap.Int("count", len(s.order)),
		zap.String("network", network.Name),
	)
	return s, nil
}

func (s *KeystoreSource) Kind() Kind {
	return KindKeystore
}

// GenerateCredentials hands out the first count held keys bound to vault.
// startIndex is not used for key selection; it only numbers the exits signed
// for the returned credentials.
func (s *KeystoreSource) GenerateCredentials(
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
	out := make([]*credentials.Credential, 0, count)
	for _, pubKey := range s.order[:count] {
		key := s.keys[pubKey]
		out = append(out, &credentials.Credential{
			Signer:        key.Signer,
			Path:          key.Path,
			Vault:         vault,
			Network:       s.network.Name,
			ValidatorType: validatorType,
		})
	}
	return out, nil
}

// ValidateRange requires count keys to be held; any startIndex is accepted.
func (s *KeystoreSource) ValidateRange(_ uint64, count int) error {
	const op = "generateCredentials"
	if count < 0 {
		return relayerErrors.Validation(op, "negative count %d", count)
	}
	if count > len(s.order) {
		return relayerErrors.Lookup(op, "requested %d validators but only %d keystores are available", count, len(s.order))
	}
	return nil
}

func (s *KeystoreSource) AvailablePublicKeys() []PublicKey {
	out := make([]PublicKey, len(s.order))
	copy(out, s.order)
	return out
}

func (s *KeystoreSource) Contains(pubKey PublicKey) bool {
	_, ok := s.keys[pubKey]
	return ok
}

func (s *KeystoreSource) lookup(op string, pubKey PublicKey) (*KeystoreKey, error) {
	key, ok := s.keys[pubKey]
	if !ok {
		return nil, relayerErrors.Lookup(op, "public key %s not found in keystores", hexutil.Encode(pubKey[:]))
	}
	return key, nil
}

func (s *KeystoreSource) SignDeposit(
	pubKey PublicKey,
	amount uint64,
	vault common.Address,
	validatorType credentials.ValidatorType,
) (*credentials.Validator, *depositData.DepositDatum, error) {
	key, err := s.lookup("signDeposit", pubKey)
	if err != nil {
		return nil, nil, err
	}
	return s.deposit.Build(&credentials.Credential{
		Signer:        key.Signer,
		Path:          key.Path,
		Vault:         vault,
		Network:       s.network.Name,
		ValidatorType: validatorType,
	}, amount)
}

func (s *KeystoreSource) SignExit(validatorIndex uint64, pubKey PublicKey) ([blsSigner.SignatureLength]byte, error) {
	key, err := s.lookup("signExit", pubKey)
	if err != nil {
		return [blsSigner.SignatureLength]byte{}, err
	}
	return s.exit.Sign(key.Signer, validatorIndex, nil)
}
