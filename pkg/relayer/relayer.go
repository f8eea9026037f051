// Package relayer serves the four validators manager operations. Each operation
// validates its request before touching keys or the chain, then fetches the
// registry root or the vault nonce, then builds and encodes the validator
// payload, and only then signs it with the manager key.
package relayer

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stakewise/relayer-example/pkg/credentialSource"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
	"github.com/stakewise/relayer-example/pkg/exitSigner"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/util"
	"github.com/stakewise/relayer-example/pkg/validatorsManager"
	"go.uber.org/zap"
)

// IStateReader fetches the on-chain values authorizations are bound to.
type IStateReader interface {
	GetRegistryRoot(ctx context.Context) ([32]byte, error)
	GetManagerNonce(ctx context.Context, vault common.Address) (*big.Int, error)
}

// Relayer holds everything needed to authorize validator operations. It is built
// once at startup and shared read-only by all requests.
type Relayer struct {
	network    *networkConfig.NetworkConfig
	source     credentialSource.ICredentialSource
	deposits   *depositData.Builder
	exits      *exitSigner.Signer
	authorizer *validatorsManager.Authorizer
	state      IStateReader
	logger     *zap.Logger
}

func NewRelayer(
	network *networkConfig.NetworkConfig,
	source credentialSource.ICredentialSource,
	authorizer *validatorsManager.Authorizer,
	state IStateReader,
	logger *zap.Logger,
) (*Relayer, error) {
	deposits, err := depositData.NewBuilder(network, logger)
	if err != nil {
		return nil, err
	}
	return &Relayer{
		network:    network,
		source:     source,
		deposits:   deposits,
		exits:      exitSigner.NewSigner(network, logger),
		authorizer: authorizer,
		state:      state,
		logger:     logger,
	}, nil
}

// Network is the network the relayer serves.
func (r *Relayer) Network() *networkConfig.NetworkConfig {
	return r.network
}

// SourceKind reports which credential source is in use.
func (r *Relayer) SourceKind() credentialSource.Kind {
	return r.source.Kind()
}

func validateAmounts(op string, amounts []uint64) error {
	if len(amounts) == 0 {
		return relayerErrors.Validation(op, "amounts must not be empty")
	}
	for i, amount := range amounts {
		if amount == 0 {
			return relayerErrors.Validation(op, "amount %d must be positive", i)
		}
	}
	return nil
}

func (r *Relayer) requireKeystore(op string) error {
	if r.source.Kind() != credentialSource.KindKeystore {
		return relayerErrors.Precondition(op, "%s requires configured keystores", op)
	}
	return nil
}

func (r *Relayer) managerNonce(ctx context.Context, vault common.Address) (validatorsManager.ManagerNonce, error) {
	value, err := r.state.GetManagerNonce(ctx, vault)
	if err != nil {
		return validatorsManager.ManagerNonce{}, fmt.Errorf("failed to fetch validators manager nonce: %w", err)
	}
	nonce, err := validatorsManager.NewManagerNonce(value)
	if err != nil {
		return validatorsManager.ManagerNonce{}, fmt.Errorf("invalid validators manager nonce: %w", err)
	}
	return nonce, nil
}

// Register creates len(req.Amounts) validators, signs their deposits and exits and
// authorizes their registration against the current registry root.
func (r *Relayer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	const op = "register"
	if err := req.ValidatorType.Validate(); err != nil {
		return nil, relayerErrors.Validation(op, "%v", err)
	}
	if err := validateAmounts(op, req.Amounts); err != nil {
		return nil, err
	}
	if req.ValidatorType == credentials.V1 {
		for i, amount := range req.Amounts {
			if amount != networkConfig.MinFullDepositGwei {
				return nil, relayerErrors.Validation(op, "amount %d: V1 validators take a full deposit of %d gwei", i, networkConfig.MinFullDepositGwei)
			}
		}
	}
	count := uint64(len(req.Amounts))
	if req.StartIndex > math.MaxUint64-count {
		return nil, relayerErrors.Validation(op, "start index %d overflows", req.StartIndex)
	}
	if err := r.source.ValidateRange(req.StartIndex, len(req.Amounts)); err != nil {
		return nil, err
	}

	root, err := r.state.GetRegistryRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch validators registry root: %w", err)
	}

	creds, err := r.source.GenerateCredentials(req.StartIndex, len(req.Amounts), req.Vault, req.ValidatorType)
	if err != nil {
		return nil, err
	}
	validators := make([]*credentials.Validator, 0, len(creds))
	data := make([]*depositData.DepositDatum, 0, len(creds))
	for i, cred := range creds {
		validator, datum, err := r.deposits.Build(cred, req.Amounts[i])
		if err != nil {
			return nil, fmt.Errorf("validator %d: %w", i, err)
		}
		validatorIndex := req.StartIndex + uint64(i)
		exitSignature, err := r.exits.Sign(cred.Signer, validatorIndex, nil)
		if err != nil {
			return nil, fmt.Errorf("validator %d: %w", i, err)
		}
		validator.ExitSignature = &exitSignature
		validators = append(validators, validator)
		data = append(data, datum)
	}

	signature, err := r.authorizer.SignRegister(req.Vault, validatorsManager.RegistryRoot(root), validators)
	if err != nil {
		return nil, err
	}
	r.logger.Sugar().Infow("Authorized validators registration",
		zap.String("vault", req.Vault.Hex()),
		zap.Uint64("startIndex", req.StartIndex),
		zap.Int("count", len(validators)),
		zap.String("validatorType", string(req.ValidatorType)),
		zap.String("registryRoot", hexutil.Encode(root[:])),
	)
	return &RegisterResponse{
		Validators:                 validators,
		DepositData:                data,
		ValidatorsManagerSignature: signature,
	}, nil
}

// Fund signs top-up deposits for keystore-held validators. Funded validators are
// always encoded with their amount, like V2 registrations.
func (r *Relayer) Fund(ctx context.Context, req *FundRequest) (*FundResponse, error) {
	const op = "fund"
	if err := r.requireKeystore(op); err != nil {
		return nil, err
	}
	pairs, err := util.Zip(req.PublicKeys, req.Amounts)
	if err != nil {
		return nil, relayerErrors.Validation(op, "public keys and amounts: %v", err)
	}
	if err := validateAmounts(op, req.Amounts); err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if !r.source.Contains(p.First) {
			return nil, relayerErrors.Lookup(op, "public key %s not found in keystores", hexutil.Encode(p.First[:]))
		}
	}

	nonce, err := r.managerNonce(ctx, req.Vault)
	if err != nil {
		return nil, err
	}

	validators, err := util.MapErr(pairs, func(p util.Pair[PublicKey, uint64], _ uint64) (*credentials.Validator, error) {
		validator, _, err := r.source.SignDeposit(p.First, p.Second, req.Vault, credentials.V2)
		return validator, err
	})
	if err != nil {
		return nil, err
	}

	signature, err := r.authorizer.SignFund(req.Vault, nonce, validators)
	if err != nil {
		return nil, err
	}
	r.logger.Sugar().Infow("Authorized validators funding",
		zap.String("vault", req.Vault.Hex()),
		zap.Int("count", len(validators)),
		zap.String("nonce", nonce.Value.String()),
	)
	return &FundResponse{
		Validators:                 validators,
		ValidatorsManagerSignature: signature,
	}, nil
}

// Withdraw authorizes partial withdrawals.
func (r *Relayer) Withdraw(ctx context.Context, req *WithdrawRequest) (*SignatureResponse, error) {
	const op = "withdraw"
	if err := r.requireKeystore(op); err != nil {
		return nil, err
	}
	if len(req.PublicKeys) != len(req.Amounts) {
		return nil, relayerErrors.Validation(op, "got %d public keys and %d amounts", len(req.PublicKeys), len(req.Amounts))
	}
	if err := validateAmounts(op, req.Amounts); err != nil {
		return nil, err
	}

	nonce, err := r.managerNonce(ctx, req.Vault)
	if err != nil {
		return nil, err
	}
	signature, err := r.authorizer.SignWithdraw(req.Vault, nonce, req.PublicKeys, req.Amounts)
	if err != nil {
		return nil, err
	}
	r.logger.Sugar().Infow("Authorized validators withdrawal",
		zap.String("vault", req.Vault.Hex()),
		zap.Int("count", len(req.PublicKeys)),
		zap.String("nonce", nonce.Value.String()),
	)
	return &SignatureResponse{ValidatorsManagerSignature: signature}, nil
}

// Consolidate authorizes consolidations of source validators into targets.
func (r *Relayer) Consolidate(ctx context.Context, req *ConsolidateRequest) (*SignatureResponse, error) {
	const op = "consolidate"
	if err := r.requireKeystore(op); err != nil {
		return nil, err
	}
	if len(req.SourcePublicKeys) != len(req.TargetPublicKeys) {
		return nil, relayerErrors.Validation(op, "got %d source and %d target public keys", len(req.SourcePublicKeys), len(req.TargetPublicKeys))
	}
	if len(req.SourcePublicKeys) == 0 {
		return nil, relayerErrors.Validation(op, "public keys must not be empty")
	}

	nonce, err := r.managerNonce(ctx, req.Vault)
	if err != nil {
		return nil, err
	}
	signature, err := r.authorizer.SignConsolidate(req.Vault, nonce, req.SourcePublicKeys, req.TargetPublicKeys)
	if err != nil {
		return nil, err
	}
	r.logger.Sugar().Infow("Authorized validators consolidation",
		zap.String("vault", req.Vault.Hex()),
		zap.Int("count", len(req.SourcePublicKeys)),
		zap.String("nonce", nonce.Value.String()),
	)
	return &SignatureResponse{ValidatorsManagerSignature: signature}, nil
}
