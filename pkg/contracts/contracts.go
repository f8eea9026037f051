// Package contracts reads the on-chain state that validators manager
// authorizations are bound to: the validators registry root and the manager
// nonce of a vault.
package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const validatorsRegistryABI = `[{"inputs":[],"name":"get_deposit_root","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}]`

const vaultABI = `[{"inputs":[],"name":"validatorsManagerNonce","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the read-only subset of the execution client used here.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds the addresses and call timeout of the reader.
type Config struct {
	ValidatorsRegistryAddress common.Address
	// Timeout bounds every call; zero means no bound beyond the caller's context
	Timeout time.Duration
}

// Reader fetches registry roots and vault nonces at the latest block.
type Reader struct {
	config      *Config
	caller      ContractCaller
	logger      *zap.Logger
	registryABI abi.ABI
	vaultABI    abi.ABI
}

// NewReader parses the contract ABIs and binds them to caller.
func NewReader(cfg *Config, caller ContractCaller, l *zap.Logger) (*Reader, error) {
	registryABI, err := abi.JSON(strings.NewReader(validatorsRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse validators registry ABI: %w", err)
	}
	vault, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	return &Reader{
		config:      cfg,
		caller:      caller,
		logger:      l,
		registryABI: registryABI,
		vaultABI:    vault,
	}, nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string) ([]interface{}, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	input, err := contract.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, to.Hex(), err)
	}
	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s from %s: %w", method, to.Hex(), err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s output count %d", method, len(values))
	}
	return values, nil
}

// GetRegistryRoot returns the current validators registry root.
func (r *Reader) GetRegistryRoot(ctx context.Context) ([32]byte, error) {
	values, err := r.call(ctx, r.registryABI, r.config.ValidatorsRegistryAddress, "get_deposit_root")
	if err != nil {
		return [32]byte{}, err
	}
	root, ok := values[0].([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("unexpected registry root type %T", values[0])
	}
	r.logger.Sugar().Debugw("Fetched validators registry root",
		zap.String("root", hexutil.Encode(root[:])),
	)
	return root, nil
}

// GetManagerNonce returns the current validators manager nonce of vault.
func (r *Reader) GetManagerNonce(ctx context.Context, vault common.Address) (*big.Int, error) {
	values, err := r.call(ctx, r.vaultABI, vault, "validatorsManagerNonce")
	if err != nil {
		return nil, err
	}
	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected manager nonce type %T", values[0])
	}
	r.logger.Sugar().Debugw("Fetched validators manager nonce",
		zap.String("vault", vault.Hex()),
		zap.String("nonce", nonce.String()),
	)
	return nonce, nil
}
