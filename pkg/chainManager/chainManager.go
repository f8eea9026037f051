// Package chainManager manages the execution-layer connection of the relayer.
// The relayer only reads from one chain: the validators registry root and vault
// nonces. The connection is checked against the configured network on startup.
package chainManager

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	// ErrChainIdMismatch is returned when the endpoint serves a different chain than configured
	ErrChainIdMismatch = errors.New("chain id mismatch")
)

// EthClientInterface defines the methods needed for reading contract state.
// ethclient.Client satisfies it; tests substitute fakes.
type EthClientInterface interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainConfig holds the configuration for connecting to the execution chain.
type ChainConfig struct {
	// ChainID is the chain id the endpoint must report
	ChainID uint64
	// RPCUrl is the URL endpoint for connecting to the blockchain RPC
	RPCUrl string
	// Timeout bounds the startup chain id check
	Timeout time.Duration
}

// Chain represents an active connection to the execution chain.
type Chain struct {
	config *ChainConfig
	// RPCClient is the active client connection for this chain
	RPCClient EthClientInterface
}

// Connect dials cfg.RPCUrl and verifies that it serves cfg.ChainID.
//
// Parameters:
//   - ctx: Context for the dial and the chain id query
//   - cfg: The chain configuration containing chain ID and RPC URL
//   - l: A zap logger
//
// Returns:
//   - *Chain: The verified connection
//   - error: An error if the connection fails or the chain id differs
func Connect(ctx context.Context, cfg *ChainConfig, l *zap.Logger) (*Chain, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC URL %s: %w", cfg.RPCUrl, err)
	}
	chain, err := NewChain(ctx, cfg, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.Sugar().Infow("Connected to execution client",
		zap.Uint64("chainId", cfg.ChainID),
	)
	return chain, nil
}

// NewChain wraps an existing client after checking its chain id.
func NewChain(ctx context.Context, cfg *ChainConfig, client EthClientInterface) (*Chain, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	if !chainID.IsUint64() || chainID.Uint64() != cfg.ChainID {
		return nil, fmt.Errorf("%w: expected %d, got %s", ErrChainIdMismatch, cfg.ChainID, chainID)
	}
	return &Chain{
		config:    cfg,
		RPCClient: client,
	}, nil
}

// ChainID is the verified chain id.
func (c *Chain) ChainID() uint64 {
	return c.config.ChainID
}
