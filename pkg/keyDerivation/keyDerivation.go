// Package keyDerivation derives validator signing keys from a master secret following
// EIP-2333 (tree KDF) along the EIP-2334 signing path m/12381/3600/<index>/0/0.
package keyDerivation

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	util "github.com/wealdtech/go-eth2-util"
)

const (
	// Purpose identifies the BLS12-381 key family.
	Purpose uint32 = 12381
	// CoinType is the namespace of Ethereum validator keys.
	CoinType uint32 = 3600
	// ValidatorPathTemplate is the EIP-2334 path of a validator signing key.
	ValidatorPathTemplate = "m/12381/3600/%d/0/0"
)

// CurveOrder is the order r of the BLS12-381 scalar field.
var CurveOrder, _ = new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)

var (
	// ErrInvalidMasterSecret is returned for a master secret of 0 or >= CurveOrder
	ErrInvalidMasterSecret = errors.New("master secret out of range")
)

// NewMasterSecret draws a uniformly random master secret in [1, CurveOrder).
func NewMasterSecret() (*big.Int, error) {
	upper := new(big.Int).Sub(CurveOrder, big.NewInt(1))
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to draw master secret: %w", err)
	}
	return n.Add(n, big.NewInt(1)), nil
}

// ValidatorPath returns the derivation path string of the signing key at index.
func ValidatorPath(index uint32) string {
	return fmt.Sprintf(ValidatorPathTemplate, index)
}

// PathNodes returns the child indices walked below the master node for index.
func PathNodes(index uint32) []uint32 {
	return []uint32{Purpose, CoinType, index, 0, 0}
}

// DeriveValidatorKey folds the EIP-2333 hardened child derivation over the
// validator path nodes, starting from master. The result is deterministic in
// (master, index).
func DeriveValidatorKey(master *big.Int, index uint32) (*big.Int, error) {
	if master == nil || master.Sign() <= 0 || master.Cmp(CurveOrder) >= 0 {
		return nil, ErrInvalidMasterSecret
	}
	sk := new(big.Int).Set(master)
	for _, node := range PathNodes(index) {
		child, err := util.DeriveChildSK(sk, node)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d of %s: %w", node, ValidatorPath(index), err)
		}
		sk = child
	}
	return sk, nil
}

// ScalarBytes returns sk as a 32-byte big-endian scalar.
func ScalarBytes(sk *big.Int) []byte {
	out := make([]byte, 32)
	sk.FillBytes(out)
	return out
}
