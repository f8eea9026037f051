// Package networkConfig holds the static per-network parameters consumed by the
// credential and authorization code: chain id, genesis fork data, the fork used for
// voluntary-exit domains and the validators registry contract address.
package networkConfig

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	Mainnet = "mainnet"
	Hoodi   = "hoodi"
	Gnosis  = "gnosis"
	Chiado  = "chiado"
)

// MinFullDepositGwei is the deposit amount of a full validator on every supported network.
const MinFullDepositGwei uint64 = 32_000_000_000

var (
	// ErrUnknownNetwork is returned when a network name is not in the registry
	ErrUnknownNetwork = errors.New("unknown network")
)

// Fork is a consensus fork version activated at an epoch.
type Fork struct {
	Version [4]byte
	Epoch   uint64
}

// NetworkConfig is immutable once registered.
type NetworkConfig struct {
	Name                  string
	ChainID               uint64
	GenesisForkVersion    [4]byte
	GenesisValidatorsRoot [32]byte
	// ExitFork is the fork whose version signs voluntary exits. Since Deneb exits are
	// pinned to the Capella (Shapella) domain so they never expire.
	ExitFork                          Fork
	ValidatorsRegistryContractAddress common.Address
}

var networks = map[string]*NetworkConfig{
	Mainnet: {
		Name:                              Mainnet,
		ChainID:                           1,
		GenesisForkVersion:                [4]byte{0x00, 0x00, 0x00, 0x00},
		GenesisValidatorsRoot:             common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95"),
		ExitFork:                          Fork{Version: [4]byte{0x03, 0x00, 0x00, 0x00}, Epoch: 194048},
		ValidatorsRegistryContractAddress: common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa"),
	},
	Hoodi: {
		Name:                              Hoodi,
		ChainID:                           560048,
		GenesisForkVersion:                [4]byte{0x10, 0x00, 0x09, 0x10},
		GenesisValidatorsRoot:             common.HexToHash("0x212f13fc4df078b6cb7db228f1c8307566dcecf900867401a92023d7ba99cb5f"),
		ExitFork:                          Fork{Version: [4]byte{0x40, 0x00, 0x09, 0x10}, Epoch: 0},
		ValidatorsRegistryContractAddress: common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa"),
	},
	Gnosis: {
		Name:                              Gnosis,
		ChainID:                           100,
		GenesisForkVersion:                [4]byte{0x00, 0x00, 0x00, 0x64},
		GenesisValidatorsRoot:             common.HexToHash("0xf5dcb5564e829aab27264b9becd5dfaa017085611224cb3036f573368dbb9d47"),
		ExitFork:                          Fork{Version: [4]byte{0x03, 0x00, 0x00, 0x64}, Epoch: 648704},
		ValidatorsRegistryContractAddress: common.HexToAddress("0x0B98057eA310F4d31F2a452B414647007d1645d9"),
	},
	Chiado: {
		Name:                              Chiado,
		ChainID:                           10200,
		GenesisForkVersion:                [4]byte{0x00, 0x00, 0x00, 0x6f},
		GenesisValidatorsRoot:             common.HexToHash("0x9d642dac73058fbf39c0ae41ab1e34e4d889043cb199851ded7095bc99eb4c1e"),
		ExitFork:                          Fork{Version: [4]byte{0x03, 0x00, 0x00, 0x6f}, Epoch: 244224},
		ValidatorsRegistryContractAddress: common.HexToAddress("0xb97036A26259B7147018913bD58a774cf91acf25"),
	},
}

// Get returns the configuration registered under name.
func Get(name string) (*NetworkConfig, error) {
	cfg, ok := networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return cfg, nil
}

// Names lists the registered networks in lexical order.
func Names() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenesisForkVersionHex is the genesis fork version as deposit-cli prints it (no 0x prefix).
func (n *NetworkConfig) GenesisForkVersionHex() string {
	return hexutil.Encode(n.GenesisForkVersion[:])[2:]
}
