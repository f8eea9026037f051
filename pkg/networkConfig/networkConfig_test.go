package networkConfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownNetworks(t *testing.T) {
	mainnet, err := Get(Mainnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), mainnet.ChainID)
	assert.Equal(t, "00000000", mainnet.GenesisForkVersionHex())
	assert.Equal(t, uint64(194048), mainnet.ExitFork.Epoch)
	assert.Equal(t, "0x00000000219ab540356cBB839Cbe05303d7705Fa", mainnet.ValidatorsRegistryContractAddress.Hex())

	hoodi, err := Get(Hoodi)
	require.NoError(t, err)
	assert.Equal(t, uint64(560048), hoodi.ChainID)
	assert.Equal(t, "10000910", hoodi.GenesisForkVersionHex())
}

func TestGet_UnknownNetwork(t *testing.T) {
	_, err := Get("goerli")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownNetwork))
}

func TestNames_Sorted(t *testing.T) {
	assert.Equal(t, []string{Chiado, Gnosis, Hoodi, Mainnet}, Names())
}

func TestNetworks_DistinctChainIDs(t *testing.T) {
	seen := map[uint64]string{}
	for _, name := range Names() {
		cfg, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, cfg.Name)
		if other, dup := seen[cfg.ChainID]; dup {
			t.Fatalf("chain id %d shared by %s and %s", cfg.ChainID, name, other)
		}
		seen[cfg.ChainID] = name
	}
}
