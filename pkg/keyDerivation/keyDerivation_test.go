package keyDerivation

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e2types "github.com/wealdtech/go-eth2-types/v2"
	util "github.com/wealdtech/go-eth2-util"
)

func mustBig(t *testing.T, s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return n
}

// EIP-2333 test case 0.
func TestDeriveChildSK_EIP2333Vector(t *testing.T) {
	seed := hexutil.MustDecode("0xc55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")

	master, err := util.DeriveMasterSK(seed)
	require.NoError(t, err)
	assert.Equal(t, mustBig(t, "6083874454709270928345386274498605044986640685124978867557563392430687146096"), master)

	child, err := util.DeriveChildSK(master, 0)
	require.NoError(t, err)
	assert.Equal(t, mustBig(t, "20397789859736650942317412262472558107875392172444076792671091975210932703118"), child)
}

func TestDeriveValidatorKey_MatchesSeedAndPath(t *testing.T) {
	require.NoError(t, e2types.InitBLS())
	seed := hexutil.MustDecode("0xc55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	master, err := util.DeriveMasterSK(seed)
	require.NoError(t, err)

	for _, index := range []uint32{0, 1, 42} {
		derived, err := DeriveValidatorKey(master, index)
		require.NoError(t, err)

		expected, err := util.PrivateKeyFromSeedAndPath(seed, ValidatorPath(index))
		require.NoError(t, err)
		assert.Equal(t, expected.Marshal(), ScalarBytes(derived), "index %d", index)
	}
}

func TestDeriveValidatorKey_Deterministic(t *testing.T) {
	master, err := NewMasterSecret()
	require.NoError(t, err)

	first, err := DeriveValidatorKey(master, 3)
	require.NoError(t, err)
	second, err := DeriveValidatorKey(master, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeriveValidatorKey_IndependentIndices(t *testing.T) {
	master, err := NewMasterSecret()
	require.NoError(t, err)

	seen := map[string]uint32{}
	for index := uint32(0); index < 5; index++ {
		sk, err := DeriveValidatorKey(master, index)
		require.NoError(t, err)
		assert.True(t, sk.Sign() > 0)
		assert.True(t, sk.Cmp(CurveOrder) < 0)
		if prev, dup := seen[sk.String()]; dup {
			t.Fatalf("indices %d and %d derived the same key", prev, index)
		}
		seen[sk.String()] = index
	}
}

func TestDeriveValidatorKey_DoesNotMutateMaster(t *testing.T) {
	master := big.NewInt(123456789)
	snapshot := new(big.Int).Set(master)
	_, err := DeriveValidatorKey(master, 0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, master)
}

func TestDeriveValidatorKey_RejectsOutOfRangeMaster(t *testing.T) {
	for _, master := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1), new(big.Int).Set(CurveOrder), new(big.Int).Add(CurveOrder, big.NewInt(1))} {
		_, err := DeriveValidatorKey(master, 0)
		assert.True(t, errors.Is(err, ErrInvalidMasterSecret))
	}
}

func TestNewMasterSecret_InRange(t *testing.T) {
	for i := 0; i < 10; i++ {
		master, err := NewMasterSecret()
		require.NoError(t, err)
		assert.True(t, master.Sign() > 0)
		assert.True(t, master.Cmp(CurveOrder) < 0)
	}
}

func TestValidatorPath(t *testing.T) {
	assert.Equal(t, "m/12381/3600/7/0/0", ValidatorPath(7))
	assert.Equal(t, []uint32{12381, 3600, 7, 0, 0}, PathNodes(7))
}

func TestScalarBytes_LeftPads(t *testing.T) {
	out := ScalarBytes(big.NewInt(1))
	require.Len(t, out, 32)
	assert.Equal(t, byte(1), out[31])
	assert.Equal(t, make([]byte, 31), out[:31])
}
