package relayer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentialSource"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/depositData"
	"github.com/stakewise/relayer-example/pkg/ecdsaSigner"
	"github.com/stakewise/relayer-example/pkg/exitSigner"
	"github.com/stakewise/relayer-example/pkg/networkConfig"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/validatorsManager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const managerKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	testVault = common.HexToAddress("0x1234567890123456789012345678901234567890")
	testRoot  = common.HexToHash("0x5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a5a")
)

type fakeState struct {
	root       [32]byte
	nonce      *big.Int
	err        error
	rootCalls  int
	nonceCalls int
}

func (f *fakeState) GetRegistryRoot(context.Context) ([32]byte, error) {
	f.rootCalls++
	return f.root, f.err
}

func (f *fakeState) GetManagerNonce(context.Context, common.Address) (*big.Int, error) {
	f.nonceCalls++
	return f.nonce, f.err
}

// countingSigner records how often the manager key was used.
type countingSigner struct {
	ecdsaSigner.IHashSigner
	calls int
}

func (c *countingSigner) SignHash(hash []byte) ([]byte, error) {
	c.calls++
	return c.IHashSigner.SignHash(hash)
}

type fixture struct {
	relayer *Relayer
	state   *fakeState
	signer  *countingSigner
	network *networkConfig.NetworkConfig
	manager common.Address
}

func newFixture(t *testing.T, keystoreScalars ...int64) *fixture {
	network, err := networkConfig.Get(networkConfig.Mainnet)
	require.NoError(t, err)

	var source credentialSource.ICredentialSource
	if len(keystoreScalars) == 0 {
		source = credentialSource.NewEphemeralSource(network, zap.NewNop())
	} else {
		signers := make([]*blsSigner.InMemoryBLSSigner, 0, len(keystoreScalars))
		for _, s := range keystoreScalars {
			signer, err := blsSigner.NewInMemoryBLSSignerFromScalar(big.NewInt(s))
			require.NoError(t, err)
			signers = append(signers, signer)
		}
		source, err = credentialSource.NewKeystoreSource(network, credentialSource.KeysFromSigners(signers), zap.NewNop())
		require.NoError(t, err)
	}

	pk, err := ecdsaSigner.NewPrivateKeySigner(managerKey)
	require.NoError(t, err)
	manager, err := pk.GetAddress()
	require.NoError(t, err)
	signer := &countingSigner{IHashSigner: pk}

	state := &fakeState{root: testRoot, nonce: big.NewInt(7)}
	r, err := NewRelayer(network, source, validatorsManager.NewAuthorizer(network.ChainID, signer, zap.NewNop()), state, zap.NewNop())
	require.NoError(t, err)
	return &fixture{relayer: r, state: state, signer: signer, network: network, manager: manager}
}

func recoverManager(t *testing.T, chainID uint64, slot validatorsManager.RootOrNonce, payload []byte, sig []byte) common.Address {
	hash, _, err := apitypes.TypedDataAndHash(validatorsManager.TypedData(chainID, testVault, slot, payload))
	require.NoError(t, err)
	require.Len(t, sig, ecdsaSigner.SignatureLength)
	normalized := append([]byte{}, sig...)
	normalized[64] -= 27
	pub, err := crypto.SigToPub(hash, normalized)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub)
}

func pubKeyOf(t *testing.T, scalar int64) PublicKey {
	signer, err := blsSigner.NewInMemoryBLSSignerFromScalar(big.NewInt(scalar))
	require.NoError(t, err)
	return signer.GetPublicKey()
}

func TestRelayer_RegisterSingleV1(t *testing.T) {
	f := newFixture(t)
	resp, err := f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		StartIndex:    0,
		Amounts:       []uint64{32_000_000_000},
		ValidatorType: credentials.V1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Validators, 1)
	require.Len(t, resp.DepositData, 1)

	v := resp.Validators[0]
	assert.Len(t, v.PublicKey, 48)
	assert.Len(t, v.DepositSignature, 96)
	assert.Len(t, v.DepositDataRoot, 32)
	require.NotNil(t, v.ExitSignature)
	assert.Equal(t, uint64(32_000_000_000), v.Amount)

	builder, err := depositData.NewBuilder(f.network, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, builder.Verify(resp.DepositData[0]))
	assert.Equal(t, byte(0x01), resp.DepositData[0].WithdrawalCredentials[0])
	assert.Equal(t, testVault.Bytes(), resp.DepositData[0].WithdrawalCredentials[12:])

	exits := exitSigner.NewSigner(f.network, zap.NewNop())
	require.NoError(t, exits.Verify(v.PublicKey, 0, f.network.ExitFork, *v.ExitSignature))

	payload, err := validatorsManager.EncodeValidators(resp.Validators)
	require.NoError(t, err)
	assert.Len(t, payload, 176)
	assert.Equal(t, f.manager, recoverManager(t, 1, validatorsManager.RegistryRoot(testRoot), payload, resp.ValidatorsManagerSignature))
	assert.Equal(t, 1, f.state.rootCalls)
	assert.Equal(t, 0, f.state.nonceCalls)
}

func TestRelayer_RegisterV2(t *testing.T) {
	f := newFixture(t)
	amounts := []uint64{1_000_000_000, 2_000_000_000, 32_000_000_000}
	resp, err := f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		StartIndex:    100,
		Amounts:       amounts,
		ValidatorType: credentials.V2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Validators, 3)

	exits := exitSigner.NewSigner(f.network, zap.NewNop())
	for i, v := range resp.Validators {
		assert.Equal(t, amounts[i], v.Amount)
		assert.Equal(t, byte(0x02), resp.DepositData[i].WithdrawalCredentials[0])
		require.NoError(t, exits.Verify(v.PublicKey, 100+uint64(i), f.network.ExitFork, *v.ExitSignature))
	}

	payload, err := validatorsManager.EncodeValidators(resp.Validators)
	require.NoError(t, err)
	assert.Len(t, payload, 3*184)
	assert.Equal(t, f.manager, recoverManager(t, 1, validatorsManager.RegistryRoot(testRoot), payload, resp.ValidatorsManagerSignature))
}

func TestRelayer_RegisterRejectsBeforeSigning(t *testing.T) {
	f := newFixture(t)
	cases := []*RegisterRequest{
		{Vault: testVault, Amounts: nil, ValidatorType: credentials.V2},
		{Vault: testVault, Amounts: []uint64{0}, ValidatorType: credentials.V2},
		{Vault: testVault, Amounts: []uint64{1}, ValidatorType: credentials.ValidatorType("0x03")},
		{Vault: testVault, Amounts: []uint64{1_000_000_000}, ValidatorType: credentials.V1},
	}
	for _, req := range cases {
		_, err := f.relayer.Register(context.Background(), req)
		assert.True(t, errors.Is(err, relayerErrors.ErrValidation), "%v", err)
	}
	assert.Equal(t, 0, f.state.rootCalls)
	assert.Equal(t, 0, f.signer.calls)
}

func TestRelayer_RegisterRejectsRangeBeforeFetchingRoot(t *testing.T) {
	f := newFixture(t)
	_, err := f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		StartIndex:    1<<32 - 1,
		Amounts:       []uint64{1_000_000_000, 1_000_000_000},
		ValidatorType: credentials.V2,
	})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation), "%v", err)

	k := newFixture(t, 11)
	_, err = k.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		Amounts:       []uint64{1_000_000_000, 1_000_000_000},
		ValidatorType: credentials.V2,
	})
	assert.True(t, errors.Is(err, relayerErrors.ErrLookup), "%v", err)

	assert.Equal(t, 0, f.state.rootCalls)
	assert.Equal(t, 0, k.state.rootCalls)
}

func TestRelayer_RegisterStateFailure(t *testing.T) {
	f := newFixture(t)
	f.state.err = errors.New("rpc down")
	_, err := f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		Amounts:       []uint64{32_000_000_000},
		ValidatorType: credentials.V1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")
	assert.Equal(t, 0, f.signer.calls)
}

func TestRelayer_RegisterFromKeystore(t *testing.T) {
	f := newFixture(t, 11, 12)
	resp, err := f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		StartIndex:    5,
		Amounts:       []uint64{32_000_000_000, 32_000_000_000},
		ValidatorType: credentials.V1,
	})
	require.NoError(t, err)
	assert.Equal(t, pubKeyOf(t, 11), resp.Validators[0].PublicKey)
	assert.Equal(t, pubKeyOf(t, 12), resp.Validators[1].PublicKey)

	_, err = f.relayer.Register(context.Background(), &RegisterRequest{
		Vault:         testVault,
		Amounts:       []uint64{1, 1, 1},
		ValidatorType: credentials.V2,
	})
	assert.True(t, errors.Is(err, relayerErrors.ErrLookup))
}

func TestRelayer_EphemeralPreconditions(t *testing.T) {
	f := newFixture(t)
	pk := pubKeyOf(t, 1)
	ctx := context.Background()

	_, err := f.relayer.Fund(ctx, &FundRequest{Vault: testVault, PublicKeys: []PublicKey{pk}, Amounts: []uint64{1}})
	assert.True(t, errors.Is(err, relayerErrors.ErrPrecondition))
	_, err = f.relayer.Withdraw(ctx, &WithdrawRequest{Vault: testVault, PublicKeys: []PublicKey{pk}, Amounts: []uint64{1}})
	assert.True(t, errors.Is(err, relayerErrors.ErrPrecondition))
	_, err = f.relayer.Consolidate(ctx, &ConsolidateRequest{Vault: testVault, SourcePublicKeys: []PublicKey{pk}, TargetPublicKeys: []PublicKey{pk}})
	assert.True(t, errors.Is(err, relayerErrors.ErrPrecondition))
	assert.Equal(t, 0, f.state.nonceCalls)
}

func TestRelayer_Fund(t *testing.T) {
	f := newFixture(t, 21, 22)
	keys := []PublicKey{pubKeyOf(t, 22), pubKeyOf(t, 21)}
	resp, err := f.relayer.Fund(context.Background(), &FundRequest{
		Vault:      testVault,
		PublicKeys: keys,
		Amounts:    []uint64{3_000_000_000, 4_000_000_000},
	})
	require.NoError(t, err)
	require.Len(t, resp.Validators, 2)
	for i, v := range resp.Validators {
		assert.Equal(t, keys[i], v.PublicKey)
		assert.Equal(t, credentials.V2, v.ValidatorType)
	}

	nonce, err := validatorsManager.NewManagerNonce(big.NewInt(7))
	require.NoError(t, err)
	payload, err := validatorsManager.EncodeValidators(resp.Validators)
	require.NoError(t, err)
	assert.Len(t, payload, 2*184)
	assert.Equal(t, f.manager, recoverManager(t, 1, nonce, payload, resp.ValidatorsManagerSignature))
	assert.Equal(t, 1, f.state.nonceCalls)
}

func TestRelayer_FundRejects(t *testing.T) {
	f := newFixture(t, 21)
	ctx := context.Background()

	_, err := f.relayer.Fund(ctx, &FundRequest{
		Vault:      testVault,
		PublicKeys: []PublicKey{pubKeyOf(t, 21)},
		Amounts:    []uint64{1, 2},
	})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation))

	_, err = f.relayer.Fund(ctx, &FundRequest{
		Vault:      testVault,
		PublicKeys: []PublicKey{pubKeyOf(t, 99)},
		Amounts:    []uint64{1},
	})
	assert.True(t, errors.Is(err, relayerErrors.ErrLookup))

	assert.Equal(t, 0, f.state.nonceCalls)
	assert.Equal(t, 0, f.signer.calls)
}

func TestRelayer_Withdraw(t *testing.T) {
	f := newFixture(t, 31)
	keys := []PublicKey{pubKeyOf(t, 40), pubKeyOf(t, 41)}
	resp, err := f.relayer.Withdraw(context.Background(), &WithdrawRequest{
		Vault:      testVault,
		PublicKeys: keys,
		Amounts:    []uint64{5, 6},
	})
	require.NoError(t, err)

	nonce, err := validatorsManager.NewManagerNonce(big.NewInt(7))
	require.NoError(t, err)
	payload, err := validatorsManager.EncodeWithdrawals(keys, []uint64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, f.manager, recoverManager(t, 1, nonce, payload, resp.ValidatorsManagerSignature))

	_, err = f.relayer.Withdraw(context.Background(), &WithdrawRequest{Vault: testVault, PublicKeys: keys, Amounts: []uint64{5}})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation))
	_, err = f.relayer.Withdraw(context.Background(), &WithdrawRequest{Vault: testVault})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation))
}

func TestRelayer_Consolidate(t *testing.T) {
	f := newFixture(t, 31)
	sources := []PublicKey{pubKeyOf(t, 50), pubKeyOf(t, 51)}
	targets := []PublicKey{pubKeyOf(t, 52), pubKeyOf(t, 51)}
	resp, err := f.relayer.Consolidate(context.Background(), &ConsolidateRequest{
		Vault:            testVault,
		SourcePublicKeys: sources,
		TargetPublicKeys: targets,
	})
	require.NoError(t, err)

	nonce, err := validatorsManager.NewManagerNonce(big.NewInt(7))
	require.NoError(t, err)
	payload, err := validatorsManager.EncodeConsolidations(sources, targets)
	require.NoError(t, err)
	assert.Len(t, payload, 2*96)
	assert.Equal(t, f.manager, recoverManager(t, 1, nonce, payload, resp.ValidatorsManagerSignature))

	_, err = f.relayer.Consolidate(context.Background(), &ConsolidateRequest{Vault: testVault, SourcePublicKeys: sources, TargetPublicKeys: targets[:1]})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation))
	_, err = f.relayer.Consolidate(context.Background(), &ConsolidateRequest{Vault: testVault})
	assert.True(t, errors.Is(err, relayerErrors.ErrValidation))
}

func TestRelayer_InvalidNonce(t *testing.T) {
	f := newFixture(t, 31)
	f.state.nonce = big.NewInt(-1)
	_, err := f.relayer.Withdraw(context.Background(), &WithdrawRequest{
		Vault:      testVault,
		PublicKeys: []PublicKey{pubKeyOf(t, 40)},
		Amounts:    []uint64{1},
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.signer.calls)
}
