package signing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialBytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func testDepositMessage() *DepositMessage {
	msg := &DepositMessage{Amount: 32_000_000_000}
	copy(msg.Pubkey[:], sequentialBytes(48))
	msg.WithdrawalCredentials[0] = 0x01
	copy(msg.WithdrawalCredentials[12:], common.HexToAddress("0x1234567890123456789012345678901234567890").Bytes())
	return msg
}

func TestComputeDepositDomain(t *testing.T) {
	tests := []struct {
		name        string
		forkVersion [4]byte
		expected    string
	}{
		{"mainnet", [4]byte{0x00, 0x00, 0x00, 0x00}, "0x03000000f5a5fd42d16a20302798ef6ed309979b43003d2320d9f0e8ea9831a9"},
		{"hoodi", [4]byte{0x10, 0x00, 0x09, 0x10}, "0x03000000719103511efa4f1362ff2a50996cccf329cc84cb410c5e5c7d351d03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, err := ComputeDepositDomain(tt.forkVersion)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, hexutil.Encode(domain[:]))
		})
	}
}

func TestComputeDomain_VoluntaryExit(t *testing.T) {
	gvr := common.HexToHash("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95")
	domain, err := ComputeDomain(DomainVoluntaryExit, [4]byte{0x03, 0x00, 0x00, 0x00}, gvr)
	require.NoError(t, err)
	assert.Equal(t, "0x04000000bba4da96354c9f25476cf1bc69bf583a7f9e0af049305b62de676640", hexutil.Encode(domain[:]))
}

func TestDepositMessage_HashTreeRoot(t *testing.T) {
	root, err := testDepositMessage().HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, "0x7ff0aa2875432f3fa76e51b12a85951e5d62832feee301a1d580dc2a9150b37b", hexutil.Encode(root[:]))
}

func TestDepositData_HashTreeRoot(t *testing.T) {
	msg := testDepositMessage()
	data := &DepositData{
		Pubkey:                msg.Pubkey,
		WithdrawalCredentials: msg.WithdrawalCredentials,
		Amount:                msg.Amount,
	}
	copy(data.Signature[:], sequentialBytes(96))

	root, err := data.HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, "0x54ff79ae9ef3ed643cfa67a110e2841450c24daf3ca7c74d94362ca5b6e7f332", hexutil.Encode(root[:]))

	assert.Equal(t, msg, data.Message())
}

func TestVoluntaryExit_HashTreeRoot(t *testing.T) {
	root, err := (&VoluntaryExit{Epoch: 194048, ValidatorIndex: 7}).HashTreeRoot()
	require.NoError(t, err)
	assert.Equal(t, "0xe2c42affb2e6fce952888fffa8c113cb22149922f52a969b52bf2b7443061755", hexutil.Encode(root[:]))
}

func TestComputeSigningRoot(t *testing.T) {
	domain, err := ComputeDepositDomain([4]byte{})
	require.NoError(t, err)

	root, err := ComputeSigningRoot(testDepositMessage(), domain)
	require.NoError(t, err)
	assert.Equal(t, "0x7a8a65face3316a4580e47c24192713aa9a403d2b1217c5e53b889975d9b3370", hexutil.Encode(root[:]))

	otherDomain, err := ComputeDepositDomain([4]byte{0x10, 0x00, 0x09, 0x10})
	require.NoError(t, err)
	otherRoot, err := ComputeSigningRoot(testDepositMessage(), otherDomain)
	require.NoError(t, err)
	assert.NotEqual(t, root, otherRoot)
}
