package ecdsaSigner

import (
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func recoverAddress(t *testing.T, hash []byte, sig []byte) string {
	require.Len(t, sig, SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[64])
	normalized := append([]byte{}, sig...)
	normalized[64] -= 27
	pub, err := crypto.SigToPub(hash, normalized)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub).Hex()
}

func TestPrivateKeySigner(t *testing.T) {
	signer, err := NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)
	address, err := signer.GetAddress()
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", address.Hex())

	hash := crypto.Keccak256([]byte("validators"))
	sig, err := signer.SignHash(hash)
	require.NoError(t, err)
	assert.Equal(t, address.Hex(), recoverAddress(t, hash, sig))

	// deterministic (RFC 6979)
	again, err := signer.SignHash(hash)
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}

func TestNewPrivateKeySigner_Invalid(t *testing.T) {
	_, err := NewPrivateKeySigner("0xnothex")
	assert.True(t, errors.Is(err, relayerErrors.ErrConfiguration))
}

func writeKeyFile(t *testing.T, dir string, password string) (string, string) {
	privateKey, err := crypto.HexToECDSA(testPrivateKey[2:])
	require.NoError(t, err)
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}
	keyJSON, err := keystore.EncryptKey(key, password, keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	keyFile := filepath.Join(dir, "key.json")
	passwordFile := filepath.Join(dir, "password.txt")
	require.NoError(t, os.WriteFile(keyFile, keyJSON, 0o600))
	require.NoError(t, os.WriteFile(passwordFile, []byte(password+"\n"), 0o600))
	return keyFile, passwordFile
}

func TestNewKeystoreSigner(t *testing.T) {
	dir := t.TempDir()
	keyFile, passwordFile := writeKeyFile(t, dir, "manager-password")

	signer, err := NewKeystoreSigner(keyFile, passwordFile)
	require.NoError(t, err)
	address, err := signer.GetAddress()
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", address.Hex())
}

func TestNewKeystoreSigner_Errors(t *testing.T) {
	dir := t.TempDir()
	keyFile, passwordFile := writeKeyFile(t, dir, "manager-password")

	_, err := NewKeystoreSigner(filepath.Join(dir, "missing.json"), passwordFile)
	assert.True(t, errors.Is(err, relayerErrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "can't open key file")

	_, err = NewKeystoreSigner(keyFile, filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, relayerErrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "can't open password file")

	require.NoError(t, os.WriteFile(passwordFile, []byte("wrong"), 0o600))
	_, err = NewKeystoreSigner(keyFile, passwordFile)
	assert.True(t, errors.Is(err, relayerErrors.ErrConfiguration))
}

type fakeKMS struct {
	key   *ecdsa.PrivateKey
	highS bool
}

func (f *fakeKMS) GetPublicKey(*kms.GetPublicKeyInput) (*kms.GetPublicKeyOutput, error) {
	curveOID, err := asn1.Marshal(asn1.ObjectIdentifier{1, 3, 132, 0, 10})
	if err != nil {
		return nil, err
	}
	pub := crypto.FromECDSAPub(&f.key.PublicKey)
	der, err := asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: pkix.AlgorithmIdentifier{
			Algorithm:  asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1},
			Parameters: asn1.RawValue{FullBytes: curveOID},
		},
		PublicKey: asn1.BitString{Bytes: pub, BitLength: 8 * len(pub)},
	})
	if err != nil {
		return nil, err
	}
	return &kms.GetPublicKeyOutput{PublicKey: der}, nil
}

func (f *fakeKMS) Sign(input *kms.SignInput) (*kms.SignOutput, error) {
	sig, err := crypto.Sign(input.Message, f.key)
	if err != nil {
		return nil, err
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if f.highS {
		s = new(big.Int).Sub(secp256k1N, s)
	}
	der, err := asn1.Marshal(ecdsaSignature{R: r, S: s})
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{Signature: der}, nil
}

func TestAWSKMSSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash := crypto.Keccak256([]byte("kms"))

	for _, highS := range []bool{false, true} {
		signer, err := NewAWSKMSSignerWithClient(&fakeKMS{key: key, highS: highS}, "alias/manager", zap.NewNop())
		require.NoError(t, err)
		address, err := signer.GetAddress()
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), address)

		sig, err := signer.SignHash(hash)
		require.NoError(t, err)
		assert.Equal(t, address.Hex(), recoverAddress(t, hash, sig))

		s := new(big.Int).SetBytes(sig[32:64])
		assert.LessOrEqual(t, s.Cmp(new(big.Int).Rsh(secp256k1N, 1)), 0, "s must be low for highS=%v", highS)
	}
}

func TestAWSKMSSigner_RejectsShortHash(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewAWSKMSSignerWithClient(&fakeKMS{key: key}, "alias/manager", zap.NewNop())
	require.NoError(t, err)
	_, err = signer.SignHash(hexutil.MustDecode("0x1234"))
	assert.Error(t, err)
}

func TestParseASN1Signature_Invalid(t *testing.T) {
	_, _, err := parseASN1Signature([]byte{0x30, 0x01})
	assert.Error(t, err)

	der, err := asn1.Marshal(ecdsaSignature{R: big.NewInt(0), S: big.NewInt(1)})
	require.NoError(t, err)
	_, _, err = parseASN1Signature(der)
	assert.Error(t, err)
}
