package awsSMBLSSigner

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecrets map[string]*string

func (f fakeSecrets) GetSecretValue(input *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := f[aws.StringValue(input.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: value}, nil
}

func keystoreSecret(t *testing.T, scalar int64, password string) (*string, [blsSigner.PublicKeyLength]byte) {
	signer, err := blsSigner.NewInMemoryBLSSignerFromScalar(big.NewInt(scalar))
	require.NoError(t, err)
	ks, err := blsSigner.EncryptKeystore(signer, password, "")
	require.NoError(t, err)
	raw, err := json.Marshal(ks)
	require.NoError(t, err)
	return aws.String(string(raw)), signer.GetPublicKey()
}

func TestAWSSMKeystoreLoader_Load(t *testing.T) {
	first, firstPub := keystoreSecret(t, 11, "secret")
	second, secondPub := keystoreSecret(t, 12, "secret")

	loader := NewAWSSMKeystoreLoaderWithClient(&AWSSMBLSSignerConfig{
		SecretNames: []string{"validator-b", "validator-a"},
		Password:    "secret",
	}, fakeSecrets{"validator-a": first, "validator-b": second}, zap.NewNop())

	signers, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, signers, 2)
	assert.Equal(t, secondPub, signers[0].GetPublicKey())
	assert.Equal(t, firstPub, signers[1].GetPublicKey())
}

func TestAWSSMKeystoreLoader_MissingSecret(t *testing.T) {
	loader := NewAWSSMKeystoreLoaderWithClient(&AWSSMBLSSignerConfig{
		SecretNames: []string{"missing"},
	}, fakeSecrets{}, zap.NewNop())

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestAWSSMKeystoreLoader_NilSecretString(t *testing.T) {
	loader := NewAWSSMKeystoreLoaderWithClient(&AWSSMBLSSignerConfig{
		SecretNames: []string{"binary"},
	}, fakeSecrets{"binary": nil}, zap.NewNop())

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret string is nil")
}
