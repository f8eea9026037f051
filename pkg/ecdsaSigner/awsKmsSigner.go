package ecdsaSigner

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// KMSClient is the subset of the AWS KMS API used by AWSKMSSigner.
type KMSClient interface {
	Sign(input *kms.SignInput) (*kms.SignOutput, error)
	GetPublicKey(input *kms.GetPublicKeyInput) (*kms.GetPublicKeyOutput, error)
}

// AWSKMSSigner implements IHashSigner using an ECC_SECG_P256K1 key held in AWS KMS
type AWSKMSSigner struct {
	kmsClient KMSClient
	keyID     string
	address   common.Address
	logger    *zap.Logger
}

// NewAWSKMSSigner creates a new AWSKMSSigner with the specified KMS key ID and AWS region.
// This constructor establishes a connection to AWS KMS and derives the Ethereum address
// from the public key associated with the specified KMS key.
//
// Parameters:
//   - keyID: The AWS KMS key ID or ARN for signing operations
//   - region: The AWS region where the KMS key is located
//   - logger: A zap logger
//
// Returns:
//   - *AWSKMSSigner: A new AWS KMS signer instance
//   - error: An error if the AWS session cannot be created or the key is invalid
func NewAWSKMSSigner(keyID, region string, logger *zap.Logger) (*AWSKMSSigner, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewAWSKMSSignerWithClient(kms.New(sess), keyID, logger)
}

// NewAWSKMSSignerWithClient creates a signer around an existing KMS client.
func NewAWSKMSSignerWithClient(client KMSClient, keyID string, logger *zap.Logger) (*AWSKMSSigner, error) {
	address, err := getAddressFromKMSKey(client, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address from KMS key: %w", err)
	}
	logger.Sugar().Debugw("Loaded AWS KMS manager key",
		zap.String("keyId", keyID),
		zap.String("address", address.Hex()),
	)
	return &AWSKMSSigner{
		kmsClient: client,
		keyID:     keyID,
		address:   address,
		logger:    logger,
	}, nil
}

// GetAddress returns the Ethereum address associated with this KMS key.
func (a *AWSKMSSigner) GetAddress() (common.Address, error) {
	return a.address, nil
}

// SignHash signs a digest using AWS KMS
func (a *AWSKMSSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	input := &kms.SignInput{
		KeyId:            aws.String(a.keyID),
		Message:          hash,
		MessageType:      aws.String(kms.MessageTypeDigest),
		SigningAlgorithm: aws.String(kms.SigningAlgorithmSpecEcdsaSha256),
	}
	result, err := a.kmsClient.Sign(input)
	if err != nil {
		return nil, fmt.Errorf("KMS signing failed: %w", err)
	}

	r, s, err := parseASN1Signature(result.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}
	// KMS does not normalize s; Ethereum only accepts the lower half
	halfN := new(big.Int).Rsh(secp256k1N, 1)
	if s.Cmp(halfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	signature := make([]byte, SignatureLength)
	r.FillBytes(signature[0:32])
	s.FillBytes(signature[32:64])

	// Calculate recovery ID (v) by trying both values against the known address
	for v := 0; v < 2; v++ {
		signature[64] = byte(v)
		recovered, err := crypto.SigToPub(hash, signature)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*recovered) == a.address {
			signature[64] = byte(v + 27)
			return signature, nil
		}
	}
	return nil, fmt.Errorf("failed to determine recovery ID")
}

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

type ecdsaSignature struct {
	R, S *big.Int
}

// getAddressFromKMSKey derives the Ethereum address from a DER encoded KMS public key
func getAddressFromKMSKey(client KMSClient, keyID string) (common.Address, error) {
	result, err := client.GetPublicKey(&kms.GetPublicKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get public key from KMS: %w", err)
	}
	var info subjectPublicKeyInfo
	if _, err := asn1.Unmarshal(result.PublicKey, &info); err != nil {
		return common.Address{}, fmt.Errorf("failed to decode public key: %w", err)
	}
	pubKey, err := crypto.UnmarshalPubkey(info.PublicKey.Bytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// parseASN1Signature parses an ASN.1 DER encoded ECDSA signature into r and s values
func parseASN1Signature(signature []byte) (*big.Int, *big.Int, error) {
	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(signature, &sig)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("trailing data after signature")
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 ||
		sig.R.Cmp(secp256k1N) >= 0 || sig.S.Cmp(secp256k1N) >= 0 {
		return nil, nil, fmt.Errorf("invalid signature values")
	}
	return sig.R, sig.S, nil
}
