// Package awsSMBLSSigner provides AWS Secrets Manager-based BLS validator keys.
// Each secret holds one EIP-2335 keystore JSON; the keystore is fetched and decrypted
// once, and the resulting signer is handed to the keystore-backed credential source.
package awsSMBLSSigner

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"go.uber.org/zap"
)

// AWSSMBLSSignerConfig holds the configuration for loading validator keystores from
// AWS Secrets Manager.
type AWSSMBLSSignerConfig struct {
	// Region specifies the AWS region where the secrets are stored
	Region string
	// SecretNames are the secrets holding one EIP-2335 keystore each
	SecretNames []string
	// Password decrypts every keystore
	Password string
}

// SecretGetter is the subset of the Secrets Manager client used by the loader.
type SecretGetter interface {
	GetSecretValue(input *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSMKeystoreLoader fetches validator keystores from AWS Secrets Manager.
type AWSSMKeystoreLoader struct {
	logger *zap.Logger
	config *AWSSMBLSSignerConfig
	client SecretGetter
}

// NewAWSSMKeystoreLoader creates a loader with a Secrets Manager client for cfg.Region.
//
// Parameters:
//   - cfg: Region, secret names and keystore password
//   - logger: A zap logger for logging operations and errors
//
// Returns:
//   - *AWSSMKeystoreLoader: A new loader
//   - error: An error if the AWS session cannot be created
func NewAWSSMKeystoreLoader(cfg *AWSSMBLSSignerConfig, logger *zap.Logger) (*AWSSMKeystoreLoader, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewAWSSMKeystoreLoaderWithClient(cfg, secretsmanager.New(sess), logger), nil
}

// NewAWSSMKeystoreLoaderWithClient creates a loader around an existing client.
func NewAWSSMKeystoreLoaderWithClient(cfg *AWSSMBLSSignerConfig, client SecretGetter, logger *zap.Logger) *AWSSMKeystoreLoader {
	return &AWSSMKeystoreLoader{
		logger: logger,
		config: cfg,
		client: client,
	}
}

// getSecret retrieves and decrypts the keystore held by secretName.
func (a *AWSSMKeystoreLoader) getSecret(secretName string) (*blsSigner.InMemoryBLSSigner, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"), // Optional: defaults to AWSCURRENT
	}

	result, err := a.client.GetSecretValue(input)
	if err != nil {
		return nil, err
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret string is nil")
	}
	ks, err := blsSigner.ParseKeystoreJSON([]byte(*result.SecretString))
	if err != nil {
		return nil, fmt.Errorf("failed to parse keystore JSON: %w", err)
	}
	return ks.Decrypt(a.config.Password)
}

// Load returns one signer per configured secret, in configuration order.
func (a *AWSSMKeystoreLoader) Load() ([]*blsSigner.InMemoryBLSSigner, error) {
	signers := make([]*blsSigner.InMemoryBLSSigner, 0, len(a.config.SecretNames))
	for _, name := range a.config.SecretNames {
		signer, err := a.getSecret(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load keystore from secret %s: %w", name, err)
		}
		a.logger.Sugar().Debugw("Loaded validator keystore from AWS Secrets Manager",
			zap.String("secret", name),
		)
		signers = append(signers, signer)
	}
	return signers, nil
}
