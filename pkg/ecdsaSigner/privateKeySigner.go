package ecdsaSigner

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/util"
)

// PrivateKeySigner implements IHashSigner using a private key held in memory
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewPrivateKeySigner creates a new PrivateKeySigner from a hex-encoded private key
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	// Remove 0x prefix if present
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, relayerErrors.Configuration("loadManagerKey", "failed to parse private key: %v", err)
	}
	return newPrivateKeySigner(privateKey), nil
}

// NewKeystoreSigner decrypts a V3 keystore file with the password held in passwordFile.
// The files are only read for the duration of the call.
func NewKeystoreSigner(keyFile string, passwordFile string) (*PrivateKeySigner, error) {
	const op = "loadManagerKey"
	keyJSON, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, relayerErrors.Configuration(op, "can't open key file %s: %v", keyFile, err)
	}
	password, err := util.ReadTrimmedFile(passwordFile)
	if err != nil {
		return nil, relayerErrors.Configuration(op, "can't open password file %s: %v", passwordFile, err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, relayerErrors.Configuration(op, "failed to decrypt key file %s: %v", keyFile, err)
	}
	return newPrivateKeySigner(key.PrivateKey), nil
}

func newPrivateKeySigner(privateKey *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}
}

// SignHash signs hash and shifts the recovery id to 27/28
func (p *PrivateKeySigner) SignHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, p.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// GetAddress returns the address associated with this private key
func (p *PrivateKeySigner) GetAddress() (common.Address, error) {
	return p.address, nil
}
