package blsSigner

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	keystorev4 "github.com/wealdtech/go-eth2-wallet-encryptor-keystorev4"
)

// KeystoreVersion is the EIP-2335 keystore version.
const KeystoreVersion = 4

// Keystore is the EIP-2335 JSON representation of an encrypted validator key.
type Keystore struct {
	Crypto      map[string]interface{} `json:"crypto"`
	Description string                 `json:"description,omitempty"`
	Pubkey      string                 `json:"pubkey"`
	Path        string                 `json:"path"`
	UUID        string                 `json:"uuid"`
	Version     uint                   `json:"version"`
}

// ParseKeystoreJSON decodes an EIP-2335 keystore.
func ParseKeystoreJSON(data []byte) (*Keystore, error) {
	ks := &Keystore{}
	if err := json.Unmarshal(data, ks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore: %w", err)
	}
	if ks.Version != KeystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}
	if ks.Crypto == nil {
		return nil, fmt.Errorf("keystore has no crypto section")
	}
	return ks, nil
}

// Decrypt unlocks the keystore with password and checks that the recovered key
// matches the public key recorded in the keystore, when one is present.
func (k *Keystore) Decrypt(password string) (*InMemoryBLSSigner, error) {
	secret, err := keystorev4.New().Decrypt(k.Crypto, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	signer, err := NewInMemoryBLSSignerFromBytes(secret)
	if err != nil {
		return nil, err
	}
	if k.Pubkey != "" {
		recorded, err := hex.DecodeString(strings.TrimPrefix(k.Pubkey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid keystore pubkey: %w", err)
		}
		pubKey := signer.GetPublicKey()
		if !bytes.Equal(recorded, pubKey[:]) {
			return nil, fmt.Errorf("keystore pubkey %s does not match decrypted key", k.Pubkey)
		}
	}
	return signer, nil
}

// EncryptKeystore wraps the key held by signer into a new EIP-2335 keystore.
func EncryptKeystore(signer *InMemoryBLSSigner, password string, path string) (*Keystore, error) {
	encrypted, err := keystorev4.New().Encrypt(signer.SecretBytes(), password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt keystore: %w", err)
	}
	pubKey := signer.GetPublicKey()
	return &Keystore{
		Crypto:  encrypted,
		Pubkey:  hex.EncodeToString(pubKey[:]),
		Path:    path,
		UUID:    uuid.New().String(),
		Version: KeystoreVersion,
	}, nil
}
