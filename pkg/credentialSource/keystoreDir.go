package credentialSource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/stakewise/relayer-example/pkg/blsSigner"
	"github.com/stakewise/relayer-example/pkg/credentials"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const keystoreFilePrefix = "keystore"

// LoadKeystoreDir decrypts every keystore*.json file in dir with the password held
// in passwordFile. Keys are returned in file name order.
func LoadKeystoreDir(dir string, passwordFile string, logger *zap.Logger) ([]*KeystoreKey, error) {
	const op = "loadKeystores"
	password, err := util.ReadTrimmedFile(passwordFile)
	if err != nil {
		return nil, relayerErrors.Configuration(op, "can't open keystores password file %s: %v", passwordFile, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, relayerErrors.Configuration(op, "can't open keystores dir %s: %v", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, keystoreFilePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	keys := make([]*KeystoreKey, len(files))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, name := range files {
		g.Go(func() error {
			key, err := loadKeystoreFile(filepath.Join(dir, name), password)
			if err != nil {
				return relayerErrors.Configuration(op, "keystore %s: %v", name, err)
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Sugar().Debugw("Decrypted keystores",
		zap.String("dir", dir),
		zap.Int("count", len(keys)),
	)
	return keys, nil
}

func loadKeystoreFile(path string, password string) (*KeystoreKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ks, err := blsSigner.ParseKeystoreJSON(raw)
	if err != nil {
		return nil, err
	}
	signer, err := ks.Decrypt(password)
	if err != nil {
		return nil, err
	}
	return &KeystoreKey{Signer: signer, Path: ks.Path}, nil
}

// KeystoreFileName is the file name of the keystore holding the key at path,
// keystore-m_12381_3600_<index>_0_0.json for validator signing keys.
func KeystoreFileName(path string) string {
	return fmt.Sprintf("%s-%s.json", keystoreFilePrefix, strings.ReplaceAll(path, "/", "_"))
}

// WriteKeystoreDir encrypts the key of every credential with password into one
// keystore file each in dir, so the keys can later be served with LoadKeystoreDir.
// Existing files are never overwritten. The written paths are returned in
// credential order.
func WriteKeystoreDir(dir string, creds []*credentials.Credential, password string, logger *zap.Logger) ([]string, error) {
	const op = "writeKeystores"
	if password == "" {
		return nil, relayerErrors.Configuration(op, "keystores password is empty")
	}
	signers := make([]*blsSigner.InMemoryBLSSigner, len(creds))
	paths := make([]string, len(creds))
	for i, cred := range creds {
		signer, ok := cred.Signer.(*blsSigner.InMemoryBLSSigner)
		if !ok {
			return nil, relayerErrors.Configuration(op, "key of %s cannot be exported", cred.PublicKeyHex())
		}
		if cred.Path == "" {
			return nil, relayerErrors.Configuration(op, "key of %s has no derivation path", cred.PublicKeyHex())
		}
		signers[i] = signer
		paths[i] = filepath.Join(dir, KeystoreFileName(cred.Path))
		if _, err := os.Stat(paths[i]); err == nil {
			return nil, relayerErrors.Configuration(op, "keystore %s already exists", paths[i])
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, relayerErrors.Configuration(op, "can't create keystores dir %s: %v", dir, err)
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, cred := range creds {
		g.Go(func() error {
			if err := writeKeystoreFile(paths[i], signers[i], password, cred.Path); err != nil {
				return relayerErrors.Configuration(op, "keystore %s: %v", paths[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Sugar().Infow("Wrote validator keystores",
		zap.String("dir", dir),
		zap.Int("count", len(paths)),
	)
	return paths, nil
}

func writeKeystoreFile(path string, signer *blsSigner.InMemoryBLSSigner, password string, derivationPath string) error {
	ks, err := blsSigner.EncryptKeystore(signer, password, derivationPath)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keystore: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// KeysFromSigners wraps signers loaded elsewhere, such as from AWS Secrets Manager.
func KeysFromSigners(signers []*blsSigner.InMemoryBLSSigner) []*KeystoreKey {
	return util.Map(signers, func(s *blsSigner.InMemoryBLSSigner, _ uint64) *KeystoreKey {
		return &KeystoreKey{Signer: s}
	})
}
