package depositData

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// depositDataJSON is one entry of a deposit-cli deposit data file. Byte fields are
// hex encoded without a 0x prefix.
type depositDataJSON struct {
	Pubkey                string `json:"pubkey"`
	WithdrawalCredentials string `json:"withdrawal_credentials"`
	Amount                uint64 `json:"amount"`
	Signature             string `json:"signature"`
	DepositMessageRoot    string `json:"deposit_message_root"`
	DepositDataRoot       string `json:"deposit_data_root"`
	ForkVersion           string `json:"fork_version"`
	NetworkName           string `json:"network_name"`
	DepositCliVersion     string `json:"deposit_cli_version"`
}

func (d *DepositDatum) MarshalJSON() ([]byte, error) {
	return json.Marshal(&depositDataJSON{
		Pubkey:                hex.EncodeToString(d.Pubkey[:]),
		WithdrawalCredentials: hex.EncodeToString(d.WithdrawalCredentials[:]),
		Amount:                d.Amount,
		Signature:             hex.EncodeToString(d.Signature[:]),
		DepositMessageRoot:    hex.EncodeToString(d.DepositMessageRoot[:]),
		DepositDataRoot:       hex.EncodeToString(d.DepositDataRoot[:]),
		ForkVersion:           hex.EncodeToString(d.ForkVersion[:]),
		NetworkName:           d.NetworkName,
		DepositCliVersion:     d.DepositCliVersion,
	})
}

func (d *DepositDatum) UnmarshalJSON(data []byte) error {
	raw := &depositDataJSON{}
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}
	fields := []struct {
		name string
		hex  string
		dst  []byte
	}{
		{"pubkey", raw.Pubkey, d.Pubkey[:]},
		{"withdrawal_credentials", raw.WithdrawalCredentials, d.WithdrawalCredentials[:]},
		{"signature", raw.Signature, d.Signature[:]},
		{"deposit_message_root", raw.DepositMessageRoot, d.DepositMessageRoot[:]},
		{"deposit_data_root", raw.DepositDataRoot, d.DepositDataRoot[:]},
		{"fork_version", raw.ForkVersion, d.ForkVersion[:]},
	}
	for _, f := range fields {
		decoded, err := hex.DecodeString(f.hex)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if len(decoded) != len(f.dst) {
			return fmt.Errorf("invalid %s length %d", f.name, len(decoded))
		}
		copy(f.dst, decoded)
	}
	d.Amount = raw.Amount
	d.NetworkName = raw.NetworkName
	d.DepositCliVersion = raw.DepositCliVersion
	return nil
}

// WriteDepositDataFile writes data as a deposit data JSON array at path.
func WriteDepositDataFile(path string, data []*DepositDatum) error {
	if data == nil {
		data = []*DepositDatum{}
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deposit data: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create deposit data directory: %w", err)
		}
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write deposit data file %s: %w", path, err)
	}
	return nil
}

// ReadDepositDataFile reads a deposit data JSON array from path.
func ReadDepositDataFile(path string) ([]*DepositDatum, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deposit data file %s: %w", path, err)
	}
	var data []*DepositDatum
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode deposit data file %s: %w", path, err)
	}
	return data, nil
}
