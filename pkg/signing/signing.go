// Package signing implements the consensus-layer containers signed by validator keys
// and the domain separation applied before BLS signing. Hash tree roots are computed
// with fastssz; the containers are hand-written in the layout sszgen produces.
package signing

import (
	"fmt"

	ssz "github.com/ferranbt/fastssz"
)

var (
	// DomainDeposit is the domain type of deposit messages.
	DomainDeposit = [4]byte{0x03, 0x00, 0x00, 0x00}
	// DomainVoluntaryExit is the domain type of voluntary exits.
	DomainVoluntaryExit = [4]byte{0x04, 0x00, 0x00, 0x00}
)

// Rooter is any container with an SSZ hash tree root.
type Rooter interface {
	HashTreeRoot() ([32]byte, error)
}

// DepositMessage is the part of a deposit covered by the validator signature.
type DepositMessage struct {
	Pubkey                [48]byte `ssz-size:"48"`
	WithdrawalCredentials [32]byte `ssz-size:"32"`
	Amount                uint64
}

func (d *DepositMessage) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(d)
}

func (d *DepositMessage) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(d)
}

func (d *DepositMessage) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutBytes(d.Pubkey[:])
	hh.PutBytes(d.WithdrawalCredentials[:])
	hh.PutUint64(d.Amount)
	hh.Merkleize(indx)
	return nil
}

// DepositData is a signed deposit message as submitted to the registry contract.
type DepositData struct {
	Pubkey                [48]byte `ssz-size:"48"`
	WithdrawalCredentials [32]byte `ssz-size:"32"`
	Amount                uint64
	Signature             [96]byte `ssz-size:"96"`
}

func (d *DepositData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(d)
}

func (d *DepositData) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(d)
}

func (d *DepositData) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutBytes(d.Pubkey[:])
	hh.PutBytes(d.WithdrawalCredentials[:])
	hh.PutUint64(d.Amount)
	hh.PutBytes(d.Signature[:])
	hh.Merkleize(indx)
	return nil
}

// Message returns the unsigned part of the deposit.
func (d *DepositData) Message() *DepositMessage {
	return &DepositMessage{
		Pubkey:                d.Pubkey,
		WithdrawalCredentials: d.WithdrawalCredentials,
		Amount:                d.Amount,
	}
}

// VoluntaryExit requests the exit of ValidatorIndex from Epoch on.
type VoluntaryExit struct {
	Epoch          uint64
	ValidatorIndex uint64
}

func (v *VoluntaryExit) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(v)
}

func (v *VoluntaryExit) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(v)
}

func (v *VoluntaryExit) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutUint64(v.Epoch)
	hh.PutUint64(v.ValidatorIndex)
	hh.Merkleize(indx)
	return nil
}

// ForkData
// https://github.com/ethereum/consensus-specs/blob/dev/specs/phase0/beacon-chain.md#forkdata
type ForkData struct {
	CurrentVersion        [4]byte  `ssz-size:"4"`
	GenesisValidatorsRoot [32]byte `ssz-size:"32"`
}

func (f *ForkData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(f)
}

func (f *ForkData) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(f)
}

func (f *ForkData) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutBytes(f.CurrentVersion[:])
	hh.PutBytes(f.GenesisValidatorsRoot[:])
	hh.Merkleize(indx)
	return nil
}

// SigningData
// https://github.com/ethereum/consensus-specs/blob/dev/specs/phase0/beacon-chain.md#signingdata
type SigningData struct {
	ObjectRoot [32]byte `ssz-size:"32"`
	Domain     [32]byte `ssz-size:"32"`
}

func (s *SigningData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(s)
}

func (s *SigningData) GetTree() (*ssz.Node, error) {
	return ssz.ProofTree(s)
}

func (s *SigningData) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutBytes(s.ObjectRoot[:])
	hh.PutBytes(s.Domain[:])
	hh.Merkleize(indx)
	return nil
}

// ComputeDomain returns domainType || fork_data_root[:28].
func ComputeDomain(domainType [4]byte, forkVersion [4]byte, genesisValidatorsRoot [32]byte) ([32]byte, error) {
	var domain [32]byte
	forkDataRoot, err := (&ForkData{
		CurrentVersion:        forkVersion,
		GenesisValidatorsRoot: genesisValidatorsRoot,
	}).HashTreeRoot()
	if err != nil {
		return domain, fmt.Errorf("failed to compute fork data root: %w", err)
	}
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain, nil
}

// ComputeDepositDomain returns the deposit domain for a genesis fork version.
// Deposits are valid across forks, so the genesis validators root is always zero.
func ComputeDepositDomain(genesisForkVersion [4]byte) ([32]byte, error) {
	return ComputeDomain(DomainDeposit, genesisForkVersion, [32]byte{})
}

// ComputeSigningRoot binds the root of obj to domain.
func ComputeSigningRoot(obj Rooter, domain [32]byte) ([32]byte, error) {
	objectRoot, err := obj.HashTreeRoot()
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to compute object root: %w", err)
	}
	return (&SigningData{ObjectRoot: objectRoot, Domain: domain}).HashTreeRoot()
}
