// Package txbuilder implements the shielded-transfer builder: UTXO
// selection against the wallet's tree-grouped balances, dummy-note
// padding to the fixed circuit arity, per-output ciphertext assembly,
// and the witness/public-input objects handed to the prover. See spec
// §4.G.
package txbuilder

import (
	"context"
	"math/big"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/wallet"
)

// SmallCircuit and LargeCircuit are the two fixed spend arities.
const (
	SmallCircuit = 2
	LargeCircuit = 10
	NumOutputs   = 3
)

// Source is the wallet-side collaborator the builder needs: grouped
// balances to select from, the keys to authorize spends and address
// change, and the per-tree merkle mirror for inclusion proofs.
type Source interface {
	BalancesByTree(ctx context.Context, chainID int64, token [32]byte) (map[uint64][]wallet.TXORecord, error)
	DeriveKeypairFor(txo wallet.TXORecord) (keys.Keypair, error)
	ChangeKeypair(index uint32) (keys.Keypair, error)
	ViewKey() ([32]byte, error)
	Mirror(chainID int64, tree uint64) *merkle.Tree
}

// AdaptID binds a proof to a specific calling contract, per spec §4.G
// / GLOSSARY "Adapt ID".
type AdaptID struct {
	Contract   [32]byte
	Parameters [32]byte
}

// RecipientOutput is a caller-requested real output.
type RecipientOutput struct {
	Pubkey field.PackedPoint
	Amount *big.Int
	Token  [32]byte
}

// Request is the input to Build.
type Request struct {
	ChainID         int64
	Token           [32]byte
	Deposit         *big.Int
	Withdraw        *big.Int
	WithdrawAddress *[20]byte
	Outputs         []RecipientOutput
	AdaptID         AdaptID
	// Tree pins the selection to a specific tree; nil lets Build choose
	// the first usable tree in ascending order.
	Tree *uint64
}

// OutputCommitment is one of the 3 fixed output slots, carrying both
// the value bound into the witness and the calldata fields a caller
// submits on-chain.
type OutputCommitment struct {
	Commitment   *big.Int
	SenderPubKey field.PackedPoint
	Ciphertext   field.Ciphertext
	RevealKey    field.Ciphertext
}

// ERC20PrivateInputs is the witness object passed to the prover, per
// spec §4.G.
type ERC20PrivateInputs struct {
	AdaptID          *big.Int
	TokenField       *big.Int
	DepositAmount    *big.Int
	WithdrawAmount   *big.Int
	OutputTokenField *big.Int
	OutputEthAddress *big.Int

	RandomIn     []*big.Int
	ValuesIn     []*big.Int
	SpendingKeys []*big.Int

	TreeNumber uint64
	MerkleRoot *big.Int
	Nullifiers []*big.Int

	PathElements [][merkle.Depth]*big.Int
	PathIndices  [][merkle.Depth]uint8

	RecipientPK    [][2]*big.Int
	RandomOut      []*big.Int
	ValuesOut      []*big.Int
	CommitmentsOut []*big.Int

	CiphertextHash *big.Int
}

// PublicInputs is the single public-input-bound value the circuit
// exposes.
type PublicInputs struct {
	HashOfInputs *big.Int
}

// Built is everything Build produces: the witness, the public input,
// the selected circuit, and the caller-facing output records.
type Built struct {
	Circuit string
	Private ERC20PrivateInputs
	Public  PublicInputs
	Outputs []OutputCommitment
	// ChangeNote is the recipient-side note for the change output, so
	// the caller can fold it directly into its own wallet state without
	// waiting for a rescan.
	ChangeNote *note.Note
}

type selectedInput struct {
	dummy      bool
	note       *note.Note
	privateKey *big.Int
	position   uint64
}
