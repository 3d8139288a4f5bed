package wallet

import (
	"math/big"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/note"
)

// CommitmentKind discriminates the two event shapes spec §4.F scans:
// cleartext deposits and encrypted transfer outputs.
type CommitmentKind int

const (
	// GeneratedCommitment is a cleartext deposit commitment.
	GeneratedCommitment CommitmentKind = iota
	// EncryptedCommitment is an encrypted transfer commitment.
	EncryptedCommitment
)

// CommitmentRecord is a single leaf as surfaced by the contract I/O
// adapter: enough to attempt decryption and, on match, to persist a TXO.
type CommitmentRecord struct {
	Tree     uint64
	Position uint64
	TxID     string
	Kind     CommitmentKind

	// Leaf is the commitment hash as appended on-chain, independent of
	// whether this wallet can decrypt the underlying note.
	Leaf *big.Int

	// Set when Kind == GeneratedCommitment: the note in the clear.
	PlaintextNote *note.Note

	// Set when Kind == EncryptedCommitment.
	SenderPubKey field.PackedPoint
	Ciphertext   field.Ciphertext
}

// TXORecord is a persisted transaction output, per spec §3. It is
// created when a scan decrypts a commitment addressed to a derived key
// and is mutated only by setting SpendTxID once its nullifier is
// observed on-chain; it is never deleted.
type TXORecord struct {
	ChainID       int64
	Tree          uint64
	Position      uint64
	Index         uint32
	Change        bool
	TxID          string
	SpendTxID     *string
	Nullifier     *big.Int
	DecryptedNote *note.Note
}

// WalletDetails is the persisted (encrypted) scan-progress record.
type WalletDetails struct {
	// TreeScannedHeights maps tree number to the next unscanned leaf
	// position.
	TreeScannedHeights map[uint64]uint64
	PrimaryHeight      uint32
	ChangeHeight       uint32
}

// NewWalletDetails returns zeroed scan progress.
func NewWalletDetails() *WalletDetails {
	return &WalletDetails{TreeScannedHeights: make(map[uint64]uint64)}
}

// TokenBalance is the balance of a single token, with the unspent TXOs
// that sum to it (spec §8 "Balance accounting").
type TokenBalance struct {
	Token   [32]byte
	Balance *big.Int
	UTXOs   []TXORecord
}
