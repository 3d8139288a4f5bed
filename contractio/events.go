package contractio

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/wallet"
)

// eventSignatures names the three topic0 event signatures spec §4.I
// requires the adapter to filter on. Only three event filters are
// permitted per query, so Sync issues one FilterLogs call per event
// per chunk rather than combining them.
const (
	sigGeneratedCommitmentBatch = "GeneratedCommitmentBatch(uint256,uint256,uint256[],uint256[],uint256[],uint256[],uint256)"
	sigCommitmentBatch          = "CommitmentBatch(uint256,uint256,uint256[])"
	sigNullifier                = "Nullifier(uint256,uint256[])"
)

// generatedCommitmentArgs describes GeneratedCommitmentBatch's non-indexed
// payload: parallel arrays of packed pubkey x/y, random, amount, plus a
// single shared token value for the batch.
var generatedCommitmentArgs = abi.Arguments{
	{Type: mustType("uint256")},   // treeNumber
	{Type: mustType("uint256")},   // startPosition
	{Type: mustType("uint256[]")}, // pubkeyX
	{Type: mustType("uint256[]")}, // pubkeyY
	{Type: mustType("uint256[]")}, // random
	{Type: mustType("uint256[]")}, // amount
	{Type: mustType("uint256")},   // token
}

var commitmentBatchArgs = abi.Arguments{
	{Type: mustType("uint256")},   // treeNumber
	{Type: mustType("uint256")},   // startPosition
	{Type: mustType("uint256[]")}, // commitments (leaf hashes)
}

var nullifierArgs = abi.Arguments{
	{Type: mustType("uint256")},   // treeNumber
	{Type: mustType("uint256[]")}, // nullifiers
}

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("contractio: bad abi type %q: %s", name, err))
	}
	return t
}

// decodeGeneratedCommitmentBatch unpacks a GeneratedCommitmentBatch log
// into the wallet's GeneratedCommitment-kind records. Every note is
// reconstructed in the clear: the pubkey is the packed recipient point,
// not necessarily this wallet's, so the scanner still filters by
// derived key.
func decodeGeneratedCommitmentBatch(l types.Log, txID string) ([]wallet.CommitmentRecord, error) {
	vals, err := generatedCommitmentArgs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("contractio: unpack GeneratedCommitmentBatch: %w", err)
	}
	tree := vals[0].(*big.Int).Uint64()
	start := vals[1].(*big.Int).Uint64()
	xs := vals[2].([]*big.Int)
	ys := vals[3].([]*big.Int)
	randoms := vals[4].([]*big.Int)
	amounts := vals[5].([]*big.Int)
	token := vals[6].(*big.Int)

	n := len(xs)
	if len(ys) != n || len(randoms) != n || len(amounts) != n {
		return nil, fmt.Errorf("contractio: GeneratedCommitmentBatch array length mismatch")
	}

	var tokenBytes [32]byte
	copy(tokenBytes[:], field.PadTo32(token))

	out := make([]wallet.CommitmentRecord, n)
	for i := 0; i < n; i++ {
		pt := &field.Point{X: xs[i], Y: ys[i]}
		packed := field.PackPoint(pt)

		var random [32]byte
		copy(random[:], field.PadTo32(randoms[i]))

		nt := &note.Note{
			Pubkey:     packed,
			Random:     random,
			Amount:     amounts[i],
			Token:      tokenBytes,
			TokenSubID: big.NewInt(0),
		}
		leaf, err := nt.Commitment()
		if err != nil {
			return nil, fmt.Errorf("contractio: recompute commitment: %w", err)
		}
		out[i] = wallet.CommitmentRecord{
			Tree:          tree,
			Position:      start + uint64(i),
			TxID:          txID,
			Kind:          wallet.GeneratedCommitment,
			Leaf:          leaf,
			PlaintextNote: nt,
		}
	}
	return out, nil
}

// decodeCommitmentBatch unpacks a CommitmentBatch log's bare leaf
// hashes. The sender pubkey and ciphertext for each leaf arrive via the
// companion off-chain relay payload (spec §4.E), attached by the caller
// before the record reaches the scanner; here the adapter only has
// enough to stake out the leaf's tree position.
func decodeCommitmentBatch(l types.Log, txID string) ([]wallet.CommitmentRecord, error) {
	vals, err := commitmentBatchArgs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("contractio: unpack CommitmentBatch: %w", err)
	}
	tree := vals[0].(*big.Int).Uint64()
	start := vals[1].(*big.Int).Uint64()
	leaves := vals[2].([]*big.Int)

	out := make([]wallet.CommitmentRecord, len(leaves))
	for i, leaf := range leaves {
		out[i] = wallet.CommitmentRecord{
			Tree:     tree,
			Position: start + uint64(i),
			TxID:     txID,
			Kind:     wallet.EncryptedCommitment,
			Leaf:     leaf,
		}
	}
	return out, nil
}

// AttachEncryptedPayload fills in the sender pubkey and ciphertext for
// an EncryptedCommitment record decoded from CommitmentBatch, once the
// matching relay payload for its leaf has been located.
func AttachEncryptedPayload(rec *wallet.CommitmentRecord, senderPubKey field.PackedPoint, ciphertext field.Ciphertext) {
	rec.SenderPubKey = senderPubKey
	rec.Ciphertext = ciphertext
}

// decodedNullifier is a single Nullifier event entry, ready to be
// marked in a merkle.Tree mirror via MarkNullified.
type decodedNullifier struct {
	Tree      uint64
	Nullifier *big.Int
	TxID      string
}

func decodeNullifier(l types.Log, txID string) ([]decodedNullifier, error) {
	vals, err := nullifierArgs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("contractio: unpack Nullifier: %w", err)
	}
	tree := vals[0].(*big.Int).Uint64()
	nullifiers := vals[1].([]*big.Int)

	out := make([]decodedNullifier, len(nullifiers))
	for i, nf := range nullifiers {
		out[i] = decodedNullifier{Tree: tree, Nullifier: nf, TxID: txID}
	}
	return out, nil
}
