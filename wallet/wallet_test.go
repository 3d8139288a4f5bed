package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/store"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory CommitmentSource backed by a single tree
// per chain, for exercising Wallet.Scan without a live chain.
type fakeSource struct {
	trees map[int64][]CommitmentRecord
}

func newFakeSource() *fakeSource {
	return &fakeSource{trees: make(map[int64][]CommitmentRecord)}
}

func (f *fakeSource) add(chainID int64, rec CommitmentRecord) {
	f.trees[chainID] = append(f.trees[chainID], rec)
}

func (f *fakeSource) Commitments(ctx context.Context, chainID int64, tree uint64, fromPosition uint64) ([]CommitmentRecord, error) {
	var out []CommitmentRecord
	for _, r := range f.trees[chainID] {
		if r.Tree == tree && r.Position >= fromPosition {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) LatestTree(ctx context.Context, chainID int64) (uint64, error) {
	var max uint64
	for _, r := range f.trees[chainID] {
		if r.Tree > max {
			max = r.Tree
		}
	}
	return max, nil
}

func depositRecord(t *testing.T, tree, position uint64, txid string, to field.PackedPoint, amount int64, token [32]byte) CommitmentRecord {
	t.Helper()
	n := &note.Note{
		Pubkey:     to,
		Amount:     big.NewInt(amount),
		Token:      token,
		TokenSubID: big.NewInt(0),
	}
	require.NoError(t, n.Validate())
	leaf, err := n.Commitment()
	require.NoError(t, err)

	return CommitmentRecord{
		Tree:          tree,
		Position:      position,
		TxID:          txid,
		Kind:          GeneratedCommitment,
		Leaf:          leaf,
		PlaintextNote: n,
	}
}

func TestScanFindsOwnDeposit(t *testing.T) {
	kv := store.NewMemory()
	seed := []byte("test seed material for scan test")
	var encKey [32]byte
	copy(encKey[:], []byte("01234567890123456789012345678901"))

	w := New("w1", kv, seed, encKey, 5)

	hd := keys.NewWallet(seed)
	kp, err := hd.DeriveIndex(false, 0)
	require.NoError(t, err)

	var token [32]byte
	token[31] = 0xAA

	src := newFakeSource()
	src.add(1, depositRecord(t, 0, 0, "tx1", kp.PublicKey, 1000, token))

	ctx := context.Background()
	require.NoError(t, w.Scan(ctx, 1, src))

	txos, err := w.TXOs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txos, 1)
	require.Equal(t, "tx1", txos[0].TxID)
	require.Equal(t, big.NewInt(1000), txos[0].DecryptedNote.Amount)

	balances, err := w.Balances(ctx, 1)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, token, balances[0].Token)
	require.Equal(t, 0, balances[0].Balance.Cmp(big.NewInt(1000)))
}

func TestScanIsIdempotent(t *testing.T) {
	kv := store.NewMemory()
	seed := []byte("another seed for idempotence test")
	var encKey [32]byte
	copy(encKey[:], []byte("98765432109876543210987654321098"))

	w := New("w2", kv, seed, encKey, 5)
	hd := keys.NewWallet(seed)
	kp, err := hd.DeriveIndex(false, 0)
	require.NoError(t, err)

	var token [32]byte
	token[31] = 0xBB

	src := newFakeSource()
	src.add(7, depositRecord(t, 0, 0, "tx1", kp.PublicKey, 500, token))

	ctx := context.Background()
	require.NoError(t, w.Scan(ctx, 7, src))
	require.NoError(t, w.Scan(ctx, 7, src))

	txos, err := w.TXOs(ctx, 7)
	require.NoError(t, err)
	require.Len(t, txos, 1)
}

func TestScanRespectsGapLimit(t *testing.T) {
	kv := store.NewMemory()
	seed := []byte("gap limit seed material for test")
	var encKey [32]byte
	copy(encKey[:], []byte("11111111111111111111111111111111"))

	gapLimit := uint32(3)
	w := New("w3", kv, seed, encKey, gapLimit)
	hd := keys.NewWallet(seed)

	// A note addressed to an index beyond the gap limit should not be
	// found by a single scan pass.
	kp, err := hd.DeriveIndex(false, gapLimit+2)
	require.NoError(t, err)

	var token [32]byte
	token[31] = 0xCC

	src := newFakeSource()
	src.add(9, depositRecord(t, 0, 0, "tx1", kp.PublicKey, 10, token))

	ctx := context.Background()
	require.NoError(t, w.Scan(ctx, 9, src))

	txos, err := w.TXOs(ctx, 9)
	require.NoError(t, err)
	require.Len(t, txos, 0)
}
