package txbuilder

import (
	"context"
	"math/big"
	"testing"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/wallet"
	"github.com/shieldwallet/core/walleterr"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal in-memory Source for exercising Build
// without a real wallet or chain.
type fakeSource struct {
	hd      *keys.Wallet
	byTree  map[uint64][]wallet.TXORecord
	mirrors map[uint64]*merkle.Tree
}

func newFakeSource(t *testing.T, seed []byte) *fakeSource {
	t.Helper()
	return &fakeSource{
		hd:      keys.NewWallet(seed),
		byTree:  make(map[uint64][]wallet.TXORecord),
		mirrors: make(map[uint64]*merkle.Tree),
	}
}

// addUTXO derives a fresh primary keypair, builds a note for it,
// appends its commitment to the tree's mirror, and registers the
// resulting TXO.
func (f *fakeSource) addUTXO(t *testing.T, tree uint64, index uint32, amount int64, token [32]byte) {
	t.Helper()
	kp, err := f.hd.DeriveIndex(false, index)
	require.NoError(t, err)

	n := &note.Note{
		Pubkey:     kp.PublicKey,
		Amount:     big.NewInt(amount),
		Token:      token,
		TokenSubID: big.NewInt(0),
	}
	require.NoError(t, n.Validate())
	leaf, err := n.Commitment()
	require.NoError(t, err)

	m := f.mirror(tree)
	pos, err := m.Append([]*big.Int{leaf})
	require.NoError(t, err)

	f.byTree[tree] = append(f.byTree[tree], wallet.TXORecord{
		ChainID:       1,
		Tree:          tree,
		Position:      pos,
		Index:         index,
		Change:        false,
		DecryptedNote: n,
	})
}

func (f *fakeSource) mirror(tree uint64) *merkle.Tree {
	m, ok := f.mirrors[tree]
	if !ok {
		m = merkle.NewTree()
		f.mirrors[tree] = m
	}
	return m
}

func (f *fakeSource) BalancesByTree(ctx context.Context, chainID int64, token [32]byte) (map[uint64][]wallet.TXORecord, error) {
	out := make(map[uint64][]wallet.TXORecord)
	for tree, utxos := range f.byTree {
		for _, u := range utxos {
			if u.SpendTxID == nil && u.DecryptedNote.Token == token {
				out[tree] = append(out[tree], u)
			}
		}
	}
	return out, nil
}

func (f *fakeSource) DeriveKeypairFor(txo wallet.TXORecord) (keys.Keypair, error) {
	return f.hd.DeriveIndex(txo.Change, txo.Index)
}

func (f *fakeSource) ChangeKeypair(index uint32) (keys.Keypair, error) {
	return f.hd.DeriveIndex(true, index)
}

func (f *fakeSource) ViewKey() ([32]byte, error) {
	return f.hd.ViewKey()
}

func (f *fakeSource) Mirror(chainID int64, tree uint64) *merkle.Tree {
	return f.mirror(tree)
}

func testToken() [32]byte {
	var tok [32]byte
	tok[31] = 0x42
	return tok
}

func TestBuildSelectsSmallCircuit(t *testing.T) {
	src := newFakeSource(t, []byte("txbuilder small circuit test seed"))
	token := testToken()
	src.addUTXO(t, 0, 0, 600, token)
	src.addUTXO(t, 0, 1, 600, token)

	recipientSk, err := randomScalar()
	require.NoError(t, err)
	recipientPk, err := field.PrivateToPublic(recipientSk)
	require.NoError(t, err)

	built, err := Build(context.Background(), src, Request{
		ChainID: 1,
		Token:   token,
		Outputs: []RecipientOutput{{Pubkey: recipientPk, Amount: big.NewInt(300), Token: token}},
	})
	require.NoError(t, err)
	require.Equal(t, "erc20small", built.Circuit)
	require.Len(t, built.Private.Nullifiers, SmallCircuit)
	require.Len(t, built.Outputs, NumOutputs)
}

func TestBuildNeedsConsolidation(t *testing.T) {
	src := newFakeSource(t, []byte("txbuilder consolidation test seed"))
	token := testToken()
	for i := uint32(0); i < 11; i++ {
		src.addUTXO(t, 0, i, 1, token)
	}

	recipientSk, err := randomScalar()
	require.NoError(t, err)
	recipientPk, err := field.PrivateToPublic(recipientSk)
	require.NoError(t, err)

	_, err = Build(context.Background(), src, Request{
		ChainID: 1,
		Token:   token,
		Outputs: []RecipientOutput{{Pubkey: recipientPk, Amount: big.NewInt(11), Token: token}},
	})
	require.ErrorIs(t, err, walleterr.ErrNeedsConsolidation)
}

func TestBuildWithdrawMisconfig(t *testing.T) {
	src := newFakeSource(t, []byte("txbuilder withdraw misconfig seed"))
	token := testToken()
	src.addUTXO(t, 0, 0, 1000, token)

	_, err := Build(context.Background(), src, Request{
		ChainID:  1,
		Token:    token,
		Withdraw: big.NewInt(100),
	})
	require.ErrorIs(t, err, walleterr.ErrWithdrawConfig)
}

func TestBuildTooManyOutputs(t *testing.T) {
	src := newFakeSource(t, []byte("txbuilder too many outputs seed"))
	token := testToken()
	src.addUTXO(t, 0, 0, 1000, token)

	sk1, _ := randomScalar()
	pk1, _ := field.PrivateToPublic(sk1)
	sk2, _ := randomScalar()
	pk2, _ := field.PrivateToPublic(sk2)
	sk3, _ := randomScalar()
	pk3, _ := field.PrivateToPublic(sk3)

	_, err := Build(context.Background(), src, Request{
		ChainID: 1,
		Token:   token,
		Outputs: []RecipientOutput{
			{Pubkey: pk1, Amount: big.NewInt(1), Token: token},
			{Pubkey: pk2, Amount: big.NewInt(1), Token: token},
			{Pubkey: pk3, Amount: big.NewInt(1), Token: token},
		},
	})
	require.ErrorIs(t, err, walleterr.ErrTooManyOutputs)
}
