package wallet_test

import (
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/store"
	"github.com/shieldwallet/core/txbuilder"
	"github.com/shieldwallet/core/wallet"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal wallet.CommitmentSource over a single tree.
// Duplicated from the scanner's own internal test helper: this file
// lives in the external wallet_test package (rather than wallet) so it
// can import txbuilder, which itself imports wallet.
type fakeSource struct {
	recs []wallet.CommitmentRecord
}

func (f *fakeSource) Commitments(ctx context.Context, chainID int64, tree uint64, fromPosition uint64) ([]wallet.CommitmentRecord, error) {
	var out []wallet.CommitmentRecord
	for _, r := range f.recs {
		if r.Tree == tree && r.Position >= fromPosition {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) LatestTree(ctx context.Context, chainID int64) (uint64, error) {
	var max uint64
	for _, r := range f.recs {
		if r.Tree > max {
			max = r.Tree
		}
	}
	return max, nil
}

// TestScanRecoversEncryptedTransfer exercises the cross-party ECDH path
// end to end (spec §8 scenario 3, "Deposit + transfer"): a sender
// encrypts an output addressed to the recipient's derived pubkey via
// txbuilder.BuildOutputCommitment, and the recipient's Scan must
// recover the original note from the resulting EncryptedCommitment.
func TestScanRecoversEncryptedTransfer(t *testing.T) {
	recipientSeed := []byte("recipient seed material for encrypted test!")
	senderSeed := []byte("sender seed material for encrypted xfer test")

	recipientHD := keys.NewWallet(recipientSeed)
	recipientKP, err := recipientHD.DeriveIndex(false, 0)
	require.NoError(t, err)

	senderViewKey, err := keys.NewWallet(senderSeed).ViewKey()
	require.NoError(t, err)

	var random [32]byte
	_, err = rand.Read(random[:])
	require.NoError(t, err)

	var token [32]byte
	token[31] = 0xEE

	n := &note.Note{
		Pubkey:     recipientKP.PublicKey,
		Random:     random,
		Amount:     big.NewInt(4242),
		Token:      token,
		TokenSubID: big.NewInt(0),
	}
	require.NoError(t, n.Validate())

	oc, err := txbuilder.BuildOutputCommitment(n, senderViewKey)
	require.NoError(t, err)

	rec := wallet.CommitmentRecord{
		Tree:         0,
		Position:     0,
		TxID:         "tx-transfer",
		Kind:         wallet.EncryptedCommitment,
		Leaf:         oc.Commitment,
		SenderPubKey: oc.SenderPubKey,
		Ciphertext:   oc.Ciphertext,
	}

	src := &fakeSource{recs: []wallet.CommitmentRecord{rec}}

	kv := store.NewMemory()
	var encKey [32]byte
	copy(encKey[:], []byte("encryptedxfer01234567890123456789"))
	w := wallet.New("recipient", kv, recipientSeed, encKey, 5)

	ctx := context.Background()
	require.NoError(t, w.Scan(ctx, 1, src))

	txos, err := w.TXOs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txos, 1)
	require.Equal(t, "tx-transfer", txos[0].TxID)
	require.Equal(t, 0, txos[0].DecryptedNote.Amount.Cmp(big.NewInt(4242)))
	require.Equal(t, token, txos[0].DecryptedNote.Token)
}
