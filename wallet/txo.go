package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/shamaton/msgpack/v2"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/walleterr"
)

// wireTXO is the msgpack-stable shadow of TXORecord.
type wireTXO struct {
	ChainID       int64
	Tree          uint64
	Position      uint64
	Index         uint32
	Change        bool
	TxID          string
	HasSpendTxID  bool
	SpendTxID     string
	Nullifier     string
	DecryptedNote []byte
}

func fromTXO(t *TXORecord) (wireTXO, error) {
	noteBytes, err := t.DecryptedNote.Serialize(false)
	if err != nil {
		return wireTXO{}, fmt.Errorf("wallet: serialize note: %w", err)
	}
	w := wireTXO{
		ChainID:       t.ChainID,
		Tree:          t.Tree,
		Position:      t.Position,
		Index:         t.Index,
		Change:        t.Change,
		TxID:          t.TxID,
		Nullifier:     t.Nullifier.String(),
		DecryptedNote: noteBytes,
	}
	if t.SpendTxID != nil {
		w.HasSpendTxID = true
		w.SpendTxID = *t.SpendTxID
	}
	return w, nil
}

func (w wireTXO) toTXO() (*TXORecord, error) {
	n, err := note.Deserialize(w.DecryptedNote)
	if err != nil {
		return nil, err
	}
	nf, ok := new(big.Int).SetString(w.Nullifier, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad nullifier string", walleterr.ErrDBCorruption)
	}

	t := &TXORecord{
		ChainID:       w.ChainID,
		Tree:          w.Tree,
		Position:      w.Position,
		Index:         w.Index,
		Change:        w.Change,
		TxID:          w.TxID,
		Nullifier:     nf,
		DecryptedNote: n,
	}
	if w.HasSpendTxID {
		spendTxID := w.SpendTxID
		t.SpendTxID = &spendTxID
	}
	return t, nil
}

// putTXO persists a TXO record, keyed by (chainID, tree, position).
func (w *Wallet) putTXO(ctx context.Context, t *TXORecord) error {
	wire, err := fromTXO(t)
	if err != nil {
		return err
	}
	plain, err := msgpack.Marshal(&wire)
	if err != nil {
		return fmt.Errorf("wallet: marshal txo: %w", err)
	}
	enc, err := w.encryptBlob(plain)
	if err != nil {
		return err
	}
	return w.kv.Put(ctx, txoKey(w.id, t.ChainID, t.Tree, t.Position), enc)
}

// TXOs returns every TXO record held for chainID, in ascending
// (tree, position) order, per spec §4.F "Enumerate outputs". Any record
// whose nullifier now appears in the corresponding tree's mirror is
// marked spent (SpendTxID populated from the mirror's recorded txid)
// and re-persisted before being returned.
func (w *Wallet) TXOs(ctx context.Context, chainID int64) ([]TXORecord, error) {
	entries, err := w.kv.ScanPrefix(ctx, txoChainPrefix(w.id, chainID))
	if err != nil {
		return nil, fmt.Errorf("wallet: scan txos: %w", err)
	}

	out := make([]TXORecord, 0, len(entries))
	for _, e := range entries {
		plain, err := w.decryptBlob(e.Value)
		if err != nil {
			return nil, err
		}
		var wire wireTXO
		if err := msgpack.Unmarshal(plain, &wire); err != nil {
			return nil, fmt.Errorf("%w: txo: %s", walleterr.ErrDBCorruption, err)
		}
		t, err := wire.toTXO()
		if err != nil {
			return nil, err
		}

		if t.SpendTxID == nil {
			mirror := w.Mirror(chainID, t.Tree)
			if txid, spent := mirror.GetNullified(t.Nullifier); spent {
				t.SpendTxID = &txid
				if err := w.putTXO(ctx, t); err != nil {
					return nil, err
				}
			}
		}

		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tree != out[j].Tree {
			return out[i].Tree < out[j].Tree
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// BalancesByTree groups token's unspent TXOs by tree, for the
// transaction builder's per-tree UTXO selection (spec §4.G).
func (w *Wallet) BalancesByTree(ctx context.Context, chainID int64, token [32]byte) (map[uint64][]TXORecord, error) {
	txos, err := w.TXOs(ctx, chainID)
	if err != nil {
		return nil, err
	}

	out := make(map[uint64][]TXORecord)
	for _, t := range txos {
		if t.SpendTxID != nil || t.DecryptedNote.Token != token {
			continue
		}
		out[t.Tree] = append(out[t.Tree], t)
	}
	return out, nil
}

// Balances groups unspent TXOs by token, per spec §8 "Balance
// accounting".
func (w *Wallet) Balances(ctx context.Context, chainID int64) ([]TokenBalance, error) {
	txos, err := w.TXOs(ctx, chainID)
	if err != nil {
		return nil, err
	}

	order := make([][32]byte, 0)
	byToken := make(map[[32]byte]*TokenBalance)
	for _, t := range txos {
		if t.SpendTxID != nil {
			continue
		}
		tok := t.DecryptedNote.Token
		b, ok := byToken[tok]
		if !ok {
			b = &TokenBalance{Token: tok, Balance: big.NewInt(0)}
			byToken[tok] = b
			order = append(order, tok)
		}
		b.Balance.Add(b.Balance, t.DecryptedNote.Amount)
		b.UTXOs = append(b.UTXOs, t)
	}

	out := make([]TokenBalance, 0, len(order))
	for _, tok := range order {
		out = append(out, *byToken[tok])
	}
	return out, nil
}
