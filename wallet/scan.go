package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/note"
)

// scanLeaves sweeps derivation indices [0, height+gapLimit) against
// records, repeating passes until a full pass adds no match beyond the
// previous height, per spec §4.F / design note "Scan gap-limit
// termination".
func (w *Wallet) scanLeaves(ctx context.Context, chainID int64, change bool, records []CommitmentRecord, height uint32) (uint32, error) {
	for {
		numScanned := height + w.gapLimit
		newHeight := height

		for idx := uint32(0); idx < numScanned; idx++ {
			kp, err := w.hd.DeriveIndex(change, idx)
			if err != nil {
				return 0, fmt.Errorf("wallet: derive index %d: %w", idx, err)
			}

			for _, rec := range records {
				n, ok, err := scanIndex(rec, kp)
				if err != nil {
					w.logger.Warn().Err(err).Uint64("tree", rec.Tree).Uint64("position", rec.Position).Msg("skipping malformed leaf")
					continue
				}
				if !ok {
					continue
				}

				if err := w.persistTXO(ctx, chainID, rec, kp, n); err != nil {
					return 0, err
				}
				if idx > newHeight {
					newHeight = idx
				}
			}
		}

		if newHeight == height {
			break
		}
		height = newHeight
	}
	return height, nil
}

// persistTXO writes a newly matched TXO record, computing its
// nullifier against the leaf's tree/position per spec §4.B.
func (w *Wallet) persistTXO(ctx context.Context, chainID int64, rec CommitmentRecord, kp keys.Keypair, n *note.Note) error {
	nf, err := note.Nullifier(kp.PrivateKey, rec.Tree, rec.Position)
	if err != nil {
		return fmt.Errorf("wallet: compute nullifier: %w", err)
	}

	txo := TXORecord{
		ChainID:       chainID,
		Tree:          rec.Tree,
		Position:      rec.Position,
		Index:         kp.Index,
		Change:        kp.Change,
		TxID:          rec.TxID,
		Nullifier:     nf,
		DecryptedNote: n,
	}
	return w.putTXO(ctx, &txo)
}

// Scan runs a full scan for chainID, per spec §4.F "Full scan". A
// second concurrent call for the same chain returns immediately
// without error; other chains proceed independently.
func (w *Wallet) Scan(ctx context.Context, chainID int64, source CommitmentSource) error {
	w.scanMu.Lock()
	if w.inFlight[chainID] {
		w.scanMu.Unlock()
		return nil
	}
	w.inFlight[chainID] = true
	w.scanMu.Unlock()

	defer func() {
		w.scanMu.Lock()
		delete(w.inFlight, chainID)
		w.scanMu.Unlock()
	}()

	details, err := w.loadWalletDetails(ctx)
	if err != nil {
		return err
	}

	latestTree, err := source.LatestTree(ctx, chainID)
	if err != nil {
		return fmt.Errorf("wallet: latest tree: %w", err)
	}
	for tree := uint64(0); tree <= latestTree; tree++ {
		if _, ok := details.TreeScannedHeights[tree]; !ok {
			details.TreeScannedHeights[tree] = 0
		}
	}

	var fresh []CommitmentRecord
	for tree, from := range details.TreeScannedHeights {
		recs, err := source.Commitments(ctx, chainID, tree, from)
		if err != nil {
			return fmt.Errorf("wallet: fetch commitments tree %d: %w", tree, err)
		}
		if len(recs) == 0 {
			continue
		}

		mirror := w.Mirror(chainID, tree)
		leaves := make([]*big.Int, len(recs))
		for i, r := range recs {
			leaves[i] = r.Leaf
		}
		if _, err := mirror.Append(leaves); err != nil {
			return fmt.Errorf("wallet: append leaves tree %d: %w", tree, err)
		}

		fresh = append(fresh, recs...)
		details.TreeScannedHeights[tree] = recs[len(recs)-1].Position + 1
	}

	newPrimary, err := w.scanLeaves(ctx, chainID, false, fresh, details.PrimaryHeight)
	if err != nil {
		return err
	}
	newChange, err := w.scanLeaves(ctx, chainID, true, fresh, details.ChangeHeight)
	if err != nil {
		return err
	}
	details.PrimaryHeight = newPrimary
	details.ChangeHeight = newChange

	if err := w.persistWalletDetails(ctx, details); err != nil {
		return err
	}

	w.logger.Info().Int64("chain_id", chainID).Uint32("primary_height", newPrimary).Uint32("change_height", newChange).Msg("scanned")
	return nil
}
