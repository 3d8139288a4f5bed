package txbuilder

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"cosmossdk.io/math"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/wallet"
	"github.com/shieldwallet/core/walleterr"
)

// selectionResult is one usable tree's chosen inputs, padded to the
// circuit's input arity.
type selectionResult struct {
	tree       uint64
	circuit    string
	inputs     []selectedInput
	totalIn    math.Uint
	merkleRoot *big.Int
}

// selectUTXOs implements spec §4.G's selection algorithm: sum unspent
// balances per tree, greedily cover required from the largest UTXOs,
// pad to the next circuit slot, and pick the first usable tree.
func selectUTXOs(ctx context.Context, src Source, chainID int64, token [32]byte, required *big.Int, pinnedTree *uint64) (*selectionResult, error) {
	byTree, err := src.BalancesByTree(ctx, chainID, token)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: balances by tree: %w", err)
	}

	reqUint := math.ZeroUint()
	if required.Sign() > 0 {
		reqUint = math.NewUintFromBigInt(required)
	}

	total := math.ZeroUint()
	for _, utxos := range byTree {
		for _, u := range utxos {
			total = total.Add(math.NewUintFromBigInt(u.DecryptedNote.Amount))
		}
	}
	if total.LT(reqUint) {
		return nil, walleterr.ErrInsufficientBalance
	}

	trees := make([]uint64, 0, len(byTree))
	for tree := range byTree {
		if pinnedTree != nil && tree != *pinnedTree {
			continue
		}
		trees = append(trees, tree)
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i] < trees[j] })

	for _, tree := range trees {
		utxos := byTree[tree]

		treeTotal := math.ZeroUint()
		for _, u := range utxos {
			treeTotal = treeTotal.Add(math.NewUintFromBigInt(u.DecryptedNote.Amount))
		}
		if treeTotal.LT(reqUint) {
			continue
		}

		result, ok, err := selectFromTree(ctx, src, chainID, tree, utxos, reqUint)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return result, nil
	}

	return nil, walleterr.ErrNeedsConsolidation
}

// selectFromTree runs the greedy descending-amount cover then pads the
// selection to 2 or 10 inputs, per spec §4.G step 3. Returns ok=false
// if the tree needs more than LargeCircuit real inputs to cover
// required.
func selectFromTree(ctx context.Context, src Source, chainID int64, tree uint64, utxos []wallet.TXORecord, required math.Uint) (*selectionResult, bool, error) {
	sorted := make([]wallet.TXORecord, len(utxos))
	copy(sorted, utxos)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DecryptedNote.Amount.Cmp(sorted[j].DecryptedNote.Amount) > 0
	})

	sum := math.ZeroUint()
	var chosen []wallet.TXORecord
	for _, u := range sorted {
		if sum.GTE(required) {
			break
		}
		chosen = append(chosen, u)
		sum = sum.Add(math.NewUintFromBigInt(u.DecryptedNote.Amount))
	}
	if len(chosen) > LargeCircuit {
		return nil, false, nil
	}

	chosenKeys := make(map[string]bool, len(chosen))
	for _, u := range chosen {
		chosenKeys[utxoKey(u)] = true
	}

	// Pad with the smallest remaining real UTXOs first.
	var remaining []wallet.TXORecord
	for i := len(sorted) - 1; i >= 0; i-- {
		if !chosenKeys[utxoKey(sorted[i])] {
			remaining = append(remaining, sorted[i])
		}
	}

	circuit := SmallCircuit
	if len(chosen) > SmallCircuit {
		circuit = LargeCircuit
	}
	for len(chosen) < circuit && len(remaining) > 0 {
		chosen = append(chosen, remaining[0])
		sum = sum.Add(math.NewUintFromBigInt(remaining[0].DecryptedNote.Amount))
		remaining = remaining[1:]
	}
	if len(chosen) > LargeCircuit {
		return nil, false, nil
	}
	if len(chosen) > SmallCircuit {
		circuit = LargeCircuit
	}

	inputs := make([]selectedInput, 0, circuit)
	for _, u := range chosen {
		kp, err := src.DeriveKeypairFor(u)
		if err != nil {
			return nil, false, fmt.Errorf("txbuilder: derive input keypair: %w", err)
		}
		inputs = append(inputs, selectedInput{
			dummy:      false,
			note:       u.DecryptedNote,
			privateKey: kp.PrivateKey,
			position:   u.Position,
		})
	}
	for len(inputs) < circuit {
		token := [32]byte{}
		if len(chosen) > 0 {
			token = chosen[0].DecryptedNote.Token
		}
		dummy, sk, err := dummyNote(token)
		if err != nil {
			return nil, false, err
		}
		inputs = append(inputs, selectedInput{dummy: true, note: dummy, privateKey: sk, position: 0})
	}

	circuitName := "erc20small"
	if circuit == LargeCircuit {
		circuitName = "erc20large"
	}

	return &selectionResult{
		tree:       tree,
		circuit:    circuitName,
		inputs:     inputs,
		totalIn:    sum,
		merkleRoot: src.Mirror(chainID, tree).Root(),
	}, true, nil
}

func utxoKey(u wallet.TXORecord) string {
	return fmt.Sprintf("%d:%d", u.Tree, u.Position)
}

// dummyNote synthesizes a zero-value padding note: a fresh random
// keypair, amount zero, the transaction's token, per spec §4.G /
// GLOSSARY "Dummy note".
func dummyNote(token [32]byte) (*note.Note, *big.Int, error) {
	sk, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("txbuilder: dummy key: %w", err)
	}
	pub, err := field.PrivateToPublic(sk)
	if err != nil {
		return nil, nil, fmt.Errorf("txbuilder: dummy pubkey: %w", err)
	}

	var random [32]byte
	if _, err := rand.Read(random[:]); err != nil {
		return nil, nil, fmt.Errorf("txbuilder: dummy random: %w", err)
	}

	n := &note.Note{
		Pubkey:     pub,
		Random:     random,
		Amount:     big.NewInt(0),
		Token:      token,
		TokenSubID: big.NewInt(0),
	}
	return n, sk, nil
}

// randomScalar draws a uniform scalar in [0, field.Prime).
func randomScalar() (*big.Int, error) {
	return rand.Int(rand.Reader, field.Prime)
}
