// Package merkle implements the append-only shadow of the on-chain
// commitment tree: leaf append, root tracking, inclusion proofs, the
// retained-root ring, and the nullifier index. See spec §4.D.
package merkle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/walleterr"
)

// Depth is the fixed tree depth for ERC-20 trees (D_erc20 in the spec).
const Depth = 16

// MaxRetainedRoots bounds the historical-root ring, mirroring the
// on-chain contract's bounded history.
const MaxRetainedRoots = 100

// Zero is the zero leaf/internal-node value.
var Zero = big.NewInt(0)

// TreeKey identifies a single tree by chain and tree number, per spec
// §3 ("Merkle tree mirror ... per (chainId, treeNumber)").
type TreeKey struct {
	ChainID    int64
	TreeNumber uint64
}

// Proof is an inclusion proof: sibling hashes and position bits for
// each level, leaf-to-root.
type Proof struct {
	Elements [Depth]*big.Int
	Indices  [Depth]uint8
}

// Tree is a single append-only Poseidon Merkle tree mirror.
type Tree struct {
	mu sync.RWMutex

	leaves []*big.Int
	levels [][]*big.Int // levels[0] == leaves, levels[Depth] == {root}

	rootRing   []*big.Int
	nullifiers map[string]string // nullifier (big.Int decimal) -> txid
}

// NewTree returns an empty tree whose empty root is the canonical
// all-zero-leaves root for Depth levels.
func NewTree() *Tree {
	t := &Tree{
		nullifiers: make(map[string]string),
	}
	t.rebuild()
	return t
}

// Append pushes leaves at the next positions and recomputes affected
// internal nodes, returning the starting position of the batch.
func (t *Tree) Append(leaves []*big.Int) (startPosition uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := uint64(len(t.leaves))
	if uint64(len(t.leaves))+uint64(len(leaves)) > (1 << Depth) {
		return 0, fmt.Errorf("merkle: tree depth %d exceeded", Depth)
	}

	t.leaves = append(t.leaves, leaves...)
	t.rebuild()
	return start, nil
}

// rebuild recomputes every level from t.leaves. Trees in this wallet
// are shadow mirrors of on-chain state, not hot paths; a full rebuild
// per append keeps the logic simple and obviously correct.
func (t *Tree) rebuild() {
	levels := make([][]*big.Int, Depth+1)
	cur := make([]*big.Int, len(t.leaves))
	copy(cur, t.leaves)
	levels[0] = cur

	for lvl := 0; lvl < Depth; lvl++ {
		next := make([]*big.Int, (len(cur)+1)/2)
		for i := range next {
			left := nodeAt(cur, 2*i)
			right := nodeAt(cur, 2*i+1)
			h, err := field.Poseidon([]*big.Int{left, right})
			if err != nil {
				panic(fmt.Sprintf("merkle: poseidon: %s", err))
			}
			next[i] = h
		}
		levels[lvl+1] = next
		cur = next
	}

	t.levels = levels
	root := t.currentRoot()
	t.rootRing = append(t.rootRing, root)
	if len(t.rootRing) > MaxRetainedRoots {
		t.rootRing = t.rootRing[len(t.rootRing)-MaxRetainedRoots:]
	}
}

func nodeAt(level []*big.Int, i int) *big.Int {
	if i < len(level) {
		return level[i]
	}
	return Zero
}

func (t *Tree) currentRoot() *big.Int {
	top := t.levels[Depth]
	if len(top) == 0 {
		return zeroRoot()
	}
	return top[0]
}

// zeroRoot is the root of a tree whose leaves are all empty.
func zeroRoot() *big.Int {
	cur := Zero
	for i := 0; i < Depth; i++ {
		h, err := field.Poseidon([]*big.Int{cur, cur})
		if err != nil {
			panic(fmt.Sprintf("merkle: poseidon: %s", err))
		}
		cur = h
	}
	return cur
}

// Root returns the tree's current root.
func (t *Tree) Root() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentRoot()
}

// NumLeaves returns how many leaves have been appended.
func (t *Tree) NumLeaves() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.leaves))
}

// GetProof returns the sibling path and position bits for position.
func (t *Tree) GetProof(position uint64) (*Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if position >= uint64(len(t.leaves)) {
		return nil, fmt.Errorf("merkle: position %d out of range", position)
	}

	proof := &Proof{}
	idx := position
	for lvl := 0; lvl < Depth; lvl++ {
		level := t.levels[lvl]
		siblingIdx := idx ^ 1
		proof.Elements[lvl] = nodeAt(level, int(siblingIdx))
		proof.Indices[lvl] = uint8(idx & 1)
		idx /= 2
	}
	return proof, nil
}

// VerifyInclusion reconstructs a root from a leaf and its proof and
// compares it against want, matching the circuit's inclusion check.
func VerifyInclusion(proof *Proof, leaf *big.Int, want *big.Int) (bool, error) {
	cur := leaf
	for lvl := 0; lvl < Depth; lvl++ {
		var left, right *big.Int
		if proof.Indices[lvl] == 0 {
			left, right = cur, proof.Elements[lvl]
		} else {
			left, right = proof.Elements[lvl], cur
		}
		h, err := field.Poseidon([]*big.Int{left, right})
		if err != nil {
			return false, err
		}
		cur = h
	}
	return cur.Cmp(want) == 0, nil
}

// KnownRoot reports whether root is in the retained ring.
func (t *Tree) KnownRoot(root *big.Int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rootRing {
		if r.Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// RequireKnownRoot is KnownRoot, returning ErrRootNotKnown on failure.
func (t *Tree) RequireKnownRoot(root *big.Int) error {
	if !t.KnownRoot(root) {
		return fmt.Errorf("%w: %s", walleterr.ErrRootNotKnown, root.String())
	}
	return nil
}

// MarkNullified records that nullifier was observed spent in txid.
func (t *Tree) MarkNullified(nullifier *big.Int, txid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nullifiers[nullifier.String()] = txid
}

// GetNullified returns the txid a nullifier was spent in, or ("", false).
func (t *Tree) GetNullified(nullifier *big.Int) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	txid, ok := t.nullifiers[nullifier.String()]
	return txid, ok
}
