package prover

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-rapidsnark/types"
	"github.com/shieldwallet/core/txbuilder"
)

// rawProof is the affine (z=1) form of a parsed Groth16 proof, before
// the on-chain G2 reordering is applied.
type rawProof struct {
	A [2]*big.Int
	B [2][2]*big.Int
	C [2]*big.Int
}

// proofFromZK parses the prover's decimal-string proof into big.Int
// coordinates, dropping the projective z=1 padding snarkjs appends.
func proofFromZK(p *types.ProofData) (*rawProof, error) {
	if p == nil || len(p.A) < 2 || len(p.C) < 2 || len(p.B) < 2 || len(p.B[0]) < 2 || len(p.B[1]) < 2 {
		return nil, fmt.Errorf("malformed proof shape")
	}

	parse := func(s string) (*big.Int, error) {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("bad field element %q", s)
		}
		return n, nil
	}

	a0, err := parse(p.A[0])
	if err != nil {
		return nil, err
	}
	a1, err := parse(p.A[1])
	if err != nil {
		return nil, err
	}
	c0, err := parse(p.C[0])
	if err != nil {
		return nil, err
	}
	c1, err := parse(p.C[1])
	if err != nil {
		return nil, err
	}
	b00, err := parse(p.B[0][0])
	if err != nil {
		return nil, err
	}
	b01, err := parse(p.B[0][1])
	if err != nil {
		return nil, err
	}
	b10, err := parse(p.B[1][0])
	if err != nil {
		return nil, err
	}
	b11, err := parse(p.B[1][1])
	if err != nil {
		return nil, err
	}

	return &rawProof{
		A: [2]*big.Int{a0, a1},
		B: [2][2]*big.Int{{b00, b01}, {b10, b11}},
		C: [2]*big.Int{c0, c1},
	}, nil
}

// swapB exchanges each row's two coordinates, per spec §4.H step 4 /
// §9 "Proof element reordering". Applying it twice is the identity,
// so the same function serves both the prove-side swap and the
// verify-side un-swap.
func swapB(b [2][2]*big.Int) [2][2]*big.Int {
	return [2][2]*big.Int{
		{b[0][1], b[0][0]},
		{b[1][1], b[1][0]},
	}
}

// assignment converts the field-element witness object into the
// decimal-string-keyed map the circom witness calculator expects.
func assignment(p txbuilder.ERC20PrivateInputs) map[string]interface{} {
	strs := func(vals []*big.Int) []string {
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = v.String()
		}
		return out
	}

	pathElements := make([][]string, len(p.PathElements))
	for i, elems := range p.PathElements {
		row := make([]string, len(elems))
		for j, e := range elems {
			row[j] = e.String()
		}
		pathElements[i] = row
	}
	pathIndices := make([][]string, len(p.PathIndices))
	for i, idxs := range p.PathIndices {
		row := make([]string, len(idxs))
		for j, b := range idxs {
			row[j] = fmt.Sprintf("%d", b)
		}
		pathIndices[i] = row
	}
	recipientPK := make([][]string, len(p.RecipientPK))
	for i, pk := range p.RecipientPK {
		recipientPK[i] = []string{pk[0].String(), pk[1].String()}
	}

	return map[string]interface{}{
		"adaptID":          p.AdaptID.String(),
		"tokenField":       p.TokenField.String(),
		"depositAmount":    p.DepositAmount.String(),
		"withdrawAmount":   p.WithdrawAmount.String(),
		"outputTokenField": p.OutputTokenField.String(),
		"outputEthAddress": p.OutputEthAddress.String(),
		"randomIn":         strs(p.RandomIn),
		"valuesIn":         strs(p.ValuesIn),
		"spendingKeys":     strs(p.SpendingKeys),
		"treeNumber":       fmt.Sprintf("%d", p.TreeNumber),
		"merkleRoot":       p.MerkleRoot.String(),
		"nullifiers":       strs(p.Nullifiers),
		"pathElements":     pathElements,
		"pathIndices":      pathIndices,
		"recipientPK":      recipientPK,
		"randomOut":        strs(p.RandomOut),
		"valuesOut":        strs(p.ValuesOut),
		"commitmentsOut":   strs(p.CommitmentsOut),
		"ciphertextHash":   p.CiphertextHash.String(),
	}
}
