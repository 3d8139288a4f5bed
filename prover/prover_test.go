package prover

import (
	"context"
	"math/big"
	"testing"

	"github.com/iden3/go-rapidsnark/types"
	"github.com/shieldwallet/core/walleterr"
	"github.com/stretchr/testify/require"
)

func TestSwapBIsInvolution(t *testing.T) {
	b := [2][2]*big.Int{
		{big.NewInt(1), big.NewInt(2)},
		{big.NewInt(3), big.NewInt(4)},
	}
	got := swapB(swapB(b))
	require.Equal(t, b, got)

	swapped := swapB(b)
	require.Equal(t, big.NewInt(2), swapped[0][0])
	require.Equal(t, big.NewInt(1), swapped[0][1])
}

func TestProofFromZKParsesSnarkjsShape(t *testing.T) {
	raw := &types.ProofData{
		A: []string{"1", "2", "1"},
		B: [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
		C: []string{"7", "8", "1"},
	}
	p, err := proofFromZK(raw)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), p.A[0])
	require.Equal(t, big.NewInt(6), p.B[1][1])
	require.Equal(t, big.NewInt(8), p.C[1])
}

func TestProofFromZKRejectsMalformed(t *testing.T) {
	_, err := proofFromZK(&types.ProofData{A: []string{"1"}})
	require.Error(t, err)
}

type fakeArtifacts struct{}

func (fakeArtifacts) Wasm(Circuit) ([]byte, error)            { return nil, nil }
func (fakeArtifacts) ZKey(Circuit) ([]byte, error)            { return nil, nil }
func (fakeArtifacts) VerificationKey(Circuit) ([]byte, error) { return []byte("{}"), nil }

func TestVerifyRejectsOffCurveProof(t *testing.T) {
	a := New(fakeArtifacts{})
	garbage := &Proof{
		A: [2]*big.Int{big.NewInt(1), big.NewInt(1)},
		B: [2][2]*big.Int{{big.NewInt(1), big.NewInt(1)}, {big.NewInt(1), big.NewInt(1)}},
		C: [2]*big.Int{big.NewInt(1), big.NewInt(1)},
	}

	ok, err := a.Verify(context.Background(), CircuitSmall, PublicValues{
		AdaptID:          big.NewInt(0),
		DepositAmount:    big.NewInt(0),
		WithdrawAmount:   big.NewInt(0),
		OutputTokenField: big.NewInt(0),
		OutputEthAddress: big.NewInt(0),
		MerkleRoot:       big.NewInt(0),
	}, garbage)
	require.False(t, ok)
	require.ErrorIs(t, err, walleterr.ErrProofVerifyFailed)
}
