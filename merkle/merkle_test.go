package merkle_test

import (
	"math/big"
	"testing"

	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/walleterr"
	"github.com/stretchr/testify/require"
)

func TestAppendAndInclusion(t *testing.T) {
	tree := merkle.NewTree()

	leaves := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	start, err := tree.Append(leaves)
	require.NoError(t, err)
	require.Equal(t, uint64(0), start)

	root := tree.Root()

	for i, leaf := range leaves {
		proof, err := tree.GetProof(uint64(i))
		require.NoError(t, err)

		ok, err := merkle.VerifyInclusion(proof, leaf, root)
		require.NoError(t, err)
		require.True(t, ok, "leaf %d should be included", i)
	}
}

func TestKnownRootRing(t *testing.T) {
	tree := merkle.NewTree()

	_, err := tree.Append([]*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	firstRoot := tree.Root()

	_, err = tree.Append([]*big.Int{big.NewInt(2)})
	require.NoError(t, err)

	require.True(t, tree.KnownRoot(firstRoot))
	require.NoError(t, tree.RequireKnownRoot(firstRoot))

	require.ErrorIs(t, tree.RequireKnownRoot(big.NewInt(999999)), walleterr.ErrRootNotKnown)
}

func TestNullifierIndex(t *testing.T) {
	tree := merkle.NewTree()

	n := big.NewInt(42)
	_, ok := tree.GetNullified(n)
	require.False(t, ok)

	tree.MarkNullified(n, "0xabc")
	txid, ok := tree.GetNullified(n)
	require.True(t, ok)
	require.Equal(t, "0xabc", txid)
}
