package field_test

import (
	"math/big"
	"testing"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/walleterr"
	"github.com/stretchr/testify/require"
)

func TestPoseidonDeterministic(t *testing.T) {
	ins := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}

	h1, err := field.Poseidon(ins)
	require.NoError(t, err)

	h2, err := field.Poseidon(ins)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
}

func TestPrivateToPublicRoundTrip(t *testing.T) {
	sk := field.PrivateKeyFromSeed([]byte("a wallet seed"))

	packed, err := field.PrivateToPublic(sk)
	require.NoError(t, err)

	pt, err := field.UnpackPoint(packed)
	require.NoError(t, err)

	repacked := field.PackPoint(pt)
	require.Equal(t, packed, repacked)
}

func TestUnpackPointRejectsGarbage(t *testing.T) {
	var packed field.PackedPoint
	for i := range packed {
		packed[i] = 0xff
	}

	_, err := field.UnpackPoint(packed)
	require.ErrorIs(t, err, walleterr.ErrInvalidPoint)
}

func TestECDHAgreement(t *testing.T) {
	skA := field.PrivateKeyFromSeed([]byte("alice"))
	skB := field.PrivateKeyFromSeed([]byte("bob"))

	pkA, err := field.PrivateToPublic(skA)
	require.NoError(t, err)
	pkB, err := field.PrivateToPublic(skB)
	require.NoError(t, err)

	sharedA, err := field.ECDH(skA, pkB)
	require.NoError(t, err)
	sharedB, err := field.ECDH(skB, pkA)
	require.NoError(t, err)

	require.Equal(t, sharedA, sharedB)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := field.SHA256([]byte("shared secret"))
	blocks := [][]byte{
		[]byte("0123456789abcdef"),
		[]byte("fedcba9876543210"),
	}

	ct, err := field.Encrypt(blocks, key[:])
	require.NoError(t, err)

	pt, err := field.Decrypt(ct.IV, ct.Data, key[:])
	require.NoError(t, err)

	require.Equal(t, blocks, pt)
}
