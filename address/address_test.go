package address_test

import (
	"testing"

	"github.com/cosmos/btcutil/bech32"
	"github.com/shieldwallet/core/address"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/walleterr"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	sk := field.PrivateKeyFromSeed([]byte("addr-test"))
	pub, err := field.PrivateToPublic(sk)
	require.NoError(t, err)

	for _, chainID := range []*int64{nil, int64ptr(1), int64ptr(56), int64ptr(999)} {
		enc, err := address.Encode(pub, chainID)
		require.NoError(t, err)

		dec, err := address.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, pub, dec.Pubkey)

		if chainID == nil || !known(*chainID) {
			require.Nil(t, dec.ChainID)
		} else {
			require.NotNil(t, dec.ChainID)
			require.Equal(t, *chainID, *dec.ChainID)
		}
	}
}

// TestEncodeLiteralVector pins a known-answer vector: the version byte
// followed by an all-zero 32-byte packed pubkey, under chainId=1, must
// encode to this exact bech32 string.
func TestEncodeLiteralVector(t *testing.T) {
	var pub field.PackedPoint
	chainID := int64(1)

	enc, err := address.Encode(pub, &chainID)
	require.NoError(t, err)
	require.Equal(t, "rgeth1qyqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqau3qf6", enc)
}

func TestDecodeUnknownPrefixFails(t *testing.T) {
	_, err := address.Decode("rgunknown1q8hxknrs97q8pjxaagwthzc0df99rzmhl2xnlxmgv9akv32sua0kf8kjxv0uzkrc")
	require.ErrorIs(t, err, walleterr.ErrUnknownPrefix)
}

func TestDecodeWrongVersionFails(t *testing.T) {
	sk := field.PrivateKeyFromSeed([]byte("version-test"))
	pub, err := field.PrivateToPublic(sk)
	require.NoError(t, err)

	chainID := int64(1)
	enc, err := address.Encode(pub, &chainID)
	require.NoError(t, err)

	dec, err := address.Decode(enc)
	require.NoError(t, err)
	_ = dec

	// Flip the version byte by re-encoding with a bad version through
	// the same bit-packing path the real encoder uses.
	bad := flipVersionByte(t, enc)
	_, err = address.Decode(bad)
	require.ErrorIs(t, err, walleterr.ErrWrongVersion)
}

// flipVersionByte decodes addr, increments its version byte, and
// re-encodes under the same HRP.
func flipVersionByte(t *testing.T, addr string) string {
	t.Helper()

	hrp, data, err := bech32.DecodeNoLimit(addr)
	require.NoError(t, err)

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	require.NoError(t, err)
	raw[0]++

	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	require.NoError(t, err)

	out, err := bech32.Encode(hrp, converted)
	require.NoError(t, err)
	return out
}

func known(id int64) bool {
	switch id {
	case 1, 3, 5, 56, 137:
		return true
	default:
		return false
	}
}

func int64ptr(v int64) *int64 { return &v }
