package keys_test

import (
	"testing"

	"github.com/shieldwallet/core/keys"
	"github.com/stretchr/testify/require"
)

func TestMnemonicRoundTrip(t *testing.T) {
	mnemonic, err := keys.NewMnemonic()
	require.NoError(t, err)

	seed1, err := keys.SeedFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	seed2, err := keys.SeedFromMnemonic(mnemonic, "")
	require.NoError(t, err)

	require.Equal(t, seed1, seed2)
}

func TestDerivationDeterministic(t *testing.T) {
	seed := []byte("deterministic test seed, 32+ bytes long enough")
	w1 := keys.NewWallet(seed)
	w2 := keys.NewWallet(seed)

	kp1, err := w1.DeriveIndex(false, 3)
	require.NoError(t, err)
	kp2, err := w2.DeriveIndex(false, 3)
	require.NoError(t, err)

	require.Equal(t, kp1.PrivateKey, kp2.PrivateKey)
	require.Equal(t, kp1.PublicKey, kp2.PublicKey)
}

func TestPrimaryAndChangeDiverge(t *testing.T) {
	seed := []byte("another deterministic seed for divergence test!")
	w := keys.NewWallet(seed)

	primary, err := w.DeriveIndex(false, 0)
	require.NoError(t, err)
	change, err := w.DeriveIndex(true, 0)
	require.NoError(t, err)

	require.NotEqual(t, primary.PublicKey, change.PublicKey)
}

func TestViewKeyDeterministic(t *testing.T) {
	seed := []byte("view key determinism test seed value 12345678")
	w := keys.NewWallet(seed)

	vk1, err := w.ViewKey()
	require.NoError(t, err)
	vk2, err := w.ViewKey()
	require.NoError(t, err)

	require.Equal(t, vk1, vk2)
}
