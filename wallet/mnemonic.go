package wallet

import (
	"context"
	"fmt"

	"github.com/shamaton/msgpack/v2"
	"github.com/shieldwallet/core/store"
	"github.com/shieldwallet/core/walleterr"
)

// wireMnemonic is the msgpack-encoded payload behind mnemonicKey, per
// spec §6's persisted state layout: ["wallet", walletId] -> encrypted
// {mnemonic, derivationPath}.
type wireMnemonic struct {
	Mnemonic       string
	DerivationPath string
}

// PersistMnemonic encrypts and stores a wallet's recovery phrase and
// derivation path under its mnemonicKey, so a caller can reopen the
// wallet later from walletID + encKey alone, without re-supplying the
// mnemonic. It is a package-level function rather than a Wallet method
// because a Wallet cannot yet be constructed until its seed (derived
// from the mnemonic) is known.
func PersistMnemonic(ctx context.Context, kv store.KV, walletID string, encKey [32]byte, mnemonic, derivationPath string) error {
	wire := wireMnemonic{Mnemonic: mnemonic, DerivationPath: derivationPath}
	plain, err := msgpack.Marshal(&wire)
	if err != nil {
		return fmt.Errorf("wallet: marshal mnemonic: %w", err)
	}
	enc, err := encryptBlobWithKey(plain, encKey)
	if err != nil {
		return err
	}
	return kv.Put(ctx, mnemonicKey(walletID), enc)
}

// LoadMnemonic recovers a previously persisted mnemonic and derivation
// path. Returns store.ErrNotFound if nothing has been persisted for
// walletID yet.
func LoadMnemonic(ctx context.Context, kv store.KV, walletID string, encKey [32]byte) (mnemonic, derivationPath string, err error) {
	raw, err := kv.Get(ctx, mnemonicKey(walletID))
	if err != nil {
		return "", "", err
	}

	plain, err := decryptBlobWithKey(raw, encKey)
	if err != nil {
		return "", "", err
	}

	var wire wireMnemonic
	if err := msgpack.Unmarshal(plain, &wire); err != nil {
		return "", "", fmt.Errorf("%w: mnemonic: %s", walleterr.ErrDBCorruption, err)
	}
	return wire.Mnemonic, wire.DerivationPath, nil
}
