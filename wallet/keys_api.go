package wallet

import "github.com/shieldwallet/core/keys"

// DeriveKeypairFor re-derives the keypair a TXO was scanned against,
// for the transaction builder's spend-authorization step.
func (w *Wallet) DeriveKeypairFor(txo TXORecord) (keys.Keypair, error) {
	return w.hd.DeriveIndex(txo.Change, txo.Index)
}

// ChangeKeypair derives a keypair on the change sub-tree, used by the
// transaction builder to address its own change output.
func (w *Wallet) ChangeKeypair(index uint32) (keys.Keypair, error) {
	return w.hd.DeriveIndex(true, index)
}

// ViewKey returns the wallet's deterministic audit key (spec §4.E).
func (w *Wallet) ViewKey() ([32]byte, error) {
	return w.hd.ViewKey()
}
