// Package keys implements hierarchical key derivation per spec §4.E:
// a BIP-39 mnemonic to seed, a BIP-32-style hardened hierarchy over
// Baby-Jubjub scalars, and the two fixed sub-trees (primary/change) off
// a configurable root path.
package keys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"math/big"

	bip39 "github.com/cosmos/go-bip39"
	"github.com/shieldwallet/core/address"
	"github.com/shieldwallet/core/field"
)

// DefaultDerivationPath is the protocol's default root path, per spec §6.
const DefaultDerivationPath = "m/44'/1984'/0'/0'"

// PrimarySubpath and ChangeSubpath are the two fixed sub-trees off the
// user-configurable root.
const (
	PrimarySubpath uint32 = 0
	ChangeSubpath  uint32 = 1
)

const hardenedOffset uint32 = 1 << 31

// Node is a single point in the hardened derivation hierarchy: a
// 32-byte chain code plus a 32-byte key material seed.
type Node struct {
	ChainCode [32]byte
	KeySeed   [32]byte
}

// NewMnemonic generates a fresh BIP-39 mnemonic at 256 bits of entropy.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("keys: new entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("keys: new mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SeedFromMnemonic derives the BIP-39 seed for a mnemonic and optional
// passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("keys: invalid mnemonic")
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// MasterNode derives the root hierarchy node from a BIP-39 seed, via
// HMAC-SHA512 keyed by a fixed protocol label, in the spirit of BIP-32's
// "Bitcoin seed" master-key generation.
func MasterNode(seed []byte) Node {
	mac := hmac.New(sha512.New, []byte("Shielded Wallet Seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)

	var n Node
	copy(n.KeySeed[:], sum[:32])
	copy(n.ChainCode[:], sum[32:])
	return n
}

// DeriveHardened derives the hardened child at index from node, per
// BIP-32's hardened-derivation formula: HMAC-SHA512(chainCode, 0x00 ||
// keySeed || index').
func (n Node) DeriveHardened(index uint32) Node {
	hardened := index | hardenedOffset

	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, n.KeySeed[:]...)
	var idxBytes [4]byte
	binary.BigEndian.PutUint32(idxBytes[:], hardened)
	data = append(data, idxBytes[:]...)

	mac := hmac.New(sha512.New, n.ChainCode[:])
	mac.Write(data)
	sum := mac.Sum(nil)

	var child Node
	copy(child.KeySeed[:], sum[:32])
	copy(child.ChainCode[:], sum[32:])
	return child
}

// DerivePath walks a sequence of hardened indices from node.
func (n Node) DerivePath(indices ...uint32) Node {
	cur := n
	for _, idx := range indices {
		cur = cur.DeriveHardened(idx)
	}
	return cur
}

// Keypair is a single derived Baby-Jubjub keypair with its wallet
// bookkeeping metadata.
type Keypair struct {
	Index      uint32
	Change     bool
	PrivateKey *big.Int
	PublicKey  field.PackedPoint
}

// Derive computes the field-scalar private key and packed public key
// for node, per spec §4.E: node.derive(m/i') -> {privateKey, publicKey}.
func (n Node) Derive(index uint32, change bool) (Keypair, error) {
	child := n.DeriveHardened(index)
	sk := field.PrivateKeyFromSeed(child.KeySeed[:])

	pub, err := field.PrivateToPublic(sk)
	if err != nil {
		return Keypair{}, err
	}

	return Keypair{
		Index:      index,
		Change:     change,
		PrivateKey: sk,
		PublicKey:  pub,
	}, nil
}

// Address bech32-encodes the keypair's public key for chainID (nil for
// the generic prefix).
func (k Keypair) Address(chainID *int64) (string, error) {
	return address.Encode(k.PublicKey, chainID)
}

// Wallet is a rooted hierarchy exposing the primary and change
// sub-trees, per spec §4.E.
type Wallet struct {
	root Node
}

// NewWallet derives the wallet root node from a seed by walking the
// caller's root path indices (each derived hardened) from the master
// node. With no indices, DefaultDerivationPath's indices are used.
func NewWallet(seed []byte, rootPathIndices ...uint32) *Wallet {
	if len(rootPathIndices) == 0 {
		rootPathIndices = []uint32{44, 1984, 0, 0}
	}
	master := MasterNode(seed)
	return &Wallet{root: master.DerivePath(rootPathIndices...)}
}

// Primary returns the primary (receiving) tree's node at <root>/0'.
func (w *Wallet) Primary() Node {
	return w.root.DeriveHardened(PrimarySubpath)
}

// Change returns the change tree's node at <root>/1'.
func (w *Wallet) Change() Node {
	return w.root.DeriveHardened(ChangeSubpath)
}

// DeriveIndex derives the keypair at the given sub-tree and index.
func (w *Wallet) DeriveIndex(change bool, index uint32) (Keypair, error) {
	if change {
		return w.Change().Derive(index, true)
	}
	return w.Primary().Derive(index, false)
}

// ViewKey derives the wallet's view key: sha256(privateKey(0'/0')), a
// symmetric key used to wrap outgoing shared secrets for later audit.
func (w *Wallet) ViewKey() ([32]byte, error) {
	kp, err := w.Primary().Derive(0, false)
	if err != nil {
		return [32]byte{}, err
	}
	return field.SHA256(field.PadTo32(kp.PrivateKey)), nil
}
