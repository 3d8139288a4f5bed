// Package wallet implements the wallet scanner: key derivation against
// a seed, tailing the commitment tree, decrypting incoming notes,
// tracking spends and balances. See spec §4.F.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shamaton/msgpack/v2"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/store"
	"github.com/shieldwallet/core/walleterr"
)

// CommitmentSource is the chain-facing collaborator the scanner pulls
// new commitments from. contractio.Adapter implements this against a
// live EVM chain; tests use a fake.
type CommitmentSource interface {
	// Commitments returns commitment records for tree, at positions
	// >= fromPosition, in ascending position order.
	Commitments(ctx context.Context, chainID int64, tree uint64, fromPosition uint64) ([]CommitmentRecord, error)
	// LatestTree returns the highest tree number with any activity.
	LatestTree(ctx context.Context, chainID int64) (uint64, error)
}

// Wallet scans a single seed's derivation hierarchy across chains,
// persisting TXO records and wallet scan-progress to a KV store.
type Wallet struct {
	id       string
	kv       store.KV
	hd       *keys.Wallet
	encKey   [32]byte
	gapLimit uint32
	logger   zerolog.Logger

	scanMu   sync.Mutex
	inFlight map[int64]bool

	mirrorsMu sync.Mutex
	mirrors   map[mirrorKey]*merkle.Tree
}

type mirrorKey struct {
	chainID int64
	tree    uint64
}

// New constructs a Wallet over kv, with seed-derived keys and the given
// symmetric key for encrypting persisted wallet details.
func New(id string, kv store.KV, seed []byte, encKey [32]byte, gapLimit uint32) *Wallet {
	if gapLimit == 0 {
		gapLimit = 5
	}
	return &Wallet{
		id:       id,
		kv:       kv,
		hd:       keys.NewWallet(seed),
		encKey:   encKey,
		gapLimit: gapLimit,
		logger:   log.With().Str("module", "wallet").Str("wallet_id", id).Logger(),
		inFlight: make(map[int64]bool),
		mirrors:  make(map[mirrorKey]*merkle.Tree),
	}
}

// Mirror returns (creating if needed) the shared-read merkle mirror for
// a (chainID, tree) pair.
func (w *Wallet) Mirror(chainID int64, tree uint64) *merkle.Tree {
	w.mirrorsMu.Lock()
	defer w.mirrorsMu.Unlock()

	k := mirrorKey{chainID, tree}
	t, ok := w.mirrors[k]
	if !ok {
		t = merkle.NewTree()
		w.mirrors[k] = t
	}
	return t
}

// verifyEncKey checks a caller-supplied key against the wallet's
// in-memory key, per spec §5's WrongEncryptionKey requirement.
func (w *Wallet) verifyEncKey(key [32]byte) error {
	if key != w.encKey {
		return walleterr.ErrWrongEncryptionKey
	}
	return nil
}

func (w *Wallet) loadWalletDetails(ctx context.Context) (*WalletDetails, error) {
	raw, err := w.kv.Get(ctx, walletDetailsKey(w.id))
	if err != nil {
		if err == store.ErrNotFound {
			return NewWalletDetails(), nil
		}
		return nil, fmt.Errorf("wallet: load details: %w", err)
	}

	plain, err := w.decryptBlob(raw)
	if err != nil {
		return nil, err
	}

	var wire wireWalletDetails
	if err := msgpack.Unmarshal(plain, &wire); err != nil {
		return nil, fmt.Errorf("%w: wallet details: %s", walleterr.ErrDBCorruption, err)
	}
	return wire.toDetails(), nil
}

func (w *Wallet) persistWalletDetails(ctx context.Context, d *WalletDetails) error {
	wire := fromDetails(d)
	plain, err := msgpack.Marshal(&wire)
	if err != nil {
		return fmt.Errorf("wallet: marshal details: %w", err)
	}

	enc, err := w.encryptBlob(plain)
	if err != nil {
		return err
	}
	return w.kv.Put(ctx, walletDetailsKey(w.id), enc)
}

// wireWalletDetails is the msgpack-stable shadow of WalletDetails (maps
// with non-string keys do not round-trip predictably through msgpack).
type wireWalletDetails struct {
	Trees         []uint64
	ScannedHeight []uint64
	PrimaryHeight uint32
	ChangeHeight  uint32
}

func fromDetails(d *WalletDetails) wireWalletDetails {
	w := wireWalletDetails{PrimaryHeight: d.PrimaryHeight, ChangeHeight: d.ChangeHeight}
	for tree, h := range d.TreeScannedHeights {
		w.Trees = append(w.Trees, tree)
		w.ScannedHeight = append(w.ScannedHeight, h)
	}
	return w
}

func (w wireWalletDetails) toDetails() *WalletDetails {
	d := NewWalletDetails()
	d.PrimaryHeight = w.PrimaryHeight
	d.ChangeHeight = w.ChangeHeight
	for i, tree := range w.Trees {
		d.TreeScannedHeights[tree] = w.ScannedHeight[i]
	}
	return d
}

func (w *Wallet) encryptBlob(plain []byte) ([]byte, error) {
	return encryptBlobWithKey(plain, w.encKey)
}

func (w *Wallet) decryptBlob(raw []byte) ([]byte, error) {
	return decryptBlobWithKey(raw, w.encKey)
}

// encryptBlobWithKey/decryptBlobWithKey are the key-parameterized form
// of the wallet's blob encryption, shared with the package-level
// PersistMnemonic/LoadMnemonic helpers, which act before a Wallet (and
// its derived hd hierarchy) can be constructed.
func encryptBlobWithKey(plain []byte, key [32]byte) ([]byte, error) {
	ct, err := field.Encrypt([][]byte{plain}, key[:])
	if err != nil {
		return nil, fmt.Errorf("wallet: encrypt: %w", err)
	}
	out := make([]byte, 0, 16+len(ct.Data[0]))
	out = append(out, ct.IV[:]...)
	out = append(out, ct.Data[0]...)
	return out, nil
}

func decryptBlobWithKey(raw []byte, key [32]byte) ([]byte, error) {
	if len(raw) < 16 {
		return nil, fmt.Errorf("%w: truncated blob", walleterr.ErrDBCorruption)
	}
	var iv [16]byte
	copy(iv[:], raw[:16])

	pt, err := field.Decrypt(iv, [][]byte{raw[16:]}, key[:])
	if err != nil {
		return nil, fmt.Errorf("wallet: decrypt: %w", err)
	}
	return pt[0], nil
}

// scanIndex attempts to recover a note addressed to keypair from a
// single commitment record, per spec §4.F. Returns ok=false (with no
// error) for a record that isn't addressed to this key, including an
// encrypted record whose sender point or ciphertext fails to decrypt;
// it returns an error only for an unknown commitment kind, which the
// caller treats as a local, skip-this-leaf failure.
func scanIndex(rec CommitmentRecord, kp keys.Keypair) (*note.Note, bool, error) {
	var n *note.Note

	switch rec.Kind {
	case GeneratedCommitment:
		n = rec.PlaintextNote
	case EncryptedCommitment:
		shared, err := field.ECDH(kp.PrivateKey, rec.SenderPubKey)
		if err != nil {
			return nil, false, nil // not addressed to us / bad sender point
		}
		decrypted, err := note.Decrypt(rec.Ciphertext, shared)
		if err != nil {
			return nil, false, nil // malformed or simply not ours; skip locally
		}
		n = decrypted
	default:
		return nil, false, fmt.Errorf("wallet: unknown commitment kind %d", rec.Kind)
	}

	if n.Pubkey != kp.PublicKey {
		return nil, false, nil
	}
	return n, true, nil
}
