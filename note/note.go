// Package note implements the shielded-transfer note: commitment and
// nullifier derivation, symmetric encryption/decryption, and canonical
// serialization. See spec §4.B.
package note

import (
	"fmt"
	"math/big"

	"github.com/shamaton/msgpack/v2"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/walleterr"
)

// TokenType discriminates the reserved multi-asset variants. Only ERC20
// is exercised by this repo; ERC721/ERC1155 round-trip through
// serialization but no operation acts on them (spec §1 Non-goals).
type TokenType uint8

const (
	TokenTypeERC20 TokenType = iota
	TokenTypeERC721
	TokenTypeERC1155
)

// MaxAmount is the exclusive upper bound on a note's amount (2^120).
var MaxAmount = new(big.Int).Lsh(big.NewInt(1), 120)

// Note is a single ERC-20 shielded note.
type Note struct {
	Pubkey     field.PackedPoint `msgpack:"pubkey"`
	Random     [32]byte          `msgpack:"random"`
	Amount     *big.Int          `msgpack:"amount"`
	Token      [32]byte          `msgpack:"token"`
	TokenType  TokenType         `msgpack:"tokenType"`
	TokenSubID *big.Int          `msgpack:"tokenSubId"`
}

// Validate checks the field-range invariants spec §4.B requires of any
// note recovered from untrusted bytes (decryption or deposit parsing).
func (n *Note) Validate() error {
	if n.Amount == nil || n.Amount.Sign() < 0 || n.Amount.Cmp(MaxAmount) >= 0 {
		return fmt.Errorf("%w: amount out of range", walleterr.ErrMalformedNote)
	}
	if n.TokenSubID == nil {
		n.TokenSubID = big.NewInt(0)
	}
	return nil
}

// Commitment computes C = Poseidon(pubkey.x, pubkey.y, amount, random, token).
func (n *Note) Commitment() (*big.Int, error) {
	pt, err := field.UnpackPoint(n.Pubkey)
	if err != nil {
		return nil, err
	}

	ins := []*big.Int{
		pt.X,
		pt.Y,
		n.Amount,
		field.Reduce(n.Random[:]),
		field.Reduce(n.Token[:]),
	}
	return field.Poseidon(ins)
}

// Nullifier computes N = Poseidon(privateKey, treeIndex, leafPosition),
// binding a spend to a specific leaf.
func Nullifier(privateKey *big.Int, treeIndex, leafPosition uint64) (*big.Int, error) {
	ins := []*big.Int{
		privateKey,
		new(big.Int).SetUint64(treeIndex),
		new(big.Int).SetUint64(leafPosition),
	}
	return field.Poseidon(ins)
}

// randomAmountBlock packs random||amount into the 32-byte layout the
// decrypt side expects: 16 bytes of random nonce followed by the
// amount's low 16 bytes, big-endian.
func randomAmountBlock(random [32]byte, amount *big.Int) []byte {
	block := make([]byte, 32)
	copy(block[:16], random[:16])
	amt := amount.Bytes()
	if len(amt) > 16 {
		amt = amt[len(amt)-16:]
	}
	copy(block[32-len(amt):], amt)
	return block
}

// Encrypt encrypts the note under a shared AES-256-CTR key, producing
// the three-block ciphertext layout spec §4.B mandates: pubkey,
// random||amount, token.
func (n *Note) Encrypt(sharedKey [32]byte) (field.Ciphertext, error) {
	blocks := [][]byte{
		n.Pubkey[:],
		randomAmountBlock(n.Random, n.Amount),
		n.Token[:],
	}
	return field.Encrypt(blocks, sharedKey[:])
}

// Decrypt recovers a Note from a ciphertext produced by Encrypt. Fails
// with ErrMalformedNote if the decrypted amount falls outside the
// valid range.
func Decrypt(ct field.Ciphertext, sharedKey [32]byte) (*Note, error) {
	if len(ct.Data) != 3 {
		return nil, fmt.Errorf("%w: expected 3 ciphertext blocks, got %d", walleterr.ErrMalformedNote, len(ct.Data))
	}

	blocks, err := field.Decrypt(ct.IV, ct.Data, sharedKey[:])
	if err != nil {
		return nil, err
	}

	n := &Note{}
	copy(n.Pubkey[:], blocks[0])
	copy(n.Random[:16], blocks[1][:16])
	n.Amount = new(big.Int).SetBytes(blocks[1][16:])
	copy(n.Token[:], blocks[2])

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// wireNote is the msgpack-serializable shadow of Note: big.Int has no
// msgpack codec of its own, so amounts travel as decimal strings.
type wireNote struct {
	Pubkey     field.PackedPoint `msgpack:"pubkey,omitempty"`
	HasPubkey  bool              `msgpack:"hasPubkey"`
	Random     [32]byte          `msgpack:"random"`
	Amount     string            `msgpack:"amount"`
	Token      [32]byte          `msgpack:"token"`
	TokenType  TokenType         `msgpack:"tokenType"`
	TokenSubID string            `msgpack:"tokenSubId"`
}

// Serialize produces the canonical in-memory/db form (msgpack). When
// withPubkey is false the recipient pubkey is omitted, for records
// where it is redundant with the derived key used to look them up.
func (n *Note) Serialize(withPubkey bool) ([]byte, error) {
	w := wireNote{
		Random:     n.Random,
		Amount:     n.Amount.String(),
		Token:      n.Token,
		TokenType:  n.TokenType,
		TokenSubID: n.TokenSubID.String(),
	}
	if withPubkey {
		w.Pubkey = n.Pubkey
		w.HasPubkey = true
	}

	b, err := msgpack.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("note: marshal: %w", err)
	}
	return b, nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (*Note, error) {
	var w wireNote
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %s", walleterr.ErrDBCorruption, err)
	}

	amount, ok := new(big.Int).SetString(w.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad amount string", walleterr.ErrDBCorruption)
	}
	subID, ok := new(big.Int).SetString(w.TokenSubID, 10)
	if !ok {
		subID = big.NewInt(0)
	}

	n := &Note{
		Random:     w.Random,
		Amount:     amount,
		Token:      w.Token,
		TokenType:  w.TokenType,
		TokenSubID: subID,
	}
	if w.HasPubkey {
		n.Pubkey = w.Pubkey
	}
	return n, nil
}
