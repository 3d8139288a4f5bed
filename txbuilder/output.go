package txbuilder

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/note"
)

// BuildOutputCommitment assembles the per-output ciphertext and audit
// reveal-key, per spec §4.G "Per-output ciphertext". Exported so tests
// (and other callers assembling a single output outside a full Build
// call) can construct the same encrypted-commitment shape the scanner
// must recover on the recipient side.
func BuildOutputCommitment(n *note.Note, viewKey [32]byte) (OutputCommitment, error) {
	senderSk, err := randomScalar()
	if err != nil {
		return OutputCommitment{}, fmt.Errorf("txbuilder: sender key: %w", err)
	}
	senderPk, err := field.PrivateToPublic(senderSk)
	if err != nil {
		return OutputCommitment{}, fmt.Errorf("txbuilder: sender pubkey: %w", err)
	}

	shared, err := field.ECDH(senderSk, n.Pubkey)
	if err != nil {
		return OutputCommitment{}, fmt.Errorf("txbuilder: ecdh: %w", err)
	}

	ct, err := n.Encrypt(shared)
	if err != nil {
		return OutputCommitment{}, fmt.Errorf("txbuilder: encrypt note: %w", err)
	}

	revealKey, err := field.Encrypt([][]byte{shared[:]}, viewKey[:])
	if err != nil {
		return OutputCommitment{}, fmt.Errorf("txbuilder: wrap reveal key: %w", err)
	}

	commitment, err := n.Commitment()
	if err != nil {
		return OutputCommitment{}, err
	}

	return OutputCommitment{
		Commitment:   commitment,
		SenderPubKey: senderPk,
		Ciphertext:   ct,
		RevealKey:    revealKey,
	}, nil
}

// ciphertextHash binds every output's sender key, ciphertext, and
// reveal key into the single field element carried in the public
// input hash, per spec §4.G.
func ciphertextHash(outputs []OutputCommitment) (*big.Int, error) {
	var buf []byte
	for _, o := range outputs {
		pt, err := field.UnpackPoint(o.SenderPubKey)
		if err != nil {
			return nil, err
		}
		buf = append(buf, field.PadTo32(pt.X)...)
		buf = append(buf, field.PadTo32(pt.Y)...)
		buf = append(buf, o.Ciphertext.IV[:]...)
		for _, block := range o.Ciphertext.Data {
			buf = append(buf, block...)
		}
		buf = append(buf, o.RevealKey.IV[:]...)
		for _, block := range o.RevealKey.Data {
			buf = append(buf, block...)
		}
	}
	return field.SHA256Field(buf), nil
}

// adaptIDHash is sha256(contract32 || parameters32) mod p.
func adaptIDHash(id AdaptID) *big.Int {
	buf := make([]byte, 0, 64)
	buf = append(buf, id.Contract[:]...)
	buf = append(buf, id.Parameters[:]...)
	return field.SHA256Field(buf)
}

// HashOfInputs is the circuit's single public input, re-derivable by
// any verifier from the public values alone, per spec §4.G. Exported
// so the prover adapter can re-derive the same hash on verify instead
// of trusting a caller-supplied value.
func HashOfInputs(adaptID, depositAmount, withdrawAmount, outputTokenField, outputEthAddress *big.Int, treeNumber uint64, merkleRoot *big.Int, nullifiers, commitmentsOut []*big.Int, ctHash *big.Int) *big.Int {
	var buf []byte
	buf = append(buf, field.PadTo32(adaptID)...)
	buf = append(buf, field.PadTo32(depositAmount)...)
	buf = append(buf, field.PadTo32(withdrawAmount)...)
	buf = append(buf, field.PadTo32(outputTokenField)...)
	buf = append(buf, field.PadTo32(outputEthAddress)...)
	buf = append(buf, field.PadTo32(new(big.Int).SetUint64(treeNumber))...)
	buf = append(buf, field.PadTo32(merkleRoot)...)
	for _, nf := range nullifiers {
		buf = append(buf, field.PadTo32(nf)...)
	}
	for _, c := range commitmentsOut {
		buf = append(buf, field.PadTo32(c)...)
	}
	buf = append(buf, field.PadTo32(ctHash)...)
	return field.SHA256Field(buf)
}

func randomBytes32() ([32]byte, error) {
	var b [32]byte
	_, err := rand.Read(b[:])
	return b, err
}
