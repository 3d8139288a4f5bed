package field

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// Ciphertext is the output of Encrypt: a random 16-byte IV and the
// CTR-encrypted blocks, each the same length as its plaintext block.
type Ciphertext struct {
	IV   [16]byte
	Data [][]byte
}

// keyTo32 truncates or zero-pads key to 32 bytes, per spec §4.A.
func keyTo32(key []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, key)
	_ = n
	return out
}

// Encrypt runs AES-256-CTR over a sequence of plaintext blocks of any
// length, with one keystream running across them in order, under a
// freshly generated random IV.
func Encrypt(blocks [][]byte, key []byte) (Ciphertext, error) {
	block, err := aes.NewCipher(keyTo32(key))
	if err != nil {
		return Ciphertext{}, fmt.Errorf("aes: new cipher: %w", err)
	}

	var iv [16]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return Ciphertext{}, fmt.Errorf("aes: random iv: %w", err)
	}

	stream := cipher.NewCTR(block, iv[:])
	out := make([][]byte, len(blocks))
	for i, pt := range blocks {
		ct := make([]byte, len(pt))
		stream.XORKeyStream(ct, pt)
		out[i] = ct
	}

	return Ciphertext{IV: iv, Data: out}, nil
}

// Decrypt is the inverse of Encrypt: given an IV and ciphertext blocks,
// recovers the plaintext blocks.
func Decrypt(iv [16]byte, data [][]byte, key []byte) ([][]byte, error) {
	block, err := aes.NewCipher(keyTo32(key))
	if err != nil {
		return nil, fmt.Errorf("aes: new cipher: %w", err)
	}

	stream := cipher.NewCTR(block, iv[:])
	out := make([][]byte, len(data))
	for i, ct := range data {
		pt := make([]byte, len(ct))
		stream.XORKeyStream(pt, ct)
		out[i] = pt
	}

	return out, nil
}
