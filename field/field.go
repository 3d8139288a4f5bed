// Package field implements the cryptographic primitives shared by every
// other wallet package: SNARK-prime field reduction, Baby-Jubjub curve
// operations, the Poseidon hash used by the circuit, and the off-circuit
// SHA-256/AES-256-CTR primitives. Every function here is deterministic
// and total except where the spec calls for a named failure mode, and
// except Encrypt, which draws a random IV.
package field

import (
	"crypto/sha256"
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Prime is the BN254 scalar field modulus, fixed by the protocol.
var Prime = new(big.Int).Set(constants.Q)

// Reduce returns b interpreted as a big-endian integer, reduced mod Prime.
func Reduce(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	return n.Mod(n, Prime)
}

// ReduceInt reduces an existing big.Int mod Prime, without mutating it.
func ReduceInt(n *big.Int) *big.Int {
	return new(big.Int).Mod(n, Prime)
}

// SHA256 returns the 32-byte SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SHA256Field hashes data with SHA-256 and reduces the digest mod Prime,
// for use as a public-input-bound field element.
func SHA256Field(data []byte) *big.Int {
	h := sha256.Sum256(data)
	return Reduce(h[:])
}

// Poseidon hashes a slice of field elements with the same
// parameterization the circuit uses. Deterministic; total.
func Poseidon(ins []*big.Int) (*big.Int, error) {
	return poseidon.Hash(ins)
}

// PadTo32 left-pads n's big-endian byte representation to 32 bytes.
func PadTo32(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
