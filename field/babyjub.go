package field

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/shieldwallet/core/walleterr"
)

// PackedPoint is a 32-byte encoded Baby-Jubjub point: the y-coordinate
// with the sign of x folded into the high bit.
type PackedPoint [32]byte

// Point is an unpacked Baby-Jubjub point.
type Point struct {
	X *big.Int
	Y *big.Int
}

// PrivateKeyFromSeed derives a 32-byte field scalar private key from an
// arbitrary-length seed, per spec §3: sha256(seed) mod p.
func PrivateKeyFromSeed(seed []byte) *big.Int {
	return SHA256Field(seed)
}

// PrivateToPublic derives the packed public key for a private scalar as
// pub = sk·G directly (ScalarBaseMul), not babyjub's EdDSA-Poseidon key
// expansion (Blake512 hash + bit-pruning): ECDH below multiplies the raw
// scalar against the counterparty's point, so the public point must be
// the raw scalar's multiple of G for the two sides' shared secrets to
// agree.
func PrivateToPublic(sk *big.Int) (PackedPoint, error) {
	return PackPoint(ScalarBaseMul(sk)), nil
}

// UnpackPoint decodes a packed point, returning ErrInvalidPoint if the
// encoded y is not on-curve.
func UnpackPoint(packed PackedPoint) (*Point, error) {
	comp := babyjub.PublicKeyComp(packed)
	pub, err := comp.Decompress()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", walleterr.ErrInvalidPoint, err)
	}
	return &Point{X: pub.X, Y: pub.Y}, nil
}

// PackPoint encodes an unpacked point back into its packed form.
func PackPoint(p *Point) PackedPoint {
	pub := babyjub.PublicKey{X: p.X, Y: p.Y}
	return PackedPoint(pub.Compress())
}

// ECDH computes the shared secret between a local private scalar and a
// remote packed public key, per spec §4.A:
// hash_of(sk_a · unpack(pk_b)), returned as a 32-byte AES key.
func ECDH(skA *big.Int, packedPkB PackedPoint) ([32]byte, error) {
	pkB, err := UnpackPoint(packedPkB)
	if err != nil {
		return [32]byte{}, err
	}

	base := babyjub.Point{X: pkB.X, Y: pkB.Y}
	shared := new(babyjub.Point).Mul(skA, &base)

	buf := make([]byte, 0, 64)
	buf = append(buf, PadTo32(shared.X)...)
	buf = append(buf, PadTo32(shared.Y)...)
	return SHA256(buf), nil
}

// ScalarBaseMul returns sk·G, the public point for a private scalar.
func ScalarBaseMul(sk *big.Int) *Point {
	base := babyjub.NewPoint()
	base.X.Set(babyjub.B8.X)
	base.Y.Set(babyjub.B8.Y)
	p := new(babyjub.Point).Mul(sk, base)
	return &Point{X: p.X, Y: p.Y}
}
