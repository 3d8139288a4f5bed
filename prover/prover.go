// Package prover adapts the external Groth16 proving toolchain
// (witness generation over a circom-compiled wasm artifact, then
// Groth16 proving/verification over BN254) to the wallet's witness
// objects, including the on-chain verifier's reversed G2 coordinate
// convention. See spec §4.H.
package prover

import (
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/iden3/go-rapidsnark/witness"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shieldwallet/core/txbuilder"
	"github.com/shieldwallet/core/walleterr"
)

// Circuit names the two fixed spend arities a caller may prove
// against, matching txbuilder.Built.Circuit.
type Circuit string

const (
	CircuitSmall Circuit = "erc20small"
	CircuitLarge Circuit = "erc20large"
)

// Artifacts supplies the per-circuit wasm witness calculator, proving
// key, and verification key bytes. A concrete implementation loads
// these from disk or an embedded bundle; tests may fake it.
type Artifacts interface {
	Wasm(circuit Circuit) ([]byte, error)
	ZKey(circuit Circuit) ([]byte, error)
	VerificationKey(circuit Circuit) ([]byte, error)
}

// Proof is the on-chain Groth16 proof shape: G2's inner coordinate
// pair is stored swapped relative to the prover's native output, per
// spec §4.H step 4 / §9 "Proof element reordering".
type Proof struct {
	A [2]*big.Int
	B [2][2]*big.Int
	C [2]*big.Int
}

// PublicValues carries the constituent values the verifier re-hashes
// into hashOfInputs itself; the proof never supplies that hash
// directly (spec §4.G: "the wallet never trusts an externally
// supplied hash").
type PublicValues struct {
	AdaptID          *big.Int
	DepositAmount    *big.Int
	WithdrawAmount   *big.Int
	OutputTokenField *big.Int
	OutputEthAddress *big.Int
	TreeNumber       uint64
	MerkleRoot       *big.Int
	Nullifiers       []*big.Int
	CommitmentsOut   []*big.Int
	CiphertextHash   *big.Int
}

// Adapter wraps one loaded artifact set.
type Adapter struct {
	artifacts Artifacts
	logger    zerolog.Logger
}

// New constructs an Adapter over artifacts.
func New(artifacts Artifacts) *Adapter {
	return &Adapter{
		artifacts: artifacts,
		logger:    log.With().Str("module", "prover").Logger(),
	}
}

// Prove runs the full pipeline of spec §4.H: witness generation,
// Groth16 proving, G2 reordering for the on-chain verifier, and a
// mandatory self-verify before returning.
func (a *Adapter) Prove(ctx context.Context, circuit Circuit, private txbuilder.ERC20PrivateInputs, public PublicValues) (*Proof, error) {
	wasmBytes, err := a.artifacts.Wasm(circuit)
	if err != nil {
		return nil, fmt.Errorf("prover: load wasm: %w", err)
	}
	zkeyBytes, err := a.artifacts.ZKey(circuit)
	if err != nil {
		return nil, fmt.Errorf("prover: load zkey: %w", err)
	}

	calc, err := witness.NewCircom2WitnessCalculator(wasmBytes, true)
	if err != nil {
		return nil, fmt.Errorf("prover: init witness calculator: %w", err)
	}

	wtns, err := calc.CalculateWTNSBin(assignment(private), true)
	if err != nil {
		return nil, fmt.Errorf("prover: calculate witness: %w", err)
	}

	zkProof, err := prover.Groth16Prover(zkeyBytes, wtns)
	if err != nil {
		return nil, fmt.Errorf("prover: groth16 prove: %w", err)
	}

	raw, err := proofFromZK(zkProof.Proof)
	if err != nil {
		return nil, fmt.Errorf("prover: parse proof: %w", err)
	}

	onchain := &Proof{A: raw.A, B: swapB(raw.B), C: raw.C}

	ok, err := a.Verify(ctx, circuit, public, onchain)
	if err != nil || !ok {
		a.logger.Error().Err(err).Str("circuit", string(circuit)).Msg("self-verification failed")
		return nil, fmt.Errorf("%w: self-verification failed", walleterr.ErrProofGenFailed)
	}

	return onchain, nil
}

// Verify re-derives hashOfInputs from public (never trusting a
// caller-supplied hash), un-swaps b back to the prover's native
// order, and delegates to the Groth16 verifier.
func (a *Adapter) Verify(ctx context.Context, circuit Circuit, public PublicValues, proof *Proof) (bool, error) {
	vkBytes, err := a.artifacts.VerificationKey(circuit)
	if err != nil {
		return false, fmt.Errorf("prover: load verification key: %w", err)
	}

	hoi := txbuilder.HashOfInputs(
		public.AdaptID, public.DepositAmount, public.WithdrawAmount,
		public.OutputTokenField, public.OutputEthAddress,
		public.TreeNumber, public.MerkleRoot,
		public.Nullifiers, public.CommitmentsOut, public.CiphertextHash,
	)

	nativeB := swapB(proof.B)
	if err := validatePoints(proof.A, nativeB, proof.C); err != nil {
		return false, fmt.Errorf("%w: %s", walleterr.ErrProofVerifyFailed, err)
	}

	zkProof := types.ZKProof{
		Proof: &types.ProofData{
			Protocol: "groth16",
			A:        []string{proof.A[0].String(), proof.A[1].String(), "1"},
			B: [][]string{
				{nativeB[0][0].String(), nativeB[0][1].String()},
				{nativeB[1][0].String(), nativeB[1][1].String()},
				{"1", "0"},
			},
			C: []string{proof.C[0].String(), proof.C[1].String(), "1"},
		},
		PublicSignals: []string{hoi.String()},
	}

	ok, err := verifier.VerifyGroth16(zkProof, vkBytes)
	if err != nil {
		return false, fmt.Errorf("%w: %s", walleterr.ErrProofVerifyFailed, err)
	}
	return ok, nil
}

// validatePoints checks that the proof's affine coordinates describe
// points actually on the BN254 curve, catching a malformed or
// truncated proof before it reaches the Groth16 pairing check.
func validatePoints(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int) error {
	var g1a, g1c bn254.G1Affine
	g1a.X.SetBigInt(a[0])
	g1a.Y.SetBigInt(a[1])
	if !g1a.IsOnCurve() {
		return fmt.Errorf("proof element a is not on curve")
	}
	g1c.X.SetBigInt(c[0])
	g1c.Y.SetBigInt(c[1])
	if !g1c.IsOnCurve() {
		return fmt.Errorf("proof element c is not on curve")
	}

	var g2b bn254.G2Affine
	g2b.X.A0.SetBigInt(b[0][0])
	g2b.X.A1.SetBigInt(b[0][1])
	g2b.Y.A0.SetBigInt(b[1][0])
	g2b.Y.A1.SetBigInt(b[1][1])
	if !g2b.IsOnCurve() {
		return fmt.Errorf("proof element b is not on curve")
	}
	return nil
}
