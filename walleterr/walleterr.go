// Package walleterr defines the error taxonomy shared by every wallet
// package. Callers should compare with errors.Is; the wrapped context
// added at each call site is for humans, not for control flow.
package walleterr

import "errors"

var (
	// ErrInvalidPoint is returned when a packed Baby-Jubjub point does
	// not decode to a point on the curve.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrMalformedNote is returned when a decrypted or deserialized
	// note violates a field-range invariant.
	ErrMalformedNote = errors.New("malformed note")

	// ErrWrongEncryptionKey is returned when the caller-supplied
	// symmetric key does not match the wallet's in-memory key.
	ErrWrongEncryptionKey = errors.New("wrong encryption key")

	// ErrWrongVersion is returned when an address's version byte does
	// not match the protocol version.
	ErrWrongVersion = errors.New("wrong version")

	// ErrUnknownPrefix is returned when an address's bech32 HRP is
	// neither a known network prefix nor the generic fallback.
	ErrUnknownPrefix = errors.New("unknown prefix")

	// ErrInsufficientBalance is returned when the unspent value summed
	// across all trees is less than a spend requires.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTokenMismatch is returned when an output's token does not
	// match the transaction's token.
	ErrTokenMismatch = errors.New("token mismatch")

	// ErrTooManyOutputs is returned when more than two real outputs
	// are requested.
	ErrTooManyOutputs = errors.New("too many outputs")

	// ErrWithdrawConfig is returned when withdraw amount and
	// withdraw address are inconsistently set.
	ErrWithdrawConfig = errors.New("withdraw misconfigured")

	// ErrNeedsConsolidation is returned when every tree with enough
	// balance would need more UTXOs than the large circuit supports.
	ErrNeedsConsolidation = errors.New("needs consolidation")

	// ErrProofGenFailed is returned when a freshly generated proof
	// fails its own self-verification.
	ErrProofGenFailed = errors.New("proof generation failed")

	// ErrProofVerifyFailed is returned when a proof fails verification.
	ErrProofVerifyFailed = errors.New("proof verification failed")

	// ErrRootNotKnown is returned when a Merkle root is not in the
	// mirror's retained ring.
	ErrRootNotKnown = errors.New("root not known")

	// ErrRPCRetryExhausted is returned when a chunked RPC fetch
	// exhausts its retry budget.
	ErrRPCRetryExhausted = errors.New("rpc retry exhausted")

	// ErrDBCorruption is returned when persisted state fails to
	// decode.
	ErrDBCorruption = errors.New("db corruption")
)
