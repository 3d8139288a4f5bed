// Package address implements the checksummed Bech32 address codec
// described in spec §4.C: a version byte followed by a packed
// Baby-Jubjub public key, under a chain-specific human-readable prefix.
package address

import (
	"fmt"

	"github.com/cosmos/btcutil/bech32"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/walleterr"
)

// Version is the current address format version byte.
const Version byte = 1

// prefixes maps known chain IDs to their bech32 human-readable part, per
// spec §4.C.
var prefixes = map[int64]string{
	1:   "rgeth",
	3:   "rgtestropsten",
	5:   "rgtestgoerli",
	56:  "rgbsc",
	137: "rgpoly",
}

// AnyPrefix is used when chainId is unset or not a known network.
const AnyPrefix = "rgany"

// Decoded is the result of decoding an address.
type Decoded struct {
	Pubkey  field.PackedPoint
	ChainID *int64 // nil if the prefix was AnyPrefix or unrecognized-but-any
}

func prefixFor(chainID *int64) string {
	if chainID == nil {
		return AnyPrefix
	}
	if hrp, ok := prefixes[*chainID]; ok {
		return hrp
	}
	return AnyPrefix
}

// Encode bech32-encodes a packed public key under the prefix for
// chainID, falling back to AnyPrefix when chainID is nil or unknown.
func Encode(pubkey field.PackedPoint, chainID *int64) (string, error) {
	hrp := prefixFor(chainID)

	data := make([]byte, 0, 33)
	data = append(data, Version)
	data = append(data, pubkey[:]...)

	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("address: convert bits: %w", err)
	}

	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("address: encode: %w", err)
	}
	return encoded, nil
}

// Decode parses a bech32 address, returning the packed public key and
// the chain ID it was encoded for (nil if encoded under AnyPrefix).
// Fails with ErrWrongVersion if the version byte mismatches, or
// ErrUnknownPrefix if the HRP is neither a known network nor AnyPrefix.
func Decode(addr string) (*Decoded, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return nil, fmt.Errorf("address: decode: %w", err)
	}

	var chainID *int64
	known := hrp == AnyPrefix
	for id, p := range prefixes {
		if p == hrp {
			v := id
			chainID = &v
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", walleterr.ErrUnknownPrefix, hrp)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("address: convert bits: %w", err)
	}
	if len(raw) != 33 {
		return nil, fmt.Errorf("address: unexpected payload length %d", len(raw))
	}
	if raw[0] != Version {
		return nil, fmt.Errorf("%w: got %d want %d", walleterr.ErrWrongVersion, raw[0], Version)
	}

	var pubkey field.PackedPoint
	copy(pubkey[:], raw[1:])

	return &Decoded{Pubkey: pubkey, ChainID: chainID}, nil
}
