package contractio

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/prover"
	"github.com/shieldwallet/core/txbuilder"
)

// DepositCalldata is the per-element shape spec §6 describes for
// generateDeposit: the recipient point's unpacked x/y coordinates plus
// the note's cleartext fields.
type DepositCalldata struct {
	PubkeyX    *big.Int
	PubkeyY    *big.Int
	Random     *big.Int
	Amount     *big.Int
	TokenType  uint8 // always 0 (ERC-20) per spec §1 Non-goals
	TokenSubID *big.Int
	Token      *big.Int // address, left-padded
}

// EncodeDeposit converts a cleartext Note into generateDeposit's
// on-chain element shape.
func EncodeDeposit(n *note.Note) (DepositCalldata, error) {
	pt, err := field.UnpackPoint(n.Pubkey)
	if err != nil {
		return DepositCalldata{}, err
	}
	return DepositCalldata{
		PubkeyX:    pt.X,
		PubkeyY:    pt.Y,
		Random:     field.Reduce(n.Random[:]),
		Amount:     n.Amount,
		TokenType:  uint8(n.TokenType),
		TokenSubID: n.TokenSubID,
		Token:      field.Reduce(n.Token[:]),
	}, nil
}

// CommitmentOutCalldata is one entry of transact's commitmentsOut array.
type CommitmentOutCalldata struct {
	Hash         *big.Int
	Ciphertext   []*big.Int
	SenderPubKey [2]*big.Int
	RevealKey    []*big.Int
}

// TransactCalldata is a single per-spend struct of spec §6's transact
// calldata shape.
type TransactCalldata struct {
	Proof              *prover.Proof
	AdaptIDContract    common.Address
	AdaptIDParameters  *big.Int
	DepositAmount      *big.Int // uint120
	WithdrawAmount     *big.Int // uint120
	TokenType          uint8
	TokenSubID         *big.Int
	TokenField         *big.Int
	OutputEthAddress   common.Address
	TreeNumber         *big.Int
	MerkleRoot         *big.Int
	Nullifiers         []*big.Int
	CommitmentsOut     []CommitmentOutCalldata
}

// EncodeTransact assembles a TransactCalldata from a built transaction
// and its proof, per spec §6. adaptIDContract/adaptIDParameters are
// carried alongside (not reconstructible from the built witness, which
// only holds their hash).
func EncodeTransact(built *txbuilder.Built, proof *prover.Proof, adaptIDContract common.Address, adaptIDParameters *big.Int) (TransactCalldata, error) {
	commitmentsOut := make([]CommitmentOutCalldata, 0, len(built.Outputs))
	for _, out := range built.Outputs {
		senderPt, err := field.UnpackPoint(out.SenderPubKey)
		if err != nil {
			return TransactCalldata{}, err
		}
		ciphertext := make([]*big.Int, 0, len(out.Ciphertext.Data)+1)
		ciphertext = append(ciphertext, field.Reduce(out.Ciphertext.IV[:]))
		for _, block := range out.Ciphertext.Data {
			ciphertext = append(ciphertext, field.Reduce(block))
		}
		revealKey := make([]*big.Int, 0, len(out.RevealKey.Data)+1)
		revealKey = append(revealKey, field.Reduce(out.RevealKey.IV[:]))
		for _, block := range out.RevealKey.Data {
			revealKey = append(revealKey, field.Reduce(block))
		}

		commitmentsOut = append(commitmentsOut, CommitmentOutCalldata{
			Hash:         out.Commitment,
			Ciphertext:   ciphertext,
			SenderPubKey: [2]*big.Int{senderPt.X, senderPt.Y},
			RevealKey:    revealKey,
		})
	}

	var outputEthAddress common.Address
	copy(outputEthAddress[:], field.PadTo32(built.Private.OutputEthAddress)[12:])

	return TransactCalldata{
		Proof:             proof,
		AdaptIDContract:   adaptIDContract,
		AdaptIDParameters: adaptIDParameters,
		DepositAmount:     built.Private.DepositAmount,
		WithdrawAmount:    built.Private.WithdrawAmount,
		TokenType:         uint8(note.TokenTypeERC20),
		TokenSubID:        big.NewInt(0),
		TokenField:        built.Private.TokenField,
		OutputEthAddress:  outputEthAddress,
		TreeNumber:        new(big.Int).SetUint64(built.Private.TreeNumber),
		MerkleRoot:        built.Private.MerkleRoot,
		Nullifiers:        built.Private.Nullifiers,
		CommitmentsOut:    commitmentsOut,
	}, nil
}
