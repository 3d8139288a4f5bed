package txbuilder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/note"
	"github.com/shieldwallet/core/walleterr"
)

// Build runs the full transaction-assembly pipeline described in spec
// §4.G: selection, output padding, ciphertext assembly, and witness
// construction. It does not invoke the prover; the caller passes the
// result to the prover package.
func Build(ctx context.Context, src Source, req Request) (*Built, error) {
	if len(req.Outputs) > 2 {
		return nil, walleterr.ErrTooManyOutputs
	}
	for _, o := range req.Outputs {
		if o.Token != req.Token {
			return nil, walleterr.ErrTokenMismatch
		}
	}

	deposit := req.Deposit
	if deposit == nil {
		deposit = big.NewInt(0)
	}
	withdraw := req.Withdraw
	if withdraw == nil {
		withdraw = big.NewInt(0)
	}
	if withdraw.Sign() > 0 && req.WithdrawAddress == nil {
		return nil, walleterr.ErrWithdrawConfig
	}
	if withdraw.Sign() == 0 && req.WithdrawAddress != nil {
		return nil, walleterr.ErrWithdrawConfig
	}

	outputsSum := big.NewInt(0)
	for _, o := range req.Outputs {
		outputsSum.Add(outputsSum, o.Amount)
	}

	required := new(big.Int).Add(outputsSum, withdraw)
	required.Sub(required, deposit)
	if required.Sign() < 0 {
		required = big.NewInt(0)
	}

	sel, err := selectUTXOs(ctx, src, req.ChainID, req.Token, required, req.Tree)
	if err != nil {
		return nil, err
	}

	changeAmount := new(big.Int).Set(sel.totalIn.BigInt())
	changeAmount.Add(changeAmount, deposit)
	changeAmount.Sub(changeAmount, outputsSum)
	changeAmount.Sub(changeAmount, withdraw)
	if changeAmount.Sign() < 0 {
		changeAmount = big.NewInt(0)
	}

	changeKp, err := src.ChangeKeypair(0)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: change keypair: %w", err)
	}
	viewKey, err := src.ViewKey()
	if err != nil {
		return nil, fmt.Errorf("txbuilder: view key: %w", err)
	}

	changeRandom, err := randomBytes32()
	if err != nil {
		return nil, fmt.Errorf("txbuilder: change random: %w", err)
	}
	changeNote := &note.Note{
		Pubkey:     changeKp.PublicKey,
		Random:     changeRandom,
		Amount:     changeAmount,
		Token:      req.Token,
		TokenSubID: big.NewInt(0),
	}

	outNotes := make([]*note.Note, 0, NumOutputs)
	for _, o := range req.Outputs {
		var rnd [32]byte
		r, err := randomBytes32()
		if err != nil {
			return nil, fmt.Errorf("txbuilder: output random: %w", err)
		}
		rnd = r
		outNotes = append(outNotes, &note.Note{
			Pubkey:     o.Pubkey,
			Random:     rnd,
			Amount:     o.Amount,
			Token:      o.Token,
			TokenSubID: big.NewInt(0),
		})
	}
	outNotes = append(outNotes, changeNote)
	for len(outNotes) < NumOutputs {
		d, _, err := dummyNote(req.Token)
		if err != nil {
			return nil, err
		}
		outNotes = append(outNotes, d)
	}

	outputs := make([]OutputCommitment, 0, len(outNotes))
	for _, n := range outNotes {
		oc, err := BuildOutputCommitment(n, viewKey)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, oc)
	}

	ctHash, err := ciphertextHash(outputs)
	if err != nil {
		return nil, err
	}

	nullifiers := make([]*big.Int, 0, len(sel.inputs))
	randomIn := make([]*big.Int, 0, len(sel.inputs))
	valuesIn := make([]*big.Int, 0, len(sel.inputs))
	spendingKeys := make([]*big.Int, 0, len(sel.inputs))
	pathElements := make([][merkle.Depth]*big.Int, 0, len(sel.inputs))
	pathIndices := make([][merkle.Depth]uint8, 0, len(sel.inputs))

	for _, in := range sel.inputs {
		nf, err := note.Nullifier(in.privateKey, sel.tree, in.position)
		if err != nil {
			return nil, fmt.Errorf("txbuilder: nullifier: %w", err)
		}
		nullifiers = append(nullifiers, nf)
		randomIn = append(randomIn, field.Reduce(in.note.Random[:]))
		valuesIn = append(valuesIn, in.note.Amount)
		spendingKeys = append(spendingKeys, in.privateKey)

		if in.dummy {
			var elems [merkle.Depth]*big.Int
			for i := range elems {
				elems[i] = merkle.Zero
			}
			pathElements = append(pathElements, elems)
			pathIndices = append(pathIndices, [merkle.Depth]uint8{})
			continue
		}

		proof, err := src.Mirror(req.ChainID, sel.tree).GetProof(in.position)
		if err != nil {
			return nil, fmt.Errorf("txbuilder: inclusion proof: %w", err)
		}
		pathElements = append(pathElements, proof.Elements)
		pathIndices = append(pathIndices, proof.Indices)
	}

	outputTokenField := big.NewInt(0)
	if deposit.Sign() > 0 || withdraw.Sign() > 0 {
		outputTokenField = field.Reduce(req.Token[:])
	}
	outputEthAddress := big.NewInt(0)
	if req.WithdrawAddress != nil {
		outputEthAddress = field.Reduce(req.WithdrawAddress[:])
	}

	recipientPK := make([][2]*big.Int, 0, len(outNotes))
	randomOut := make([]*big.Int, 0, len(outNotes))
	valuesOut := make([]*big.Int, 0, len(outNotes))
	commitmentsOut := make([]*big.Int, 0, len(outNotes))
	for i, n := range outNotes {
		pt, err := field.UnpackPoint(n.Pubkey)
		if err != nil {
			return nil, err
		}
		recipientPK = append(recipientPK, [2]*big.Int{pt.X, pt.Y})
		randomOut = append(randomOut, field.Reduce(n.Random[:]))
		valuesOut = append(valuesOut, n.Amount)
		commitmentsOut = append(commitmentsOut, outputs[i].Commitment)
	}

	adaptID := adaptIDHash(req.AdaptID)
	hoi := HashOfInputs(adaptID, deposit, withdraw, outputTokenField, outputEthAddress, sel.tree, sel.merkleRoot, nullifiers, commitmentsOut, ctHash)

	private := ERC20PrivateInputs{
		AdaptID:          adaptID,
		TokenField:       field.Reduce(req.Token[:]),
		DepositAmount:    deposit,
		WithdrawAmount:   withdraw,
		OutputTokenField: outputTokenField,
		OutputEthAddress: outputEthAddress,
		RandomIn:         randomIn,
		ValuesIn:         valuesIn,
		SpendingKeys:     spendingKeys,
		TreeNumber:       sel.tree,
		MerkleRoot:       sel.merkleRoot,
		Nullifiers:       nullifiers,
		PathElements:     pathElements,
		PathIndices:      pathIndices,
		RecipientPK:      recipientPK,
		RandomOut:        randomOut,
		ValuesOut:        valuesOut,
		CommitmentsOut:   commitmentsOut,
		CiphertextHash:   ctHash,
	}

	return &Built{
		Circuit:    sel.circuit,
		Private:    private,
		Public:     PublicInputs{HashOfInputs: hoi},
		Outputs:    outputs,
		ChangeNote: changeNote,
	}, nil
}
