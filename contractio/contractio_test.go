package contractio

import (
	"context"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shieldwallet/core/field"
	"github.com/shieldwallet/core/merkle"
	"github.com/shieldwallet/core/store"
	"github.com/shieldwallet/core/wallet"
	"github.com/stretchr/testify/require"
)

// fakeEventClient serves pre-built logs by block range and fails a
// configured number of times before succeeding, to exercise the
// retry/backoff path.
type fakeEventClient struct {
	latest    uint64
	logs      map[common.Hash][]types.Log // topic0 -> logs across all chunks
	failTimes int
	calls     int
}

func (f *fakeEventClient) LatestBlock(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeEventClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, context.DeadlineExceeded
	}
	topic := q.Topics[0][0]
	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()

	var out []types.Log
	for _, l := range f.logs[topic] {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

func encodeGeneratedCommitmentLog(t *testing.T, tree, start uint64, xs, ys, randoms, amounts []*big.Int, token *big.Int, blockNumber uint64, txHash common.Hash) types.Log {
	t.Helper()
	data, err := generatedCommitmentArgs.Pack(
		new(big.Int).SetUint64(tree), new(big.Int).SetUint64(start),
		xs, ys, randoms, amounts, token,
	)
	require.NoError(t, err)
	return types.Log{
		Topics:      []common.Hash{topicGeneratedCommitmentBatch},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      txHash,
	}
}

func encodeNullifierLog(t *testing.T, tree uint64, nullifiers []*big.Int, blockNumber uint64, txHash common.Hash) types.Log {
	t.Helper()
	data, err := nullifierArgs.Pack(new(big.Int).SetUint64(tree), nullifiers)
	require.NoError(t, err)
	return types.Log{
		Topics:      []common.Hash{topicNullifier},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      txHash,
	}
}

type fakeMirrors struct {
	trees map[uint64]*merkle.Tree
}

func (f *fakeMirrors) Mirror(chainID int64, tree uint64) *merkle.Tree {
	if f.trees == nil {
		f.trees = make(map[uint64]*merkle.Tree)
	}
	t, ok := f.trees[tree]
	if !ok {
		t = merkle.NewTree()
		f.trees[tree] = t
	}
	return t
}

func TestSyncReplaysChunkedGeneratedCommitments(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	recipient, err := field.PrivateToPublic(field.PrivateKeyFromSeed([]byte("contractio recipient")))
	require.NoError(t, err)
	pt, err := field.UnpackPoint(recipient)
	require.NoError(t, err)

	genLog := encodeGeneratedCommitmentLog(t, 0, 0,
		[]*big.Int{pt.X}, []*big.Int{pt.Y},
		[]*big.Int{big.NewInt(3)}, []*big.Int{big.NewInt(100)},
		big.NewInt(0xAABB), 600, common.HexToHash("0x01"))

	client := &fakeEventClient{
		latest: 1200,
		logs:   map[common.Hash][]types.Log{topicGeneratedCommitmentBatch: {genLog}},
	}

	a := New(client, kv, Config{ChunkSize: 500, Contract: common.HexToAddress("0xdead")})
	mirrors := &fakeMirrors{}

	err = a.Sync(ctx, 1, mirrors)
	require.NoError(t, err)

	recs, err := a.Commitments(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, wallet.GeneratedCommitment, recs[0].Kind)
	require.Equal(t, uint64(0), recs[0].Position)
	require.NotNil(t, recs[0].PlaintextNote)

	latestTree, err := a.LatestTree(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), latestTree)

	last, err := a.getLastSyncedBlock(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1201), last)
}

func TestSyncMarksNullifiers(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	nf := big.NewInt(777)
	nfLog := encodeNullifierLog(t, 2, []*big.Int{nf}, 10, common.HexToHash("0x02"))

	client := &fakeEventClient{
		latest: 50,
		logs:   map[common.Hash][]types.Log{topicNullifier: {nfLog}},
	}

	a := New(client, kv, Config{Contract: common.HexToAddress("0xdead")})
	mirrors := &fakeMirrors{}

	require.NoError(t, a.Sync(ctx, 7, mirrors))

	txid, ok := mirrors.Mirror(7, 2).GetNullified(nf)
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0x02").Hex(), txid)
}

func TestSyncRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	client := &fakeEventClient{latest: 10, failTimes: 2, logs: map[common.Hash][]types.Log{}}
	a := New(client, kv, Config{Contract: common.HexToAddress("0xdead"), MaxRetries: 5})

	require.NoError(t, a.Sync(ctx, 1, &fakeMirrors{}))
	require.Greater(t, client.calls, 2)
}

func TestSyncExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	client := &fakeEventClient{latest: 10, failTimes: 100, logs: map[common.Hash][]types.Log{}}
	a := New(client, kv, Config{Contract: common.HexToAddress("0xdead"), MaxRetries: 2})

	err := a.Sync(ctx, 1, &fakeMirrors{})
	require.Error(t, err)
}
