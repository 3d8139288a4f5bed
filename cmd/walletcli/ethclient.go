package main

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// rpcEventClient adapts ethclient.Client to contractio.EventClient.
type rpcEventClient struct {
	client *ethclient.Client
}

func dialEthClient(url string) (*rpcEventClient, error) {
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}
	return &rpcEventClient{client: c}, nil
}

func (r *rpcEventClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return r.client.FilterLogs(ctx, query)
}

func (r *rpcEventClient) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

func bigFromInt64(n int64) *big.Int {
	return big.NewInt(n)
}
