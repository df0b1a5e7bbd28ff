// Copyright (c) 2024 Neomantra Corp

package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Backend is the slice of the Ethereum RPC client the DEX adapters use:
// log subscription for the event stream and eth_call for pool/token
// metadata. *ethclient.Client satisfies it; tests use an in-memory fake.
type Backend interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
