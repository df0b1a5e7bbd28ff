// Copyright (c) 2024 Neomantra Corp

package balancer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	. "github.com/onsi/gomega"
)

func word(v *big.Int) []byte {
	out := make([]byte, 32)
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

func addressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr[:])
	return h
}

func TestDecodeSwap(t *testing.T) {
	g := NewWithT(t)

	poolId := common.HexToHash("0x5c6ee304399dbdb9c8ef030ab642b10820db8f56000200000000000000000014")
	tokenIn := common.HexToAddress("0x4444444444444444444444444444444444444444")
	tokenOut := common.HexToAddress("0x5555555555555555555555555555555555555555")

	var data []byte
	data = append(data, word(big.NewInt(2_000_000))...) // amountIn
	data = append(data, word(big.NewInt(1_995_000))...) // amountOut

	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSwap, poolId, addressTopic(tokenIn), addressTopic(tokenOut)},
		Data:   data,
	}

	swap, err := DecodeSwap(lg)
	g.Expect(err).To(BeNil())
	g.Expect(swap.TokenIn).To(Equal(tokenIn))
	g.Expect(swap.TokenOut).To(Equal(tokenOut))
	g.Expect(swap.AmountIn.Int64()).To(Equal(int64(2_000_000)))
	g.Expect(swap.AmountOut.Int64()).To(Equal(int64(1_995_000)))
	g.Expect(swap.VaultPoolId[:]).To(Equal(poolId.Bytes()))

	// the Vault pool id embeds the pool address in its first 20 bytes
	g.Expect(common.BytesToAddress(swap.VaultPoolId[:20])).To(Equal(
		common.HexToAddress("0x5c6ee304399dbdb9c8ef030ab642b10820db8f56")))
}

func TestDecodeSwapRejectsMissingTopics(t *testing.T) {
	g := NewWithT(t)
	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSwap, {}},
		Data:   make([]byte, 64),
	}
	_, err := DecodeSwap(lg)
	g.Expect(err).To(MatchError(ErrNotSwapEvent))
}
