// Copyright (c) 2024 Neomantra Corp

package uniswapv2

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

	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	var data []byte
	data = append(data, word(big.NewInt(1_500_000))...) // amount0In
	data = append(data, word(big.NewInt(0))...)         // amount1In
	data = append(data, word(big.NewInt(0))...)         // amount0Out
	data = append(data, word(big.NewInt(740_000))...)   // amount1Out

	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSwap, addressTopic(sender), addressTopic(to)},
		Data:   data,
	}

	swap, err := DecodeSwap(lg)
	g.Expect(err).To(BeNil())
	g.Expect(swap.Sender).To(Equal(sender))
	g.Expect(swap.To).To(Equal(to))
	g.Expect(swap.Amount0In.Int64()).To(Equal(int64(1_500_000)))
	g.Expect(swap.Amount1Out.Int64()).To(Equal(int64(740_000)))

	// pool perspective: token0 in (+), token1 out (-)
	g.Expect(swap.Amount0Net().Int64()).To(Equal(int64(1_500_000)))
	g.Expect(swap.Amount1Net().Int64()).To(Equal(int64(-740_000)))
}

func TestDecodeSwapRejectsWrongTopic(t *testing.T) {
	g := NewWithT(t)
	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSync, {}, {}},
		Data:   make([]byte, 128),
	}
	_, err := DecodeSwap(lg)
	g.Expect(err).To(MatchError(ErrNotSwapEvent))
}

func TestDecodeSwapRejectsShortData(t *testing.T) {
	g := NewWithT(t)
	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSwap, {}, {}},
		Data:   make([]byte, 96),
	}
	_, err := DecodeSwap(lg)
	g.Expect(err).To(MatchError(ErrTruncatedLog))
}

func TestDecodeSync(t *testing.T) {
	g := NewWithT(t)

	reserve0 := new(big.Int).Mul(big.NewInt(123_456), big.NewInt(1_000_000_000_000))
	reserve1 := big.NewInt(987_654_321)

	var data []byte
	data = append(data, word(reserve0)...)
	data = append(data, word(reserve1)...)

	lg := ethtypes.Log{
		Topics: []common.Hash{TopicSync},
		Data:   data,
	}

	r0, r1, err := DecodeSync(lg)
	g.Expect(err).To(BeNil())
	g.Expect(r0.String()).To(Equal(reserve0.String()))
	g.Expect(r1.String()).To(Equal(reserve1.String()))
}

func TestPriceFixed8(t *testing.T) {
	g := NewWithT(t)

	// 1.5 token0 at 6 decimals bought 0.00074 token1 at 18 decimals:
	// price = 0.00074 / 1.5 ~= 0.00049333 token1 per token0
	amount0 := big.NewInt(1_500_000)
	amount1, _ := new(big.Int).SetString("-740000000000000", 10)
	px := priceFixed8(amount0, amount1, 6, 18)
	g.Expect(px).To(Equal(int64(49333)))
}
