// Copyright (c) 2024 Neomantra Corp

package curve

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

func TestDecodeExchange(t *testing.T) {
	g := NewWithT(t)

	buyer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	var buyerTopic common.Hash
	copy(buyerTopic[12:], buyer[:])

	var data []byte
	data = append(data, word(big.NewInt(0))...)          // sold_id
	data = append(data, word(big.NewInt(1_000_000))...)  // tokens_sold
	data = append(data, word(big.NewInt(1))...)          // bought_id
	data = append(data, word(big.NewInt(999_100))...)    // tokens_bought

	lg := ethtypes.Log{
		Topics: []common.Hash{TopicTokenExchange, buyerTopic},
		Data:   data,
	}

	exch, err := DecodeExchange(lg)
	g.Expect(err).To(BeNil())
	g.Expect(exch.Buyer).To(Equal(buyer))
	g.Expect(exch.SoldId).To(Equal(int64(0)))
	g.Expect(exch.TokensSold.Int64()).To(Equal(int64(1_000_000)))
	g.Expect(exch.BoughtId).To(Equal(int64(1)))
	g.Expect(exch.TokensBought.Int64()).To(Equal(int64(999_100)))
}

func TestDecodeExchangeRejectsWrongTopic(t *testing.T) {
	g := NewWithT(t)
	lg := ethtypes.Log{
		Topics: []common.Hash{{}, {}},
		Data:   make([]byte, 128),
	}
	_, err := DecodeExchange(lg)
	g.Expect(err).To(MatchError(ErrNotExchangeEvent))
}

func TestDecodeExchangeRejectsShortData(t *testing.T) {
	g := NewWithT(t)
	lg := ethtypes.Log{
		Topics: []common.Hash{TopicTokenExchange, {}},
		Data:   make([]byte, 64),
	}
	_, err := DecodeExchange(lg)
	g.Expect(err).To(MatchError(ErrTruncatedLog))
}
