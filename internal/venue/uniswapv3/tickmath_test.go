// Copyright (c) 2024 Neomantra Corp

package uniswapv3

import (
	"math/big"
	"testing"

	. "github.com/onsi/gomega"
)

// The canonical minimum-price pool state: tick near MinTick,
// sqrtPriceX96 at the V3 MIN_SQRT_RATIO neighborhood. The two price
// derivations must agree within the documented 1% tolerance.
func TestTickAndSqrtPriceAgreeAtMinimum(t *testing.T) {
	g := NewWithT(t)

	tickPx, err := TickToPrice(-887220)
	g.Expect(err).To(BeNil())

	sqrtPx, err := SqrtPriceX96ToPrice(big.NewInt(4295128740))
	g.Expect(err).To(BeNil())

	g.Expect(PricesAgree(tickPx, sqrtPx)).To(BeTrue(),
		"tick price %g vs sqrt price %g", tickPx, sqrtPx)
}

func TestTickToPriceIdentity(t *testing.T) {
	g := NewWithT(t)

	// 1.0001^0 == 1
	px, err := TickToPrice(0)
	g.Expect(err).To(BeNil())
	g.Expect(px).To(Equal(1.0))

	// one tick is one basis point of price
	px, err = TickToPrice(1)
	g.Expect(err).To(BeNil())
	g.Expect(px).To(BeNumerically("~", 1.0001, 1e-9))
}

func TestTickBoundsRejected(t *testing.T) {
	g := NewWithT(t)

	_, err := TickToPrice(MinTick - 1)
	g.Expect(err).To(HaveOccurred())
	_, err = TickToPrice(MaxTick + 1)
	g.Expect(err).To(HaveOccurred())

	_, err = TickToPrice(MinTick)
	g.Expect(err).To(BeNil())
	_, err = TickToPrice(MaxTick)
	g.Expect(err).To(BeNil())
}

func TestZeroSqrtPriceRejected(t *testing.T) {
	g := NewWithT(t)

	_, err := SqrtPriceX96ToPrice(big.NewInt(0))
	g.Expect(err).To(HaveOccurred())
	_, err = SqrtPriceX96ToPrice(nil)
	g.Expect(err).To(HaveOccurred())
}

func TestSqrtPriceX96KnownValue(t *testing.T) {
	g := NewWithT(t)

	// sqrtPriceX96 == 2^96 encodes price 1.0 exactly
	one := new(big.Int).Lsh(big.NewInt(1), 96)
	px, err := SqrtPriceX96ToPrice(one)
	g.Expect(err).To(BeNil())
	g.Expect(px).To(Equal(1.0))
}
