package identity_test

import (
	"unsafe"

	"github.com/dawsh2/alphapulse/pkg/identity"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InstrumentId", func() {
	Context("correctness", func() {
		It("should be no smaller in memory than its wire size", func() {
			Expect(unsafe.Sizeof(identity.InstrumentId{})).To(BeNumerically(">=", uintptr(identity.InstrumentId_Size)))
		})

		It("should round-trip through its bijective string form", func() {
			id := identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD")
			parsed, err := identity.Parse(id.String())
			Expect(err).To(BeNil())
			Expect(parsed).To(Equal(id))
		})

		It("should round-trip through its 12-byte wire form", func() {
			id := identity.NewToken(identity.Venue_Polygon, [20]byte{0x27, 0x91, 0xbc, 0xa1})
			var buf [identity.InstrumentId_Size]byte
			id.PutBytes(buf[:])
			parsed, err := identity.FromBytes(buf[:])
			Expect(err).To(BeNil())
			Expect(parsed).To(Equal(id))
		})

		It("should yield distinct cache keys for distinct ids", func() {
			a := identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD")
			b := identity.NewCexSpot(identity.Venue_Kraken, "ETH-USD")
			Expect(a.CacheKey()).ToNot(Equal(b.CacheKey()))
		})
	})

	Context("pool canonicalization", func() {
		It("should be order-independent", func() {
			usdc := identity.NewToken(identity.Venue_Ethereum, [20]byte{0xA0, 0xb8})
			weth := identity.NewToken(identity.Venue_Ethereum, [20]byte{0xC0, 0x2a})
			ab := identity.NewPool(identity.Venue_UniswapV3, usdc, weth)
			ba := identity.NewPool(identity.Venue_UniswapV3, weth, usdc)
			Expect(ab).To(Equal(ba))
		})
	})

	Context("edge cases", func() {
		It("treats the zero value as not a valid instrument", func() {
			Expect(identity.InstrumentId{}.IsZero()).To(BeTrue())
		})

		It("rejects a malformed string form", func() {
			_, err := identity.Parse("not-a-valid-id")
			Expect(err).ToNot(BeNil())
		})
	})
})
