// Copyright (c) 2024 Neomantra Corp

package schema_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

var _ = Describe("Cache", func() {
	var cache *schema.Cache
	usdc := schema.CachedRecord{
		Id:       identity.NewToken(identity.Venue_Polygon, [20]byte{0x27, 0x91}),
		Symbol:   "USDC",
		Decimals: 6,
	}

	BeforeEach(func() {
		cache = schema.New()
	})

	It("returns nothing for an unseen id", func() {
		_, ok := cache.Get(usdc.Id)
		Expect(ok).To(BeFalse())
	})

	It("inserts and retrieves a record", func() {
		Expect(cache.Insert(usdc)).To(Succeed())
		got, ok := cache.Get(usdc.Id)
		Expect(ok).To(BeTrue())
		Expect(got.Symbol).To(Equal("USDC"))
		Expect(got.Decimals).To(Equal(uint8(6)))
	})

	It("accepts an identical duplicate insert silently", func() {
		Expect(cache.Insert(usdc)).To(Succeed())
		Expect(cache.Insert(usdc)).To(Succeed())
		Expect(cache.Len()).To(Equal(1))
	})

	It("rejects a conflicting insert with IdentityConflict", func() {
		Expect(cache.Insert(usdc)).To(Succeed())
		conflicting := usdc
		conflicting.Decimals = 18
		err := cache.Insert(conflicting)
		var conflict *schema.IdentityConflict
		Expect(err).To(BeAssignableToTypeOf(conflict))

		// the original record is untouched
		got, _ := cache.Get(usdc.Id)
		Expect(got.Decimals).To(Equal(uint8(6)))
	})

	It("fires the discovery callback exactly once per id", func() {
		var discovered []schema.CachedRecord
		cache.OnDiscover(func(rec schema.CachedRecord) {
			discovered = append(discovered, rec)
		})
		Expect(cache.Insert(usdc)).To(Succeed())
		Expect(cache.Insert(usdc)).To(Succeed())
		Expect(discovered).To(HaveLen(1))
		Expect(discovered[0].Symbol).To(Equal("USDC"))
	})

	It("ingests an InstrumentDiscovered wire record", func() {
		record := &wire.InstrumentDiscovered{
			InstrumentId: usdc.Id,
			Symbol:       "USDC",
			Decimals:     6,
			Metadata:     []byte{0xde, 0xad},
		}
		Expect(cache.OnInstrumentDiscovered(record)).To(Succeed())
		got, ok := cache.Get(usdc.Id)
		Expect(ok).To(BeTrue())
		Expect(got.Metadata).To(Equal([]byte{0xde, 0xad}))
	})

	It("snapshots every record", func() {
		weth := schema.CachedRecord{
			Id:       identity.NewToken(identity.Venue_Polygon, [20]byte{0x7c, 0xeb}),
			Symbol:   "WETH",
			Decimals: 18,
		}
		Expect(cache.Insert(usdc)).To(Succeed())
		Expect(cache.Insert(weth)).To(Succeed())
		Expect(cache.Snapshot()).To(HaveLen(2))
	})
})
