// Copyright (c) 2024 Neomantra Corp

package sequence_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/sequence"
	"github.com/dawsh2/alphapulse/pkg/identity"
)

func testInstrument() identity.InstrumentId {
	return identity.NewCexSpot(identity.Venue_Coinbase, "BTC-USD")
}

func TestFirstSightingIsOK(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()
	id := testInstrument()

	res := tr.Observe(id, 42)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeOK))

	last, ok := tr.LastSeq(id)
	g.Expect(ok).To(BeTrue())
	g.Expect(last).To(Equal(uint64(42)))
}

func TestInOrderSequenceIsOK(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()
	id := testInstrument()

	for _, seq := range []uint64{1, 2, 3} {
		res := tr.Observe(id, seq)
		g.Expect(res.Outcome).To(Equal(sequence.OutcomeOK))
	}
}

func TestGapReportsMissingCount(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()
	id := testInstrument()

	g.Expect(tr.Observe(id, 1).Outcome).To(Equal(sequence.OutcomeOK))
	g.Expect(tr.Observe(id, 2).Outcome).To(Equal(sequence.OutcomeOK))
	g.Expect(tr.Observe(id, 3).Outcome).To(Equal(sequence.OutcomeOK))

	res := tr.Observe(id, 5)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeGap))
	g.Expect(res.Gap).To(Equal(uint64(1)))

	res = tr.Observe(id, 6)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeOK))
}

func TestRegressionIsRejectedWithoutMutatingState(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()
	id := testInstrument()

	tr.Observe(id, 10)
	res := tr.Observe(id, 9)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeRegression))

	last, _ := tr.LastSeq(id)
	g.Expect(last).To(Equal(uint64(10)))

	res = tr.Observe(id, 10)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeRegression))
}

func TestResetTreatsNextObserveAsFirstSighting(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()
	id := testInstrument()

	tr.Observe(id, 100)
	tr.Reset(id)

	_, ok := tr.LastSeq(id)
	g.Expect(ok).To(BeFalse())

	res := tr.Observe(id, 1)
	g.Expect(res.Outcome).To(Equal(sequence.OutcomeOK))
}

func TestLenTracksDistinctInstruments(t *testing.T) {
	g := NewWithT(t)
	tr := sequence.New()

	btc := identity.NewCexSpot(identity.Venue_Coinbase, "BTC-USD")
	eth := identity.NewCexSpot(identity.Venue_Coinbase, "ETH-USD")

	tr.Observe(btc, 1)
	tr.Observe(eth, 1)
	g.Expect(tr.Len()).To(Equal(2))
}

func TestSourceTrackerAcceptsStrictIncrease(t *testing.T) {
	g := NewWithT(t)
	st := sequence.NewSourceTracker()
	key := sequence.SourceKey{Source: 1, RelayDomain: 1}

	g.Expect(st.Observe(key, 1)).To(BeTrue())
	g.Expect(st.Observe(key, 2)).To(BeTrue())
	g.Expect(st.Observe(key, 2)).To(BeFalse())
	g.Expect(st.Observe(key, 1)).To(BeFalse())
	g.Expect(st.Observe(key, 3)).To(BeTrue())
}

func TestSourceTrackerForgetResetsFirstSighting(t *testing.T) {
	g := NewWithT(t)
	st := sequence.NewSourceTracker()
	key := sequence.SourceKey{Source: 1, RelayDomain: 1}

	st.Observe(key, 5)
	st.Forget(key)
	g.Expect(st.Observe(key, 1)).To(BeTrue())
}
