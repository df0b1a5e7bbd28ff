// Copyright (c) 2024 Neomantra Corp

package lineage

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestDisabledTracerIsNil(t *testing.T) {
	g := NewWithT(t)

	tracer := New(false)
	g.Expect(tracer.Enabled()).To(BeFalse())
	g.Expect(tracer.Trace([]byte("payload"), 1)).To(BeNil())
}

func TestTraceCarriesPayloadHashAndUniqueId(t *testing.T) {
	g := NewWithT(t)

	tracer := New(true)
	g.Expect(tracer.Enabled()).To(BeTrue())

	a := tracer.Trace([]byte("payload"), 123)
	b := tracer.Trace([]byte("payload"), 123)
	g.Expect(a).NotTo(BeNil())
	g.Expect(b).NotTo(BeNil())

	// same payload hashes identically, but every event gets a fresh id
	g.Expect(a.SourcePayloadHash).To(Equal(b.SourcePayloadHash))
	g.Expect(a.EventId).NotTo(Equal(b.EventId))
	g.Expect(a.ProducedAtNs).To(Equal(uint64(123)))

	c := tracer.Trace([]byte("different"), 123)
	g.Expect(c.SourcePayloadHash).NotTo(Equal(a.SourcePayloadHash))
}
