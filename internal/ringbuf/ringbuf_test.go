// Copyright (c) 2024 Neomantra Corp

//go:build unix

package ringbuf_test

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/ringbuf"
)

func TestWriteReadRoundTrip(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "trades.ring")

	w, err := ringbuf.Create(path, 8, 64)
	g.Expect(err).NotTo(HaveOccurred())
	defer w.Close()

	r, err := ringbuf.Open(path, 0)
	g.Expect(err).NotTo(HaveOccurred())
	defer r.Close()

	g.Expect(w.Write([]byte("hello"))).To(Succeed())

	got, err := r.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(got)).To(Equal("hello"))

	_, err = r.Read()
	g.Expect(err).To(Equal(ringbuf.ErrNoData))
}

func TestOverrunDetection(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "overrun.ring")

	capacity := 4
	w, err := ringbuf.Create(path, capacity, 8)
	g.Expect(err).NotTo(HaveOccurred())
	defer w.Close()

	r, err := ringbuf.Open(path, 0)
	g.Expect(err).NotTo(HaveOccurred())
	defer r.Close()

	// Read nothing, then lap the reader by writing more than capacity.
	for i := 0; i < capacity*3; i++ {
		g.Expect(w.Write([]byte{byte(i)})).To(Succeed())
	}

	_, err = r.Read()
	g.Expect(err).To(HaveOccurred())
	var overrun *ringbuf.RingOverrun
	g.Expect(err).To(BeAssignableToTypeOf(overrun))
	g.Expect(r.OverrunCount()).To(BeNumerically(">", 0))

	// After an overrun, the reader resumes at the writer's current
	// sequence: no more data is available until a new write happens.
	_, err = r.Read()
	g.Expect(err).To(Equal(ringbuf.ErrNoData))

	g.Expect(w.Write([]byte{0xff})).To(Succeed())
	got, err := r.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal([]byte{0xff}))
}

func TestMultipleReadersIndependentCursors(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "multi.ring")

	w, err := ringbuf.Create(path, 16, 8)
	g.Expect(err).NotTo(HaveOccurred())
	defer w.Close()

	r1, err := ringbuf.Open(path, 0)
	g.Expect(err).NotTo(HaveOccurred())
	defer r1.Close()

	r2, err := ringbuf.Open(path, 1)
	g.Expect(err).NotTo(HaveOccurred())
	defer r2.Close()

	g.Expect(w.Write([]byte("a"))).To(Succeed())
	g.Expect(w.Write([]byte("b"))).To(Succeed())

	got1a, err := r1.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(got1a)).To(Equal("a"))

	got2a, err := r2.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(got2a)).To(Equal("a"))

	got1b, err := r1.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(got1b)).To(Equal("b"))
}
