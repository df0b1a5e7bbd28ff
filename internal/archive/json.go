// Copyright (c) 2024 Neomantra Corp

package archive

import (
	"io"

	segjson "github.com/segmentio/encoding/json"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// WriteAsJson writes a value marshalled as JSON to the writer, returning any error.
func WriteAsJson[T any](val *T, writer io.Writer) error {
	jstr, err := segjson.Marshal(val)
	if err != nil {
		return err
	}
	_, err = writer.Write(jstr)
	if err != nil {
		return err
	}
	_, err = writer.Write([]byte{'\n'})
	return err
}

// JsonWriterVisitor implements the wire.Visitor interface, marshalling
// every record as one JSON line on its Writer. Used by alphapulse-capture's
// cat command and by tooling that wants a human-greppable dump.
type JsonWriterVisitor struct {
	writer io.Writer
}

// NewJsonWriterVisitor creates a JsonWriterVisitor on the given writer.
func NewJsonWriterVisitor(writer io.Writer) *JsonWriterVisitor {
	return &JsonWriterVisitor{writer: writer}
}

type jsonFrame[T any] struct {
	Type   string      `json:"type"`
	Header wire.Header `json:"header"`
	Record *T          `json:"record"`
}

func writeFrame[T any](v *JsonWriterVisitor, h wire.Header, record *T) error {
	frame := jsonFrame[T]{Type: h.MessageType.String(), Header: h, Record: record}
	return WriteAsJson(&frame, v.writer)
}

func (v *JsonWriterVisitor) OnTrade(h wire.Header, record *wire.Trade) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnQuote(h wire.Header, record *wire.Quote) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnL2Snapshot(h wire.Header, record *wire.L2Snapshot) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnL2Delta(h wire.Header, record *wire.L2Delta) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnL2Reset(h wire.Header, record *wire.L2Reset) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnInstrumentDiscovered(h wire.Header, record *wire.InstrumentDiscovered) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnMessageTrace(h wire.Header, record *wire.MessageTrace) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnSwapEvent(h wire.Header, record *wire.SwapEvent) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnPoolUpdate(h wire.Header, record *wire.PoolUpdate) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnArbitrageOpportunity(h wire.Header, record *wire.ArbitrageOpportunity) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnDeFiSignal(h wire.Header, record *wire.DeFiSignal) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnStateInvalidation(h wire.Header, record *wire.StateInvalidation) error {
	return writeFrame(v, h, record)
}

func (v *JsonWriterVisitor) OnUnknown(h wire.Header, payload []byte) error {
	frame := struct {
		Type    string      `json:"type"`
		Header  wire.Header `json:"header"`
		Payload []byte      `json:"payload"`
	}{Type: "unknown", Header: h, Payload: payload}
	return WriteAsJson(&frame, v.writer)
}
