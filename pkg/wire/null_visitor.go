// Copyright (c) 2024 Neomantra Corp

package wire

// NullVisitor implements Visitor with every method a no-op. Embed it and
// override only the handlers you care about.
type NullVisitor struct{}

func (NullVisitor) OnTrade(Header, *Trade) error                           { return nil }
func (NullVisitor) OnQuote(Header, *Quote) error                           { return nil }
func (NullVisitor) OnL2Snapshot(Header, *L2Snapshot) error                 { return nil }
func (NullVisitor) OnL2Delta(Header, *L2Delta) error                       { return nil }
func (NullVisitor) OnL2Reset(Header, *L2Reset) error                       { return nil }
func (NullVisitor) OnInstrumentDiscovered(Header, *InstrumentDiscovered) error { return nil }
func (NullVisitor) OnMessageTrace(Header, *MessageTrace) error             { return nil }
func (NullVisitor) OnSwapEvent(Header, *SwapEvent) error                   { return nil }
func (NullVisitor) OnPoolUpdate(Header, *PoolUpdate) error                 { return nil }
func (NullVisitor) OnArbitrageOpportunity(Header, *ArbitrageOpportunity) error { return nil }
func (NullVisitor) OnDeFiSignal(Header, *DeFiSignal) error                 { return nil }
func (NullVisitor) OnStateInvalidation(Header, *StateInvalidation) error   { return nil }
func (NullVisitor) OnUnknown(Header, []byte) error                        { return nil }
