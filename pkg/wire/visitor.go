// Copyright (c) 2024 Neomantra Corp

package wire

// Visitor dispatches a decoded frame to the handler matching its
// message_type. Unknown types land on OnUnknown rather than failing.
type Visitor interface {
	OnTrade(h Header, record *Trade) error
	OnQuote(h Header, record *Quote) error
	OnL2Snapshot(h Header, record *L2Snapshot) error
	OnL2Delta(h Header, record *L2Delta) error
	OnL2Reset(h Header, record *L2Reset) error
	OnInstrumentDiscovered(h Header, record *InstrumentDiscovered) error
	OnMessageTrace(h Header, record *MessageTrace) error
	OnSwapEvent(h Header, record *SwapEvent) error
	OnPoolUpdate(h Header, record *PoolUpdate) error
	OnArbitrageOpportunity(h Header, record *ArbitrageOpportunity) error
	OnDeFiSignal(h Header, record *DeFiSignal) error
	OnStateInvalidation(h Header, record *StateInvalidation) error
	OnUnknown(h Header, payload []byte) error
}

// Visit decodes frame's payload according to its header's message_type
// and dispatches it to the matching Visitor method. An unrecognized
// message_type is not an error: it is handed to OnUnknown so callers can
// skip forward instead of tearing the stream down.
func Visit(frame []byte, h Header, v Visitor) error {
	switch h.MessageType {
	case MessageType_Trade:
		r, err := DecodePayload[Trade](frame, h)
		if err != nil {
			return err
		}
		return v.OnTrade(h, r)
	case MessageType_Quote:
		r, err := DecodePayload[Quote](frame, h)
		if err != nil {
			return err
		}
		return v.OnQuote(h, r)
	case MessageType_L2Snapshot:
		r, err := DecodePayload[L2Snapshot](frame, h)
		if err != nil {
			return err
		}
		return v.OnL2Snapshot(h, r)
	case MessageType_L2Delta:
		r, err := DecodePayload[L2Delta](frame, h)
		if err != nil {
			return err
		}
		return v.OnL2Delta(h, r)
	case MessageType_L2Reset:
		r, err := DecodePayload[L2Reset](frame, h)
		if err != nil {
			return err
		}
		return v.OnL2Reset(h, r)
	case MessageType_InstrumentDiscovered:
		r, err := DecodePayload[InstrumentDiscovered](frame, h)
		if err != nil {
			return err
		}
		return v.OnInstrumentDiscovered(h, r)
	case MessageType_MessageTrace:
		r, err := DecodePayload[MessageTrace](frame, h)
		if err != nil {
			return err
		}
		return v.OnMessageTrace(h, r)
	case MessageType_SwapEvent:
		r, err := DecodePayload[SwapEvent](frame, h)
		if err != nil {
			return err
		}
		return v.OnSwapEvent(h, r)
	case MessageType_PoolUpdate:
		r, err := DecodePayload[PoolUpdate](frame, h)
		if err != nil {
			return err
		}
		return v.OnPoolUpdate(h, r)
	case MessageType_ArbitrageOpportunity:
		r, err := DecodePayload[ArbitrageOpportunity](frame, h)
		if err != nil {
			return err
		}
		return v.OnArbitrageOpportunity(h, r)
	case MessageType_DeFiSignal:
		r, err := DecodePayload[DeFiSignal](frame, h)
		if err != nil {
			return err
		}
		return v.OnDeFiSignal(h, r)
	case MessageType_StateInvalidation:
		r, err := DecodePayload[StateInvalidation](frame, h)
		if err != nil {
			return err
		}
		return v.OnStateInvalidation(h, r)
	default:
		return v.OnUnknown(h, frame[Header_Size:])
	}
}
