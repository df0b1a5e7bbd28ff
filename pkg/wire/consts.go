// Copyright (c) 2024 Neomantra Corp

package wire

// Magic is the constant 4-byte resync anchor that opens every frame.
const Magic uint32 = 0xDEADBEEF

// FixedPointScale is the implicit divisor for all 10^8 fixed-point fields.
const FixedPointScale int64 = 100_000_000

// DefaultMaxMessageBytes bounds payload_size; overridable via
// MAX_MESSAGE_BYTES (see internal/config).
const DefaultMaxMessageBytes = 64 * 1024

// RelayDomain routes a message to the correct relay bus.
type RelayDomain uint8

const (
	RelayDomain_Unknown    RelayDomain = 0
	RelayDomain_MarketData RelayDomain = 1
	RelayDomain_Signals    RelayDomain = 2
)

func (d RelayDomain) String() string {
	switch d {
	case RelayDomain_MarketData:
		return "market_data"
	case RelayDomain_Signals:
		return "signals"
	default:
		return "unknown"
	}
}

// Source identifies the kind of producer that emitted a message.
type Source uint8

const (
	Source_Unknown   Source = 0
	Source_CexAdapter Source = 1
	Source_DexAdapter Source = 2
	Source_Relay      Source = 3
	Source_Synthetic  Source = 4 // test/tooling traffic
)

// Flag bits for Header.Flags.
const (
	Flag_HasTLV            uint8 = 1 << 0
	Flag_ChecksumDisabled   uint8 = 1 << 1
)

// MessageType enumerates the payload kinds that can follow a Header.
type MessageType uint16

const (
	MessageType_Unknown               MessageType = 0
	MessageType_Trade                 MessageType = 1
	MessageType_Quote                 MessageType = 2
	MessageType_L2Snapshot            MessageType = 5
	MessageType_L2Delta               MessageType = 6
	MessageType_L2Reset               MessageType = 7
	MessageType_InstrumentDiscovered  MessageType = 8
	MessageType_MessageTrace          MessageType = 11
	MessageType_SwapEvent             MessageType = 12
	MessageType_PoolUpdate            MessageType = 13
	MessageType_ArbitrageOpportunity  MessageType = 20
	MessageType_DeFiSignal            MessageType = 21
	MessageType_StateInvalidation     MessageType = 22
)

func (t MessageType) String() string {
	switch t {
	case MessageType_Trade:
		return "trade"
	case MessageType_Quote:
		return "quote"
	case MessageType_L2Snapshot:
		return "l2_snapshot"
	case MessageType_L2Delta:
		return "l2_delta"
	case MessageType_L2Reset:
		return "l2_reset"
	case MessageType_InstrumentDiscovered:
		return "instrument_discovered"
	case MessageType_MessageTrace:
		return "message_trace"
	case MessageType_SwapEvent:
		return "swap_event"
	case MessageType_PoolUpdate:
		return "pool_update"
	case MessageType_ArbitrageOpportunity:
		return "arbitrage_opportunity"
	case MessageType_DeFiSignal:
		return "defi_signal"
	case MessageType_StateInvalidation:
		return "state_invalidation"
	default:
		return "unknown"
	}
}

// Side is the aggressor side of a trade.
type Side uint8

const (
	Side_None Side = 0
	Side_Buy  Side = 1
	Side_Sell Side = 2
)

// TLVType enumerates the reserved TLV extension kinds.
type TLVType uint8

const (
	TLVType_PoolAddresses  TLVType = 1 // 44 bytes: two 20-byte addresses + 4-byte fee
	TLVType_TertiaryVenue  TLVType = 2 // 24 bytes
	TLVType_MEVBundle      TLVType = 3
	TLVType_CustomParams   TLVType = 4
)
