// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"
	"math/big"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// SwapEvent_Size is the fixed payload width of a SwapEvent record.
const SwapEvent_Size = identity.InstrumentId_Size + 16 + 16 + 20 + 4 + 8 + 8 + 4 + 8 // = 96

// SwapEvent carries a single on-chain DEX swap at native token precision;
// amounts are never scaled to the 10^8 fixed-point domain (see
// pkg/identity and the fixed-point discipline in the top-level docs) --
// a Trade record is derived separately, losing precision on purpose, only
// when one is needed.
type SwapEvent struct {
	PoolId       identity.InstrumentId
	Amount0      [16]byte // native signed 128-bit, big-endian two's complement
	Amount1      [16]byte
	SqrtPriceX96 [20]byte // native unsigned 160-bit, big-endian; zero for V2-style pools
	Tick         int32
	Liquidity    uint64
	BlockNumber  uint64
	LogIndex     uint32
}

func (*SwapEvent) MessageType() MessageType { return MessageType_SwapEvent }
func (*SwapEvent) PayloadSize() int         { return SwapEvent_Size }

func (r *SwapEvent) FillRaw(b []byte) error {
	if len(b) < SwapEvent_Size {
		return unexpectedBytesError(len(b), SwapEvent_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.PoolId = id
	body := b[identity.InstrumentId_Size:]
	copy(r.Amount0[:], body[0:16])
	copy(r.Amount1[:], body[16:32])
	copy(r.SqrtPriceX96[:], body[32:52])
	r.Tick = int32(binary.LittleEndian.Uint32(body[52:56]))
	r.Liquidity = binary.LittleEndian.Uint64(body[56:64])
	r.BlockNumber = binary.LittleEndian.Uint64(body[64:72])
	r.LogIndex = binary.LittleEndian.Uint32(body[72:76])
	return nil
}

func (r *SwapEvent) PutRaw(b []byte) {
	r.PoolId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	copy(body[0:16], r.Amount0[:])
	copy(body[16:32], r.Amount1[:])
	copy(body[32:52], r.SqrtPriceX96[:])
	binary.LittleEndian.PutUint32(body[52:56], uint32(r.Tick))
	binary.LittleEndian.PutUint64(body[56:64], r.Liquidity)
	binary.LittleEndian.PutUint64(body[64:72], r.BlockNumber)
	binary.LittleEndian.PutUint32(body[72:76], r.LogIndex)
	// body[76:84] reserved, left zero
}

// Amount0Signed decodes Amount0 as a two's-complement signed big.Int.
func (r *SwapEvent) Amount0Signed() *big.Int { return signed128(r.Amount0) }

// Amount1Signed decodes Amount1 as a two's-complement signed big.Int.
func (r *SwapEvent) Amount1Signed() *big.Int { return signed128(r.Amount1) }

// SqrtPriceX96Int decodes SqrtPriceX96 as an unsigned big.Int.
func (r *SwapEvent) SqrtPriceX96Int() *big.Int {
	return new(big.Int).SetBytes(r.SqrtPriceX96[:])
}

// PutAmount0Signed encodes a signed big.Int into Amount0 using two's
// complement over 16 bytes.
func (r *SwapEvent) PutAmount0Signed(v *big.Int) { putSigned128(&r.Amount0, v) }

// PutAmount1Signed encodes a signed big.Int into Amount1 using two's
// complement over 16 bytes.
func (r *SwapEvent) PutAmount1Signed(v *big.Int) { putSigned128(&r.Amount1, v) }

// PutSqrtPriceX96 encodes an unsigned big.Int into SqrtPriceX96, zero-padded.
func (r *SwapEvent) PutSqrtPriceX96(v *big.Int) {
	b := v.Bytes()
	var buf [20]byte
	copy(buf[20-len(b):], b)
	r.SqrtPriceX96 = buf
}

func signed128(raw [16]byte) *big.Int {
	v := new(big.Int).SetBytes(raw[:])
	if raw[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return v
}

func putSigned128(dst *[16]byte, v *big.Int) {
	var buf [16]byte
	if v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		mod.Add(mod, v)
		b := mod.Bytes()
		copy(buf[16-len(b):], b)
	} else {
		b := v.Bytes()
		copy(buf[16-len(b):], b)
	}
	*dst = buf
}
