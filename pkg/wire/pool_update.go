// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"
	"math/big"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// PoolUpdate_Size is the fixed payload width of a PoolUpdate record.
const PoolUpdate_Size = identity.InstrumentId_Size + 16 + 16 + 20 + 4 + 4 // = 72

// PoolUpdate carries the current state of an AMM pool: V2-style reserves,
// or V3-style sqrtPriceX96/tick/liquidity. Unused fields for a given
// protocol are zero.
type PoolUpdate struct {
	PoolId       identity.InstrumentId
	Reserve0     [16]byte // native unsigned 128-bit, big-endian; V2
	Reserve1     [16]byte
	SqrtPriceX96 [20]byte // native unsigned 160-bit, big-endian; V3
	Tick         int32
	Liquidity    uint32
}

func (*PoolUpdate) MessageType() MessageType { return MessageType_PoolUpdate }
func (*PoolUpdate) PayloadSize() int         { return PoolUpdate_Size }

func (r *PoolUpdate) FillRaw(b []byte) error {
	if len(b) < PoolUpdate_Size {
		return unexpectedBytesError(len(b), PoolUpdate_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.PoolId = id
	body := b[identity.InstrumentId_Size:]
	copy(r.Reserve0[:], body[0:16])
	copy(r.Reserve1[:], body[16:32])
	copy(r.SqrtPriceX96[:], body[32:52])
	r.Tick = int32(binary.LittleEndian.Uint32(body[52:56]))
	r.Liquidity = binary.LittleEndian.Uint32(body[56:60])
	return nil
}

func (r *PoolUpdate) PutRaw(b []byte) {
	r.PoolId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	copy(body[0:16], r.Reserve0[:])
	copy(body[16:32], r.Reserve1[:])
	copy(body[32:52], r.SqrtPriceX96[:])
	binary.LittleEndian.PutUint32(body[52:56], uint32(r.Tick))
	binary.LittleEndian.PutUint32(body[56:60], r.Liquidity)
}

// Reserve0Int decodes Reserve0 as an unsigned big.Int.
func (r *PoolUpdate) Reserve0Int() *big.Int { return new(big.Int).SetBytes(r.Reserve0[:]) }

// Reserve1Int decodes Reserve1 as an unsigned big.Int.
func (r *PoolUpdate) Reserve1Int() *big.Int { return new(big.Int).SetBytes(r.Reserve1[:]) }

// SqrtPriceX96Int decodes SqrtPriceX96 as an unsigned big.Int.
func (r *PoolUpdate) SqrtPriceX96Int() *big.Int {
	return new(big.Int).SetBytes(r.SqrtPriceX96[:])
}
