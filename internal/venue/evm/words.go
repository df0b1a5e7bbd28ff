// Copyright (c) 2024 Neomantra Corp

package evm

import "math/big"

// SignedWord decodes one 32-byte ABI word as a two's-complement int256.
func SignedWord(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) == 32 && b[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return v
}

// UnsignedWord decodes one 32-byte ABI word as a uint256.
func UnsignedWord(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// SignedInt24 decodes the int24 packed into the low bytes of a 32-byte
// ABI word (Uniswap V3's tick field).
func SignedInt24(b []byte) int32 {
	v := SignedWord(b)
	return int32(v.Int64())
}
