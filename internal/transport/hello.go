// Copyright (c) 2024 Neomantra Corp

package transport

import "github.com/dawsh2/alphapulse/pkg/wire"

// Hello builds the zero-payload frame a consumer sends as its first
// message to identify itself to the relay. It is a bare header -- the one
// message family where payload_size == 0 is legal.
func Hello(domain wire.RelayDomain) []byte {
	frame := make([]byte, wire.Header_Size)
	wire.PutHeader(frame, wire.Header{
		RelayDomain: domain,
		Version:     1,
	})
	wire.PatchChecksum(frame)
	return frame
}
