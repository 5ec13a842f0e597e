/*
NAME
  extra_data.go

DESCRIPTION
  extra_data.go implements the access unit's optional trailing extra
  data block (spec.md §3 ExtraData): a length-prefixed, zero-padded
  byte run that, when present, wraps zero or more Evolution frames
  (object-audio metadata). Its XOR parity is recorded in ExtraData.Parity
  but not compared against any stored value. Grounded on
  structs/extra_data.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
	"github.com/truehdd/truehdd/truehd"
)

// ExtraData is the access unit's trailing auxiliary block: its declared
// length, any Evolution/OAMD frames it carries, and padding out to the
// access unit boundary.
type ExtraData struct {
	Length     uint16
	EvoFrames  []EvoFrame
	Parity     uint8
}

// ReadExtraData parses the extra data block starting at the current
// (byte-aligned) reader position and running to the access unit's
// declared end.
func ReadExtraData(state *ParserState, r *bits.Reader, auEndBit int) (ExtraData, error) {
	var e ExtraData

	if r.Position()%16 != 0 {
		return e, withIndex(ErrExtraDataMisaligned, "start position %d", r.Position())
	}
	start := r.Position()

	length, err := r.ReadBits(16)
	if err != nil {
		return e, err
	}
	e.Length = uint16(length)

	declaredEndBit := start + 16 + uint64(e.Length)<<4

	for r.Position()+16 <= declaredEndBit {
		peek, err := r.PeekBits(16)
		if err != nil {
			break
		}
		if peek>>8 != evoSyncByte {
			break
		}
		evo, err := ReadEvoFrame(r)
		if err != nil {
			return e, err
		}
		e.EvoFrames = append(e.EvoFrames, evo)
	}

	for r.Position() < declaredEndBit {
		if r.Position()+8 > declaredEndBit {
			break
		}
		pad, err := r.ReadBits(8)
		if err != nil {
			return e, err
		}
		if pad != 0 {
			return e, withIndex(ErrExtraDataPaddingNonZero, "padding byte 0x%02X", pad)
		}
	}

	if r.Position() > declaredEndBit {
		return e, withIndex(ErrExtraDataMisaligned, "overran declared extra-data length")
	}

	if r.Position()%8 == 0 {
		bodyStart := start / 8
		bodyEnd := r.Position() / 8
		var parity byte
		for _, b := range r.Bytes()[bodyStart:bodyEnd] {
			parity ^= b
		}
		e.Parity = parity ^ truehd.SubstreamParityXOR
	}

	return e, nil
}
