/*
NAME
  evolution.go

DESCRIPTION
  evolution.go implements the Evolution frame wrapper (spec.md §3
  EvoFrame) that carries object-audio metadata payloads inside an
  access unit's extra data block. Grounded on structs/evolution.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import "github.com/truehdd/truehdd/bits"

// evoSyncByte is the fixed first byte of every Evolution frame.
const evoSyncByte = 0x1D

// EvoProtection names the trailing-protection-field size an Evolution
// frame carries, keyed off its 2-bit protection type.
type EvoProtection int

const (
	EvoProtectNone EvoProtection = iota
	EvoProtectCRC8
	EvoProtectCRC32
	EvoProtectChecksum16
)

// Size returns the protection field's width in bytes.
func (p EvoProtection) Size() int {
	switch p {
	case EvoProtectNone:
		return 0
	case EvoProtectCRC8:
		return 1
	case EvoProtectCRC32:
		return 4
	case EvoProtectChecksum16:
		return 16
	default:
		return 0
	}
}

// EvoPayloadConfig identifies which payload kind an Evolution frame
// carries: currently only object audio metadata (0) is recognised.
type EvoPayloadConfig struct {
	PayloadID uint8
}

// EvoPayload is an Evolution frame's body: the payload kind plus either
// a parsed OAMD payload or, for unrecognised payload IDs, the raw
// remaining bytes.
type EvoPayload struct {
	Config EvoPayloadConfig
	OAMD   *ObjectAudioMetadataPayload
	Raw    []byte
}

// EvoFrame is one Evolution frame: its length, protection kind, and
// payload.
type EvoFrame struct {
	Length     uint16
	Protection EvoProtection
	Payload    EvoPayload
}

// ReadEvoFrame parses one Evolution frame starting at the current
// (byte-aligned) reader position.
func ReadEvoFrame(r *bits.Reader) (EvoFrame, error) {
	var f EvoFrame

	if r.Position()%8 != 0 {
		return f, withIndex(ErrEvoFrameMisaligned, "start position %d", r.Position())
	}
	start := r.Position()

	sync, err := r.ReadBits(8)
	if err != nil {
		return f, err
	}
	if byte(sync) != evoSyncByte {
		return f, withIndex(ErrEvoFrameMisaligned, "sync byte 0x%02X", sync)
	}

	length, err := r.ReadBits(16)
	if err != nil {
		return f, err
	}
	f.Length = uint16(length)
	if f.Length > 2048 {
		return f, withIndex(ErrEvoFrameTooLong, "length %d", f.Length)
	}
	endBit := start + 8 + uint64(f.Length)*8

	protection, err := r.ReadBits(2)
	if err != nil {
		return f, err
	}
	f.Protection = EvoProtection(protection)

	payloadID, err := r.ReadBits(6)
	if err != nil {
		return f, err
	}
	f.Payload.Config.PayloadID = uint8(payloadID)

	payloadEndBit := endBit - uint64(f.Protection.Size())*8
	payloadBits := int(payloadEndBit) - int(r.Position())
	if payloadBits < 0 {
		return f, withIndex(ErrEvoFrameTooLong, "protection field exceeds frame length")
	}

	if f.Payload.Config.PayloadID == 0 {
		oamd, err := ReadObjectAudioMetadataPayload(r, payloadEndBit)
		if err != nil {
			return f, err
		}
		f.Payload.OAMD = &oamd
	} else {
		raw := make([]byte, 0, payloadBits/8)
		for r.Position()+8 <= payloadEndBit {
			b, err := r.ReadBits(8)
			if err != nil {
				return f, err
			}
			raw = append(raw, byte(b))
		}
		f.Payload.Raw = raw
	}

	if r.Position() < payloadEndBit {
		if err := r.SkipBits(payloadEndBit - r.Position()); err != nil {
			return f, err
		}
	}

	if f.Protection.Size() > 0 {
		if err := r.SkipBits(uint64(f.Protection.Size()) * 8); err != nil {
			return f, err
		}
	}

	if r.Position() != endBit {
		return f, withIndex(ErrEvoFrameTooLong, "ended at %d, expected %d", r.Position(), endBit)
	}

	return f, nil
}
