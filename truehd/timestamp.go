/*
NAME
  timestamp.go

DESCRIPTION
  timestamp.go parses the optional 16-byte SMPTE timestamp that can
  precede the first major-sync frame of a stream (spec.md §3
  "Timestamp"). Grounded on structs/timestamp.rs: BCD-encoded
  hours/minutes/seconds/frames, a raw 16-bit sample offset, and a
  framerate/dropframe bitfield packed into the last two bytes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import (
	"fmt"

	"github.com/pkg/errors"
)

// Framerate identifies the SMPTE framerate encoded in a Timestamp.
type Framerate uint8

// Known framerate codes. Any other value is carried through as Invalid.
const (
	Framerate23_976 Framerate = 1
	Framerate24     Framerate = 2
	Framerate25     Framerate = 3
	Framerate29_97  Framerate = 4
	Framerate30     Framerate = 5
	Framerate50     Framerate = 6
	Framerate59_94  Framerate = 7
	Framerate60     Framerate = 8
)

// String renders the framerate the way the stream's producer would label
// it, e.g. "23.976" or "Invalid(00)" for an unrecognised code.
func (f Framerate) String() string {
	switch f {
	case Framerate23_976:
		return "23.976"
	case Framerate24:
		return "24"
	case Framerate25:
		return "25"
	case Framerate29_97:
		return "29.97"
	case Framerate30:
		return "30"
	case Framerate50:
		return "50"
	case Framerate59_94:
		return "59.94"
	case Framerate60:
		return "60"
	default:
		return fmt.Sprintf("Invalid(%02X)", uint8(f))
	}
}

// Timestamp is a SMPTE timecode with frame and sample precision, captured
// immediately before the first locked major-sync frame of a stream.
type Timestamp struct {
	Hours      uint16
	Minutes    uint16
	Seconds    uint16
	Frames     uint16
	Samples    uint16
	Framerate  Framerate
	Dropframe  bool
	reserved1  uint16
	reserved2  bool
}

// String formats a Timestamp as "HH:MM:SS:FF[+samples] @ <rate> fps[ DF]".
func (t Timestamp) String() string {
	width := 2
	if t.Hours >= 100 {
		width = 0
	}
	samples := ""
	if t.Samples > 0 {
		samples = fmt.Sprintf(" +%d", t.Samples)
	}
	dropframe := ""
	if t.Dropframe {
		dropframe = " DF"
	}
	return fmt.Sprintf("%0*d:%02d:%02d:%02d%s @ %s fps%s",
		width, t.Hours, t.Minutes, t.Seconds, t.Frames, samples, t.Framerate, dropframe)
}

// ParseTimestamp reads a 16-byte SMPTE timestamp prefix. buf must be
// exactly the 16 bytes immediately preceding a locked major-sync frame.
func ParseTimestamp(buf []byte) (Timestamp, error) {
	if len(buf) < 16 {
		return Timestamp{}, errors.New("truehd: insufficient data for timestamp")
	}
	if buf[0] != 0x01 || buf[1] != 0x10 || buf[14] != 0x80 || buf[15] != 0 {
		return Timestamp{}, errors.New("truehd: invalid timestamp sync bytes")
	}

	word7 := uint16(buf[12])<<8 | uint16(buf[13])

	hours, err := parseBCD16(uint16(buf[2])<<8 | uint16(buf[3]))
	if err != nil {
		return Timestamp{}, err
	}
	minutes, err := parseBCD16(uint16(buf[4])<<8 | uint16(buf[5]))
	if err != nil {
		return Timestamp{}, err
	}
	seconds, err := parseBCD16(uint16(buf[6])<<8 | uint16(buf[7]))
	if err != nil {
		return Timestamp{}, err
	}
	frames, err := parseBCD16(uint16(buf[8])<<8 | uint16(buf[9]))
	if err != nil {
		return Timestamp{}, err
	}

	return Timestamp{
		Hours:     hours,
		Minutes:   minutes,
		Seconds:   seconds,
		Frames:    frames,
		Samples:   uint16(buf[10])<<8 | uint16(buf[11]),
		reserved1: word7 >> 6,
		Framerate: Framerate((word7 >> 2) & 0xF),
		reserved2: word7&2 != 0,
		Dropframe: word7&1 != 0,
	}, nil
}

// parseBCD16 decodes four packed BCD nibbles into their decimal value,
// rejecting any nibble above 9.
func parseBCD16(value uint16) (uint16, error) {
	a := value >> 12
	b := (value >> 8) & 0xF
	c := (value >> 4) & 0xF
	d := value & 0xF

	if a > 9 || b > 9 || c > 9 || d > 9 {
		return 0, errors.New("truehd: invalid BCD digit in timestamp")
	}
	return 1000*a + 100*b + 10*c + d, nil
}
