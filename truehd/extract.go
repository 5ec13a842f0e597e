/*
NAME
  extract.go

DESCRIPTION
  extract.go implements the Extractor: a sync-lock state machine that
  turns a continuous TrueHD bitstream into framed access units (spec.md
  §4.1). Grounded on process/extract.rs's push_bytes/resync/Iterator
  logic, restructured from Rust's Iterator trait into an explicit
  NextFrame method in the teacher's style (codec/h264/extract.go,
  codec/jpeg/lex.go both expose pull-based extraction rather than
  io.Reader wrapping).

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package truehd implements the lowest layer of the TrueHD/MLP decode
// pipeline: byte-level framing (Extractor), the shared bit-level CRC,
// dither and Huffman primitives used by the higher truehddec layer, and
// SMPTE timestamp parsing.
package truehd

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrInsufficientData signals that the Extractor needs more bytes via
// PushBytes before it can yield another Frame. It is a normal control
// signal, not a stream failure.
var ErrInsufficientData = errors.New("truehd: insufficient data")

// ErrParityCheckFailed indicates a corrupted access unit was dropped
// during resync; the Extractor recovers by scanning forward.
var ErrParityCheckFailed = errors.New("truehd: parity check failed")

// ErrSubstreamMismatch indicates a locked stream's substream count
// changed mid-stream; the Extractor recovers by scanning forward.
var ErrSubstreamMismatch = errors.New("truehd: substream count mismatch")

// Frame is a single framed access unit: an opaque byte run plus any
// SMPTE timestamp that preceded it.
type Frame struct {
	Timestamp *Timestamp
	Data      []byte
}

// IsMajorSync reports whether this frame carries a major-sync block,
// identified by the sync pattern 0xF872 at bytes 4-5.
func (f Frame) IsMajorSync() bool {
	return len(f.Data) >= 6 && f.Data[4] == 0xF8 && f.Data[5] == 0x72
}

// Extractor locates frame boundaries in a raw byte stream, validating
// frame-header parity and major-sync CRC as it goes.
type Extractor struct {
	buf        bytes.Buffer
	timestamp  *Timestamp
	inited     bool
	locked     bool
	ioCounter  int
	substreams int
	pool       *BufferPool

	errorCount      int
	framesProcessed int
}

// NewExtractor returns an Extractor ready to accept bytes via
// PushBytes.
func NewExtractor() *Extractor {
	return &Extractor{pool: NewDefaultBufferPool()}
}

// PushBytes appends raw bitstream data to the extractor's internal
// buffer. Never fails: the buffer has no bound.
func (e *Extractor) PushBytes(data []byte) {
	e.buf.Write(data)
	e.ioCounter++
}

// Timestamp returns the most recently captured SMPTE timestamp, if any
// is still pending attachment to a frame.
func (e *Extractor) Timestamp() *Timestamp {
	return e.timestamp
}

// Release returns a frame's backing buffer to the pool once the caller
// is done with it.
func (e *Extractor) Release(data []byte) {
	e.pool.Release(data)
}

func (e *Extractor) consumeFront(n int) {
	if n <= 0 {
		return
	}
	e.buf.Next(n)
}

// accessUnitLen reads the 12-bit access-unit length (in the first two
// bytes of the candidate frame) and converts it to a byte count.
func (e *Extractor) accessUnitLen() (int, bool) {
	b := e.buf.Bytes()
	if len(b) < 2 {
		return 0, false
	}
	return int(binary.BigEndian.Uint16(b[:2])&0xFFF) << 1, true
}

// majorSyncInfoLen reads the major-sync block length from bytes 29-30
// of the candidate frame.
func (e *Extractor) majorSyncInfoLen() (int, bool) {
	b := e.buf.Bytes()
	if len(b) < 31 {
		return 0, false
	}
	if b[29]&0x01 == 0 {
		return 26, true
	}
	return 28 + int((b[30]>>3)&0x1E), true
}

func (e *Extractor) insufficient() error {
	e.ioCounter--
	return ErrInsufficientData
}

// resync clears sync lock and scans for the next major-sync access
// unit, validating its CRC before re-locking. Mirrors extract.rs's
// resync: a trailing guard of 16 bytes is kept unscanned before the
// stream has ever locked (room for a preceding SMPTE timestamp), 4
// bytes after.
func (e *Extractor) resync() error {
	e.locked = false

	for {
		trailingBytes := 4
		if !e.inited {
			trailingBytes = 16
		}
		bufLen := e.buf.Len()
		searchRange := bufLen - trailingBytes
		if searchRange < 0 {
			searchRange = 0
		}
		if searchRange < 4 {
			return e.insufficient()
		}

		b := e.buf.Bytes()
		offset := 0
		state := 0
		for i := 0; i < searchRange-4; i++ {
			c := b[4+i]
			switch {
			case c == 0xF8:
				state = 1
				offset = i
			case state == 1 && c == 0x72:
				state = 2
			case state == 2 && c == 0x6F:
				state = 3
			case state == 3 && (c == 0xBA || c == 0xBB):
				state = 4
			default:
				state = 0
			}
			if state == 4 {
				break
			}
		}

		if state != 4 {
			e.consumeFront(searchRange)
			return e.insufficient()
		}

		if !e.inited && offset >= 16 {
			e.consumeFront(offset - 16)
			tsBytes := make([]byte, 16)
			e.buf.Read(tsBytes)
			if ts, err := ParseTimestamp(tsBytes); err == nil {
				e.timestamp = &ts
			} else {
				e.timestamp = nil
			}
		} else {
			e.consumeFront(offset)
			e.timestamp = nil
		}

		e.inited = true

		majorSyncInfoLen, ok := e.majorSyncInfoLen()
		if !ok {
			return e.insufficient()
		}
		if e.buf.Len() < 4+majorSyncInfoLen {
			return e.insufficient()
		}

		accessUnitLen, ok := e.accessUnitLen()
		if !ok {
			return e.insufficient()
		}
		if e.buf.Len() < accessUnitLen || accessUnitLen <= majorSyncInfoLen+6 {
			return e.insufficient()
		}

		auBytes := e.buf.Bytes()[:accessUnitLen]
		crc := binary.BigEndian.Uint16(auBytes[4+majorSyncInfoLen : 4+majorSyncInfoLen+2])
		if crc != MajorSyncCRC16(auBytes[4:4+majorSyncInfoLen]) {
			e.consumeFront(accessUnitLen)
			continue
		}

		e.locked = true
		e.substreams = int(e.buf.Bytes()[20] >> 4)
		return nil
	}
}

// NextFrame returns the next framed access unit, ErrInsufficientData if
// more bytes are needed (the caller should PushBytes and retry), or
// another error for an unrecoverable extraction fault.
func (e *Extractor) NextFrame() (Frame, error) {
	if e.ioCounter == 0 {
		return Frame{}, ErrInsufficientData
	}

	for {
		locked := func() (Frame, error, bool) {
			if !e.locked {
				if err := e.resync(); err != nil {
					return Frame{}, err, true
				}
			}

			if e.buf.Len() < 6 {
				return Frame{}, e.insufficient(), true
			}

			b := e.buf.Bytes()
			offset := 0
			pre := 4
			skip := 0
			if b[4] == 0xF8 && b[5] == 0x72 {
				if e.buf.Len() < 21 {
					return Frame{}, e.insufficient(), true
				}
				substreams := int(b[20] >> 4)
				if e.substreams != substreams {
					return Frame{}, errors.Wrapf(ErrSubstreamMismatch, "found %d, expected %d", substreams, e.substreams), false
				}
				majorSyncInfoLen, ok := e.majorSyncInfoLen()
				if !ok {
					return Frame{}, e.insufficient(), true
				}
				skip = majorSyncInfoLen + 2
			}

			post := 0
			substreams := e.substreams
			var parity byte

			for {
				switch {
				case pre > 0:
					pre--
					if offset >= len(b) {
						return Frame{}, e.insufficient(), true
					}
					parity ^= b[offset]
					offset++
					continue
				case skip > 0:
					skip--
					offset++
					continue
				case post > 0:
					post--
					if offset >= len(b) {
						return Frame{}, e.insufficient(), true
					}
					parity ^= b[offset]
					offset++
					continue
				case substreams > 0:
					substreams--
					if offset >= len(b) {
						return Frame{}, e.insufficient(), true
					}
					post += 2
					if b[offset]>>7 != 0 {
						post += 2
					}
					continue
				}
				break
			}

			if ((parity >> 4) ^ parity) & 0xF != 0xF {
				return Frame{}, ErrParityCheckFailed, false
			}

			accessUnitLen, ok := e.accessUnitLen()
			if !ok {
				return Frame{}, e.insufficient(), true
			}
			if e.buf.Len() < accessUnitLen {
				return Frame{}, e.insufficient(), true
			}

			frameBuf := e.pool.Acquire()
			frameBuf = append(frameBuf, e.buf.Bytes()[:accessUnitLen]...)
			e.consumeFront(accessUnitLen)

			timestamp := e.timestamp
			e.timestamp = nil

			e.framesProcessed++
			return Frame{Timestamp: timestamp, Data: frameBuf}, nil, true
		}

		frame, err, terminal := locked()
		if err == nil {
			return frame, nil
		}
		if terminal {
			return Frame{}, err
		}

		if e.inited {
			e.errorCount++
			if e.buf.Len() > 0 {
				e.buf.Next(1)
			}
		}

		if rerr := e.resync(); rerr != nil {
			return Frame{}, rerr
		}
	}
}
