/*
NAME
  substream.go

DESCRIPTION
  substream.go implements the substream directory entry (read once per
  substream per access unit, from the AccessUnit header) and the
  substream segment body (the blocks plus trailing parity/CRC/
  terminator), grounded on structs/substream.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
	"github.com/truehdd/truehdd/truehd"
)

// SubstreamDirectory is one substream's directory entry within the
// access unit header: where its segment ends, whether it carries a
// restart header this AU, and any DRC gain update.
type SubstreamDirectory struct {
	ExtraSubstreamWord bool
	RestartNonexistent bool
	CRCPresent         bool
	SubstreamEndPtr    uint16
	DRCGainUpdate      int16
	DRCTimeUpdate      uint8
}

// ReadSubstreamDirectory parses one directory entry, validating that a
// major-sync access unit always carries a restart header for every
// substream (the inverse also holds for non-major-sync access units).
func ReadSubstreamDirectory(state *ParserState, r *bits.Reader) (SubstreamDirectory, error) {
	var d SubstreamDirectory

	extraWord, err := r.ReadBit()
	if err != nil {
		return d, err
	}
	d.ExtraSubstreamWord = extraWord

	if _, err := r.ReadBit(); err != nil { // reserved
		return d, err
	}

	restartNonexistent, err := r.ReadBit()
	if err != nil {
		return d, err
	}
	d.RestartNonexistent = restartNonexistent

	crcPresent, err := r.ReadBit()
	if err != nil {
		return d, err
	}
	d.CRCPresent = crcPresent

	endPtr, err := r.ReadBits(12)
	if err != nil {
		return d, err
	}
	d.SubstreamEndPtr = uint16(endPtr)

	if d.ExtraSubstreamWord {
		gain, err := r.ReadSigned(9)
		if err != nil {
			return d, err
		}
		d.DRCGainUpdate = int16(gain)

		timeUpdate, err := r.ReadBits(3)
		if err != nil {
			return d, err
		}
		d.DRCTimeUpdate = uint8(timeUpdate)

		if _, err := r.ReadBits(4); err != nil { // reserved
			return d, err
		}
	}

	if state.IsMajorSync == d.RestartNonexistent {
		return d, withIndex(ErrMisalignedSync, "restart_nonexistent=%v on major_sync=%v AU", d.RestartNonexistent, state.IsMajorSync)
	}

	return d, nil
}

// Terminator is the optional end-of-segment marker a substream segment
// may carry ahead of its parity/CRC bytes, reporting how many trailing
// zero samples (if any) were elided.
type Terminator struct {
	ZeroSamplesIndicated bool
	ZeroSamples          uint16
}

// SubstreamSegment is the parsed body of one substream within an access
// unit: its blocks, trailing parity/CRC (if present), and terminator.
type SubstreamSegment struct {
	Blocks         []Block
	SubstreamParity uint8
	SubstreamCRC    uint8
	Terminator      *Terminator
}

// ReadSubstreamSegment parses a substream's segment body up to its
// declared end pointer, reading at most five blocks (four in an FBA
// stream), then any parity/CRC/terminator trailer.
func ReadSubstreamSegment(state *ParserState, r *bits.Reader, ss *ParserSubstreamState, endPosBit uint64) (SubstreamSegment, error) {
	var seg SubstreamSegment

	if r.Position()%16 != 0 {
		return seg, withIndex(ErrSubstreamUnalignedSegment, "start position %d", r.Position())
	}
	segStart := r.Position()

	maxBlocks := 4
	if state.FormatSync == formatSyncFBA {
		maxBlocks = 3
	}

	for r.Position() < endPosBit {
		block, err := readBlock(state, r, ss)
		if err != nil {
			return seg, err
		}
		seg.Blocks = append(seg.Blocks, block)
		ss.BlockIndex++

		if len(seg.Blocks) > maxBlocks {
			break
		}
		remaining := endPosBit - r.Position()
		testSize := uint64(32)
		if ss.CRCPresent {
			testSize += 16
		}
		if remaining < testSize && remaining >= 18 {
			break
		}
	}

	if off := r.Position() % 16; off != 0 {
		if err := r.SkipBits(16 - off); err != nil {
			return seg, err
		}
	}

	remaining := int64(endPosBit) - int64(r.Position())
	testSize := int64(32)
	if ss.CRCPresent {
		testSize += 16
	}
	if remaining >= testSize {
		start := r.Position()
		terminatorA, err := r.ReadBits(18)
		if err != nil {
			return seg, err
		}
		if terminatorA == 0x348D3 {
			t := &Terminator{}
			zeroIndicated, err := r.ReadBit()
			if err != nil {
				return seg, err
			}
			t.ZeroSamplesIndicated = zeroIndicated
			if t.ZeroSamplesIndicated {
				zs, err := r.ReadBits(13)
				if err != nil {
					return seg, err
				}
				t.ZeroSamples = uint16(zs)
			} else {
				if _, err := r.ReadBits(13); err != nil {
					return seg, err
				}
			}
			seg.Terminator = t
		} else {
			state.Logf2("substream segment: unrecognised terminator, rewinding")
			if err := r.Seek(start); err != nil {
				return seg, err
			}
		}
	}

	if ss.CRCPresent {
		preParityPos := r.Position()
		computedParity, err := r.ParityLastNBits(preParityPos - segStart)
		if err != nil {
			return seg, err
		}

		parity, err := r.ReadBits(8)
		if err != nil {
			return seg, err
		}
		seg.SubstreamParity = uint8(parity)
		if expected := computedParity ^ truehd.SubstreamParityXOR; seg.SubstreamParity != expected {
			return seg, withIndex(ErrSubstreamCRCMismatch, "parity mismatch: got 0x%02X want 0x%02X", seg.SubstreamParity, expected)
		}

		bodyStart := segStart / 8
		bodyEnd := preParityPos / 8
		computedCRC := truehd.SubstreamCRC8(r.Bytes()[bodyStart:bodyEnd])

		crc, err := r.ReadBits(8)
		if err != nil {
			return seg, err
		}
		seg.SubstreamCRC = uint8(crc)
		if seg.SubstreamCRC != computedCRC {
			return seg, withIndex(ErrSubstreamCRCMismatch, "CRC mismatch: got 0x%02X want 0x%02X", seg.SubstreamCRC, computedCRC)
		}
	}

	endPos := r.Position()
	if endPos%16 != 0 {
		return seg, withIndex(ErrSubstreamUnalignedSegment, "end position %d", endPos)
	}
	if endPos != endPosBit {
		return seg, withIndex(ErrSubstreamEndMismatch, "ended at %d, expected %d", endPos, endPosBit)
	}

	return seg, nil
}
