/*
NAME
  block.go

DESCRIPTION
  block.go implements one block of audio data within a substream
  segment (spec.md §3 Block/BlockHeader): the optional restart header,
  per-channel filter/matrix/Huffman parameter updates gated by Guards,
  and the block_size-sample residual decode loop. FIFO latency/timing
  bookkeeping is not done here. Grounded on structs/block.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import (
	"github.com/truehdd/truehdd/bits"
	"github.com/truehdd/truehdd/truehd"
)

// BlockHeader is the set of per-block metadata a Block carries: an
// optional decoder-reset RestartHeader, the block's matrixing
// configuration, per-channel filter/Huffman parameters, and the sample
// count this block contributes.
type BlockHeader struct {
	RestartHeader     *RestartHeader
	Matrixing         Matrixing
	ChannelParams     [MaxChannels]ChannelParams
	OutputShift       [MaxChannels]int8
	QuantiserStepSize [MaxChannels]uint32
	BlockSize         int
}

// Block is one decoded block of audio data: its header plus the raw
// (pre-matrix, pre-filter) residual samples for every active channel.
type Block struct {
	Header      BlockHeader
	AudioData   [][MaxChannels]int32
	BypassedLSB [][MaxChannels]int32
}

// readBlockHeader parses the block header that precedes a block's
// sample data, applying the Guards mask to decide which fields are
// re-read versus carried over from the previous block.
func readBlockHeader(state *ParserState, r *bits.Reader, ss *ParserSubstreamState) (BlockHeader, error) {
	var bh BlockHeader

	// A restart header is present whenever the next 13 bits match the
	// fixed restart sync marker (0x1FE).
	marker, err := r.PeekBits(13)
	if err != nil {
		return bh, err
	}
	if marker == 0x1FE {
		rh, err := ReadRestartHeader(state, r)
		if err != nil {
			return bh, err
		}
		bh.RestartHeader = &rh

		ss.RestartSyncWord = uint16(rh.RestartSyncWord)
		ss.MinChan = int(rh.MinChan)
		ss.MaxChan = int(rh.MaxChan)
		ss.MaxMatrixChan = int(rh.MaxMatrixChan)
		ss.MaxShift = int8(rh.MaxShift)
		ss.MaxLSBs = uint32(rh.MaxLSBs)
		ss.ErrorProtect = rh.ErrorProtect
		ss.Guards = DefaultGuards()
		ss.HeavyDRCPresent = rh.HeavyDRCPresent
		ss.HeavyDRCGainUpdate = rh.HeavyDRCGainUpdate
		ss.HeavyDRCTimeUpdate = rh.HeavyDRCTimeUpdate
		for i, v := range rh.ChAssign {
			ss.ChAssign[i] = int(v)
		}

		if hires, got := ss.HiresTiming.Update(state.AUCounter, state.OutputTiming, state.SamplesPerAU, rh.HiresOutputTiming); got {
			state.HiresOutputTiming = &hires
		}
	}

	guards, err := ReadGuards(r)
	if err != nil {
		return bh, err
	}
	ss.Guards = guards

	if guards.NeedChange(GuardMatrixing) {
		mx, err := ReadMatrixing(r, RestartSyncWord(ss.RestartSyncWord), uint8(ss.MaxMatrixChan), state.SubstreamIndex, state.SubstreamInfo, state.AudioSamplingFrequency1)
		if err != nil {
			return bh, err
		}
		mx.UpdateDecoderState(RestartSyncWord(ss.RestartSyncWord))
		bh.Matrixing = mx
	}

	for ch := ss.MinChan; ch <= ss.MaxChan; ch++ {
		prev := ChannelParams{
			CoeffA:     ss.CoeffA[ch],
			CoeffB:     ss.CoeffB[ch],
			HuffOffset: ss.HuffOffset[ch],
			HuffType:   ss.HuffType[ch],
			HuffLSBs:   ss.HuffLSBs[ch],
		}
		cp, err := ReadChannelParams(r, guards, ss.RestartSyncWord, prev)
		if err != nil {
			return bh, err
		}
		bh.ChannelParams[ch] = cp
		ss.CoeffA[ch] = cp.CoeffA
		ss.CoeffB[ch] = cp.CoeffB
		ss.HuffOffset[ch] = cp.HuffOffset
		ss.HuffType[ch] = cp.HuffType
		ss.HuffLSBs[ch] = cp.HuffLSBs
	}

	if guards.NeedChange(GuardQuantiserStepSize) {
		for ch := ss.MinChan; ch <= ss.MaxChan; ch++ {
			v, err := r.ReadBits(4)
			if err != nil {
				return bh, err
			}
			if v > uint64(ss.HuffLSBs[ch]) {
				return bh, withIndex(ErrQuantiserStepTooLarge, "quantiser_step_size[%d]=%d exceeds huff_lsbs %d", ch, v, ss.HuffLSBs[ch])
			}
			ss.QuantiserStepSize[ch] = uint32(v)
		}
	}

	if guards.NeedChange(GuardOutputShift) {
		for ch := ss.MinChan; ch <= ss.MaxChan; ch++ {
			v, err := r.ReadSigned(4)
			if err != nil {
				return bh, err
			}
			if v > int64(ss.MaxShift) {
				return bh, withIndex(ErrOutputShiftTooLarge, "output_shift[%d]=%d exceeds max_shift %d", ch, v, ss.MaxShift)
			}
			ss.OutputShift[ch] = int8(v)
		}
	}

	blockSize := ss.BlockSize
	if guards.NeedChange(GuardBlockSize) {
		v, err := r.ReadBits(9)
		if err != nil {
			return bh, err
		}
		blockSize = int(v)
		if blockSize < 8 || blockSize > 512 {
			return bh, withIndex(ErrInvalidBlockSizeRange, "block_size %d", blockSize)
		}
		if blockSize%8 != 0 {
			state.Logf2("block_size not a multiple of 8")
		}
		ss.BlockSize = blockSize
	}
	bh.BlockSize = blockSize
	bh.OutputShift = ss.OutputShift
	bh.QuantiserStepSize = ss.QuantiserStepSize

	return bh, nil
}

// Logf2 is a convenience wrapper matching the teacher's tolerant-warning
// idiom: logs via the configured Logger if one is set, never fatal.
func (s *ParserState) Logf2(msg string) {
	if s.Logf != nil {
		s.Logf(msg)
	}
}

// readBlock parses one block: its header, then block_size samples of
// residual audio data for each active channel, mirroring block.rs's
// get_huffman/get_n decode loop.
func readBlock(state *ParserState, r *bits.Reader, ss *ParserSubstreamState) (Block, error) {
	var b Block

	bh, err := readBlockHeader(state, r, ss)
	if err != nil {
		return b, err
	}
	b.Header = bh

	b.AudioData = make([][MaxChannels]int32, bh.BlockSize)
	b.BypassedLSB = make([][MaxChannels]int32, bh.BlockSize)

	for n := 0; n < bh.BlockSize; n++ {
		for ch := ss.MinChan; ch <= ss.MaxChan; ch++ {
			cp := bh.ChannelParams[ch]
			qss := ss.QuantiserStepSize[ch]

			if cp.HuffType != 0 {
				lsbsBits := int(cp.HuffLSBs) - int(qss)
				huffCode, err := truehd.DecodeHuffman(r, cp.HuffType)
				if err != nil {
					return b, err
				}
				var lsbs int64
				if lsbsBits > 0 {
					lsbs, err = r.ReadSigned(lsbsBits)
					if err != nil {
						return b, err
					}
					lsbs = int64(uint64(lsbs) & ((1 << uint(lsbsBits)) - 1))
				}
				shift := lsbsBits + (2 - cp.HuffType)
				audioData := lsbs + int64(huffCode)<<uint(lsbsBits)
				if shift >= 0 {
					audioData -= 1 << uint(shift)
				}
				audioData += int64(cp.HuffOffset)
				audioData <<= qss
				if audioData < -(1<<23) || audioData >= 1<<23 {
					return b, withIndex(ErrHuffmanSaturation, "channel %d sample %d", ch, n)
				}
				b.AudioData[n][ch] = int32(audioData)
			} else {
				lsbsBits := int(cp.HuffLSBs) - int(qss)
				var lsbs int64
				if lsbsBits > 0 {
					v, err := r.ReadBits(lsbsBits)
					if err != nil {
						return b, err
					}
					lsbs = int64(v)
					lsbs -= 1 << uint(lsbsBits-1)
				}
				audioData := lsbs
				audioData += int64(cp.HuffOffset)
				audioData <<= qss
				b.AudioData[n][ch] = int32(audioData)
			}
		}
	}

	return b, nil
}
