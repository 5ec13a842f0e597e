/*
NAME
  caf.go

DESCRIPTION
  caf.go writes Apple's Core Audio Format: an 8-byte file header followed
  by a sequence of chunks, each with a big-endian FourCC and 64-bit size.
  Adapted from the same manual-header-construction style as wav.go/
  codec/wav/wav.go, but CAF is big-endian throughout and has no
  provisional-size patch-up for the data chunk (CAF permits a data chunk
  size of -1 meaning "until EOF"), so no Close-time Seek is required.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehdio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// CAFWriter writes 24-bit PCM samples into a Core Audio Format container.
type CAFWriter struct {
	w        io.Writer
	channels int
	buf      []byte
}

// NewCAFWriter writes the CAF file header, description chunk, and an
// unbounded-size data chunk header, then returns a writer ready for
// samples.
func NewCAFWriter(w io.Writer, sampleRate, channels int) (*CAFWriter, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, errors.New("truehdio: invalid CAF stream parameters")
	}

	var hdr []byte
	hdr = append(hdr, 'c', 'a', 'f', 'f')
	hdr = appendBEU16(hdr, 1) // mFileVersion.
	hdr = appendBEU16(hdr, 0) // mFileFlags.

	// Audio description chunk ("desc"), 32 bytes.
	hdr = append(hdr, 'd', 'e', 's', 'c')
	hdr = appendBEU64(hdr, 32)
	hdr = appendBEF64(hdr, float64(sampleRate))
	hdr = append(hdr, 'l', 'p', 'c', 'm') // kCAFLinearPCMFormat.
	hdr = appendBEU32(hdr, 1<<1)          // kCAFLinearPCMFormatFlagIsBigEndian | not-float.
	hdr = appendBEU32(hdr, uint32(3*channels)) // mBytesPerPacket: one packed 3-byte sample per channel.
	hdr = appendBEU32(hdr, 1)             // mFramesPerPacket.
	hdr = appendBEU32(hdr, uint32(channels))
	hdr = appendBEU32(hdr, 24) // mBitsPerChannel.

	// Data chunk header with size -1 (unknown, extends to EOF).
	hdr = append(hdr, 'd', 'a', 't', 'a')
	hdr = appendBEU64(hdr, math.MaxUint64)
	hdr = appendBEU32(hdr, 0) // mEditCount.

	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}
	return &CAFWriter{w: w, channels: channels}, nil
}

// WriteSamples appends n samples across channels as interleaved 24-bit
// big-endian PCM, per CAF's big-endian convention.
func (c *CAFWriter) WriteSamples(samples [][16]int32, n, channels int) error {
	need := n * channels * 3
	if cap(c.buf) < need {
		c.buf = make([]byte, need)
	}
	buf := c.buf[:need]
	i := 0
	for s := 0; s < n; s++ {
		for ch := 0; ch < channels; ch++ {
			v := uint32(samples[s][ch]) & 0xFFFFFF
			buf[i] = byte(v >> 16)
			buf[i+1] = byte(v >> 8)
			buf[i+2] = byte(v)
			i += 3
		}
	}
	_, err := c.w.Write(buf)
	return err
}

// Close is a no-op: the CAF data chunk's unknown size marker means no
// trailing size field needs to be patched.
func (c *CAFWriter) Close() error { return nil }

func appendBEU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendBEU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendBEU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendBEF64(b []byte, v float64) []byte {
	return appendBEU64(b, math.Float64bits(v))
}
