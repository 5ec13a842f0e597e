/*
NAME
  wav.go

DESCRIPTION
  wav.go writes the Sony Wave64 (W64) container: a WAVE-equivalent format
  using 128-bit GUID chunk identifiers and 64-bit chunk sizes so a stream
  of unknown-ahead-of-time length can be written without a 4 GiB ceiling.
  Header field layout and the manual binary.LittleEndian.PutUint* style of
  construction is adapted from codec/wav/wav.go's RIFF/WAVE header writer,
  generalised from 4-byte FourCC/size fields to 16-byte GUID/8-byte size
  fields and from the teacher's fixed bit depth to 24-bit samples.

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
)

// Wave64 canonical GUIDs. The first 4 bytes of each spell out the
// corresponding RIFF FourCC; the remaining 12 bytes are the fixed Wave64
// suffix defined by the format.
var (
	guidRIFF = [16]byte{'r', 'i', 'f', 'f', 0x2E, 0x91, 0xCF, 0x11, 0xA5, 0xD6, 0x28, 0xDB, 0x04, 0xC1, 0x00, 0x00}
	guidWAVE = [16]byte{'w', 'a', 'v', 'e', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	guidFMT  = [16]byte{'f', 'm', 't', ' ', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
	guidDATA = [16]byte{'d', 'a', 't', 'a', 0xF3, 0xAC, 0xD3, 0x11, 0x8C, 0xD1, 0x00, 0xC0, 0x4F, 0x8E, 0xDB, 0x8A}
)

const (
	w64HeaderSize    = 16 + 8 // GUID + 8-byte size, per chunk.
	w64RiffChunkSize = w64HeaderSize + 16 + w64FmtChunkSize + w64HeaderSize
	w64FmtChunkSize  = w64HeaderSize + 16 // PCM fmt body is 16 bytes (WAVEFORMATEX sans cbSize).
)

// W64Writer writes 24-bit PCM into a Sony Wave64 container.
type W64Writer struct {
	w          io.WriteSeeker
	channels   int
	sampleRate int
	dataBytes  uint64
	buf        []byte
}

// NewW64Writer writes a provisional Wave64 header (sizes patched on
// Close) and returns a writer ready to accept samples.
func NewW64Writer(w io.WriteSeeker, sampleRate, channels int) (*W64Writer, error) {
	if sampleRate <= 0 {
		return nil, errors.New("truehdio: invalid sample rate")
	}
	if channels <= 0 {
		return nil, errors.New("truehdio: invalid channel count")
	}
	ww := &W64Writer{w: w, channels: channels, sampleRate: sampleRate}
	if err := ww.writeHeader(); err != nil {
		return nil, err
	}
	return ww, nil
}

const bitDepth = 24

func (w *W64Writer) writeHeader() error {
	var hdr []byte

	// riff chunk: GUID + size(placeholder) + "wave" GUID.
	hdr = append(hdr, guidRIFF[:]...)
	hdr = appendU64(hdr, 0) // Patched in Close.
	hdr = append(hdr, guidWAVE[:]...)

	// fmt chunk.
	hdr = append(hdr, guidFMT[:]...)
	hdr = appendU64(hdr, uint64(w64FmtChunkSize))
	blockAlign := w.channels * bitDepth / 8
	byteRate := w.sampleRate * blockAlign
	hdr = appendU16(hdr, 1) // WAVE_FORMAT_PCM.
	hdr = appendU16(hdr, uint16(w.channels))
	hdr = appendU32(hdr, uint32(w.sampleRate))
	hdr = appendU32(hdr, uint32(byteRate))
	hdr = appendU16(hdr, uint16(blockAlign))
	hdr = appendU16(hdr, bitDepth)

	// data chunk header; size patched in Close.
	hdr = append(hdr, guidDATA[:]...)
	hdr = appendU64(hdr, uint64(w64HeaderSize))

	_, err := w.w.Write(hdr)
	return err
}

// WriteSamples appends n samples across channels as interleaved 24-bit
// little-endian PCM.
func (w *W64Writer) WriteSamples(samples [][16]int32, n, channels int) error {
	need := n * channels * 3
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]
	i := 0
	for s := 0; s < n; s++ {
		for c := 0; c < channels; c++ {
			v := uint32(samples[s][c]) & 0xFFFFFF
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
			buf[i+2] = byte(v >> 16)
			i += 3
		}
	}
	if _, err := w.w.Write(buf); err != nil {
		return err
	}
	w.dataBytes += uint64(need)
	return nil
}

// Close patches the riff and data chunk sizes now that the total sample
// count is known, matching the teacher's pattern of writing a
// provisional header and fixing it up once length is known (see
// AddCRC/UpdateCrc's trailer-patch idiom in container/mts/psi/crc.go).
func (w *W64Writer) Close() error {
	dataChunkSize := uint64(w64HeaderSize) + w.dataBytes
	riffChunkSize := uint64(w64RiffChunkSize) + w.dataBytes

	var sizeField [8]byte

	if _, err := w.w.Seek(16, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(sizeField[:], riffChunkSize)
	if _, err := w.w.Write(sizeField[:]); err != nil {
		return err
	}

	dataSizeOffset := int64(16+8+16) + int64(16+8) + 16 /* fmt body */ + 16 /* data guid */
	if _, err := w.w.Seek(dataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(sizeField[:], dataChunkSize)
	_, err := w.w.Write(sizeField[:])
	return err
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
