/*
NAME
  errors.go

DESCRIPTION
  errors.go defines the parser/decoder error taxonomy and the fail-level
  gating mechanism described in spec.md §4.2 ("governed by a configurable
  fail level"). Grounded on utils/errors.rs's per-domain error enums and
  its `log_or_err!` macro, ported to an explicit `warnOrErr` helper since
  Go has no macro system: callers pass a FailLevel-ranked severity and
  either get the error back (strict paths) or see it logged and continue
  (tolerant paths).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package truehddec implements the Parser and Decoder stages of the
// TrueHD/MLP pipeline: turning a truehd.Frame into a typed AccessUnit,
// and an AccessUnit into a DecodedAccessUnit of 24-bit PCM plus any OAMD
// payload.
package truehddec

import (
	"github.com/pkg/errors"
)

// FailLevel ranks severities from most to least fatal, mirroring the
// log crate's Level ordering (Error=most severe). A condition is
// returned as an error when its severity is at least as severe as the
// configured FailLevel; otherwise it is logged and parsing continues.
type FailLevel int

const (
	FailError FailLevel = iota
	FailWarn
	FailInfo
	FailDebug
	FailTrace
)

// warnOrErr implements the log_or_err! gating: level <= failLevel means
// "treat as fatal", matching the teacher macro's `$level <= $state.fail_level`.
// logf is called (with err's message) when the condition is tolerated.
func warnOrErr(failLevel, level FailLevel, err error, logf func(string)) error {
	if level <= failLevel {
		return err
	}
	if logf != nil {
		logf(err.Error())
	}
	return nil
}

// Extraction errors (spec.md §4.1).
var (
	ErrExtractSubstreamMismatch   = errors.New("truehddec: substream count mismatch")
	ErrExtractParityCheckFailed   = errors.New("truehddec: parity check failed")
	ErrExtractInsufficientData    = errors.New("truehddec: insufficient data")
	ErrExtractInvalidSyncPattern  = errors.New("truehddec: invalid sync pattern")
)

// Parser/access-unit structural errors (spec.md §3 AccessUnit invariants).
var (
	ErrNoSubstream              = errors.New("truehddec: no substream present")
	ErrInvalidSubstreamIndex    = errors.New("truehddec: invalid substream index")
	ErrMissingInitialSync       = errors.New("truehddec: missing initial major sync")
	ErrMisalignedSync           = errors.New("truehddec: misaligned sync")
	ErrNibbleParity             = errors.New("truehddec: nibble parity check failed")
	ErrAccessUnitTooLong        = errors.New("truehddec: access unit exceeds declared length")
)

// Timing errors (spec.md §4.2 FIFO/timing/latency invariants).
var (
	ErrTimingTooShort            = errors.New("truehddec: input timing delta too short")
	ErrTimingShorterThanPrevious = errors.New("truehddec: input timing shorter than previous")
	ErrDataRateExceeded          = errors.New("truehddec: peak data rate exceeded")
	ErrTimingTooLong             = errors.New("truehddec: input timing delta too long")
)

// Block/restart-header/filter/matrix errors (spec.md §3 Block, RestartHeader,
// FilterCoeffs, Matrixing invariants).
var (
	ErrInvalidBlockSizeRange  = errors.New("truehddec: block_size out of range")
	ErrBlockSizeExceedsAU     = errors.New("truehddec: block_size exceeds remaining access unit")
	ErrOutputShiftTooLarge    = errors.New("truehddec: output_shift too large")
	ErrHuffLsbsTooLarge       = errors.New("truehddec: huff_lsbs exceeds maximum for restart sync")
	ErrQuantiserStepTooLarge  = errors.New("truehddec: quantiser step size too large")
	ErrHuffmanSaturation      = errors.New("truehddec: huffman residual saturated")
	ErrBlockDataBitsMismatch  = errors.New("truehddec: block_data_bits count mismatch")
	ErrFilterOrderTooHigh     = errors.New("truehddec: filter_a order + filter_b order exceeds 8")
	ErrCoeffQMismatch         = errors.New("truehddec: filter_a/filter_b coeff_q mismatch")
	ErrInvalidCoeffShift      = errors.New("truehddec: invalid coefficient shift")
	ErrMatrixChannelTooHigh   = errors.New("truehddec: matrix channel exceeds max_matrix_chan")
	ErrFracBitsTooHigh        = errors.New("truehddec: matrix frac_bits too high")
	ErrRestartHeaderCRCMismatch = errors.New("truehddec: restart header CRC mismatch")
	ErrChannelAssignTooHigh     = errors.New("truehddec: ch_assign value exceeds max_matrix_chan")
	ErrChannelAssignDuplicate   = errors.New("truehddec: duplicate ch_assign entry")
)

// Substream/extra-data/sync errors (spec.md §3 SubstreamDirectory,
// ExtraData, MajorSyncInfo invariants).
var (
	ErrSubstreamUnalignedSegment = errors.New("truehddec: substream segment not 16-bit aligned")
	ErrSubstreamEndMismatch      = errors.New("truehddec: substream did not end at declared pointer")
	ErrSubstreamCRCMismatch      = errors.New("truehddec: substream CRC mismatch")
	ErrExtraDataMisaligned       = errors.New("truehddec: extra data start misaligned")
	ErrExtraDataPaddingNonZero   = errors.New("truehddec: extra data padding not zero")
	ErrExtraDataParityMismatch   = errors.New("truehddec: extra data parity mismatch")
	ErrEvoFrameTooLong           = errors.New("truehddec: evolution frame too long")
	ErrEvoFrameMisaligned        = errors.New("truehddec: evolution frame misaligned")
	ErrInvalidFormatSync         = errors.New("truehddec: invalid format_sync")
	ErrInvalidAudioSamplingFreq  = errors.New("truehddec: invalid audio_sampling_frequency")
	ErrInvalidMajorSyncSignature = errors.New("truehddec: invalid major sync signature")
	ErrMajorSyncCRCMismatch      = errors.New("truehddec: major sync CRC mismatch")
	ErrSubstreamCountMismatch    = errors.New("truehddec: substream count changed mid-stream")
	ErrPeakDataRateMismatch      = errors.New("truehddec: peak data rate changed without seamless branch")
	ErrMajorSyncIntervalTooLong  = errors.New("truehddec: major sync interval exceeds maximum gap")
)

// Decoder errors (spec.md §4.3).
var (
	ErrRecorrelatorSaturation = errors.New("truehddec: recorrelator saturation")
	ErrFilterInputTooWide     = errors.New("truehddec: filter input exceeds expected bit width")
	ErrInvalidPresentation    = errors.New("truehddec: invalid presentation index")
)

// withIndex annotates a sentinel error with a formatted context string,
// in the teacher's github.com/pkg/errors wrapping idiom.
func withIndex(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
