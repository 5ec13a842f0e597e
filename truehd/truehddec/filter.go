/*
NAME
  filter.go

DESCRIPTION
  filter.go implements the FIR/IIR recorrelator filter coefficient block
  (spec.md §3 FilterCoeffs), grounded on structs/filter.rs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package truehddec

import "github.com/truehdd/truehdd/bits"

// CoeffType distinguishes the FIR ("A", up to order 8) from the IIR
// ("B", up to order 4) recorrelator filter.
type CoeffType int

const (
	CoeffA CoeffType = iota
	CoeffB
)

// FilterCoeffs is one channel's recorrelator filter: its order,
// quantised coefficients, and (for the IIR filter) any carried-over
// filter state.
type FilterCoeffs struct {
	Order      uint8
	CoeffQ     uint8
	CoeffBits  uint8
	CoeffShift uint8
	Coeff      [8]int32

	NewStates  bool
	StateBits  uint8
	StateShift uint8
	State      [8]int32
}

// ReadFilterCoeffs parses one filter's coefficient block. typ selects
// the order ceiling (8 for FIR, 4 for IIR) and gates the optional
// filter-state read, which only the IIR filter carries.
func ReadFilterCoeffs(r *bits.Reader, typ CoeffType) (FilterCoeffs, error) {
	var f FilterCoeffs

	order, err := r.ReadBits(4)
	if err != nil {
		return f, err
	}
	f.Order = uint8(order)

	maxOrder := uint8(8)
	if typ == CoeffB {
		maxOrder = 4
	}
	if f.Order > maxOrder {
		return f, withIndex(ErrFilterOrderTooHigh, "order %d exceeds %d", f.Order, maxOrder)
	}
	if f.Order == 0 {
		return f, nil
	}

	coeffQ, err := r.ReadBits(4)
	if err != nil {
		return f, err
	}
	f.CoeffQ = uint8(coeffQ)
	if f.CoeffQ < 8 {
		return f, withIndex(ErrCoeffQMismatch, "coeff_q %d below minimum 8", f.CoeffQ)
	}

	coeffBits, err := r.ReadBits(5)
	if err != nil {
		return f, err
	}
	f.CoeffBits = uint8(coeffBits)
	if f.CoeffBits == 0 || f.CoeffBits > 16 {
		return f, withIndex(ErrInvalidCoeffShift, "coeff_bits %d out of (0,16]", f.CoeffBits)
	}

	coeffShift, err := r.ReadBits(4)
	if err != nil {
		return f, err
	}
	f.CoeffShift = uint8(coeffShift)
	if f.CoeffShift > 7 {
		return f, withIndex(ErrInvalidCoeffShift, "coeff_shift %d exceeds 7", f.CoeffShift)
	}
	if int(f.CoeffBits)+int(f.CoeffShift) > 16 {
		return f, withIndex(ErrInvalidCoeffShift, "coeff_bits+coeff_shift %d exceeds 16", int(f.CoeffBits)+int(f.CoeffShift))
	}

	for i := 0; i < int(f.Order); i++ {
		c, err := r.ReadSigned(int(f.CoeffBits))
		if err != nil {
			return f, err
		}
		c <<= int64(f.CoeffShift)
		if c == -32768 {
			return f, withIndex(ErrInvalidCoeffShift, "coefficient saturates to -32768")
		}
		f.Coeff[i] = int32(c)
	}

	if typ == CoeffB {
		newStates, err := r.ReadBit()
		if err != nil {
			return f, err
		}
		f.NewStates = newStates
		if f.NewStates {
			stateBits, err := r.ReadBits(4)
			if err != nil {
				return f, err
			}
			f.StateBits = uint8(stateBits)

			stateShift, err := r.ReadBits(4)
			if err != nil {
				return f, err
			}
			f.StateShift = uint8(stateShift)

			for i := 0; i < int(f.Order); i++ {
				st, err := r.ReadSigned(int(f.StateBits))
				if err != nil {
					return f, err
				}
				st <<= int64(f.StateShift)
				if st < -(1<<23) || st >= 1<<23 {
					return f, withIndex(ErrInvalidCoeffShift, "filter state %d out of 24-bit range", st)
				}
				f.State[i] = int32(st)
			}
		}
	}

	return f, nil
}
